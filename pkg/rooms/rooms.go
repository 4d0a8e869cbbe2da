package rooms

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"otterseal/pkg/logger"
	"otterseal/pkg/models"
	"otterseal/pkg/store"
	"otterseal/pkg/telemetry"
	"otterseal/pkg/validation"
)

// Client is one live subscriber to a room. The transport owns the
// connection lifetime; the hub only tracks membership and pushes frames.
type Client interface {
	Send(msg models.RoomMessage) error
	Close()
}

// Store is the note persistence the hub writes through. Live edits read
// current metadata and overwrite content last-writer-wins; they never
// change expiry or burn settings.
type Store interface {
	LiveNote(id string, now int64) (*models.Note, error)
	PutContent(id, content string, now int64) error
}

// Hub owns the room registry: one member set per note id, created on
// first join and discarded on last leave. It is a plain value rather
// than package state, so tests and multiple servers stay isolated.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]map[Client]string

	store Store
	now   func() int64
}

// NewHub returns an empty hub over the given store.
func NewHub(s Store) *Hub {
	return &Hub{
		rooms: make(map[string]map[Client]string),
		store: s,
		now:   func() int64 { return time.Now().UnixMilli() },
	}
}

// Join validates the room id, registers the client and pushes the init
// frame carrying the current live content ("" when there is none; an
// expired note is lazily deleted by the store on the way). An invalid id
// gets an error frame and an immediate close; no room is created.
func (h *Hub) Join(id string, c Client) {
	if err := validation.ValidateID(id); err != nil {
		_ = c.Send(models.ErrorMessage(validation.ErrInvalidID.Error()))
		c.Close()
		return
	}

	handle := uuid.NewString()
	h.mu.Lock()
	room, ok := h.rooms[id]
	if !ok {
		room = make(map[Client]string)
		h.rooms[id] = room
	}
	room[c] = handle
	h.mu.Unlock()
	h.updateGauges()

	content := ""
	n, err := h.store.LiveNote(id, h.now())
	switch {
	case err == nil:
		content = n.Content
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrExpired):
		// no live note: the room starts empty
	default:
		logger.Error("room_init_failed", "room", short(id), "error", err)
		_ = c.Send(models.ErrorMessage("failed to load note"))
		return
	}
	if err := c.Send(models.InitMessage(content)); err != nil {
		logger.Warn("room_init_send_failed", "room", short(id), "member", handle, "error", err)
	}
	logger.Info("room_joined", "room", short(id), "member", handle)
}

// Update persists new content for the room's note, keeping its expiry
// and burn settings exactly as they are, then relays an update frame to
// every member except the sender. Empty content is a silent no-op.
// Oversized content earns the sender an error frame and is neither
// written nor broadcast. Delivery is fire-and-forget per recipient: one
// slow or dead member never blocks the rest.
func (h *Hub) Update(id string, sender Client, content string) {
	if content == "" {
		return
	}
	if len(content) > validation.MaxContentBytes {
		if err := sender.Send(models.ErrorMessage("note too large (max 100KB)")); err != nil {
			logger.Warn("room_error_send_failed", "room", short(id), "error", err)
		}
		return
	}

	if err := h.store.PutContent(id, content, h.now()); err != nil {
		logger.Error("room_update_store_failed", "room", short(id), "error", err)
		return
	}
	telemetry.RoomUpdates.Inc()

	// Snapshot membership under the lock; send outside it so a stalled
	// recipient cannot hold up joins and leaves.
	h.mu.Lock()
	peers := make([]Client, 0, len(h.rooms[id]))
	handles := make([]string, 0, len(h.rooms[id]))
	for member, handle := range h.rooms[id] {
		if member != sender {
			peers = append(peers, member)
			handles = append(handles, handle)
		}
	}
	h.mu.Unlock()

	frame := models.UpdateMessage(content)
	for i, peer := range peers {
		if err := peer.Send(frame); err != nil {
			logger.Warn("room_broadcast_failed", "room", short(id), "member", handles[i], "error", err)
		}
	}
}

// Leave removes the client from the room, discarding the room when its
// member set becomes empty. Leaving twice, or leaving a room never
// joined, is a no-op, so disconnect paths can call it unconditionally.
func (h *Hub) Leave(id string, c Client) {
	h.mu.Lock()
	room, ok := h.rooms[id]
	var handle string
	if ok {
		handle = room[c]
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, id)
		}
	}
	h.mu.Unlock()
	if ok {
		h.updateGauges()
		logger.Info("room_left", "room", short(id), "member", handle)
	}
}

// memberCount reports the current member count for a room id.
func (h *Hub) memberCount(id string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[id])
}

// roomCount reports the number of open rooms.
func (h *Hub) roomCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

func (h *Hub) updateGauges() {
	h.mu.Lock()
	roomsOpen := len(h.rooms)
	members := 0
	for _, room := range h.rooms {
		members += len(room)
	}
	h.mu.Unlock()
	telemetry.RoomsOpen.Set(float64(roomsOpen))
	telemetry.RoomMembers.Set(float64(members))
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8] + "..."
	}
	return id
}

// PebbleStore adapts the process-wide pebble store to the hub's Store
// interface.
type PebbleStore struct{}

func (PebbleStore) LiveNote(id string, now int64) (*models.Note, error) {
	return store.LiveNote(id, now)
}

func (PebbleStore) PutContent(id, content string, now int64) error {
	return store.PutContent(id, content, now)
}
