package rooms

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"otterseal/pkg/models"
	"otterseal/pkg/store"
	"otterseal/pkg/validation"
)

type fakeStore struct {
	mu       sync.Mutex
	notes    map[string]*models.Note
	liveErr  error
	putErr   error
	puts     int
	lastPut  string
	lastRoom string
}

func newFakeStore() *fakeStore {
	return &fakeStore{notes: make(map[string]*models.Note)}
}

func (s *fakeStore) LiveNote(id string, now int64) (*models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.liveErr != nil {
		return nil, s.liveErr
	}
	n, ok := s.notes[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if n.Expired(now) {
		delete(s.notes, id)
		return nil, store.ErrExpired
	}
	return n, nil
}

func (s *fakeStore) PutContent(id, content string, now int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	n, ok := s.notes[id]
	if !ok {
		n = &models.Note{CreatedAt: now}
		s.notes[id] = n
	}
	n.Content = content
	n.UpdatedAt = now
	s.puts++
	s.lastPut = content
	s.lastRoom = id
	return nil
}

type fakeClient struct {
	mu     sync.Mutex
	frames []models.RoomMessage
	closed bool
}

func (c *fakeClient) Send(msg models.RoomMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, msg)
	return nil
}

func (c *fakeClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeClient) got() []models.RoomMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.RoomMessage, len(c.frames))
	copy(out, c.frames)
	return out
}

func TestJoinInvalidID(t *testing.T) {
	hub := NewHub(newFakeStore())
	c := &fakeClient{}
	hub.Join(strings.Repeat("x", 65), c)

	frames := c.got()
	if len(frames) != 1 || frames[0].Type != models.MsgError {
		t.Fatalf("frames = %+v, want single error frame", frames)
	}
	if !c.closed {
		t.Fatal("client not closed after invalid id")
	}
	if hub.roomCount() != 0 {
		t.Fatalf("room created for invalid id")
	}
}

func TestJoinSendsInitWithContent(t *testing.T) {
	fs := newFakeStore()
	fs.notes["room1"] = &models.Note{Content: "current"}
	hub := NewHub(fs)
	c := &fakeClient{}
	hub.Join("room1", c)

	frames := c.got()
	if len(frames) != 1 || frames[0].Type != models.MsgInit || frames[0].Content != "current" {
		t.Fatalf("frames = %+v, want init with current content", frames)
	}
	if hub.memberCount("room1") != 1 {
		t.Fatalf("member count = %d, want 1", hub.memberCount("room1"))
	}
}

func TestJoinEmptyRoomInitsBlank(t *testing.T) {
	hub := NewHub(newFakeStore())
	c := &fakeClient{}
	hub.Join("fresh", c)

	frames := c.got()
	if len(frames) != 1 || frames[0].Type != models.MsgInit || frames[0].Content != "" {
		t.Fatalf("frames = %+v, want init with empty content", frames)
	}
}

func TestJoinExpiredNoteInitsBlank(t *testing.T) {
	fs := newFakeStore()
	past := int64(1)
	fs.notes["old"] = &models.Note{Content: "stale", ExpiresAt: &past}
	hub := NewHub(fs)
	c := &fakeClient{}
	hub.Join("old", c)

	frames := c.got()
	if len(frames) != 1 || frames[0].Type != models.MsgInit || frames[0].Content != "" {
		t.Fatalf("frames = %+v, want blank init for expired note", frames)
	}
	if _, ok := fs.notes["old"]; ok {
		t.Fatal("expired note not lazily deleted")
	}
}

func TestJoinStoreErrorSendsError(t *testing.T) {
	fs := newFakeStore()
	fs.liveErr = errors.New("disk gone")
	hub := NewHub(fs)
	c := &fakeClient{}
	hub.Join("room1", c)

	frames := c.got()
	if len(frames) != 1 || frames[0].Type != models.MsgError {
		t.Fatalf("frames = %+v, want single error frame", frames)
	}
	// the member stays joined; a later write may still succeed
	if hub.memberCount("room1") != 1 {
		t.Fatalf("member count = %d, want 1", hub.memberCount("room1"))
	}
}

func TestUpdateBroadcastsToOthersOnly(t *testing.T) {
	fs := newFakeStore()
	hub := NewHub(fs)
	a, b := &fakeClient{}, &fakeClient{}
	hub.Join("room1", a)
	hub.Join("room1", b)

	hub.Update("room1", a, "v2")

	bFrames := b.got()
	var updates []models.RoomMessage
	for _, f := range bFrames {
		if f.Type == models.MsgUpdate {
			updates = append(updates, f)
		}
	}
	if len(updates) != 1 || updates[0].Content != "v2" {
		t.Fatalf("b updates = %+v, want exactly one with v2", updates)
	}
	for _, f := range a.got() {
		if f.Type == models.MsgUpdate {
			t.Fatalf("sender received echo: %+v", f)
		}
	}
	if fs.puts != 1 || fs.lastPut != "v2" {
		t.Fatalf("store writes = %d (%q), want 1 write of v2", fs.puts, fs.lastPut)
	}
}

func TestUpdateEmptyIsNoop(t *testing.T) {
	fs := newFakeStore()
	hub := NewHub(fs)
	a, b := &fakeClient{}, &fakeClient{}
	hub.Join("room1", a)
	hub.Join("room1", b)

	hub.Update("room1", a, "")

	if fs.puts != 0 {
		t.Fatalf("empty update wrote to store")
	}
	for _, f := range b.got() {
		if f.Type == models.MsgUpdate {
			t.Fatalf("empty update broadcast: %+v", f)
		}
	}
}

func TestUpdateOversizeRejectedToSenderOnly(t *testing.T) {
	fs := newFakeStore()
	hub := NewHub(fs)
	a, b := &fakeClient{}, &fakeClient{}
	hub.Join("room1", a)
	hub.Join("room1", b)

	hub.Update("room1", a, strings.Repeat("x", validation.MaxContentBytes+1))

	var senderErrors int
	for _, f := range a.got() {
		if f.Type == models.MsgError {
			senderErrors++
		}
	}
	if senderErrors != 1 {
		t.Fatalf("sender error frames = %d, want 1", senderErrors)
	}
	if fs.puts != 0 {
		t.Fatal("oversize update reached the store")
	}
	for _, f := range b.got() {
		if f.Type == models.MsgUpdate || f.Type == models.MsgError {
			t.Fatalf("peer received frame for rejected update: %+v", f)
		}
	}
}

func TestLeaveDiscardsEmptyRoom(t *testing.T) {
	hub := NewHub(newFakeStore())
	a, b := &fakeClient{}, &fakeClient{}
	hub.Join("room1", a)
	hub.Join("room1", b)
	if hub.roomCount() != 1 || hub.memberCount("room1") != 2 {
		t.Fatalf("rooms/members = %d/%d, want 1/2", hub.roomCount(), hub.memberCount("room1"))
	}

	hub.Leave("room1", a)
	if hub.memberCount("room1") != 1 {
		t.Fatalf("member count after first leave = %d, want 1", hub.memberCount("room1"))
	}
	hub.Leave("room1", b)
	if hub.roomCount() != 0 {
		t.Fatal("empty room not discarded")
	}

	// disconnect paths call Leave unconditionally; repeats are fine
	hub.Leave("room1", b)
	hub.Leave("never-joined", a)
}

func TestHubsAreIsolated(t *testing.T) {
	fs := newFakeStore()
	h1, h2 := NewHub(fs), NewHub(fs)
	c := &fakeClient{}
	h1.Join("room1", c)
	if h2.roomCount() != 0 {
		t.Fatal("second hub sees first hub's rooms")
	}
}
