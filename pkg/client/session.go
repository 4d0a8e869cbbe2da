package client

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"otterseal/pkg/models"
	"otterseal/pkg/seal"
)

// Session is a live editing connection to one note's room. Frames carry
// ciphertext; the session seals outgoing edits and opens incoming ones
// with the title's derived key.
type Session struct {
	conn *websocket.Conn
	key  []byte

	mu     sync.Mutex
	closed bool
}

// Event is a decrypted room frame.
type Event struct {
	// Type is one of "init", "update" or "error".
	Type string
	// Text is the plaintext for init and update events. Empty when the
	// room holds no note yet or the ciphertext does not open under this
	// title's key.
	Text string
	// Message is set for error events.
	Message string
}

// Join opens a room session for title. The server sends an init event
// first; read it with Recv.
func (c *Client) Join(ctx context.Context, title string) (*Session, error) {
	u := c.wsURL() + "?id=" + seal.DeriveID(title)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial room: %w", err)
	}
	return &Session{conn: conn, key: seal.DeriveKey(title)}, nil
}

// Recv blocks for the next room event and decrypts it.
func (s *Session) Recv() (Event, error) {
	var msg models.RoomMessage
	if err := s.conn.ReadJSON(&msg); err != nil {
		return Event{}, err
	}
	ev := Event{Type: msg.Type}
	switch msg.Type {
	case models.MsgInit, models.MsgUpdate:
		if msg.Content != "" {
			ev.Text = seal.Open(msg.Content, s.key)
		}
	case models.MsgError:
		ev.Message = msg.Message
	}
	return ev, nil
}

// Send seals plaintext and broadcasts it to the room. The edit is also
// persisted server side.
func (s *Session) Send(plaintext string) error {
	env, err := seal.Seal(plaintext, s.key)
	if err != nil {
		return fmt.Errorf("seal update: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("session closed")
	}
	return s.conn.WriteJSON(models.UpdateMessage(env))
}

// Close leaves the room.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}

func (c *Client) wsURL() string {
	base := c.base
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/ws"
}
