package api

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"otterseal/pkg/logger"
	"otterseal/pkg/models"
	"otterseal/pkg/rooms"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin policy lives in the CORS middleware; ids are unguessable
	// derived hashes, so the upgrade itself is open.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Frames above the content cap must reach the hub so the sender gets an
// error frame back instead of a dropped connection.
const wsReadLimit = 1 << 20

// wsClient adapts one websocket connection to the hub's Client
// interface. Gorilla allows a single concurrent writer, so Send
// serializes frames behind a mutex.
type wsClient struct {
	conn *websocket.Conn

	mu     sync.Mutex
	closed bool
}

func (c *wsClient) Send(msg models.RoomMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}
	return c.conn.WriteJSON(msg)
}

func (c *wsClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	_ = c.conn.Close()
}

// serveWS upgrades the connection and runs its read loop: each frame
// that parses as an update goes to the hub; everything else is dropped.
// Any read error, including normal closure, counts as a leave.
func serveWS(hub *rooms.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("ws_upgrade_failed", "error", err)
			return
		}
		conn.SetReadLimit(wsReadLimit)

		client := &wsClient{conn: conn}
		hub.Join(id, client)

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if content, ok := models.ParseUpdate(data); ok {
				hub.Update(id, client, content)
			}
		}

		hub.Leave(id, client)
		client.Close()
	}
}
