package models

import "encoding/json"

// Room message kinds. The wire format is a tagged JSON variant; anything
// that does not parse into one of these kinds is dropped at the transport
// boundary before reaching room logic.
const (
	MsgInit   = "init"
	MsgUpdate = "update"
	MsgError  = "error"
)

// RoomMessage is one frame of the room protocol.
//   - init:   server -> client, current note content on join
//   - update: either direction, full replacement content
//   - error:  server -> client, human-readable reason
//
// Content is never omitted: an init for a room with no live note still
// carries `"content":""` on the wire.
type RoomMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Message string `json:"message,omitempty"`
}

// InitMessage builds a server init frame.
func InitMessage(content string) RoomMessage {
	return RoomMessage{Type: MsgInit, Content: content}
}

// UpdateMessage builds an update frame.
func UpdateMessage(content string) RoomMessage {
	return RoomMessage{Type: MsgUpdate, Content: content}
}

// ErrorMessage builds a server error frame.
func ErrorMessage(msg string) RoomMessage {
	return RoomMessage{Type: MsgError, Message: msg}
}

// ParseUpdate decodes a client frame and returns its content when the
// frame is a well-formed update carrying a string content. The bool is
// false for anything else: other kinds, missing content, or content of
// the wrong JSON type. Clients that have not typed yet send nothing
// useful, so malformed frames are a silent no-op, not an error.
func ParseUpdate(data []byte) (string, bool) {
	var frame struct {
		Type    string `json:"type"`
		Content any    `json:"content"`
	}
	if err := json.Unmarshal(data, &frame); err != nil {
		return "", false
	}
	if frame.Type != MsgUpdate {
		return "", false
	}
	s, ok := frame.Content.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
