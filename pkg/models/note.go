package models

// Note is the persisted unit: one opaque ciphertext envelope per derived
// id. The server never inspects Content. Timestamps are unix milliseconds.
type Note struct {
	Content          string `json:"content"`
	ExpiresAt        *int64 `json:"expires_at"`
	BurnAfterReading bool   `json:"burn_after_reading"`
	CreatedAt        int64  `json:"created_at"`
	UpdatedAt        int64  `json:"updated_at"`
}

// NoteMeta is the metadata view of a Note, without its content.
type NoteMeta struct {
	ExpiresAt        *int64 `json:"expires_at"`
	BurnAfterReading bool   `json:"burn_after_reading"`
	CreatedAt        int64  `json:"created_at"`
	UpdatedAt        int64  `json:"updated_at"`
}

// Expired reports whether the note's expiry is set and in the past.
// This is the single expiry predicate shared by lazy deletion and the
// background sweeper.
func (n *Note) Expired(now int64) bool {
	return n.ExpiresAt != nil && *n.ExpiresAt < now
}

// Expired reports whether the expiry is set and in the past.
func (m *NoteMeta) Expired(now int64) bool {
	return m.ExpiresAt != nil && *m.ExpiresAt < now
}

// Meta returns the metadata view of the note.
func (n *Note) Meta() NoteMeta {
	return NoteMeta{
		ExpiresAt:        n.ExpiresAt,
		BurnAfterReading: n.BurnAfterReading,
		CreatedAt:        n.CreatedAt,
		UpdatedAt:        n.UpdatedAt,
	}
}
