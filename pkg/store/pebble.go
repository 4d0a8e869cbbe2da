package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"

	"otterseal/pkg/logger"
	"otterseal/pkg/models"
	"otterseal/pkg/telemetry"
)

var db *pebble.DB
var dbPath string

// Sentinel outcomes for note lookups. Absent and lapsed are distinct:
// callers surface them as 404 vs 410.
var (
	ErrNotFound = errors.New("note not found")
	ErrExpired  = errors.New("note expired")
)

const notePrefix = "note:"

func noteKey(id string) []byte {
	return []byte(notePrefix + id)
}

// Open opens (or creates) a Pebble database at the given path and keeps
// a global handle for simple usage in this package.
func Open(path string) error {
	var err error
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return err
	}
	dbPath = path
	logger.Info("pebble_opened", "path", path)
	return nil
}

// Close closes the opened pebble DB if present.
func Close() error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	db = nil
	logger.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is opened and ready.
func Ready() bool {
	return db != nil
}

// getNote fetches the raw row without expiry or burn handling.
func getNote(id string) (*models.Note, error) {
	if db == nil {
		return nil, fmt.Errorf("pebble not opened; call store.Open first")
	}
	v, closer, err := db.Get(noteKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	var n models.Note
	if err := json.Unmarshal(v, &n); err != nil {
		return nil, fmt.Errorf("corrupt note row %q: %w", id, err)
	}
	return &n, nil
}

func setNote(id string, n *models.Note) error {
	if db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal note: %w", err)
	}
	return db.Set(noteKey(id), data, pebble.Sync)
}

// DeleteNote removes the row for id. Deleting an absent row is not an
// error.
func DeleteNote(id string) error {
	if db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	return db.Delete(noteKey(id), pebble.Sync)
}

// PutNote upserts a note with new expiry and burn settings. created_at
// is preserved when the row already exists; updated_at is always
// refreshed. The whole read-modify-write runs under the per-id lock so
// concurrent writers cannot interleave partial state.
func PutNote(id, content string, expiresAt *int64, burn bool, now int64) error {
	mu := locks.get(id)
	mu.Lock()
	defer mu.Unlock()

	created := now
	if prev, err := getNote(id); err == nil {
		created = prev.CreatedAt
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	n := &models.Note{
		Content:          content,
		ExpiresAt:        expiresAt,
		BurnAfterReading: burn,
		CreatedAt:        created,
		UpdatedAt:        now,
	}
	if err := setNote(id, n); err != nil {
		logger.Error("note_save_failed", "id", short(id), "error", err)
		return err
	}
	logger.Debug("note_saved", "id", short(id), "burn", burn)
	return nil
}

// PutContent overwrites only the content of a note, keeping its expiry,
// burn flag and created_at exactly as they are. Live-edit updates go
// through here: an editing session never changes sharing settings. When
// no row exists yet the note is created with no expiry and no burn.
func PutContent(id, content string, now int64) error {
	mu := locks.get(id)
	mu.Lock()
	defer mu.Unlock()

	n := &models.Note{Content: content, CreatedAt: now, UpdatedAt: now}
	if prev, err := getNote(id); err == nil {
		n.ExpiresAt = prev.ExpiresAt
		n.BurnAfterReading = prev.BurnAfterReading
		n.CreatedAt = prev.CreatedAt
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	if err := setNote(id, n); err != nil {
		logger.Error("note_save_failed", "id", short(id), "error", err)
		return err
	}
	return nil
}

// ReadNote returns the live note for id and, when its burn flag is set,
// deletes it in the same critical section. Two concurrent reads of a
// burn note cannot both observe the content: the per-id lock serializes
// them and the loser sees ErrNotFound. Expired rows are deleted lazily
// and reported as ErrExpired.
func ReadNote(id string, now int64) (*models.Note, error) {
	mu := locks.get(id)
	mu.Lock()
	defer mu.Unlock()

	n, err := getNote(id)
	if err != nil {
		return nil, err
	}
	if n.Expired(now) {
		if err := DeleteNote(id); err != nil {
			return nil, err
		}
		telemetry.NotesExpired.Inc()
		return nil, ErrExpired
	}
	if n.BurnAfterReading {
		if err := DeleteNote(id); err != nil {
			return nil, err
		}
		telemetry.NotesBurned.Inc()
		logger.Info("note_burned", "id", short(id))
	}
	return n, nil
}

// PeekNote returns note metadata without touching the burn flag. Peek is
// read-only by contract: any number of peeks leaves a burn note intact.
// Lazy expiry still applies.
func PeekNote(id string, now int64) (*models.NoteMeta, error) {
	mu := locks.get(id)
	mu.Lock()
	defer mu.Unlock()

	n, err := getNote(id)
	if err != nil {
		return nil, err
	}
	if n.Expired(now) {
		if err := DeleteNote(id); err != nil {
			return nil, err
		}
		telemetry.NotesExpired.Inc()
		return nil, ErrExpired
	}
	m := n.Meta()
	return &m, nil
}

// LiveNote returns the note if it is live, deleting it lazily when
// expired. Unlike ReadNote it never burns: room joins read content
// without consuming one-shot notes.
func LiveNote(id string, now int64) (*models.Note, error) {
	mu := locks.get(id)
	mu.Lock()
	defer mu.Unlock()

	n, err := getNote(id)
	if err != nil {
		return nil, err
	}
	if n.Expired(now) {
		if err := DeleteNote(id); err != nil {
			return nil, err
		}
		telemetry.NotesExpired.Inc()
		return nil, ErrExpired
	}
	return n, nil
}

// SweepExpired deletes every note whose expiry is non-null and before
// now, returning the count removed. Each candidate is re-checked under
// its per-id lock so the sweeper never races a concurrent write that
// extended the expiry.
func SweepExpired(now int64) (int, error) {
	if db == nil {
		return 0, fmt.Errorf("pebble not opened; call store.Open first")
	}
	prefix := []byte(notePrefix)
	iter, err := db.NewIter(&pebble.IterOptions{LowerBound: prefix})
	if err != nil {
		return 0, err
	}
	var candidates []string
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var n models.Note
		if err := json.Unmarshal(iter.Value(), &n); err != nil {
			logger.Warn("sweep_corrupt_row", "key", string(iter.Key()), "error", err)
			continue
		}
		if n.Expired(now) {
			candidates = append(candidates, string(iter.Key()[len(prefix):]))
		}
	}
	if err := iter.Close(); err != nil {
		return 0, err
	}

	deleted := 0
	for _, id := range candidates {
		mu := locks.get(id)
		mu.Lock()
		n, err := getNote(id)
		if err == nil && n.Expired(now) {
			if err := DeleteNote(id); err != nil {
				mu.Unlock()
				return deleted, err
			}
			deleted++
		}
		mu.Unlock()
	}
	return deleted, nil
}

// short truncates an id for logs; full ids are lookup capabilities and
// do not belong in log files.
func short(id string) string {
	if len(id) > 8 {
		return id[:8] + "..."
	}
	return id
}
