package store

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func openTemp(t *testing.T) {
	t.Helper()
	if err := Open(t.TempDir()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = Close() })
}

func ms(t time.Time) int64 { return t.UnixMilli() }

func TestPutAndReadNote(t *testing.T) {
	openTemp(t)
	now := ms(time.Now())

	if err := PutNote("id1", "envelope-1", nil, false, now); err != nil {
		t.Fatalf("PutNote: %v", err)
	}
	n, err := ReadNote("id1", now)
	if err != nil {
		t.Fatalf("ReadNote: %v", err)
	}
	if n.Content != "envelope-1" {
		t.Fatalf("content = %q, want envelope-1", n.Content)
	}
	if n.CreatedAt != now || n.UpdatedAt != now {
		t.Fatalf("timestamps = %d/%d, want %d", n.CreatedAt, n.UpdatedAt, now)
	}
	// no burn flag: a second full read still succeeds
	if _, err := ReadNote("id1", now); err != nil {
		t.Fatalf("second ReadNote: %v", err)
	}
}

func TestPutNotePreservesCreatedAt(t *testing.T) {
	openTemp(t)
	if err := PutNote("id1", "v1", nil, false, 1000); err != nil {
		t.Fatalf("PutNote: %v", err)
	}
	if err := PutNote("id1", "v2", nil, true, 2000); err != nil {
		t.Fatalf("PutNote update: %v", err)
	}
	n, err := ReadNote("id1", 2000)
	if err != nil {
		t.Fatalf("ReadNote: %v", err)
	}
	if n.Content != "v2" {
		t.Fatalf("content = %q, want v2", n.Content)
	}
	if n.CreatedAt != 1000 {
		t.Fatalf("created_at = %d, want preserved 1000", n.CreatedAt)
	}
	if n.UpdatedAt != 2000 {
		t.Fatalf("updated_at = %d, want refreshed 2000", n.UpdatedAt)
	}
	if !n.BurnAfterReading {
		t.Fatal("burn flag not updated")
	}
}

func TestReadNoteNotFound(t *testing.T) {
	openTemp(t)
	if _, err := ReadNote("missing", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestBurnAfterReading(t *testing.T) {
	openTemp(t)
	now := ms(time.Now())
	if err := PutNote("burn1", "secret", nil, true, now); err != nil {
		t.Fatalf("PutNote: %v", err)
	}
	n, err := ReadNote("burn1", now)
	if err != nil {
		t.Fatalf("first ReadNote: %v", err)
	}
	if n.Content != "secret" {
		t.Fatalf("content = %q", n.Content)
	}
	if _, err := ReadNote("burn1", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second ReadNote: got %v, want ErrNotFound", err)
	}
}

func TestBurnReadIsAtomic(t *testing.T) {
	openTemp(t)
	now := ms(time.Now())
	if err := PutNote("race1", "one-shot", nil, true, now); err != nil {
		t.Fatalf("PutNote: %v", err)
	}

	const readers = 16
	var wg sync.WaitGroup
	results := make(chan error, readers)
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ReadNote("race1", now)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, notFound int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrNotFound):
			notFound++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("%d readers observed content, want exactly 1", ok)
	}
	if notFound != readers-1 {
		t.Fatalf("%d readers saw not-found, want %d", notFound, readers-1)
	}
}

func TestPeekNeverBurns(t *testing.T) {
	openTemp(t)
	now := ms(time.Now())
	exp := now + 60_000
	if err := PutNote("peek1", "secret", &exp, true, now); err != nil {
		t.Fatalf("PutNote: %v", err)
	}
	for i := 0; i < 5; i++ {
		m, err := PeekNote("peek1", now)
		if err != nil {
			t.Fatalf("PeekNote %d: %v", i, err)
		}
		if !m.BurnAfterReading {
			t.Fatal("peek lost the burn flag")
		}
		if m.ExpiresAt == nil || *m.ExpiresAt != exp {
			t.Fatalf("peek expiry = %v, want %d", m.ExpiresAt, exp)
		}
	}
	// still consumable exactly once
	if _, err := ReadNote("peek1", now); err != nil {
		t.Fatalf("ReadNote after peeks: %v", err)
	}
	if _, err := ReadNote("peek1", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound after burn", err)
	}
}

func TestExpiredNoteLazyDeleted(t *testing.T) {
	openTemp(t)
	now := ms(time.Now())
	past := now - 1000
	if err := PutNote("exp1", "stale", &past, false, now-5000); err != nil {
		t.Fatalf("PutNote: %v", err)
	}
	if _, err := ReadNote("exp1", now); !errors.Is(err, ErrExpired) {
		t.Fatalf("got %v, want ErrExpired", err)
	}
	// the row is gone now, so the distinct signal flips to not-found
	if _, err := ReadNote("exp1", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound after lazy delete", err)
	}

	if err := PutNote("exp2", "stale", &past, false, now-5000); err != nil {
		t.Fatalf("PutNote: %v", err)
	}
	if _, err := PeekNote("exp2", now); !errors.Is(err, ErrExpired) {
		t.Fatalf("peek: got %v, want ErrExpired", err)
	}
	if _, err := PeekNote("exp2", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("peek: got %v, want ErrNotFound", err)
	}
}

func TestLiveNoteDoesNotBurn(t *testing.T) {
	openTemp(t)
	now := ms(time.Now())
	if err := PutNote("live1", "shared", nil, true, now); err != nil {
		t.Fatalf("PutNote: %v", err)
	}
	for i := 0; i < 3; i++ {
		n, err := LiveNote("live1", now)
		if err != nil {
			t.Fatalf("LiveNote %d: %v", i, err)
		}
		if n.Content != "shared" {
			t.Fatalf("content = %q", n.Content)
		}
	}
}

func TestPutContentPreservesMeta(t *testing.T) {
	openTemp(t)
	exp := int64(9_999_999_999_999)
	if err := PutNote("room1", "v1", &exp, true, 1000); err != nil {
		t.Fatalf("PutNote: %v", err)
	}
	if err := PutContent("room1", "v2", 2000); err != nil {
		t.Fatalf("PutContent: %v", err)
	}
	n, err := LiveNote("room1", 2000)
	if err != nil {
		t.Fatalf("LiveNote: %v", err)
	}
	if n.Content != "v2" {
		t.Fatalf("content = %q, want v2", n.Content)
	}
	if n.ExpiresAt == nil || *n.ExpiresAt != exp {
		t.Fatalf("expiry = %v, want preserved %d", n.ExpiresAt, exp)
	}
	if !n.BurnAfterReading {
		t.Fatal("burn flag not preserved across live edit")
	}
	if n.CreatedAt != 1000 {
		t.Fatalf("created_at = %d, want preserved 1000", n.CreatedAt)
	}
}

func TestPutContentCreatesRow(t *testing.T) {
	openTemp(t)
	if err := PutContent("fresh", "first", 500); err != nil {
		t.Fatalf("PutContent: %v", err)
	}
	n, err := LiveNote("fresh", 500)
	if err != nil {
		t.Fatalf("LiveNote: %v", err)
	}
	if n.ExpiresAt != nil || n.BurnAfterReading {
		t.Fatalf("fresh room note got settings %v/%v, want none", n.ExpiresAt, n.BurnAfterReading)
	}
}

func TestSweepExpired(t *testing.T) {
	openTemp(t)
	now := int64(10_000)
	past := now - 1
	future := now + 60_000
	if err := PutNote("sweep-old-1", "x", &past, false, 1); err != nil {
		t.Fatalf("PutNote: %v", err)
	}
	if err := PutNote("sweep-old-2", "x", &past, false, 1); err != nil {
		t.Fatalf("PutNote: %v", err)
	}
	if err := PutNote("sweep-live", "x", &future, false, 1); err != nil {
		t.Fatalf("PutNote: %v", err)
	}
	if err := PutNote("sweep-forever", "x", nil, false, 1); err != nil {
		t.Fatalf("PutNote: %v", err)
	}

	count, err := SweepExpired(now)
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if count != 2 {
		t.Fatalf("swept %d, want 2", count)
	}
	if _, err := ReadNote("sweep-old-1", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("swept note still readable: %v", err)
	}
	if _, err := ReadNote("sweep-live", now); err != nil {
		t.Fatalf("live note swept: %v", err)
	}
	if _, err := ReadNote("sweep-forever", now); err != nil {
		t.Fatalf("never-expiring note swept: %v", err)
	}

	// a second pass finds nothing
	count, err = SweepExpired(now)
	if err != nil {
		t.Fatalf("second SweepExpired: %v", err)
	}
	if count != 0 {
		t.Fatalf("second sweep removed %d, want 0", count)
	}
}
