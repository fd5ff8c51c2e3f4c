package storage

import (
	"path/filepath"
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"
)

func openTestStore(t *testing.T, opts Options) *boltStore {
	t.Helper()
	raw, err := openBolt(filepath.Join(t.TempDir(), "nested", "history.db"), normalizeOptions(opts))
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := raw.(*boltStore)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBoltStoreRecentNewestFirst(t *testing.T) {
	store := openTestStore(t, Options{})
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	for i, id := range []string{"r1", "r2", "r3"} {
		run := Run{ID: id, Source: id + ".jpg", Status: RunStatusSucceeded, StartedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := store.Record(run); err != nil {
			t.Fatalf("Record %s: %v", id, err)
		}
	}

	runs, err := store.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "r3" || runs[1].ID != "r2" {
		t.Fatalf("unexpected runs %#v", runs)
	}

	all, err := store.Recent(0)
	if err != nil || len(all) != 3 {
		t.Fatalf("expected all 3 runs, got %d err=%v", len(all), err)
	}
}

func TestBoltStoreExpiresRuns(t *testing.T) {
	store := openTestStore(t, Options{RunTTL: time.Minute, CleanupInterval: time.Minute})
	now := time.Now()
	store.now = func() time.Time { return now }

	if err := store.Record(Run{ID: "old", StartedAt: now}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	now = now.Add(2 * time.Minute)
	runs, err := store.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected expired run to be hidden, got %#v", runs)
	}

	// Recording after the cleanup interval sweeps the expired entry.
	if err := store.Record(Run{ID: "new", StartedAt: now}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	count := 0
	store.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket([]byte(runBucket)).Stats().KeyN
		return nil
	})
	if count != 1 {
		t.Fatalf("expected sweep to leave 1 key, got %d", count)
	}
}

func TestNewStoreSupportsNoop(t *testing.T) {
	store, err := NewStore("none", "", Options{})
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.Record(Run{ID: "x"}); err != nil {
		t.Fatalf("noop store Record: %v", err)
	}
	if runs, err := store.Recent(5); err != nil || runs != nil {
		t.Fatalf("noop store Recent: %v %v", runs, err)
	}
}

func TestNewStoreRejectsUnknownType(t *testing.T) {
	if _, err := NewStore("redis", "", Options{}); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
	if _, err := NewStore("bbolt", " ", Options{}); err == nil {
		t.Fatalf("expected error for missing path")
	}
}
