package pebblestore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cockroachdb/pebble"
)

type testMetrics struct {
	read         int
	batchCommits int
	batchBytes   int
}

func (m *testMetrics) ObserveWrite(d time.Duration, bytes int) {}
func (m *testMetrics) ObserveRead(d time.Duration, bytes int)  { m.read += bytes }
func (m *testMetrics) ObserveBatchCommit(d time.Duration, numOps int, bytes int) {
	m.batchCommits++
	m.batchBytes += bytes
}

func newTestDB(t *testing.T) (*DB, *testMetrics) {
	t.Helper()
	metrics := &testMetrics{}
	db, err := Open(Options{
		DataDir: t.TempDir(),
		Fsync:   FsyncModeAlways,
		Metrics: metrics,
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, metrics
}

func TestSetGet(t *testing.T) {
	db, metrics := newTestDB(t)

	key := []byte("pt/alice/m")
	val := []byte{0, 0, 0, 0, 0, 0, 0, 3, 0, 0, 0, 0, 0, 0, 0, 3}
	if err := db.Set(key, val); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := db.Get(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != string(val) {
		t.Fatalf("got %v want %v", got, val)
	}
	if metrics.read == 0 {
		t.Fatalf("expected read metrics to record bytes")
	}
}

func TestGetMissing(t *testing.T) {
	db, _ := newTestDB(t)
	if _, err := db.Get([]byte("pt/nobody/m")); !errors.Is(err, pebble.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestBatchCommitAtomic(t *testing.T) {
	db, metrics := newTestDB(t)

	b := db.NewBatch()
	if err := b.Set([]byte("pt/alice/r/01"), []byte("entry"), nil); err != nil {
		t.Fatalf("batch set: %v", err)
	}
	if err := b.Set([]byte("pt/alice/m"), []byte("meta"), nil); err != nil {
		t.Fatalf("batch set: %v", err)
	}
	if err := db.CommitBatch(context.Background(), b); err != nil {
		t.Fatalf("commit: %v", err)
	}
	b.Close()

	for _, key := range []string{"pt/alice/r/01", "pt/alice/m"} {
		if _, err := db.Get([]byte(key)); err != nil {
			t.Fatalf("get %s after commit: %v", key, err)
		}
	}
	if metrics.batchCommits != 1 {
		t.Fatalf("want 1 batch commit, got %d", metrics.batchCommits)
	}
	if metrics.batchBytes <= 0 {
		t.Fatalf("expected positive batch bytes")
	}
}

func TestCommitNilBatch(t *testing.T) {
	db, _ := newTestDB(t)
	if err := db.CommitBatch(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil batch")
	}
}

func TestIterBounds(t *testing.T) {
	db, _ := newTestDB(t)

	for _, key := range []string{"pt/alice/r/01", "pt/alice/r/02", "pt/bob/r/01"} {
		if err := db.Set([]byte(key), []byte("v")); err != nil {
			t.Fatalf("set %s: %v", key, err)
		}
	}

	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("pt/alice/r/"),
		UpperBound: []byte("pt/alice/r0"),
	})
	if err != nil {
		t.Fatalf("iter: %v", err)
	}
	defer iter.Close()

	n := 0
	for ok := iter.First(); ok; ok = iter.Next() {
		n++
	}
	if n != 2 {
		t.Fatalf("iter saw %d keys in alice's range, want 2", n)
	}
}

func TestOpenRequiresDataDir(t *testing.T) {
	if _, err := Open(Options{}); err == nil {
		t.Fatal("expected error for missing DataDir")
	}
}

func TestFsyncModes(t *testing.T) {
	for _, mode := range []FsyncMode{FsyncModeAlways, FsyncModeInterval, FsyncModeNever} {
		db, err := Open(Options{DataDir: t.TempDir(), Fsync: mode, FsyncInterval: 2 * time.Millisecond})
		if err != nil {
			t.Fatalf("open mode %d: %v", mode, err)
		}
		if err := db.Set([]byte("k"), []byte("v")); err != nil {
			t.Fatalf("set mode %d: %v", mode, err)
		}
		if err := db.Close(); err != nil {
			t.Fatalf("close mode %d: %v", mode, err)
		}
	}
}
