package reading

import (
	"context"
	"sync"
	"testing"

	pebblestore "github.com/padsense/vitals/internal/storage/pebble"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db)
}

func withClock(t *testing.T, ms *int64) {
	t.Helper()
	orig := NowMs
	NowMs = func() int64 { return *ms }
	t.Cleanup(func() { NowMs = orig })
}

func TestAppendAssignsIDAndTimestamp(t *testing.T) {
	s := newTestStore(t)
	now := int64(10_000)
	withClock(t, &now)

	r1, err := s.Append(context.Background(), "p1", Sample{Pressure: 100})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	now = 10_500
	r2, err := s.Append(context.Background(), "p1", Sample{Pressure: 101})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if r1.ID != 1 || r2.ID != 2 {
		t.Fatalf("ids: got %d, %d", r1.ID, r2.ID)
	}
	if r1.TimestampMs != 10_000 || r2.TimestampMs != 10_500 {
		t.Fatalf("timestamps: got %d, %d", r1.TimestampMs, r2.TimestampMs)
	}
}

func TestAppendClampsRegressingClock(t *testing.T) {
	s := newTestStore(t)
	now := int64(10_000)
	withClock(t, &now)

	if _, err := s.Append(context.Background(), "p1", Sample{Pressure: 1}); err != nil {
		t.Fatalf("append: %v", err)
	}
	now = 9_000
	r, err := s.Append(context.Background(), "p1", Sample{Pressure: 2})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if r.TimestampMs != 10_000 {
		t.Fatalf("expected pinned timestamp, got %d", r.TimestampMs)
	}
}

func TestRecentDescendingWithTies(t *testing.T) {
	s := newTestStore(t)
	now := int64(50_000)
	withClock(t, &now)

	// three readings in the same millisecond, then one newer
	for i := 0; i < 3; i++ {
		if _, err := s.Append(context.Background(), "p1", Sample{Pressure: i}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	now = 51_000
	if _, err := s.Append(context.Background(), "p1", Sample{Pressure: 9}); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := s.Recent(context.Background(), "p1", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].TimestampMs > got[i-1].TimestampMs {
			t.Fatalf("timestamps not non-increasing at %d", i)
		}
		if got[i].TimestampMs == got[i-1].TimestampMs && got[i].ID >= got[i-1].ID {
			t.Fatalf("tie not broken by descending id at %d", i)
		}
	}
	if got[0].ID != 4 {
		t.Fatalf("newest first: got id %d", got[0].ID)
	}
}

func TestRecentLimit(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 5; i++ {
		if _, err := s.Append(context.Background(), "p1", Sample{Pressure: i}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	got, err := s.Recent(context.Background(), "p1", 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 || got[0].ID != 5 || got[1].ID != 4 {
		t.Fatalf("limit window wrong: %+v", got)
	}
}

func TestCountForSurvivesReopenedStore(t *testing.T) {
	dir := t.TempDir()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	s := NewStore(db)
	for i := 0; i < 3; i++ {
		if _, err := s.Append(context.Background(), "p1", Sample{Pressure: i}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db2, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("reopen pebble: %v", err)
	}
	t.Cleanup(func() { _ = db2.Close() })
	s2 := NewStore(db2)
	n, err := s2.CountFor(context.Background(), "p1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 after reopen, got %d", n)
	}
	// ids keep increasing across restarts
	r, err := s2.Append(context.Background(), "p1", Sample{Pressure: 9})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if r.ID != 4 {
		t.Fatalf("expected id 4, got %d", r.ID)
	}
}

func TestDeleteOlderThan(t *testing.T) {
	s := newTestStore(t)
	now := int64(100_000)
	withClock(t, &now)

	for i := 0; i < 3; i++ {
		if _, err := s.Append(context.Background(), "p1", Sample{Pressure: i}); err != nil {
			t.Fatalf("append: %v", err)
		}
		now += 1_000
	}

	// cutoff between second and third reading
	deleted, err := s.DeleteOlderThan(context.Background(), "p1", 102_000)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deleted, got %d", deleted)
	}
	n, err := s.CountFor(context.Background(), "p1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 remaining, got %d", n)
	}

	// strictly-before semantics: repeating with the same cutoff is a no-op
	deleted, err = s.DeleteOlderThan(context.Background(), "p1", 102_000)
	if err != nil {
		t.Fatalf("delete again: %v", err)
	}
	if deleted != 0 {
		t.Fatalf("expected idempotent no-op, got %d", deleted)
	}
}

func TestDeleteOldest(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 5; i++ {
		if _, err := s.Append(context.Background(), "p1", Sample{Pressure: i}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	deleted, err := s.DeleteOldest(context.Background(), "p1", 2)
	if err != nil {
		t.Fatalf("delete oldest: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2, got %d", deleted)
	}
	got, err := s.Recent(context.Background(), "p1", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 3 || got[len(got)-1].ID != 3 {
		t.Fatalf("oldest not removed first: %+v", got)
	}
	// asking for more than present removes what exists
	deleted, err = s.DeleteOldest(context.Background(), "p1", 100)
	if err != nil {
		t.Fatalf("delete oldest: %v", err)
	}
	if deleted != 3 {
		t.Fatalf("expected 3, got %d", deleted)
	}
	if n, _ := s.CountFor(context.Background(), "p1"); n != 0 {
		t.Fatalf("expected empty, got %d", n)
	}
}

func TestConcurrentAppendsSamePatient(t *testing.T) {
	s := newTestStore(t)
	const n = 64
	var wg sync.WaitGroup
	errCh := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			if _, err := s.Append(context.Background(), "p1", Sample{Pressure: p}); err != nil {
				errCh <- err
			}
		}(i)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("append: %v", err)
	}
	count, err := s.CountFor(context.Background(), "p1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != n {
		t.Fatalf("lost writes: expected %d, got %d", n, count)
	}
	got, err := s.Recent(context.Background(), "p1", n)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != n || got[0].ID != n {
		t.Fatalf("expected %d readings with top id %d", n, n)
	}
}

func TestPatientsAreIsolated(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Append(context.Background(), "p1", Sample{Pressure: 1}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := s.Append(context.Background(), "p2", Sample{Pressure: 2}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := s.DeleteOldest(context.Background(), "p1", 10); err != nil {
		t.Fatalf("delete: %v", err)
	}
	n, err := s.CountFor(context.Background(), "p2")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("p2 affected by p1 delete: %d", n)
	}
}

func TestAppendHonoursCancelledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Append(ctx, "p1", Sample{Pressure: 1}); err == nil {
		t.Fatalf("expected error on cancelled context")
	}
	// nothing persisted
	if n, _ := s.CountFor(context.Background(), "p1"); n != 0 {
		t.Fatalf("expected 0, got %d", n)
	}
}

func TestRecentEmptyPatient(t *testing.T) {
	s := newTestStore(t)
	got, err := s.Recent(context.Background(), "ghost", 5)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty, got %d", len(got))
	}
}

func TestRecentNegativeLimit(t *testing.T) {
	s := newTestStore(t)
	now := int64(50_000)
	withClock(t, &now)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		now++
		if _, err := s.Append(ctx, "p1", Sample{Pressure: i}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	got, err := s.Recent(ctx, "p1", -5)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("negative limit returned %d readings, want all 3", len(got))
	}
}

func TestDeleteOldestAcrossBatches(t *testing.T) {
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeNever})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	s := NewStore(db)

	now := int64(80_000)
	withClock(t, &now)
	ctx := context.Background()
	const total = deleteBatchLimit + 200
	for i := 0; i < total; i++ {
		now++
		if _, err := s.Append(ctx, "p1", Sample{Pressure: i}); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	// Spans two delete batches; the reported count and the live meta count
	// must both reflect only what was committed.
	const drop = deleteBatchLimit + 100
	n, err := s.DeleteOldest(ctx, "p1", drop)
	if err != nil {
		t.Fatalf("delete oldest: %v", err)
	}
	if n != drop {
		t.Fatalf("deleted %d, want %d", n, drop)
	}
	count, err := s.CountFor(ctx, "p1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != total-drop {
		t.Fatalf("count %d, want %d", count, total-drop)
	}
	got, err := s.Recent(ctx, "p1", 1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 1 || got[0].Pressure != total-1 {
		t.Fatalf("newest after prune: %+v", got)
	}
}
