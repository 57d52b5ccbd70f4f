package reading

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/padsense/vitals/internal/errs"
	pebblestore "github.com/padsense/vitals/internal/storage/pebble"
)

// deleteBatchLimit caps keys per delete commit.
const deleteBatchLimit = 1024

// compactFloor is the per-call deletion count above which the patient's key
// range is compacted to reclaim space promptly.
const compactFloor = 4096

// NowMs returns current time in milliseconds; swappable in tests.
var NowMs = func() int64 { return time.Now().UnixMilli() }

// Store provides append-only reading persistence per patient.
//
// All mutations for one patient are serialized behind that patient's log
// lock: appends assign sequence and timestamp under it, and deletes update
// the live count under it, so overlapping prunes cannot double-count.
type Store struct {
	db *pebblestore.DB

	mu   sync.Mutex
	logs map[string]*patientLog
}

// patientLog caches per-patient meta and serializes mutations.
type patientLog struct {
	mu       sync.Mutex
	loaded   bool
	lastSeq  uint64
	count    uint64
	lastTsMs int64
}

// NewStore creates a Store over an open Pebble wrapper.
func NewStore(db *pebblestore.DB) *Store {
	return &Store{db: db, logs: map[string]*patientLog{}}
}

func (s *Store) log(patient string) *patientLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	pl, ok := s.logs[patient]
	if !ok {
		pl = &patientLog{}
		s.logs[patient] = pl
	}
	return pl
}

// load reads meta into the cached log. Caller holds pl.mu.
func (s *Store) load(patient string, pl *patientLog) error {
	if pl.loaded {
		return nil
	}
	meta, err := s.db.Get(KeyMeta(patient))
	if err != nil {
		if !errors.Is(err, pebble.ErrNotFound) {
			return errs.Storage(err)
		}
	} else if len(meta) >= 16 {
		pl.lastSeq = binary.BigEndian.Uint64(meta[:8])
		pl.count = binary.BigEndian.Uint64(meta[8:16])
	}
	pl.loaded = true
	return nil
}

func encodeMeta(lastSeq, count uint64) []byte {
	var meta [16]byte
	binary.BigEndian.PutUint64(meta[:8], lastSeq)
	binary.BigEndian.PutUint64(meta[8:16], count)
	return meta[:]
}

// Append persists a sample for the patient, assigning the identifier and the
// acceptance timestamp. Durable when it returns without error.
func (s *Store) Append(ctx context.Context, patient string, sample Sample) (Reading, error) {
	if err := ctx.Err(); err != nil {
		return Reading{}, errs.Storage(err)
	}
	pl := s.log(patient)
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if err := s.load(patient, pl); err != nil {
		return Reading{}, err
	}

	// Timestamps never regress within one patient, so sequence order stays
	// consistent with timestamp order.
	ts := NowMs()
	if ts < pl.lastTsMs {
		ts = pl.lastTsMs
	}
	seq := pl.lastSeq + 1

	val, err := EncodeRecord(ts, sample)
	if err != nil {
		return Reading{}, errs.Storage(err)
	}
	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set(KeyEntry(patient, seq), val, nil); err != nil {
		return Reading{}, errs.Storage(err)
	}
	if err := b.Set(KeyMeta(patient), encodeMeta(seq, pl.count+1), nil); err != nil {
		return Reading{}, errs.Storage(err)
	}
	if err := s.db.CommitBatch(ctx, b); err != nil {
		return Reading{}, errs.Storage(err)
	}

	pl.lastSeq = seq
	pl.count++
	pl.lastTsMs = ts
	return Reading{
		ID:          seq,
		PatientID:   patient,
		Pressure:    sample.Pressure,
		Temperature: sample.Temperature,
		Humidity:    sample.Humidity,
		TimestampMs: ts,
	}, nil
}

// Recent returns up to limit readings for the patient, strictly descending by
// timestamp with identifier descending on ties.
func (s *Store) Recent(ctx context.Context, patient string, limit int) ([]Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Storage(err)
	}
	low := KeyEntry(patient, 0)
	hi := KeyEntry(patient, ^uint64(0))
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: append(hi, 0x00)})
	if err != nil {
		return nil, errs.Storage(err)
	}
	defer iter.Close()

	if limit < 0 {
		limit = 0
	}
	out := make([]Reading, 0, limit)
	for ok := iter.Last(); ok && (limit <= 0 || len(out) < limit); ok = iter.Prev() {
		seq := seqFromEntryKey(iter.Key())
		ts, sample, okDec := DecodeRecord(iter.Value())
		if !okDec {
			continue
		}
		out = append(out, Reading{
			ID:          seq,
			PatientID:   patient,
			Pressure:    sample.Pressure,
			Temperature: sample.Temperature,
			Humidity:    sample.Humidity,
			TimestampMs: ts,
		})
	}
	return out, nil
}

// CountFor returns the current total readings for the patient.
func (s *Store) CountFor(ctx context.Context, patient string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, errs.Storage(err)
	}
	pl := s.log(patient)
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if err := s.load(patient, pl); err != nil {
		return 0, err
	}
	return int(pl.count), nil
}

// DeleteOlderThan removes all readings for the patient with timestamp strictly
// before cutoffMs. Returns the number removed. Safe to repeat.
func (s *Store) DeleteOlderThan(ctx context.Context, patient string, cutoffMs int64) (int, error) {
	return s.deleteOldest(ctx, patient, func(ts int64, _ int) bool { return ts < cutoffMs })
}

// DeleteOldest removes the n oldest readings for the patient. Returns the
// number removed (fewer when the patient holds less than n).
func (s *Store) DeleteOldest(ctx context.Context, patient string, n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}
	return s.deleteOldest(ctx, patient, func(_ int64, deleted int) bool { return deleted < n })
}

// deleteOldest walks entries oldest-first and deletes while keep returns true,
// committing in bounded batches with the meta count updated in each batch.
func (s *Store) deleteOldest(ctx context.Context, patient string, keep func(ts int64, deleted int) bool) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, errs.Storage(err)
	}
	pl := s.log(patient)
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if err := s.load(patient, pl); err != nil {
		return 0, err
	}

	low := KeyEntry(patient, 0)
	hi := KeyEntry(patient, ^uint64(0))
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: append(hi, 0x00)})
	if err != nil {
		return 0, errs.Storage(err)
	}
	defer iter.Close()

	deleted := 0
	for ok := iter.First(); ok; {
		b := s.db.NewBatch()
		n := 0
		for ok && n < deleteBatchLimit {
			ts, okTs := recordTimestamp(iter.Value())
			if okTs && !keep(ts, deleted) {
				ok = false
				break
			}
			// Error paths report only committed deletions; the n keys staged
			// in the open batch are discarded with it.
			if err := b.Delete(iter.Key(), nil); err != nil {
				b.Close()
				return deleted - n, errs.Storage(err)
			}
			deleted++
			n++
			ok = iter.Next()
		}
		if n == 0 {
			b.Close()
			break
		}
		remaining := uint64(0)
		if pl.count > uint64(n) {
			remaining = pl.count - uint64(n)
		}
		if err := b.Set(KeyMeta(patient), encodeMeta(pl.lastSeq, remaining), nil); err != nil {
			b.Close()
			return deleted - n, errs.Storage(err)
		}
		if err := s.db.CommitBatch(ctx, b); err != nil {
			b.Close()
			return deleted - n, errs.Storage(err)
		}
		b.Close()
		pl.count = remaining
	}

	if deleted >= compactFloor {
		_ = s.db.CompactRange(low, append(hi, 0x00))
	}
	return deleted, nil
}
