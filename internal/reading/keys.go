package reading

import (
	"encoding/binary"
)

// Keyspace helpers for Pebble keys.
//
// Layout:
// - pt/{patient}/m
// - pt/{patient}/r/{seq_be8}

var (
	ptPrefix   = []byte("pt/")
	metaSuffix = []byte("/m")
	entrySeg   = []byte("/r/")
)

func appendBE8(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// KeyMeta builds the per-patient metadata key.
func KeyMeta(patient string) []byte {
	k := make([]byte, 0, len(ptPrefix)+len(patient)+len(metaSuffix))
	k = append(k, ptPrefix...)
	k = append(k, patient...)
	k = append(k, metaSuffix...)
	return k
}

// KeyEntry builds the entry key with a big-endian sequence for proper ordering.
func KeyEntry(patient string, seq uint64) []byte {
	k := make([]byte, 0, len(ptPrefix)+len(patient)+len(entrySeg)+8)
	k = append(k, ptPrefix...)
	k = append(k, patient...)
	k = append(k, entrySeg...)
	k = appendBE8(k, seq)
	return k
}

// seqFromEntryKey extracts the sequence from an entry key.
func seqFromEntryKey(key []byte) uint64 {
	if len(key) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(key[len(key)-8:])
}
