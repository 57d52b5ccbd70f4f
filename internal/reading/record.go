package reading

import (
	"encoding/binary"
	"encoding/json"
	"hash/crc32"
)

// Record encoding: varint headerLen | header | payload | crc32c(header|payload).
// The header is the 8-byte big-endian acceptance timestamp in ms; the payload
// is the JSON-encoded Sample.

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// EncodeRecord frames a timestamped sample for storage.
func EncodeRecord(tsMs int64, sample Sample) ([]byte, error) {
	payload, err := json.Marshal(sample)
	if err != nil {
		return nil, err
	}
	var header [8]byte
	binary.BigEndian.PutUint64(header[:], uint64(tsMs))

	out := make([]byte, 0, 10+len(header)+len(payload)+4)
	var tmp [10]byte
	n := binary.PutUvarint(tmp[:], uint64(len(header)))
	out = append(out, tmp[:n]...)
	out = append(out, header[:]...)
	out = append(out, payload...)

	crc := crc32.Update(0, castagnoli, header[:])
	crc = crc32.Update(crc, castagnoli, payload)
	var crcb [4]byte
	binary.BigEndian.PutUint32(crcb[:], crc)
	out = append(out, crcb[:]...)
	return out, nil
}

// DecodeRecord parses a stored record. Returns false on framing or CRC failure.
func DecodeRecord(b []byte) (int64, Sample, bool) {
	hlen, n := binary.Uvarint(b)
	if n <= 0 || hlen != 8 {
		return 0, Sample{}, false
	}
	if n+int(hlen)+4 > len(b) {
		return 0, Sample{}, false
	}
	header := b[n : n+int(hlen)]
	payload := b[n+int(hlen) : len(b)-4]
	expect := binary.BigEndian.Uint32(b[len(b)-4:])
	crc := crc32.Update(0, castagnoli, header)
	crc = crc32.Update(crc, castagnoli, payload)
	if crc != expect {
		return 0, Sample{}, false
	}
	var sample Sample
	if err := json.Unmarshal(payload, &sample); err != nil {
		return 0, Sample{}, false
	}
	return int64(binary.BigEndian.Uint64(header)), sample, true
}

// recordTimestamp reads just the header timestamp without decoding the payload.
func recordTimestamp(b []byte) (int64, bool) {
	hlen, n := binary.Uvarint(b)
	if n <= 0 || hlen != 8 || n+8 > len(b) {
		return 0, false
	}
	return int64(binary.BigEndian.Uint64(b[n : n+8])), true
}
