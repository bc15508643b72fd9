package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"
)

const (
	version   byte = 1
	kindEntry byte = 1
)

var (
	ErrCorrupt = errors.New("syncview: corrupt entry")
	magic4     = [...]byte{'S', 'Y', 'N', 'V'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Entry frame:
//
//	magic(4) | ver(1) | kind(1) | entryVersion(u64 be) | fetchedAt unix-nano(u64 be) | vlen(u32 be) | payload(vlen)
//
// entryVersion is the store's per-key version counter at write time; a frame
// whose version no longer matches the live counter is treated as superseded
// and deleted on read. Framing is strict: trailing bytes are rejected.
func EncodeEntry(entryVersion uint64, fetchedAt time.Time, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(4 + 1 + 1 + 8 + 8 + 4 + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindEntry)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], entryVersion)
	buf.Write(u8[:])

	binary.BigEndian.PutUint64(u8[:], uint64(fetchedAt.UnixNano()))
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

func DecodeEntry(b []byte) (entryVersion uint64, fetchedAt time.Time, payload []byte, err error) {
	const hdr = 4 + 1 + 1 + 8 + 8 + 4
	if len(b) < hdr || !hasMagic(b) || b[4] != version || b[5] != kindEntry {
		return 0, time.Time{}, nil, ErrCorrupt
	}

	off := 6

	entryVersion = binary.BigEndian.Uint64(b[off : off+8])
	off += 8

	fetchedAt = time.Unix(0, int64(binary.BigEndian.Uint64(b[off:off+8])))
	off += 8

	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen < 0 || vlen != len(b)-off { // strict: no trailing bytes
		return 0, time.Time{}, nil, ErrCorrupt
	}

	return entryVersion, fetchedAt, b[off : off+vlen], nil
}
