package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ReadU32LE, ReadI32LE, ReadU64LE, ReadI64LE read fixed-width
// little-endian scalars, the encoding used throughout the protocol for
// everything except the envelope's network magic (big-endian on the
// wire in this implementation's Serialize path, matching the teacher).
func ReadU32LE(r io.Reader) (uint32, error) {
	buf := make([]byte, 4)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, fmt.Errorf("%w: u32: %v", ErrTruncatedStream, err)
	}
	return binary.LittleEndian.Uint32(buf), nil
}

func ReadI32LE(r io.Reader) (int32, error) {
	v, err := ReadU32LE(r)
	return int32(v), err
}

func ReadU64LE(r io.Reader) (uint64, error) {
	buf := make([]byte, 8)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, fmt.Errorf("%w: u64: %v", ErrTruncatedStream, err)
	}
	return binary.LittleEndian.Uint64(buf), nil
}

func ReadI64LE(r io.Reader) (int64, error) {
	v, err := ReadU64LE(r)
	return int64(v), err
}

func ReadHash32(r io.Reader) ([32]byte, error) {
	var h [32]byte
	if _, err := io.ReadFull(r, h[:]); err != nil {
		return h, fmt.Errorf("%w: 32-byte hash: %v", ErrTruncatedStream, err)
	}
	return h, nil
}

func PutU32LE(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func PutI32LE(v int32) []byte { return PutU32LE(uint32(v)) }

func PutU64LE(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func PutI64LE(v int64) []byte { return PutU64LE(uint64(v)) }
