package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ReadVarInt decodes a CompactSize integer: values below 0xfd are a
// single byte; 0xfd/0xfe/0xff prefix a 2/4/8-byte little-endian value.
// Encoding is canonical (EncodeVarInt never emits a wider form than
// necessary, and ReadVarInt rejects one), so two distinct byte
// sequences never decode to the same integer.
func ReadVarInt(r io.Reader) (uint64, error) {
	buf := make([]byte, 8)
	if _, err := io.ReadFull(r, buf[:1]); err != nil {
		return 0, fmt.Errorf("%w: varint prefix: %v", ErrTruncatedStream, err)
	}

	switch buf[0] {
	case 0xfd:
		if _, err := io.ReadFull(r, buf[:2]); err != nil {
			return 0, fmt.Errorf("%w: varint u16: %v", ErrTruncatedStream, err)
		}
		v := uint64(binary.LittleEndian.Uint16(buf[:2]))
		if v < 0xfd {
			return 0, fmt.Errorf("wire: non-canonical varint: %d in 3-byte form", v)
		}
		return v, nil
	case 0xfe:
		if _, err := io.ReadFull(r, buf[:4]); err != nil {
			return 0, fmt.Errorf("%w: varint u32: %v", ErrTruncatedStream, err)
		}
		v := uint64(binary.LittleEndian.Uint32(buf[:4]))
		if v <= 0xffff {
			return 0, fmt.Errorf("wire: non-canonical varint: %d in 5-byte form", v)
		}
		return v, nil
	case 0xff:
		if _, err := io.ReadFull(r, buf[:8]); err != nil {
			return 0, fmt.Errorf("%w: varint u64: %v", ErrTruncatedStream, err)
		}
		v := binary.LittleEndian.Uint64(buf[:8])
		if v <= 0xffffffff {
			return 0, fmt.Errorf("wire: non-canonical varint: %d in 9-byte form", v)
		}
		return v, nil
	default:
		return uint64(buf[0]), nil
	}
}

// EncodeVarInt is the canonical encoder for ReadVarInt: it always picks
// the narrowest representation for a given value.
func EncodeVarInt(v uint64) []byte {
	switch {
	case v < 0xfd:
		return []byte{byte(v)}
	case v <= 0xffff:
		b := make([]byte, 3)
		b[0] = 0xfd
		binary.LittleEndian.PutUint16(b[1:], uint16(v))
		return b
	case v <= 0xffffffff:
		b := make([]byte, 5)
		b[0] = 0xfe
		binary.LittleEndian.PutUint32(b[1:], uint32(v))
		return b
	default:
		b := make([]byte, 9)
		b[0] = 0xff
		binary.LittleEndian.PutUint64(b[1:], v)
		return b
	}
}

// ReadBytes reads a varint-prefixed byte vector (a length-prefixed
// opaque blob, e.g. a signature script or pk_script).
func ReadBytes(r io.Reader) ([]byte, error) {
	n, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: byte vector body: %v", ErrTruncatedStream, err)
	}
	return buf, nil
}

// WriteBytes writes a varint length prefix followed by data.
func WriteBytes(data []byte) []byte {
	out := make([]byte, 0, len(EncodeVarInt(uint64(len(data))))+len(data))
	out = append(out, EncodeVarInt(uint64(len(data)))...)
	out = append(out, data...)
	return out
}
