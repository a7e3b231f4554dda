package wire

import "errors"

// Codec-level failures. These map to the Parse/codec error kinds in the
// design: a short read never panics, it always surfaces as one of these.
var (
	ErrTruncatedStream = errors.New("wire: truncated stream")
	ErrBadChecksum     = errors.New("wire: checksum mismatch")
	ErrInvalidCommand  = errors.New("wire: command name too long")
	ErrVarIntOverflow  = errors.New("wire: varint encodes a value too large")
)
