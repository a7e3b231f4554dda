package peer

import "errors"

// Protocol-level failures from the handshake (spec.md §7's Protocol
// error kinds).
var (
	ErrIncompatibleVersion = errors.New("peer: incompatible protocol version")
)
