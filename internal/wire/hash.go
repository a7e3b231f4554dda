package wire

import "crypto/sha256"

// DoubleSHA256 is the network's header/transaction/payload identity
// function. Kept as a thin wrapper, not a dependency's concern: the
// spec treats hash primitives as consumed black boxes (see spec.md §1).
func DoubleSHA256(data []byte) [32]byte {
	first := sha256.Sum256(data)
	return sha256.Sum256(first[:])
}
