// Package block implements the 80-byte block header and the full block
// (header + transactions), grounded on smythg4-go-bitcoin's
// internal/block/block.go, generalized to the spec's header-chain
// "next link" requirement (spec.md §3).
package block

import (
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/MartinScazzola/Bitcoin/internal/wire"
)

// Difficulty target constants, ported verbatim from the teacher.
const (
	bitsCoeffMask   uint32 = 0x00ffffff
	bitsHighBitMask byte   = 0x7f

	twoWeeks      int64 = 60 * 60 * 24 * 14
	eightWeeks    int64 = twoWeeks * 4
	threeHalfDays int64 = twoWeeks / 4
)

// Header is the 80-byte block header plus the in-memory "next" link the
// spec requires (spec.md §3): absent until a successor header is
// ingested, never part of the wire serialization.
type Header struct {
	Version    int32
	PrevBlock  [32]byte
	MerkleRoot [32]byte
	Time       uint32
	Bits       uint32
	Nonce      uint32

	// Next is nil until a successor header is linked by the header
	// index (internal/chainstate). It is not serialized.
	Next *[32]byte
}

// ParseHeader reads the 80-byte wire form of a header.
func ParseHeader(r io.Reader) (Header, error) {
	var h Header
	var err error

	if h.Version, err = wire.ReadI32LE(r); err != nil {
		return Header{}, err
	}
	if h.PrevBlock, err = wire.ReadHash32(r); err != nil {
		return Header{}, err
	}
	if h.MerkleRoot, err = wire.ReadHash32(r); err != nil {
		return Header{}, err
	}
	if h.Time, err = wire.ReadU32LE(r); err != nil {
		return Header{}, err
	}
	if h.Bits, err = wire.ReadU32LE(r); err != nil {
		return Header{}, err
	}
	if h.Nonce, err = wire.ReadU32LE(r); err != nil {
		return Header{}, err
	}
	return h, nil
}

// Serialize renders the 80-byte wire form (Next is never included).
func (h Header) Serialize() []byte {
	buf := make([]byte, 0, 80)
	buf = append(buf, wire.PutI32LE(h.Version)...)
	buf = append(buf, h.PrevBlock[:]...)
	buf = append(buf, h.MerkleRoot[:]...)
	buf = append(buf, wire.PutU32LE(h.Time)...)
	buf = append(buf, wire.PutU32LE(h.Bits)...)
	buf = append(buf, wire.PutU32LE(h.Nonce)...)
	return buf
}

// Hash is the header identity: dsha256 of the 80-byte serialization,
// returned little-endian (internal byte order, not display order).
func (h Header) Hash() [32]byte {
	return wire.DoubleSHA256(h.Serialize())
}

func reversed(h [32]byte) [32]byte {
	for i := 0; i < 16; i++ {
		h[i], h[31-i] = h[31-i], h[i]
	}
	return h
}

// ID renders the header hash in the conventional display (big-endian)
// hex form used by explorers and logs.
func (h Header) ID() string {
	return fmt.Sprintf("%x", reversed(h.Hash()))
}

func (h Header) TimeStamp() time.Time { return time.Unix(int64(h.Time), 0) }

func (h Header) bitsToTarget() *big.Int {
	exponent := h.Bits >> 24
	coeff := h.Bits & bitsCoeffMask
	target := big.NewInt(int64(coeff))
	if exponent <= 3 {
		target.Rsh(target, uint(8*(3-exponent)))
	} else {
		target.Lsh(target, uint(8*(exponent-3)))
	}
	return target
}

// TargetToBits turns a target integer back into the compact bits form.
func TargetToBits(target *big.Int) uint32 {
	rawBytes := target.Bytes()
	if len(rawBytes) > 0 && rawBytes[0] > bitsHighBitMask {
		rawBytes = append([]byte{0x00}, rawBytes...)
	}
	exponent := uint32(len(rawBytes))

	coefficient := uint32(0)
	if len(rawBytes) >= 1 {
		coefficient |= uint32(rawBytes[0]) << 16
	}
	if len(rawBytes) >= 2 {
		coefficient |= uint32(rawBytes[1]) << 8
	}
	if len(rawBytes) >= 3 {
		coefficient |= uint32(rawBytes[2])
	}
	return (exponent << 24) | coefficient
}

// CheckProofOfWork reports whether the header's hash, read as a
// little-endian 256-bit integer, is below the target implied by Bits
// (spec.md §4.C, the GLOSSARY's Proof of Work definition).
func (h Header) CheckProofOfWork() bool {
	hash := h.Hash()
	be := reversed(hash)
	proof := new(big.Int).SetBytes(be[:])
	return proof.Cmp(h.bitsToTarget()) < 0
}

// CalcNewBits computes the retargeted difficulty given the first and
// last header of a 2016-block adjustment period. Supplemented from the
// teacher; spec.md's header sync only checks PoW per-header, but this
// enriches header-chain validation without contradicting any Non-goal
// (see SPEC_FULL.md §5).
func (h Header) CalcNewBits(first, last Header) uint32 {
	eight := big.NewInt(eightWeeks)
	threeHalf := big.NewInt(threeHalfDays)

	timeDiff := big.NewInt(int64(last.Time) - int64(first.Time))
	if timeDiff.Cmp(eight) > 0 {
		timeDiff = eight
	}
	if timeDiff.Cmp(threeHalf) < 0 {
		timeDiff = threeHalf
	}

	newTarget := new(big.Int).Mul(last.bitsToTarget(), timeDiff)
	newTarget.Div(newTarget, big.NewInt(twoWeeks))

	maxTarget := (Header{Bits: 0x1d00ffff}).bitsToTarget()
	if newTarget.Cmp(maxTarget) > 0 {
		return 0x1d00ffff
	}
	return TargetToBits(newTarget)
}
