package merkle

import (
	"bytes"
	"io"

	"github.com/MartinScazzola/Bitcoin/internal/wire"
)

// PartialProof is the payload of a merkleblock message: the header
// fields a peer sends alongside a partial Merkle tree proving one or
// more transactions are included in a block, grounded on
// smythg4-go-bitcoin's internal/network/merkleblock.go.
type PartialProof struct {
	Version         int32
	PrevBlock       [32]byte
	MerkleRoot      [32]byte
	Time            uint32
	Bits            uint32
	Nonce           uint32
	NumTransactions uint32
	Hashes          [][32]byte
	Flags           []byte
}

func ParsePartialProof(r io.Reader) (PartialProof, error) {
	var p PartialProof
	var err error

	if p.Version, err = wire.ReadI32LE(r); err != nil {
		return PartialProof{}, err
	}
	if p.PrevBlock, err = wire.ReadHash32(r); err != nil {
		return PartialProof{}, err
	}
	if p.MerkleRoot, err = wire.ReadHash32(r); err != nil {
		return PartialProof{}, err
	}
	if p.Time, err = wire.ReadU32LE(r); err != nil {
		return PartialProof{}, err
	}
	if p.Bits, err = wire.ReadU32LE(r); err != nil {
		return PartialProof{}, err
	}
	if p.Nonce, err = wire.ReadU32LE(r); err != nil {
		return PartialProof{}, err
	}
	if p.NumTransactions, err = wire.ReadU32LE(r); err != nil {
		return PartialProof{}, err
	}

	numHashes, err := wire.ReadVarInt(r)
	if err != nil {
		return PartialProof{}, err
	}
	p.Hashes = make([][32]byte, numHashes)
	for i := range p.Hashes {
		if p.Hashes[i], err = wire.ReadHash32(r); err != nil {
			return PartialProof{}, err
		}
	}

	flagBytes, err := wire.ReadBytes(r)
	if err != nil {
		return PartialProof{}, err
	}
	p.Flags = BytesToFlagBits(flagBytes)
	return p, nil
}

func (p PartialProof) Serialize() []byte {
	buf := new(bytes.Buffer)
	buf.Write(wire.PutI32LE(p.Version))
	buf.Write(p.PrevBlock[:])
	buf.Write(p.MerkleRoot[:])
	buf.Write(wire.PutU32LE(p.Time))
	buf.Write(wire.PutU32LE(p.Bits))
	buf.Write(wire.PutU32LE(p.Nonce))
	buf.Write(wire.PutU32LE(p.NumTransactions))
	buf.Write(wire.EncodeVarInt(uint64(len(p.Hashes))))
	for _, h := range p.Hashes {
		buf.Write(h[:])
	}
	packed := make([]byte, (len(p.Flags)+7)/8)
	for i, bit := range p.Flags {
		if bit != 0 {
			packed[i/8] |= 1 << uint(i%8)
		}
	}
	buf.Write(wire.WriteBytes(packed))
	return buf.Bytes()
}

// BuildProof builds the flag-bit/hash pair a merkleblock needs to
// prove a single transaction's inclusion, the inverse of PopulateTree:
// it descends into every subtree covering targetIdx and collapses
// every other subtree into its own hash. Used by the wallet service's
// get_proof handler (spec.md §4.H).
func BuildProof(leaves [][32]byte, targetIdx int) ([]byte, [][32]byte) {
	t := NewTree(leaves)
	var flags []byte
	var hashes [][32]byte

	var traverse func()
	traverse = func() {
		h := t.nodes[t.currentDepth][t.currentIndex]
		interesting := t.covers(targetIdx)

		if t.isLeaf() {
			hashes = append(hashes, h)
			if interesting {
				flags = append(flags, 1)
			} else {
				flags = append(flags, 0)
			}
			return
		}
		if !interesting {
			flags = append(flags, 0)
			hashes = append(hashes, h)
			return
		}

		flags = append(flags, 1)
		t.left()
		traverse()
		t.up()
		if t.rightExists() {
			t.right()
			traverse()
			t.up()
		}
	}

	traverse()
	return flags, hashes
}

// Verify reconstructs the tree this proof describes and reports
// whether its root matches the embedded MerkleRoot (spec.md §4.C /
// §4.G's "prove inclusion" requirement).
func (p PartialProof) Verify() bool {
	t := NewEmptyTree(int(p.NumTransactions))
	if err := t.PopulateTree(p.Flags, p.Hashes); err != nil {
		return false
	}
	return t.Root() == p.MerkleRoot
}
