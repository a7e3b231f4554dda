// Package merkle builds and verifies transaction Merkle trees,
// grounded on smythg4-go-bitcoin's internal/encoding/merkle.go and
// internal/network/merkleblock.go (the partial-tree/flag-bit decoder).
package merkle

import (
	"errors"
	"fmt"
	"math"

	"github.com/MartinScazzola/Bitcoin/internal/wire"
)

// Parent computes the parent hash of two sibling nodes (dsha256 of
// their concatenation).
func Parent(l, r [32]byte) [32]byte {
	buf := make([]byte, 0, 64)
	buf = append(buf, l[:]...)
	buf = append(buf, r[:]...)
	return wire.DoubleSHA256(buf)
}

func parentLevel(level [][32]byte) [][32]byte {
	if len(level)%2 != 0 {
		level = append(level, level[len(level)-1])
	}
	next := make([][32]byte, 0, len(level)/2)
	for i := 0; i < len(level); i += 2 {
		next = append(next, Parent(level[i], level[i+1]))
	}
	return next
}

// Root computes the Merkle root of a full set of leaf hashes
// (transaction hashes in block order). Odd levels duplicate the last
// node, the standard Bitcoin convention.
func Root(leaves [][32]byte) [32]byte {
	if len(leaves) == 0 {
		return [32]byte{}
	}
	level := leaves
	for len(level) > 1 {
		level = parentLevel(level)
	}
	return level[0]
}

// Tree holds every level of a full Merkle tree, used both to build a
// block's root and, via PopulateTree, to reconstruct a tree from a
// peer's partial proof.
type Tree struct {
	total        int
	maxDepth     int
	nodes        [][][32]byte
	currentDepth int
	currentIndex int
}

// NewTree builds a complete tree from a leaf set.
func NewTree(leaves [][32]byte) *Tree {
	total := len(leaves)
	md := depthOf(total)
	t := &Tree{total: total, maxDepth: md, nodes: make([][][32]byte, md+1)}
	level := leaves
	for i := md; i >= 0; i-- {
		t.nodes[i] = level
		if i > 0 {
			level = parentLevel(level)
		}
	}
	return t
}

// NewEmptyTree allocates the level structure for total leaves without
// any hashes populated, ready for PopulateTree.
func NewEmptyTree(total int) *Tree {
	md := depthOf(total)
	t := &Tree{total: total, maxDepth: md, nodes: make([][][32]byte, md+1)}
	for i := 0; i <= md; i++ {
		numItems := int(math.Ceil(float64(total) / math.Pow(2, float64(md-i))))
		t.nodes[i] = make([][32]byte, numItems)
	}
	return t
}

func depthOf(total int) int {
	if total <= 1 {
		return 0
	}
	return int(math.Ceil(math.Log2(float64(total))))
}

func (t *Tree) Root() [32]byte { return t.nodes[0][0] }

func (t *Tree) isLeaf() bool      { return t.currentDepth == t.maxDepth }
func (t *Tree) rightExists() bool { return len(t.nodes[t.currentDepth+1]) > t.currentIndex*2+1 }

// covers reports whether the subtree rooted at the current node spans
// the original leaf at targetIdx, used by BuildProof to decide which
// subtrees to descend into versus collapse into a single hash.
func (t *Tree) covers(targetIdx int) bool {
	span := 1 << uint(t.maxDepth-t.currentDepth)
	start := t.currentIndex * span
	return targetIdx >= start && targetIdx < start+span
}

func (t *Tree) up() {
	if t.currentDepth == 0 {
		return
	}
	t.currentDepth--
	t.currentIndex /= 2
}

func (t *Tree) left() {
	if t.isLeaf() {
		return
	}
	t.currentDepth++
	t.currentIndex *= 2
}

func (t *Tree) right() {
	if t.isLeaf() || !t.rightExists() {
		return
	}
	t.currentDepth++
	t.currentIndex = t.currentIndex*2 + 1
}

func (t *Tree) setCurrent(h [32]byte) {
	t.nodes[t.currentDepth][t.currentIndex] = h
}

// PopulateTree walks an empty tree filling it in from a merkleblock's
// flag bits and hash list (BIP37's partial Merkle tree format, carried
// here purely as proof-verification plumbing; spec.md §4.C / §4.G).
func (t *Tree) PopulateTree(flagBits []byte, hashes [][32]byte) error {
	hashIdx, flagIdx := 0, 0

	var traverse func() ([32]byte, error)
	traverse = func() ([32]byte, error) {
		if flagIdx >= len(flagBits) {
			return [32]byte{}, errors.New("merkle: ran out of flag bits")
		}
		flag := flagBits[flagIdx]
		flagIdx++

		if t.isLeaf() || flag == 0 {
			if hashIdx >= len(hashes) {
				return [32]byte{}, errors.New("merkle: ran out of hashes")
			}
			h := hashes[hashIdx]
			hashIdx++
			t.setCurrent(h)
			return h, nil
		}

		t.left()
		leftHash, err := traverse()
		if err != nil {
			return [32]byte{}, err
		}
		t.up()

		rightHash := leftHash
		if t.rightExists() {
			t.right()
			rightHash, err = traverse()
			if err != nil {
				return [32]byte{}, err
			}
			t.up()
		}

		parent := Parent(leftHash, rightHash)
		t.setCurrent(parent)
		return parent, nil
	}

	if _, err := traverse(); err != nil {
		return err
	}
	if hashIdx != len(hashes) {
		return fmt.Errorf("merkle: used %d of %d hashes", hashIdx, len(hashes))
	}
	return nil
}

// BytesToFlagBits unpacks a flag byte slice into one bool-as-byte per
// bit, LSB first (matches the wire flag-bits encoding).
func BytesToFlagBits(data []byte) []byte {
	bits := make([]byte, 0, len(data)*8)
	for _, b := range data {
		for i := 0; i < 8; i++ {
			bits = append(bits, b&1)
			b >>= 1
		}
	}
	return bits
}
