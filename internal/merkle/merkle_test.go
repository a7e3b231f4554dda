package merkle

import "testing"

func leaf(b byte) [32]byte {
	var h [32]byte
	h[0] = b
	return h
}

func TestRootSingleLeaf(t *testing.T) {
	l := leaf(1)
	if Root([][32]byte{l}) != l {
		t.Fatal("single-leaf tree root must equal the leaf")
	}
}

func TestRootOddDuplicatesLast(t *testing.T) {
	leaves := [][32]byte{leaf(1), leaf(2), leaf(3)}
	want := Parent(Parent(leaf(1), leaf(2)), Parent(leaf(3), leaf(3)))
	if got := Root(leaves); got != want {
		t.Fatalf("root mismatch: want %x got %x", want, got)
	}
}

func TestTreeAndPopulateTreeAgree(t *testing.T) {
	leaves := [][32]byte{leaf(1), leaf(2), leaf(3), leaf(4), leaf(5)}
	full := NewTree(leaves)

	// All flags set to 1 so PopulateTree descends to every leaf.
	flags := make([]byte, 0, 32)
	for i := 0; i < len(leaves)*4; i++ {
		flags = append(flags, 1)
	}

	empty := NewEmptyTree(len(leaves))
	if err := empty.PopulateTree(flags, leaves); err != nil {
		t.Fatalf("PopulateTree: %v", err)
	}
	if empty.Root() != full.Root() {
		t.Fatalf("populated root mismatch: want %x got %x", full.Root(), empty.Root())
	}
}

func TestPartialProofVerify(t *testing.T) {
	leaves := [][32]byte{leaf(1), leaf(2)}
	root := Root(leaves)

	proof := PartialProof{
		MerkleRoot:      root,
		NumTransactions: 2,
		Hashes:          leaves,
		Flags:           []byte{1, 0, 0},
	}
	if !proof.Verify() {
		t.Fatal("expected proof to verify")
	}

	proof.MerkleRoot[0] ^= 0xff
	if proof.Verify() {
		t.Fatal("expected corrupted root to fail verification")
	}
}
