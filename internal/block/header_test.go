package block

import (
	"bytes"
	"testing"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		Version:    1,
		Time:       1296688602,
		Bits:       0x1d00ffff,
		Nonce:      414098458,
		PrevBlock:  [32]byte{},
		MerkleRoot: [32]byte{0x4a, 0x5e, 0x1e},
	}
	raw := h.Serialize()
	if len(raw) != 80 {
		t.Fatalf("serialized header: want 80 bytes got %d", len(raw))
	}

	got, err := ParseHeader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if got.Version != h.Version || got.Time != h.Time || got.Bits != h.Bits || got.Nonce != h.Nonce {
		t.Fatalf("round trip mismatch: want %+v got %+v", h, got)
	}
	if got.Next != nil {
		t.Fatal("parsed header should never carry a Next link")
	}
}

func TestGenesisProofOfWork(t *testing.T) {
	// Testnet3 genesis header, spec.md's S1 scenario values.
	h := Header{
		Version:   1,
		Time:      1296688602,
		Bits:      0x1d00ffff,
		Nonce:     414098458,
		PrevBlock: [32]byte{},
		MerkleRoot: [32]byte{
			0x3b, 0xa3, 0xed, 0xfd, 0x7a, 0x7b, 0x12, 0xb2,
			0x7a, 0xc7, 0x2c, 0x3e, 0x67, 0x76, 0x8f, 0x61,
			0x7f, 0xc8, 0x1b, 0xc3, 0x88, 0x8a, 0x51, 0x32,
			0x3a, 0x9f, 0xb8, 0xaa, 0x4b, 0x1e, 0x5e, 0x4a,
		},
	}
	if !h.CheckProofOfWork() {
		t.Fatal("genesis header must satisfy its own proof of work")
	}
}
