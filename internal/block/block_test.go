package block

import (
	"bytes"
	"testing"

	"github.com/MartinScazzola/Bitcoin/internal/tx"
)

func sampleBlock() Block {
	coinbase := tx.Transaction{
		Version: 1,
		TxIn: []tx.TxIn{{
			PreviousOutput:  tx.OutPoint{Index: 0xffffffff},
			SignatureScript: []byte{0x01, 0x02},
			Sequence:        0xffffffff,
		}},
		TxOut: []tx.TxOut{{Value: 5000000000, PkScript: []byte{0x51}}},
	}
	root := coinbase.Hash()
	return Block{
		Header: Header{Version: 1, MerkleRoot: root, Bits: 0x1d00ffff},
		Txs:    []tx.Transaction{coinbase},
	}
}

func TestBlockRoundTrip(t *testing.T) {
	b := sampleBlock()
	raw := b.Serialize()

	got, err := ParseBlock(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("ParseBlock: %v", err)
	}
	if len(got.Txs) != 1 {
		t.Fatalf("want 1 tx got %d", len(got.Txs))
	}
	if !bytes.Equal(got.Serialize(), raw) {
		t.Fatal("re-serialization mismatch")
	}
}

func TestValidateMerkleRoot(t *testing.T) {
	b := sampleBlock()
	if !b.ValidateMerkleRoot() {
		t.Fatal("expected merkle root to validate against single coinbase tx")
	}
	b.Header.MerkleRoot[0] ^= 0xff
	if b.ValidateMerkleRoot() {
		t.Fatal("expected corrupted merkle root to fail validation")
	}
}

func TestCoinbaseValue(t *testing.T) {
	b := sampleBlock()
	value, ok := b.CoinbaseValue()
	if !ok || value != 5000000000 {
		t.Fatalf("want 5000000000 got %d, ok=%v", value, ok)
	}
}
