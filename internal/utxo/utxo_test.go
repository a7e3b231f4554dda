package utxo

import (
	"testing"

	"github.com/MartinScazzola/Bitcoin/internal/block"
	"github.com/MartinScazzola/Bitcoin/internal/tx"
)

func TestUpdateInsertsOutputs(t *testing.T) {
	s := New()
	coinbase := tx.Transaction{
		TxIn:  []tx.TxIn{{PreviousOutput: tx.OutPoint{Index: 0xffffffff}, Sequence: 0xffffffff}},
		TxOut: []tx.TxOut{{Value: 5000000000}},
	}
	b := block.Block{Txs: []tx.Transaction{coinbase}}
	s.Update(b)

	outpoint := tx.OutPoint{Hash: coinbase.Hash(), Index: 0}
	if !s.Contains(outpoint) {
		t.Fatal("expected coinbase output to be unspent after update")
	}
	if s.Count() != 1 {
		t.Fatalf("want count 1 got %d", s.Count())
	}
}

func TestUpdateRemovesSpentOutputAndPurgesEmptyEntry(t *testing.T) {
	s := New()
	funding := tx.Transaction{
		TxIn:  []tx.TxIn{{PreviousOutput: tx.OutPoint{Index: 0xffffffff}, Sequence: 0xffffffff}},
		TxOut: []tx.TxOut{{Value: 1000}},
	}
	s.Update(block.Block{Txs: []tx.Transaction{funding}})
	fundingOutpoint := tx.OutPoint{Hash: funding.Hash(), Index: 0}

	spend := tx.Transaction{
		TxIn:  []tx.TxIn{{PreviousOutput: fundingOutpoint, Sequence: 0xffffffff}},
		TxOut: []tx.TxOut{{Value: 900}},
	}
	s.Update(block.Block{Txs: []tx.Transaction{spend}})

	if s.Contains(fundingOutpoint) {
		t.Fatal("spent output should no longer be unspent")
	}
	if outputs := s.OutputsFor(funding.Hash()); outputs != nil {
		t.Fatal("emptied transaction entry should have been purged")
	}
	spendOutpoint := tx.OutPoint{Hash: spend.Hash(), Index: 0}
	if !s.Contains(spendOutpoint) {
		t.Fatal("spend's own output should be unspent")
	}
}
