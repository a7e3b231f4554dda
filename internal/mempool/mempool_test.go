package mempool

import (
	"testing"

	"github.com/MartinScazzola/Bitcoin/internal/tx"
)

func sampleTx(sequence uint32) tx.Transaction {
	return tx.Transaction{
		Version: 1,
		TxIn:    []tx.TxIn{{Sequence: sequence}},
		TxOut:   []tx.TxOut{{Value: 100}},
	}
}

func TestAddGetRemove(t *testing.T) {
	m := New()
	txn := sampleTx(1)
	id := txn.Hash()

	m.Add(txn)
	if _, ok := m.Get(id); !ok {
		t.Fatal("expected transaction to be present after Add")
	}
	if m.Len() != 1 {
		t.Fatalf("want len 1 got %d", m.Len())
	}

	m.Remove(id)
	if _, ok := m.Get(id); ok {
		t.Fatal("expected transaction to be gone after Remove")
	}
}

func TestRemoveConfirmed(t *testing.T) {
	m := New()
	a, b := sampleTx(1), sampleTx(2)
	m.Add(a)
	m.Add(b)

	m.RemoveConfirmed([][32]byte{a.Hash()})

	if _, ok := m.Get(a.Hash()); ok {
		t.Fatal("confirmed transaction should have been evicted")
	}
	if _, ok := m.Get(b.Hash()); !ok {
		t.Fatal("unconfirmed transaction should remain")
	}
}
