// Package utxo maintains the set of unspent transaction outputs,
// grounded on original_source/node/src/block_mod/utxo.rs's
// UnspentTx (a two-level txid -> index -> TxOut map), carried into Go
// with the teacher's mempool.go locking idiom (sync.Mutex, package-level
// New constructor).
package utxo

import (
	"sync"

	"github.com/MartinScazzola/Bitcoin/internal/block"
	"github.com/MartinScazzola/Bitcoin/internal/tx"
)

// Set is the node's view of every unspent output. The outer key is a
// transaction id; the inner key is the output index within that
// transaction. An inner map is deleted the moment it empties, matching
// the original's remove_tx_out behavior.
type Set struct {
	mu  sync.Mutex
	set map[[32]byte]map[uint32]tx.TxOut
}

func New() *Set {
	return &Set{set: make(map[[32]byte]map[uint32]tx.TxOut)}
}

// Update applies every transaction in a newly-accepted block: inputs
// remove the outputs they spend, then the transaction's own outputs
// are inserted (spec.md §4's chain-mutator update step).
func (s *Set) Update(b block.Block) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range b.Txs {
		s.updateTransaction(t)
	}
}

// UpdateTransaction applies a single transaction under the set's lock,
// with the same spend-then-insert rule Update applies to each
// transaction of a block.
func (s *Set) UpdateTransaction(t tx.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateTransaction(t)
}

func (s *Set) updateTransaction(t tx.Transaction) {
	for _, in := range t.TxIn {
		if in.IsCoinbase() {
			continue
		}
		s.removeTxOut(in.PreviousOutput)
	}

	id := t.Hash()
	outputs := make(map[uint32]tx.TxOut, len(t.TxOut))
	for i, out := range t.TxOut {
		outputs[uint32(i)] = out
	}
	s.set[id] = outputs
}

func (s *Set) removeTxOut(outpoint tx.OutPoint) {
	outputs, ok := s.set[outpoint.Hash]
	if !ok {
		return
	}
	delete(outputs, outpoint.Index)
	if len(outputs) == 0 {
		delete(s.set, outpoint.Hash)
	}
}

// Contains reports whether an outpoint is still unspent.
func (s *Set) Contains(outpoint tx.OutPoint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	outputs, ok := s.set[outpoint.Hash]
	if !ok {
		return false
	}
	_, ok = outputs[outpoint.Index]
	return ok
}

// Get returns the output an outpoint refers to, if unspent.
func (s *Set) Get(outpoint tx.OutPoint) (tx.TxOut, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	outputs, ok := s.set[outpoint.Hash]
	if !ok {
		return tx.TxOut{}, false
	}
	out, ok := outputs[outpoint.Index]
	return out, ok
}

// Count returns the total number of unspent outputs tracked.
func (s *Set) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, outputs := range s.set {
		total += len(outputs)
	}
	return total
}

// OutputsFor returns every unspent output belonging to a transaction
// id, used by the wallet service's get_txs handler (spec.md §4.H).
func (s *Set) OutputsFor(txid [32]byte) map[uint32]tx.TxOut {
	s.mu.Lock()
	defer s.mu.Unlock()
	outputs, ok := s.set[txid]
	if !ok {
		return nil
	}
	copied := make(map[uint32]tx.TxOut, len(outputs))
	for k, v := range outputs {
		copied[k] = v
	}
	return copied
}
