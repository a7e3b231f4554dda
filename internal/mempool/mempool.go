// Package mempool tracks unconfirmed transactions the node has seen,
// grounded on smythg4-go-bitcoin's internal/mempool/mempool.go with
// BIP152 compact-block shortid matching dropped (spec.md Non-goals:
// no compact-block relay).
package mempool

import (
	"sync"

	"github.com/MartinScazzola/Bitcoin/internal/tx"
)

// Mempool is a txid-to-transaction map guarded by a single mutex, the
// third position in the canonical lock order of spec.md §5
// (blockchain -> utxo -> mempool -> headers -> peer-socket).
type Mempool struct {
	mu  sync.Mutex
	txs map[[32]byte]tx.Transaction
}

func New() *Mempool {
	return &Mempool{txs: make(map[[32]byte]tx.Transaction)}
}

// Add records a transaction the node has not yet seen confirmed.
func (m *Mempool) Add(t tx.Transaction) {
	id := t.Hash()
	m.mu.Lock()
	m.txs[id] = t
	m.mu.Unlock()
}

func (m *Mempool) Get(txid [32]byte) (tx.Transaction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txs[txid]
	return t, ok
}

func (m *Mempool) Remove(txid [32]byte) {
	m.mu.Lock()
	delete(m.txs, txid)
	m.mu.Unlock()
}

// RemoveConfirmed purges every transaction id a newly-accepted block
// confirmed (spec.md §4's mempool-eviction-on-confirmation rule).
func (m *Mempool) RemoveConfirmed(txids [][32]byte) {
	m.mu.Lock()
	for _, id := range txids {
		delete(m.txs, id)
	}
	m.mu.Unlock()
}

func (m *Mempool) All() []tx.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]tx.Transaction, 0, len(m.txs))
	for _, t := range m.txs {
		result = append(result, t)
	}
	return result
}

func (m *Mempool) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.txs)
}
