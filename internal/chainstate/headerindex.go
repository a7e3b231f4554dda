// Package chainstate holds the two in-memory chain structures the
// node maintains: the header index built during header sync, and the
// block store built during block download, grounded on
// original_source/node/src/network/headers_download.rs and
// block_download.rs, using smythg4-go-bitcoin's map+mutex idiom for
// the concurrency-safe collections (internal/mempool/mempool.go).
package chainstate

import (
	"sync"

	"github.com/MartinScazzola/Bitcoin/internal/block"
)

// HeaderIndex is the singly-linked header chain built during the
// header-sync phase (spec.md §4.A). Each header's Next field is
// mutated in place when its successor arrives, mirroring the Rust
// original's BlockHeader::set_next_block_header.
type HeaderIndex struct {
	mu      sync.Mutex
	headers map[[32]byte]*block.Header
	tip     [32]byte
	genesis [32]byte
	height  int
}

func NewHeaderIndex(genesis block.Header) *HeaderIndex {
	id := genesis.Hash()
	hi := &HeaderIndex{
		headers: make(map[[32]byte]*block.Header),
		genesis: id,
		tip:     id,
	}
	h := genesis
	hi.headers[id] = &h
	return hi
}

// Append links a new header onto the current tip. The caller is
// responsible for having already validated proof of work and that the
// header's PrevBlock equals the current tip's hash.
func (hi *HeaderIndex) Append(h block.Header) {
	hi.mu.Lock()
	defer hi.mu.Unlock()

	id := h.Hash()
	if prev, ok := hi.headers[h.PrevBlock]; ok {
		next := id
		prev.Next = &next
	}
	stored := h
	hi.headers[id] = &stored
	hi.tip = id
	hi.height++
}

func (hi *HeaderIndex) Tip() [32]byte {
	hi.mu.Lock()
	defer hi.mu.Unlock()
	return hi.tip
}

func (hi *HeaderIndex) Height() int {
	hi.mu.Lock()
	defer hi.mu.Unlock()
	return hi.height
}

func (hi *HeaderIndex) Contains(id [32]byte) bool {
	hi.mu.Lock()
	defer hi.mu.Unlock()
	_, ok := hi.headers[id]
	return ok
}

func (hi *HeaderIndex) Get(id [32]byte) (block.Header, bool) {
	hi.mu.Lock()
	defer hi.mu.Unlock()
	h, ok := hi.headers[id]
	if !ok {
		return block.Header{}, false
	}
	return *h, true
}

// WalkForward returns up to max headers starting immediately after
// locator, following Next links. Used to answer inbound getheaders
// requests (spec.md §4.G), capped at 2000 per the protocol limit.
func (hi *HeaderIndex) WalkForward(locator [32]byte, max int) []block.Header {
	hi.mu.Lock()
	defer hi.mu.Unlock()

	start, ok := hi.headers[locator]
	if !ok {
		return nil
	}
	result := make([]block.Header, 0, max)
	cur := start
	for len(result) < max && cur.Next != nil {
		next, ok := hi.headers[*cur.Next]
		if !ok {
			break
		}
		result = append(result, *next)
		cur = next
	}
	return result
}
