package chainstate

import (
	"sync"

	"github.com/MartinScazzola/Bitcoin/internal/block"
)

// BlockChain is the set of fully downloaded and validated blocks,
// keyed by header hash, grounded on original_source's
// block_saver.rs::wait_new_blocks and block_download.rs::store_blocks_in_file.
type BlockChain struct {
	mu     sync.Mutex
	blocks map[[32]byte]block.Block
	tip    [32]byte
	count  int
}

func NewBlockChain() *BlockChain {
	return &BlockChain{blocks: make(map[[32]byte]block.Block)}
}

// Add records a validated block and advances the tip.
func (bc *BlockChain) Add(b block.Block) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	id := b.Header.Hash()
	bc.blocks[id] = b
	bc.tip = id
	bc.count++
}

func (bc *BlockChain) Get(id [32]byte) (block.Block, bool) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	b, ok := bc.blocks[id]
	return b, ok
}

func (bc *BlockChain) Contains(id [32]byte) bool {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	_, ok := bc.blocks[id]
	return ok
}

func (bc *BlockChain) Tip() [32]byte {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return bc.tip
}

func (bc *BlockChain) Count() int {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return bc.count
}

// OrderedFromGenesis walks the chain tip-to-genesis following each
// block's PrevBlock link and returns it genesis-first, the exact
// in-memory shape store_blocks_in_file wrote to disk once initial sync
// drained (spec.md §9's resolved Open Question).
func (bc *BlockChain) OrderedFromGenesis() []block.Block {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	ordered := make([]block.Block, 0, bc.count)
	cur := bc.tip
	for {
		b, ok := bc.blocks[cur]
		if !ok {
			break
		}
		ordered = append(ordered, b)
		if b.Header.PrevBlock == ([32]byte{}) {
			break
		}
		cur = b.Header.PrevBlock
	}

	for i, j := 0, len(ordered)-1; i < j; i, j = i+1, j-1 {
		ordered[i], ordered[j] = ordered[j], ordered[i]
	}
	return ordered
}
