package chainstate

import (
	"testing"

	"github.com/MartinScazzola/Bitcoin/internal/block"
)

func TestHeaderIndexAppendLinksNext(t *testing.T) {
	genesis := block.Header{Version: 1, Bits: 0x1d00ffff}
	hi := NewHeaderIndex(genesis)

	child := block.Header{Version: 1, PrevBlock: genesis.Hash(), Bits: 0x1d00ffff, Nonce: 1}
	hi.Append(child)

	if hi.Tip() != child.Hash() {
		t.Fatal("tip should advance to the appended header")
	}
	stored, ok := hi.Get(genesis.Hash())
	if !ok {
		t.Fatal("genesis should remain indexed")
	}
	if stored.Next == nil || *stored.Next != child.Hash() {
		t.Fatal("genesis.Next should link to the appended child")
	}
	if hi.Height() != 1 {
		t.Fatalf("want height 1 got %d", hi.Height())
	}
}

func TestWalkForward(t *testing.T) {
	genesis := block.Header{Bits: 0x1d00ffff}
	hi := NewHeaderIndex(genesis)
	prev := genesis
	for i := 0; i < 5; i++ {
		h := block.Header{PrevBlock: prev.Hash(), Bits: 0x1d00ffff, Nonce: uint32(i + 1)}
		hi.Append(h)
		prev = h
	}

	got := hi.WalkForward(genesis.Hash(), 2000)
	if len(got) != 5 {
		t.Fatalf("want 5 headers got %d", len(got))
	}
}

func TestBlockChainOrderedFromGenesis(t *testing.T) {
	bc := NewBlockChain()
	genesis := block.Block{Header: block.Header{Bits: 0x1d00ffff}}
	bc.Add(genesis)

	child := block.Block{Header: block.Header{PrevBlock: genesis.Header.Hash(), Bits: 0x1d00ffff, Nonce: 1}}
	bc.Add(child)

	ordered := bc.OrderedFromGenesis()
	if len(ordered) != 2 {
		t.Fatalf("want 2 blocks got %d", len(ordered))
	}
	if ordered[0].Header.Hash() != genesis.Header.Hash() {
		t.Fatal("expected genesis first")
	}
	if ordered[1].Header.Hash() != child.Header.Hash() {
		t.Fatal("expected child second")
	}
}
