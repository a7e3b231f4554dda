package block

import (
	"fmt"
	"io"

	"github.com/MartinScazzola/Bitcoin/internal/merkle"
	"github.com/MartinScazzola/Bitcoin/internal/tx"
	"github.com/MartinScazzola/Bitcoin/internal/wire"
)

// Block is a full block: its header plus the transaction list,
// grounded on smythg4-go-bitcoin's internal/block/block.go
// FullBlock/ParseFullBlock, with witness/segwit parsing dropped
// (spec.md Non-goals).
type Block struct {
	Header Header
	Txs    []tx.Transaction
}

func ParseBlock(r io.Reader) (Block, error) {
	header, err := ParseHeader(r)
	if err != nil {
		return Block{}, fmt.Errorf("block: header: %w", err)
	}

	txCount, err := wire.ReadVarInt(r)
	if err != nil {
		return Block{}, fmt.Errorf("block: tx count: %w", err)
	}

	txs := make([]tx.Transaction, txCount)
	for i := range txs {
		t, err := tx.ParseTransaction(r)
		if err != nil {
			return Block{}, fmt.Errorf("block: tx %d: %w", i, err)
		}
		txs[i] = t
	}

	return Block{Header: header, Txs: txs}, nil
}

func (b Block) Serialize() []byte {
	buf := make([]byte, 0, 80+len(b.Txs)*256)
	buf = append(buf, b.Header.Serialize()...)
	buf = append(buf, wire.EncodeVarInt(uint64(len(b.Txs)))...)
	for _, t := range b.Txs {
		buf = append(buf, t.Serialize()...)
	}
	return buf
}

// ValidateMerkleRoot recomputes the transaction Merkle root from the
// block's own transaction list and compares it against the header's
// MerkleRoot field (spec.md §4.C's per-block validation step).
func (b Block) ValidateMerkleRoot() bool {
	if len(b.Txs) == 0 {
		return false
	}
	leaves := make([][32]byte, len(b.Txs))
	for i, t := range b.Txs {
		leaves[i] = t.Hash()
	}
	return merkle.Root(leaves) == b.Header.MerkleRoot
}

// CoinbaseValue sums the coinbase transaction's outputs, the reward
// plus collected fees for this block.
func (b Block) CoinbaseValue() (int64, bool) {
	if len(b.Txs) == 0 || !b.Txs[0].IsCoinbase() {
		return 0, false
	}
	var total int64
	for _, out := range b.Txs[0].TxOut {
		total += out.Value
	}
	return total, true
}
