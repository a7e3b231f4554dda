package tx

import (
	"io"

	"github.com/MartinScazzola/Bitcoin/internal/wire"
)

// OutPoint identifies the output an input spends.
type OutPoint struct {
	Hash  [32]byte
	Index uint32
}

// IsNull reports the coinbase sentinel outpoint: a zero hash and an
// index of all ones (grounded on the teacher's isCoinbase detection in
// txinputs.go ParseTxIn).
func (o OutPoint) IsNull() bool {
	return o.Hash == [32]byte{} && o.Index == 0xffffffff
}

// TxIn is one transaction input. SignatureScript is carried opaquely;
// this node never evaluates it (spec.md's Non-goals).
type TxIn struct {
	PreviousOutput  OutPoint
	SignatureScript []byte
	Sequence        uint32
}

// IsCoinbase reports whether this input is the single synthetic input
// of a coinbase transaction.
func (in TxIn) IsCoinbase() bool {
	return in.PreviousOutput.IsNull()
}

func ParseTxIn(r io.Reader) (TxIn, error) {
	hash, err := wire.ReadHash32(r)
	if err != nil {
		return TxIn{}, err
	}
	index, err := wire.ReadU32LE(r)
	if err != nil {
		return TxIn{}, err
	}
	sigScript, err := wire.ReadBytes(r)
	if err != nil {
		return TxIn{}, err
	}
	seq, err := wire.ReadU32LE(r)
	if err != nil {
		return TxIn{}, err
	}
	return TxIn{
		PreviousOutput:  OutPoint{Hash: hash, Index: index},
		SignatureScript: sigScript,
		Sequence:        seq,
	}, nil
}

func (in TxIn) Serialize() []byte {
	buf := make([]byte, 0, 32+4+len(in.SignatureScript)+9+4)
	buf = append(buf, in.PreviousOutput.Hash[:]...)
	buf = append(buf, wire.PutU32LE(in.PreviousOutput.Index)...)
	buf = append(buf, wire.WriteBytes(in.SignatureScript)...)
	buf = append(buf, wire.PutU32LE(in.Sequence)...)
	return buf
}
