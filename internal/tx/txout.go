// Package tx implements legacy Bitcoin transactions: inputs, outputs,
// and the whole-transaction codec. Scripts are carried opaquely
// ([]byte), never interpreted (spec.md's Non-goals: no script
// interpreter), grounded on smythg4-go-bitcoin's
// internal/transactions/txinputs.go with the script engine stripped
// out.
package tx

import (
	"io"

	"github.com/MartinScazzola/Bitcoin/internal/wire"
)

// TxOut is one transaction output. Value is signed per spec.md §3's
// "value (i64 LE)" wire description.
type TxOut struct {
	Value    int64
	PkScript []byte
}

func ParseTxOut(r io.Reader) (TxOut, error) {
	value, err := wire.ReadI64LE(r)
	if err != nil {
		return TxOut{}, err
	}
	pkScript, err := wire.ReadBytes(r)
	if err != nil {
		return TxOut{}, err
	}
	return TxOut{Value: value, PkScript: pkScript}, nil
}

func (o TxOut) Serialize() []byte {
	buf := make([]byte, 0, 8+len(o.PkScript)+9)
	buf = append(buf, wire.PutI64LE(o.Value)...)
	buf = append(buf, wire.WriteBytes(o.PkScript)...)
	return buf
}
