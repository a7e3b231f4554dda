package tx

import (
	"fmt"
	"io"

	"github.com/MartinScazzola/Bitcoin/internal/wire"
)

// Transaction is a legacy (non-segwit) transaction. Segwit/witness
// serialization is a spec.md Non-goal and is not implemented here;
// see SPEC_FULL.md §3.
type Transaction struct {
	Version  int32
	TxIn     []TxIn
	TxOut    []TxOut
	LockTime uint32
}

func ParseTransaction(r io.Reader) (Transaction, error) {
	var t Transaction
	var err error

	if t.Version, err = wire.ReadI32LE(r); err != nil {
		return Transaction{}, err
	}

	inCount, err := wire.ReadVarInt(r)
	if err != nil {
		return Transaction{}, err
	}
	t.TxIn = make([]TxIn, inCount)
	for i := range t.TxIn {
		in, err := ParseTxIn(r)
		if err != nil {
			return Transaction{}, fmt.Errorf("tx: input %d: %w", i, err)
		}
		t.TxIn[i] = in
	}

	outCount, err := wire.ReadVarInt(r)
	if err != nil {
		return Transaction{}, err
	}
	t.TxOut = make([]TxOut, outCount)
	for i := range t.TxOut {
		out, err := ParseTxOut(r)
		if err != nil {
			return Transaction{}, fmt.Errorf("tx: output %d: %w", i, err)
		}
		t.TxOut[i] = out
	}

	if t.LockTime, err = wire.ReadU32LE(r); err != nil {
		return Transaction{}, err
	}
	return t, nil
}

func (t Transaction) Serialize() []byte {
	buf := make([]byte, 0, 256)
	buf = append(buf, wire.PutI32LE(t.Version)...)
	buf = append(buf, wire.EncodeVarInt(uint64(len(t.TxIn)))...)
	for _, in := range t.TxIn {
		buf = append(buf, in.Serialize()...)
	}
	buf = append(buf, wire.EncodeVarInt(uint64(len(t.TxOut)))...)
	for _, out := range t.TxOut {
		buf = append(buf, out.Serialize()...)
	}
	buf = append(buf, wire.PutU32LE(t.LockTime)...)
	return buf
}

// Hash is the transaction identity: dsha256 of the legacy
// serialization, in internal (little-endian) byte order.
func (t Transaction) Hash() [32]byte {
	return wire.DoubleSHA256(t.Serialize())
}

// IsCoinbase reports whether this is a block's coinbase transaction:
// exactly one input, spending the null outpoint (spec.md §3).
func (t Transaction) IsCoinbase() bool {
	return len(t.TxIn) == 1 && t.TxIn[0].IsCoinbase()
}

// CoinbaseHeight extracts the block height a BIP34 coinbase script
// encodes as its first pushed data item, read little-endian. Returns
// false if the transaction is not a coinbase or its scriptSig does not
// start with a 1-to-8-byte push (older blocks predate BIP34 and carry
// none); whether the push is minimal is not checked.
func (t Transaction) CoinbaseHeight() (int64, bool) {
	if !t.IsCoinbase() {
		return 0, false
	}
	script := t.TxIn[0].SignatureScript
	if len(script) < 1 {
		return 0, false
	}
	pushLen := int(script[0])
	if pushLen < 1 || pushLen > 8 || len(script) < 1+pushLen {
		return 0, false
	}
	var height int64
	for i := 0; i < pushLen; i++ {
		height |= int64(script[1+i]) << (8 * uint(i))
	}
	return height, true
}
