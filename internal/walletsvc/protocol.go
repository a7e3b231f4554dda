package walletsvc

import (
	"bytes"
	"io"

	"github.com/MartinScazzola/Bitcoin/internal/tx"
	"github.com/MartinScazzola/Bitcoin/internal/wire"
)

// getTransactionsRequest is the get_txs payload: a wallet's
// pk_script/public_key pair plus the last_update watermark it already
// has, per spec.md §4.H.
type getTransactionsRequest struct {
	PkScript   []byte
	PublicKey  []byte
	LastUpdate uint32
}

func parseGetTransactionsRequest(r io.Reader) (getTransactionsRequest, error) {
	var req getTransactionsRequest
	var err error
	if req.PkScript, err = wire.ReadBytes(r); err != nil {
		return getTransactionsRequest{}, err
	}
	if req.PublicKey, err = wire.ReadBytes(r); err != nil {
		return getTransactionsRequest{}, err
	}
	if req.LastUpdate, err = wire.ReadU32LE(r); err != nil {
		return getTransactionsRequest{}, err
	}
	return req, nil
}

// getProofRequest is the get_proof payload.
type getProofRequest struct {
	BlockHeaderHash [32]byte
	TxID            [32]byte
}

func parseGetProofRequest(r io.Reader) (getProofRequest, error) {
	var req getProofRequest
	var err error
	if req.BlockHeaderHash, err = wire.ReadHash32(r); err != nil {
		return getProofRequest{}, err
	}
	if req.TxID, err = wire.ReadHash32(r); err != nil {
		return getProofRequest{}, err
	}
	return req, nil
}

// walletTx pairs a transaction with the display date the original
// stamps it with (a block's header time for confirmed entries, "now"
// for unconfirmed ones).
type walletTx struct {
	Tx   tx.Transaction
	Date string
}

func (w walletTx) serialize() []byte {
	buf := new(bytes.Buffer)
	raw := w.Tx.Serialize()
	buf.Write(wire.EncodeVarInt(uint64(len(raw))))
	buf.Write(raw)
	buf.Write(wire.WriteBytes([]byte(w.Date)))
	return buf.Bytes()
}

func serializeWalletTxs(txs []walletTx) []byte {
	buf := new(bytes.Buffer)
	buf.Write(wire.EncodeVarInt(uint64(len(txs))))
	for _, w := range txs {
		buf.Write(w.serialize())
	}
	return buf.Bytes()
}

// utxoEntry is one row of the get_txs response's utxo_set: the
// transaction id and index an unspent output belongs to, plus the
// output itself.
type utxoEntry struct {
	TxID  [32]byte
	Index uint32
	Out   tx.TxOut
}

func (u utxoEntry) serialize() []byte {
	buf := new(bytes.Buffer)
	buf.Write(u.TxID[:])
	buf.Write(wire.PutU32LE(u.Index))
	buf.Write(u.Out.Serialize())
	return buf.Bytes()
}

func serializeUTXOEntries(entries []utxoEntry) []byte {
	buf := new(bytes.Buffer)
	buf.Write(wire.EncodeVarInt(uint64(len(entries))))
	for _, e := range entries {
		buf.Write(e.serialize())
	}
	return buf.Bytes()
}

// transactionsResponse is the get_txs reply frame (spec.md §4.H).
type transactionsResponse struct {
	ConfirmedSend   []walletTx
	ConfirmedRecv   []walletTx
	UnconfirmedSend []walletTx
	UnconfirmedRecv []walletTx
	UTXOs           []utxoEntry
	NewLastUpdate   uint32
}

func (t transactionsResponse) Serialize() []byte {
	buf := new(bytes.Buffer)
	buf.Write(serializeWalletTxs(t.ConfirmedSend))
	buf.Write(serializeWalletTxs(t.ConfirmedRecv))
	buf.Write(serializeWalletTxs(t.UnconfirmedSend))
	buf.Write(serializeWalletTxs(t.UnconfirmedRecv))
	buf.Write(serializeUTXOEntries(t.UTXOs))
	buf.Write(wire.PutU32LE(t.NewLastUpdate))
	return buf.Bytes()
}

// progressResponse is the get_progress reply frame.
type progressResponse struct {
	ActBlocks   uint64
	TotalBlocks uint64
}

func (p progressResponse) Serialize() []byte {
	buf := new(bytes.Buffer)
	buf.Write(wire.PutU64LE(p.ActBlocks))
	buf.Write(wire.PutU64LE(p.TotalBlocks))
	return buf.Bytes()
}
