package walletsvc

import (
	"bytes"
	"io"
	"net"
	"testing"

	"github.com/MartinScazzola/Bitcoin/internal/block"
	"github.com/MartinScazzola/Bitcoin/internal/chainstate"
	"github.com/MartinScazzola/Bitcoin/internal/mempool"
	"github.com/MartinScazzola/Bitcoin/internal/merkle"
	"github.com/MartinScazzola/Bitcoin/internal/tx"
	"github.com/MartinScazzola/Bitcoin/internal/utxo"
	"github.com/MartinScazzola/Bitcoin/internal/wire"
)

func publicKey() []byte {
	pk := make([]byte, publicKeyLen)
	for i := range pk {
		pk[i] = byte(i + 1)
	}
	return pk
}

func newTestServer() (*Server, tx.Transaction, [32]byte) {
	pk := publicKey()
	pkScript := []byte{0xaa, 0xbb}

	send := tx.Transaction{
		TxIn:  []tx.TxIn{{SignatureScript: append([]byte{0x30, 0x44}, pk...)}},
		TxOut: []tx.TxOut{{Value: 1, PkScript: []byte{0x01}}},
	}
	recv := tx.Transaction{
		TxIn:  []tx.TxIn{{Sequence: 1}},
		TxOut: []tx.TxOut{{Value: 2, PkScript: pkScript}},
	}

	genesis := block.Header{Bits: 0x20ffffff}
	chain := chainstate.NewBlockChain()
	headers := chainstate.NewHeaderIndex(genesis)
	root := func(txs []tx.Transaction) [32]byte {
		leaves := make([][32]byte, len(txs))
		for i, t := range txs {
			leaves[i] = t.Hash()
		}
		if len(leaves) == 1 {
			return leaves[0]
		}
		return [32]byte{}
	}
	b := block.Block{
		Header: block.Header{Bits: 0x20ffffff, Time: 1000, MerkleRoot: root([]tx.Transaction{send})},
		Txs:    []tx.Transaction{send},
	}
	chain.Add(b)

	utxoSet := utxo.New()
	utxoSet.Update(b)

	mp := mempool.New()
	mp.Add(recv)

	s := &Server{
		Chain:   chain,
		Headers: headers,
		UTXO:    utxoSet,
		Mempool: mp,
		Peers:   NewPeerSet(),
	}
	return s, send, b.Header.Hash()
}

func TestGetWalletTxnsClassifiesSendAndRecv(t *testing.T) {
	s, _, _ := newTestServer()
	pk := publicKey()
	pkScript := []byte{0xaa, 0xbb}

	resp := s.getWalletTxns(getTransactionsRequest{PkScript: pkScript, PublicKey: pk, LastUpdate: 0})

	if len(resp.ConfirmedSend) != 1 {
		t.Fatalf("want 1 confirmed send got %d", len(resp.ConfirmedSend))
	}
	if len(resp.UnconfirmedRecv) != 1 {
		t.Fatalf("want 1 unconfirmed recv got %d", len(resp.UnconfirmedRecv))
	}
}

func TestHandleGetProgress(t *testing.T) {
	s, _, _ := newTestServer()
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	done := make(chan error, 1)
	go func() { done <- s.handleGetProgress(server) }()

	var tag [12]byte
	if _, err := io.ReadFull(client, tag[:]); err != nil {
		t.Fatalf("read tag: %v", err)
	}
	if string(bytes.TrimRight(tag[:], "\x00")) != cmdProgress {
		t.Fatalf("want progress tag got %q", tag)
	}
	actBlocks, err := wire.ReadU64LE(client)
	if err != nil {
		t.Fatalf("read act_blocks: %v", err)
	}
	if _, err := wire.ReadU64LE(client); err != nil {
		t.Fatalf("read total_blocks: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("handleGetProgress: %v", err)
	}
	if actBlocks != 1 {
		t.Fatalf("want 1 act block got %d", actBlocks)
	}
}

// pipeReadWriter pairs a request reader with a response writer so
// handleGetProof's single io.ReadWriter parameter can be driven in a
// test without a real socket.
type pipeReadWriter struct {
	io.Reader
	io.Writer
}

func TestHandleGetProofNotFound(t *testing.T) {
	s, _, _ := newTestServer()
	req := getProofRequest{BlockHeaderHash: [32]byte{0xff}, TxID: [32]byte{0xee}}
	reqBuf := new(bytes.Buffer)
	reqBuf.Write(req.BlockHeaderHash[:])
	reqBuf.Write(req.TxID[:])

	respBuf := new(bytes.Buffer)
	rw := pipeReadWriter{Reader: reqBuf, Writer: respBuf}

	if err := s.handleGetProof(rw); err != nil {
		t.Fatalf("handleGetProof: %v", err)
	}

	var tag [12]byte
	if _, err := io.ReadFull(respBuf, tag[:]); err != nil {
		t.Fatalf("read tag: %v", err)
	}
	if string(bytes.TrimRight(tag[:], "\x00")) != "notfound" {
		t.Fatalf("want notfound tag got %q", tag)
	}
}

func TestHandleGetProofFindsTx(t *testing.T) {
	s, send, blockID := newTestServer()
	req := getProofRequest{BlockHeaderHash: blockID, TxID: send.Hash()}
	reqBuf := new(bytes.Buffer)
	reqBuf.Write(req.BlockHeaderHash[:])
	reqBuf.Write(req.TxID[:])

	respBuf := new(bytes.Buffer)
	rw := pipeReadWriter{Reader: reqBuf, Writer: respBuf}

	if err := s.handleGetProof(rw); err != nil {
		t.Fatalf("handleGetProof: %v", err)
	}

	var tag [12]byte
	if _, err := io.ReadFull(respBuf, tag[:]); err != nil {
		t.Fatalf("read tag: %v", err)
	}
	if string(bytes.TrimRight(tag[:], "\x00")) != "merkleblock" {
		t.Fatalf("want merkleblock tag got %q", tag)
	}
	proof, err := merkle.ParsePartialProof(respBuf)
	if err != nil {
		t.Fatalf("ParsePartialProof: %v", err)
	}
	if !proof.Verify() {
		t.Fatal("expected proof to verify against the block's merkle root")
	}
}

func TestReadCommandTrimsPadding(t *testing.T) {
	raw := append([]byte("exit"), make([]byte, 8)...)
	cmd, err := readCommand(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("readCommand: %v", err)
	}
	if cmd != "exit" {
		t.Fatalf("want exit got %q", cmd)
	}
}
