package broadcast

import (
	"net"
	"testing"

	"github.com/MartinScazzola/Bitcoin/internal/block"
	"github.com/MartinScazzola/Bitcoin/internal/chainstate"
	"github.com/MartinScazzola/Bitcoin/internal/mempool"
	"github.com/MartinScazzola/Bitcoin/internal/peer"
	"github.com/MartinScazzola/Bitcoin/internal/tx"
	"github.com/MartinScazzola/Bitcoin/internal/utxo"
	"github.com/MartinScazzola/Bitcoin/internal/wire"
)

func newTestState() *State {
	genesis := block.Header{Bits: 0x20ffffff}
	return &State{
		Chain:   chainstate.NewBlockChain(),
		Headers: chainstate.NewHeaderIndex(genesis),
		UTXO:    utxo.New(),
		Mempool: mempool.New(),
	}
}

func TestHandleTxAddsToMempool(t *testing.T) {
	st := newTestState()
	txn := tx.Transaction{TxIn: []tx.TxIn{{Sequence: 1}}, TxOut: []tx.TxOut{{Value: 10}}}
	raw := txn.Serialize()

	if err := handleTx(wire.Envelope{Command: wire.CmdTx, Payload: raw}, st); err != nil {
		t.Fatalf("handleTx: %v", err)
	}
	if _, ok := st.Mempool.Get(txn.Hash()); !ok {
		t.Fatal("expected transaction to land in the mempool")
	}
}

func TestHandleBlockRejectsBadMerkleRoot(t *testing.T) {
	st := newTestState()
	b := block.Block{
		Header: block.Header{Bits: 0x20ffffff, MerkleRoot: [32]byte{0xff}},
		Txs:    []tx.Transaction{{TxIn: []tx.TxIn{{Sequence: 1}}, TxOut: []tx.TxOut{{Value: 1}}}},
	}
	raw := b.Serialize()

	if err := handleBlock(wire.Envelope{Command: wire.CmdBlock, Payload: raw}, st); err != nil {
		t.Fatalf("handleBlock: %v", err)
	}
	if st.Chain.Count() != 0 {
		t.Fatal("a block with a bad merkle root must not be accepted")
	}
}

func TestHandleBlockAcceptsValidBlockOnce(t *testing.T) {
	st := newTestState()
	coinbase := tx.Transaction{TxIn: []tx.TxIn{{Sequence: 0xffffffff}}, TxOut: []tx.TxOut{{Value: 5000000000}}}
	b := block.Block{
		Header: block.Header{Bits: 0x20ffffff, MerkleRoot: coinbase.Hash()},
		Txs:    []tx.Transaction{coinbase},
	}
	raw := b.Serialize()
	env := wire.Envelope{Command: wire.CmdBlock, Payload: raw}

	if err := handleBlock(env, st); err != nil {
		t.Fatalf("handleBlock: %v", err)
	}
	if st.Chain.Count() != 1 {
		t.Fatalf("want 1 block accepted got %d", st.Chain.Count())
	}

	// A second delivery of the same block must not duplicate it.
	if err := handleBlock(env, st); err != nil {
		t.Fatalf("handleBlock (dup): %v", err)
	}
	if st.Chain.Count() != 1 {
		t.Fatalf("duplicate block must not be re-added, got count %d", st.Chain.Count())
	}
}

func TestDispatchPingRepliesPong(t *testing.T) {
	st := newTestState()
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	conn := peer.Wrap(wire.TestnetMagic, client)
	ping := peer.PingMessage{Nonce: 7}
	payload, _ := ping.Serialize()

	done := make(chan error, 1)
	go func() { done <- Dispatch(conn, wire.Envelope{Command: wire.CmdPing, Payload: payload}, st) }()

	serverConn := peer.Wrap(wire.TestnetMagic, server)
	env, err := serverConn.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if env.Command != wire.CmdPong {
		t.Fatalf("want pong got %q", env.Command)
	}
}
