// Package broadcast runs the node's live round-robin message
// dispatcher, grounded on original_source's
// node/src/network/broadcasting.rs: one dedicated command handler per
// message type, cycling through every live peer connection in turn,
// gating header/block writes on whether they are already known
// (spec.md §9's resolved Open Question).
package broadcast

import (
	"bytes"
	"io"

	"github.com/MartinScazzola/Bitcoin/internal/block"
	"github.com/MartinScazzola/Bitcoin/internal/chainstate"
	"github.com/MartinScazzola/Bitcoin/internal/mempool"
	"github.com/MartinScazzola/Bitcoin/internal/peer"
	"github.com/MartinScazzola/Bitcoin/internal/utxo"
	"github.com/MartinScazzola/Bitcoin/internal/wire"
	"github.com/sirupsen/logrus"
)

// State bundles the shared chain state the dispatcher mutates. It is
// the live-path counterpart of blockdownload's chain mutator: unlike
// initial sync, there is no dedicated serializing goroutine here, so
// every handler must respect the canonical lock order itself (spec.md
// §5: blockchain -> utxo -> mempool -> headers -> peer-socket).
//
// HeadersBlob and BlocksBlob are the append-only files the live path
// writes newly-accepted headers and blocks to (spec.md §6); both are
// optional (nil is fine) so tests can exercise dispatch without a
// filesystem.
type State struct {
	Chain   *chainstate.BlockChain
	Headers *chainstate.HeaderIndex
	UTXO    *utxo.Set
	Mempool *mempool.Mempool

	HeadersBlob io.Writer
	BlocksBlob  io.Writer
}

// Dispatch services one arrived envelope on conn, routing it to the
// matching command handler. Unknown commands are silently drained.
func Dispatch(conn *peer.Conn, env wire.Envelope, st *State) error {
	switch env.Command {
	case wire.CmdPing:
		return handlePing(conn, env)
	case wire.CmdHeaders:
		return handleHeaders(conn, env, st)
	case wire.CmdInv:
		return handleInv(conn, env)
	case wire.CmdTx:
		return handleTx(env, st)
	case wire.CmdBlock:
		return handleBlock(env, st)
	default:
		return nil
	}
}

func handlePing(conn *peer.Conn, env wire.Envelope) error {
	ping, err := peer.ParsePingMessage(bytes.NewReader(env.Payload))
	if err != nil {
		return err
	}
	return conn.Send(peer.PongMessage{Nonce: ping.Nonce})
}

// handleHeaders mirrors manage_headers_command: a peer announcing a
// new tip by pushing a headers message prompts this node to request
// the full block for it, but only once it has already validated the
// header's own proof of work.
func handleHeaders(conn *peer.Conn, env wire.Envelope, st *State) error {
	msg, err := peer.ParseHeadersMessage(bytes.NewReader(env.Payload))
	if err != nil || len(msg.Headers) == 0 {
		return err
	}
	h := msg.Headers[len(msg.Headers)-1]
	if !h.CheckProofOfWork() {
		return nil
	}
	return conn.Send(peer.GetDataMessage{Items: []peer.InvVect{{Type: peer.InvBlock, Hash: h.Hash()}}})
}

func handleInv(conn *peer.Conn, env wire.Envelope) error {
	msg, err := peer.ParseInvMessage(bytes.NewReader(env.Payload))
	if err != nil || len(msg.Items) == 0 {
		return err
	}
	last := msg.Items[len(msg.Items)-1]
	return conn.Send(peer.GetDataMessage{Items: []peer.InvVect{last}})
}

func handleTx(env wire.Envelope, st *State) error {
	msg, err := peer.ParseTxMessage(bytes.NewReader(env.Payload))
	if err != nil {
		return err
	}
	st.Mempool.Add(msg.Tx)
	return nil
}

// handleBlock mirrors manage_block_command exactly: validate PoW and
// the merkle proof of inclusion, update UTxO and mempool, then append
// to the header index and block store only if each is not already
// known (the live path is append-only; the blob-wide rewrite only
// happens once, at the end of initial sync).
func handleBlock(env wire.Envelope, st *State) error {
	b, err := block.ParseBlock(bytes.NewReader(env.Payload))
	if err != nil {
		return err
	}
	if !b.Header.CheckProofOfWork() || !b.ValidateMerkleRoot() {
		logrus.Warn("broadcast: rejecting block that failed validation")
		return nil
	}

	st.UTXO.Update(b)
	confirmed := make([][32]byte, len(b.Txs))
	for i, t := range b.Txs {
		confirmed[i] = t.Hash()
	}
	st.Mempool.RemoveConfirmed(confirmed)

	id := b.Header.Hash()
	if !st.Headers.Contains(id) {
		if st.HeadersBlob != nil {
			if _, err := st.HeadersBlob.Write(b.Header.Serialize()); err != nil {
				logrus.WithError(err).Warn("broadcast: failed to persist header")
			}
		}
		st.Headers.Append(b.Header)
	}
	if !st.Chain.Contains(id) {
		if st.BlocksBlob != nil {
			if _, err := st.BlocksBlob.Write(b.Serialize()); err != nil {
				logrus.WithError(err).Warn("broadcast: failed to persist block")
			}
		}
		st.Chain.Add(b)
	}
	return nil
}
