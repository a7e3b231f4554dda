// Package walletsvc implements the node's private wallet control
// channel (spec.md §4.H), grounded on original_source's
// node/src/wallet_utils family: wallet_connect.rs (the accept loop),
// update_wallet.rs (the 12-byte command dispatch loop), tx_filter.rs
// (the send/recv classification and UTxO scan rules) and progress.rs
// (the sync-progress reply).
package walletsvc

import (
	"bytes"
	"io"
	"net"
	"sync"
	"time"

	"github.com/MartinScazzola/Bitcoin/internal/chainstate"
	"github.com/MartinScazzola/Bitcoin/internal/mempool"
	"github.com/MartinScazzola/Bitcoin/internal/merkle"
	"github.com/MartinScazzola/Bitcoin/internal/peer"
	"github.com/MartinScazzola/Bitcoin/internal/tx"
	"github.com/MartinScazzola/Bitcoin/internal/utxo"
	"github.com/MartinScazzola/Bitcoin/internal/wire"
	"github.com/sirupsen/logrus"
)

const (
	cmdGetTxs      = "get_txs"
	cmdGetProof    = "get_proof"
	cmdBroadcastTx = "broadcast_tx"
	cmdGetProgress = "get_progress"
	cmdExit        = "exit"

	cmdTransactions = "transactions"
	cmdProgress     = "progress"

	dateFormat = "2006-01-02 15:04:05"

	publicKeyLen = 33
)

// Server answers wallet sessions against the node's own chain state.
// Peers is the set of live outbound peer connections broadcast_tx
// fans a new transaction out to.
type Server struct {
	Chain   *chainstate.BlockChain
	Headers *chainstate.HeaderIndex
	UTXO    *utxo.Set
	Mempool *mempool.Mempool
	Peers   *PeerSet
}

// PeerSet is a mutex-guarded registry of live outbound peer
// connections, the Go counterpart of the original's
// Arc<Mutex<Vec<TcpStream>>> shared_streams.
type PeerSet struct {
	mu    sync.Mutex
	conns []*peer.Conn
}

// ListenAndServe binds addr and services wallet connections until the
// listener is closed; each accepted session runs on its own goroutine.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer ln.Close()

	for {
		nc, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.handle(nc)
	}
}

func (s *Server) handle(nc net.Conn) {
	defer nc.Close()
	log := logrus.WithField("wallet", nc.RemoteAddr().String())

	for {
		cmd, err := readCommand(nc)
		if err != nil {
			if err != io.EOF {
				log.WithError(err).Debug("walletsvc: read command")
			}
			return
		}
		if cmd == cmdExit {
			return
		}
		if err := s.dispatch(nc, cmd); err != nil {
			log.WithError(err).Warn("walletsvc: dispatch error")
			return
		}
	}
}

func (s *Server) dispatch(rw io.ReadWriter, cmd string) error {
	switch cmd {
	case cmdGetTxs:
		return s.handleGetTxs(rw)
	case cmdGetProof:
		return s.handleGetProof(rw)
	case cmdBroadcastTx:
		return s.handleBroadcastTx(rw)
	case cmdGetProgress:
		return s.handleGetProgress(rw)
	default:
		return nil
	}
}

// readCommand reads the fixed 12-byte zero-padded ASCII command name
// a wallet session opens every request with (spec.md §4.H).
func readCommand(r io.Reader) (string, error) {
	var buf [12]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return "", err
	}
	end := len(buf)
	for end > 0 && buf[end-1] == 0 {
		end--
	}
	return string(buf[:end]), nil
}

func writeFrame(w io.Writer, command string, body []byte) error {
	var tag [12]byte
	copy(tag[:], command)
	if _, err := w.Write(tag[:]); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

func (s *Server) handleGetTxs(rw io.ReadWriter) error {
	req, err := parseGetTransactionsRequest(rw)
	if err != nil {
		return err
	}
	resp := s.getWalletTxns(req)
	return writeFrame(rw, cmdTransactions, resp.Serialize())
}

func (s *Server) handleGetProof(rw io.ReadWriter) error {
	req, err := parseGetProofRequest(rw)
	if err != nil {
		return err
	}

	b, ok := s.Chain.Get(req.BlockHeaderHash)
	if !ok {
		return writeFrame(rw, wire.CmdNotFound, nil)
	}

	idx := -1
	leaves := make([][32]byte, len(b.Txs))
	for i, t := range b.Txs {
		h := t.Hash()
		leaves[i] = h
		if h == req.TxID {
			idx = i
		}
	}
	if idx < 0 {
		return writeFrame(rw, wire.CmdNotFound, nil)
	}

	flags, hashes := merkle.BuildProof(leaves, idx)
	proof := merkle.PartialProof{
		Version:         b.Header.Version,
		PrevBlock:       b.Header.PrevBlock,
		MerkleRoot:      b.Header.MerkleRoot,
		Time:            b.Header.Time,
		Bits:            b.Header.Bits,
		Nonce:           b.Header.Nonce,
		NumTransactions: uint32(len(b.Txs)),
		Hashes:          hashes,
		Flags:           flags,
	}
	return writeFrame(rw, wire.CmdMerkleBlock, proof.Serialize())
}

func (s *Server) handleBroadcastTx(rw io.ReadWriter) error {
	txn, err := tx.ParseTransaction(rw)
	if err != nil {
		return err
	}
	msg := peer.TxMessage{Tx: txn}
	for _, conn := range s.Peers.All() {
		if err := conn.Send(msg); err != nil {
			logrus.WithError(err).Warn("walletsvc: broadcast_tx failed on one peer")
		}
	}
	return nil
}

func (s *Server) handleGetProgress(rw io.ReadWriter) error {
	actBlocks := uint64(s.Chain.Count())
	totalBlocks := actBlocks
	if s.Headers != nil {
		totalBlocks = uint64(s.Headers.Height()) + 1
	}
	resp := progressResponse{ActBlocks: actBlocks, TotalBlocks: totalBlocks}
	return writeFrame(rw, cmdProgress, resp.Serialize())
}

// NewPeerSet builds an empty registry.
func NewPeerSet() *PeerSet {
	return &PeerSet{}
}

func (p *PeerSet) Add(c *peer.Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conns = append(p.conns, c)
}

func (p *PeerSet) Remove(c *peer.Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, conn := range p.conns {
		if conn == c {
			p.conns = append(p.conns[:i], p.conns[i+1:]...)
			return
		}
	}
}

func (p *PeerSet) All() []*peer.Conn {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*peer.Conn, len(p.conns))
	copy(out, p.conns)
	return out
}

// formatNow renders the current time in the wallet's display format,
// used only to stamp unconfirmed transactions the way confirmed ones
// are stamped with their block's header time.
func formatNow() string {
	return time.Now().Format(dateFormat)
}

func isSend(t tx.Transaction, publicKey []byte) bool {
	if len(publicKey) != publicKeyLen || len(t.TxIn) == 0 {
		return false
	}
	sig := t.TxIn[0].SignatureScript
	if len(sig) < publicKeyLen {
		return false
	}
	return bytes.Equal(sig[len(sig)-publicKeyLen:], publicKey)
}

func isRecv(t tx.Transaction, pkScript []byte) bool {
	for _, out := range t.TxOut {
		if bytes.Equal(out.PkScript, pkScript) {
			return true
		}
	}
	return false
}
