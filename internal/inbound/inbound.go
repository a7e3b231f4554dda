// Package inbound implements the node's inbound peer server, grounded
// on original_source's node/src/network/recv_peer_connection.rs: a
// TCP listener that accepts connections, runs the responder side of
// the handshake, then answers getheaders/getdata requests from its own
// chain state (spec.md §4.G).
package inbound

import (
	"bytes"
	"net"

	"github.com/MartinScazzola/Bitcoin/internal/chainstate"
	"github.com/MartinScazzola/Bitcoin/internal/peer"
	"github.com/MartinScazzola/Bitcoin/internal/wire"
	"github.com/sirupsen/logrus"
)

const maxHeadersPerMessage = 2000

// Server answers inbound connections against the node's own header
// index and block store.
type Server struct {
	Magic           wire.Magic
	Port            uint16
	StartHeight     int32
	ProtocolVersion int32
	Headers         *chainstate.HeaderIndex
	Chain           *chainstate.BlockChain
}

// ListenAndServe binds addr and services connections until Accept
// fails (for example because the listener is closed); each accepted
// connection is handled on its own goroutine.
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
	conn := peer.Wrap(s.Magic, nc)
	defer conn.Close()

	if _, err := peer.InboundHandshake(conn, s.Port, s.StartHeight, s.ProtocolVersion); err != nil {
		logrus.WithError(err).Debug("inbound: handshake failed")
		return
	}

	for {
		env, err := conn.Recv()
		if err != nil {
			return
		}
		if err := s.dispatch(conn, env); err != nil {
			logrus.WithError(err).Debug("inbound: dispatch error")
			return
		}
	}
}

func (s *Server) dispatch(conn *peer.Conn, env wire.Envelope) error {
	switch env.Command {
	case wire.CmdGetHeaders:
		return s.handleGetHeaders(conn, env)
	case wire.CmdGetData:
		return s.handleGetData(conn, env)
	default:
		return nil
	}
}

func (s *Server) handleGetHeaders(conn *peer.Conn, env wire.Envelope) error {
	req, err := peer.ParseGetHeadersMessage(bytes.NewReader(env.Payload))
	if err != nil || len(req.BlockLocators) == 0 {
		return err
	}
	headers := s.Headers.WalkForward(req.BlockLocators[0], maxHeadersPerMessage)
	return conn.Send(peer.HeadersMessage{Headers: headers})
}

func (s *Server) handleGetData(conn *peer.Conn, env wire.Envelope) error {
	req, err := peer.ParseGetDataMessage(bytes.NewReader(env.Payload))
	if err != nil {
		return err
	}
	for _, item := range req.Items {
		if item.Type != peer.InvBlock {
			continue
		}
		b, ok := s.Chain.Get(item.Hash)
		if !ok {
			if err := conn.Send(peer.NotFoundMessage{Items: []peer.InvVect{item}}); err != nil {
				return err
			}
			continue
		}
		if err := conn.Send(peer.BlockMessage{Block: b}); err != nil {
			return err
		}
	}
	return nil
}
