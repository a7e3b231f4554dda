package peer

import (
	"bytes"
	"fmt"
	"net"

	"github.com/MartinScazzola/Bitcoin/internal/wire"
)

// Handshake holds what the version exchange told us about the peer
// (spec.md §4.B): its version message and advertised start height.
type Handshake struct {
	Version     VersionMessage
	StartHeight int32
}

// OutboundHandshake performs this node's side of connecting to a peer:
// send version, wait for their version, send verack, wait for theirs
// (original_source's recv_peer_connection.rs / the teacher's
// node.go dial path, generalized to blocking I/O on Conn).
// protocolVersion is both what this node advertises and the minimum
// it accepts from the remote side (spec.md §4.B step 3's
// version-compat gate).
func OutboundHandshake(c *Conn, localPort uint16, startHeight int32, protocolVersion int32) (Handshake, error) {
	host, _, err := net.SplitHostPort(c.RemoteAddr().String())
	if err != nil {
		return Handshake{}, fmt.Errorf("peer: handshake: %w", err)
	}
	remoteIP := net.ParseIP(host)

	ours := NewVersionMessage(remoteIP, 0, localPort, startHeight, protocolVersion)
	if err := c.Send(ours); err != nil {
		return Handshake{}, err
	}

	theirVersion, err := awaitVersion(c, protocolVersion)
	if err != nil {
		return Handshake{}, err
	}

	if err := c.Send(VerackMessage{}); err != nil {
		return Handshake{}, err
	}
	if err := awaitVerack(c); err != nil {
		return Handshake{}, err
	}

	return Handshake{Version: theirVersion, StartHeight: theirVersion.StartHeight}, nil
}

// InboundHandshake performs the responder's side for a peer that
// connected to this node's listener (spec.md §4.G): wait for their
// version, reply with ours, exchange verack.
func InboundHandshake(c *Conn, localPort uint16, startHeight int32, protocolVersion int32) (Handshake, error) {
	theirVersion, err := awaitVersion(c, protocolVersion)
	if err != nil {
		return Handshake{}, err
	}

	host, _, err := net.SplitHostPort(c.RemoteAddr().String())
	if err != nil {
		return Handshake{}, fmt.Errorf("peer: handshake: %w", err)
	}
	ours := NewVersionMessage(net.ParseIP(host), 0, localPort, startHeight, protocolVersion)
	if err := c.Send(ours); err != nil {
		return Handshake{}, err
	}
	if err := c.Send(VerackMessage{}); err != nil {
		return Handshake{}, err
	}
	if err := awaitVerack(c); err != nil {
		return Handshake{}, err
	}

	return Handshake{Version: theirVersion, StartHeight: theirVersion.StartHeight}, nil
}

// awaitVersion drains any traffic that isn't version (pings answered
// inline, everything else discarded) until the peer's version arrives,
// mirroring headersync.awaitHeaders' drain loop (spec.md §4.B steps 3
// & 5: "discarding any that are not version/verack"). The first
// version frame is gated against minVersion, producing
// ErrIncompatibleVersion per spec.md §7 when the peer is too old.
func awaitVersion(c *Conn, minVersion int32) (VersionMessage, error) {
	for {
		env, err := c.Recv()
		if err != nil {
			return VersionMessage{}, err
		}

		switch env.Command {
		case wire.CmdVersion:
			v, err := ParseVersionMessage(bytes.NewReader(env.Payload))
			if err != nil {
				return VersionMessage{}, err
			}
			if v.Version < minVersion {
				return VersionMessage{}, fmt.Errorf("peer: handshake: %w: peer advertised %d, minimum is %d", ErrIncompatibleVersion, v.Version, minVersion)
			}
			return v, nil
		case wire.CmdPing:
			ping, err := ParsePingMessage(bytes.NewReader(env.Payload))
			if err != nil {
				return VersionMessage{}, err
			}
			if err := c.Send(PongMessage{Nonce: ping.Nonce}); err != nil {
				return VersionMessage{}, err
			}
		default:
			// drained, not rejected (spec.md §4.B)
		}
	}
}

// awaitVerack drains non-verack traffic (pings answered inline) until
// the peer's verack arrives.
func awaitVerack(c *Conn) error {
	for {
		env, err := c.Recv()
		if err != nil {
			return err
		}

		switch env.Command {
		case wire.CmdVerack:
			return nil
		case wire.CmdPing:
			ping, err := ParsePingMessage(bytes.NewReader(env.Payload))
			if err != nil {
				return err
			}
			if err := c.Send(PongMessage{Nonce: ping.Nonce}); err != nil {
				return err
			}
		default:
			// drained, not rejected (spec.md §4.B)
		}
	}
}
