// Package peer implements the per-connection wire messages and the
// exclusive-lock-per-socket connection wrapper spec.md §5 calls for,
// grounded on smythg4-go-bitcoin's internal/network package
// (version.go, getheaders.go, getdata.go, pong.go, constants.go,
// merkleblock.go) with the channel-fanout SimpleNode architecture
// replaced by a simpler blocking-I/O, mutex-guarded connection.
package peer

import (
	"bytes"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"time"

	"github.com/MartinScazzola/Bitcoin/internal/block"
	"github.com/MartinScazzola/Bitcoin/internal/merkle"
	"github.com/MartinScazzola/Bitcoin/internal/tx"
	"github.com/MartinScazzola/Bitcoin/internal/wire"
)

// Service flags, ported verbatim from the teacher's
// internal/network/constants.go.
const (
	NodeNetwork        uint64 = 1 << 0
	NodeGetUTXO        uint64 = 1 << 1
	NodeBloom          uint64 = 1 << 2
	NodeWitness        uint64 = 1 << 3
	NodeXThin          uint64 = 1 << 4
	NodeCompactFilters uint64 = 1 << 6
	NodeNetworkLimited uint64 = 1 << 10
)

// NetAddr is the address structure embedded in version messages.
type NetAddr struct {
	Services uint64
	Address  [16]byte
	Port     uint16
}

func (na NetAddr) String() string {
	return net.IP(na.Address[:]).String()
}

func (na NetAddr) Serialize() []byte {
	buf := make([]byte, 0, 26)
	buf = append(buf, wire.PutU64LE(na.Services)...)
	buf = append(buf, na.Address[:]...)
	port := []byte{byte(na.Port >> 8), byte(na.Port)}
	return append(buf, port...)
}

func ParseNetAddr(r io.Reader) (NetAddr, error) {
	services, err := wire.ReadU64LE(r)
	if err != nil {
		return NetAddr{}, err
	}
	var addr [16]byte
	if _, err := io.ReadFull(r, addr[:]); err != nil {
		return NetAddr{}, err
	}
	var portBuf [2]byte
	if _, err := io.ReadFull(r, portBuf[:]); err != nil {
		return NetAddr{}, err
	}
	port := uint16(portBuf[0])<<8 | uint16(portBuf[1])
	return NetAddr{Services: services, Address: addr, Port: port}, nil
}

func addrFromIP(ip net.IP, port uint16) NetAddr {
	var a [16]byte
	copy(a[:], ip.To16())
	return NetAddr{Port: port, Address: a}
}

// VersionMessage is the handshake's first message (spec.md §4.B).
type VersionMessage struct {
	Version      int32
	Services     uint64
	Timestamp    int64
	ReceiverAddr NetAddr
	SenderAddr   NetAddr
	Nonce        uint64
	UserAgent    string
	StartHeight  int32
	Relay        bool
}

// NewVersionMessage builds the node's outbound version announcement,
// its service bit set to NodeNetwork since this is a full-validating
// node (spec.md §1), not the teacher's witness-serving default.
// protocolVersion is the configured `protocol_version` setting
// (spec.md §6), not a hardcoded constant, so the handshake's
// version-compat gate stays self-consistent with what this node
// actually advertises.
func NewVersionMessage(remote net.IP, remotePort uint16, localPort uint16, startHeight int32, protocolVersion int32) VersionMessage {
	return VersionMessage{
		Version:      protocolVersion,
		Services:     NodeNetwork,
		Timestamp:    time.Now().Unix(),
		ReceiverAddr: addrFromIP(remote, remotePort),
		SenderAddr:   NetAddr{Port: localPort},
		Nonce:        rand.Uint64(),
		UserAgent:    "/full-validating-node:0.1/",
		StartHeight:  startHeight,
		Relay:        false,
	}
}

func (v VersionMessage) Serialize() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(wire.PutI32LE(v.Version))
	buf.Write(wire.PutU64LE(v.Services))
	buf.Write(wire.PutI64LE(v.Timestamp))
	buf.Write(v.ReceiverAddr.Serialize())
	buf.Write(v.SenderAddr.Serialize())
	buf.Write(wire.PutU64LE(v.Nonce))
	buf.Write(wire.WriteBytes([]byte(v.UserAgent)))
	buf.Write(wire.PutI32LE(v.StartHeight))
	if v.Relay {
		buf.WriteByte(0x01)
	} else {
		buf.WriteByte(0x00)
	}
	return buf.Bytes(), nil
}

func ParseVersionMessage(r io.Reader) (VersionMessage, error) {
	var v VersionMessage
	var err error

	if v.Version, err = wire.ReadI32LE(r); err != nil {
		return VersionMessage{}, err
	}
	if v.Services, err = wire.ReadU64LE(r); err != nil {
		return VersionMessage{}, err
	}
	if v.Timestamp, err = wire.ReadI64LE(r); err != nil {
		return VersionMessage{}, err
	}
	if v.ReceiverAddr, err = ParseNetAddr(r); err != nil {
		return VersionMessage{}, err
	}
	if v.SenderAddr, err = ParseNetAddr(r); err != nil {
		return VersionMessage{}, err
	}
	if v.Nonce, err = wire.ReadU64LE(r); err != nil {
		return VersionMessage{}, err
	}
	uaBytes, err := wire.ReadBytes(r)
	if err != nil {
		return VersionMessage{}, err
	}
	v.UserAgent = string(uaBytes)
	if v.StartHeight, err = wire.ReadI32LE(r); err != nil {
		return VersionMessage{}, err
	}
	relay := make([]byte, 1)
	if _, err := io.ReadFull(r, relay); err == nil {
		v.Relay = relay[0] != 0
	}
	return v, nil
}

func (v VersionMessage) Command() string { return wire.CmdVersion }

// VerackMessage is the handshake's empty acknowledgement.
type VerackMessage struct{}

func (VerackMessage) Serialize() ([]byte, error) { return nil, nil }
func (VerackMessage) Command() string            { return wire.CmdVerack }

// PingMessage / PongMessage carry an 8-byte nonce that must be echoed
// back verbatim (spec.md §4.B's keepalive requirement).
type PingMessage struct{ Nonce uint64 }

func (p PingMessage) Serialize() ([]byte, error) { return wire.PutU64LE(p.Nonce), nil }
func (PingMessage) Command() string              { return wire.CmdPing }

func ParsePingMessage(r io.Reader) (PingMessage, error) {
	n, err := wire.ReadU64LE(r)
	return PingMessage{Nonce: n}, err
}

type PongMessage struct{ Nonce uint64 }

func (p PongMessage) Serialize() ([]byte, error) { return wire.PutU64LE(p.Nonce), nil }
func (PongMessage) Command() string              { return wire.CmdPong }

func ParsePongMessage(r io.Reader) (PongMessage, error) {
	n, err := wire.ReadU64LE(r)
	return PongMessage{Nonce: n}, err
}

// GetHeadersMessage requests headers after the tip identified by its
// (single-entry, in this node's simplified model) locator.
type GetHeadersMessage struct {
	Version       int32
	BlockLocators [][32]byte
	HashStop      [32]byte
}

func (g GetHeadersMessage) Serialize() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(wire.PutI32LE(g.Version))
	buf.Write(wire.EncodeVarInt(uint64(len(g.BlockLocators))))
	for _, h := range g.BlockLocators {
		buf.Write(h[:])
	}
	buf.Write(g.HashStop[:])
	return buf.Bytes(), nil
}

func ParseGetHeadersMessage(r io.Reader) (GetHeadersMessage, error) {
	var g GetHeadersMessage
	var err error
	if g.Version, err = wire.ReadI32LE(r); err != nil {
		return GetHeadersMessage{}, err
	}
	count, err := wire.ReadVarInt(r)
	if err != nil {
		return GetHeadersMessage{}, err
	}
	g.BlockLocators = make([][32]byte, count)
	for i := range g.BlockLocators {
		if g.BlockLocators[i], err = wire.ReadHash32(r); err != nil {
			return GetHeadersMessage{}, err
		}
	}
	if g.HashStop, err = wire.ReadHash32(r); err != nil {
		return GetHeadersMessage{}, err
	}
	return g, nil
}

func (GetHeadersMessage) Command() string { return wire.CmdGetHeaders }

// HeadersMessage carries up to 2000 headers, each followed by a zero
// tx-count byte as the wire format requires even though no
// transactions are sent (spec.md §4.A).
type HeadersMessage struct {
	Headers []block.Header
}

func (h HeadersMessage) Serialize() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(wire.EncodeVarInt(uint64(len(h.Headers))))
	for _, hdr := range h.Headers {
		buf.Write(hdr.Serialize())
		buf.WriteByte(0x00)
	}
	return buf.Bytes(), nil
}

func ParseHeadersMessage(r io.Reader) (HeadersMessage, error) {
	count, err := wire.ReadVarInt(r)
	if err != nil {
		return HeadersMessage{}, err
	}
	headers := make([]block.Header, count)
	for i := range headers {
		h, err := block.ParseHeader(r)
		if err != nil {
			return HeadersMessage{}, err
		}
		headers[i] = h
		numTx, err := wire.ReadVarInt(r)
		if err != nil {
			return HeadersMessage{}, err
		}
		if numTx != 0 {
			return HeadersMessage{}, fmt.Errorf("peer: headers message tx count must be 0, got %d", numTx)
		}
	}
	return HeadersMessage{Headers: headers}, nil
}

func (HeadersMessage) Command() string { return wire.CmdHeaders }

// InvType identifies the kind of item an inv/getdata/notfound entry
// refers to.
type InvType uint32

const (
	InvError InvType = iota
	InvTx
	InvBlock
	InvFilteredBlock
	InvCmpctBlock
)

type InvVect struct {
	Type InvType
	Hash [32]byte
}

func parseInvVects(r io.Reader) ([]InvVect, error) {
	count, err := wire.ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	items := make([]InvVect, count)
	for i := range items {
		t, err := wire.ReadU32LE(r)
		if err != nil {
			return nil, err
		}
		h, err := wire.ReadHash32(r)
		if err != nil {
			return nil, err
		}
		items[i] = InvVect{Type: InvType(t), Hash: h}
	}
	return items, nil
}

func serializeInvVects(items []InvVect) []byte {
	buf := new(bytes.Buffer)
	buf.Write(wire.EncodeVarInt(uint64(len(items))))
	for _, it := range items {
		buf.Write(wire.PutU32LE(uint32(it.Type)))
		buf.Write(it.Hash[:])
	}
	return buf.Bytes()
}

type InvMessage struct{ Items []InvVect }

func (m InvMessage) Serialize() ([]byte, error)      { return serializeInvVects(m.Items), nil }
func (InvMessage) Command() string                   { return wire.CmdInv }
func ParseInvMessage(r io.Reader) (InvMessage, error) { i, err := parseInvVects(r); return InvMessage{i}, err }

type GetDataMessage struct{ Items []InvVect }

func (m GetDataMessage) Serialize() ([]byte, error) { return serializeInvVects(m.Items), nil }
func (GetDataMessage) Command() string               { return wire.CmdGetData }
func ParseGetDataMessage(r io.Reader) (GetDataMessage, error) {
	i, err := parseInvVects(r)
	return GetDataMessage{i}, err
}

type NotFoundMessage struct{ Items []InvVect }

func (m NotFoundMessage) Serialize() ([]byte, error) { return serializeInvVects(m.Items), nil }
func (NotFoundMessage) Command() string              { return wire.CmdNotFound }
func ParseNotFoundMessage(r io.Reader) (NotFoundMessage, error) {
	i, err := parseInvVects(r)
	return NotFoundMessage{i}, err
}

// TxMessage wraps a full transaction as sent in response to a tx
// getdata request.
type TxMessage struct{ Tx tx.Transaction }

func (m TxMessage) Serialize() ([]byte, error) { return m.Tx.Serialize(), nil }
func (TxMessage) Command() string              { return wire.CmdTx }
func ParseTxMessage(r io.Reader) (TxMessage, error) {
	t, err := tx.ParseTransaction(r)
	return TxMessage{t}, err
}

// BlockMessage wraps a full block as sent in response to a block
// getdata request.
type BlockMessage struct{ Block block.Block }

func (m BlockMessage) Serialize() ([]byte, error) { return m.Block.Serialize(), nil }
func (BlockMessage) Command() string              { return wire.CmdBlock }
func ParseBlockMessage(r io.Reader) (BlockMessage, error) {
	b, err := block.ParseBlock(r)
	return BlockMessage{b}, err
}

// MerkleBlockMessage wraps a partial Merkle proof as a merkleblock
// peer message. Neither the inbound server nor the block downloader
// sends or reads it; they exchange full blocks only.
type MerkleBlockMessage struct{ Proof merkle.PartialProof }

func (m MerkleBlockMessage) Serialize() ([]byte, error) { return m.Proof.Serialize(), nil }
func (MerkleBlockMessage) Command() string              { return wire.CmdMerkleBlock }
func ParseMerkleBlockMessage(r io.Reader) (MerkleBlockMessage, error) {
	p, err := merkle.ParsePartialProof(r)
	return MerkleBlockMessage{p}, err
}
