package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Magic identifies a network ("start string" in the spec's vocabulary).
type Magic uint32

const (
	MainnetMagic Magic = 0xf9beb4d9
	TestnetMagic Magic = 0x0b110907
)

// Recognized command strings. Anything else is drained, not rejected.
const (
	CmdVersion     = "version"
	CmdVerack      = "verack"
	CmdPing        = "ping"
	CmdPong        = "pong"
	CmdGetHeaders  = "getheaders"
	CmdHeaders     = "headers"
	CmdGetData     = "getdata"
	CmdBlock       = "block"
	CmdInv         = "inv"
	CmdTx          = "tx"
	CmdNotFound    = "notfound"
	CmdMerkleBlock = "merkleblock"
)

// Message is any payload that can be framed in an Envelope.
type Message interface {
	Serialize() ([]byte, error)
	Command() string
}

// Envelope is the 24-byte header that precedes every payload on the wire:
// 4-byte magic, 12-byte zero-padded ASCII command, 4-byte LE payload
// length, 4-byte checksum (first four bytes of dsha256(payload)).
type Envelope struct {
	Magic    Magic
	Command  string
	Payload  []byte
	checksum uint32
}

// NewEnvelope wraps a message for one network, computing its checksum.
func NewEnvelope(magic Magic, command string, payload []byte) (Envelope, error) {
	if len(command) > 12 {
		return Envelope{}, fmt.Errorf("%w: %q (%d bytes)", ErrInvalidCommand, command, len(command))
	}
	hash := DoubleSHA256(payload)
	return Envelope{
		Magic:    magic,
		Command:  command,
		Payload:  payload,
		checksum: binary.LittleEndian.Uint32(hash[:4]),
	}, nil
}

func (e Envelope) commandBytes() [12]byte {
	var cmd [12]byte
	copy(cmd[:], e.Command)
	return cmd
}

// Serialize renders the 24-byte header followed by the payload.
func (e Envelope) Serialize() ([]byte, error) {
	buf := make([]byte, 24+len(e.Payload))
	binary.BigEndian.PutUint32(buf[0:4], uint32(e.Magic))
	cmd := e.commandBytes()
	copy(buf[4:16], cmd[:])
	binary.LittleEndian.PutUint32(buf[16:20], uint32(len(e.Payload)))
	binary.LittleEndian.PutUint32(buf[20:24], e.checksum)
	copy(buf[24:], e.Payload)
	return buf, nil
}

// ReadEnvelope reads and validates one full envelope (header + payload)
// from r. Reading never consumes a partial payload: either the whole
// frame comes back or an error does.
func ReadEnvelope(r io.Reader) (Envelope, error) {
	header := make([]byte, 24)
	if _, err := io.ReadFull(r, header); err != nil {
		return Envelope{}, fmt.Errorf("%w: envelope header: %v", ErrTruncatedStream, err)
	}

	magic := Magic(binary.BigEndian.Uint32(header[0:4]))
	command := string(bytes.TrimRight(header[4:16], "\x00"))
	payloadLen := binary.LittleEndian.Uint32(header[16:20])
	checksum := binary.LittleEndian.Uint32(header[20:24])

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Envelope{}, fmt.Errorf("%w: envelope payload: %v", ErrTruncatedStream, err)
	}

	hash := DoubleSHA256(payload)
	if checksum != binary.LittleEndian.Uint32(hash[:4]) {
		return Envelope{}, fmt.Errorf("%w: command %q", ErrBadChecksum, command)
	}

	return Envelope{Magic: magic, Command: command, Payload: payload, checksum: checksum}, nil
}

// WriteMessage frames msg in an Envelope for the given network and
// writes it to w.
func WriteMessage(w io.Writer, magic Magic, msg Message) error {
	payload, err := msg.Serialize()
	if err != nil {
		return err
	}
	env, err := NewEnvelope(magic, msg.Command(), payload)
	if err != nil {
		return err
	}
	data, err := env.Serialize()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
