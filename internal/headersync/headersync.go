// Package headersync implements the node's header-chain bootstrap,
// grounded on original_source's
// node/src/network/headers_download.rs: repeatedly send getheaders
// against the current tip, validate every returned header's proof of
// work, link it onto the chain, and stop once a response comes back
// short of the 2000-header page size (spec.md §4.A).
package headersync

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/MartinScazzola/Bitcoin/internal/block"
	"github.com/MartinScazzola/Bitcoin/internal/chainstate"
	"github.com/MartinScazzola/Bitcoin/internal/peer"
	"github.com/MartinScazzola/Bitcoin/internal/wire"
	"github.com/sirupsen/logrus"
)

const maxHeadersPerMessage = 2000

// LoadOrInit implements the load_headers half of spec.md §4.C: if the
// headers blob at path is empty (or missing), the genesis header is
// written as its first 80 bytes and becomes the sole entry of a fresh
// index. Otherwise every 80-byte record is read back in file order,
// each one linked onto the previous record's Next pointer, with no
// proof-of-work re-check (the durable store is trusted). The file is
// left open, positioned for appends, so the caller can hand it to Run
// to persist newly downloaded headers as they arrive.
func LoadOrInit(path string, genesis block.Header) (*chainstate.HeaderIndex, *os.File, error) {
	info, statErr := os.Stat(path)
	empty := statErr != nil || info.Size() == 0

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("headersync: open %s: %w", path, err)
	}

	if empty {
		if _, err := f.Write(genesis.Serialize()); err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("headersync: write genesis: %w", err)
		}
		return chainstate.NewHeaderIndex(genesis), f, nil
	}

	r, err := os.Open(path)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("headersync: open %s for read: %w", path, err)
	}
	defer r.Close()

	first, err := block.ParseHeader(r)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("headersync: read genesis record: %w", err)
	}
	idx := chainstate.NewHeaderIndex(first)

	for {
		h, err := block.ParseHeader(r)
		if err != nil {
			if errors.Is(err, wire.ErrTruncatedStream) {
				break
			}
			f.Close()
			return nil, nil, fmt.Errorf("headersync: read headers blob: %w", err)
		}
		idx.Append(h)
	}
	return idx, f, nil
}

// Run drives one peer connection through the full header download: it
// issues getheaders against the index's current tip, appends every
// PoW-valid header returned, and loops until a short page signals the
// peer has caught the node up. Each validated header is durably
// written to blob before being linked into idx, matching
// original_source's validate_headers ordering. blob may be nil, in
// which case headers are linked in memory only (used by tests that
// don't exercise persistence).
func Run(c *peer.Conn, protocolVersion int32, idx *chainstate.HeaderIndex, blob io.Writer) error {
	for {
		tip := idx.Tip()
		req := peer.GetHeadersMessage{
			Version:       protocolVersion,
			BlockLocators: [][32]byte{tip},
		}
		if err := c.Send(req); err != nil {
			return fmt.Errorf("headersync: %w", err)
		}

		headers, err := awaitHeaders(c)
		if err != nil {
			return fmt.Errorf("headersync: %w", err)
		}

		if err := appendAll(idx, blob, headers); err != nil {
			return fmt.Errorf("headersync: %w", err)
		}
		logrus.WithField("total", idx.Height()).Debug("headers appended")

		if len(headers) != maxHeadersPerMessage {
			return nil
		}
	}
}

// awaitHeaders drains any non-headers traffic (pings in particular,
// answered inline) until the requested headers message arrives.
func awaitHeaders(c *peer.Conn) ([]block.Header, error) {
	for {
		env, err := c.Recv()
		if err != nil {
			return nil, err
		}

		switch env.Command {
		case wire.CmdHeaders:
			msg, err := peer.ParseHeadersMessage(bytes.NewReader(env.Payload))
			if err != nil {
				return nil, err
			}
			return msg.Headers, nil
		case wire.CmdPing:
			ping, err := peer.ParsePingMessage(bytes.NewReader(env.Payload))
			if err != nil {
				return nil, err
			}
			if err := c.Send(peer.PongMessage{Nonce: ping.Nonce}); err != nil {
				return nil, err
			}
		default:
			// drained, not rejected (spec.md §4.B)
		}
	}
}

func appendAll(idx *chainstate.HeaderIndex, blob io.Writer, headers []block.Header) error {
	for _, h := range headers {
		if !h.CheckProofOfWork() {
			return fmt.Errorf("header %x fails proof of work", h.Hash())
		}
		if blob != nil {
			if _, err := blob.Write(h.Serialize()); err != nil {
				return fmt.Errorf("persist header: %w", err)
			}
		}
		idx.Append(h)
	}
	return nil
}
