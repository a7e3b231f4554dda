package peer

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/MartinScazzola/Bitcoin/internal/wire"
	"github.com/sirupsen/logrus"
)

// Conn wraps one peer socket behind a single exclusive lock
// (spec.md §5's canonical lock order ends at peer-socket): every
// Send and every blocking Recv hold mu for the duration of their I/O,
// so two goroutines can never interleave writes or reads on the same
// connection. This replaces the teacher's SimpleNode, which ran
// separate read/send/dispatch goroutines feeding a per-command channel
// map; this node's concurrency model instead dedicates one goroutine
// per peer that alternates between sending requests and blocking on
// Recv (spec.md §5).
type Conn struct {
	mu    sync.Mutex
	nc    net.Conn
	magic wire.Magic
	log   *logrus.Entry
}

// Dial opens an outbound TCP connection to a peer.
func Dial(magic wire.Magic, address string, timeout time.Duration) (*Conn, error) {
	nc, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return nil, fmt.Errorf("peer: dial %s: %w", address, err)
	}
	return Wrap(magic, nc), nil
}

// Wrap adopts an already-accepted connection (the inbound server's
// path, spec.md §4.G).
func Wrap(magic wire.Magic, nc net.Conn) *Conn {
	return &Conn{
		nc:    nc,
		magic: magic,
		log:   logrus.WithField("peer", nc.RemoteAddr().String()),
	}
}

func (c *Conn) RemoteAddr() net.Addr { return c.nc.RemoteAddr() }

// Send frames and writes one message, holding the connection's
// exclusive lock for the duration.
func (c *Conn) Send(msg wire.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := wire.WriteMessage(c.nc, c.magic, msg); err != nil {
		return fmt.Errorf("peer: send %s: %w", msg.Command(), err)
	}
	c.log.Debugf("sent %s", msg.Command())
	return nil
}

// Recv blocks for the next full envelope on the socket.
func (c *Conn) Recv() (wire.Envelope, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	env, err := wire.ReadEnvelope(c.nc)
	if err != nil {
		return wire.Envelope{}, fmt.Errorf("peer: recv: %w", err)
	}
	c.log.Debugf("received %s", env.Command)
	return env, nil
}

func (c *Conn) Close() error { return c.nc.Close() }

// SetDeadline applies a read/write deadline for the next operation, so
// a stalled peer does not block the goroutine serving it forever.
func (c *Conn) SetDeadline(t time.Time) error { return c.nc.SetDeadline(t) }
