package broadcast

import (
	"time"

	"github.com/MartinScazzola/Bitcoin/internal/peer"
	"github.com/sirupsen/logrus"
)

// Run cycles through every live connection, servicing one arrived
// message per visit, matching the original's round-robin broadcasting
// thread. It never blocks indefinitely on a single peer: each Recv
// carries a short deadline so a quiet connection simply gets skipped
// this round.
func Run(conns []*peer.Conn, st *State, stop <-chan struct{}) {
	if len(conns) == 0 {
		return
	}
	i := 0
	for {
		select {
		case <-stop:
			return
		default:
		}

		conn := conns[i%len(conns)]
		i++

		conn.SetDeadline(time.Now().Add(200 * time.Millisecond))
		env, err := conn.Recv()
		if err != nil {
			continue
		}
		if err := Dispatch(conn, env, st); err != nil {
			logrus.WithError(err).Warn("broadcast: dispatch error")
		}
	}
}
