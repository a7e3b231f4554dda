// Package blockdownload implements the parallel block downloader,
// grounded on original_source's node/src/network/block_download.rs:
// a shared mutex-protected inventory queue, one worker goroutine per
// peer connection pulling batches of 50, and a results channel feeding
// a dedicated chain-mutator goroutine that serializes every
// blockchain/UTxO update (spec.md §4.C, §5).
package blockdownload

import (
	"bytes"
	"sync"
	"time"

	"github.com/MartinScazzola/Bitcoin/internal/block"
	"github.com/MartinScazzola/Bitcoin/internal/chainstate"
	"github.com/MartinScazzola/Bitcoin/internal/peer"
	"github.com/MartinScazzola/Bitcoin/internal/utxo"
	"github.com/MartinScazzola/Bitcoin/internal/wire"
	"github.com/sirupsen/logrus"
)

const batchSize = 50

// FilterHeaders selects the headers strictly after a cutoff time and
// turns them into getdata-ready inventory hashes (spec.md §4.C's
// date_limit filter, grounded on block_download.rs::filter_headers).
func FilterHeaders(headers []block.Header, cutoff time.Time) [][32]byte {
	cutoffUnix := uint32(cutoff.Unix())
	inventories := make([][32]byte, 0, len(headers))
	for _, h := range headers {
		if h.Time > cutoffUnix {
			inventories = append(inventories, h.Hash())
		}
	}
	return inventories
}

// queue is the shared, mutex-protected work list every worker pops
// batches from.
type queue struct {
	mu    sync.Mutex
	items [][32]byte
}

func newQueue(items [][32]byte) *queue {
	return &queue{items: items}
}

// take pops up to n items, LIFO like the original's take_n (order
// does not matter for correctness: every inventory must be fetched
// regardless of sequence).
func (q *queue) take(n int) [][32]byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	if n > len(q.items) {
		n = len(q.items)
	}
	batch := q.items[len(q.items)-n:]
	q.items = q.items[:len(q.items)-n]
	out := make([][32]byte, len(batch))
	copy(out, batch)
	return out
}

// requeue returns the not-yet-fetched part of a failed batch to the
// queue so another worker (or a later pass) can retry it.
func (q *queue) requeue(batch [][32]byte) {
	q.mu.Lock()
	q.items = append(q.items, batch...)
	q.mu.Unlock()
}

// Run downloads every inventory hash using the given peer connections,
// one worker per connection, delivering every proof-validated block to
// the chain mutator. It blocks until the queue drains.
func Run(conns []*peer.Conn, magic wire.Magic, inventories [][32]byte, bc *chainstate.BlockChain, utxoSet *utxo.Set) error {
	q := newQueue(inventories)
	results := make(chan block.Block, batchSize)

	mutatorDone := make(chan struct{})
	go chainMutator(results, bc, utxoSet, mutatorDone)

	var wg sync.WaitGroup
	for _, c := range conns {
		wg.Add(1)
		go func(c *peer.Conn) {
			defer wg.Done()
			worker(c, magic, q, results)
		}(c)
	}
	wg.Wait()
	close(results)
	<-mutatorDone
	return nil
}

func worker(c *peer.Conn, magic wire.Magic, q *queue, results chan<- block.Block) {
	for {
		batch := q.take(batchSize)
		if batch == nil {
			return
		}

		items := make([]peer.InvVect, len(batch))
		for i, h := range batch {
			items[i] = peer.InvVect{Type: peer.InvBlock, Hash: h}
		}
		if err := c.Send(peer.GetDataMessage{Items: items}); err != nil {
			q.requeue(batch)
			return
		}

		for i := range batch {
			b, err := awaitBlock(c)
			if err != nil {
				logrus.WithError(err).Warn("blockdownload: worker lost its peer")
				q.requeue(batch[i:])
				return
			}
			if !b.ValidateMerkleRoot() {
				logrus.Warn("blockdownload: block failed merkle proof, dropping")
				continue
			}
			results <- b
		}
	}
}

func awaitBlock(c *peer.Conn) (block.Block, error) {
	for {
		env, err := c.Recv()
		if err != nil {
			return block.Block{}, err
		}
		switch env.Command {
		case wire.CmdBlock:
			return block.ParseBlock(bytes.NewReader(env.Payload))
		case wire.CmdPing:
			ping, err := peer.ParsePingMessage(bytes.NewReader(env.Payload))
			if err != nil {
				return block.Block{}, err
			}
			if err := c.Send(peer.PongMessage{Nonce: ping.Nonce}); err != nil {
				return block.Block{}, err
			}
		default:
			// drained, not rejected
		}
	}
}

// chainMutator is the single goroutine allowed to mutate the
// blockchain and UTxO set during download, enforcing the canonical
// lock order (spec.md §5: blockchain -> utxo -> mempool -> headers ->
// peer-socket) by never holding a peer-socket lock while it runs.
func chainMutator(results <-chan block.Block, bc *chainstate.BlockChain, utxoSet *utxo.Set, done chan<- struct{}) {
	defer close(done)
	for b := range results {
		utxoSet.Update(b)
		bc.Add(b)
		logrus.WithField("total", bc.Count()).Debug("block accepted")
	}
}
