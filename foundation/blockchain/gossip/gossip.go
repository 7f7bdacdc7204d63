// Package gossip implements the websocket fabric between nodes:
// inbound socket upgrades, outbound peer clients with keep-alive and
// reconnect, and best-effort broadcast of transactions and blocks.
package gossip

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/flsschain/flss/foundation/blockchain/database"
	"github.com/flsschain/flss/foundation/blockchain/peer"
	"github.com/flsschain/flss/foundation/blockchain/state"
)

// The event names carried on the wire.
const (
	EventTx    = "tx"
	EventBlock = "block"
	EventPush  = "push"
)

// Envelope is the wire frame for every gossip message.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Handler is the contract the chain provides for applying gossiped
// data. *state.State implements it.
type Handler interface {
	SubmitTx(tx database.Tx) error
	SubmitBlock(block database.Block) error
	ApplyPush(blocks []database.Block) error
	SignalSync()
}

// EventHandler defines a function that is called when events occur in
// the gossip fabric.
type EventHandler func(v string, args ...any)

// Config represents the configuration required to run the gossip
// fabric.
type Config struct {
	Handler    Handler
	KnownPeers *peer.Set
	EvHandler  EventHandler
}

// Gossip manages every live socket, inbound and outbound, and the
// recently-seen caches that stop relay loops.
type Gossip struct {
	handler    Handler
	knownPeers *peer.Set
	evHandler  EventHandler

	mu    sync.Mutex
	conns map[*conn]struct{}
	seen  *seenCache

	stopIncoming int32

	shut chan struct{}
	wg   sync.WaitGroup

	upgrader websocket.Upgrader
}

// New constructs the gossip fabric. Call Start to dial the known peers
// and mount Websocket on the node's mux to accept inbound sockets.
func New(cfg Config) *Gossip {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	return &Gossip{
		handler:    cfg.Handler,
		knownPeers: cfg.KnownPeers,
		evHandler:  ev,
		conns:      make(map[*conn]struct{}),
		seen:       newSeenCache(256),
		shut:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Start launches an outbound client for every known peer.
func (g *Gossip) Start() {
	for _, pr := range g.knownPeers.Copy() {
		g.wg.Add(1)
		go func(pr peer.Peer) {
			defer g.wg.Done()
			g.dialPeer(pr)
		}(pr)
	}
}

// Shutdown closes every socket and waits for the client goroutines.
func (g *Gossip) Shutdown() {
	g.evHandler("gossip: shutdown: started")
	defer g.evHandler("gossip: shutdown: completed")

	close(g.shut)

	g.mu.Lock()
	for c := range g.conns {
		c.close()
	}
	g.mu.Unlock()

	g.wg.Wait()
}

// Websocket upgrades an inbound HTTP request to a gossip socket and
// serves it until it drops.
func (g *Gossip) Websocket(w http.ResponseWriter, r *http.Request) {
	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.evHandler("gossip: websocket: upgrade: ERROR: %s", err)
		return
	}

	g.evHandler("gossip: websocket: inbound socket from %s", r.RemoteAddr)

	c := newConn(g, ws)
	g.register(c)
	c.run()
	g.unregister(c)
}

// StopIncoming toggles the diagnostic flag that suppresses tx and
// block ingestion. Outbound broadcast is unaffected.
func (g *Gossip) StopIncoming(stop bool) {
	var v int32
	if stop {
		v = 1
	}
	atomic.StoreInt32(&g.stopIncoming, v)
	g.evHandler("gossip: stop incoming: %t", stop)
}

// IncomingStopped reports whether tx and block ingestion is suppressed.
func (g *Gossip) IncomingStopped() bool {
	return atomic.LoadInt32(&g.stopIncoming) == 1
}

// SendTx broadcasts a transaction to every live socket.
func (g *Gossip) SendTx(tx database.Tx) {
	g.seen.add(EventTx + tx.Signature)
	g.broadcast(EventTx, tx, nil)
}

// SendBlock broadcasts a block announcement to every live socket.
func (g *Gossip) SendBlock(block database.Block) {
	g.seen.add(EventBlock + block.Hash)
	g.broadcast(EventBlock, block, nil)
}

// Push broadcasts a sub-chain to every live socket. Sync uses this
// when peers have fallen behind.
func (g *Gossip) Push(blocks []database.Block) {
	if len(blocks) == 0 {
		return
	}
	g.seen.add(EventPush + blocks[len(blocks)-1].Hash)
	g.broadcast(EventPush, blocks, nil)
}

// broadcast writes the envelope to every live socket except the origin.
// A failed write closes only that socket.
func (g *Gossip) broadcast(event string, data any, origin *conn) {
	raw, err := json.Marshal(data)
	if err != nil {
		g.evHandler("gossip: broadcast: marshal: ERROR: %s", err)
		return
	}
	env := Envelope{Event: event, Data: raw}

	g.mu.Lock()
	conns := make([]*conn, 0, len(g.conns))
	for c := range g.conns {
		if c != origin {
			conns = append(conns, c)
		}
	}
	g.mu.Unlock()

	for _, c := range conns {
		if err := c.writeJSON(env); err != nil {
			g.evHandler("gossip: broadcast: write: ERROR: %s", err)
			c.close()
		}
	}
}

// register adds a live socket to the fabric.
func (g *Gossip) register(c *conn) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.conns[c] = struct{}{}
}

// unregister removes a socket from the fabric.
func (g *Gossip) unregister(c *conn) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.conns, c)
}

// dispatch applies one received envelope and relays it onward the first
// time it is seen.
func (g *Gossip) dispatch(env Envelope, origin *conn) {
	switch env.Event {
	case EventTx:
		if g.IncomingStopped() {
			return
		}
		var tx database.Tx
		if err := json.Unmarshal(env.Data, &tx); err != nil {
			g.evHandler("gossip: dispatch: tx: decode: ERROR: %s", err)
			return
		}
		if !g.seen.add(EventTx + tx.Signature) {
			return
		}
		if err := g.handler.SubmitTx(tx); err != nil {
			g.evHandler("gossip: dispatch: tx[%.16s]: rejected: %s", tx.Signature, err)
			return
		}
		g.broadcast(EventTx, tx, origin)

	case EventBlock:
		if g.IncomingStopped() {
			return
		}
		var block database.Block
		if err := json.Unmarshal(env.Data, &block); err != nil {
			g.evHandler("gossip: dispatch: block: decode: ERROR: %s", err)
			return
		}
		if !g.seen.add(EventBlock + block.Hash) {
			return
		}
		if err := g.handler.SubmitBlock(block); err != nil {
			g.evHandler("gossip: dispatch: block[%.16s]: rejected: %s", block.Hash, err)
			if errors.Is(err, state.ErrInvalidBlock) {
				g.handler.SignalSync()
			}
			return
		}
		g.broadcast(EventBlock, block, origin)

	case EventPush:
		var blocks []database.Block
		if err := json.Unmarshal(env.Data, &blocks); err != nil {
			g.evHandler("gossip: dispatch: push: decode: ERROR: %s", err)
			return
		}
		if len(blocks) == 0 {
			return
		}
		if !g.seen.add(EventPush + blocks[len(blocks)-1].Hash) {
			return
		}
		if err := g.handler.ApplyPush(blocks); err != nil {
			g.evHandler("gossip: dispatch: push: rejected: %s", err)
			if errors.Is(err, state.ErrForkTooDeep) || errors.Is(err, state.ErrUnknownAncestor) {
				g.handler.SignalSync()
			}
			return
		}
		g.broadcast(EventPush, blocks, origin)

	default:
		g.evHandler("gossip: dispatch: unknown event %q", env.Event)
	}
}

// isShutdown is used to test if a shutdown has been signaled.
func (g *Gossip) isShutdown() bool {
	select {
	case <-g.shut:
		return true
	default:
		return false
	}
}

// seenCache remembers the most recent keys observed so envelopes are
// applied and relayed once. Bounded by a FIFO of fixed size.
type seenCache struct {
	mu   sync.Mutex
	keys map[string]struct{}
	fifo []string
	max  int
}

func newSeenCache(max int) *seenCache {
	return &seenCache{
		keys: make(map[string]struct{}),
		max:  max,
	}
}

// add records a key and reports whether it was new.
func (sc *seenCache) add(key string) bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if _, exists := sc.keys[key]; exists {
		return false
	}

	sc.keys[key] = struct{}{}
	sc.fifo = append(sc.fifo, key)
	if len(sc.fifo) > sc.max {
		oldest := sc.fifo[0]
		sc.fifo = sc.fifo[1:]
		delete(sc.keys, oldest)
	}

	return true
}
