package gossip

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/flsschain/flss/foundation/blockchain/peer"
)

// Keep-alive and reconnect timing. A socket that misses three pings in
// a row is considered dead.
const (
	pingPeriod        = 10 * time.Second
	pongWait          = 3 * pingPeriod
	writeWait         = 10 * time.Second
	reconnectInterval = 10 * time.Second
)

// conn wraps one live websocket with a write mutex so broadcasts from
// different goroutines never interleave frames.
type conn struct {
	gossip *Gossip
	ws     *websocket.Conn

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

func newConn(g *Gossip, ws *websocket.Conn) *conn {
	return &conn{
		gossip: g,
		ws:     ws,
		done:   make(chan struct{}),
	}
}

// run serves the socket until it drops: a read loop on the caller's
// goroutine and a ping loop on a second one.
func (c *conn) run() {
	go c.pingLoop()
	c.readLoop()
}

// readLoop decodes envelopes off the socket and dispatches them. The
// read deadline advances on every pong, so a silent peer times the
// socket out after three missed pings.
func (c *conn) readLoop() {
	defer c.close()

	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var env Envelope
		if err := c.ws.ReadJSON(&env); err != nil {
			if !c.gossip.isShutdown() {
				c.gossip.evHandler("gossip: socket: read: %s", err)
			}
			return
		}

		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		c.gossip.dispatch(env, c)
	}
}

// pingLoop sends a ping every period until the socket closes.
func (c *conn) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.writeMu.Unlock()
			if err != nil {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// writeJSON writes one envelope under the write mutex.
func (c *conn) writeJSON(env Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(env)
}

// close shuts the socket down once.
func (c *conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.ws.Close()
	})
}

// dialPeer maintains the outbound socket to one peer for the life of
// the fabric. Failed dials count against the peer; after three in a
// row the peer is silenced, which removes it from the peers sync
// queries until a dial succeeds again.
func (g *Gossip) dialPeer(pr peer.Peer) {
	for {
		if g.isShutdown() {
			return
		}

		ws, _, err := websocket.DefaultDialer.Dial(pr.WS, nil)
		if err != nil {
			g.knownPeers.RecordFailure(pr)
			if g.knownPeers.Silenced(pr) {
				g.evHandler("gossip: dialPeer: %s: silenced after repeated failures", pr.WS)
			} else {
				g.evHandler("gossip: dialPeer: %s: ERROR: %s", pr.WS, err)
			}
			if !g.sleep(reconnectInterval) {
				return
			}
			continue
		}

		g.knownPeers.RecordSuccess(pr)
		g.evHandler("gossip: dialPeer: %s: connected", pr.WS)

		c := newConn(g, ws)
		g.register(c)
		c.run()
		g.unregister(c)

		g.evHandler("gossip: dialPeer: %s: disconnected", pr.WS)

		if !g.sleep(reconnectInterval) {
			return
		}
	}
}

// sleep waits for the duration unless a shutdown arrives first. It
// reports whether the fabric is still running.
func (g *Gossip) sleep(d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-g.shut:
		return false
	}
}
