package gossip

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/flsschain/flss/foundation/blockchain/database"
	"github.com/flsschain/flss/foundation/blockchain/peer"
	"github.com/flsschain/flss/foundation/blockchain/state"
)

type fakeHandler struct {
	txs      chan database.Tx
	blocks   chan database.Block
	blockErr error
	syncs    chan struct{}
}

func newFakeHandler() *fakeHandler {
	return &fakeHandler{
		txs:    make(chan database.Tx, 10),
		blocks: make(chan database.Block, 10),
		syncs:  make(chan struct{}, 10),
	}
}

func (h *fakeHandler) SubmitTx(tx database.Tx) error {
	h.txs <- tx
	return nil
}

func (h *fakeHandler) SubmitBlock(block database.Block) error {
	if h.blockErr != nil {
		return h.blockErr
	}
	h.blocks <- block
	return nil
}

func (h *fakeHandler) ApplyPush(blocks []database.Block) error { return nil }

func (h *fakeHandler) SignalSync() { h.syncs <- struct{}{} }

func TestSeenCache(t *testing.T) {
	sc := newSeenCache(3)

	if !sc.add("a") {
		t.Error("expected a fresh key to report new")
	}
	if sc.add("a") {
		t.Error("expected a repeated key to report seen")
	}

	sc.add("b")
	sc.add("c")
	sc.add("d") // Evicts "a".

	if !sc.add("a") {
		t.Error("expected the evicted key to report new again")
	}
	if sc.add("d") {
		t.Error("expected a retained key to report seen")
	}
}

func dialTest(t *testing.T, g *Gossip) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(g.Websocket))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { ws.Close() })

	return ws
}

func sendTx(t *testing.T, ws *websocket.Conn, sig string) {
	t.Helper()

	data, err := json.Marshal(database.Tx{Sender: "02aa", Receiver: "02bb", Amount: 1, Signature: sig, Nonce: 1})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := ws.WriteJSON(Envelope{Event: EventTx, Data: data}); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestDispatchTx(t *testing.T) {
	handler := newFakeHandler()
	g := New(Config{Handler: handler, KnownPeers: peer.NewSet()})
	defer g.Shutdown()

	ws := dialTest(t, g)

	// The duplicate in the middle must be applied once.
	sendTx(t, ws, "sig1")
	sendTx(t, ws, "sig1")
	sendTx(t, ws, "sig2")

	for _, want := range []string{"sig1", "sig2"} {
		select {
		case tx := <-handler.txs:
			if tx.Signature != want {
				t.Fatalf("expected %s, got %s", want, tx.Signature)
			}
		case <-time.After(3 * time.Second):
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func TestStopIncomingSuppressesIngest(t *testing.T) {
	handler := newFakeHandler()
	g := New(Config{Handler: handler, KnownPeers: peer.NewSet()})
	defer g.Shutdown()

	ws := dialTest(t, g)

	g.StopIncoming(true)
	sendTx(t, ws, "sig1")

	select {
	case tx := <-handler.txs:
		t.Fatalf("expected the gated tx to be dropped, got %s", tx.Signature)
	case <-time.After(200 * time.Millisecond):
	}

	g.StopIncoming(false)
	sendTx(t, ws, "sig2")

	select {
	case tx := <-handler.txs:
		if tx.Signature != "sig2" {
			t.Fatalf("expected sig2, got %s", tx.Signature)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("expected ingestion to resume after the toggle")
	}
}

func TestDispatchInvalidBlockSignalsSync(t *testing.T) {
	handler := newFakeHandler()
	handler.blockErr = fmt.Errorf("%w: does not chain", state.ErrInvalidBlock)
	g := New(Config{Handler: handler, KnownPeers: peer.NewSet()})
	defer g.Shutdown()

	ws := dialTest(t, g)

	data, err := json.Marshal(database.Block{Hash: "h1"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := ws.WriteJSON(Envelope{Event: EventBlock, Data: data}); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case <-handler.syncs:
	case <-time.After(3 * time.Second):
		t.Fatal("expected a rejected block to trigger a sync")
	}
}

func TestRelayBetweenSockets(t *testing.T) {
	handler := newFakeHandler()
	g := New(Config{Handler: handler, KnownPeers: peer.NewSet()})
	defer g.Shutdown()

	sender := dialTest(t, g)
	receiver := dialTest(t, g)

	sendTx(t, sender, "sig1")

	// The envelope is applied and relayed to the other socket but not
	// echoed to its origin.
	receiver.SetReadDeadline(time.Now().Add(3 * time.Second))
	var env Envelope
	if err := receiver.ReadJSON(&env); err != nil {
		t.Fatalf("read relay: %v", err)
	}
	if env.Event != EventTx {
		t.Errorf("expected a tx relay, got %q", env.Event)
	}

	var tx database.Tx
	if err := json.Unmarshal(env.Data, &tx); err != nil {
		t.Fatalf("decode relay: %v", err)
	}
	if tx.Signature != "sig1" {
		t.Errorf("expected sig1, got %s", tx.Signature)
	}
}
