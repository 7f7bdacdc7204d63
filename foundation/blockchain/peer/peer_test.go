package peer_test

import (
	"testing"

	"github.com/flsschain/flss/foundation/blockchain/peer"
)

func TestAddRemove(t *testing.T) {
	set := peer.NewSet()
	p := peer.New("ws://host:9080", "http://host:8080")

	if !set.Add(p) {
		t.Error("expected the first add to report new")
	}
	if set.Add(p) {
		t.Error("expected the second add to report already present")
	}
	if got := len(set.Copy()); got != 1 {
		t.Errorf("expected 1 peer, got %d", got)
	}

	set.Remove(p)
	if got := len(set.Copy()); got != 0 {
		t.Errorf("expected 0 peers, got %d", got)
	}
}

func TestMatch(t *testing.T) {
	p := peer.New("ws://host:9080", "http://host:8080")

	if !p.Match("ws://host:9080") {
		t.Error("expected a match on the websocket URL")
	}
	if p.Match("ws://other:9080") {
		t.Error("expected no match on a foreign URL")
	}
}

func TestSilencing(t *testing.T) {
	set := peer.NewSet()
	p := peer.New("ws://host:9080", "http://host:8080")
	set.Add(p)

	set.RecordFailure(p)
	set.RecordFailure(p)
	if set.Silenced(p) {
		t.Error("expected the peer to survive two failures")
	}

	set.RecordFailure(p)
	if !set.Silenced(p) {
		t.Error("expected the third consecutive failure to silence the peer")
	}
	if got := len(set.Active()); got != 0 {
		t.Errorf("expected no active peers, got %d", got)
	}
	if got := len(set.Copy()); got != 1 {
		t.Errorf("expected the silenced peer to remain known, got %d", got)
	}

	set.RecordSuccess(p)
	if set.Silenced(p) {
		t.Error("expected a success to revive the peer")
	}
	if got := len(set.Active()); got != 1 {
		t.Errorf("expected 1 active peer, got %d", got)
	}
}

func TestSuccessResetsAttempts(t *testing.T) {
	set := peer.NewSet()
	p := peer.New("ws://host:9080", "http://host:8080")
	set.Add(p)

	set.RecordFailure(p)
	set.RecordFailure(p)
	set.RecordSuccess(p)

	// The count restarts, so two more failures do not silence.
	set.RecordFailure(p)
	set.RecordFailure(p)
	if set.Silenced(p) {
		t.Error("expected the failure count to reset after a success")
	}
}

func TestUnknownPeerBookkeeping(t *testing.T) {
	set := peer.NewSet()
	p := peer.New("ws://host:9080", "http://host:8080")

	set.RecordFailure(p)
	set.RecordSuccess(p)
	if set.Silenced(p) {
		t.Error("expected an unknown peer to never be silenced")
	}
	if got := len(set.Copy()); got != 0 {
		t.Errorf("expected bookkeeping on unknown peers to not add them, got %d", got)
	}
}
