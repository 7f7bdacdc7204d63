// Package peer maintains the set of known peers and the reconnect
// bookkeeping the gossip layer needs for each of them.
package peer

import "sync"

// Peer represents the addresses of another node in the network.
type Peer struct {
	WS   string `json:"ws"`   // Gossip websocket URL.
	HTTP string `json:"http"` // Read API base URL.
}

// New constructs a peer from its two addresses.
func New(ws string, http string) Peer {
	return Peer{
		WS:   ws,
		HTTP: http,
	}
}

// Match validates if the specified websocket URL matches this peer.
func (p Peer) Match(ws string) bool {
	return p.WS == ws
}

// status tracks the connection bookkeeping for one peer. A peer is
// silenced after three consecutive failed connection attempts and
// revived by the first successful one.
type status struct {
	Attempts int
	Silenced bool
}

// Set represents the data representation to maintain a set of known
// peers and their connection status.
type Set struct {
	mu  sync.RWMutex
	set map[Peer]*status
}

// NewSet constructs a new set to manage node peer information.
func NewSet() *Set {
	return &Set{
		set: make(map[Peer]*status),
	}
}

// Add adds a new peer to the set. It reports whether the peer was not
// already present.
func (s *Set) Add(peer Peer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.set[peer]; exists {
		return false
	}

	s.set[peer] = &status{}
	return true
}

// Remove removes a peer from the set.
func (s *Set) Remove(peer Peer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.set, peer)
}

// Copy returns the list of known peers, silenced ones included.
func (s *Set) Copy() []Peer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	peers := make([]Peer, 0, len(s.set))
	for peer := range s.set {
		peers = append(peers, peer)
	}

	return peers
}

// Active returns the list of peers that are not silenced.
func (s *Set) Active() []Peer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var peers []Peer
	for peer, st := range s.set {
		if !st.Silenced {
			peers = append(peers, peer)
		}
	}

	return peers
}

// RecordFailure counts a failed connection attempt against the peer.
// The third consecutive failure silences it.
func (s *Set) RecordFailure(peer Peer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, exists := s.set[peer]
	if !exists {
		return
	}

	st.Attempts++
	if st.Attempts >= 3 {
		st.Silenced = true
	}
}

// RecordSuccess resets the failure count for the peer and revives it if
// it was silenced.
func (s *Set) RecordSuccess(peer Peer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, exists := s.set[peer]
	if !exists {
		return
	}

	st.Attempts = 0
	st.Silenced = false
}

// Silenced reports whether the peer is currently silenced.
func (s *Set) Silenced(peer Peer) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, exists := s.set[peer]
	return exists && st.Silenced
}
