package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/flsschain/flss/foundation/blockchain/database"
	"github.com/flsschain/flss/foundation/blockchain/peer"
)

// maxSyncBatch is the largest number of blocks fetched from a peer in
// one request.
const maxSyncBatch = 500

// httpTimeout bounds every request made to a peer's read API.
const httpTimeout = 10 * time.Second

// PushFunc sends a sub-chain of blocks to peers that have fallen
// behind. The gossip layer registers it once its sockets are up.
type PushFunc func(blocks []database.Block)

// RegisterPush wires the gossip push used when sync discovers peers
// behind this node.
func (s *State) RegisterPush(push PushFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.push = push
}

// Sync compares this chain against every active peer and adopts the
// longest valid chain found. Peers behind this node are pushed the tip
// of this chain instead.
func (s *State) Sync() error {
	localHeight := s.Height()

	var best peer.Peer
	var bestHeight uint64
	var behind []peer.Peer

	for _, pr := range s.knownPeers.Active() {
		peerHeight, err := s.queryPeerHeight(pr)
		if err != nil {
			s.evHandler("state: sync: queryPeerHeight: %s: ERROR: %s", pr.HTTP, err)
			continue
		}

		switch {
		case peerHeight > bestHeight && peerHeight > localHeight:
			best, bestHeight = pr, peerHeight
		case peerHeight < localHeight:
			behind = append(behind, pr)
		}
	}

	if bestHeight > localHeight {
		if err := s.syncWithPeer(best, bestHeight); err != nil {
			return fmt.Errorf("sync with %s: %w", best.HTTP, err)
		}
		return nil
	}

	if len(behind) > 0 {
		s.pushTail()
	}

	return nil
}

// pushTail sends the last blocks of this chain to peers through the
// registered gossip push.
func (s *State) pushTail() {
	s.mu.Lock()
	push := s.push
	n := len(s.tail)
	if n > maxPushBlocks {
		n = maxPushBlocks
	}
	blocks := append([]database.Block(nil), s.tail[len(s.tail)-n:]...)
	s.mu.Unlock()

	if push == nil || len(blocks) == 0 {
		return
	}

	s.evHandler("state: sync: pushing tip: blocks[%d]", len(blocks))
	push(blocks)
}

// syncWithPeer adopts the specified peer's chain. A divergence inside
// the tail reorganizes onto the peer's branch; a divergence deeper than
// the tail aborts. After switching, the local mempool is replaced with
// the peer's.
func (s *State) syncWithPeer(pr peer.Peer, peerHeight uint64) error {
	s.evHandler("state: sync: started: peer[%s] height[%d]", pr.HTTP, peerHeight)
	defer s.evHandler("state: sync: completed: peer[%s]", pr.HTTP)

	ancestor, err := s.findCommonAncestor(pr)
	if err != nil {
		return err
	}

	localHeight := s.Height()

	if ancestor+1 < localHeight {
		if err := s.reorgFromPeer(pr, ancestor, peerHeight); err != nil {
			return err
		}
	} else {
		if err := s.fastForward(pr, localHeight, peerHeight); err != nil {
			return err
		}
	}

	pool, err := s.queryPeerMempool(pr)
	if err != nil {
		s.evHandler("state: sync: queryPeerMempool: %s: ERROR: %s", pr.HTTP, err)
		return nil
	}

	s.mu.Lock()
	s.mempool.Replace(pool)
	s.mu.Unlock()

	return nil
}

// findCommonAncestor walks back from this node's tip comparing block
// hashes with the peer until they agree. The walk is bounded by the
// tail window.
func (s *State) findCommonAncestor(pr peer.Peer) (uint64, error) {
	s.mu.Lock()
	localHeight := s.height
	tail := append([]database.Block(nil), s.tail...)
	s.mu.Unlock()

	base := localHeight - uint64(len(tail))

	for i := len(tail) - 1; i >= 0; i-- {
		height := base + uint64(i)

		peerBlock, err := s.queryPeerBlock(pr, height)
		if err != nil {
			if errors.Is(err, errPeerNotFound) {
				continue
			}
			return 0, err
		}

		if peerBlock.Hash == tail[i].Hash {
			return height, nil
		}
	}

	return 0, ErrForkTooDeep
}

// fastForward applies the peer's blocks above this node's tip, batch by
// batch.
func (s *State) fastForward(pr peer.Peer, from, to uint64) error {
	for start := from; start < to; {
		end := start + maxSyncBatch
		if end > to {
			end = to
		}

		blocks, err := s.queryPeerBlocks(pr, start, end)
		if err != nil {
			return err
		}
		if len(blocks) == 0 {
			return fmt.Errorf("peer returned no blocks for [%d,%d)", start, end)
		}

		s.mu.Lock()
		for _, block := range blocks {
			if err := s.applyBlock(block, applyReplay); err != nil {
				s.mu.Unlock()
				return fmt.Errorf("apply synced block: %w", err)
			}
		}
		s.mu.Unlock()

		start += uint64(len(blocks))
	}

	return nil
}

// reorgFromPeer switches onto the peer's branch: it prefetches the full
// branch above the common ancestor, rebuilds the index up to the fork
// point, and applies the branch. Any failure restores the previous
// state intact.
func (s *State) reorgFromPeer(pr peer.Peer, ancestor, peerHeight uint64) error {
	var branch []database.Block
	for start := ancestor + 1; start < peerHeight; {
		end := start + maxSyncBatch
		if end > peerHeight {
			end = peerHeight
		}

		blocks, err := s.queryPeerBlocks(pr, start, end)
		if err != nil {
			return err
		}
		if len(blocks) == 0 {
			return fmt.Errorf("peer returned no blocks for [%d,%d)", start, end)
		}

		branch = append(branch, blocks...)
		start += uint64(len(blocks))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ancestor+1+uint64(len(branch)) <= s.height {
		return ErrChainNotPreferred
	}

	snap := s.snapshot()

	if err := s.rebuildTo(ancestor + 1); err != nil {
		s.restore(snap)
		return fmt.Errorf("rebuild to fork: %w", err)
	}

	for _, block := range branch {
		if err := s.applyBlock(block, applyReplay); err != nil {
			s.restore(snap)
			return fmt.Errorf("apply synced block: %w", err)
		}
	}

	return nil
}

// errPeerNotFound reports a 404 from a peer's read API.
var errPeerNotFound = errors.New("not found")

// queryPeerHeight asks the peer for its block count.
func (s *State) queryPeerHeight(pr peer.Peer) (uint64, error) {
	var result struct {
		Height uint64 `json:"height"`
	}
	if err := send(http.MethodGet, pr.HTTP+"/height", nil, &result); err != nil {
		return 0, err
	}

	return result.Height, nil
}

// queryPeerBlock fetches one block by height from the peer.
func (s *State) queryPeerBlock(pr peer.Peer, height uint64) (database.Block, error) {
	var block database.Block
	if err := send(http.MethodGet, fmt.Sprintf("%s/block/%d", pr.HTTP, height), nil, &block); err != nil {
		return database.Block{}, err
	}

	return block, nil
}

// queryPeerBlocks fetches the half-open height range [from, to) from
// the peer.
func (s *State) queryPeerBlocks(pr peer.Peer, from, to uint64) ([]database.Block, error) {
	var blocks []database.Block
	url := fmt.Sprintf("%s/blocks?start=%d&end=%d", pr.HTTP, from, to)
	if err := send(http.MethodGet, url, nil, &blocks); err != nil {
		return nil, err
	}

	return blocks, nil
}

// queryPeerMempool asks the peer for its current mempool.
func (s *State) queryPeerMempool(pr peer.Peer) ([]database.Tx, error) {
	var pool []database.Tx
	if err := send(http.MethodGet, pr.HTTP+"/mempool", nil, &pool); err != nil {
		return nil, err
	}

	return pool, nil
}

// send is a helper function to make an HTTP request to a peer node.
func send(method, url string, dataSend any, dataRecv any) error {
	var req *http.Request

	switch {
	case dataSend != nil:
		data, err := json.Marshal(dataSend)
		if err != nil {
			return err
		}
		req, err = http.NewRequest(method, url, bytes.NewReader(data))
		if err != nil {
			return err
		}

	default:
		var err error
		req, err = http.NewRequest(method, url, nil)
		if err != nil {
			return err
		}
	}

	client := http.Client{Timeout: httpTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errPeerNotFound
	}

	if resp.StatusCode != http.StatusOK {
		msg, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		return errors.New(string(msg))
	}

	if dataRecv != nil {
		if err := json.NewDecoder(resp.Body).Decode(dataRecv); err != nil {
			return err
		}
	}

	return nil
}
