package state

import (
	"errors"
	"fmt"

	"github.com/flsschain/flss/foundation/blockchain/database"
)

// maxPushBlocks is the longest sub-chain a peer may push. Forks deeper
// than this resolve through pull sync instead.
const maxPushBlocks = 15

// Push rejection sentinels. ErrForkTooDeep and ErrUnknownAncestor
// signal the caller to fall back to a full pull sync;
// ErrChainNotPreferred reports a branch that is not longer than the
// current chain.
var (
	ErrForkTooDeep       = errors.New("fork deeper than the reorg window")
	ErrUnknownAncestor   = errors.New("sub-chain does not attach to this chain")
	ErrChainNotPreferred = errors.New("pushed chain is not longer than the current chain")
)

// snapshot captures everything a failed reorg must restore.
type snapshot struct {
	index   *database.Index
	height  uint64
	tail    []database.Block
	mempool []database.Tx
}

// ApplyPush resolves a peer-pushed sub-chain against the current chain.
// The sub-chain must attach to a block inside the tail and produce a
// strictly longer chain. The index is rebuilt by replaying the stored
// chain up to the fork point and then applying the pushed blocks; any
// failure restores the previous state intact.
func (s *State) ApplyPush(subChain []database.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(subChain) == 0 {
		return nil
	}
	if len(subChain) > maxPushBlocks {
		return fmt.Errorf("%w: %d blocks pushed", ErrForkTooDeep, len(subChain))
	}

	tipHash := subChain[len(subChain)-1].Hash
	if tipHash == s.lastSeenPush {
		return nil
	}
	s.lastSeenPush = tipHash

	if tipHash == s.lastHash() {
		return nil
	}

	forkHeight, err := s.findAncestor(subChain[0].PrevHash)
	if err != nil {
		return err
	}

	if forkHeight+uint64(len(subChain)) <= s.height {
		return ErrChainNotPreferred
	}

	snap := s.snapshot()

	if forkHeight < s.height {
		s.evHandler("state: ApplyPush: reorg: fork at height[%d], current[%d]", forkHeight, s.height)
		if err := s.rebuildTo(forkHeight); err != nil {
			s.restore(snap)
			return fmt.Errorf("rebuild to fork: %w", err)
		}
	}

	for _, block := range subChain {
		if err := s.applyBlock(block, applyReplay); err != nil {
			s.restore(snap)
			return fmt.Errorf("apply pushed block: %w", err)
		}
	}

	s.evHandler("state: ApplyPush: switched to chain tip[%.16s] height[%d]", tipHash, s.height)

	return nil
}

// findAncestor locates the height at which a sub-chain starting after
// the specified hash would attach. The walk is bounded by the tail.
func (s *State) findAncestor(prevHash string) (uint64, error) {
	base := s.height - uint64(len(s.tail))
	for i := len(s.tail) - 1; i >= 0; i-- {
		if s.tail[i].Hash == prevHash {
			return base + uint64(i) + 1, nil
		}
	}

	return 0, ErrUnknownAncestor
}

// snapshot captures the current chain state. Callers hold the mutex.
func (s *State) snapshot() snapshot {
	return snapshot{
		index:   s.index,
		height:  s.height,
		tail:    append([]database.Block(nil), s.tail...),
		mempool: s.mempool.Copy(),
	}
}

// restore puts a snapshot back in place. Callers hold the mutex.
func (s *State) restore(snap snapshot) {
	s.index = snap.index
	s.height = snap.height
	s.tail = snap.tail
	s.mempool.Replace(snap.mempool)
}

// rebuildTo resets the index to the chain state just before the
// specified height by replaying the stored blocks. Stored blocks were
// validated when first committed, so replay applies them directly.
func (s *State) rebuildTo(forkHeight uint64) error {
	index := database.NewIndex(s.genesis.SigCacheSize)
	var tail []database.Block

	for height := uint64(0); height < forkHeight; height++ {
		block, err := s.storage.GetBlock(height)
		if err != nil {
			return fmt.Errorf("read block %d: %w", height, err)
		}

		index.Release(block.Timestamp)
		for _, tx := range block.Transactions {
			index.ApplyTx(tx, block.Timestamp)
		}

		tail = append(tail, block)
		if max := s.genesis.Tail; max > 0 && len(tail) > max {
			tail = tail[len(tail)-max:]
		}
	}

	s.index = index
	s.height = forkHeight
	s.tail = tail

	return nil
}
