package state

import (
	"fmt"

	"github.com/flsschain/flss/foundation/blockchain/database"
	"github.com/flsschain/flss/foundation/events"
)

// BlockCommit is the payload published on the event bus when a block
// commits.
type BlockCommit struct {
	Height uint64
	Block  database.Block
}

// SubmitBlock accepts a freshly announced block as the new tip. The
// full rule set applies, including the live timestamp window and the
// mempool fill checks.
func (s *State) SubmitBlock(block database.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.applyBlock(block, applyLive); err != nil {
		return err
	}

	s.evHandler("state: SubmitBlock: accepted block[%d] hash[%.16s] txs[%d]", s.height-1, block.Hash, len(block.Transactions))

	return nil
}

// applyBlock validates the block at the current tip and commits it.
// All work happens on a clone of the index, so a rejection at any point
// leaves the chain state untouched. Callers hold the mutex.
func (s *State) applyBlock(block database.Block, mode applyMode) error {
	height := s.height

	if err := s.checkBlock(block, height, mode); err != nil {
		return err
	}

	clone := s.index.Clone()
	clone.Release(block.Timestamp)

	for _, tx := range block.Transactions {
		if tx.Sender.IsAddress() {
			if err := s.validateTx(clone, tx, height); err != nil {
				return fmt.Errorf("tx %.16s: %w", tx.Signature, err)
			}
		}
		clone.ApplyTx(tx, block.Timestamp)
	}

	if err := s.storage.Write(height, block); err != nil {
		return fmt.Errorf("persist block %d: %w", height, err)
	}

	s.index = clone
	s.height = height + 1
	s.appendTail(block)

	for _, tx := range block.Transactions {
		s.mempool.Remove(tx)
	}

	s.publishCommit(height, block)

	return nil
}

// publishCommit emits the post-commit events for a block. Callers hold
// the mutex; consumers must not call back into the state.
func (s *State) publishCommit(height uint64, block database.Block) {
	s.events.Publish(events.Event{
		Name: events.BlockCommitted,
		Data: BlockCommit{Height: height, Block: block},
	})

	for _, tx := range block.Transactions {
		if tx.Mint != nil {
			s.events.Publish(events.Event{
				Name: events.MintCreated,
				Data: database.MintInfo{
					Token:        tx.Mint.Token,
					Airdrop:      tx.Mint.Airdrop,
					MiningReward: tx.Mint.MiningReward,
				},
			})
		}
	}
}
