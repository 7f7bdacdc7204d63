package state

import (
	"strings"

	"github.com/flsschain/flss/foundation/blockchain/database"
	"github.com/flsschain/flss/foundation/blockchain/genesis"
	"github.com/flsschain/flss/foundation/blockchain/peer"
)

// Genesis returns the protocol parameters the chain runs with.
func (s *State) Genesis() genesis.Genesis {
	return s.genesis
}

// Height returns the number of committed blocks.
func (s *State) Height() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.height
}

// LatestBlock returns the current tip.
func (s *State) LatestBlock() database.Block {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.tail[len(s.tail)-1]
}

// Diff returns the difficulty target the next block must satisfy, in
// the hex form blocks declare.
func (s *State) Diff() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return genesis.TargetHex(s.genesis.Target(s.tailTimestamps()))
}

// MintFee returns the fee the next token mint must pay.
func (s *State) MintFee() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.genesis.MintFee(s.height, s.index.MintedCount())
}

// Reward returns the full block reward at the next height.
func (s *State) Reward() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.genesis.Reward(s.height)
}

// Balance returns the spendable balance of the account for the token.
// The native coin may be named by its reserved symbol or by the empty
// string.
func (s *State) Balance(account database.AccountID, token string) uint64 {
	if strings.EqualFold(token, genesis.NativeToken) {
		token = ""
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.index.Balance(account, token)
}

// LockedBalance returns the locked balance of the account for the
// token.
func (s *State) LockedBalance(account database.AccountID, token string) uint64 {
	if strings.EqualFold(token, genesis.NativeToken) {
		token = ""
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.index.LockedBalance(account, token)
}

// Locks returns the pending locks for the account.
func (s *State) Locks(account database.AccountID) []database.Lock {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.index.Locks(account)
}

// BalanceMempool returns the balance of the account for the token as it
// would stand if every pending transaction committed right now: pending
// spends subtracted, pending unlocked receipts added.
func (s *State) BalanceMempool(account database.AccountID, token string) uint64 {
	if strings.EqualFold(token, genesis.NativeToken) {
		token = ""
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bal := s.index.Balance(account, token)
	for _, tx := range s.mempool.Copy() {
		if tx.Token != token {
			continue
		}
		if tx.Sender.IsAddress() && tx.Sender.Account() == account {
			if tx.Amount > bal {
				bal = 0
				continue
			}
			bal -= tx.Amount
		}
		if tx.Receiver == account && tx.Unlock == 0 {
			bal += tx.Amount
		}
	}

	return bal
}

// TokensOf returns the sorted token symbols the account holds.
func (s *State) TokensOf(account database.AccountID) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.index.TokensOf(account, genesis.NativeToken)
}

// TokenInfo returns the registered parameters of a token.
func (s *State) TokenInfo(token string) (database.MintInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.index.Minted(token)
}

// TokenCount returns the number of registered tokens.
func (s *State) TokenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.index.MintedCount()
}

// TokenAt returns the i-th registered token in mint order.
func (s *State) TokenAt(i int) (database.MintInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.index.TokenAt(i)
}

// MempoolCopy returns the pending transactions in arrival order.
func (s *State) MempoolCopy() []database.Tx {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mempool.Copy()
}

// MempoolCount returns the number of pending transactions.
func (s *State) MempoolCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mempool.Count()
}

// GetBlock reads the committed block at the specified height.
func (s *State) GetBlock(height uint64) (database.Block, error) {
	return s.storage.GetBlock(height)
}

// GetBlocks reads the committed blocks in the half-open range
// [from, to), capped at the sync batch limit.
func (s *State) GetBlocks(from, to uint64) ([]database.Block, error) {
	height := s.Height()
	if to > height {
		to = height
	}
	if from >= to {
		return nil, nil
	}
	if to-from > maxSyncBatch {
		to = from + maxSyncBatch
	}

	blocks := make([]database.Block, 0, to-from)
	for h := from; h < to; h++ {
		block, err := s.storage.GetBlock(h)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}

	return blocks, nil
}

// TxRecord pairs a transaction with the block that committed it.
type TxRecord struct {
	Height    uint64      `json:"height"`
	BlockHash string      `json:"block_hash"`
	Tx        database.Tx `json:"tx"`
}

// History walks the chain and returns every committed transaction the
// account sent or received, oldest first.
func (s *State) History(account database.AccountID) ([]TxRecord, error) {
	height := s.Height()

	var records []TxRecord
	for h := uint64(0); h < height; h++ {
		block, err := s.storage.GetBlock(h)
		if err != nil {
			return nil, err
		}

		for _, tx := range block.Transactions {
			if tx.Receiver == account || (tx.Sender.IsAddress() && tx.Sender.Account() == account) {
				records = append(records, TxRecord{Height: h, BlockHash: block.Hash, Tx: tx})
			}
		}
	}

	return records, nil
}

// SearchBlockByHash walks the chain for the block with the specified
// hash.
func (s *State) SearchBlockByHash(hash string) (database.Block, uint64, bool) {
	height := s.Height()

	for h := uint64(0); h < height; h++ {
		block, err := s.storage.GetBlock(h)
		if err != nil {
			return database.Block{}, 0, false
		}
		if block.Hash == hash {
			return block, h, true
		}
	}

	return database.Block{}, 0, false
}

// SearchTx walks the chain for the transaction with the specified
// signature.
func (s *State) SearchTx(sig string) (TxRecord, bool) {
	height := s.Height()

	for h := uint64(0); h < height; h++ {
		block, err := s.storage.GetBlock(h)
		if err != nil {
			return TxRecord{}, false
		}
		for _, tx := range block.Transactions {
			if tx.Signature == sig {
				return TxRecord{Height: h, BlockHash: block.Hash, Tx: tx}, true
			}
		}
	}

	return TxRecord{}, false
}

// KnownPeers returns the current peer list.
func (s *State) KnownPeers() []peer.Peer {
	return s.knownPeers.Copy()
}
