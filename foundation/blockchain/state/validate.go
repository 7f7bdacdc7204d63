package state

import (
	"errors"
	"fmt"
	"time"

	"github.com/flsschain/flss/foundation/blockchain/database"
	"github.com/flsschain/flss/foundation/blockchain/genesis"
	"github.com/flsschain/flss/foundation/blockchain/signature"
)

// Validation sentinels callers branch on.
var (
	ErrInvalidTx    = errors.New("invalid transaction")
	ErrInvalidBlock = errors.New("invalid block")
)

// futureSkewMillis is how far into the future a live block timestamp
// may run ahead of this node's clock.
const futureSkewMillis = 10_000

// applyMode selects which rules apply when a block is processed. Live
// blocks arriving over gossip face every rule; blocks replayed from
// disk or adopted during sync skip the rules that only make sense at
// the moment a block is first announced.
type applyMode int

const (
	applyLive applyMode = iota
	applyReplay
)

// rejectTx wraps a transaction rejection reason in ErrInvalidTx.
func rejectTx(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidTx, fmt.Sprintf(format, args...))
}

// rejectBlock wraps a block rejection reason in ErrInvalidBlock.
func rejectBlock(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidBlock, fmt.Sprintf(format, args...))
}

// validateTx checks one account-submitted transaction against the
// specified index at the specified height. Inside a block the index is
// the evolving clone, so earlier transactions in the block are already
// reflected.
func (s *State) validateTx(idx *database.Index, tx database.Tx, height uint64) error {
	if !tx.Sender.IsAddress() {
		return rejectTx("reserved sender %q cannot submit transactions", tx.Sender)
	}

	if err := tx.VerifySignature(); err != nil {
		return rejectTx("signature: %s", err)
	}

	if idx.IsSpent(tx.Signature) {
		return rejectTx("signature already spent")
	}

	if tx.Nonce <= idx.LastNonce(tx.Sender.Account()) {
		return rejectTx("nonce %d not above last committed %d", tx.Nonce, idx.LastNonce(tx.Sender.Account()))
	}

	if tx.Amount == 0 {
		return rejectTx("amount must be positive")
	}

	if tx.Unlock != 0 && tx.Unlock <= tx.Timestamp {
		return rejectTx("unlock %d must run past the timestamp %d", tx.Unlock, tx.Timestamp)
	}

	if tx.Token != "" {
		if _, exists := idx.Minted(tx.Token); !exists {
			return rejectTx("token %q does not exist", tx.Token)
		}
	}

	if tx.Mint != nil {
		if err := s.validateMint(idx, tx, height); err != nil {
			return err
		}
	}

	if bal := idx.Balance(tx.Sender.Account(), tx.Token); bal < tx.Amount {
		return rejectTx("insufficient funds, bal %d, needed %d", bal, tx.Amount)
	}

	return nil
}

// validateMint checks the mint payload of a transaction: a valid fresh
// symbol and the exact mint fee paid in native coin to the dev wallet.
func (s *State) validateMint(idx *database.Index, tx database.Tx, height uint64) error {
	mint := tx.Mint

	if !database.ValidTokenName(mint.Token) {
		return rejectTx("invalid token name %q", mint.Token)
	}

	if _, exists := idx.Minted(mint.Token); exists {
		return rejectTx("token %q already minted", mint.Token)
	}

	if tx.Token != "" {
		return rejectTx("mint fee must be paid in the native coin")
	}

	if tx.Unlock != 0 {
		return rejectTx("mint fee cannot be locked")
	}

	if tx.Receiver != database.AccountID(s.genesis.DevWallet) {
		return rejectTx("mint fee must be paid to the dev wallet")
	}

	if fee := s.genesis.MintFee(height, idx.MintedCount()); tx.Amount != fee {
		return rejectTx("mint fee is %d, got %d", fee, tx.Amount)
	}

	return nil
}

// checkBlock performs the structural validation of a candidate block at
// the specified height: chaining, difficulty, proof of work, proposer
// signature, timestamps, fill rate, and the protocol-issued reward and
// airdrop transactions. Per-transaction economics run later against the
// evolving index.
func (s *State) checkBlock(block database.Block, height uint64, mode applyMode) error {
	if block.PrevHash != s.lastHash() {
		return rejectBlock("prev hash %.16s does not chain to tip %.16s", block.PrevHash, s.lastHash())
	}

	target := s.genesis.Target(s.tailTimestamps())
	if block.Diff != genesis.TargetHex(target) {
		return rejectBlock("declared difficulty does not match the schedule")
	}

	if err := block.VerifyHash(); err != nil {
		return rejectBlock("%s", err)
	}

	hashValue, err := signature.ToBig(block.Hash)
	if err != nil {
		return rejectBlock("%s", err)
	}
	if hashValue.Cmp(target) > 0 {
		return rejectBlock("hash does not satisfy the difficulty target")
	}

	if err := block.VerifyProposer(); err != nil {
		return rejectBlock("proposer: %s", err)
	}

	if tip := s.tail[len(s.tail)-1]; block.Timestamp < tip.Timestamp {
		return rejectBlock("timestamp runs behind the tip")
	}

	if mode == applyLive {
		now := time.Now().UnixMilli()
		if block.Timestamp < now-s.genesis.BlockTimeMillis || block.Timestamp > now+futureSkewMillis {
			return rejectBlock("timestamp outside the live window")
		}

		pending := s.mempool.CountBefore(block.Timestamp)
		if accountTxs := len(block.Transactions) - 2; accountTxs < (3*pending)/4 {
			return rejectBlock("block carries %d account txs, mempool had %d pending", accountTxs, pending)
		}
	}

	if err := s.checkProtocolTxs(block, height, mode); err != nil {
		return err
	}

	return nil
}

// checkProtocolTxs validates the protocol-issued transactions of a
// block (the two reward payouts and any mint airdrops) and the
// one-transaction-per-sender limit.
func (s *State) checkProtocolTxs(block database.Block, height uint64, mode applyMode) error {
	var devPayout, proposerPayout int
	seenSenders := make(map[database.Sender]struct{})
	airdropTokens := make(map[string]struct{})

	for _, tx := range block.Transactions {
		switch {
		case tx.Sender.IsNetwork():
			if tx.Signature != database.NetworkSignature {
				return rejectBlock("network tx carries a foreign signature")
			}
			if tx.Mint != nil || tx.Unlock != 0 {
				return rejectBlock("network tx carries a payload")
			}

			if tx.Receiver == database.AccountID(s.genesis.DevWallet) && tx.Token == "" {
				if tx.Amount != s.genesis.DevCut(height) {
					return rejectBlock("dev payout is %d, want %d", tx.Amount, s.genesis.DevCut(height))
				}
				devPayout++
				continue
			}

			if err := s.checkProposerPayout(block, tx, height); err != nil {
				return err
			}
			proposerPayout++

		case tx.Sender.IsMint():
			if tx.Signature != database.MintSignature {
				return rejectBlock("airdrop tx carries a foreign signature")
			}
			if tx.Unlock != 0 {
				return rejectBlock("airdrop tx cannot be locked")
			}
			if _, dup := airdropTokens[tx.Token]; dup {
				return rejectBlock("duplicate airdrop for token %q", tx.Token)
			}
			airdropTokens[tx.Token] = struct{}{}

			mint, ok := s.findMint(block, tx.Token)
			if !ok {
				return rejectBlock("airdrop for unknown token %q", tx.Token)
			}
			if tx.Amount != mint.Airdrop {
				return rejectBlock("airdrop for %q is %d, want %d", tx.Token, tx.Amount, mint.Airdrop)
			}

		default:
			if _, dup := seenSenders[tx.Sender]; dup {
				return rejectBlock("sender %.16s appears twice", tx.Sender)
			}
			seenSenders[tx.Sender] = struct{}{}

			if mode == applyLive && !s.mempool.Contains(tx) {
				return rejectBlock("account tx %.16s not in the mempool", tx.Signature)
			}
		}
	}

	if devPayout != 1 || proposerPayout != 1 {
		return rejectBlock("block must carry exactly one dev payout and one proposer payout")
	}

	return nil
}

// checkProposerPayout validates the network transaction paying the
// block proposer: the miner cut in native coin, or the mining reward of
// a minable token.
func (s *State) checkProposerPayout(block database.Block, tx database.Tx, height uint64) error {
	if tx.Token == "" {
		if tx.Amount != s.genesis.MinerCut(height) {
			return rejectBlock("proposer payout is %d, want %d", tx.Amount, s.genesis.MinerCut(height))
		}
		return nil
	}

	mint, ok := s.findMint(block, tx.Token)
	if !ok {
		return rejectBlock("proposer payout in unknown token %q", tx.Token)
	}
	if mint.MiningReward == 0 {
		return rejectBlock("token %q is not minable", tx.Token)
	}
	if tx.Amount != mint.MiningReward {
		return rejectBlock("proposer payout in %q is %d, want %d", tx.Token, tx.Amount, mint.MiningReward)
	}

	return nil
}

// findMint resolves the parameters of a token from the registry, from a
// mint transaction inside the block itself, or from a pending mint in
// the mempool.
func (s *State) findMint(block database.Block, token string) (database.MintInfo, bool) {
	if info, exists := s.index.Minted(token); exists {
		return info, true
	}

	for _, tx := range block.Transactions {
		if tx.Mint != nil && tx.Mint.Token == token {
			return database.MintInfo{
				Token:        tx.Mint.Token,
				Airdrop:      tx.Mint.Airdrop,
				MiningReward: tx.Mint.MiningReward,
			}, true
		}
	}

	if tx, exists := s.mempool.PendingMint(token); exists {
		return database.MintInfo{
			Token:        tx.Mint.Token,
			Airdrop:      tx.Mint.Airdrop,
			MiningReward: tx.Mint.MiningReward,
		}, true
	}

	return database.MintInfo{}, false
}
