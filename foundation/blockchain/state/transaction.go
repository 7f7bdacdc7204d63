package state

import (
	"fmt"

	"github.com/flsschain/flss/foundation/blockchain/database"
)

// SubmitTx accepts a signed transaction from an account for inclusion
// in a future block. A mint transaction with an airdrop also places the
// protocol-issued airdrop transaction in the pool so proposers carry
// the two together.
func (s *State) SubmitTx(tx database.Tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validateTx(s.index, tx, s.height); err != nil {
		return err
	}

	if tx.Mint != nil {
		if _, exists := s.mempool.PendingMint(tx.Mint.Token); exists {
			return rejectTx("mint for token %q already pending", tx.Mint.Token)
		}
	}

	if err := s.mempool.Add(tx); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidTx, err)
	}

	if tx.Mint != nil && tx.Mint.Airdrop > 0 {
		airdrop := database.Tx{
			Sender:    database.MintSender,
			Receiver:  tx.Sender.Account(),
			Amount:    tx.Mint.Airdrop,
			Signature: database.MintSignature,
			Timestamp: tx.Timestamp,
			Token:     tx.Mint.Token,
		}
		if err := s.mempool.Add(airdrop); err != nil {
			return fmt.Errorf("queue airdrop: %w", err)
		}
	}

	s.evHandler("state: SubmitTx: accepted tx[%.16s] from[%.16s]", tx.Signature, tx.Sender)

	return nil
}
