// Package mempool maintains the ordered set of pending transactions.
//
// Each ordinary account may hold at most one pending transaction at a
// time; a second submission from the same sender is refused until the
// first commits or is cleared. Protocol-issued transactions (reserved
// senders) are exempt from the guard.
package mempool

import (
	"errors"
	"sync"

	"github.com/flsschain/flss/foundation/blockchain/database"
)

// ErrSenderPending is returned when an account already has a pending
// transaction in the pool.
var ErrSenderPending = errors.New("account already has a pending transaction")

// Mempool represents the pending transactions in arrival order.
type Mempool struct {
	mu      sync.RWMutex
	pool    []database.Tx
	pending map[database.AccountID]struct{}
}

// New constructs an empty mempool.
func New() *Mempool {
	return &Mempool{
		pending: make(map[database.AccountID]struct{}),
	}
}

// Count returns the current number of transactions in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// CountBefore returns the number of pooled transactions whose timestamp
// is at or before the specified time. Block fill checks use this so
// transactions that arrived after a candidate block was formed do not
// count against it.
func (mp *Mempool) CountBefore(timestamp int64) int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	var count int
	for _, tx := range mp.pool {
		if tx.Timestamp <= timestamp {
			count++
		}
	}

	return count
}

// Add appends a transaction to the pool. Address senders are limited to
// one pending transaction each.
func (mp *Mempool) Add(tx database.Tx) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if tx.Sender.IsAddress() {
		if _, exists := mp.pending[tx.Sender.Account()]; exists {
			return ErrSenderPending
		}
		mp.pending[tx.Sender.Account()] = struct{}{}
	}

	mp.pool = append(mp.pool, tx)

	return nil
}

// Remove clears every pooled transaction matching the identity of the
// specified transaction. Committed blocks call this for each of their
// transactions.
func (mp *Mempool) Remove(tx database.Tx) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	kept := mp.pool[:0]
	for _, pooled := range mp.pool {
		if pooled.SameIdentity(tx) {
			if pooled.Sender.IsAddress() {
				delete(mp.pending, pooled.Sender.Account())
			}
			continue
		}
		kept = append(kept, pooled)
	}
	mp.pool = kept
}

// Contains reports whether a transaction with the specified identity is
// in the pool.
func (mp *Mempool) Contains(tx database.Tx) bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	for _, pooled := range mp.pool {
		if pooled.SameIdentity(tx) {
			return true
		}
	}

	return false
}

// PendingMint returns the first pooled mint transaction for the token,
// if any. Validation consults this when a block pays a reward in a
// token whose mint has not committed yet.
func (mp *Mempool) PendingMint(token string) (database.Tx, bool) {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	for _, pooled := range mp.pool {
		if pooled.Mint != nil && pooled.Mint.Token == token {
			return pooled, true
		}
	}

	return database.Tx{}, false
}

// Copy returns the pooled transactions in arrival order.
func (mp *Mempool) Copy() []database.Tx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return append([]database.Tx(nil), mp.pool...)
}

// Replace swaps the pool contents for the specified transactions. Sync
// uses this to adopt a peer's mempool after switching chains.
func (mp *Mempool) Replace(txs []database.Tx) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = append([]database.Tx(nil), txs...)
	mp.pending = make(map[database.AccountID]struct{})
	for _, tx := range txs {
		if tx.Sender.IsAddress() {
			mp.pending[tx.Sender.Account()] = struct{}{}
		}
	}
}

// Truncate drops every pooled transaction.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = nil
	mp.pending = make(map[database.AccountID]struct{})
}
