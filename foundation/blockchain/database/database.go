// Package database maintains the chain's derived state: balances,
// locked balances, nonce high-water marks, the spent-signature window,
// and the mint registry. The index is rebuilt deterministically by
// replaying blocks in order, so it is never persisted.
package database

import (
	"sort"
	"sync"
)

// balanceKey identifies a spendable balance bucket. The native coin
// uses the empty token.
type balanceKey struct {
	Account AccountID
	Token   string
}

// Lock represents a balance that cannot be spent until its unlock time
// passes.
type Lock struct {
	Account  AccountID `json:"account"`
	Token    string    `json:"token,omitempty"`
	Amount   uint64    `json:"amount"`
	UnlockAt int64     `json:"unlock_at"`
}

// MintInfo records the registered parameters of a user token.
type MintInfo struct {
	Token        string `json:"token"`
	Airdrop      uint64 `json:"airdrop"`
	MiningReward uint64 `json:"miningReward,omitempty"`
}

// Index holds the derived state of the chain at its current tip.
type Index struct {
	mu sync.RWMutex

	balances  map[balanceKey]uint64
	locked    []Lock
	nonces    map[AccountID]uint64
	spent     map[string]struct{}
	spentFIFO []string
	spentMax  int
	mints     map[string]MintInfo
	mintOrder []string
}

// NewIndex constructs an empty index with the specified spent-signature
// window size.
func NewIndex(sigCacheSize int) *Index {
	return &Index{
		balances: make(map[balanceKey]uint64),
		nonces:   make(map[AccountID]uint64),
		spent:    make(map[string]struct{}),
		spentMax: sigCacheSize,
		mints:    make(map[string]MintInfo),
	}
}

// Balance returns the spendable balance of the account for the token.
// The empty token is the native coin.
func (idx *Index) Balance(account AccountID, token string) uint64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.balances[balanceKey{Account: account, Token: token}]
}

// LockedBalance returns the total amount still locked for the account
// and token across all pending locks.
func (idx *Index) LockedBalance(account AccountID, token string) uint64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var bal uint64
	for _, lb := range idx.locked {
		if lb.Account == account && lb.Token == token {
			bal += lb.Amount
		}
	}

	return bal
}

// Locks returns the pending locks for the account across all tokens.
func (idx *Index) Locks(account AccountID) []Lock {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var locks []Lock
	for _, lb := range idx.locked {
		if lb.Account == account {
			locks = append(locks, lb)
		}
	}

	return locks
}

// LastNonce returns the highest nonce committed for the account.
func (idx *Index) LastNonce(account AccountID) uint64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.nonces[account]
}

// IsSpent reports whether the signature is inside the spent window.
func (idx *Index) IsSpent(sig string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	_, exists := idx.spent[sig]
	return exists
}

// Minted returns the registered mint for the token, if any.
func (idx *Index) Minted(token string) (MintInfo, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	info, exists := idx.mints[token]
	return info, exists
}

// MintedCount returns the number of registered user tokens.
func (idx *Index) MintedCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.mints)
}

// TokenAt returns the i-th token in registration order.
func (idx *Index) TokenAt(i int) (MintInfo, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if i < 0 || i >= len(idx.mintOrder) {
		return MintInfo{}, false
	}

	return idx.mints[idx.mintOrder[i]], true
}

// TokensOf returns the sorted list of token symbols the account holds,
// spendable or locked. The native coin is reported as its reserved
// symbol when held.
func (idx *Index) TokensOf(account AccountID, nativeSymbol string) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	seen := make(map[string]struct{})
	for key, bal := range idx.balances {
		if key.Account == account && bal > 0 {
			seen[key.Token] = struct{}{}
		}
	}
	for _, lb := range idx.locked {
		if lb.Account == account && lb.Amount > 0 {
			seen[lb.Token] = struct{}{}
		}
	}

	tokens := make([]string, 0, len(seen))
	for token := range seen {
		if token == "" {
			token = nativeSymbol
		}
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)

	return tokens
}

// Release moves every lock whose unlock time has passed at the
// specified block timestamp back into the spendable balance of its
// account.
func (idx *Index) Release(blockTimestamp int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	remaining := idx.locked[:0]
	for _, lb := range idx.locked {
		if lb.UnlockAt <= blockTimestamp {
			idx.balances[balanceKey{Account: lb.Account, Token: lb.Token}] += lb.Amount
			continue
		}
		remaining = append(remaining, lb)
	}
	idx.locked = remaining
}

// ApplyTx applies one committed transaction to the index. The caller
// has already validated the transaction; application never fails.
func (idx *Index) ApplyTx(tx Tx, blockTimestamp int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if tx.Sender.IsAddress() {
		from := balanceKey{Account: tx.Sender.Account(), Token: tx.Token}
		if bal := idx.balances[from] - tx.Amount; bal > 0 {
			idx.balances[from] = bal
		} else {
			delete(idx.balances, from)
		}

		if tx.Nonce > idx.nonces[tx.Sender.Account()] {
			idx.nonces[tx.Sender.Account()] = tx.Nonce
		}

		idx.addSpent(tx.Signature)
	}

	if tx.Unlock > blockTimestamp {
		idx.locked = append(idx.locked, Lock{
			Account:  tx.Receiver,
			Token:    tx.Token,
			Amount:   tx.Amount,
			UnlockAt: tx.Unlock,
		})
	} else {
		idx.balances[balanceKey{Account: tx.Receiver, Token: tx.Token}] += tx.Amount
	}

	if tx.Mint != nil {
		if _, exists := idx.mints[tx.Mint.Token]; !exists {
			idx.mints[tx.Mint.Token] = MintInfo{
				Token:        tx.Mint.Token,
				Airdrop:      tx.Mint.Airdrop,
				MiningReward: tx.Mint.MiningReward,
			}
			idx.mintOrder = append(idx.mintOrder, tx.Mint.Token)
		}
	}
}

// addSpent records a signature in the FIFO spent window, evicting the
// oldest entry once the window is full. Callers hold the write lock.
func (idx *Index) addSpent(sig string) {
	if _, exists := idx.spent[sig]; exists {
		return
	}

	idx.spent[sig] = struct{}{}
	idx.spentFIFO = append(idx.spentFIFO, sig)

	if idx.spentMax > 0 && len(idx.spentFIFO) > idx.spentMax {
		oldest := idx.spentFIFO[0]
		idx.spentFIFO = idx.spentFIFO[1:]
		delete(idx.spent, oldest)
	}
}

// Clone returns a deep copy of the index. Reorgs snapshot the index
// before replay so a failed rebuild can restore the previous state.
func (idx *Index) Clone() *Index {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	clone := &Index{
		balances: make(map[balanceKey]uint64, len(idx.balances)),
		locked:   make([]Lock, len(idx.locked)),
		nonces:   make(map[AccountID]uint64, len(idx.nonces)),
		spent:    make(map[string]struct{}, len(idx.spent)),
		spentMax: idx.spentMax,
		mints:    make(map[string]MintInfo, len(idx.mints)),
	}

	for key, bal := range idx.balances {
		clone.balances[key] = bal
	}
	copy(clone.locked, idx.locked)
	for account, nonce := range idx.nonces {
		clone.nonces[account] = nonce
	}
	for sig := range idx.spent {
		clone.spent[sig] = struct{}{}
	}
	clone.spentFIFO = append([]string(nil), idx.spentFIFO...)
	for token, info := range idx.mints {
		clone.mints[token] = info
	}
	clone.mintOrder = append([]string(nil), idx.mintOrder...)

	return clone
}
