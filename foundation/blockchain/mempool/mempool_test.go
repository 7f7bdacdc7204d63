package mempool_test

import (
	"errors"
	"testing"

	"github.com/flsschain/flss/foundation/blockchain/database"
	"github.com/flsschain/flss/foundation/blockchain/mempool"
)

func tx(sender database.Sender, sig string, nonce uint64) database.Tx {
	return database.Tx{
		Sender:    sender,
		Receiver:  "02bb",
		Amount:    10,
		Signature: sig,
		Nonce:     nonce,
		Timestamp: 1000,
	}
}

func TestOnePendingPerSender(t *testing.T) {
	mp := mempool.New()

	if err := mp.Add(tx("02aa", "sig1", 1)); err != nil {
		t.Fatalf("add: %v", err)
	}

	err := mp.Add(tx("02aa", "sig2", 2))
	if !errors.Is(err, mempool.ErrSenderPending) {
		t.Errorf("expected ErrSenderPending, got %v", err)
	}

	if got := mp.Count(); got != 1 {
		t.Errorf("expected 1 pooled tx, got %d", got)
	}

	// Committing the first frees the slot.
	mp.Remove(tx("02aa", "sig1", 1))
	if err := mp.Add(tx("02aa", "sig2", 2)); err != nil {
		t.Errorf("expected the slot to be free, got %v", err)
	}
}

func TestReservedSendersExempt(t *testing.T) {
	mp := mempool.New()

	if err := mp.Add(tx(database.MintSender, database.MintSignature, 0)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := mp.Add(tx(database.MintSender, database.MintSignature, 0)); err != nil {
		t.Errorf("reserved senders must not be limited, got %v", err)
	}
}

func TestCountBefore(t *testing.T) {
	mp := mempool.New()

	early := tx("02aa", "sig1", 1)
	early.Timestamp = 500
	late := tx("02bb", "sig2", 1)
	late.Timestamp = 2000

	mp.Add(early)
	mp.Add(late)

	if got := mp.CountBefore(1000); got != 1 {
		t.Errorf("expected 1 tx at or before 1000, got %d", got)
	}
	if got := mp.CountBefore(2000); got != 2 {
		t.Errorf("expected 2 txs at or before 2000, got %d", got)
	}
	if got := mp.CountBefore(100); got != 0 {
		t.Errorf("expected 0 txs at or before 100, got %d", got)
	}
}

func TestContains(t *testing.T) {
	mp := mempool.New()
	submitted := tx("02aa", "sig1", 1)
	mp.Add(submitted)

	if !mp.Contains(submitted) {
		t.Error("expected the pool to contain the submitted tx")
	}

	other := submitted
	other.Signature = "sig2"
	if mp.Contains(other) {
		t.Error("expected a differing identity to be absent")
	}
}

func TestPendingMint(t *testing.T) {
	mp := mempool.New()

	mintTx := tx("02aa", "sig1", 1)
	mintTx.Mint = &database.Mint{Token: "GOLD", Airdrop: 500}
	mp.Add(mintTx)

	got, exists := mp.PendingMint("GOLD")
	if !exists {
		t.Fatal("expected a pending mint for GOLD")
	}
	if got.Mint.Airdrop != 500 {
		t.Errorf("expected airdrop 500, got %d", got.Mint.Airdrop)
	}

	if _, exists := mp.PendingMint("ZINC"); exists {
		t.Error("expected no pending mint for ZINC")
	}
}

func TestCopyOrder(t *testing.T) {
	mp := mempool.New()
	mp.Add(tx("02aa", "sig1", 1))
	mp.Add(tx("02bb", "sig2", 1))
	mp.Add(tx("02cc", "sig3", 1))

	pool := mp.Copy()
	if len(pool) != 3 {
		t.Fatalf("expected 3 txs, got %d", len(pool))
	}
	for i, want := range []string{"sig1", "sig2", "sig3"} {
		if pool[i].Signature != want {
			t.Errorf("position %d: expected %s, got %s", i, want, pool[i].Signature)
		}
	}
}

func TestReplace(t *testing.T) {
	mp := mempool.New()
	mp.Add(tx("02aa", "sig1", 1))

	mp.Replace([]database.Tx{tx("02bb", "sig2", 1)})

	if got := mp.Count(); got != 1 {
		t.Fatalf("expected 1 tx after replace, got %d", got)
	}

	// The old sender's slot is released, the new sender's slot is taken.
	if err := mp.Add(tx("02aa", "sig3", 2)); err != nil {
		t.Errorf("expected the replaced sender's slot to be free, got %v", err)
	}
	if err := mp.Add(tx("02bb", "sig4", 2)); !errors.Is(err, mempool.ErrSenderPending) {
		t.Errorf("expected ErrSenderPending for the adopted sender, got %v", err)
	}
}

func TestTruncate(t *testing.T) {
	mp := mempool.New()
	mp.Add(tx("02aa", "sig1", 1))
	mp.Add(tx("02bb", "sig2", 1))

	mp.Truncate()

	if got := mp.Count(); got != 0 {
		t.Errorf("expected an empty pool, got %d", got)
	}
	if err := mp.Add(tx("02aa", "sig3", 2)); err != nil {
		t.Errorf("expected all slots free after truncate, got %v", err)
	}
}
