package database_test

import (
	"testing"
	"time"

	"github.com/flsschain/flss/foundation/blockchain/database"
	"github.com/flsschain/flss/foundation/blockchain/signature"
)

func TestBlockSeal(t *testing.T) {
	privateKey, account := newAccount(t)
	_, receiver := newAccount(t)

	block := database.Block{
		Timestamp: time.Now().UnixMilli(),
		Transactions: []database.Tx{
			{Sender: database.NetworkSender, Receiver: receiver, Amount: 50, Signature: database.NetworkSignature},
		},
		PrevHash: signature.ZeroHash,
		Diff:     "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff",
	}

	if err := block.Seal(privateKey); err != nil {
		t.Fatalf("seal: %v", err)
	}

	if block.Proposer != string(account) {
		t.Errorf("expected proposer %s, got %s", account, block.Proposer)
	}

	if err := block.VerifyHash(); err != nil {
		t.Errorf("verify hash: unexpected error: %v", err)
	}
	if err := block.VerifyProposer(); err != nil {
		t.Errorf("verify proposer: unexpected error: %v", err)
	}
}

func TestBlockVerifyHashDetectsTamper(t *testing.T) {
	privateKey, _ := newAccount(t)

	block := database.Block{
		Timestamp: time.Now().UnixMilli(),
		PrevHash:  signature.ZeroHash,
		Diff:      "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff",
	}

	if err := block.Seal(privateKey); err != nil {
		t.Fatalf("seal: %v", err)
	}

	block.Nonce++
	if err := block.VerifyHash(); err == nil {
		t.Error("error: expected a hash mismatch after changing the nonce")
	}
	if err := block.VerifyProposer(); err == nil {
		t.Error("error: expected a signature mismatch after changing the nonce")
	}
}

func TestBlockNonceChangesHash(t *testing.T) {
	block := database.Block{
		Timestamp: 1000,
		PrevHash:  signature.ZeroHash,
	}

	h1, err := block.ComputeHash()
	if err != nil {
		t.Fatalf("compute hash: %v", err)
	}

	block.Nonce = 1
	h2, err := block.ComputeHash()
	if err != nil {
		t.Fatalf("compute hash: %v", err)
	}

	if h1 == h2 {
		t.Error("error: expected the nonce to change the hash")
	}
}

func TestBlockVerifyProposerMissing(t *testing.T) {
	block := database.Block{Timestamp: 1000}
	if err := block.VerifyProposer(); err == nil {
		t.Error("error: expected an error for a block with no proposer")
	}
}
