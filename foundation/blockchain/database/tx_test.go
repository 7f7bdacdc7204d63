package database_test

import (
	"testing"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/flsschain/flss/foundation/blockchain/database"
	"github.com/flsschain/flss/foundation/blockchain/signature"
)

func newAccount(t *testing.T) (*secp256k1.PrivateKey, database.AccountID) {
	t.Helper()

	privateKey, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	return privateKey, database.AccountID(signature.PublicKeyString(privateKey.PubKey()))
}

func TestSenderClassification(t *testing.T) {
	table := []struct {
		sender    database.Sender
		isNetwork bool
		isMint    bool
		isAddress bool
	}{
		{database.NetworkSender, true, false, false},
		{database.MintSender, false, true, false},
		{database.Sender("02abc"), false, false, true},
	}

	for i, tt := range table {
		if got := tt.sender.IsNetwork(); got != tt.isNetwork {
			t.Errorf("[case:%d] IsNetwork: expected %v, got %v", i, tt.isNetwork, got)
		}
		if got := tt.sender.IsMint(); got != tt.isMint {
			t.Errorf("[case:%d] IsMint: expected %v, got %v", i, tt.isMint, got)
		}
		if got := tt.sender.IsAddress(); got != tt.isAddress {
			t.Errorf("[case:%d] IsAddress: expected %v, got %v", i, tt.isAddress, got)
		}
	}
}

func TestValidTokenName(t *testing.T) {
	table := []struct {
		token string
		want  bool
	}{
		{"GOLD", true},
		{"A", true},
		{"ABCDEFGHIJKLMNOPQRS", true},
		{"ABCDEFGHIJKLMNOPQRST", false}, // 20 letters.
		{"", false},
		{"gold", false},
		{"GOLD1", false},
		{"FLSS", false},
		{"flss", false},
	}

	for i, tt := range table {
		if got := database.ValidTokenName(tt.token); got != tt.want {
			t.Errorf("[case:%d] %q: expected %v, got %v", i, tt.token, tt.want, got)
		}
	}
}

func TestTxSignVerify(t *testing.T) {
	privateKey, account := newAccount(t)
	_, receiver := newAccount(t)

	tx := database.Tx{
		Sender:    database.Sender(account),
		Receiver:  receiver,
		Amount:    100,
		Nonce:     1,
		Timestamp: time.Now().UnixMilli(),
	}

	if err := tx.Sign(privateKey); err != nil {
		t.Fatalf("sign: %v", err)
	}

	if err := tx.VerifySignature(); err != nil {
		t.Errorf("verify: unexpected error: %v", err)
	}

	tampered := tx
	tampered.Amount = 101
	if err := tampered.VerifySignature(); err == nil {
		t.Error("error: verify accepted a tampered amount")
	}
}

func TestTxVerifyWrongSender(t *testing.T) {
	privateKey, _ := newAccount(t)
	_, otherAccount := newAccount(t)
	_, receiver := newAccount(t)

	tx := database.Tx{
		Sender:   database.Sender(otherAccount),
		Receiver: receiver,
		Amount:   100,
		Nonce:    1,
	}

	if err := tx.Sign(privateKey); err != nil {
		t.Fatalf("sign: %v", err)
	}

	if err := tx.VerifySignature(); err == nil {
		t.Error("error: verify accepted a signature from a key that is not the sender")
	}
}

func TestTxVerifyReservedSender(t *testing.T) {
	tx := database.Tx{
		Sender:    database.MintSender,
		Signature: database.MintSignature,
	}

	if err := tx.VerifySignature(); err == nil {
		t.Error("error: reserved senders must not verify")
	}
}

func TestSameIdentity(t *testing.T) {
	base := database.Tx{
		Sender:    "02aa",
		Receiver:  "02bb",
		Amount:    100,
		Signature: "sig",
		Nonce:     1,
		Timestamp: 1000,
	}

	same := base
	same.Timestamp = 2000 // Timestamp is not part of the identity.
	if !base.SameIdentity(same) {
		t.Error("error: expected matching identity")
	}

	table := []func(tx *database.Tx){
		func(tx *database.Tx) { tx.Signature = "other" },
		func(tx *database.Tx) { tx.Amount = 101 },
		func(tx *database.Tx) { tx.Nonce = 2 },
		func(tx *database.Tx) { tx.Sender = "02cc" },
		func(tx *database.Tx) { tx.Receiver = "02cc" },
		func(tx *database.Tx) { tx.Token = "GOLD" },
	}

	for i, mutate := range table {
		other := base
		mutate(&other)
		if base.SameIdentity(other) {
			t.Errorf("[case:%d] expected differing identity", i)
		}
	}
}
