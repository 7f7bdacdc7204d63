package database

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/flsschain/flss/foundation/blockchain/signature"
)

// Reserved signature literals carried by protocol-issued transactions.
const (
	NetworkSignature = "network"
	MintSignature    = "mint"
)

// AccountID represents an account address: the hex encoding of a
// compressed secp256k1 public key.
type AccountID string

// Sender identifies the origin of a transaction. It is a discriminated
// value: either an account address, or one of the two reserved protocol
// identities that never correspond to a key pair.
type Sender string

// The reserved protocol senders.
const (
	NetworkSender Sender = "network"
	MintSender    Sender = "mint"
)

// IsNetwork reports whether the sender is the protocol reward identity.
func (s Sender) IsNetwork() bool { return s == NetworkSender }

// IsMint reports whether the sender is the protocol airdrop identity.
func (s Sender) IsMint() bool { return s == MintSender }

// IsAddress reports whether the sender is an ordinary account address.
func (s Sender) IsAddress() bool { return !s.IsNetwork() && !s.IsMint() }

// Account returns the sender as an account id. Only meaningful when
// IsAddress reports true.
func (s Sender) Account() AccountID { return AccountID(s) }

// tokenRE constrains user token symbols.
var tokenRE = regexp.MustCompile(`^[A-Z]{1,19}$`)

// ValidTokenName reports whether the symbol is an acceptable name for a
// newly minted token. The native coin symbol is refused in any casing.
func ValidTokenName(token string) bool {
	if !tokenRE.MatchString(token) {
		return false
	}

	return !strings.EqualFold(token, "FLSS")
}

// Mint describes the creation of a new token carried inside a
// transaction: the symbol, the one-time airdrop paid to the minter, and
// an optional per-block mining reward that makes the token minable.
type Mint struct {
	Token        string `json:"token"`
	Airdrop      uint64 `json:"airdrop"`
	MiningReward uint64 `json:"miningReward,omitempty"`
}

// Tx is the transactional unit of the chain.
//
// Field order is load-bearing: hashing and signing operate on the
// canonical JSON encoding of the value, which is the declaration order
// below with zero-valued optional fields omitted.
type Tx struct {
	Sender    Sender    `json:"sender"`
	Receiver  AccountID `json:"receiver"`
	Amount    uint64    `json:"amount"`
	Signature string    `json:"signature"`
	Nonce     uint64    `json:"nonce"`
	Timestamp int64     `json:"timestamp"`
	Token     string    `json:"token,omitempty"`
	Unlock    int64     `json:"unlock,omitempty"`
	Mint      *Mint     `json:"mint,omitempty"`
}

// signingPayload returns the transaction with the signature blanked,
// which is the value account holders sign.
func (tx Tx) signingPayload() Tx {
	tx.Signature = ""
	return tx
}

// Sign signs the transaction with the private key whose public key is
// the sender address and stores the DER hex signature on the value.
func (tx *Tx) Sign(privateKey *secp256k1.PrivateKey) error {
	sig, err := signature.Sign(tx.signingPayload(), privateKey)
	if err != nil {
		return fmt.Errorf("sign tx: %w", err)
	}

	tx.Signature = sig

	return nil
}

// VerifySignature checks the transaction signature against the sender
// address. Only valid for address senders.
func (tx Tx) VerifySignature() error {
	if !tx.Sender.IsAddress() {
		return errors.New("reserved sender carries no verifiable signature")
	}

	return signature.Verify(tx.signingPayload(), tx.Signature, string(tx.Sender))
}

// SameIdentity reports whether two transactions refer to the same
// submission: matching signature, amount, nonce, sender, receiver and
// token. This is the tuple used to clear mempool entries when a block
// containing them commits.
func (tx Tx) SameIdentity(other Tx) bool {
	return tx.Signature == other.Signature &&
		tx.Amount == other.Amount &&
		tx.Nonce == other.Nonce &&
		tx.Sender == other.Sender &&
		tx.Receiver == other.Receiver &&
		tx.Token == other.Token
}
