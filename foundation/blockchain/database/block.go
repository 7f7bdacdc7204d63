package database

import (
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/flsschain/flss/foundation/blockchain/signature"
)

// Block represents a proposer-signed batch of transactions chained to
// its predecessor by hash.
//
// Field order is load-bearing: the proof-of-work hash and the proposer
// signature cover the canonical JSON encoding with Hash and Signature
// blanked, which is the declaration order below.
type Block struct {
	Timestamp    int64  `json:"timestamp"`
	Transactions []Tx   `json:"transactions"`
	PrevHash     string `json:"prev_hash"`
	Nonce        uint64 `json:"nonce"`
	Signature    string `json:"signature"`
	Proposer     string `json:"proposer"`
	Hash         string `json:"hash"`
	Diff         string `json:"diff"`
}

// sealPayload returns the block with the hash and signature blanked,
// which is the value both the proof-of-work hash and the proposer
// signature cover.
func (b Block) sealPayload() Block {
	b.Hash = ""
	b.Signature = ""
	return b
}

// ComputeHash recomputes the proof-of-work hash for the block.
func (b Block) ComputeHash() (string, error) {
	return signature.PowHash(b.sealPayload())
}

// VerifyHash checks the declared hash against a recomputation.
func (b Block) VerifyHash() error {
	hash, err := b.ComputeHash()
	if err != nil {
		return err
	}

	if hash != b.Hash {
		return fmt.Errorf("declared hash %.16s does not match computed %.16s", b.Hash, hash)
	}

	return nil
}

// VerifyProposer checks the proposer signature over the sealed payload.
func (b Block) VerifyProposer() error {
	if b.Proposer == "" {
		return errors.New("block carries no proposer")
	}

	return signature.Verify(b.sealPayload(), b.Signature, b.Proposer)
}

// Seal finalizes a candidate block: it stamps the proposer, computes the
// proof-of-work hash for the current nonce, and signs the payload. The
// caller iterates the nonce until the hash satisfies the target.
func (b *Block) Seal(privateKey *secp256k1.PrivateKey) error {
	b.Proposer = signature.PublicKeyString(privateKey.PubKey())
	b.Hash = ""
	b.Signature = ""

	hash, err := signature.PowHash(*b)
	if err != nil {
		return fmt.Errorf("seal block: %w", err)
	}

	sig, err := signature.Sign(*b, privateKey)
	if err != nil {
		return fmt.Errorf("seal block: %w", err)
	}

	b.Hash = hash
	b.Signature = sig

	return nil
}
