// Package signature provides the cryptographic primitives used by the
// chain: canonical JSON digests, secp256k1 DER signatures, and the
// argon2id proof-of-work hash.
package signature

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/argon2"
)

// ZeroHash represents a hash code of zeros.
const ZeroHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Argon2id parameters for the proof-of-work hash. These are protocol
// constants, changing any of them is a hard fork.
const (
	powTime    = 1
	powMemory  = 8 * 1024
	powThreads = 1
	powKeyLen  = 32
)

// powSalt is the fixed protocol salt for the proof-of-work hash.
var powSalt = []byte("flss/pow/v1")

// ErrInvalidSignature is returned when a signature does not verify
// against the claimed public key.
var ErrInvalidSignature = errors.New("invalid signature")

// Hash returns the sha256 digest of the canonical JSON encoding of the
// specified value. The canonical encoding is the standard library
// marshaling of the value: keys in declaration order, no extra whitespace,
// empty optional fields omitted.
func Hash(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal for hashing: %w", err)
	}

	digest := sha256.Sum256(data)

	return digest[:], nil
}

// Sign produces a hex-encoded DER signature over the sha256 digest of
// the canonical JSON encoding of the specified value.
func Sign(v any, privateKey *secp256k1.PrivateKey) (string, error) {
	digest, err := Hash(v)
	if err != nil {
		return "", err
	}

	sig := ecdsa.Sign(privateKey, digest)

	return hex.EncodeToString(sig.Serialize()), nil
}

// Verify checks the hex-encoded DER signature over the canonical JSON
// encoding of the specified value against the hex-encoded public key.
func Verify(v any, sigHex string, publicKeyHex string) error {
	digest, err := Hash(v)
	if err != nil {
		return err
	}

	pubKey, err := ParsePublicKey(publicKeyHex)
	if err != nil {
		return err
	}

	der, err := hex.DecodeString(sigHex)
	if err != nil {
		return fmt.Errorf("decode signature hex: %w", err)
	}

	sig, err := ecdsa.ParseDERSignature(der)
	if err != nil {
		return fmt.Errorf("parse DER signature: %w", err)
	}

	if !sig.Verify(digest, pubKey) {
		return ErrInvalidSignature
	}

	return nil
}

// PowHash computes the argon2id hash of the canonical JSON encoding of
// the specified value and returns it as lowercase hex.
func PowHash(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal for pow hashing: %w", err)
	}

	sum := argon2.IDKey(data, powSalt, powTime, powMemory, powThreads, powKeyLen)

	return hex.EncodeToString(sum), nil
}

// ToBig interprets a hex hash as a big-endian unsigned integer. This is
// the value compared against the difficulty target.
func ToBig(hash string) (*big.Int, error) {
	raw, err := hex.DecodeString(hash)
	if err != nil {
		return nil, fmt.Errorf("decode hash hex: %w", err)
	}

	return new(big.Int).SetBytes(raw), nil
}

// ParsePublicKey parses a hex-encoded compressed or uncompressed
// secp256k1 public key.
func ParsePublicKey(publicKeyHex string) (*secp256k1.PublicKey, error) {
	raw, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return nil, fmt.Errorf("decode public key hex: %w", err)
	}

	pubKey, err := secp256k1.ParsePubKey(raw)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	return pubKey, nil
}

// PublicKeyString returns the hex encoding of the compressed form of
// the specified public key. This string is the account address.
func PublicKeyString(pubKey *secp256k1.PublicKey) string {
	return hex.EncodeToString(pubKey.SerializeCompressed())
}
