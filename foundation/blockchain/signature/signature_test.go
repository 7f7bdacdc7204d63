package signature_test

import (
	"strings"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/flsschain/flss/foundation/blockchain/signature"
)

type payload struct {
	Sender string `json:"sender"`
	Amount uint64 `json:"amount"`
	Note   string `json:"note,omitempty"`
}

func TestSignVerify(t *testing.T) {
	privateKey, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	publicKey := signature.PublicKeyString(privateKey.PubKey())

	v := payload{Sender: "abc", Amount: 100}

	sig, err := signature.Sign(v, privateKey)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if err := signature.Verify(v, sig, publicKey); err != nil {
		t.Errorf("verify: unexpected error: %v", err)
	}
}

func TestVerifyTamperedValue(t *testing.T) {
	privateKey, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	publicKey := signature.PublicKeyString(privateKey.PubKey())

	v := payload{Sender: "abc", Amount: 100}

	sig, err := signature.Sign(v, privateKey)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	v.Amount = 101
	if err := signature.Verify(v, sig, publicKey); err == nil {
		t.Error("error: verify accepted a tampered value")
	}
}

func TestVerifyWrongKey(t *testing.T) {
	privateKey, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	otherKey, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	v := payload{Sender: "abc", Amount: 100}

	sig, err := signature.Sign(v, privateKey)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if err := signature.Verify(v, sig, signature.PublicKeyString(otherKey.PubKey())); err == nil {
		t.Error("error: verify accepted a signature from another key")
	}
}

func TestOmittedFieldsShareEncoding(t *testing.T) {
	privateKey, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	publicKey := signature.PublicKeyString(privateKey.PubKey())

	// A zero-valued optional field is omitted from the canonical
	// encoding, so the two values sign identically.
	a := payload{Sender: "abc", Amount: 100}
	b := payload{Sender: "abc", Amount: 100, Note: ""}

	sig, err := signature.Sign(a, privateKey)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if err := signature.Verify(b, sig, publicKey); err != nil {
		t.Errorf("verify: unexpected error: %v", err)
	}
}

func TestPowHashDeterministic(t *testing.T) {
	v := payload{Sender: "abc", Amount: 7}

	h1, err := signature.PowHash(v)
	if err != nil {
		t.Fatalf("pow hash: %v", err)
	}
	h2, err := signature.PowHash(v)
	if err != nil {
		t.Fatalf("pow hash: %v", err)
	}

	if h1 != h2 {
		t.Errorf("error: expected identical hashes, got %s and %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Errorf("error: expected 64 hex chars, got %d", len(h1))
	}

	v.Amount = 8
	h3, err := signature.PowHash(v)
	if err != nil {
		t.Fatalf("pow hash: %v", err)
	}
	if h3 == h1 {
		t.Error("error: different values produced the same hash")
	}
}

func TestToBig(t *testing.T) {
	table := []struct {
		hash string
		want int64
	}{
		{signature.ZeroHash, 0},
		{"00000000000000000000000000000000000000000000000000000000000000ff", 255},
		{"0000000000000000000000000000000000000000000000000000000000000100", 256},
	}

	for i, tt := range table {
		got, err := signature.ToBig(tt.hash)
		if err != nil {
			t.Fatalf("[case:%d] unexpected error: %v", i, err)
		}
		if got.Int64() != tt.want {
			t.Errorf("[case:%d] expected %d, got %s", i, tt.want, got)
		}
	}
}

func TestParsePublicKeyRejectsGarbage(t *testing.T) {
	table := []string{
		"",
		"zz",
		strings.Repeat("00", 33),
	}

	for i, hexKey := range table {
		if _, err := signature.ParsePublicKey(hexKey); err == nil {
			t.Errorf("[case:%d] expected error for %q", i, hexKey)
		}
	}
}
