package disk_test

import (
	"testing"

	"github.com/flsschain/flss/foundation/blockchain/database"
	"github.com/flsschain/flss/foundation/blockchain/database/storage/disk"
)

func TestWriteGetBlock(t *testing.T) {
	storage, err := disk.New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer storage.Close()

	block := database.Block{
		Timestamp: 1000,
		PrevHash:  "prev",
		Hash:      "hash",
		Transactions: []database.Tx{
			{Sender: "02aa", Receiver: "02bb", Amount: 10, Signature: "sig1", Nonce: 1},
		},
	}

	if err := storage.Write(0, block); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := storage.GetBlock(0)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got.Hash != block.Hash || got.Timestamp != block.Timestamp {
		t.Errorf("expected %+v, got %+v", block, got)
	}
	if len(got.Transactions) != 1 || got.Transactions[0].Signature != "sig1" {
		t.Errorf("unexpected transactions: %+v", got.Transactions)
	}
}

func TestGetMissingBlock(t *testing.T) {
	storage, err := disk.New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer storage.Close()

	if _, err := storage.GetBlock(42); err == nil {
		t.Error("expected an error for a missing height")
	}
}

func TestWriteOverwrites(t *testing.T) {
	storage, err := disk.New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer storage.Close()

	if err := storage.Write(3, database.Block{Hash: "old"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := storage.Write(3, database.Block{Hash: "new"}); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	got, err := storage.GetBlock(3)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Hash != "new" {
		t.Errorf("expected the rewrite to win, got %q", got.Hash)
	}
}

func TestForEach(t *testing.T) {
	storage, err := disk.New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer storage.Close()

	hashes := []string{"h0", "h1", "h2"}
	for i, hash := range hashes {
		if err := storage.Write(uint64(i), database.Block{Timestamp: int64(i), Hash: hash}); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	var got []string
	iter := storage.ForEach()
	for block, err := iter.Next(); !iter.Done(); block, err = iter.Next() {
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		got = append(got, block.Hash)
	}

	if len(got) != len(hashes) {
		t.Fatalf("expected %d blocks, got %d", len(hashes), len(got))
	}
	for i, hash := range hashes {
		if got[i] != hash {
			t.Errorf("position %d: expected %s, got %s", i, hash, got[i])
		}
	}
}

func TestForEachEmpty(t *testing.T) {
	storage, err := disk.New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer storage.Close()

	iter := storage.ForEach()
	for _, err := iter.Next(); !iter.Done(); _, err = iter.Next() {
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		t.Fatal("expected no blocks in an empty store")
	}
}
