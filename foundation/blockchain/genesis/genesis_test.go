package genesis_test

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/flsschain/flss/foundation/blockchain/genesis"
)

func TestRewardHalving(t *testing.T) {
	gen := genesis.Default()

	table := []struct {
		height uint64
		want   uint64
	}{
		{0, 50 * genesis.PointsPerCoin},
		{499_999, 50 * genesis.PointsPerCoin},
		{500_000, 25 * genesis.PointsPerCoin},
		{1_000_000, 12_500_000},
		{500_000 * 26, 0},  // 50M >> 26 = 0, floored below.
		{500_000 * 100, 0}, // Past 63 halvings.
	}

	for i, tt := range table {
		got := gen.Reward(tt.height)
		want := tt.want
		if want == 0 {
			want = 1
		}
		if got != want {
			t.Errorf("[case:%d] height %d: expected reward %d, got %d", i, tt.height, want, got)
		}
	}
}

func TestRewardSplit(t *testing.T) {
	gen := genesis.Default()

	for _, height := range []uint64{0, 1, 500_000, 1_234_567} {
		reward := gen.Reward(height)
		dev := gen.DevCut(height)
		miner := gen.MinerCut(height)

		if dev+miner != reward {
			t.Errorf("height %d: cuts %d+%d do not sum to reward %d", height, dev, miner, reward)
		}
		if dev != reward*gen.DevFeePercent/100 {
			t.Errorf("height %d: dev cut %d is not %d%% of %d", height, dev, gen.DevFeePercent, reward)
		}
	}
}

func TestMintFee(t *testing.T) {
	gen := genesis.Default()

	table := []struct {
		mintedCount int
		want        uint64
	}{
		{0, 1_000 * genesis.PointsPerCoin},
		{1, 2_000 * genesis.PointsPerCoin},
		{9, 10_000 * genesis.PointsPerCoin},
	}

	for i, tt := range table {
		if got := gen.MintFee(0, tt.mintedCount); got != tt.want {
			t.Errorf("[case:%d] %d minted: expected fee %d, got %d", i, tt.mintedCount, tt.want, got)
		}
	}
}

func TestTargetAdjustment(t *testing.T) {
	gen := genesis.Default()
	bt := gen.BlockTimeMillis
	start := gen.StartingTarget()

	sixteenth := new(big.Int).Rsh(start, 4)
	shrunk := new(big.Int).Sub(start, sixteenth)

	table := []struct {
		name   string
		stamps []int64
		want   *big.Int
	}{
		{"empty tail", nil, start},
		{"single block", []int64{0}, start},
		{"on schedule", []int64{0, bt, 2 * bt}, start},
		{"fast block shrinks", []int64{0, bt / 2}, shrunk},
		{"slow block clamps at ceiling", []int64{0, 2 * bt}, start},
	}

	for _, tt := range table {
		if got := gen.Target(tt.stamps); got.Cmp(tt.want) != 0 {
			t.Errorf("%s: expected target %x, got %x", tt.name, tt.want, got)
		}
	}
}

func TestTargetNeverBelowOne(t *testing.T) {
	gen := genesis.Default()
	gen.StartingDiff = "02"

	// Every gap is fast, so the target shrinks each step. It must floor
	// at one rather than reach zero.
	stamps := make([]int64, 100)
	for i := range stamps {
		stamps[i] = int64(i)
	}

	if got := gen.Target(stamps); got.Sign() <= 0 {
		t.Errorf("expected a positive target, got %s", got)
	}
}

func TestTargetHex(t *testing.T) {
	got := genesis.TargetHex(big.NewInt(255))
	want := "00000000000000000000000000000000000000000000000000000000000000ff"
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
	if len(got) != 64 {
		t.Errorf("expected 64 chars, got %d", len(got))
	}
}

func TestLoadFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.json")
	doc := `{"chain_name":"flss-test","balances":{"acct":12345}}`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatalf("write genesis file: %v", err)
	}

	gen, err := genesis.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if gen.ChainName != "flss-test" {
		t.Errorf("expected chain name flss-test, got %q", gen.ChainName)
	}
	if gen.Balances["acct"] != 12345 {
		t.Errorf("expected balance 12345, got %d", gen.Balances["acct"])
	}
	if def := genesis.Default(); gen.Tail != def.Tail || gen.BaseReward != def.BaseReward {
		t.Error("expected unspecified parameters to keep their defaults")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := genesis.Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
