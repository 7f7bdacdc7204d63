// Package genesis maintains access to the protocol parameters and the
// schedules derived from them: block rewards, mint fees, and the
// difficulty target.
package genesis

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
)

// PointsPerCoin is the number of points, the smallest unit of the native
// coin, in one whole coin.
const PointsPerCoin = 1_000_000

// NativeToken is the reserved symbol of the native coin. It can never be
// minted as a user token.
const NativeToken = "FLSS"

// Genesis represents the protocol parameters of the chain. All nodes on
// a network must run with identical values.
type Genesis struct {
	Date            string            `json:"date"`
	ChainName       string            `json:"chain_name"`
	BlockTimeMillis int64             `json:"block_time_millis"` // Nominal inter-block interval.
	Tail            int               `json:"tail"`              // Difficulty window and max reorg depth.
	DevWallet       string            `json:"dev_wallet"`        // Recipient of dev fees and mint fees.
	DevFeePercent   uint64            `json:"dev_fee_percent"`   // Dev cut of the block reward.
	StartingDiff    string            `json:"starting_diff"`     // Hex target the chain starts from.
	BaseReward      uint64            `json:"base_reward"`       // Block reward in points before halvings.
	HalvingInterval uint64            `json:"halving_interval"`  // Blocks between reward halvings.
	BaseMintFee     uint64            `json:"base_mint_fee"`     // First token mint fee in points.
	SigCacheSize    int               `json:"sig_cache_size"`    // Spent-signature window.
	Balances        map[string]uint64 `json:"balances"`          // Initial balances placed in the genesis block.
}

// Default returns the production parameters of the chain.
func Default() Genesis {
	return Genesis{
		Date:            "2023-01-01T00:00:00Z",
		ChainName:       "flss-main",
		BlockTimeMillis: 60_000,
		Tail:            100,
		DevWallet:       "02c72f4a4950a936f1cf2f0dbdd30e4e0a62b4e360a59e3ae88d3a851aee22fc94",
		DevFeePercent:   5,
		StartingDiff:    "00ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff",
		BaseReward:      50 * PointsPerCoin,
		HalvingInterval: 500_000,
		BaseMintFee:     1_000 * PointsPerCoin,
		SigCacheSize:    10_000,
		Balances:        map[string]uint64{},
	}
}

// Load opens and consumes a genesis file, keeping the default for any
// parameter the file leaves out. A value present in the file, zero
// included, replaces the default.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, fmt.Errorf("read genesis file: %w", err)
	}

	genesis := Default()
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, fmt.Errorf("parse genesis file: %w", err)
	}

	return genesis, nil
}

// Reward returns the full block reward in points at the specified height.
// The reward halves every HalvingInterval blocks and never drops below
// one point.
func (g Genesis) Reward(height uint64) uint64 {
	halvings := uint64(0)
	if g.HalvingInterval > 0 {
		halvings = height / g.HalvingInterval
	}

	if halvings >= 63 {
		return 1
	}

	reward := g.BaseReward >> halvings
	if reward == 0 {
		reward = 1
	}

	return reward
}

// DevCut returns the portion of the block reward at the specified height
// owed to the dev wallet.
func (g Genesis) DevCut(height uint64) uint64 {
	return g.Reward(height) * g.DevFeePercent / 100
}

// MinerCut returns the portion of the block reward at the specified
// height owed to the block proposer. DevCut and MinerCut always sum to
// the full reward.
func (g Genesis) MinerCut(height uint64) uint64 {
	return g.Reward(height) - g.DevCut(height)
}

// MintFee returns the fee in points for minting a new token when
// mintedCount tokens already exist.
func (g Genesis) MintFee(height uint64, mintedCount int) uint64 {
	return g.BaseMintFee * (uint64(mintedCount) + 1)
}

// StartingTarget returns the starting difficulty target as an integer.
func (g Genesis) StartingTarget() *big.Int {
	target, ok := new(big.Int).SetString(g.StartingDiff, 16)
	if !ok {
		panic(fmt.Sprintf("genesis: invalid starting difficulty %q", g.StartingDiff))
	}

	return target
}

// Target derives the current difficulty target from the timestamps of
// the tail, the last Tail blocks in ascending order. Each inter-block
// gap shorter than the nominal block time shrinks the target by 1/16,
// each longer gap grows it by 1/16. The target never exceeds the
// starting target.
func (g Genesis) Target(tailTimestamps []int64) *big.Int {
	target := g.StartingTarget()
	ceiling := g.StartingTarget()

	sixteenth := new(big.Int)
	for i := 1; i < len(tailTimestamps); i++ {
		delta := tailTimestamps[i] - tailTimestamps[i-1]

		sixteenth.Rsh(target, 4)
		switch {
		case delta < g.BlockTimeMillis:
			target.Sub(target, sixteenth)
		case delta > g.BlockTimeMillis:
			target.Add(target, sixteenth)
		}

		if target.Cmp(ceiling) > 0 {
			target.Set(ceiling)
		}
		if target.Sign() <= 0 {
			target.SetInt64(1)
		}
	}

	return target
}

// TargetHex formats a difficulty target the way blocks declare it.
func TargetHex(target *big.Int) string {
	return fmt.Sprintf("%064x", target)
}
