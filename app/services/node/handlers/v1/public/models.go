package public

import (
	"github.com/flsschain/flss/foundation/blockchain/database"
)

type heightInfo struct {
	Height uint64 `json:"height"`
}

type diffInfo struct {
	Diff string `json:"diff"`
}

type feeInfo struct {
	MintFee uint64 `json:"mint_fee"`
}

type rewardInfo struct {
	Reward uint64 `json:"reward"`
}

type balanceInfo struct {
	Account database.AccountID `json:"account"`
	Token   string             `json:"token,omitempty"`
	Balance uint64             `json:"balance"`
}

type lockedInfo struct {
	Account database.AccountID `json:"account"`
	Locked  uint64             `json:"locked"`
	Locks   []database.Lock    `json:"locks,omitempty"`
}

type tokensInfo struct {
	Account database.AccountID `json:"account"`
	Tokens  []string           `json:"tokens"`
}

type countInfo struct {
	Count int `json:"count"`
}

type blockResult struct {
	Height uint64         `json:"height"`
	Block  database.Block `json:"block"`
}
