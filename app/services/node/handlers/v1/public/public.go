// Package public maintains the group of handlers for the node's read
// API.
package public

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/flsschain/flss/foundation/blockchain/database"
	"github.com/flsschain/flss/foundation/blockchain/state"
	"github.com/flsschain/flss/foundation/web"
)

// Handlers manages the set of read API endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
}

// Genesis returns the protocol parameters the chain runs with.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.Genesis(), http.StatusOK)
}

// Height returns the number of committed blocks.
func (h Handlers) Height(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, heightInfo{Height: h.State.Height()}, http.StatusOK)
}

// Diff returns the difficulty target the next block must satisfy.
func (h Handlers) Diff(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, diffInfo{Diff: h.State.Diff()}, http.StatusOK)
}

// MintFee returns the fee the next token mint must pay.
func (h Handlers) MintFee(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, feeInfo{MintFee: h.State.MintFee()}, http.StatusOK)
}

// Reward returns the full block reward at the next height.
func (h Handlers) Reward(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, rewardInfo{Reward: h.State.Reward()}, http.StatusOK)
}

// BlockByHeight returns the committed block at the specified height.
func (h Handlers) BlockByHeight(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	height, err := strconv.ParseUint(web.Param(r, "height"), 10, 64)
	if err != nil {
		return web.NewRequestError(errors.New("invalid height"), http.StatusBadRequest)
	}

	if height >= h.State.Height() {
		return web.NewRequestError(errors.New("block not found"), http.StatusNotFound)
	}

	block, err := h.State.GetBlock(height)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, block, http.StatusOK)
}

// Blocks returns the committed blocks in the half-open range given by
// the start/end query parameters (from/to are accepted as aliases),
// capped at the sync batch limit.
func (h Handlers) Blocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	query := r.URL.Query()

	rangeParam := func(name, alias string) (uint64, error) {
		value := query.Get(name)
		if value == "" {
			value = query.Get(alias)
		}
		return strconv.ParseUint(value, 10, 64)
	}

	start, err := rangeParam("start", "from")
	if err != nil {
		return web.NewRequestError(errors.New("invalid start"), http.StatusBadRequest)
	}

	end, err := rangeParam("end", "to")
	if err != nil {
		return web.NewRequestError(errors.New("invalid end"), http.StatusBadRequest)
	}

	blocks, err := h.State.GetBlocks(start, end)
	if err != nil {
		return err
	}
	if blocks == nil {
		blocks = []database.Block{}
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// Mempool returns the pending transactions in arrival order.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	pool := h.State.MempoolCopy()
	if pool == nil {
		pool = []database.Tx{}
	}

	return web.Respond(ctx, w, pool, http.StatusOK)
}

// splitAccountToken splits an "account.TOKEN" path segment. A missing
// token means the native coin.
func splitAccountToken(param string) (database.AccountID, string) {
	account, token, _ := strings.Cut(param, ".")
	return database.AccountID(account), token
}

// Balance returns the spendable balance of an account. The path
// segment may carry a token suffix: /balance/<account>.<TOKEN>.
func (h Handlers) Balance(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	account, token := splitAccountToken(web.Param(r, "account"))

	resp := balanceInfo{
		Account: account,
		Token:   token,
		Balance: h.State.Balance(account, token),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// BalanceMempool returns the balance of an account as it would stand
// if every pending transaction committed.
func (h Handlers) BalanceMempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	account, token := splitAccountToken(web.Param(r, "account"))

	resp := balanceInfo{
		Account: account,
		Token:   token,
		Balance: h.State.BalanceMempool(account, token),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Locked returns the locked balance and pending locks of an account.
func (h Handlers) Locked(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	account, token := splitAccountToken(web.Param(r, "account"))

	resp := lockedInfo{
		Account: account,
		Locked:  h.State.LockedBalance(account, token),
		Locks:   h.State.Locks(account),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Tokens returns the token symbols an account holds.
func (h Handlers) Tokens(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	account := database.AccountID(web.Param(r, "account"))

	tokens := h.State.TokensOf(account)
	if tokens == nil {
		tokens = []string{}
	}

	return web.Respond(ctx, w, tokensInfo{Account: account, Tokens: tokens}, http.StatusOK)
}

// TokenInfo returns the registered parameters of a token.
func (h Handlers) TokenInfo(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	info, exists := h.State.TokenInfo(web.Param(r, "token"))
	if !exists {
		return web.NewRequestError(errors.New("token not found"), http.StatusNotFound)
	}

	return web.Respond(ctx, w, info, http.StatusOK)
}

// TokenCount returns the number of registered tokens.
func (h Handlers) TokenCount(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, countInfo{Count: h.State.TokenCount()}, http.StatusOK)
}

// TokenAt returns the i-th registered token in mint order.
func (h Handlers) TokenAt(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	index, err := strconv.Atoi(web.Param(r, "index"))
	if err != nil {
		return web.NewRequestError(errors.New("invalid index"), http.StatusBadRequest)
	}

	info, exists := h.State.TokenAt(index)
	if !exists {
		return web.NewRequestError(errors.New("token not found"), http.StatusNotFound)
	}

	return web.Respond(ctx, w, info, http.StatusOK)
}

// History returns every committed transaction an account sent or
// received, oldest first.
func (h Handlers) History(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	account := database.AccountID(web.Param(r, "account"))

	records, err := h.State.History(account)
	if err != nil {
		return err
	}
	if records == nil {
		records = []state.TxRecord{}
	}

	return web.Respond(ctx, w, records, http.StatusOK)
}

// SearchBlock returns the committed block with the specified hash.
func (h Handlers) SearchBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	block, height, exists := h.State.SearchBlockByHash(web.Param(r, "hash"))
	if !exists {
		return web.NewRequestError(errors.New("block not found"), http.StatusNotFound)
	}

	return web.Respond(ctx, w, blockResult{Height: height, Block: block}, http.StatusOK)
}

// SearchTx returns the committed transaction with the specified
// signature.
func (h Handlers) SearchTx(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	record, exists := h.State.SearchTx(web.Param(r, "sig"))
	if !exists {
		return web.NewRequestError(errors.New("transaction not found"), http.StatusNotFound)
	}

	return web.Respond(ctx, w, record, http.StatusOK)
}
