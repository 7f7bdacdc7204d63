// Package v1 contains the full set of handler functions and routes
// supported by the web api.
package v1

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/flsschain/flss/app/services/node/handlers/v1/public"
	"github.com/flsschain/flss/foundation/blockchain/state"
	"github.com/flsschain/flss/foundation/web"
)

// Config contains all mandatory systems required by handlers.
type Config struct {
	Log   *zap.SugaredLogger
	State *state.State
}

// PublicRoutes binds all the public read API routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
	}

	app.Handle(http.MethodGet, "/genesis", pbl.Genesis)
	app.Handle(http.MethodGet, "/height", pbl.Height)
	app.Handle(http.MethodGet, "/diff", pbl.Diff)
	app.Handle(http.MethodGet, "/mint-fee", pbl.MintFee)
	app.Handle(http.MethodGet, "/reward", pbl.Reward)
	app.Handle(http.MethodGet, "/block/:height", pbl.BlockByHeight)
	app.Handle(http.MethodGet, "/blocks", pbl.Blocks)
	app.Handle(http.MethodGet, "/mempool", pbl.Mempool)
	app.Handle(http.MethodGet, "/balance/:account", pbl.Balance)
	app.Handle(http.MethodGet, "/balance-mempool/:account", pbl.BalanceMempool)
	app.Handle(http.MethodGet, "/locked/:account", pbl.Locked)
	app.Handle(http.MethodGet, "/tokens/:account", pbl.Tokens)
	app.Handle(http.MethodGet, "/token-info/:token", pbl.TokenInfo)
	app.Handle(http.MethodGet, "/token-count", pbl.TokenCount)
	app.Handle(http.MethodGet, "/token/:index", pbl.TokenAt)
	app.Handle(http.MethodGet, "/history/:account", pbl.History)
	app.Handle(http.MethodGet, "/search-blocks/:hash", pbl.SearchBlock)
	app.Handle(http.MethodGet, "/search-tx/:sig", pbl.SearchTx)
}
