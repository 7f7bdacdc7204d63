// Package handlers manages the node's web APIs.
package handlers

import (
	"context"
	"net/http"
	"os"

	"go.uber.org/zap"

	v1 "github.com/flsschain/flss/app/services/node/handlers/v1"
	"github.com/flsschain/flss/business/web/v1/mid"
	"github.com/flsschain/flss/foundation/blockchain/state"
	"github.com/flsschain/flss/foundation/web"
)

// MuxConfig contains all mandatory systems required by handlers.
type MuxConfig struct {
	Shutdown chan os.Signal
	Log      *zap.SugaredLogger
	State    *state.State
}

// PublicMux constructs a http.Handler with the full read API defined.
func PublicMux(cfg MuxConfig) http.Handler {
	app := web.NewApp(
		cfg.Shutdown,
		mid.Logger(cfg.Log),
		mid.Errors(cfg.Log),
		mid.Cors("*"),
		mid.Panics(),
	)

	// Accept CORS 'OPTIONS' preflight requests.
	h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return nil
	}
	app.Handle(http.MethodOptions, "/*path", h, mid.Cors("*"))

	v1.PublicRoutes(app, v1.Config{
		Log:   cfg.Log,
		State: cfg.State,
	})

	return app
}
