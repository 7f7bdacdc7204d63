package mid

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/flsschain/flss/foundation/web"
)

// Errors handles errors coming out of the call chain. It detects normal
// application errors which are used to respond to the client in a
// uniform way. Every error is logged; errors that are not request
// errors are answered with status 500.
func Errors(log *zap.SugaredLogger) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			v, err := web.GetValues(ctx)
			if err != nil {
				return web.NewShutdownError("web value missing from context")
			}

			if err := handler(ctx, w, r); err != nil {
				log.Errorw("ERROR", "traceid", v.TraceID, "message", err)

				var status int
				var response web.ErrorResponse

				switch {
				case web.IsRequestError(err):
					reqErr := web.GetRequestError(err)
					status = reqErr.Status
					response = web.ErrorResponse{Error: reqErr.Error()}

				default:
					status = http.StatusInternalServerError
					response = web.ErrorResponse{Error: http.StatusText(http.StatusInternalServerError)}
				}

				if err := web.Respond(ctx, w, response, status); err != nil {
					return err
				}

				// Shutdown if the error is not recoverable.
				if web.IsShutdown(err) {
					return err
				}
			}

			return nil
		}

		return h
	}

	return m
}
