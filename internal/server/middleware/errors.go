package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	apperrors "github.com/digitalplanet/shopclient/internal/errors"
	"github.com/digitalplanet/shopclient/internal/metrics"
	"github.com/digitalplanet/shopclient/internal/observability"
)

// Recovery turns a handler panic into a 500 error envelope.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				panicErr := errors.NewErrorEnvelope("INTERNAL_ERROR", fmt.Sprintf("panic: %v", rec)).
					WithCorrelationID(GetRequestID(r.Context()))
				panicErr, _ = panicErr.WithSeverity(errors.SeverityCritical)

				if logger := observability.Logger(); logger != nil {
					logger.Error("Recovered gateway panic",
						zap.String("request_id", GetRequestID(r.Context())),
						zap.String("stack_trace", string(debug.Stack())))
				}
				metrics.RecordPanic()

				apperrors.RespondWithError(w, r, panicErr)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
