package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/reelforge/reelforge-backend/pkg/logger"
)

// RequestIDHeader is echoed on every response so a generation run can be
// correlated across API and worker logs.
const RequestIDHeader = "X-Request-Id"

// RequestID tags the request context with an id, minting one when the
// client did not send its own.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(RequestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}

			w.Header().Set(RequestIDHeader, reqID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
