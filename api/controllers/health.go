package controllers

import (
	"context"
	"net/http"

	"github.com/reelforge/reelforge-backend/api/responses"
	"github.com/reelforge/reelforge-backend/pkg/logger"
)

// Pinger is anything whose liveness the readiness probe checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports per-dependency health. Any failing dependency turns
// the whole probe into a 503.
func HealthReady(logg *logger.Logger, db Pinger, redis Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		checks := map[string]string{}
		healthy := true

		for name, dep := range map[string]Pinger{"db": db, "redis": redis} {
			if dep == nil {
				checks[name] = "not configured"
				healthy = false
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				checks[name] = "unavailable"
				healthy = false
				if logg != nil {
					logg.Warn(logg.WithField(ctx, "dependency", name), "readiness check failed")
				}
				continue
			}
			checks[name] = "ok"
		}

		status := "ready"
		code := http.StatusOK
		if !healthy {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		responses.WriteJSON(w, code, map[string]any{"status": status, "checks": checks})
	}
}
