package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/netaconnect/billing-backend/api/responses"
	"github.com/netaconnect/billing-backend/pkg/config"
	pkgerrors "github.com/netaconnect/billing-backend/pkg/errors"
	"github.com/netaconnect/billing-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessCheck names one dependency probed by /health/ready.
type ReadinessCheck struct {
	Name   string
	Pinger pinger
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Neta-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports 503 with per-dependency results when any check fails.
func HealthReady(cfg *config.Config, logg *logger.Logger, checks ...ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Neta-Env", cfg.App.Env)
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		results := make(map[string]string, len(checks))
		healthy := true
		for _, check := range checks {
			if check.Pinger == nil {
				continue
			}
			if err := check.Pinger.Ping(ctx); err != nil {
				healthy = false
				results[check.Name] = "unavailable"
				if logg != nil {
					logg.Error(logg.WithField(r.Context(), "dependency", check.Name), "readiness check failed", err)
				}
				continue
			}
			results[check.Name] = "ok"
		}

		if !healthy {
			responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeDependency, "not ready").WithDetails(results))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": results})
	}
}
