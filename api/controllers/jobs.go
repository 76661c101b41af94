package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/netaconnect/billing-backend/api/responses"
	"github.com/netaconnect/billing-backend/internal/cron"
	pkgerrors "github.com/netaconnect/billing-backend/pkg/errors"
	"github.com/netaconnect/billing-backend/pkg/logger"
)

type JobRunner interface {
	RunJob(ctx context.Context, name string) (cron.Report, error)
}

// RunJob triggers one registered cron job and returns its report.
func RunJob(runner JobRunner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		name := chi.URLParam(r, "job")
		if logg != nil {
			ctx = logg.WithField(ctx, "job", name)
		}

		report, err := runner.RunJob(ctx, name)
		switch {
		case errors.Is(err, cron.ErrJobNotFound):
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "unknown job "+name))
			return
		case errors.Is(err, cron.ErrJobLocked):
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "job already running"))
			return
		case err != nil:
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "job failed"))
			return
		}
		responses.WriteSuccess(w, map[string]any{"job": name, "report": report})
	}
}
