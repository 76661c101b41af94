package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/netaconnect/billing-backend/internal/cron"
)

type stubRunner struct {
	report cron.Report
	err    error
	name   string
}

func (s *stubRunner) RunJob(_ context.Context, name string) (cron.Report, error) {
	s.name = name
	return s.report, s.err
}

func runJobRequest(t *testing.T, runner JobRunner, job string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Post("/api/internal/v1/jobs/{job}/run", RunJob(runner, nil))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/internal/v1/jobs/"+job+"/run", nil))
	return rec
}

func TestRunJobStatuses(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"success", nil, http.StatusOK},
		{"unknown", cron.ErrJobNotFound, http.StatusNotFound},
		{"locked", cron.ErrJobLocked, http.StatusConflict},
		{"failed", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &stubRunner{err: tt.err, report: cron.Report{"files_deleted": 3}}
			rec := runJobRequest(t, runner, cron.JobStorageCleanup)
			require.Equal(t, tt.status, rec.Code)
			require.Equal(t, cron.JobStorageCleanup, runner.name)
		})
	}
}

func TestRunJobReturnsReport(t *testing.T) {
	runner := &stubRunner{report: cron.Report{"files_deleted": 3}}
	rec := runJobRequest(t, runner, cron.JobStorageCleanup)
	require.JSONEq(t, `{"data":{"job":"storage-cleanup","report":{"files_deleted":3}}}`, rec.Body.String())
}
