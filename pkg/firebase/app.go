// Package firebase bootstraps the Firebase Admin SDK app shared by auth,
// messaging and storage clients.
package firebase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	fb "firebase.google.com/go/v4"

	"github.com/netaconnect/billing-backend/pkg/config"
	"github.com/netaconnect/billing-backend/pkg/gcp"
)

var errProjectIDRequired = errors.New("firebase project id is required")

// NewApp initializes the Admin SDK. The Firebase project falls back to the
// GCP project when not set explicitly.
func NewApp(ctx context.Context, gcpCfg config.GCPConfig, cfg config.FirebaseConfig) (*fb.App, error) {
	appCfg, err := appConfig(gcpCfg, cfg)
	if err != nil {
		return nil, err
	}
	app, err := fb.NewApp(ctx, appCfg, gcp.ClientOptions(gcpCfg)...)
	if err != nil {
		return nil, fmt.Errorf("initializing firebase app: %w", err)
	}
	return app, nil
}

func appConfig(gcpCfg config.GCPConfig, cfg config.FirebaseConfig) (*fb.Config, error) {
	projectID := strings.TrimSpace(cfg.ProjectID)
	if projectID == "" {
		projectID = strings.TrimSpace(gcpCfg.ProjectID)
	}
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	return &fb.Config{
		ProjectID:     projectID,
		StorageBucket: strings.TrimSpace(cfg.StorageBucket),
	}, nil
}
