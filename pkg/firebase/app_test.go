package firebase

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/netaconnect/billing-backend/pkg/config"
)

func TestAppConfigFallsBackToGCPProject(t *testing.T) {
	cfg, err := appConfig(config.GCPConfig{ProjectID: "neta-prod"}, config.FirebaseConfig{StorageBucket: " neta.appspot.com "})
	require.NoError(t, err)
	require.Equal(t, "neta-prod", cfg.ProjectID)
	require.Equal(t, "neta.appspot.com", cfg.StorageBucket)
}

func TestAppConfigPrefersFirebaseProject(t *testing.T) {
	cfg, err := appConfig(config.GCPConfig{ProjectID: "gcp"}, config.FirebaseConfig{ProjectID: "fb"})
	require.NoError(t, err)
	require.Equal(t, "fb", cfg.ProjectID)
}

func TestAppConfigRequiresProject(t *testing.T) {
	_, err := appConfig(config.GCPConfig{}, config.FirebaseConfig{})
	require.ErrorIs(t, err, errProjectIDRequired)
}
