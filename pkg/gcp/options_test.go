package gcp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/netaconnect/billing-backend/pkg/config"
)

func TestClientOptions(t *testing.T) {
	require.Empty(t, ClientOptions(config.GCPConfig{}))
	require.Len(t, ClientOptions(config.GCPConfig{CredentialsJSON: `{"type":"service_account"}`}), 1)
	require.Len(t, ClientOptions(config.GCPConfig{ApplicationCredentials: "/secrets/sa.json"}), 1)
}
