package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/netaconnect/billing-backend/pkg/config"
)

func TestConfiguredTables(t *testing.T) {
	tables := configuredTables(config.BigQueryConfig{PaymentEventsTable: " payment_events "})
	require.Equal(t, []string{"payment_events"}, tables)

	require.Empty(t, configuredTables(config.BigQueryConfig{}))
}

func TestIsNotFound(t *testing.T) {
	require.True(t, isNotFound(fmt.Errorf("wrapped: %w", &googleapi.Error{Code: http.StatusNotFound})))
	require.False(t, isNotFound(&googleapi.Error{Code: http.StatusForbidden}))
	require.False(t, isNotFound(errors.New("boom")))
}

func TestNilClient(t *testing.T) {
	var c *Client
	require.ErrorIs(t, c.Ping(context.Background()), errClientNotInitialized)
	require.ErrorIs(t, c.InsertRows(context.Background(), "t", []any{1}), errClientNotInitialized)
	require.NoError(t, c.Close())
}
