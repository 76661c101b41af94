// Package dbtest opens throwaway sqlite databases carrying the billing schema
// for repository and service tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/netaconnect/billing-backend/pkg/db"
)

// schema mirrors the goose migrations with sqlite column types.
var schema = []string{
	`CREATE TABLE users (
  id TEXT PRIMARY KEY,
  display_name TEXT,
  fcm_token TEXT,
  premium INTEGER NOT NULL DEFAULT 0,
  subscription_plan_id TEXT,
  subscription_expires_at DATETIME,
  highlight_plan_id TEXT,
  highlight_plan_expires_at DATETIME,
  carousel_plan_id TEXT,
  carousel_plan_expires_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE candidates (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  name TEXT NOT NULL,
  state_id TEXT,
  district_id TEXT,
  body_id TEXT,
  ward_id TEXT,
  delete_storage TEXT NOT NULL DEFAULT '{}',
  updated_at DATETIME
);`,
	`CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  provider_order_id TEXT NOT NULL UNIQUE,
  user_id TEXT NOT NULL,
  amount INTEGER NOT NULL,
  currency TEXT NOT NULL,
  receipt TEXT,
  notes TEXT,
  payment_capture INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'created',
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE payments (
  id TEXT PRIMARY KEY,
  provider_payment_id TEXT NOT NULL UNIQUE,
  provider_order_id TEXT,
  amount INTEGER NOT NULL DEFAULT 0,
  currency TEXT,
  status TEXT,
  state TEXT NOT NULL DEFAULT 'new',
  captured INTEGER NOT NULL DEFAULT 0,
  captured_at DATETIME,
  capture_reference TEXT,
  capture_attempted_at DATETIME,
  capture_error TEXT,
  method TEXT,
  email TEXT,
  contact TEXT,
  error_code TEXT,
  error_description TEXT,
  notes TEXT,
  signature_verified INTEGER NOT NULL DEFAULT 0,
  last_event TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE payment_webhook_events (
  id TEXT PRIMARY KEY,
  provider_payment_id TEXT NOT NULL,
  provider_order_id TEXT,
  provider_event_id TEXT,
  event TEXT NOT NULL,
  received_at DATETIME NOT NULL
);`,
	`CREATE TABLE subscriptions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  plan_id TEXT NOT NULL,
  plan_type TEXT NOT NULL,
  election_type TEXT,
  validity_days INTEGER NOT NULL,
  amount_paid NUMERIC NOT NULL,
  currency TEXT NOT NULL,
  purchased_at DATETIME NOT NULL,
  expires_at DATETIME NOT NULL,
  is_active INTEGER NOT NULL,
  expired_at DATETIME,
  payment_id TEXT NOT NULL UNIQUE,
  order_id TEXT,
  warning_sent_72h INTEGER NOT NULL DEFAULT 0,
  warning_sent_24h INTEGER NOT NULL DEFAULT 0,
  warning_sent_1h INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE highlights (
  id TEXT PRIMARY KEY,
  candidate_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  district_id TEXT NOT NULL,
  body_id TEXT NOT NULL,
  ward_id TEXT NOT NULL,
  package TEXT NOT NULL,
  priority TEXT NOT NULL,
  exclusive INTEGER NOT NULL,
  rotation INTEGER NOT NULL,
  subscription_id TEXT NOT NULL,
  starts_at DATETIME NOT NULL,
  expires_at DATETIME NOT NULL,
  is_active INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE feed_posts (
  id TEXT PRIMARY KEY,
  candidate_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  district_id TEXT NOT NULL,
  body_id TEXT NOT NULL,
  ward_id TEXT NOT NULL,
  kind TEXT NOT NULL,
  title TEXT NOT NULL,
  body TEXT NOT NULL,
  expires_at DATETIME,
  created_at DATETIME
);`,
	`CREATE TABLE provisioned_subscriptions (
  subscription_id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  plan_id TEXT NOT NULL,
  provisioned_at DATETIME NOT NULL
);`,
	`CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload BLOB NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
	`CREATE TABLE outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json BLOB NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME
);`,
}

// Open returns a client over a fresh in-memory database private to t. A
// single connection is used so concurrent writers queue instead of hitting
// sqlite table locks.
func Open(t *testing.T) *db.Client {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return db.Wrap(conn)
}
