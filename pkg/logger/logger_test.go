package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestLoggerErrorIncludesContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})

	ctx := log.WithRequestID(context.Background(), "req-123")
	ctx = log.WithPaymentID(ctx, "pay_123")

	log.Error(ctx, "boom", errors.New("boom"))

	require.Contains(t, buf.String(), `"request_id":"req-123"`)
	require.Contains(t, buf.String(), `"payment_id":"pay_123"`)
	require.Contains(t, buf.String(), `"stack"`)
}

func TestLoggerWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf, WarnStack: true})

	log.Warn(context.Background(), "warny")
	require.Contains(t, buf.String(), `"stack"`)

	buf.Reset()
	quiet := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})
	quiet.Warn(context.Background(), "warny")
	require.NotContains(t, buf.String(), `"stack"`)
}

func TestWithFieldsDoesNotLeakIntoParent(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})

	parent := context.Background()
	_ = log.WithFields(parent, map[string]any{"job": "subscription-expiry"})
	log.Info(parent, "plain")

	require.NotContains(t, buf.String(), "subscription-expiry")
}

func TestParseLevelDefaults(t *testing.T) {
	require.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	require.Equal(t, zerolog.InfoLevel, ParseLevel("invalid"))
	require.Equal(t, zerolog.WarnLevel, ParseLevel(" WARN "))
}
