package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/netaconnect/billing-backend/pkg/logger"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type blockingConsumer struct{ started chan struct{} }

func (c *blockingConsumer) Run(ctx context.Context) error {
	close(c.started)
	<-ctx.Done()
	return ctx.Err()
}

type failingConsumer struct{ err error }

func (c failingConsumer) Run(context.Context) error { return c.err }

func TestNewServiceRequiresConsumers(t *testing.T) {
	_, err := NewService(ServiceParams{Logger: logger.Nop(), Analytics: failingConsumer{}})
	require.Error(t, err)
	_, err = NewService(ServiceParams{Logger: logger.Nop(), Provisioning: failingConsumer{}})
	require.Error(t, err)
}

func TestRunStopsWhenDependencyIsDown(t *testing.T) {
	svc, err := NewService(ServiceParams{
		Logger:       logger.Nop(),
		Dependencies: []Dependency{{Name: "redis", Pinger: pingFunc(func(context.Context) error { return errors.New("refused") })}},
		Provisioning: failingConsumer{},
		Analytics:    failingConsumer{},
	})
	require.NoError(t, err)
	err = svc.Run(context.Background())
	require.ErrorContains(t, err, "redis ping failed")
}

func TestRunCancelsSiblingWhenConsumerFails(t *testing.T) {
	blocking := &blockingConsumer{started: make(chan struct{})}
	svc, err := NewService(ServiceParams{
		Logger:       logger.Nop(),
		Provisioning: blocking,
		Analytics:    failingConsumer{err: errors.New("subscription deleted")},
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- svc.Run(context.Background()) }()
	select {
	case err := <-done:
		require.ErrorContains(t, err, "analytics consumer")
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after consumer failure")
	}
}

func TestRunReturnsContextErrorOnShutdown(t *testing.T) {
	prov := &blockingConsumer{started: make(chan struct{})}
	analytics := &blockingConsumer{started: make(chan struct{})}
	svc, err := NewService(ServiceParams{Logger: logger.Nop(), Provisioning: prov, Analytics: analytics})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	<-prov.started
	<-analytics.started
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}
