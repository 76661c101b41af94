package main

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/netaconnect/billing-backend/pkg/logger"
)

type pinger interface {
	Ping(context.Context) error
}

type consumer interface {
	Run(ctx context.Context) error
}

// Dependency is a named backend the worker checks before consuming.
type Dependency struct {
	Name   string
	Pinger pinger
}

type ServiceParams struct {
	Logger       *logger.Logger
	Dependencies []Dependency
	Provisioning consumer
	Analytics    consumer
}

// Service runs the provisioning and analytics consumers side by side. The
// first consumer to fail stops the other.
type Service struct {
	logg         *logger.Logger
	dependencies []Dependency
	consumers    map[string]consumer
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Provisioning == nil {
		return nil, errors.New("provisioning consumer is required")
	}
	if params.Analytics == nil {
		return nil, errors.New("analytics consumer is required")
	}
	return &Service{
		logg:         params.Logger,
		dependencies: params.Dependencies,
		consumers: map[string]consumer{
			"provisioning": params.Provisioning,
			"analytics":    params.Analytics,
		},
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for _, dep := range s.dependencies {
		if dep.Pinger == nil {
			continue
		}
		if err := dep.Pinger.Ping(ctx); err != nil {
			s.logg.Error(ctx, fmt.Sprintf("%s ping failed", dep.Name), err)
			return fmt.Errorf("%s ping failed: %w", dep.Name, err)
		}
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for name, c := range s.consumers {
		name, c := name, c
		group.Go(func() error {
			runCtx := s.logg.WithField(groupCtx, "consumer", name)
			s.logg.Info(runCtx, "consumer started")
			err := c.Run(groupCtx)
			if err != nil && !errors.Is(err, context.Canceled) {
				s.logg.Error(runCtx, "consumer stopped unexpectedly", err)
				return fmt.Errorf("%s consumer: %w", name, err)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
