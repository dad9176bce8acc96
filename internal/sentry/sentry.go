package sentry

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/dinematters/dinematters/internal/config"
	"github.com/dinematters/dinematters/internal/logger"
)

// Service manages the Sentry SDK lifecycle. When Sentry is disabled every
// method is a no-op, so callers never need to branch on configuration.
type Service struct {
	cfg *config.Configuration
	log *logger.Logger
}

// NewService initializes the Sentry SDK and returns the wrapping service.
func NewService(cfg *config.Configuration, log *logger.Logger) (*Service, error) {
	svc := &Service{cfg: cfg, log: log}

	if !cfg.Sentry.Enabled || cfg.Sentry.DSN == "" {
		log.Debug("sentry disabled")
		return svc, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.Sentry.DSN,
		Environment:      cfg.Sentry.Environment,
		TracesSampleRate: cfg.Sentry.SampleRate,
		AttachStacktrace: true,
	})
	if err != nil {
		return nil, err
	}

	log.Infow("sentry initialized", "environment", cfg.Sentry.Environment)
	return svc, nil
}

// CaptureException reports an error to Sentry if enabled.
func (s *Service) CaptureException(err error) {
	if !s.cfg.Sentry.Enabled || err == nil {
		return
	}
	sentry.CaptureException(err)
}

// Shutdown flushes buffered events before the process exits.
func (s *Service) Shutdown(ctx context.Context) {
	if !s.cfg.Sentry.Enabled {
		return
	}
	sentry.Flush(2 * time.Second)
}
