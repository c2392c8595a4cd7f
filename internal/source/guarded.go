package source

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/compass-hr/pricing-engine/internal/resilience"
)

const defaultTimeout = 10 * time.Second

// Guarded wraps a provider with a bounded timeout, rate limiting, and
// retry-on-transient. Any failure that survives the retry budget comes back
// as an UnavailableError so the caller can degrade instead of aborting.
type Guarded struct {
	inner   Provider
	timeout time.Duration
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// Guard wraps inner with the operational policy from cfg.
func Guard(inner Provider, cfg Config) *Guarded {
	timeout := defaultTimeout
	if cfg.TimeoutSecs > 0 {
		timeout = time.Duration(cfg.TimeoutSecs) * time.Second
	}
	var limiter *rate.Limiter
	if cfg.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1)
	}
	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = 2
	retry.InitialBackoff = 100 * time.Millisecond
	return &Guarded{inner: inner, timeout: timeout, limiter: limiter, retry: retry}
}

func (g *Guarded) Name() string { return g.inner.Name() }

// GetPercentiles enforces the timeout budget on the wrapped provider. ErrNoData
// passes through untouched; everything else is classified unavailable.
func (g *Guarded) GetPercentiles(ctx context.Context, canonicalCode, location string) (*Quote, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, &UnavailableError{Source: g.Name(), Err: err}
		}
	}

	quote, err := resilience.DoVal(ctx, g.retry, func(ctx context.Context) (*Quote, error) {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()
		q, err := g.inner.GetPercentiles(callCtx, canonicalCode, location)
		if err != nil && callCtx.Err() != nil && ctx.Err() == nil {
			// Per-call timeout, not caller cancellation: worth one retry.
			return nil, resilience.NewTransientError(err, 0)
		}
		return q, err
	})
	if err != nil {
		if errors.Is(err, ErrNoData) {
			return nil, err
		}
		zap.L().Warn("source unavailable",
			zap.String("source", g.Name()),
			zap.String("canonical_code", canonicalCode),
			zap.Error(err),
		)
		return nil, &UnavailableError{Source: g.Name(), Err: err}
	}
	return quote, nil
}
