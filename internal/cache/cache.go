// Package cache implements the deduplicating, versioned result cache. Per
// request hash the stored state moves Absent -> Fresh -> Stale -> Fresh: a
// fresh latest row is returned as-is, a stale or absent one triggers a full
// recomputation that inserts the next version and flips is_latest in one
// transaction.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/compass-hr/pricing-engine/internal/model"
	"github.com/compass-hr/pricing-engine/internal/store"
)

// Config holds the cache tunables.
type Config struct {
	DefaultTTLHours int `yaml:"default_ttl_hours" mapstructure:"default_ttl_hours"`
	RetainVersions  int `yaml:"retain_versions" mapstructure:"retain_versions"`
}

// Computed is the output of a full pricing computation, before versioning.
type Computed struct {
	Result *model.PricingResult

	// MinSourceFreshnessDays is the smallest freshness window among the
	// contributing sources; zero means no source constrains the TTL.
	MinSourceFreshnessDays int
}

// ComputeFunc runs the full pricing pipeline for a cache miss.
type ComputeFunc func(ctx context.Context) (*Computed, error)

// Outcome is what the cache hands back to the orchestrator.
type Outcome struct {
	Request  *model.PricingRequest
	Result   *model.PricingResult
	CacheHit bool
}

// Cache collapses concurrent identical requests in-process via singleflight
// and relies on the store's version constraints across processes.
type Cache struct {
	store store.Store
	cfg   Config
	group singleflight.Group
	now   func() time.Time
}

// New creates a Cache over the given store.
func New(st store.Store, cfg Config) *Cache {
	if cfg.DefaultTTLHours <= 0 {
		cfg.DefaultTTLHours = 24
	}
	if cfg.RetainVersions <= 0 {
		cfg.RetainVersions = 5
	}
	return &Cache{store: st, cfg: cfg, now: time.Now}
}

// GetOrCompute resolves one request through the cache state machine. At most
// one computation per request hash is in flight at a time; collapsed callers
// share the winner's outcome and see it as a cache hit.
func (c *Cache) GetOrCompute(ctx context.Context, req *model.PricingRequest, compute ComputeFunc) (*Outcome, error) {
	if req.Hash == "" {
		req.Hash = req.ComputeHash()
	}

	v, err, shared := c.group.Do(req.Hash, func() (any, error) {
		return c.resolve(ctx, req, compute)
	})
	if err != nil {
		return nil, err
	}

	outcome := v.(*Outcome)
	if shared {
		// Collapsed callers are real repeats: each still counts against the
		// request's popularity, even though only the winner computed.
		now := c.now()
		if err := c.store.TouchRequest(ctx, outcome.Request.ID, now); err != nil {
			return nil, eris.Wrap(err, "cache: touch collapsed request")
		}
		dup := *outcome
		reqCopy := *outcome.Request
		reqCopy.RequestCount++
		reqCopy.LastRequestedAt = now
		dup.Request = &reqCopy
		dup.CacheHit = true
		return &dup, nil
	}
	return outcome, nil
}

func (c *Cache) resolve(ctx context.Context, req *model.PricingRequest, compute ComputeFunc) (*Outcome, error) {
	now := c.now()

	stored, created, err := c.store.GetOrCreateRequest(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "cache: get or create request")
	}
	if !created {
		if err := c.store.TouchRequest(ctx, stored.ID, now); err != nil {
			return nil, eris.Wrap(err, "cache: touch request")
		}
		stored.RequestCount++
		stored.LastRequestedAt = now
	}

	latest, err := c.store.GetLatestResult(ctx, stored.ID)
	if err != nil {
		return nil, eris.Wrap(err, "cache: get latest result")
	}
	if latest != nil && !latest.Expired(now) {
		zap.L().Debug("cache hit",
			zap.String("request_hash", stored.Hash),
			zap.Int("version", latest.Version),
		)
		return &Outcome{Request: stored, Result: latest, CacheHit: true}, nil
	}

	// Absent or stale: run the full computation and insert the next version.
	computed, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	result := computed.Result
	result.RequestID = stored.ID
	result.CalculatedAt = now
	result.ExpiresAt = now.Add(c.smartTTL(computed.MinSourceFreshnessDays))

	inserted, err := c.store.InsertResultVersion(ctx, result, c.cfg.RetainVersions)
	if err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			// A concurrent writer won the insert race. Return its row.
			fresh, rerr := c.store.GetLatestResult(ctx, stored.ID)
			if rerr != nil {
				return nil, eris.Wrap(rerr, "cache: re-read after version conflict")
			}
			if fresh != nil {
				zap.L().Info("cache write conflict resolved by re-read",
					zap.String("request_hash", stored.Hash),
					zap.Int("version", fresh.Version),
				)
				return &Outcome{Request: stored, Result: fresh, CacheHit: true}, nil
			}
		}
		return nil, eris.Wrap(err, "cache: insert result version")
	}

	zap.L().Info("pricing result computed",
		zap.String("request_hash", stored.Hash),
		zap.Int("version", inserted.Version),
		zap.Time("expires_at", inserted.ExpiresAt),
	)
	return &Outcome{Request: stored, Result: inserted, CacheHit: false}, nil
}

// smartTTL derives the expiry window from the freshest-expiring contributing
// source, capped by the default TTL.
func (c *Cache) smartTTL(minFreshnessDays int) time.Duration {
	ttl := time.Duration(c.cfg.DefaultTTLHours) * time.Hour
	if minFreshnessDays > 0 {
		if sourceTTL := time.Duration(minFreshnessDays) * 24 * time.Hour; sourceTTL < ttl {
			ttl = sourceTTL
		}
	}
	return ttl
}
