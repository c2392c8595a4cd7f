// Package location applies cost-of-living adjustment to aggregated salaries.
package location

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/compass-hr/pricing-engine/internal/model"
)

// Config holds the adjuster tunables.
type Config struct {
	ReferenceLocation string `yaml:"reference_location" mapstructure:"reference_location"`
}

// IndexLookup resolves a location to its cost-of-living index. A lookup miss
// returns found=false, never an error for unknown locations.
type IndexLookup interface {
	CostOfLivingIndex(ctx context.Context, location string) (index float64, found bool, err error)
}

// Adjuster scales percentile distributions by a location index. The
// adjustment is always recorded alongside the result, never silently applied.
type Adjuster struct {
	lookup IndexLookup
	cfg    Config
}

// New creates an Adjuster over the given index source.
func New(lookup IndexLookup, cfg Config) *Adjuster {
	if cfg.ReferenceLocation == "" {
		cfg.ReferenceLocation = "national"
	}
	return &Adjuster{lookup: lookup, cfg: cfg}
}

// Reference returns the baseline location (index 1.0).
func (a *Adjuster) Reference() string {
	return a.cfg.ReferenceLocation
}

// Adjust scales p by the location's cost-of-living index and returns the
// adjusted distribution with an adjustment record for explainability.
// Unknown locations fall back to the reference index of 1.0.
func (a *Adjuster) Adjust(ctx context.Context, p model.PercentileSet, loc string) (model.PercentileSet, model.LocationAdjustment, error) {
	loc = strings.TrimSpace(loc)
	if loc == "" {
		loc = a.cfg.ReferenceLocation
	}

	adj := model.LocationAdjustment{Location: loc, CostOfLivingIdx: 1.0}
	if strings.EqualFold(loc, a.cfg.ReferenceLocation) {
		adj.ReferenceApplied = true
		adj.Note = "reference location, no adjustment applied"
		return p, adj, nil
	}

	idx, found, err := a.lookup.CostOfLivingIndex(ctx, loc)
	if err != nil {
		return p, adj, eris.Wrapf(err, "location: index lookup for %q", loc)
	}
	if !found || idx <= 0 {
		adj.Note = fmt.Sprintf("no cost-of-living index for %q, reference index used", loc)
		zap.L().Warn("location: unknown location, using reference index", zap.String("location", loc))
		return p, adj, nil
	}

	adj.CostOfLivingIdx = idx
	adj.Note = fmt.Sprintf("salaries scaled by %.2f relative to %s", idx, a.cfg.ReferenceLocation)
	return p.Scale(idx), adj, nil
}
