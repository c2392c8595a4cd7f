// Package source defines the benchmark source capability interface and the
// registry the orchestrator iterates. Providers are registered in a list
// rather than branched on by identity, so adding a source never touches
// aggregation logic.
package source

import (
	"context"
	"fmt"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/compass-hr/pricing-engine/internal/model"
)

// ErrNoData signals that a provider has no usable percentile data for the
// requested job/location. It is an expected outcome, not a failure.
var ErrNoData = eris.New("source: no percentile data")

// UnavailableError marks a provider that failed or timed out. The orchestrator
// excludes the source and degrades confidence instead of failing the request.
type UnavailableError struct {
	Source string
	Err    error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Quote is one source's answer for a single canonical job and location.
type Quote struct {
	SourceName    string
	Percentiles   model.PercentileSet
	SampleSize    int
	RecencyDays   int
	Quality       float64
	FreshnessDays int
	SurveyLabel   string
}

// Provider is the single capability every benchmark source implements.
type Provider interface {
	// Name returns the stable source identifier.
	Name() string
	// GetPercentiles returns the source's distribution for a canonical job
	// at a location, or ErrNoData when the source has nothing usable.
	GetPercentiles(ctx context.Context, canonicalCode, location string) (*Quote, error)
}

// Registry holds the registered providers in registration order.
type Registry struct {
	mu        sync.RWMutex
	order     []string
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider. Re-registering a name replaces the provider but
// keeps its original position.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[p.Name()]; !ok {
		r.order = append(r.order, p.Name())
	}
	r.providers[p.Name()] = p
}

// Get returns a provider by name, or nil if not registered.
func (r *Registry) Get(name string) Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.providers[name]
}

// List returns all providers in registration order.
func (r *Registry) List() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.providers[name])
	}
	return out
}

// Names returns the registered provider names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}
