package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/compass-hr/pricing-engine/internal/model"
)

// ErrVersionConflict is returned when two computations race to insert a
// result version for the same request. The losing writer re-reads the now
// fresh cache instead of erroring.
var ErrVersionConflict = eris.New("store: result version conflict")

// RequestFilter specifies criteria for listing pricing requests.
type RequestFilter struct {
	Requester string `json:"requester,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}

// LatestResult pairs a request with its current authoritative result,
// as listed for reporting and export.
type LatestResult struct {
	Request model.PricingRequest `json:"request"`
	Result  model.PricingResult  `json:"result"`
}

// Store defines the persistence interface for the pricing engine. The
// pricing_results and source_contributions tables are the only shared
// mutable state; all writes go through InsertResultVersion.
type Store interface {
	// Requests
	GetOrCreateRequest(ctx context.Context, req *model.PricingRequest) (*model.PricingRequest, bool, error)
	GetRequestByHash(ctx context.Context, hash string) (*model.PricingRequest, error)
	TouchRequest(ctx context.Context, requestID string, at time.Time) error
	ListRequests(ctx context.Context, filter RequestFilter) ([]model.PricingRequest, error)

	// Results. InsertResultVersion runs in one transaction: assign the next
	// version, flip the previous is_latest row to false, insert the new row
	// with its contributions, and purge history beyond the retention window.
	// A (request_id, version) uniqueness race surfaces as ErrVersionConflict.
	GetLatestResult(ctx context.Context, requestID string) (*model.PricingResult, error)
	InsertResultVersion(ctx context.Context, result *model.PricingResult, retainVersions int) (*model.PricingResult, error)
	ListResultVersions(ctx context.Context, requestID string) ([]model.PricingResult, error)
	ListLatestResults(ctx context.Context, limit int) ([]LatestResult, error)
	DeleteExpiredResults(ctx context.Context, keepLatest bool) (int, error)

	// Benchmark data (read side for the matcher catalog and providers).
	ListCanonicalJobs(ctx context.Context, jobFamily, careerLevel string) ([]model.CanonicalJob, error)
	GetBenchmark(ctx context.Context, sourceName, canonicalCode, location string) (*model.BenchmarkSalary, error)
	CostOfLivingIndex(ctx context.Context, location string) (float64, bool, error)

	// Dev seeding. Production benchmark tables are loaded by external
	// ingestion jobs; these exist for local work and tests.
	SeedCanonicalJobs(ctx context.Context, jobs []model.CanonicalJob) error
	SeedBenchmarks(ctx context.Context, rows []model.BenchmarkSalary) error
	SeedLocationIndices(ctx context.Context, indices []model.LocationIndex) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
