package pricing

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compass-hr/pricing-engine/internal/cache"
	"github.com/compass-hr/pricing-engine/internal/confidence"
	"github.com/compass-hr/pricing-engine/internal/location"
	"github.com/compass-hr/pricing-engine/internal/matcher"
	"github.com/compass-hr/pricing-engine/internal/model"
	"github.com/compass-hr/pricing-engine/internal/source"
	"github.com/compass-hr/pricing-engine/internal/store"
	"github.com/compass-hr/pricing-engine/internal/weight"
)

func newTestEngine(t *testing.T) (*Engine, store.Store) {
	t.Helper()
	ctx := context.Background()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(ctx))

	require.NoError(t, st.SeedCanonicalJobs(ctx, []model.CanonicalJob{
		{SourceName: "survey_library", Code: "SL-1011", Title: "Senior Software Engineer", JobFamily: "engineering", CareerLevel: "senior"},
		{SourceName: "survey_library", Code: "SL-2021", Title: "Data Analyst", JobFamily: "analytics", CareerLevel: "mid"},
	}))

	recent := time.Now().UTC().Add(-30 * 24 * time.Hour)
	require.NoError(t, st.SeedBenchmarks(ctx, []model.BenchmarkSalary{
		{
			SourceName: "survey_library", CanonicalCode: "SL-1011", Location: "national",
			Percentiles: model.PercentileSet{P10: 100000, P25: 115000, P50: 135000, P75: 160000, P90: 185000},
			SampleSize:  400, DataAsOf: recent, QualityScore: 0.95,
		},
		{
			SourceName: "gov_framework", CanonicalCode: "SL-1011", Location: "national",
			Percentiles: model.PercentileSet{P10: 95000, P25: 110000, P50: 130000, P75: 155000, P90: 180000},
			SampleSize:  900, DataAsOf: recent, QualityScore: 0.90,
		},
	}))

	require.NoError(t, st.SeedLocationIndices(ctx, []model.LocationIndex{
		{Location: "national", Index: 1.00},
		{Location: "oklahoma city", Index: 0.88},
	}))

	adj := location.New(st, location.Config{ReferenceLocation: "national"})
	registry := source.NewRegistry()
	for _, name := range []string{"survey_library", "gov_framework"} {
		cfg := source.Config{Name: name, FreshnessDays: 90}
		registry.Register(source.Guard(source.NewStoreProvider(st, cfg, adj.Reference()), cfg))
	}

	eng := New(
		matcher.New(st, matcher.Config{}),
		registry,
		weight.New(weight.Config{}),
		adj,
		confidence.New(confidence.Config{}),
		cache.New(st, cache.Config{}),
		Config{},
	)
	return eng, st
}

func TestPrice_ExactMatch(t *testing.T) {
	eng, _ := newTestEngine(t)

	resp, err := eng.Price(context.Background(), Request{
		JobTitle:  "Senior Software Engineer",
		Requester: "alice@example.com",
	})
	require.NoError(t, err)

	assert.False(t, resp.CacheHit)
	assert.Equal(t, 1, resp.Version)
	assert.Equal(t, "USD", resp.Currency)
	assert.Equal(t, "annual", resp.Period)
	assert.Equal(t, "national", resp.Location)

	require.NotEmpty(t, resp.MatchedJobs)
	assert.Equal(t, "SL-1011", resp.MatchedJobs[0].Code)
	assert.Equal(t, float64(100), resp.MatchedJobs[0].SimilarityPct)
	assert.Equal(t, model.BucketHigh, resp.MatchedJobs[0].ConfidenceBucket)

	// Both sources contribute; the fused median sits between the inputs.
	assert.Len(t, resp.DataSources, 2)
	assert.Greater(t, resp.Percentiles["p50"], 130000.0)
	assert.Less(t, resp.Percentiles["p50"], 135000.0)
	assert.Equal(t, resp.Percentiles["p50"], resp.RecommendedRange.Target)
	assert.Equal(t, resp.Percentiles["p25"], resp.RecommendedRange.Min)
	assert.Equal(t, resp.Percentiles["p75"], resp.RecommendedRange.Max)
	assert.NotEmpty(t, resp.Summary)
}

func TestPrice_SecondCallIsCacheHit(t *testing.T) {
	eng, _ := newTestEngine(t)
	req := Request{JobTitle: "Senior Software Engineer", Requester: "alice@example.com"}

	first, err := eng.Price(context.Background(), req)
	require.NoError(t, err)
	second, err := eng.Price(context.Background(), req)
	require.NoError(t, err)

	assert.False(t, first.CacheHit)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Version, second.Version)
	assert.Equal(t, first.RecommendedRange, second.RecommendedRange)
}

func TestPrice_LocationAdjustment(t *testing.T) {
	eng, _ := newTestEngine(t)

	national, err := eng.Price(context.Background(), Request{
		JobTitle: "Senior Software Engineer", Requester: "alice@example.com",
	})
	require.NoError(t, err)

	okc, err := eng.Price(context.Background(), Request{
		JobTitle: "Senior Software Engineer", Location: "Oklahoma City", Requester: "alice@example.com",
	})
	require.NoError(t, err)

	assert.InDelta(t, national.RecommendedRange.Target*0.88, okc.RecommendedRange.Target, 0.01)
	assert.Equal(t, 0.88, okc.Adjustment.CostOfLivingIdx)
	assert.False(t, okc.Adjustment.ReferenceApplied)
	assert.Contains(t, okc.Summary, "cost-of-living")
}

func TestPrice_NoMatches(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.Price(context.Background(), Request{
		JobTitle: "Underwater Basket Weaver", Requester: "alice@example.com",
	})
	require.Error(t, err)
	assert.Equal(t, CodeNoMatches, CodeOf(err))
	assert.Empty(t, PartialMatches(err))
}

func TestPrice_NoDataAvailable(t *testing.T) {
	// Data Analyst exists in the catalog but no source has benchmark rows.
	eng, _ := newTestEngine(t)

	_, err := eng.Price(context.Background(), Request{
		JobTitle: "Data Analyst", Requester: "alice@example.com",
	})
	require.Error(t, err)
	assert.Equal(t, CodeNoDataAvailable, CodeOf(err))
	partial := PartialMatches(err)
	require.NotEmpty(t, partial)
	assert.Equal(t, "SL-2021", partial[0].CanonicalCode)
}

// downProvider simulates a benchmark source that never answers in time.
type downProvider struct{ name string }

func (p *downProvider) Name() string { return p.name }

func (p *downProvider) GetPercentiles(ctx context.Context, code, loc string) (*source.Quote, error) {
	return nil, &source.UnavailableError{Source: p.name, Err: context.DeadlineExceeded}
}

func TestPrice_UnavailableSourceDegradesConfidence(t *testing.T) {
	healthy, _ := newTestEngine(t)
	resp2, err := healthy.Price(context.Background(), Request{
		JobTitle: "Senior Software Engineer", Requester: "alice@example.com",
	})
	require.NoError(t, err)

	// Same data, but gov_framework is replaced by a provider that always fails.
	_, st := newTestEngine(t)
	degradedRegistry := source.NewRegistry()
	degradedRegistry.Register(source.Guard(
		source.NewStoreProvider(st, source.Config{Name: "survey_library", FreshnessDays: 90}, "national"), source.Config{}))
	degradedRegistry.Register(&downProvider{name: "gov_framework"})
	adj := location.New(st, location.Config{ReferenceLocation: "national"})
	degraded := New(
		matcher.New(st, matcher.Config{}),
		degradedRegistry,
		weight.New(weight.Config{}),
		adj,
		confidence.New(confidence.Config{}),
		cache.New(st, cache.Config{}),
		Config{},
	)

	resp1, err := degraded.Price(context.Background(), Request{
		JobTitle: "Senior Software Engineer", Requester: "alice@example.com",
	})
	require.NoError(t, err)

	// The request still succeeds on the surviving source, with less confidence.
	assert.Len(t, resp1.DataSources, 1)
	assert.Contains(t, resp1.DataSources, "survey_library")
	assert.Less(t, resp1.Confidence.Score, resp2.Confidence.Score)
}

// staticProvider returns the same quote for every lookup.
type staticProvider struct {
	name  string
	quote source.Quote
}

func (p *staticProvider) Name() string { return p.name }

func (p *staticProvider) GetPercentiles(ctx context.Context, code, loc string) (*source.Quote, error) {
	q := p.quote
	q.SourceName = p.name
	return &q, nil
}

func TestPrice_ZeroQualitySourceDoesNotContaminateResult(t *testing.T) {
	_, st := newTestEngine(t)

	// community_panel sorts ahead of survey_library, quotes implausible numbers,
	// and carries quality zero, so the weighter drops it. The result must be
	// exactly the surviving source's distribution under its own name.
	registry := source.NewRegistry()
	registry.Register(&staticProvider{name: "community_panel", quote: source.Quote{
		Percentiles: model.PercentileSet{P10: 10, P25: 20, P50: 30, P75: 40, P90: 50},
		SampleSize:  5000, RecencyDays: 10, Quality: 0, FreshnessDays: 30,
	}})
	registry.Register(&staticProvider{name: "survey_library", quote: source.Quote{
		Percentiles: model.PercentileSet{P10: 100000, P25: 115000, P50: 135000, P75: 160000, P90: 185000},
		SampleSize:  400, RecencyDays: 30, Quality: 0.95, FreshnessDays: 90,
	}})

	adj := location.New(st, location.Config{ReferenceLocation: "national"})
	eng := New(
		matcher.New(st, matcher.Config{}),
		registry,
		weight.New(weight.Config{}),
		adj,
		confidence.New(confidence.Config{}),
		cache.New(st, cache.Config{}),
		Config{},
	)

	resp, err := eng.Price(context.Background(), Request{
		JobTitle: "Senior Software Engineer", Requester: "alice@example.com",
	})
	require.NoError(t, err)

	require.Len(t, resp.DataSources, 1)
	assert.Contains(t, resp.DataSources, "survey_library")
	assert.Equal(t, 135000.0, resp.Percentiles["p50"])

	req, err := st.GetRequestByHash(context.Background(), (&model.PricingRequest{
		JobTitle:          "Senior Software Engineer",
		Location:          "national",
		RequesterIdentity: "alice@example.com",
	}).ComputeHash())
	require.NoError(t, err)
	require.NotNil(t, req)

	stored, err := st.GetLatestResult(context.Background(), req.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Len(t, stored.Contributions, 1)
	assert.Equal(t, "survey_library", stored.Contributions[0].SourceName)
	assert.Equal(t, 400, stored.Contributions[0].SampleSize)
	assert.InDelta(t, 1.0, stored.Contributions[0].Weight, 1e-9)
}

func TestPrice_ValidationError(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.Price(context.Background(), Request{JobTitle: "a", Requester: "alice@example.com"})
	require.Error(t, err)
	assert.Equal(t, CodeValidation, CodeOf(err))
}

func TestPrice_ContributionWeightsSumToOne(t *testing.T) {
	eng, st := newTestEngine(t)

	resp, err := eng.Price(context.Background(), Request{
		JobTitle: "Senior Software Engineer", Requester: "alice@example.com",
	})
	require.NoError(t, err)

	req, err := st.GetRequestByHash(context.Background(), (&model.PricingRequest{
		JobTitle:          "Senior Software Engineer",
		Location:          "national",
		RequesterIdentity: "alice@example.com",
	}).ComputeHash())
	require.NoError(t, err)
	require.NotNil(t, req)

	stored, err := st.GetLatestResult(context.Background(), req.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Len(t, stored.Contributions, 2)

	sum := 0.0
	for _, c := range stored.Contributions {
		sum += c.Weight
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Equal(t, resp.Version, stored.Version)
}

func TestFormatSalary(t *testing.T) {
	assert.Equal(t, "$135K", FormatSalary(135000, "USD"))
	assert.Equal(t, "$1.20M", FormatSalary(1200000, ""))
	assert.Equal(t, "$950", FormatSalary(950, "USD"))
	assert.Equal(t, "EUR 90K", FormatSalary(90000, "EUR"))
}
