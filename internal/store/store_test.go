package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compass-hr/pricing-engine/internal/model"
)

func sampleRequest(title string) *model.PricingRequest {
	req := &model.PricingRequest{
		JobTitle:          title,
		JobDescription:    "builds things",
		Location:          "denver",
		RequesterIdentity: "alice@example.com",
	}
	req.Hash = req.ComputeHash()
	return req
}

func sampleResult(requestID string, now time.Time) *model.PricingResult {
	return &model.PricingResult{
		RequestID:   requestID,
		Percentiles: model.PercentileSet{P10: 80000, P25: 95000, P50: 112000, P75: 131000, P90: 152000},
		TargetSalary:   112000,
		RecommendedMin: 95000,
		RecommendedMax: 131000,
		ConfidenceScore: 82,
		ConfidenceLevel: model.ConfidenceHigh,
		ConfidenceFactors: model.ConfidenceFactors{JobMatch: 18, DataPoints: 26, SampleSize: 38},
		Adjustment: model.LocationAdjustment{Location: "denver", CostOfLivingIdx: 1.06},
		Contributions: []model.SourceContribution{
			{SourceName: "survey_library", Weight: 0.6, SampleSize: 1840, QualityScore: 0.95, RecencyDays: 31, SurveyLabel: "Standardized Survey Library", JobsMatched: 2},
			{SourceName: "gov_framework", Weight: 0.4, SampleSize: 12400, QualityScore: 0.90, RecencyDays: 160, JobsMatched: 1},
		},
		Scenarios:    map[string]float64{"conservative": 100100, "aggressive": 125300},
		MatchedJobs:  []model.MatchedJob{{CanonicalCode: "SL-1011", CanonicalTitle: "Senior Software Engineer", Similarity: 0.93, ConfidenceBucket: model.BucketHigh}},
		CalculatedAt: now,
		ExpiresAt:    now.Add(24 * time.Hour),
	}
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("GetOrCreateRequest_Creates", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		req, created, err := s.GetOrCreateRequest(ctx, sampleRequest("Senior Software Engineer"))
		require.NoError(t, err)
		assert.True(t, created)
		assert.NotEmpty(t, req.ID)
		assert.Equal(t, 1, req.RequestCount)
		assert.False(t, req.FirstRequestedAt.IsZero())
	})

	t.Run("GetOrCreateRequest_DedupesByHash", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		first, created, err := s.GetOrCreateRequest(ctx, sampleRequest("Senior Software Engineer"))
		require.NoError(t, err)
		require.True(t, created)

		second, created, err := s.GetOrCreateRequest(ctx, sampleRequest("Senior Software Engineer"))
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("GetRequestByHash_MissingIsNil", func(t *testing.T) {
		s := newStore(t)

		got, err := s.GetRequestByHash(context.Background(), "no-such-hash")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("TouchRequest", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		req, _, err := s.GetOrCreateRequest(ctx, sampleRequest("Data Analyst"))
		require.NoError(t, err)

		later := time.Now().UTC().Add(time.Hour)
		require.NoError(t, s.TouchRequest(ctx, req.ID, later))

		got, err := s.GetRequestByHash(ctx, req.Hash)
		require.NoError(t, err)
		assert.Equal(t, 2, got.RequestCount)
		assert.WithinDuration(t, later, got.LastRequestedAt, time.Second)
	})

	t.Run("TouchRequest_NotFound", func(t *testing.T) {
		s := newStore(t)

		err := s.TouchRequest(context.Background(), "nonexistent-id", time.Now())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("ListRequests_FilterByRequester", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, _, err := s.GetOrCreateRequest(ctx, sampleRequest("Engineer A"))
		require.NoError(t, err)

		other := sampleRequest("Engineer B")
		other.RequesterIdentity = "bob@example.com"
		other.Hash = other.ComputeHash()
		_, _, err = s.GetOrCreateRequest(ctx, other)
		require.NoError(t, err)

		all, err := s.ListRequests(ctx, RequestFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 2)

		bob, err := s.ListRequests(ctx, RequestFilter{Requester: "bob@example.com"})
		require.NoError(t, err)
		require.Len(t, bob, 1)
		assert.Equal(t, "Engineer B", bob[0].JobTitle)
	})

	t.Run("InsertResultVersion_FirstVersion", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		now := time.Now().UTC().Truncate(time.Second)

		req, _, err := s.GetOrCreateRequest(ctx, sampleRequest("Senior Software Engineer"))
		require.NoError(t, err)

		inserted, err := s.InsertResultVersion(ctx, sampleResult(req.ID, now), 5)
		require.NoError(t, err)
		assert.Equal(t, 1, inserted.Version)
		assert.True(t, inserted.IsLatest)
		assert.NotEmpty(t, inserted.ID)

		got, err := s.GetLatestResult(ctx, req.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 1, got.Version)
		assert.True(t, got.IsLatest)
		assert.Equal(t, 112000.0, got.TargetSalary)
		assert.Equal(t, model.ConfidenceHigh, got.ConfidenceLevel)
		assert.InDelta(t, 26, got.ConfidenceFactors.DataPoints, 1e-9)
		assert.Equal(t, 1.06, got.Adjustment.CostOfLivingIdx)
		require.Len(t, got.Contributions, 2)
		assert.Equal(t, "survey_library", got.Contributions[0].SourceName)
		require.Len(t, got.MatchedJobs, 1)
		assert.Equal(t, "SL-1011", got.MatchedJobs[0].CanonicalCode)
		assert.InDelta(t, 125300, got.Scenarios["aggressive"], 1e-9)
	})

	t.Run("InsertResultVersion_SupersedesPrevious", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		now := time.Now().UTC()

		req, _, err := s.GetOrCreateRequest(ctx, sampleRequest("Senior Software Engineer"))
		require.NoError(t, err)

		_, err = s.InsertResultVersion(ctx, sampleResult(req.ID, now), 5)
		require.NoError(t, err)

		updated := sampleResult(req.ID, now.Add(time.Minute))
		updated.TargetSalary = 118000
		second, err := s.InsertResultVersion(ctx, updated, 5)
		require.NoError(t, err)
		assert.Equal(t, 2, second.Version)

		latest, err := s.GetLatestResult(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, latest.Version)
		assert.Equal(t, 118000.0, latest.TargetSalary)

		versions, err := s.ListResultVersions(ctx, req.ID)
		require.NoError(t, err)
		require.Len(t, versions, 2)
		assert.Equal(t, 2, versions[0].Version)
		assert.True(t, versions[0].IsLatest)
		assert.Equal(t, 1, versions[1].Version)
		assert.False(t, versions[1].IsLatest)
	})

	t.Run("InsertResultVersion_RetentionPurge", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		now := time.Now().UTC()

		req, _, err := s.GetOrCreateRequest(ctx, sampleRequest("Senior Software Engineer"))
		require.NoError(t, err)

		for i := 0; i < 7; i++ {
			_, err := s.InsertResultVersion(ctx, sampleResult(req.ID, now.Add(time.Duration(i)*time.Minute)), 5)
			require.NoError(t, err)
		}

		versions, err := s.ListResultVersions(ctx, req.ID)
		require.NoError(t, err)
		require.Len(t, versions, 5)
		// Newest five survive: versions 3..7.
		assert.Equal(t, 7, versions[0].Version)
		assert.Equal(t, 3, versions[4].Version)
	})

	t.Run("GetLatestResult_MissingIsNil", func(t *testing.T) {
		s := newStore(t)

		got, err := s.GetLatestResult(context.Background(), "nonexistent-id")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("ListLatestResults", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		now := time.Now().UTC()

		req, _, err := s.GetOrCreateRequest(ctx, sampleRequest("Senior Software Engineer"))
		require.NoError(t, err)
		_, err = s.InsertResultVersion(ctx, sampleResult(req.ID, now), 5)
		require.NoError(t, err)
		_, err = s.InsertResultVersion(ctx, sampleResult(req.ID, now.Add(time.Minute)), 5)
		require.NoError(t, err)

		out, err := s.ListLatestResults(ctx, 0)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, req.Hash, out[0].Request.Hash)
		assert.Equal(t, 2, out[0].Result.Version)
		assert.Len(t, out[0].Result.Contributions, 2)
	})

	t.Run("DeleteExpiredResults_KeepLatest", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		past := time.Now().UTC().Add(-48 * time.Hour)

		req, _, err := s.GetOrCreateRequest(ctx, sampleRequest("Senior Software Engineer"))
		require.NoError(t, err)

		expired := sampleResult(req.ID, past)
		expired.ExpiresAt = past.Add(time.Hour)
		_, err = s.InsertResultVersion(ctx, expired, 5)
		require.NoError(t, err)

		expired2 := sampleResult(req.ID, past.Add(time.Minute))
		expired2.ExpiresAt = past.Add(2 * time.Hour)
		_, err = s.InsertResultVersion(ctx, expired2, 5)
		require.NoError(t, err)

		deleted, err := s.DeleteExpiredResults(ctx, true)
		require.NoError(t, err)
		assert.Equal(t, 1, deleted)

		// The expired latest row survives so history is never empty.
		latest, err := s.GetLatestResult(ctx, req.ID)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, 2, latest.Version)

		deleted, err = s.DeleteExpiredResults(ctx, false)
		require.NoError(t, err)
		assert.Equal(t, 1, deleted)
	})

	t.Run("CanonicalJobs_SeedAndFilter", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		jobs := []model.CanonicalJob{
			{SourceName: "survey_library", Code: "SL-1010", Title: "Software Engineer", JobFamily: "engineering", CareerLevel: "mid"},
			{SourceName: "survey_library", Code: "SL-1011", Title: "Senior Software Engineer", JobFamily: "engineering", CareerLevel: "senior"},
			{SourceName: "gov_framework", Code: "GF-13-1071", Title: "Human Resources Specialist", JobFamily: "human resources"},
		}
		require.NoError(t, s.SeedCanonicalJobs(ctx, jobs))

		all, err := s.ListCanonicalJobs(ctx, "", "")
		require.NoError(t, err)
		assert.Len(t, all, 3)

		eng, err := s.ListCanonicalJobs(ctx, "engineering", "")
		require.NoError(t, err)
		assert.Len(t, eng, 2)

		senior, err := s.ListCanonicalJobs(ctx, "engineering", "senior")
		require.NoError(t, err)
		require.Len(t, senior, 1)
		assert.Equal(t, "SL-1011", senior[0].Code)

		// Re-seeding upserts rather than duplicating.
		require.NoError(t, s.SeedCanonicalJobs(ctx, jobs[:1]))
		all, err = s.ListCanonicalJobs(ctx, "", "")
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("Benchmarks_SeedAndGet", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		asOf := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

		rows := []model.BenchmarkSalary{{
			SourceName:    "survey_library",
			CanonicalCode: "SL-1011",
			Location:      "national",
			Percentiles:   model.PercentileSet{P10: 108000, P25: 124000, P50: 145000, P75: 168000, P90: 193000},
			SampleSize:    1210,
			DataAsOf:      asOf,
			QualityScore:  0.95,
		}}
		require.NoError(t, s.SeedBenchmarks(ctx, rows))

		got, err := s.GetBenchmark(ctx, "survey_library", "SL-1011", "national")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 145000.0, got.Percentiles.P50)
		assert.Equal(t, 1210, got.SampleSize)
		assert.Equal(t, 0.95, got.QualityScore)
		assert.True(t, got.DataAsOf.Equal(asOf))

		missing, err := s.GetBenchmark(ctx, "survey_library", "SL-9999", "national")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("LocationIndices_SeedAndLookup", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.SeedLocationIndices(ctx, []model.LocationIndex{
			{Location: "oklahoma city", Index: 0.88},
			{Location: "national", Index: 1.0},
		}))

		idx, found, err := s.CostOfLivingIndex(ctx, "oklahoma city")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, 0.88, idx)

		_, found, err = s.CostOfLivingIndex(ctx, "atlantis")
		require.NoError(t, err)
		assert.False(t, found)
	})
}
