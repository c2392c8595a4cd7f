package cache

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compass-hr/pricing-engine/internal/model"
	"github.com/compass-hr/pricing-engine/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testRequest() *model.PricingRequest {
	req := &model.PricingRequest{
		JobTitle:          "Senior Software Engineer",
		Location:          "denver",
		RequesterIdentity: "alice@example.com",
	}
	req.Hash = req.ComputeHash()
	return req
}

func testComputed() *Computed {
	return &Computed{
		Result: &model.PricingResult{
			Percentiles:     model.PercentileSet{P10: 90000, P25: 105000, P50: 125000, P75: 150000, P90: 175000},
			TargetSalary:    125000,
			RecommendedMin:  105000,
			RecommendedMax:  150000,
			ConfidenceScore: 82.5,
			ConfidenceLevel: model.ConfidenceHigh,
			Contributions: []model.SourceContribution{
				{SourceName: "survey_library", Weight: 1.0, SampleSize: 400, QualityScore: 0.95, RecencyDays: 20, JobsMatched: 1},
			},
		},
	}
}

func TestGetOrCompute_MissComputesFirstVersion(t *testing.T) {
	st := newTestStore(t)
	c := New(st, Config{})

	calls := 0
	out, err := c.GetOrCompute(context.Background(), testRequest(), func(ctx context.Context) (*Computed, error) {
		calls++
		return testComputed(), nil
	})
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.False(t, out.CacheHit)
	assert.Equal(t, 1, out.Result.Version)
	assert.True(t, out.Result.IsLatest)
	assert.Equal(t, out.Request.ID, out.Result.RequestID)

	stored, err := st.GetLatestResult(context.Background(), out.Request.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 1, stored.Version)
}

func TestGetOrCompute_FreshResultIsHit(t *testing.T) {
	st := newTestStore(t)
	c := New(st, Config{})

	_, err := c.GetOrCompute(context.Background(), testRequest(), func(ctx context.Context) (*Computed, error) {
		return testComputed(), nil
	})
	require.NoError(t, err)

	out, err := c.GetOrCompute(context.Background(), testRequest(), func(ctx context.Context) (*Computed, error) {
		t.Fatal("compute must not run on a fresh cache entry")
		return nil, nil
	})
	require.NoError(t, err)
	assert.True(t, out.CacheHit)
	assert.Equal(t, 1, out.Result.Version)
	assert.Equal(t, 2, out.Request.RequestCount)
}

func TestGetOrCompute_ExpiredResultRecomputes(t *testing.T) {
	st := newTestStore(t)
	c := New(st, Config{DefaultTTLHours: 24})

	base := time.Now().UTC()
	c.now = func() time.Time { return base }

	_, err := c.GetOrCompute(context.Background(), testRequest(), func(ctx context.Context) (*Computed, error) {
		return testComputed(), nil
	})
	require.NoError(t, err)

	c.now = func() time.Time { return base.Add(25 * time.Hour) }
	out, err := c.GetOrCompute(context.Background(), testRequest(), func(ctx context.Context) (*Computed, error) {
		return testComputed(), nil
	})
	require.NoError(t, err)

	assert.False(t, out.CacheHit)
	assert.Equal(t, 2, out.Result.Version)

	versions, err := st.ListResultVersions(context.Background(), out.Request.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.True(t, versions[0].IsLatest)
	assert.False(t, versions[1].IsLatest)
}

func TestGetOrCompute_SmartTTL(t *testing.T) {
	st := newTestStore(t)
	base := time.Now().UTC()

	// A source with a 1-day freshness window shortens the 48h default.
	c := New(st, Config{DefaultTTLHours: 48})
	c.now = func() time.Time { return base }

	out, err := c.GetOrCompute(context.Background(), testRequest(), func(ctx context.Context) (*Computed, error) {
		computed := testComputed()
		computed.MinSourceFreshnessDays = 1
		return computed, nil
	})
	require.NoError(t, err)
	assert.WithinDuration(t, base.Add(24*time.Hour), out.Result.ExpiresAt, time.Second)
}

func TestGetOrCompute_DefaultTTLWhenNoSourceConstraint(t *testing.T) {
	st := newTestStore(t)
	base := time.Now().UTC()

	c := New(st, Config{DefaultTTLHours: 24})
	c.now = func() time.Time { return base }

	out, err := c.GetOrCompute(context.Background(), testRequest(), func(ctx context.Context) (*Computed, error) {
		return testComputed(), nil
	})
	require.NoError(t, err)
	assert.WithinDuration(t, base.Add(24*time.Hour), out.Result.ExpiresAt, time.Second)
}

func TestGetOrCompute_RetentionPurgesOldVersions(t *testing.T) {
	st := newTestStore(t)
	c := New(st, Config{RetainVersions: 3})

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		offset := time.Duration(i) * 25 * time.Hour
		c.now = func() time.Time { return base.Add(offset) }
		_, err := c.GetOrCompute(context.Background(), testRequest(), func(ctx context.Context) (*Computed, error) {
			return testComputed(), nil
		})
		require.NoError(t, err)
	}

	req, err := st.GetRequestByHash(context.Background(), testRequest().Hash)
	require.NoError(t, err)
	versions, err := st.ListResultVersions(context.Background(), req.ID)
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Equal(t, 5, versions[0].Version)
	assert.Equal(t, 3, versions[2].Version)
}

// conflictStore forces the first insert into the losing side of a version
// race after writing the winner's row out of band.
type conflictStore struct {
	store.Store
	conflicted bool
}

func (s *conflictStore) InsertResultVersion(ctx context.Context, result *model.PricingResult, retain int) (*model.PricingResult, error) {
	if !s.conflicted {
		s.conflicted = true
		if _, err := s.Store.InsertResultVersion(ctx, result, retain); err != nil {
			return nil, err
		}
		return nil, store.ErrVersionConflict
	}
	return s.Store.InsertResultVersion(ctx, result, retain)
}

func TestGetOrCompute_VersionConflictReReadsWinner(t *testing.T) {
	st := &conflictStore{Store: newTestStore(t)}
	c := New(st, Config{})

	out, err := c.GetOrCompute(context.Background(), testRequest(), func(ctx context.Context) (*Computed, error) {
		return testComputed(), nil
	})
	require.NoError(t, err)

	assert.True(t, out.CacheHit)
	assert.Equal(t, 1, out.Result.Version)
	assert.True(t, out.Result.IsLatest)
}

func TestGetOrCompute_CollapsesConcurrentCallers(t *testing.T) {
	st := newTestStore(t)
	c := New(st, Config{})

	const callers = 8
	release := make(chan struct{})
	started := make(chan struct{})

	var mu sync.Mutex
	calls := 0

	var wg sync.WaitGroup
	outcomes := make([]*Outcome, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := c.GetOrCompute(context.Background(), testRequest(), func(ctx context.Context) (*Computed, error) {
				mu.Lock()
				calls++
				mu.Unlock()
				close(started)
				<-release
				return testComputed(), nil
			})
			outcomes[i], errs[i] = out, err
		}(i)
	}

	<-started
	close(release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
	}
	assert.Equal(t, 1, calls)

	misses := 0
	for _, out := range outcomes {
		assert.Equal(t, 1, out.Result.Version)
		if !out.CacheHit {
			misses++
		}
	}
	assert.Equal(t, 1, misses)

	req, err := st.GetRequestByHash(context.Background(), testRequest().Hash)
	require.NoError(t, err)
	// Every caller counts as a repeat: the winner creates the row at count 1
	// and each collapsed caller touches it once.
	assert.Equal(t, callers, req.RequestCount)
	versions, err := st.ListResultVersions(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Len(t, versions, 1)
}
