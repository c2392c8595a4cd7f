package source

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compass-hr/pricing-engine/internal/model"
)

type fakeReader struct {
	rows map[string]*model.BenchmarkSalary // key: source|code|location
	err  error
}

func (f *fakeReader) GetBenchmark(ctx context.Context, sourceName, canonicalCode, location string) (*model.BenchmarkSalary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rows[sourceName+"|"+canonicalCode+"|"+location], nil
}

func benchRow(loc string, asOf time.Time) *model.BenchmarkSalary {
	return &model.BenchmarkSalary{
		SourceName:    "survey_library",
		CanonicalCode: "SL-1011",
		Location:      loc,
		Percentiles:   model.PercentileSet{P10: 108000, P25: 124000, P50: 145000, P75: 168000, P90: 193000},
		SampleSize:    1210,
		DataAsOf:      asOf,
		QualityScore:  0.95,
	}
}

func newTestProvider(reader BenchmarkReader, now time.Time) *StoreProvider {
	p := NewStoreProvider(reader, Config{
		Name:          "survey_library",
		SurveyLabel:   "Standardized Survey Library",
		FreshnessDays: 90,
	}, "national")
	p.now = func() time.Time { return now }
	return p
}

func TestGetPercentiles_ExactLocation(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	asOf := now.AddDate(0, 0, -31)
	reader := &fakeReader{rows: map[string]*model.BenchmarkSalary{
		"survey_library|SL-1011|denver": benchRow("denver", asOf),
	}}

	q, err := newTestProvider(reader, now).GetPercentiles(context.Background(), "SL-1011", "denver")
	require.NoError(t, err)

	assert.Equal(t, "survey_library", q.SourceName)
	assert.Equal(t, 1210, q.SampleSize)
	assert.Equal(t, 31, q.RecencyDays)
	assert.Equal(t, 0.95, q.Quality)
	assert.Equal(t, 90, q.FreshnessDays)
	assert.Equal(t, "Standardized Survey Library", q.SurveyLabel)
}

func TestGetPercentiles_ReferenceFallback(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	reader := &fakeReader{rows: map[string]*model.BenchmarkSalary{
		"survey_library|SL-1011|national": benchRow("national", now),
	}}

	q, err := newTestProvider(reader, now).GetPercentiles(context.Background(), "SL-1011", "denver")
	require.NoError(t, err)
	assert.Equal(t, 145000.0, q.Percentiles.P50)
}

func TestGetPercentiles_NoData(t *testing.T) {
	now := time.Now()
	reader := &fakeReader{rows: map[string]*model.BenchmarkSalary{}}

	_, err := newTestProvider(reader, now).GetPercentiles(context.Background(), "SL-9999", "denver")
	require.ErrorIs(t, err, ErrNoData)
}

func TestGetPercentiles_ZeroSampleSizeIsNoData(t *testing.T) {
	now := time.Now()
	row := benchRow("national", now)
	row.SampleSize = 0
	reader := &fakeReader{rows: map[string]*model.BenchmarkSalary{
		"survey_library|SL-1011|national": row,
	}}

	_, err := newTestProvider(reader, now).GetPercentiles(context.Background(), "SL-1011", "national")
	require.ErrorIs(t, err, ErrNoData)
}

func TestGetPercentiles_ZeroQualityIsNoData(t *testing.T) {
	now := time.Now()
	row := benchRow("national", now)
	row.QualityScore = 0
	reader := &fakeReader{rows: map[string]*model.BenchmarkSalary{
		"survey_library|SL-1011|national": row,
	}}

	_, err := newTestProvider(reader, now).GetPercentiles(context.Background(), "SL-1011", "national")
	require.ErrorIs(t, err, ErrNoData)
}

func TestGetPercentiles_RowOverridesDefaults(t *testing.T) {
	now := time.Now()
	row := benchRow("national", now)
	row.FreshnessDays = 7
	row.SurveyLabel = "Q3 Flash Survey"
	reader := &fakeReader{rows: map[string]*model.BenchmarkSalary{
		"survey_library|SL-1011|national": row,
	}}

	q, err := newTestProvider(reader, now).GetPercentiles(context.Background(), "SL-1011", "national")
	require.NoError(t, err)
	assert.Equal(t, 7, q.FreshnessDays)
	assert.Equal(t, "Q3 Flash Survey", q.SurveyLabel)
}

func TestGetPercentiles_ReaderError(t *testing.T) {
	reader := &fakeReader{err: eris.New("db down")}

	_, err := newTestProvider(reader, time.Now()).GetPercentiles(context.Background(), "SL-1011", "denver")
	require.Error(t, err)
	assert.False(t, IsNoData(err))
}
