// Package catalog loads canonical job libraries, benchmark salary rows, and
// location cost-of-living indices into the store. A development seed set is
// embedded in the binary; production deployments load their own YAML files.
package catalog

import (
	"context"
	_ "embed"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/compass-hr/pricing-engine/internal/model"
	"github.com/compass-hr/pricing-engine/internal/store"
)

//go:embed seed.yaml
var embeddedSeed []byte

// Seed is the full catalog payload for one load.
type Seed struct {
	CanonicalJobs []canonicalJobRow `yaml:"canonical_jobs"`
	Benchmarks    []benchmarkRow    `yaml:"benchmarks"`
	Locations     []locationRow     `yaml:"locations"`
}

type canonicalJobRow struct {
	SourceName  string `yaml:"source"`
	Code        string `yaml:"code"`
	Title       string `yaml:"title"`
	JobFamily   string `yaml:"job_family"`
	CareerLevel string `yaml:"career_level"`
}

type benchmarkRow struct {
	SourceName    string    `yaml:"source"`
	CanonicalCode string    `yaml:"code"`
	Location      string    `yaml:"location"`
	P10           float64   `yaml:"p10"`
	P25           float64   `yaml:"p25"`
	P50           float64   `yaml:"p50"`
	P75           float64   `yaml:"p75"`
	P90           float64   `yaml:"p90"`
	SampleSize    int       `yaml:"sample_size"`
	DataAsOf      time.Time `yaml:"data_as_of"`
	QualityScore  float64   `yaml:"quality_score"`
}

type locationRow struct {
	Location string  `yaml:"location"`
	Index    float64 `yaml:"index"`
}

// LoadEmbedded parses the development seed compiled into the binary.
func LoadEmbedded() (*Seed, error) {
	return parse(embeddedSeed)
}

// LoadFile parses a catalog YAML file from disk.
func LoadFile(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: read seed file")
	}
	return parse(data)
}

func parse(data []byte) (*Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, eris.Wrap(err, "catalog: parse seed")
	}
	return &s, nil
}

// Apply upserts the seed contents into the store.
func (s *Seed) Apply(ctx context.Context, st store.Store) error {
	jobs := make([]model.CanonicalJob, 0, len(s.CanonicalJobs))
	for _, r := range s.CanonicalJobs {
		jobs = append(jobs, model.CanonicalJob{
			SourceName:  r.SourceName,
			Code:        r.Code,
			Title:       r.Title,
			JobFamily:   r.JobFamily,
			CareerLevel: r.CareerLevel,
		})
	}
	if err := st.SeedCanonicalJobs(ctx, jobs); err != nil {
		return eris.Wrap(err, "catalog: seed canonical jobs")
	}

	rows := make([]model.BenchmarkSalary, 0, len(s.Benchmarks))
	for _, r := range s.Benchmarks {
		rows = append(rows, model.BenchmarkSalary{
			SourceName:    r.SourceName,
			CanonicalCode: r.CanonicalCode,
			Location:      r.Location,
			Percentiles: model.PercentileSet{
				P10: r.P10, P25: r.P25, P50: r.P50, P75: r.P75, P90: r.P90,
			},
			SampleSize:   r.SampleSize,
			DataAsOf:     r.DataAsOf,
			QualityScore: r.QualityScore,
		})
	}
	if err := st.SeedBenchmarks(ctx, rows); err != nil {
		return eris.Wrap(err, "catalog: seed benchmarks")
	}

	indices := make([]model.LocationIndex, 0, len(s.Locations))
	for _, r := range s.Locations {
		indices = append(indices, model.LocationIndex{Location: r.Location, Index: r.Index})
	}
	if err := st.SeedLocationIndices(ctx, indices); err != nil {
		return eris.Wrap(err, "catalog: seed location indices")
	}

	zap.L().Info("catalog seeded",
		zap.Int("canonical_jobs", len(jobs)),
		zap.Int("benchmarks", len(rows)),
		zap.Int("locations", len(indices)))

	return nil
}
