package source

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"

	"github.com/compass-hr/pricing-engine/internal/model"
)

// BenchmarkReader is the slice of the store the provider layer needs.
type BenchmarkReader interface {
	// GetBenchmark returns the row for (source, code, location), or nil when
	// the source has no data there.
	GetBenchmark(ctx context.Context, sourceName, canonicalCode, location string) (*model.BenchmarkSalary, error)
}

// Config describes one registered benchmark source.
type Config struct {
	Name          string `yaml:"name" mapstructure:"name"`
	SurveyLabel   string `yaml:"survey_label" mapstructure:"survey_label"`
	FreshnessDays int    `yaml:"freshness_days" mapstructure:"freshness_days"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec    float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// StoreProvider serves percentile data from pre-loaded benchmark tables.
// All four stock sources (survey library, government framework, internal HR,
// applicant data) are instances of this type with different source names.
type StoreProvider struct {
	reader       BenchmarkReader
	cfg          Config
	referenceLoc string
	now          func() time.Time
}

// NewStoreProvider creates a provider over the benchmark tables. referenceLoc
// is the fallback location when the source has no row for the requested one.
func NewStoreProvider(reader BenchmarkReader, cfg Config, referenceLoc string) *StoreProvider {
	return &StoreProvider{reader: reader, cfg: cfg, referenceLoc: referenceLoc, now: time.Now}
}

func (p *StoreProvider) Name() string { return p.cfg.Name }

// GetPercentiles looks up the source's row for the exact location first and
// falls back to the reference location. Sources usually benchmark nationally;
// location scaling is the adjuster's job, not the provider's.
func (p *StoreProvider) GetPercentiles(ctx context.Context, canonicalCode, location string) (*Quote, error) {
	row, err := p.reader.GetBenchmark(ctx, p.cfg.Name, canonicalCode, location)
	if err != nil {
		return nil, eris.Wrapf(err, "source %s: benchmark lookup", p.cfg.Name)
	}
	if row == nil && location != p.referenceLoc {
		row, err = p.reader.GetBenchmark(ctx, p.cfg.Name, canonicalCode, p.referenceLoc)
		if err != nil {
			return nil, eris.Wrapf(err, "source %s: reference benchmark lookup", p.cfg.Name)
		}
	}
	if row == nil || row.SampleSize <= 0 || row.QualityScore <= 0 {
		return nil, ErrNoData
	}

	freshness := row.FreshnessDays
	if freshness <= 0 {
		freshness = p.cfg.FreshnessDays
	}
	label := row.SurveyLabel
	if label == "" {
		label = p.cfg.SurveyLabel
	}

	return &Quote{
		SourceName:    p.cfg.Name,
		Percentiles:   row.Percentiles,
		SampleSize:    row.SampleSize,
		RecencyDays:   row.RecencyDays(p.now()),
		Quality:       row.QualityScore,
		FreshnessDays: freshness,
		SurveyLabel:   label,
	}, nil
}

// IsNoData reports whether err means "source has nothing", as opposed to a
// provider failure.
func IsNoData(err error) bool {
	return errors.Is(err, ErrNoData)
}
