// Package confidence derives the 0-100 confidence score attached to every
// pricing result.
package confidence

import (
	"math"

	"github.com/compass-hr/pricing-engine/internal/model"
)

// Config holds the factor point budgets and level thresholds. Budgets are
// tunable; the three factors always sum to the maximum achievable score.
type Config struct {
	JobMatchPoints   float64 `yaml:"job_match_points" mapstructure:"job_match_points"`
	DataPointsPoints float64 `yaml:"data_points_points" mapstructure:"data_points_points"`
	SampleSizePoints float64 `yaml:"sample_size_points" mapstructure:"sample_size_points"`

	// Saturation points for the two count-based factors.
	SourceSaturation int `yaml:"source_saturation" mapstructure:"source_saturation"`
	SampleSaturation int `yaml:"sample_saturation" mapstructure:"sample_saturation"`

	HighThreshold   float64 `yaml:"high_threshold" mapstructure:"high_threshold"`
	MediumThreshold float64 `yaml:"medium_threshold" mapstructure:"medium_threshold"`
}

// DefaultConfig returns the stock point budgets (20/35/45) and thresholds.
func DefaultConfig() Config {
	return Config{
		JobMatchPoints:   20,
		DataPointsPoints: 35,
		SampleSizePoints: 45,
		SourceSaturation: 4,
		SampleSaturation: 1000,
		HighThreshold:    75,
		MediumThreshold:  50,
	}
}

// Scorer computes confidence scores with a retained factor breakdown.
type Scorer struct {
	cfg Config
}

// New creates a Scorer, filling zero-valued tunables from DefaultConfig.
func New(cfg Config) *Scorer {
	def := DefaultConfig()
	if cfg.JobMatchPoints <= 0 {
		cfg.JobMatchPoints = def.JobMatchPoints
	}
	if cfg.DataPointsPoints <= 0 {
		cfg.DataPointsPoints = def.DataPointsPoints
	}
	if cfg.SampleSizePoints <= 0 {
		cfg.SampleSizePoints = def.SampleSizePoints
	}
	if cfg.SourceSaturation <= 0 {
		cfg.SourceSaturation = def.SourceSaturation
	}
	if cfg.SampleSaturation <= 0 {
		cfg.SampleSaturation = def.SampleSaturation
	}
	if cfg.HighThreshold <= 0 {
		cfg.HighThreshold = def.HighThreshold
	}
	if cfg.MediumThreshold <= 0 {
		cfg.MediumThreshold = def.MediumThreshold
	}
	return &Scorer{cfg: cfg}
}

// Score combines match quality, distinct source count, and total sample size
// into a clipped 0-100 score with its per-factor breakdown.
func (s *Scorer) Score(matches []model.MatchedJob, sourceCount, totalSampleSize int) (float64, model.ConfidenceLevel, model.ConfidenceFactors) {
	factors := model.ConfidenceFactors{
		JobMatch:   s.jobMatchFactor(matches),
		DataPoints: s.dataPointsFactor(sourceCount),
		SampleSize: s.sampleSizeFactor(totalSampleSize),
	}

	total := factors.JobMatch + factors.DataPoints + factors.SampleSize
	total = math.Round(total*100) / 100
	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}

	return total, s.Level(total), factors
}

// Level maps a numeric score to its qualitative bucket.
func (s *Scorer) Level(score float64) model.ConfidenceLevel {
	switch {
	case score >= s.cfg.HighThreshold:
		return model.ConfidenceHigh
	case score >= s.cfg.MediumThreshold:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}

// Recommendation returns the caller-facing guidance text for a level.
func Recommendation(level model.ConfidenceLevel) string {
	switch level {
	case model.ConfidenceHigh:
		return "Strong benchmark coverage; recommendation is suitable for direct use."
	case model.ConfidenceMedium:
		return "Moderate benchmark coverage; validate against recent internal offers before use."
	default:
		return "Limited benchmark coverage; treat as directional and corroborate with additional sources."
	}
}

// jobMatchFactor scales the average similarity of the top matches to the
// job-match point budget.
func (s *Scorer) jobMatchFactor(matches []model.MatchedJob) float64 {
	if len(matches) == 0 {
		return 0
	}
	var sum float64
	for _, m := range matches {
		sum += m.Similarity
	}
	avg := sum / float64(len(matches))
	return avg * s.cfg.JobMatchPoints
}

// dataPointsFactor saturates at SourceSaturation distinct sources.
func (s *Scorer) dataPointsFactor(sourceCount int) float64 {
	if sourceCount <= 0 {
		return 0
	}
	frac := float64(sourceCount) / float64(s.cfg.SourceSaturation)
	if frac > 1 {
		frac = 1
	}
	return frac * s.cfg.DataPointsPoints
}

// sampleSizeFactor is log-scaled and saturates at SampleSaturation samples.
func (s *Scorer) sampleSizeFactor(totalSampleSize int) float64 {
	if totalSampleSize <= 0 {
		return 0
	}
	frac := math.Log1p(float64(totalSampleSize)) / math.Log1p(float64(s.cfg.SampleSaturation))
	if frac > 1 {
		frac = 1
	}
	return frac * s.cfg.SampleSizePoints
}
