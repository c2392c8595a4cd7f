// Package weight converts per-source sample size, recency, and match quality
// into normalized contribution weights.
package weight

import (
	"math"

	"github.com/rotisserie/eris"
)

// Config holds the weighting tunables. The constants are configuration, not
// contract: only the shape of the formula is load-bearing.
type Config struct {
	SizeCap      int     `yaml:"size_cap" mapstructure:"size_cap"`
	RecencyFloor float64 `yaml:"recency_floor" mapstructure:"recency_floor"`
	RecencySpan  int     `yaml:"recency_span_days" mapstructure:"recency_span_days"`
}

// Input is one source's raw weighting signals for a request. Ref is an opaque
// caller tag (typically the caller's slice index) carried through unchanged,
// so callers can map each surviving weight back to its origin after filtering.
type Input struct {
	Ref          int
	SourceName   string
	SampleSize   int
	RecencyDays  int
	MatchQuality float64
}

// Weighted is one source with its normalized contribution weight.
type Weighted struct {
	Input
	RawWeight float64
	Weight    float64
}

// Weighter computes normalized per-source weights.
type Weighter struct {
	cfg Config
}

// New creates a Weighter, applying defaults for zero-valued tunables.
func New(cfg Config) *Weighter {
	if cfg.SizeCap <= 0 {
		cfg.SizeCap = 200
	}
	if cfg.RecencySpan <= 0 {
		cfg.RecencySpan = 365
	}
	if cfg.RecencyFloor <= 0 {
		cfg.RecencyFloor = 0.10
	}
	return &Weighter{cfg: cfg}
}

// ErrNoUsableSources is returned when every input is dropped before
// normalization (zero samples or zero quality).
var ErrNoUsableSources = eris.New("weight: no usable sources after filtering")

// Normalize filters unusable inputs and returns weights summing to 1.0.
// Inputs with a zero sample size or non-positive match quality are dropped
// before normalization per the contribution invariant.
func (w *Weighter) Normalize(inputs []Input) ([]Weighted, error) {
	kept := make([]Weighted, 0, len(inputs))
	var total float64
	for _, in := range inputs {
		if in.SampleSize <= 0 || in.MatchQuality <= 0 {
			continue
		}
		raw := in.MatchQuality * w.recencyFactor(in.RecencyDays) * w.sizeFactor(in.SampleSize)
		if raw <= 0 {
			continue
		}
		kept = append(kept, Weighted{Input: in, RawWeight: raw})
		total += raw
	}
	if len(kept) == 0 || total <= 0 {
		return nil, ErrNoUsableSources
	}
	for i := range kept {
		kept[i].Weight = kept[i].RawWeight / total
	}
	return kept, nil
}

// recencyFactor decays linearly to the floor over the recency span. Data
// older than the span contributes the floor weight rather than zero.
func (w *Weighter) recencyFactor(recencyDays int) float64 {
	if recencyDays <= 0 {
		return 1.0
	}
	f := 1.0 - float64(recencyDays)/float64(w.cfg.RecencySpan)
	if f < w.cfg.RecencyFloor {
		return w.cfg.RecencyFloor
	}
	return f
}

// sizeFactor saturates logarithmically at the configured sample-size cap.
func (w *Weighter) sizeFactor(sampleSize int) float64 {
	f := math.Log1p(float64(sampleSize)) / math.Log1p(float64(w.cfg.SizeCap))
	if f > 1.0 {
		return 1.0
	}
	return f
}
