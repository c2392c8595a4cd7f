// Package aggregate fuses weighted percentile distributions from multiple
// benchmark sources into one result distribution.
package aggregate

import (
	"github.com/rotisserie/eris"

	"github.com/compass-hr/pricing-engine/internal/model"
)

// Scenario names for the alternative targets stored with each result.
const (
	ScenarioConservative = "conservative"
	ScenarioAggressive   = "aggressive"
)

// Contribution is one source's distribution with its normalized weight.
type Contribution struct {
	SourceName  string
	Weight      float64
	Percentiles model.PercentileSet
}

// Result is the fused distribution plus the derived recommendation band.
type Result struct {
	Percentiles    model.PercentileSet
	TargetSalary   float64
	RecommendedMin float64
	RecommendedMax float64
	Scenarios      map[string]float64
}

// Combine computes the weighted arithmetic mean of each percentile rank
// independently across contributions, then repairs any rounding-induced
// monotonicity violation by clipping.
func Combine(contribs []Contribution) (*Result, error) {
	if len(contribs) == 0 {
		return nil, eris.New("aggregate: no contributions")
	}

	var p model.PercentileSet
	for _, c := range contribs {
		p.P10 += c.Weight * c.Percentiles.P10
		p.P25 += c.Weight * c.Percentiles.P25
		p.P50 += c.Weight * c.Percentiles.P50
		p.P75 += c.Weight * c.Percentiles.P75
		p.P90 += c.Weight * c.Percentiles.P90
	}
	if !p.Monotonic() {
		p = p.Clip()
	}

	return &Result{
		Percentiles:    p,
		TargetSalary:   p.P50,
		RecommendedMin: p.P25,
		RecommendedMax: p.P75,
		Scenarios:      scenarios(p),
	}, nil
}

// scenarios derives the alternative targets by shifting percentile emphasis:
// conservative leans on p25, aggressive on p75, each blended with the median.
func scenarios(p model.PercentileSet) map[string]float64 {
	return map[string]float64{
		ScenarioConservative: 0.7*p.P25 + 0.3*p.P50,
		ScenarioAggressive:   0.7*p.P75 + 0.3*p.P50,
	}
}
