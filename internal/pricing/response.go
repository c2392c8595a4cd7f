package pricing

import (
	"fmt"
	"math"
	"strings"

	"github.com/compass-hr/pricing-engine/internal/cache"
	"github.com/compass-hr/pricing-engine/internal/confidence"
	"github.com/compass-hr/pricing-engine/internal/model"
)

// buildResponse assembles the outbound DTO from a cache outcome. CacheHit is
// set on the response only; stored rows are never mutated after insert.
func (e *Engine) buildResponse(outcome *cache.Outcome) *model.Response {
	req := outcome.Request
	res := outcome.Result

	matched := make([]model.MatchedJobDTO, 0, len(res.MatchedJobs))
	for _, m := range res.MatchedJobs {
		matched = append(matched, model.MatchedJobDTO{
			Code:             m.CanonicalCode,
			Title:            m.CanonicalTitle,
			SimilarityPct:    math.Round(m.Similarity * 100),
			ConfidenceBucket: m.ConfidenceBucket,
		})
	}

	sources := make(map[string]model.SourceSummaryDTO, len(res.Contributions))
	for _, c := range res.Contributions {
		sources[c.SourceName] = model.SourceSummaryDTO{
			JobsMatched:     c.JobsMatched,
			TotalSampleSize: c.SampleSize,
			SurveyLabel:     c.SurveyLabel,
		}
	}

	return &model.Response{
		JobTitle: req.JobTitle,
		Location: req.Location,
		Currency: e.cfg.Currency,
		Period:   e.cfg.Period,
		RecommendedRange: model.RangeDTO{
			Min:    res.RecommendedMin,
			Max:    res.RecommendedMax,
			Target: res.TargetSalary,
		},
		Percentiles: map[string]float64{
			"p25": res.Percentiles.P25,
			"p50": res.Percentiles.P50,
			"p75": res.Percentiles.P75,
		},
		Confidence: model.ConfidenceDTO{
			Score:          res.ConfidenceScore,
			Level:          res.ConfidenceLevel,
			Recommendation: confidence.Recommendation(res.ConfidenceLevel),
			Factors:        res.ConfidenceFactors,
		},
		MatchedJobs: matched,
		DataSources: sources,
		Adjustment:  res.Adjustment,
		Scenarios:   res.Scenarios,
		Summary:     summarize(req, res, e.cfg.Currency),
		Version:     res.Version,
		CacheHit:    outcome.CacheHit,
	}
}

// summarize renders the one-paragraph explanation attached to every response.
func summarize(req *model.PricingRequest, res *model.PricingResult, currency string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Benchmarked %q in %s against %d source(s) covering %d matched role(s). ",
		req.JobTitle, req.Location, len(res.Contributions), len(res.MatchedJobs))
	fmt.Fprintf(&b, "Recommended range %s to %s with a target of %s (%s). ",
		FormatSalary(res.RecommendedMin, currency),
		FormatSalary(res.RecommendedMax, currency),
		FormatSalary(res.TargetSalary, currency),
		res.ConfidenceLevel,
	)
	if !res.Adjustment.ReferenceApplied && res.Adjustment.CostOfLivingIdx != 1.0 {
		fmt.Fprintf(&b, "Figures include a %.2f cost-of-living adjustment for %s.",
			res.Adjustment.CostOfLivingIdx, res.Adjustment.Location)
	}
	return strings.TrimSpace(b.String())
}

// FormatSalary renders a salary amount in compact human-readable form.
func FormatSalary(amount float64, currency string) string {
	symbol := "$"
	if currency != "" && currency != "USD" {
		symbol = currency + " "
	}
	switch {
	case amount >= 1_000_000:
		return fmt.Sprintf("%s%.2fM", symbol, amount/1_000_000)
	case amount >= 1_000:
		return fmt.Sprintf("%s%.0fK", symbol, amount/1_000)
	default:
		return fmt.Sprintf("%s%.0f", symbol, amount)
	}
}
