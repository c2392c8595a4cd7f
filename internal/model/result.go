package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// ConfidenceLevel is the qualitative bucket of an overall confidence score.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// PercentileSet holds the p10..p90 salary values for one distribution.
type PercentileSet struct {
	P10 float64 `json:"p10"`
	P25 float64 `json:"p25"`
	P50 float64 `json:"p50"`
	P75 float64 `json:"p75"`
	P90 float64 `json:"p90"`
}

// Monotonic reports whether the percentiles are non-decreasing.
func (p PercentileSet) Monotonic() bool {
	return p.P10 <= p.P25 && p.P25 <= p.P50 && p.P50 <= p.P75 && p.P75 <= p.P90
}

// Clip returns a copy with each percentile raised to at least the previous
// one, repairing small rounding violations from weighted averaging.
func (p PercentileSet) Clip() PercentileSet {
	out := p
	if out.P25 < out.P10 {
		out.P25 = out.P10
	}
	if out.P50 < out.P25 {
		out.P50 = out.P25
	}
	if out.P75 < out.P50 {
		out.P75 = out.P50
	}
	if out.P90 < out.P75 {
		out.P90 = out.P75
	}
	return out
}

// Scale returns a copy with every percentile multiplied by factor.
func (p PercentileSet) Scale(factor float64) PercentileSet {
	return PercentileSet{
		P10: p.P10 * factor,
		P25: p.P25 * factor,
		P50: p.P50 * factor,
		P75: p.P75 * factor,
		P90: p.P90 * factor,
	}
}

// SourceContribution records how much one benchmark source influenced a result.
type SourceContribution struct {
	ID           string  `json:"id,omitempty"`
	ResultID     string  `json:"result_id,omitempty"`
	SourceName   string  `json:"source_name"`
	Weight       float64 `json:"weight_applied"`
	SampleSize   int     `json:"sample_size"`
	QualityScore float64 `json:"quality_score"`
	RecencyDays  int     `json:"recency_days"`
	SurveyLabel  string  `json:"survey_label,omitempty"`
	JobsMatched  int     `json:"jobs_matched"`
}

// ConfidenceFactors is the per-factor breakdown behind a confidence score,
// retained for auditability.
type ConfidenceFactors struct {
	JobMatch   float64 `json:"job_match"`
	DataPoints float64 `json:"data_points"`
	SampleSize float64 `json:"sample_size"`
}

// LocationAdjustment records the cost-of-living scaling applied to a result.
type LocationAdjustment struct {
	Location         string  `json:"location"`
	CostOfLivingIdx  float64 `json:"cost_of_living_index"`
	ReferenceApplied bool    `json:"reference_applied"`
	Note             string  `json:"note,omitempty"`
}

// PricingResult is one immutable version of a computed recommendation.
// Superseding a result inserts a new version and flips the previous row's
// IsLatest in the same transaction; rows are never updated in place.
type PricingResult struct {
	ID          string `json:"id"`
	RequestID   string `json:"request_id"`
	Version     int    `json:"version"`
	IsLatest    bool   `json:"is_latest"`
	Percentiles PercentileSet `json:"percentiles"`

	TargetSalary   float64 `json:"target_salary"`
	RecommendedMin float64 `json:"recommended_min"`
	RecommendedMax float64 `json:"recommended_max"`

	ConfidenceScore   float64            `json:"confidence_score"`
	ConfidenceLevel   ConfidenceLevel    `json:"confidence_level"`
	ConfidenceFactors ConfidenceFactors  `json:"confidence_factors"`
	Adjustment        LocationAdjustment `json:"location_adjustment"`

	Contributions []SourceContribution `json:"source_contributions"`
	Scenarios     map[string]float64   `json:"alternative_scenarios,omitempty"`
	MatchedJobs   []MatchedJob         `json:"matched_jobs"`

	CalculatedAt time.Time `json:"calculated_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	CacheHit     bool      `json:"cache_hit"`
}

// Expired reports whether the result's TTL has passed at the given instant.
func (r *PricingResult) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// CheckInvariants verifies the structural invariants every stored result
// must satisfy.
func (r *PricingResult) CheckInvariants() error {
	if r.Version < 1 {
		return eris.Errorf("result version must be >= 1, got %d", r.Version)
	}
	if !r.Percentiles.Monotonic() {
		return eris.New("result percentiles are not monotonically non-decreasing")
	}
	if r.ConfidenceScore < 0 || r.ConfidenceScore > 100 {
		return eris.Errorf("confidence score out of range: %.2f", r.ConfidenceScore)
	}
	if !r.ExpiresAt.After(r.CalculatedAt) {
		return eris.New("result expires_at must be after calculated_at")
	}
	return nil
}
