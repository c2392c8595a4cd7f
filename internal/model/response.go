package model

// Response is the outbound DTO returned to callers of the pricing engine.
// It is assembled from a PricingResult plus request context; CacheHit is set
// per response, never on the stored row.
type Response struct {
	JobTitle string `json:"job_title"`
	Location string `json:"location"`
	Currency string `json:"currency"`
	Period   string `json:"period"`

	RecommendedRange RangeDTO           `json:"recommended_range"`
	Percentiles      map[string]float64 `json:"percentiles"`
	Confidence       ConfidenceDTO      `json:"confidence"`
	MatchedJobs      []MatchedJobDTO    `json:"matched_jobs"`
	DataSources      map[string]SourceSummaryDTO `json:"data_sources"`
	Adjustment       LocationAdjustment `json:"location_adjustment"`
	Scenarios        map[string]float64 `json:"alternative_scenarios,omitempty"`
	Summary          string             `json:"summary"`

	Version  int  `json:"version"`
	CacheHit bool `json:"cache_hit"`
}

// RangeDTO is the recommended salary band.
type RangeDTO struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Target float64 `json:"target"`
}

// ConfidenceDTO carries the confidence score, level, and factor breakdown.
type ConfidenceDTO struct {
	Score          float64           `json:"score"`
	Level          ConfidenceLevel   `json:"level"`
	Recommendation string            `json:"recommendation"`
	Factors        ConfidenceFactors `json:"factors"`
}

// MatchedJobDTO is a matched canonical job with similarity as a percentage.
type MatchedJobDTO struct {
	Code             string           `json:"code"`
	Title            string           `json:"title"`
	SimilarityPct    float64          `json:"similarity_pct"`
	ConfidenceBucket ConfidenceBucket `json:"confidence_bucket"`
}

// SourceSummaryDTO summarizes one contributing benchmark source.
type SourceSummaryDTO struct {
	JobsMatched     int    `json:"jobs_matched"`
	TotalSampleSize int    `json:"total_sample_size"`
	SurveyLabel     string `json:"survey_label,omitempty"`
}
