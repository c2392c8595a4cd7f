package model

import "time"

// BenchmarkSalary is one source's percentile row for a job/location
// combination, as loaded by the external ingestion jobs.
type BenchmarkSalary struct {
	ID            string        `json:"id,omitempty"`
	SourceName    string        `json:"source_name"`
	CanonicalCode string        `json:"canonical_code"`
	Location      string        `json:"location"`
	Percentiles   PercentileSet `json:"percentiles"`
	SampleSize    int           `json:"sample_size"`
	DataAsOf      time.Time     `json:"data_as_of"`
	QualityScore  float64       `json:"quality_score"`
	FreshnessDays int           `json:"freshness_days,omitempty"`
	SurveyLabel   string        `json:"survey_label,omitempty"`
}

// RecencyDays returns the age of the row in whole days at the given instant.
func (b *BenchmarkSalary) RecencyDays(now time.Time) int {
	if b.DataAsOf.IsZero() {
		return 0
	}
	d := int(now.Sub(b.DataAsOf).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}
