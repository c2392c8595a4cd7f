package model

// ConfidenceBucket is the qualitative tier of a single title match.
type ConfidenceBucket string

const (
	BucketHigh   ConfidenceBucket = "high"
	BucketMedium ConfidenceBucket = "medium"
	BucketLow    ConfidenceBucket = "low"
)

// MatchedJob is one canonical benchmark job matched to the free-text title.
// Produced transiently by the matcher; never persisted on its own.
type MatchedJob struct {
	CanonicalCode    string           `json:"code"`
	CanonicalTitle   string           `json:"title"`
	Similarity       float64          `json:"similarity"`
	ConfidenceBucket ConfidenceBucket `json:"confidence_bucket"`
}

// BucketFor maps a similarity score to its qualitative tier.
func BucketFor(similarity, highFloor, mediumFloor float64) ConfidenceBucket {
	switch {
	case similarity >= highFloor:
		return BucketHigh
	case similarity >= mediumFloor:
		return BucketMedium
	default:
		return BucketLow
	}
}

// CanonicalJob is a benchmarked role from one source's job library.
type CanonicalJob struct {
	SourceName  string `json:"source_name"`
	Code        string `json:"code"`
	Title       string `json:"title"`
	JobFamily   string `json:"job_family,omitempty"`
	CareerLevel string `json:"career_level,omitempty"`
}
