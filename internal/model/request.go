package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const (
	minTitleLen       = 3
	maxTitleLen       = 200
	maxDescriptionLen = 5000
)

// PricingRequest is the immutable record of one logical pricing request.
// Repeated submissions of equivalent inputs share a row, keyed by Hash.
type PricingRequest struct {
	ID                string    `json:"id"`
	Hash              string    `json:"request_hash"`
	JobTitle          string    `json:"job_title"`
	JobDescription    string    `json:"job_description,omitempty"`
	Location          string    `json:"location_text"`
	JobFamily         string    `json:"job_family,omitempty"`
	CareerLevel       string    `json:"career_level,omitempty"`
	RequesterIdentity string    `json:"requester_identity"`
	FirstRequestedAt  time.Time `json:"first_requested_at"`
	LastRequestedAt   time.Time `json:"last_requested_at"`
	RequestCount      int       `json:"request_count"`
}

// Validate checks the inbound field constraints before any lookup happens.
func (r *PricingRequest) Validate() error {
	title := strings.TrimSpace(r.JobTitle)
	if len(title) < minTitleLen {
		return eris.Errorf("job_title must be at least %d characters", minTitleLen)
	}
	if len(title) > maxTitleLen {
		return eris.Errorf("job_title must be at most %d characters", maxTitleLen)
	}
	if len(r.JobDescription) > maxDescriptionLen {
		return eris.Errorf("job_description must be at most %d characters", maxDescriptionLen)
	}
	if strings.TrimSpace(r.RequesterIdentity) == "" {
		return eris.New("requester_identity is required")
	}
	return nil
}

// ComputeHash derives the stable deduplication hash over the normalized
// identity of the request: title, location, and requester. Description and
// filters intentionally do not participate — refining them does not change
// which cached row the request maps to.
func (r *PricingRequest) ComputeHash() string {
	parts := []string{
		normalizeHashPart(r.JobTitle),
		normalizeHashPart(r.Location),
		normalizeHashPart(r.RequesterIdentity),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}

func normalizeHashPart(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
