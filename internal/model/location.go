package model

// LocationIndex is a location's cost-of-living multiplier relative to the
// reference location (index 1.0).
type LocationIndex struct {
	Location string  `json:"location"`
	Index    float64 `json:"index"`
}
