// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Candidate is one neighborhood row from the static dataset. Candidates
// are loaded once at startup and shared read-only across conversations;
// nothing may modify one after load.
type Candidate struct {
	// ID is the neighborhood identifier (e.g. an NTA code such as "BK0101").
	ID string `json:"id" yaml:"id"`

	// Name is the display name.
	Name string `json:"name" yaml:"name"`

	// Scores holds the per-dimension score in [0,1]. A dimension absent
	// from the dataset schema is absent from the map.
	Scores map[Dimension]float64 `json:"scores" yaml:"scores"`

	// MedianRent is the median monthly rent in dollars, or 0 if unknown.
	MedianRent float64 `json:"median_rent,omitempty" yaml:"median_rent,omitempty"`
}

// Score returns the candidate's score for d and whether the dataset
// carries that dimension.
func (c Candidate) Score(d Dimension) (float64, bool) {
	v, ok := c.Scores[d]
	return v, ok
}
