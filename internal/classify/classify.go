// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify maps free text to a preference dimension with a fixed
// keyword table. It is the deterministic fallback used when the oracle
// does not tag a question or answer with a dimension.
package classify

import (
	"strings"

	"github.com/pdiddy/rentsense/pkg/types"
)

// rule pairs a dimension with the lowercase substrings that select it.
type rule struct {
	dim      types.Dimension
	keywords []string
}

// rules is checked in dimension enumeration order; the first rule with a
// matching keyword wins. Keywords are substrings, so "amenit" matches
// both "amenity" and "amenities".
var rules = []rule{
	{types.DimCommute, []string{"commute", "transit", "subway", "transportation", "travel"}},
	{types.DimSafety, []string{"safe", "safety", "crime", "secure"}},
	{types.DimNoise, []string{"quiet", "noise", "peaceful", "calm"}},
	{types.DimAmenity, []string{"restaurant", "shop", "store", "amenit", "convenience", "dining"}},
	{types.DimGreenSpace, []string{"park", "green", "nature", "outdoor", "garden"}},
	{types.DimJobs, []string{"job", "work", "career", "employment", "business"}},
	{types.DimEducation, []string{"school", "education", "learning", "college", "university"}},
	{types.DimPolitics, []string{"politic", "voting", "liberal", "conservative"}},
}

// Classify returns the first dimension whose keywords appear in text,
// ignoring case. It reports false when nothing matches.
func Classify(text string) (types.Dimension, bool) {
	lower := strings.ToLower(text)
	if strings.TrimSpace(lower) == "" {
		return "", false
	}
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.dim, true
			}
		}
	}
	return "", false
}
