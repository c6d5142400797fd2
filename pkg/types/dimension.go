// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the rentsense engine:
// preference dimensions, weight vectors, conversation state, questions,
// candidates, and configuration.
package types

import (
	"slices"
	"strings"
)

// Dimension is one of the fixed preference axes a user can express an
// opinion about. Each dimension maps to one score column in the candidate
// dataset.
type Dimension string

const (
	DimCommute    Dimension = "Commute Convenience"
	DimSafety     Dimension = "Safety"
	DimNoise      Dimension = "Noise"
	DimAmenity    Dimension = "Amenity Convenience"
	DimGreenSpace Dimension = "Green Space Accessibility"
	DimJobs       Dimension = "Job Opportunities"
	DimEducation  Dimension = "Education Access"
	DimPolitics   Dimension = "Political Leaning"
)

// DimensionCount is the number of preference dimensions. Normalized weight
// vectors sum to this value, giving a mean weight of 1.0.
const DimensionCount = 8

// dimensions is the enumeration order. Classification and fallback
// questions depend on it, so it must not be reordered.
var dimensions = [DimensionCount]Dimension{
	DimCommute,
	DimSafety,
	DimNoise,
	DimAmenity,
	DimGreenSpace,
	DimJobs,
	DimEducation,
	DimPolitics,
}

var dimensionColumns = map[Dimension]string{
	DimCommute:    "commute_score",
	DimSafety:     "safety_score",
	DimNoise:      "quiet_score",
	DimAmenity:    "amenities_score",
	DimGreenSpace: "parks_score",
	DimJobs:       "jobs_score",
	DimEducation:  "schools_score",
	DimPolitics:   "politics_score",
}

// Dimensions returns all dimensions in enumeration order. The returned
// slice is a copy and may be modified by the caller.
func Dimensions() []Dimension {
	return slices.Clone(dimensions[:])
}

// Valid reports whether d is one of the known dimensions.
func (d Dimension) Valid() bool {
	_, ok := dimensionColumns[d]
	return ok
}

// Column returns the dataset column holding scores for d, or "" if d is
// not a known dimension.
func (d Dimension) Column() string {
	return dimensionColumns[d]
}

// Index returns the position of d in enumeration order, or -1.
func (d Dimension) Index() int {
	return slices.Index(dimensions[:], d)
}

// ParseDimension resolves s to a known dimension. Matching ignores case
// and surrounding whitespace, and also accepts the dataset column name.
func ParseDimension(s string) (Dimension, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, d := range dimensions {
		if strings.EqualFold(string(d), s) || strings.EqualFold(dimensionColumns[d], s) {
			return d, true
		}
	}
	return "", false
}

// DimensionForColumn returns the dimension whose score lives in column.
func DimensionForColumn(column string) (Dimension, bool) {
	for _, d := range dimensions {
		if dimensionColumns[d] == column {
			return d, true
		}
	}
	return "", false
}
