// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger accumulates preference weight deltas and normalizes
// weight vectors.
//
// A normalized vector has every weight >= 0 and sums to
// types.DimensionCount (8.0) up to rounding drift of a few hundredths.
// Normalization runs once per turn, after all of that turn's deltas are
// applied.
package ledger

import (
	"math"

	"github.com/pdiddy/rentsense/pkg/types"
)

// TargetSum is the sum of a normalized weight vector.
const TargetSum = float64(types.DimensionCount)

// defaultWeight is used for any dimension the vector does not mention.
const defaultWeight = 1.0

// Normalize clamps every weight to be non-negative and rescales the
// vector to sum to TargetSum, rounding each weight to two decimals.
// Dimensions missing from w count as 1.0; keys that are not known
// dimensions are dropped.
//
// When every clamped weight is zero, Normalize returns 1.0 for every
// dimension. That fallback is not rescaled, so it sums to the dimension
// count rather than TargetSum. The two values coincide today but the
// fallback is defined by the dimension count, and callers must not assume
// the rescaling path ran.
func Normalize(w types.WeightVector) types.WeightVector {
	dims := types.Dimensions()
	cleaned := make(map[types.Dimension]float64, len(dims))
	var total float64
	for _, d := range dims {
		v, ok := w[d]
		if !ok {
			v = defaultWeight
		}
		v = math.Max(0, v)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		cleaned[d] = v
		total += v
	}

	out := make(types.WeightVector, len(dims))
	if total > 0 {
		for _, d := range dims {
			out[d] = round2(cleaned[d] / total * TargetSum)
		}
		return out
	}

	for _, d := range dims {
		out[d] = 1.0
	}
	return out
}

// ApplyDelta returns a copy of w with delta added to dimension d. A
// dimension missing from w starts at 1.0. The result is neither clamped
// nor normalized.
func ApplyDelta(w types.WeightVector, d types.Dimension, delta float64) types.WeightVector {
	out := w.Clone()
	if out == nil {
		out = types.WeightVector{}
	}
	cur, ok := out[d]
	if !ok {
		cur = defaultWeight
	}
	out[d] = cur + delta
	return out
}

// Ledger collects the deltas of one merge operation so they land on the
// weight vector together or not at all.
type Ledger struct {
	pending []entry
	touched map[types.Dimension]bool
}

type entry struct {
	dim   types.Dimension
	delta float64
}

// Add records a delta for d. Unknown dimensions are ignored and reported
// as false.
func (l *Ledger) Add(d types.Dimension, delta float64) bool {
	if !d.Valid() {
		return false
	}
	if l.touched == nil {
		l.touched = make(map[types.Dimension]bool)
	}
	l.pending = append(l.pending, entry{dim: d, delta: delta})
	l.touched[d] = true
	return true
}

// Touched returns the dimensions that received at least one delta, in
// enumeration order.
func (l *Ledger) Touched() []types.Dimension {
	var out []types.Dimension
	for _, d := range types.Dimensions() {
		if l.touched[d] {
			out = append(out, d)
		}
	}
	return out
}

// Empty reports whether no delta was recorded.
func (l *Ledger) Empty() bool {
	return len(l.pending) == 0
}

// Commit folds every pending delta into a copy of w with ApplyDelta and
// returns it. w is not modified.
func (l *Ledger) Commit(w types.WeightVector) types.WeightVector {
	out := w.Clone()
	if out == nil {
		out = types.WeightVector{}
	}
	for _, e := range l.pending {
		out = ApplyDelta(out, e.dim, e.delta)
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
