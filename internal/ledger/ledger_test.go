// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/rentsense/pkg/types"
)

const sumTolerance = 0.1

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		in    types.WeightVector
		check func(t *testing.T, out types.WeightVector)
	}{
		{
			name: "defaults stay uniform",
			in:   types.DefaultWeights(),
			check: func(t *testing.T, out types.WeightVector) {
				for _, d := range types.Dimensions() {
					assert.Equal(t, 1.0, out[d], d)
				}
			},
		},
		{
			name: "empty input treats every dimension as 1.0",
			in:   types.WeightVector{},
			check: func(t *testing.T, out types.WeightVector) {
				assert.Len(t, out, types.DimensionCount)
				assert.InDelta(t, TargetSum, out.Sum(), sumTolerance)
			},
		},
		{
			name: "negative weights are clamped to zero",
			in: types.WeightVector{
				types.DimSafety: 3, types.DimNoise: -2,
			},
			check: func(t *testing.T, out types.WeightVector) {
				assert.Equal(t, 0.0, out[types.DimNoise])
				assert.Greater(t, out[types.DimSafety], 1.0)
				assert.InDelta(t, TargetSum, out.Sum(), sumTolerance)
			},
		},
		{
			name: "boosted dimension gains share",
			in:   ApplyDelta(types.DefaultWeights(), types.DimSafety, 0.5),
			check: func(t *testing.T, out types.WeightVector) {
				// 1.5 / 8.5 * 8
				assert.Equal(t, 1.41, out[types.DimSafety])
				assert.Equal(t, 0.94, out[types.DimCommute])
			},
		},
		{
			name: "unknown keys are dropped",
			in: types.WeightVector{
				"Rent": 5, types.DimSafety: 1,
			},
			check: func(t *testing.T, out types.WeightVector) {
				_, ok := out["Rent"]
				assert.False(t, ok)
				assert.Len(t, out, types.DimensionCount)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, Normalize(tt.in))
		})
	}
}

func TestNormalize_AllNonPositiveFallsBackToUniform(t *testing.T) {
	inputs := []types.WeightVector{
		allDims(0),
		allDims(-1),
		{
			types.DimCommute: -0.25, types.DimSafety: 0, types.DimNoise: -3,
			types.DimAmenity: -1, types.DimGreenSpace: 0, types.DimJobs: -0.5,
			types.DimEducation: -2, types.DimPolitics: 0,
		},
	}
	for _, in := range inputs {
		out := Normalize(in)
		for _, d := range types.Dimensions() {
			assert.Equal(t, 1.0, out[d], "dimension %s", d)
		}
		// The fallback sums to the dimension count, not a rescaled total.
		assert.Equal(t, float64(types.DimensionCount), out.Sum())
	}
}

func TestNormalize_PropertyNonNegativeAndSum(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 500; i++ {
		in := types.WeightVector{}
		positive := false
		for _, d := range types.Dimensions() {
			if r.IntN(4) == 0 {
				continue // unseen dimension
			}
			v := r.Float64()*6 - 3
			in[d] = v
			if v > 0 {
				positive = true
			}
		}
		if len(in) < types.DimensionCount {
			positive = true // unseen dimensions default to 1.0
		}
		if !positive {
			continue
		}

		out := Normalize(in)
		for _, d := range types.Dimensions() {
			assert.GreaterOrEqual(t, out[d], 0.0)
		}
		assert.InDelta(t, TargetSum, out.Sum(), sumTolerance, "input %v", in)
	}
}

func TestNormalize_RepeatedNormalizationStaysNearTarget(t *testing.T) {
	w := types.WeightVector{
		types.DimCommute: 2.3, types.DimSafety: 0.7, types.DimNoise: 1.9,
	}
	for i := 0; i < 10; i++ {
		w = Normalize(w)
	}
	assert.InDelta(t, TargetSum, w.Sum(), sumTolerance)
}

func TestNormalize_DoesNotModifyInput(t *testing.T) {
	in := types.WeightVector{types.DimSafety: -1}
	_ = Normalize(in)
	assert.Equal(t, types.WeightVector{types.DimSafety: -1}, in)
}

func TestApplyDelta(t *testing.T) {
	base := types.WeightVector{types.DimSafety: 2}

	out := ApplyDelta(base, types.DimSafety, 0.5)
	assert.Equal(t, 2.5, out[types.DimSafety])
	assert.Equal(t, 2.0, base[types.DimSafety], "input must not change")

	out = ApplyDelta(base, types.DimNoise, -0.25)
	assert.Equal(t, 0.75, out[types.DimNoise], "missing dimension starts at 1.0")

	out = ApplyDelta(nil, types.DimJobs, -3)
	assert.Equal(t, -2.0, out[types.DimJobs], "no clamping")
}

func TestLedger(t *testing.T) {
	var l Ledger
	assert.True(t, l.Empty())

	require.True(t, l.Add(types.DimSafety, 0.5))
	require.True(t, l.Add(types.DimSafety, 0.25))
	require.True(t, l.Add(types.DimCommute, -0.25))
	assert.False(t, l.Add("Weather", 1))

	base := types.DefaultWeights()
	out := l.Commit(base)

	assert.Equal(t, 1.75, out[types.DimSafety])
	assert.Equal(t, 0.75, out[types.DimCommute])
	assert.Equal(t, 1.0, base[types.DimSafety], "commit must not modify its input")
	assert.Equal(t, []types.Dimension{types.DimCommute, types.DimSafety}, l.Touched())
}

func TestLedger_CommitMatchesApplyDelta(t *testing.T) {
	var l Ledger
	l.Add(types.DimNoise, 0.5)
	l.Add(types.DimJobs, -0.25)
	l.Add(types.DimNoise, 0.25)

	base := types.WeightVector{types.DimSafety: 1.41}
	want := ApplyDelta(ApplyDelta(ApplyDelta(base, types.DimNoise, 0.5), types.DimJobs, -0.25), types.DimNoise, 0.25)

	assert.Equal(t, want, l.Commit(base))
	assert.Equal(t, types.WeightVector{}, new(Ledger).Commit(nil), "empty commit on nil yields an empty vector")
}

func allDims(v float64) types.WeightVector {
	w := types.WeightVector{}
	for _, d := range types.Dimensions() {
		w[d] = v
	}
	return w
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.41, round2(1.4117647))
	assert.Equal(t, 0.94, round2(0.9411764))
	assert.Equal(t, 8.0, round2(7.999))
}
