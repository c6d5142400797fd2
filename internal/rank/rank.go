// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rank scores candidates against a weight vector and orders them
// by fit.
package rank

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"slices"
	"strings"

	"github.com/pdiddy/rentsense/pkg/types"
)

// Options controls how many results come back and which are eligible.
type Options struct {
	// TopN caps the number of results. Zero or negative means no cap.
	TopN int

	// MinRent and MaxRent bound median rent when positive. Candidates
	// with unknown rent always pass.
	MinRent float64
	MaxRent float64
}

// Scored is a candidate with its fit index and 1-based rank.
type Scored struct {
	Rank      int
	Candidate types.Candidate
	Fit       float64
}

// Ranking is a ranked view over a candidate set. It holds its own copy of
// the weights; iterating recomputes scores, so every iteration yields the
// same sequence.
type Ranking struct {
	candidates []types.Candidate
	weights    types.WeightVector
	opts       Options
}

// Rank returns a ranking of candidates under weights. No scoring happens
// until the ranking is iterated.
func Rank(candidates []types.Candidate, weights types.WeightVector, opts Options) Ranking {
	return Ranking{candidates: candidates, weights: weights.Clone(), opts: opts}
}

// Fit returns the weighted mean of c's scores over the dimensions present
// in both c and w. It is 0 when the total weight is 0.
func Fit(c types.Candidate, w types.WeightVector) float64 {
	var num, den float64
	for _, d := range types.Dimensions() {
		wt, ok := w[d]
		if !ok {
			continue
		}
		s, ok := c.Score(d)
		if !ok {
			continue
		}
		num += wt * s
		den += wt
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// All yields the top candidates in descending fit order. Ties keep
// dataset order.
func (r Ranking) All() iter.Seq[Scored] {
	return func(yield func(Scored) bool) {
		scored := make([]Scored, 0, len(r.candidates))
		for _, c := range r.candidates {
			if !r.opts.eligible(c) {
				continue
			}
			scored = append(scored, Scored{Candidate: c, Fit: Fit(c, r.weights)})
		}
		slices.SortStableFunc(scored, func(a, b Scored) int {
			return cmp.Compare(b.Fit, a.Fit)
		})
		if r.opts.TopN > 0 && len(scored) > r.opts.TopN {
			scored = scored[:r.opts.TopN]
		}
		for i := range scored {
			scored[i].Rank = i + 1
			if !yield(scored[i]) {
				return
			}
		}
	}
}

// Slice collects the ranking.
func (r Ranking) Slice() []Scored {
	return slices.Collect(r.All())
}

func (o Options) eligible(c types.Candidate) bool {
	if c.MedianRent <= 0 {
		return true
	}
	if o.MinRent > 0 && c.MedianRent < o.MinRent {
		return false
	}
	if o.MaxRent > 0 && c.MedianRent > o.MaxRent {
		return false
	}
	return true
}

// Result is the wire form of a ranked candidate. Scores are keyed by
// dataset column.
type Result struct {
	ID         string             `json:"id" yaml:"id"`
	Name       string             `json:"name" yaml:"name"`
	Rank       int                `json:"rank" yaml:"rank"`
	FitIndex   float64            `json:"fit_index" yaml:"fit_index"`
	MedianRent float64            `json:"median_rent,omitempty" yaml:"median_rent,omitempty"`
	Scores     map[string]float64 `json:"scores" yaml:"scores"`
}

// MarshalJSON writes the result as one flat row: every score column sits
// at the top level next to the identity fields, which also appear under
// the dataset's nta2020 and ntaname keys. Scores are repeated under
// "scores".
func (r Result) MarshalJSON() ([]byte, error) {
	row := make(map[string]any, len(r.Scores)+8)
	for col, v := range r.Scores {
		row[col] = v
	}
	row["id"] = r.ID
	row["nta2020"] = r.ID
	row["name"] = r.Name
	row["ntaname"] = r.Name
	row["rank"] = r.Rank
	row["fit_index"] = r.FitIndex
	if r.MedianRent > 0 {
		row["median_rent"] = r.MedianRent
	}
	scores := r.Scores
	if scores == nil {
		scores = map[string]float64{}
	}
	row["scores"] = scores
	return json.Marshal(row)
}

// Results converts scored candidates to their wire form.
func Results(scored []Scored) []Result {
	out := make([]Result, len(scored))
	for i, s := range scored {
		scores := make(map[string]float64, len(s.Candidate.Scores))
		for d, v := range s.Candidate.Scores {
			scores[d.Column()] = v
		}
		out[i] = Result{
			ID:         s.Candidate.ID,
			Name:       s.Candidate.Name,
			Rank:       s.Rank,
			FitIndex:   s.Fit,
			MedianRent: s.Candidate.MedianRent,
			Scores:     scores,
		}
	}
	return out
}

// FormatTable writes scored candidates as a human-readable table.
func FormatTable(scored []Scored, w io.Writer) {
	if len(scored) == 0 {
		fmt.Fprintln(w, "No neighborhoods match.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-8s  %-44s  %-6s  %s\n", "Rank", "ID", "Name", "Fit", "Rent")
	fmt.Fprintln(w, strings.Repeat("-", 78))

	for _, s := range scored {
		name := s.Candidate.Name
		if len(name) > 44 {
			name = name[:41] + "..."
		}
		rent := "-"
		if s.Candidate.MedianRent > 0 {
			rent = fmt.Sprintf("$%.0f", s.Candidate.MedianRent)
		}
		fmt.Fprintf(w, "%-4d  %-8s  %-44s  %-6.3f  %s\n", s.Rank, s.Candidate.ID, name, s.Fit, rent)
	}

	fmt.Fprintf(w, "\n%d results\n", len(scored))
}

// FormatJSON writes scored candidates as indented JSON.
func FormatJSON(scored []Scored, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Results(scored))
}
