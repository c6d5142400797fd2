// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package merge folds a user's turn into the conversation state: either
// the options selected for the previous question, or a free-text
// statement interpreted by the oracle.
package merge

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/rentsense/internal/classify"
	"github.com/pdiddy/rentsense/internal/ledger"
	"github.com/pdiddy/rentsense/internal/logging"
	"github.com/pdiddy/rentsense/pkg/types"
)

// LabelDeltas maps the standard answer labels to weight deltas.
var LabelDeltas = map[string]float64{
	"Very Important": 0.5,
	"Important":      0.25,
	"Neutral":        0,
	"Not Important":  -0.25,
	"Not Applicable": 0,
}

// LabelDelta returns the delta for a standard label, ignoring case and
// surrounding whitespace.
func LabelDelta(label string) (float64, bool) {
	label = strings.TrimSpace(label)
	for l, d := range LabelDeltas {
		if strings.EqualFold(l, label) {
			return d, true
		}
	}
	return 0, false
}

// Extractor returns the per-dimension deltas implied by free text.
// *oracle.Client satisfies it.
type Extractor interface {
	ExtractDeltas(ctx context.Context, text string) (map[types.Dimension]float64, error)
}

// TargetDimension resolves which dimension an answer to q applies to: the
// question's own tag if it names a known dimension, else the classifier's
// reading of the question text.
func TargetDimension(q *types.Question) (types.Dimension, bool) {
	if q == nil {
		return "", false
	}
	if d, ok := types.ParseDimension(string(q.Dimension)); ok {
		return d, true
	}
	return classify.Classify(q.Text)
}

// Answer applies the options selected for last. All selections are summed
// into the target dimension, which is then marked covered. When no target
// can be resolved the selection is still recorded in history but weights
// and coverage are left alone. The input state is not modified.
func Answer(ctx context.Context, state types.ConversationState, last *types.Question, selected []types.Selection, mode types.ResolutionMode) types.ConversationState {
	next := state.Clone()
	next.AddTurn(types.RoleUser, types.FormatSelections(selected))

	target, ok := TargetDimension(last)
	if !ok {
		logging.FromContext(ctx).Debug("answer has no resolvable dimension; skipping weight update",
			zap.String("question", questionText(last)))
		return next
	}

	var l ledger.Ledger
	for _, s := range selected {
		l.Add(target, Resolve(last, s, mode))
	}
	next.Weights = l.Commit(next.Weights)
	next.Cover(target)
	logging.FromContext(ctx).Debug("answer merged",
		zap.String("dimension", string(target)),
		zap.Any("selected", selected),
		zap.Float64("weight", next.Weights[target]))
	return next
}

// Resolve returns the weight delta for one selection. Unmatched
// selections contribute zero.
func Resolve(last *types.Question, s types.Selection, mode types.ResolutionMode) float64 {
	switch s.Kind {
	case types.SelectDelta:
		return s.Delta
	case types.SelectID:
		d, _ := matchOption(last, s.Value)
		return d
	}

	switch mode {
	case types.ResolveLabel:
		d, _ := LabelDelta(s.Value)
		return d
	case types.ResolveID:
		d, _ := matchOption(last, s.Value)
		return d
	default:
		if d, ok := LabelDelta(s.Value); ok {
			return d
		}
		d, _ := matchOption(last, s.Value)
		return d
	}
}

// matchOption finds the option of q named by v: an id option by id, or a
// label option by its label (whose delta comes from the label table).
func matchOption(q *types.Question, v string) (float64, bool) {
	if q == nil {
		return 0, false
	}
	if o, ok := q.FindOption(v); ok {
		return o.Delta, true
	}
	for _, o := range q.Options {
		if o.Kind == types.OptionLabel && strings.EqualFold(o.Label, strings.TrimSpace(v)) {
			return LabelDelta(o.Label)
		}
	}
	return 0, false
}

// Freeform records text in history and applies the deltas the extractor
// finds in it. Extractor failures leave weights and coverage unchanged.
// Returned deltas are clamped to [0, 2]; every dimension the extractor
// names is marked covered.
func Freeform(ctx context.Context, state types.ConversationState, text string, ex Extractor) types.ConversationState {
	next := state.Clone()
	next.AddTurn(types.RoleUser, text)

	if ex == nil {
		return next
	}
	deltas, err := ex.ExtractDeltas(ctx, text)
	if err != nil {
		logging.FromContext(ctx).Warn("free-text extraction failed; weights unchanged", zap.Error(err))
		return next
	}

	var l ledger.Ledger
	for _, d := range types.Dimensions() {
		delta, ok := deltas[d]
		if !ok {
			continue
		}
		l.Add(d, min(max(delta, 0), 2))
	}
	next.Weights = l.Commit(next.Weights)
	for _, d := range l.Touched() {
		next.Cover(d)
	}
	return next
}

func questionText(q *types.Question) string {
	if q == nil {
		return ""
	}
	return q.Text
}
