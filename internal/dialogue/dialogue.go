// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dialogue runs one conversation turn: merge the user's input,
// renormalize, decide whether to keep asking, and produce either the next
// question or ranked results.
//
// The controller holds no conversation state. Every turn takes the state
// the caller carries and returns a new one; the input is never modified.
package dialogue

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/rentsense/internal/classify"
	"github.com/pdiddy/rentsense/internal/ledger"
	"github.com/pdiddy/rentsense/internal/logging"
	"github.com/pdiddy/rentsense/internal/merge"
	"github.com/pdiddy/rentsense/internal/oracle"
	"github.com/pdiddy/rentsense/internal/policy"
	"github.com/pdiddy/rentsense/internal/rank"
	"github.com/pdiddy/rentsense/pkg/types"
)

// Oracle is everything the controller asks of the reasoning service.
// *oracle.Client satisfies it.
type Oracle interface {
	merge.Extractor
	policy.Advisor
	GenerateQuestion(ctx context.Context, state types.ConversationState) (oracle.QuestionReply, error)
}

// CandidateSource supplies the candidates to rank. *dataset.Dataset
// satisfies it.
type CandidateSource interface {
	Candidates() []types.Candidate
}

// Action is the user's input for one turn. Selected with a last question
// is an answer; otherwise non-blank Text is a free-text statement.
type Action struct {
	Text         string
	Selected     []types.Selection
	LastQuestion *types.Question

	// MinRent and MaxRent filter results by median rent when positive.
	MinRent float64
	MaxRent float64
}

// Outcome is what the turn produced. Exactly one of Question and Results
// is meaningful, according to Next.
type Outcome struct {
	Next     policy.Action
	Question *types.Question
	Results  []rank.Scored
	Decision policy.DecisionRecord
}

// Controller advances conversations under one engine configuration.
type Controller struct {
	cfg    types.EngineConfig
	source CandidateSource
	oracle Oracle
	policy *policy.Policy
}

// New returns a controller. o may be nil, in which case every oracle step
// takes its fallback path.
func New(cfg types.EngineConfig, source CandidateSource, o Oracle) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	if source == nil {
		return nil, fmt.Errorf("candidate source is required")
	}
	var advisor policy.Advisor
	if o != nil {
		advisor = o
	}
	return &Controller{
		cfg:    cfg,
		source: source,
		oracle: o,
		policy: policy.New(policy.ConfigFrom(cfg), advisor),
	}, nil
}

// Config returns the engine configuration.
func (c *Controller) Config() types.EngineConfig {
	return c.cfg
}

// WithProfile returns a controller for the named profile that shares this
// controller's candidates and oracle.
func (c *Controller) WithProfile(name string) (*Controller, error) {
	cfg, ok := types.Profile(name)
	if !ok {
		return nil, fmt.Errorf("unknown profile %q: use one of %s", name, strings.Join(types.ProfileNames(), ", "))
	}
	return New(cfg, c.source, c.oracle)
}

// AdvanceTurn applies action to state and decides what comes next. It
// never fails; oracle problems degrade to fallbacks.
func (c *Controller) AdvanceTurn(ctx context.Context, state types.ConversationState, action Action) (types.ConversationState, Outcome) {
	log := logging.FromContext(ctx)
	next := state.Clone()

	last := action.LastQuestion
	if last == nil {
		last = next.LastQuestion
	}
	switch {
	case len(action.Selected) > 0 && last != nil:
		next = merge.Answer(ctx, next, last, action.Selected, c.cfg.Resolution)
	case strings.TrimSpace(action.Text) != "":
		next = merge.Freeform(ctx, next, strings.TrimSpace(action.Text), c.extractor())
	}
	next.Weights = ledger.Normalize(next.Weights)

	rec := c.policy.Decide(ctx, next)
	out := Outcome{Next: rec.Action, Decision: rec}

	if rec.Action == policy.Ask {
		q, authored := c.nextQuestion(ctx, next, rec)
		if q != nil {
			// Fallback questions are not counted and leave history alone;
			// only LastQuestion records them so the answer can be merged.
			if authored {
				next.QuestionsAsked++
				next.AddTurn(types.RoleAssistant, q.Text)
			}
			next.LastQuestion = q
			out.Question = q.Clone()

			log.Info("asking question",
				zap.String("profile", c.cfg.Profile),
				zap.String("dimension", string(q.Dimension)),
				zap.Bool("fallback", !authored),
				zap.Int("questions_asked", next.QuestionsAsked),
				zap.String("rationale", rec.Rationale))
			return next, out
		}
		log.Info("no question left to ask; showing results")
		out.Next = policy.Show
	}

	next.LastQuestion = nil
	out.Results = rank.Rank(c.source.Candidates(), next.Weights, rank.Options{
		TopN:    c.cfg.TopN,
		MinRent: action.MinRent,
		MaxRent: action.MaxRent,
	}).Slice()

	log.Info("showing results",
		zap.String("profile", c.cfg.Profile),
		zap.Int("results", len(out.Results)),
		zap.Int("questions_asked", next.QuestionsAsked),
		zap.Int("covered", len(next.Covered)),
		zap.Float64("confidence", rec.Confidence),
		zap.String("rationale", rec.Rationale))
	return next, out
}

func (c *Controller) extractor() merge.Extractor {
	if c.oracle == nil {
		return nil
	}
	return c.oracle
}

// nextQuestion picks the question to ask. authored reports whether the
// oracle wrote it; a nil question means nothing is left to ask.
func (c *Controller) nextQuestion(ctx context.Context, state types.ConversationState, rec policy.DecisionRecord) (*types.Question, bool) {
	reply := rec.Suggested
	if reply == nil && !c.cfg.ConsultOracle && c.oracle != nil {
		r, err := c.oracle.GenerateQuestion(ctx, state)
		if err != nil {
			logging.FromContext(ctx).Warn("question generation failed; using fallback", zap.Error(err))
		} else {
			reply = &r
		}
	}

	if reply != nil {
		if q := fromReply(*reply, state); q != nil {
			return q, true
		}
	}
	return Fallback(state), false
}

// fromReply fills in what the oracle left out: the standard answer set
// when options are missing, and a dimension from the question text or
// the first uncovered one.
func fromReply(r oracle.QuestionReply, state types.ConversationState) *types.Question {
	text := strings.TrimSpace(r.Text)
	if text == "" {
		return nil
	}
	q := &types.Question{Text: text, Options: r.Options}
	if len(q.Options) == 0 {
		q.Options = types.LikertOptions()
	}

	if d, ok := types.ParseDimension(r.Dimension); ok {
		q.Dimension = d
	} else if d, ok := classify.Classify(text); ok {
		q.Dimension = d
	} else if rest := state.Uncovered(); len(rest) > 0 {
		q.Dimension = rest[0]
	}
	return q
}

// Fallback returns the generic question for the first uncovered
// dimension, or nil when every dimension is covered.
func Fallback(state types.ConversationState) *types.Question {
	rest := state.Uncovered()
	if len(rest) == 0 {
		return nil
	}
	d := rest[0]
	return &types.Question{
		Dimension: d,
		Text:      fmt.Sprintf("What else matters to you? How important is %s in your next neighborhood?", strings.ToLower(string(d))),
		Options:   types.LikertOptions(),
	}
}
