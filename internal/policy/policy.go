// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package policy decides after each turn whether to ask another question
// or show ranked results.
//
// The checks run in a fixed order and the first that fires wins:
//
//  1. hard question cap reached: show
//  2. coverage cap reached: show
//  3. oracle consulted; a failed or unusable reply: show
//  4. confidence gating on the oracle's reply
//
// Profiles that do not consult the oracle ask after the caps.
package policy

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/rentsense/internal/logging"
	"github.com/pdiddy/rentsense/internal/oracle"
	"github.com/pdiddy/rentsense/pkg/types"
)

// Action is the outcome discriminator returned to the caller.
type Action string

const (
	Ask  Action = "ask_question"
	Show Action = "show_results"
)

// Config holds the caps and thresholds.
type Config struct {
	HardQuestionCap int
	CoverageCap     int
	MinQuestions    int
	AskBelow        float64
	ShowAtOrAbove   float64
	ConsultOracle   bool
}

// ConfigFrom extracts the policy settings from an engine configuration.
func ConfigFrom(e types.EngineConfig) Config {
	return Config{
		HardQuestionCap: e.HardQuestionCap,
		CoverageCap:     e.CoverageCap,
		MinQuestions:    e.MinQuestions,
		AskBelow:        e.AskBelow,
		ShowAtOrAbove:   e.ShowAtOrAbove,
		ConsultOracle:   e.ConsultOracle,
	}
}

// DecisionRecord is the policy's answer for one turn. Rationale is for
// logs only. Suggested is the question the oracle proposed with an ask
// verdict, if any.
type DecisionRecord struct {
	Action     Action
	Confidence float64
	Rationale  string
	Suggested  *oracle.QuestionReply
}

// Advisor is the oracle's stop/continue judgment. *oracle.Client
// satisfies it.
type Advisor interface {
	Decide(ctx context.Context, state types.ConversationState) (oracle.Decision, error)
}

// Policy applies Config to conversation states.
type Policy struct {
	cfg     Config
	advisor Advisor
}

// New returns a policy. advisor may be nil when cfg.ConsultOracle is
// false; a nil advisor with ConsultOracle set behaves like a failing
// oracle.
func New(cfg Config, advisor Advisor) *Policy {
	return &Policy{cfg: cfg, advisor: advisor}
}

// Decide returns the action for state. It never fails: oracle problems
// resolve to Show.
func (p *Policy) Decide(ctx context.Context, state types.ConversationState) DecisionRecord {
	asked := state.QuestionsAsked
	covered := len(state.Covered)

	if asked >= p.cfg.HardQuestionCap {
		return DecisionRecord{Action: Show, Rationale: fmt.Sprintf("hard question cap %d reached", p.cfg.HardQuestionCap)}
	}
	if covered >= p.cfg.CoverageCap {
		return DecisionRecord{Action: Show, Rationale: fmt.Sprintf("%d of %d dimensions covered", covered, p.cfg.CoverageCap)}
	}
	if !p.cfg.ConsultOracle {
		return DecisionRecord{Action: Ask, Rationale: "caps not reached"}
	}

	if p.advisor == nil {
		return DecisionRecord{Action: Show, Rationale: "no oracle configured"}
	}
	d, err := p.advisor.Decide(ctx, state)
	if err != nil {
		logging.FromContext(ctx).Warn("stop decision failed; showing results", zap.Error(err))
		return DecisionRecord{Action: Show, Rationale: "oracle decision unavailable"}
	}

	rec := DecisionRecord{Confidence: d.Confidence, Rationale: d.Rationale}
	switch {
	case asked < p.cfg.MinQuestions && d.Confidence < p.cfg.AskBelow:
		rec.Action = Ask
	case d.Confidence >= p.cfg.ShowAtOrAbove && asked >= p.cfg.MinQuestions:
		rec.Action = Show
	case d.Verdict == oracle.VerdictShow:
		rec.Action = Show
	default:
		rec.Action = Ask
	}
	if rec.Action == Ask {
		rec.Suggested = d.Question
	}
	return rec
}
