// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package oracle is the client for the reasoning service: a language model
// that extracts preference deltas from free text, writes elicitation
// questions, and judges when enough is known to show results.
//
// Every call is one attempt bounded by the client timeout. Failures are
// reported as ErrUnavailable (transport, timeout, provider error) or
// ErrMalformed (reply did not have the expected shape); callers degrade
// instead of failing the turn.
package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/rentsense/internal/httputil"
	"github.com/pdiddy/rentsense/pkg/types"
)

var (
	// ErrUnavailable means the oracle could not be reached or did not
	// answer in time.
	ErrUnavailable = errors.New("oracle unavailable")

	// ErrMalformed means the oracle answered with text that could not be
	// read as the requested shape.
	ErrMalformed = errors.New("malformed oracle reply")
)

// MaxDelta bounds a single free-text weight delta.
const MaxDelta = 2.0

// Verdict is the oracle's raw stop/continue answer.
type Verdict string

const (
	VerdictAsk  Verdict = "ask_question"
	VerdictShow Verdict = "show_results"
)

// QuestionReply is a question proposed by the oracle. Dimension is the raw
// tag the model gave and may be empty or unknown. Options is nil when the
// model supplied none.
type QuestionReply struct {
	Dimension string
	Text      string
	Options   []types.Option
}

// Decision is a parsed stop/continue reply. Question is set when the model
// proposed a usable next question alongside the verdict.
type Decision struct {
	Verdict    Verdict
	Confidence float64
	Rationale  string
	Question   *QuestionReply
}

// Client wraps a Backend with prompt rendering, decoding, and the per-call
// timeout.
type Client struct {
	backend Backend
	timeout time.Duration
	logger  *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for per-call debug output.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns a client over backend. A timeout <= 0 leaves calls bounded
// only by the caller's context.
func New(backend Backend, timeout time.Duration, opts ...Option) *Client {
	c := &Client{backend: backend, timeout: timeout, logger: zap.NewNop()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// FromConfig builds the backend named in cfg and wraps it in a client.
func FromConfig(cfg types.OracleConfig, opts ...Option) (*Client, error) {
	backend, err := NewBackend(cfg, nil)
	if err != nil {
		return nil, err
	}
	return New(backend, cfg.Timeout, opts...), nil
}

// ExtractDeltas asks which dimensions a free-text statement raises and by
// how much. Unknown dimension names are dropped and deltas are clamped to
// [0, MaxDelta]. An empty map is a valid reply.
func (c *Client) ExtractDeltas(ctx context.Context, text string) (map[types.Dimension]float64, error) {
	data := promptData{Text: text, Dimensions: types.Dimensions()}
	obj, err := c.call(ctx, deltaPromptTmpl.Name(), func() (string, error) { return render(deltaPromptTmpl, data) })
	if err != nil {
		return nil, err
	}
	return parseDeltas(obj)
}

// GenerateQuestion asks for the next question given the conversation so
// far.
func (c *Client) GenerateQuestion(ctx context.Context, state types.ConversationState) (QuestionReply, error) {
	obj, err := c.call(ctx, questionPromptTmpl.Name(), func() (string, error) { return render(questionPromptTmpl, stateData(state)) })
	if err != nil {
		return QuestionReply{}, err
	}
	q, ok := parseQuestion(obj)
	if !ok {
		return QuestionReply{}, fmt.Errorf("%w: reply has no question text", ErrMalformed)
	}
	return q, nil
}

// Decide asks whether to show results now. Confidence is clamped to [0,1];
// a missing confidence reads as 0.
func (c *Client) Decide(ctx context.Context, state types.ConversationState) (Decision, error) {
	obj, err := c.call(ctx, decisionPromptTmpl.Name(), func() (string, error) { return render(decisionPromptTmpl, stateData(state)) })
	if err != nil {
		return Decision{}, err
	}

	var d Decision
	switch v := Verdict(strings.ToLower(stringField(obj, "decision"))); v {
	case VerdictAsk, VerdictShow:
		d.Verdict = v
	case "ask", "continue":
		d.Verdict = VerdictAsk
	case "show", "stop":
		d.Verdict = VerdictShow
	default:
		return Decision{}, fmt.Errorf("%w: unknown decision %q", ErrMalformed, v)
	}

	if conf, ok := numberField(obj, "confidence"); ok {
		d.Confidence = min(max(conf, 0), 1)
	}
	d.Rationale = stringField(obj, "reasoning")
	if q, ok := parseQuestion(obj); ok {
		d.Question = &q
	}
	return d, nil
}

// call renders a prompt, runs it through the backend under the timeout,
// and decodes the reply as an object.
func (c *Client) call(ctx context.Context, kind string, prompt func() (string, error)) (map[string]json.RawMessage, error) {
	p, err := prompt()
	if err != nil {
		return nil, err
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := c.backend.Complete(ctx, p)
	c.logger.Debug("oracle call",
		zap.String("kind", kind),
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("ok", err == nil))
	if err != nil {
		c.logStatus(kind, err)
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, kind, err)
	}
	return decodeObject(text)
}

// logStatus reports provider HTTP errors. Rejected credentials are logged
// at error level since no later call can succeed.
func (c *Client) logStatus(kind string, err error) {
	var se *httputil.StatusError
	if !errors.As(err, &se) {
		return
	}
	if httputil.IsStatus(err, http.StatusUnauthorized) || httputil.IsStatus(err, http.StatusForbidden) {
		c.logger.Error("oracle rejected credentials; check the API key",
			zap.String("kind", kind), zap.Int("status", se.StatusCode))
		return
	}
	c.logger.Warn("oracle returned an error status",
		zap.String("kind", kind), zap.Int("status", se.StatusCode))
}

// parseDeltas reads {dim: {weight_delta: n}} or {dim: n}, optionally
// nested under "clear".
func parseDeltas(obj map[string]json.RawMessage) (map[types.Dimension]float64, error) {
	if raw, ok := obj["clear"]; ok {
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, fmt.Errorf("%w: clear: %v", ErrMalformed, err)
		}
		obj = inner
	}

	out := make(map[types.Dimension]float64)
	for key, raw := range obj {
		d, ok := types.ParseDimension(key)
		if !ok {
			continue
		}
		v, ok := asNumber(raw)
		if !ok {
			var wrapped map[string]json.RawMessage
			if json.Unmarshal(raw, &wrapped) != nil {
				continue
			}
			if v, ok = numberField(wrapped, "weight_delta"); !ok {
				continue
			}
		}
		out[d] = min(max(v, 0), MaxDelta)
	}
	return out, nil
}

// parseQuestion reads {dimension, question, options}. It reports false
// when there is no question text.
func parseQuestion(obj map[string]json.RawMessage) (QuestionReply, bool) {
	q := QuestionReply{
		Dimension: stringField(obj, "dimension"),
		Text:      stringField(obj, "question"),
	}
	if q.Text == "" {
		return QuestionReply{}, false
	}
	if raw, ok := obj["options"]; ok {
		var opts []types.Option
		if err := json.Unmarshal(raw, &opts); err == nil && len(opts) > 0 {
			q.Options = opts
		}
	}
	return q, true
}
