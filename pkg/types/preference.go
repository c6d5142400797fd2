// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// WeightVector maps each dimension to its preference weight. Invariants
// (non-negative, normalized sum) are enforced by the ledger package, not
// by this type.
type WeightVector map[Dimension]float64

// DefaultWeights returns the starting vector for a new conversation: 1.0
// for every dimension.
func DefaultWeights() WeightVector {
	w := make(WeightVector, DimensionCount)
	for _, d := range dimensions {
		w[d] = 1.0
	}
	return w
}

// Clone returns an independent copy of w. A nil vector clones to nil.
func (w WeightVector) Clone() WeightVector {
	if w == nil {
		return nil
	}
	return maps.Clone(w)
}

// Sum returns the total of all weights.
func (w WeightVector) Sum() float64 {
	var total float64
	for _, v := range w {
		total += v
	}
	return total
}

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry in the conversation history.
type Turn struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// OptionKind distinguishes the two shapes an answer option can take.
type OptionKind int

const (
	// OptionLabel is a bare label whose weight delta comes from the fixed
	// label table (e.g. "Very Important").
	OptionLabel OptionKind = iota

	// OptionID carries an explicit identifier and weight delta.
	OptionID
)

// Option is one answer choice attached to a Question. On the wire a label
// option is a JSON string and an id option is an object
// {"id": ..., "text": ..., "weight_delta": ...}.
type Option struct {
	Kind  OptionKind
	Label string
	ID    string
	Delta float64
}

// LabelOption returns a label option.
func LabelOption(label string) Option {
	return Option{Kind: OptionLabel, Label: label}
}

// IDOption returns an option with an explicit id and weight delta. The
// label is optional display text.
func IDOption(id, label string, delta float64) Option {
	return Option{Kind: OptionID, ID: id, Label: label, Delta: delta}
}

// Display returns the text shown to the user for this option.
func (o Option) Display() string {
	if o.Label != "" {
		return o.Label
	}
	return o.ID
}

type optionObject struct {
	ID    json.RawMessage `json:"id"`
	Text  string          `json:"text,omitempty"`
	Label string          `json:"label,omitempty"`
	Delta float64         `json:"weight_delta"`
}

// MarshalJSON encodes label options as strings and id options as
// {id, label, weight_delta} objects.
func (o Option) MarshalJSON() ([]byte, error) {
	if o.Kind == OptionLabel {
		return json.Marshal(o.Label)
	}
	return json.Marshal(struct {
		ID    string  `json:"id"`
		Label string  `json:"label,omitempty"`
		Delta float64 `json:"weight_delta"`
	}{ID: o.ID, Label: o.Label, Delta: o.Delta})
}

// UnmarshalJSON accepts either a string (label option) or an object with
// an id (id option). Numeric ids are kept in their literal form.
func (o *Option) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var label string
		if err := json.Unmarshal(data, &label); err != nil {
			return err
		}
		*o = LabelOption(label)
		return nil
	}

	var obj optionObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("option must be a string or an object: %w", err)
	}
	id, err := rawID(obj.ID)
	if err != nil {
		return err
	}
	label := obj.Text
	if label == "" {
		label = obj.Label
	}
	if id == "" {
		// An object with no id still names a choice; treat it as a label.
		*o = LabelOption(label)
		return nil
	}
	*o = IDOption(id, label, obj.Delta)
	return nil
}

// rawID converts a JSON id that may be a string or a number to a string.
func rawID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("id must be a string or a number: %w", err)
	}
	return n.String(), nil
}

// LikertLabels is the standard five-option answer set, most important first.
var LikertLabels = []string{
	"Very Important",
	"Important",
	"Neutral",
	"Not Important",
	"Not Applicable",
}

// LikertOptions returns the standard answer set as label options.
func LikertOptions() []Option {
	opts := make([]Option, len(LikertLabels))
	for i, l := range LikertLabels {
		opts[i] = LabelOption(l)
	}
	return opts
}

// Question is a prompt about one dimension together with its answer
// options. A question is immutable once shown; answers are reconciled
// against the copy the caller carries back as last_question_data.
type Question struct {
	Dimension Dimension `json:"dimension,omitempty"`
	Text      string    `json:"question"`
	Options   []Option  `json:"options"`
}

// Clone returns a deep copy of q. A nil question clones to nil.
func (q *Question) Clone() *Question {
	if q == nil {
		return nil
	}
	c := *q
	c.Options = slices.Clone(q.Options)
	return &c
}

// FindOption returns the option with the given id.
func (q *Question) FindOption(id string) (Option, bool) {
	if q == nil {
		return Option{}, false
	}
	for _, o := range q.Options {
		if o.Kind == OptionID && o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

// SelectionKind distinguishes the shapes a selected answer can take.
type SelectionKind int

const (
	// SelectText is a JSON string: a label, or an option id in id-based
	// resolution.
	SelectText SelectionKind = iota

	// SelectID is a JSON number naming an option id.
	SelectID

	// SelectDelta is an object carrying its own weight delta.
	SelectDelta
)

// Selection is one answer the user picked for the last question.
type Selection struct {
	Kind  SelectionKind
	Value string
	Delta float64
}

// TextSelection returns a string selection.
func TextSelection(s string) Selection {
	return Selection{Kind: SelectText, Value: s}
}

// IDSelection returns a bare id selection.
func IDSelection(id string) Selection {
	return Selection{Kind: SelectID, Value: id}
}

// DeltaSelection returns a selection with an explicit weight delta.
func DeltaSelection(id string, delta float64) Selection {
	return Selection{Kind: SelectDelta, Value: id, Delta: delta}
}

// String returns the selection as recorded in conversation history.
func (s Selection) String() string {
	return s.Value
}

// MarshalJSON encodes the selection in the shape it was received.
func (s Selection) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case SelectID:
		if _, err := strconv.ParseFloat(s.Value, 64); err == nil {
			return []byte(s.Value), nil
		}
		return json.Marshal(s.Value)
	case SelectDelta:
		return json.Marshal(struct {
			ID    string  `json:"id"`
			Delta float64 `json:"weight_delta"`
		}{ID: s.Value, Delta: s.Delta})
	default:
		return json.Marshal(s.Value)
	}
}

// UnmarshalJSON accepts a string, a number, or an {id, weight_delta}
// object.
func (s *Selection) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty selection")
	}
	switch data[0] {
	case '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = TextSelection(v)
	case '{':
		var obj optionObject
		if err := json.Unmarshal(data, &obj); err != nil {
			return fmt.Errorf("parsing selection object: %w", err)
		}
		id, err := rawID(obj.ID)
		if err != nil {
			return err
		}
		*s = DeltaSelection(id, obj.Delta)
	default:
		id, err := rawID(data)
		if err != nil {
			return fmt.Errorf("selection must be a string, number, or object: %w", err)
		}
		*s = IDSelection(id)
	}
	return nil
}

// FormatSelections renders selections the way they are recorded in
// history, e.g. "Selected: Very Important, Neutral".
func FormatSelections(selected []Selection) string {
	parts := make([]string, len(selected))
	for i, s := range selected {
		parts[i] = s.String()
	}
	return "Selected: " + strings.Join(parts, ", ")
}

// ConversationState is everything the engine needs to process a turn. The
// caller owns it and round-trips it on every request; the engine never
// keeps a copy between turns.
type ConversationState struct {
	Weights        WeightVector `json:"weights" yaml:"weights"`
	History        []Turn       `json:"conversation_history" yaml:"conversation_history"`
	Covered        []Dimension  `json:"dimensions_covered" yaml:"dimensions_covered"`
	QuestionsAsked int          `json:"questions_asked" yaml:"questions_asked"`
	LastQuestion   *Question    `json:"last_question_data,omitempty" yaml:"last_question_data,omitempty"`
}

// NewConversationState returns the state for the first turn: default
// weights, empty history and coverage, no questions asked.
func NewConversationState() ConversationState {
	return ConversationState{
		Weights: DefaultWeights(),
		History: []Turn{},
		Covered: []Dimension{},
	}
}

// Clone returns a deep copy so that no slice or map is shared with s.
func (s ConversationState) Clone() ConversationState {
	c := ConversationState{
		Weights:        s.Weights.Clone(),
		History:        slices.Clone(s.History),
		Covered:        slices.Clone(s.Covered),
		QuestionsAsked: s.QuestionsAsked,
		LastQuestion:   s.LastQuestion.Clone(),
	}
	if c.Weights == nil {
		c.Weights = WeightVector{}
	}
	if c.History == nil {
		c.History = []Turn{}
	}
	if c.Covered == nil {
		c.Covered = []Dimension{}
	}
	return c
}

// IsCovered reports whether d already received a weight-affecting signal.
func (s ConversationState) IsCovered(d Dimension) bool {
	return slices.Contains(s.Covered, d)
}

// Cover adds d to the covered set if it is not already present.
func (s *ConversationState) Cover(d Dimension) {
	if !s.IsCovered(d) {
		s.Covered = append(s.Covered, d)
	}
}

// Uncovered returns the dimensions not yet covered, in enumeration order.
func (s ConversationState) Uncovered() []Dimension {
	var out []Dimension
	for _, d := range dimensions {
		if !s.IsCovered(d) {
			out = append(out, d)
		}
	}
	return out
}

// AddTurn appends a history entry.
func (s *ConversationState) AddTurn(role Role, content string) {
	s.History = append(s.History, Turn{Role: role, Content: content})
}
