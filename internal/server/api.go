// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"fmt"
	"strings"

	"github.com/pdiddy/rentsense/internal/dialogue"
	"github.com/pdiddy/rentsense/internal/rank"
	"github.com/pdiddy/rentsense/pkg/types"
)

// ChatRequest is one turn as sent by the frontend. The client echoes back
// the state fields from the previous response.
type ChatRequest struct {
	UserInput           string             `json:"user_input"`
	SelectedOptions     []types.Selection  `json:"selected_options"`
	LastQuestionData    *types.Question    `json:"last_question_data"`
	Mode                string             `json:"mode"`
	Weights             map[string]float64 `json:"weights"`
	ConversationHistory []types.Turn       `json:"conversation_history"`
	QuestionsAsked      int                `json:"questions_asked"`
	DimensionsCovered   []string           `json:"dimensions_covered"`

	// Optional rent budget.
	MinRent float64 `json:"min_rent,omitempty"`
	MaxRent float64 `json:"max_rent,omitempty"`
}

// ChatResponse carries the new state plus either a question or results.
// Results is an array, possibly empty, whenever NextStep is show_results
// and null otherwise.
type ChatResponse struct {
	Weights             types.WeightVector `json:"weights"`
	ConversationHistory []types.Turn       `json:"conversation_history"`
	QuestionsAsked      int                `json:"questions_asked"`
	DimensionsCovered   []types.Dimension  `json:"dimensions_covered"`
	NextStep            string             `json:"next_step"`
	Question            *types.Question    `json:"question,omitempty"`
	Results             []rank.Result      `json:"results"`
}

func (r ChatRequest) validate() error {
	if r.QuestionsAsked < 0 {
		return fmt.Errorf("questions_asked cannot be negative")
	}
	if r.MinRent < 0 || r.MaxRent < 0 {
		return fmt.Errorf("rent bounds cannot be negative")
	}
	if r.MaxRent > 0 && r.MinRent > r.MaxRent {
		return fmt.Errorf("min_rent exceeds max_rent")
	}
	for i, t := range r.ConversationHistory {
		if t.Role != types.RoleUser && t.Role != types.RoleAssistant {
			return fmt.Errorf("conversation_history[%d]: unknown role %q", i, t.Role)
		}
	}
	return nil
}

// state rebuilds the conversation state. Weight keys and covered names
// are matched to known dimensions; anything else is dropped.
func (r ChatRequest) state() types.ConversationState {
	s := types.NewConversationState()
	if len(r.Weights) > 0 {
		s.Weights = make(types.WeightVector, len(r.Weights))
		for k, v := range r.Weights {
			if d, ok := types.ParseDimension(k); ok {
				s.Weights[d] = v
			}
		}
	}
	if r.ConversationHistory != nil {
		s.History = append(s.History, r.ConversationHistory...)
	}
	for _, name := range r.DimensionsCovered {
		if d, ok := types.ParseDimension(name); ok {
			s.Cover(d)
		}
	}
	s.QuestionsAsked = r.QuestionsAsked
	s.LastQuestion = r.LastQuestionData
	return s
}

func (r ChatRequest) action() dialogue.Action {
	return dialogue.Action{
		Text:         strings.TrimSpace(r.UserInput),
		Selected:     r.SelectedOptions,
		LastQuestion: r.LastQuestionData,
		MinRent:      r.MinRent,
		MaxRent:      r.MaxRent,
	}
}

func newChatResponse(s types.ConversationState, out dialogue.Outcome) ChatResponse {
	return ChatResponse{
		Weights:             s.Weights,
		ConversationHistory: s.History,
		QuestionsAsked:      s.QuestionsAsked,
		DimensionsCovered:   s.Covered,
		NextStep:            string(out.Next),
		Question:            out.Question,
		Results:             resultsFor(out),
	}
}
