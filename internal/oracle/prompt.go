// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package oracle

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/pdiddy/rentsense/pkg/types"
)

var funcs = template.FuncMap{
	"weight": func(w types.WeightVector, d types.Dimension) string {
		v, ok := w[d]
		if !ok {
			v = 1.0
		}
		return fmt.Sprintf("%.2f", v)
	},
}

// deltaPromptTmpl asks for per-dimension weight increases implied by a
// free-text statement.
var deltaPromptTmpl = template.Must(template.New("deltas").Funcs(funcs).Parse(`You help renters choose a New York City neighborhood. A user described what they want:

"{{.Text}}"

Decide which of these preference dimensions the statement clearly speaks to:
{{range .Dimensions}}- {{.}}
{{end}}
For each dimension the statement clearly raises, give a weight_delta between 0 and 2.0 (higher means the user cares more). Leave out dimensions the statement does not mention or that are ambiguous.

Respond with a JSON object only, no other text. Example:
{"clear": {"Safety": {"weight_delta": 1.5}, "Noise": {"weight_delta": 0.5}}}
`))

// questionPromptTmpl asks for the next elicitation question.
var questionPromptTmpl = template.Must(template.New("question").Funcs(funcs).Parse(`You help renters choose a New York City neighborhood by asking short preference questions.

Conversation so far:
{{range .History}}{{.Role}}: {{.Content}}
{{else}}(no conversation yet)
{{end}}
Dimensions not yet covered:
{{range .Remaining}}- {{.}}
{{end}}
Write one question about a single uncovered dimension. Use these answer options unless another set fits better: "Very Important", "Important", "Neutral", "Not Important", "Not Applicable".

Respond with a JSON object only, no other text. Example:
{"dimension": "Safety", "question": "How important is feeling safe walking home at night?", "options": ["Very Important", "Important", "Neutral", "Not Important", "Not Applicable"]}
`))

// decisionPromptTmpl asks whether enough is known to show results.
var decisionPromptTmpl = template.Must(template.New("decision").Funcs(funcs).Parse(`You help renters choose a New York City neighborhood. Decide whether you know enough about this user's preferences to show ranked neighborhoods, or whether one more question would clearly help.

Conversation so far:
{{range .History}}{{.Role}}: {{.Content}}
{{else}}(no conversation yet)
{{end}}
Current weights (sum to 8, 1.0 is neutral):
{{$w := .Weights}}{{range .Dimensions}}- {{.}}: {{weight $w .}}
{{end}}
Questions asked: {{.QuestionsAsked}}
Dimensions covered: {{range $i, $d := .Covered}}{{if $i}}, {{end}}{{$d}}{{else}}none{{end}}
Dimensions remaining: {{range $i, $d := .Remaining}}{{if $i}}, {{end}}{{$d}}{{else}}none{{end}}

Respond with a JSON object only, no other text. Set "decision" to "ask_question" or "show_results" and "confidence" to a number between 0 and 1 saying how sure you are that the current weights capture the user's preferences. When asking, include the question. Example:
{"decision": "ask_question", "confidence": 0.6, "reasoning": "commute not discussed", "dimension": "Commute Convenience", "question": "How important is a short commute?", "options": ["Very Important", "Important", "Neutral", "Not Important", "Not Applicable"]}
`))

type promptData struct {
	Text           string
	Dimensions     []types.Dimension
	History        []types.Turn
	Weights        types.WeightVector
	Covered        []types.Dimension
	Remaining      []types.Dimension
	QuestionsAsked int
}

func stateData(state types.ConversationState) promptData {
	return promptData{
		Dimensions:     types.Dimensions(),
		History:        state.History,
		Weights:        state.Weights,
		Covered:        state.Covered,
		Remaining:      state.Uncovered(),
		QuestionsAsked: state.QuestionsAsked,
	}
}

func render(t *template.Template, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", t.Name(), err)
	}
	return buf.String(), nil
}
