// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/rentsense/internal/dataset"
	"github.com/pdiddy/rentsense/internal/dialogue"
	"github.com/pdiddy/rentsense/internal/oracle"
	"github.com/pdiddy/rentsense/pkg/types"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(viper.New(), nil)
	require.NoError(t, err)

	want := types.DefaultAppConfig()
	assert.Equal(t, want.Engine, cfg.Engine)
	assert.Equal(t, want.Oracle, cfg.Oracle)
	assert.Equal(t, want.Server, cfg.Server)
	assert.Equal(t, want.Dataset, cfg.Dataset)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rentsense.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
engine:
  profile: fixed
  top_n: 5
oracle:
  provider: claude
  model: claude-sonnet-4-5
  timeout: 30s
server:
  allowed_origins: ["http://localhost:3000"]
`), 0o644))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := loadConfig(v, nil)
	require.NoError(t, err)

	assert.Equal(t, types.ProfileFixed, cfg.Engine.Profile)
	assert.Equal(t, 4, cfg.Engine.HardQuestionCap, "profile values underlie the file")
	assert.Equal(t, 5, cfg.Engine.TopN)
	assert.Equal(t, types.ProviderClaude, cfg.Oracle.Provider)
	assert.Equal(t, "claude-sonnet-4-5", cfg.Oracle.Model)
	assert.Equal(t, 30*time.Second, cfg.Oracle.Timeout)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, ":8000", cfg.Server.Addr)
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("RENTSENSE_ORACLE_PROVIDER", "none")
	t.Setenv("RENTSENSE_SERVER_READ_TIMEOUT", "5s")
	t.Setenv("RENTSENSE_ENGINE_PROFILE", "option-id")

	v := viper.New()
	bindEnv(v)
	cfg, err := loadConfig(v, nil)
	require.NoError(t, err)

	assert.Equal(t, types.ProviderNone, cfg.Oracle.Provider)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, types.ResolveID, cfg.Engine.Resolution)
}

func TestLoadConfig_Flags(t *testing.T) {
	t.Setenv("RENTSENSE_ORACLE_PROVIDER", "gemini")

	cmd := &cobra.Command{}
	cmd.Flags().String("profile", "", "")
	cmd.Flags().String("provider", "", "")
	cmd.Flags().String("addr", "", "")
	cmd.Flags().String("model", "", "")
	require.NoError(t, cmd.Flags().Set("profile", "fixed"))
	require.NoError(t, cmd.Flags().Set("provider", "none"))
	require.NoError(t, cmd.Flags().Set("addr", ":9090"))

	v := viper.New()
	bindEnv(v)
	cfg, err := loadConfig(v, cmd)
	require.NoError(t, err)

	assert.Equal(t, types.ProfileFixed, cfg.Engine.Profile)
	assert.False(t, cfg.Engine.ConsultOracle)
	assert.Equal(t, types.ProviderNone, cfg.Oracle.Provider, "flag beats environment")
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, types.DefaultAppConfig().Oracle.Model, cfg.Oracle.Model, "unset flag does not override")
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		set     map[string]any
		wantErr string
	}{
		{"unknown profile", map[string]any{"engine.profile": "turbo"}, "unknown profile"},
		{"unknown provider", map[string]any{"oracle.provider": "openai"}, "unknown provider"},
		{"bad coverage cap", map[string]any{"engine.coverage_cap": 12}, "coverage_cap"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			for k, val := range tt.set {
				v.Set(k, val)
			}
			_, err := loadConfig(v, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseWeights(t *testing.T) {
	w, err := parseWeights([]string{"Safety=2", "noise = 0.5", "parks_score=3"})
	require.NoError(t, err)
	assert.Equal(t, 2.0, w[types.DimSafety])
	assert.Equal(t, 0.5, w[types.DimNoise])
	assert.Equal(t, 3.0, w[types.DimGreenSpace])
	assert.Equal(t, 1.0, w[types.DimCommute], "unspecified dimensions keep the default")

	for _, bad := range []string{"Safety", "Weather=1", "Safety=high", "Safety=-1"} {
		_, err := parseWeights([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestAnswerFor(t *testing.T) {
	q := &types.Question{
		Dimension: types.DimSafety,
		Text:      "How important is safety?",
		Options:   types.LikertOptions(),
	}

	tests := []struct {
		name string
		line string
		want []types.Selection
	}{
		{"single number", "1", []types.Selection{types.TextSelection("Very Important")}},
		{"several numbers", "2, 3", []types.Selection{types.TextSelection("Important"), types.TextSelection("Neutral")}},
		{"label", "not important", []types.Selection{types.TextSelection("Not Important")}},
		{"out of range", "9", nil},
		{"free text", "I walk everywhere at night", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := answerFor(q, tt.line)
			if tt.want == nil {
				assert.Empty(t, a.Selected)
				assert.Equal(t, tt.line, a.Text)
				return
			}
			assert.Equal(t, tt.want, a.Selected)
			assert.Same(t, q, a.LastQuestion)
		})
	}
}

func TestAnswerFor_IDOptions(t *testing.T) {
	q := &types.Question{
		Text: "Pick one",
		Options: []types.Option{
			types.IDOption("quiet", "Quiet streets", 0.4),
			types.IDOption("lively", "Nightlife", -0.2),
		},
	}
	a := answerFor(q, "2")
	assert.Equal(t, []types.Selection{types.DeltaSelection("lively", -0.2)}, a.Selected)
}

// scriptedOracle replays decisions in order and then shows results.
type scriptedOracle struct {
	deltas    map[types.Dimension]float64
	decisions []oracle.Decision
	calls     int
}

func (s *scriptedOracle) ExtractDeltas(context.Context, string) (map[types.Dimension]float64, error) {
	return s.deltas, nil
}

func (s *scriptedOracle) Decide(context.Context, types.ConversationState) (oracle.Decision, error) {
	if s.calls >= len(s.decisions) {
		return oracle.Decision{Verdict: oracle.VerdictShow, Confidence: 1}, nil
	}
	d := s.decisions[s.calls]
	s.calls++
	return d, nil
}

func (s *scriptedOracle) GenerateQuestion(context.Context, types.ConversationState) (oracle.QuestionReply, error) {
	return oracle.QuestionReply{}, oracle.ErrUnavailable
}

func newTestSession(t *testing.T, input string, o dialogue.Oracle) (*chatSession, *bytes.Buffer) {
	t.Helper()
	color.NoColor = true

	ds := dataset.New([]types.Candidate{
		{ID: "BK0101", Name: "Greenpoint", MedianRent: 3100, Scores: map[types.Dimension]float64{types.DimSafety: 0.6, types.DimNoise: 0.9}},
		{ID: "MN0201", Name: "SoHo", MedianRent: 4500, Scores: map[types.Dimension]float64{types.DimSafety: 0.9, types.DimNoise: 0.1}},
	}, "test")
	engine, err := dialogue.New(types.DefaultAppConfig().Engine, ds, o)
	require.NoError(t, err)

	out := &bytes.Buffer{}
	return &chatSession{
		engine: engine,
		in:     bufio.NewScanner(strings.NewReader(input)),
		out:    out,
	}, out
}

func TestChatSession_Run(t *testing.T) {
	o := &scriptedOracle{
		deltas: map[types.Dimension]float64{types.DimSafety: 1},
		decisions: []oracle.Decision{
			{
				Verdict:    oracle.VerdictAsk,
				Confidence: 0.3,
				Question:   &oracle.QuestionReply{Dimension: "Noise", Text: "How quiet should it be?"},
			},
			{Verdict: oracle.VerdictShow, Confidence: 0.9},
		},
	}
	s, out := newTestSession(t, "somewhere safe\n1\n", o)

	require.NoError(t, s.run(context.Background()))

	text := out.String()
	assert.Contains(t, text, "How quiet should it be?")
	assert.Contains(t, text, "1) Very Important")
	assert.Contains(t, text, "5) Not Applicable")
	assert.Contains(t, text, "Neighborhoods that fit you best:")
	assert.Contains(t, text, "Greenpoint")
	assert.Contains(t, text, "SoHo")
	assert.Contains(t, text, "2 results")
	assert.Equal(t, 2, o.calls)
}

func TestChatSession_Quit(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"quit before starting", "quit\n", ""},
		{"end of input at a question", "somewhere safe\n", "Bye."},
		{"blank answer", "somewhere safe\n\n", "Bye."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &scriptedOracle{decisions: []oracle.Decision{{
				Verdict:    oracle.VerdictAsk,
				Confidence: 0.2,
				Question:   &oracle.QuestionReply{Dimension: "Noise", Text: "How quiet?"},
			}}}
			s, out := newTestSession(t, tt.input, o)

			require.NoError(t, s.run(context.Background()))
			assert.NotContains(t, out.String(), "Neighborhoods that fit you best:")
			if tt.want != "" {
				assert.Contains(t, out.String(), tt.want)
			}
		})
	}
}

func TestWriteDatasetSummary(t *testing.T) {
	ds := dataset.New([]types.Candidate{
		{ID: "A", Name: "Alpha", Scores: map[types.Dimension]float64{types.DimSafety: 0.5}},
		{ID: "B", Name: "Beta", Scores: map[types.Dimension]float64{types.DimSafety: 0.7, types.DimNoise: 0.2}},
	}, "data/test.csv")

	var buf bytes.Buffer
	writeDatasetSummary(ds, &buf)

	text := buf.String()
	assert.Contains(t, text, "Source:        data/test.csv")
	assert.Contains(t, text, "Neighborhoods: 2")
	assert.Regexp(t, `Safety\s+safety_score\s+2`, text)
	assert.Regexp(t, `Noise\s+quiet_score\s+1`, text)
}
