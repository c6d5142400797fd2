// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/rentsense/internal/dialogue"
	"github.com/pdiddy/rentsense/internal/logging"
	"github.com/pdiddy/rentsense/internal/policy"
	"github.com/pdiddy/rentsense/internal/rank"
	"github.com/pdiddy/rentsense/pkg/types"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Find a neighborhood through a terminal conversation",
	Long: `Chat runs the dialogue engine interactively. Describe what you want in
your own words; rentsense asks follow-up questions until it is confident
enough to rank neighborhoods.

Answer a question by typing an option number (several may be separated
by commas), an option label, or any free text. An empty line or "quit"
ends the session.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().Float64("min-rent", 0, "exclude neighborhoods with median rent below this")
	chatCmd.Flags().Float64("max-rent", 0, "exclude neighborhoods with median rent above this")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	minRent, _ := cmd.Flags().GetFloat64("min-rent")
	maxRent, _ := cmd.Flags().GetFloat64("max-rent")

	engine, _, err := openEngine(cmd.Context(), appCfg, logger)
	if err != nil {
		return err
	}

	id := uuid.NewString()
	ctx := logging.WithLogger(cmd.Context(), logger.With(zap.String("session_id", id)))
	logger.Debug("chat session started", zap.String("session_id", id), zap.String("profile", appCfg.Engine.Profile))

	s := &chatSession{
		engine:  engine,
		in:      bufio.NewScanner(os.Stdin),
		out:     os.Stdout,
		minRent: minRent,
		maxRent: maxRent,
	}
	return s.run(ctx)
}

var (
	promptColor   = color.New(color.FgGreen, color.Bold)
	questionColor = color.New(color.FgCyan, color.Bold)
	optionColor   = color.New(color.FgYellow)
	headerColor   = color.New(color.Bold)
)

// chatSession drives one terminal conversation. The conversation state is
// carried between turns here, the way the frontend carries it between
// requests.
type chatSession struct {
	engine  *dialogue.Controller
	in      *bufio.Scanner
	out     io.Writer
	minRent float64
	maxRent float64
}

func (s *chatSession) run(ctx context.Context) error {
	headerColor.Fprintln(s.out, "What matters to you in your next neighborhood?")
	line, ok := s.readLine()
	if !ok {
		return s.in.Err()
	}

	state := types.NewConversationState()
	action := dialogue.Action{Text: line}
	for {
		action.MinRent, action.MaxRent = s.minRent, s.maxRent

		var out dialogue.Outcome
		state, out = s.engine.AdvanceTurn(ctx, state, action)

		if out.Next == policy.Show {
			fmt.Fprintln(s.out)
			headerColor.Fprintln(s.out, "Neighborhoods that fit you best:")
			rank.FormatTable(out.Results, s.out)
			return nil
		}

		s.printQuestion(out.Question)
		line, ok := s.readLine()
		if !ok {
			fmt.Fprintln(s.out, "Bye.")
			return s.in.Err()
		}
		action = answerFor(out.Question, line)
	}
}

// readLine prompts and reads one non-empty line. It reports false at end
// of input or when the user asks to stop.
func (s *chatSession) readLine() (string, bool) {
	promptColor.Fprint(s.out, "> ")
	if !s.in.Scan() {
		return "", false
	}
	line := strings.TrimSpace(s.in.Text())
	switch strings.ToLower(line) {
	case "", "quit", "exit":
		return "", false
	}
	return line, true
}

func (s *chatSession) printQuestion(q *types.Question) {
	fmt.Fprintln(s.out)
	questionColor.Fprintln(s.out, q.Text)
	for i, o := range q.Options {
		optionColor.Fprintf(s.out, "  %d) ", i+1)
		fmt.Fprintln(s.out, o.Display())
	}
}

// answerFor turns a typed line into a turn action. Option numbers and
// option labels answer q; anything else is free text.
func answerFor(q *types.Question, line string) dialogue.Action {
	if sel, ok := pickOptions(q, line); ok {
		return dialogue.Action{Selected: sel, LastQuestion: q}
	}
	return dialogue.Action{Text: line}
}

func pickOptions(q *types.Question, line string) ([]types.Selection, bool) {
	if q == nil || len(q.Options) == 0 {
		return nil, false
	}

	fields := strings.FieldsFunc(line, func(r rune) bool { return r == ',' || r == ' ' })
	var sel []types.Selection
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 1 || n > len(q.Options) {
			sel = nil
			break
		}
		sel = append(sel, selectionFor(q.Options[n-1]))
	}
	if len(sel) > 0 {
		return sel, true
	}

	for _, o := range q.Options {
		if strings.EqualFold(o.Display(), line) {
			return []types.Selection{selectionFor(o)}, true
		}
	}
	return nil, false
}

func selectionFor(o types.Option) types.Selection {
	if o.Kind == types.OptionID {
		return types.DeltaSelection(o.ID, o.Delta)
	}
	return types.TextSelection(o.Label)
}
