// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/rentsense/internal/dataset"
	"github.com/pdiddy/rentsense/internal/ledger"
	"github.com/pdiddy/rentsense/internal/rank"
	"github.com/pdiddy/rentsense/pkg/types"
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank neighborhoods for explicit weights",
	Long: `Rank scores every neighborhood against a weight vector without any
conversation. Dimensions not given keep the default weight of 1, and the
vector is normalized before ranking.

Example:
  rentsense rank --weight Safety=2 --weight "Green Space Accessibility=1.5" --max-rent 3500`,
	RunE: runRank,
}

func init() {
	rankCmd.Flags().StringArray("weight", nil, "dimension weight as Name=value (repeatable)")
	rankCmd.Flags().Int("top", 0, "number of results (default from engine top_n)")
	rankCmd.Flags().Float64("min-rent", 0, "exclude neighborhoods with median rent below this")
	rankCmd.Flags().Float64("max-rent", 0, "exclude neighborhoods with median rent above this")
	rankCmd.Flags().Bool("json", false, "output results as JSON")
	rootCmd.AddCommand(rankCmd)
}

func runRank(cmd *cobra.Command, args []string) error {
	specs, _ := cmd.Flags().GetStringArray("weight")
	top, _ := cmd.Flags().GetInt("top")
	minRent, _ := cmd.Flags().GetFloat64("min-rent")
	maxRent, _ := cmd.Flags().GetFloat64("max-rent")
	asJSON, _ := cmd.Flags().GetBool("json")

	weights, err := parseWeights(specs)
	if err != nil {
		return err
	}
	if top <= 0 {
		top = appCfg.Engine.TopN
	}

	ds, err := dataset.Open(cmd.Context(), appCfg.Dataset)
	if err != nil {
		return err
	}

	scored := rank.Rank(ds.Candidates(), ledger.Normalize(weights), rank.Options{
		TopN:    top,
		MinRent: minRent,
		MaxRent: maxRent,
	}).Slice()

	if asJSON {
		return rank.FormatJSON(scored, os.Stdout)
	}
	rank.FormatTable(scored, os.Stdout)
	return nil
}

// parseWeights reads Name=value pairs over the default weights. Names
// may be display names or dataset columns.
func parseWeights(specs []string) (types.WeightVector, error) {
	w := types.DefaultWeights()
	for _, spec := range specs {
		name, value, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, fmt.Errorf("weight %q: expected Name=value", spec)
		}
		d, ok := types.ParseDimension(name)
		if !ok {
			return nil, fmt.Errorf("weight %q: unknown dimension %q", spec, name)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("weight %q: %w", spec, err)
		}
		if v < 0 {
			return nil, fmt.Errorf("weight %q: must not be negative", spec)
		}
		w[d] = v
	}
	return w, nil
}
