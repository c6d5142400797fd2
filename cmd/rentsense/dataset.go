// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/rentsense/internal/dataset"
	"github.com/pdiddy/rentsense/pkg/types"
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Manage the neighborhood catalog (import, export, show)",
	Long: `Dataset manages the local SQLite catalog of neighborhoods and their
dimension scores. The catalog is built from the scores CSV produced by
the offline scoring pipeline; when present it is preferred over the CSV.`,
}

// --- import subcommand ---

var datasetImportCmd = &cobra.Command{
	Use:   "import [csv]",
	Short: "Load a scores CSV into the catalog",
	Long: `Import reads a scores CSV (default: dataset.csv_path) and replaces the
catalog contents with it in a single transaction.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDatasetImport,
}

func runDatasetImport(cmd *cobra.Command, args []string) error {
	path := appCfg.Dataset.CSVPath
	if len(args) == 1 {
		path = args[0]
	}

	cands, err := dataset.LoadCSVFile(path)
	if err != nil {
		return err
	}

	store, err := dataset.NewStore(appCfg.Dataset.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	sum, err := store.Import(cmd.Context(), cands)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d neighborhoods (%d scores) from %s into %s",
		sum.Neighborhoods, sum.Scores, path, appCfg.Dataset.DBPath)
	if sum.Replaced > 0 {
		fmt.Printf(", replacing %d", sum.Replaced)
	}
	fmt.Println()
	return nil
}

// --- export subcommand ---

var datasetExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the catalog to YAML or JSON",
	Long: `Export writes every neighborhood in the catalog with its scores keyed by
dataset column. Output goes to stdout unless --output is given.`,
	RunE: runDatasetExport,
}

func runDatasetExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")

	store, err := dataset.NewStore(appCfg.Dataset.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating %s: %w", output, err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "yaml":
		err = store.ExportYAML(cmd.Context(), w)
	case "json":
		err = store.ExportJSON(cmd.Context(), w)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	if output != "" {
		fmt.Fprintf(os.Stderr, "Exported catalog to %s\n", output)
	}
	return nil
}

// --- show subcommand ---

var datasetShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Summarize the dataset the engine would rank",
	Long: `Show opens the dataset exactly as serve and chat would (catalog first,
then CSV) and prints its source, size and per-dimension coverage.`,
	RunE: runDatasetShow,
}

func runDatasetShow(cmd *cobra.Command, args []string) error {
	ds, err := dataset.Open(cmd.Context(), appCfg.Dataset)
	if err != nil {
		return err
	}
	writeDatasetSummary(ds, os.Stdout)
	return nil
}

// writeDatasetSummary prints how many candidates carry a score for each
// dimension.
func writeDatasetSummary(ds *dataset.Dataset, w io.Writer) {
	cands := ds.Candidates()
	fmt.Fprintf(w, "Source:        %s\n", ds.Source())
	fmt.Fprintf(w, "Neighborhoods: %d\n\n", len(cands))

	fmt.Fprintf(w, "%-26s  %-36s  %s\n", "Dimension", "Column", "Scored")
	fmt.Fprintln(w, strings.Repeat("-", 72))
	for _, d := range types.Dimensions() {
		n := 0
		for _, c := range cands {
			if _, ok := c.Score(d); ok {
				n++
			}
		}
		fmt.Fprintf(w, "%-26s  %-36s  %d\n", d, d.Column(), n)
	}
}

func init() {
	datasetExportCmd.Flags().String("format", "yaml", "output format: yaml or json")
	datasetExportCmd.Flags().StringP("output", "o", "", "write to file instead of stdout")

	datasetCmd.AddCommand(datasetImportCmd)
	datasetCmd.AddCommand(datasetExportCmd)
	datasetCmd.AddCommand(datasetShowCmd)
	rootCmd.AddCommand(datasetCmd)
}
