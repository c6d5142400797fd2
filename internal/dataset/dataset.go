// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dataset loads the candidate neighborhoods that results are
// ranked from. The source is either the scores CSV produced by the
// offline pipeline or a SQLite catalog imported from it.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/pdiddy/rentsense/pkg/types"
)

// ErrMissing means no usable dataset was found at startup.
var ErrMissing = errors.New("candidate dataset missing")

// Dataset is an immutable candidate set, safe for concurrent readers.
type Dataset struct {
	candidates []types.Candidate
	source     string
}

// New wraps cands. The caller must not modify cands afterwards.
func New(cands []types.Candidate, source string) *Dataset {
	return &Dataset{candidates: cands, source: source}
}

// Candidates returns the candidates in dataset order. The slice is a copy;
// the score maps are shared and must be treated as read-only.
func (d *Dataset) Candidates() []types.Candidate {
	return slices.Clone(d.candidates)
}

// Len returns the number of candidates.
func (d *Dataset) Len() int {
	return len(d.candidates)
}

// Source describes where the candidates came from.
func (d *Dataset) Source() string {
	return d.source
}

// Open loads the dataset named by cfg. The SQLite catalog wins when its
// file exists; otherwise the CSV is read. An absent or empty dataset
// yields an error wrapping ErrMissing.
func Open(ctx context.Context, cfg types.DatasetConfig) (*Dataset, error) {
	if cfg.DBPath != "" && fileExists(cfg.DBPath) {
		store, err := NewStore(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		defer store.Close()

		cands, err := store.Load(ctx)
		if err != nil {
			return nil, err
		}
		if len(cands) > 0 {
			return New(cands, cfg.DBPath), nil
		}
	}

	if cfg.CSVPath == "" {
		return nil, fmt.Errorf("%w: no csv_path configured and catalog %q is empty or absent", ErrMissing, cfg.DBPath)
	}
	if !fileExists(cfg.CSVPath) {
		return nil, fmt.Errorf("%w: %s not found", ErrMissing, cfg.CSVPath)
	}
	cands, err := LoadCSVFile(cfg.CSVPath)
	if err != nil {
		return nil, err
	}
	if len(cands) == 0 {
		return nil, fmt.Errorf("%w: %s has no rows", ErrMissing, cfg.CSVPath)
	}
	return New(cands, cfg.CSVPath), nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
