// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dataset

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/rentsense/pkg/types"
)

// Store is the SQLite candidate catalog.
type Store struct {
	db *sql.DB
}

// ImportSummary reports what an import wrote.
type ImportSummary struct {
	Neighborhoods int
	Scores        int
	Replaced      int
}

// NewStore opens or creates the catalog at path and ensures the schema.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating catalog directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS neighborhoods (
			position INTEGER PRIMARY KEY,
			id TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			median_rent REAL
		)`,
		`CREATE TABLE IF NOT EXISTS scores (
			neighborhood_id TEXT NOT NULL REFERENCES neighborhoods(id) ON DELETE CASCADE,
			dimension TEXT NOT NULL,
			score REAL NOT NULL,
			PRIMARY KEY (neighborhood_id, dimension)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scores_dimension ON scores(dimension)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Import replaces the catalog contents with cands in one transaction.
// Dataset order is preserved.
func (s *Store) Import(ctx context.Context, cands []types.Candidate) (ImportSummary, error) {
	var sum ImportSummary

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return sum, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM neighborhoods`).Scan(&sum.Replaced); err != nil {
		return sum, fmt.Errorf("counting existing rows: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM scores`); err != nil {
		return sum, fmt.Errorf("clearing scores: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM neighborhoods`); err != nil {
		return sum, fmt.Errorf("clearing neighborhoods: %w", err)
	}

	nStmt, err := tx.PrepareContext(ctx, `INSERT INTO neighborhoods (position, id, name, median_rent) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return sum, fmt.Errorf("preparing insert: %w", err)
	}
	defer nStmt.Close()

	sStmt, err := tx.PrepareContext(ctx, `INSERT INTO scores (neighborhood_id, dimension, score) VALUES (?, ?, ?)`)
	if err != nil {
		return sum, fmt.Errorf("preparing insert: %w", err)
	}
	defer sStmt.Close()

	for i, c := range cands {
		var rent any
		if c.MedianRent > 0 {
			rent = c.MedianRent
		}
		if _, err := nStmt.ExecContext(ctx, i, c.ID, c.Name, rent); err != nil {
			return sum, fmt.Errorf("inserting %s: %w", c.ID, err)
		}
		sum.Neighborhoods++

		for _, d := range types.Dimensions() {
			v, ok := c.Score(d)
			if !ok {
				continue
			}
			if _, err := sStmt.ExecContext(ctx, c.ID, d.Column(), v); err != nil {
				return sum, fmt.Errorf("inserting %s score for %s: %w", d.Column(), c.ID, err)
			}
			sum.Scores++
		}
	}

	if err := tx.Commit(); err != nil {
		return sum, fmt.Errorf("committing import: %w", err)
	}
	return sum, nil
}

// Load returns every candidate in dataset order. Score rows for unknown
// columns are skipped.
func (s *Store) Load(ctx context.Context) ([]types.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, median_rent FROM neighborhoods ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying neighborhoods: %w", err)
	}
	defer rows.Close()

	var cands []types.Candidate
	index := make(map[string]int)
	for rows.Next() {
		var (
			c    types.Candidate
			rent sql.NullFloat64
		)
		if err := rows.Scan(&c.ID, &c.Name, &rent); err != nil {
			return nil, fmt.Errorf("scanning neighborhood: %w", err)
		}
		c.MedianRent = rent.Float64
		c.Scores = make(map[types.Dimension]float64)
		index[c.ID] = len(cands)
		cands = append(cands, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating neighborhoods: %w", err)
	}

	srows, err := s.db.QueryContext(ctx, `SELECT neighborhood_id, dimension, score FROM scores`)
	if err != nil {
		return nil, fmt.Errorf("querying scores: %w", err)
	}
	defer srows.Close()

	for srows.Next() {
		var (
			id, column string
			score      float64
		)
		if err := srows.Scan(&id, &column, &score); err != nil {
			return nil, fmt.Errorf("scanning score: %w", err)
		}
		d, ok := types.DimensionForColumn(column)
		if !ok {
			continue
		}
		if i, ok := index[id]; ok {
			cands[i].Scores[d] = score
		}
	}
	if err := srows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scores: %w", err)
	}
	return cands, nil
}

// Count returns the number of neighborhoods in the catalog.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM neighborhoods`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting neighborhoods: %w", err)
	}
	return n, nil
}

// ExportEntry is one neighborhood in an export file. Scores are keyed by
// dataset column.
type ExportEntry struct {
	ID         string             `json:"id" yaml:"id"`
	Name       string             `json:"name" yaml:"name"`
	MedianRent float64            `json:"median_rent,omitempty" yaml:"median_rent,omitempty"`
	Scores     map[string]float64 `json:"scores" yaml:"scores"`
}

// ExportYAML writes the catalog to w as YAML.
func (s *Store) ExportYAML(ctx context.Context, w io.Writer) error {
	entries, err := s.exportEntries(ctx)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return nil
}

// ExportJSON writes the catalog to w as indented JSON.
func (s *Store) ExportJSON(ctx context.Context, w io.Writer) error {
	entries, err := s.exportEntries(ctx)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

func (s *Store) exportEntries(ctx context.Context) ([]ExportEntry, error) {
	cands, err := s.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}
	entries := make([]ExportEntry, len(cands))
	for i, c := range cands {
		scores := make(map[string]float64, len(c.Scores))
		for d, v := range c.Scores {
			scores[d.Column()] = v
		}
		entries[i] = ExportEntry{ID: c.ID, Name: c.Name, MedianRent: c.MedianRent, Scores: scores}
	}
	return entries, nil
}
