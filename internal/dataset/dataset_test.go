// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dataset

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/rentsense/pkg/types"
)

const sampleCSV = `nta2020,nta_name,commute_score,safety_score,quiet_score,amenities_score,parks_score,jobs_score,schools_score,politics_score,median_gross_rent_usd
BK0101,Greenpoint,0.8,0.7,0.4,0.9,0.6,0.5,0.7,0.2,3100
BK0102,Williamsburg,0.9,0.6,0.2,1.0,0.4,0.8,0.5,0.1,
MN0201,SoHo,1.2,-0.1,0.3,,0.5,0.9,0.6,0.3,4500
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadCSV(t *testing.T) {
	cands, err := LoadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, cands, 3)

	gp := cands[0]
	assert.Equal(t, "BK0101", gp.ID)
	assert.Equal(t, "Greenpoint", gp.Name)
	assert.Equal(t, 3100.0, gp.MedianRent)
	assert.Len(t, gp.Scores, types.DimensionCount)
	assert.Equal(t, 0.4, gp.Scores[types.DimNoise])

	assert.Equal(t, 0.0, cands[1].MedianRent, "blank rent is unknown")

	soho := cands[2]
	assert.Equal(t, 1.0, soho.Scores[types.DimCommute], "clamped high")
	assert.Equal(t, 0.0, soho.Scores[types.DimSafety], "clamped low")
	_, ok := soho.Score(types.DimAmenity)
	assert.False(t, ok, "blank cell leaves dimension absent")
}

func TestLoadCSV_FirstColumnIDAndNameFallback(t *testing.T) {
	in := "code,safety_score,parks_score\nQN01,0.5,0.25\n"
	cands, err := LoadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, cands, 1)

	assert.Equal(t, "QN01", cands[0].ID)
	assert.Equal(t, "QN01", cands[0].Name)
	assert.Equal(t, map[types.Dimension]float64{types.DimSafety: 0.5, types.DimGreenSpace: 0.25}, cands[0].Scores)
}

func TestLoadCSV_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", "empty file"},
		{"no score columns", "id,name\nA,B\n", "no score columns"},
		{"bad number", "id,safety_score\nA,high\n", "line 2"},
		{"empty id", "id,safety_score\n,0.5\n", "empty id"},
		{"ragged row", "id,safety_score\nA,0.5,extra\n", "reading row"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCSV(strings.NewReader(tt.in))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestStore_ImportLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	cands, err := LoadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	store, err := NewStore(filepath.Join(dir, "nested", "rentsense.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	sum, err := store.Import(ctx, cands)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Neighborhoods)
	assert.Equal(t, 8+8+7, sum.Scores)
	assert.Equal(t, 0, sum.Replaced)

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, cands, got)

	// Re-import replaces rather than appends.
	sum, err = store.Import(ctx, cands[:1])
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Replaced)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_Export(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(filepath.Join(t.TempDir(), "rentsense.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cands, err := LoadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	_, err = store.Import(ctx, cands)
	require.NoError(t, err)

	var jbuf bytes.Buffer
	require.NoError(t, store.ExportJSON(ctx, &jbuf))
	var jentries []ExportEntry
	require.NoError(t, json.Unmarshal(jbuf.Bytes(), &jentries))
	require.Len(t, jentries, 3)
	assert.Equal(t, "Greenpoint", jentries[0].Name)
	assert.Equal(t, 0.8, jentries[0].Scores["commute_score"])

	var ybuf bytes.Buffer
	require.NoError(t, store.ExportYAML(ctx, &ybuf))
	var yentries []ExportEntry
	require.NoError(t, yaml.Unmarshal(ybuf.Bytes(), &yentries))
	assert.Equal(t, jentries, yentries)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("csv only", func(t *testing.T) {
		dir := t.TempDir()
		csvPath := writeFile(t, dir, "scores.csv", sampleCSV)

		ds, err := Open(ctx, types.DatasetConfig{CSVPath: csvPath, DBPath: filepath.Join(dir, "absent.db")})
		require.NoError(t, err)
		assert.Equal(t, 3, ds.Len())
		assert.Equal(t, csvPath, ds.Source())
	})

	t.Run("catalog preferred", func(t *testing.T) {
		dir := t.TempDir()
		csvPath := writeFile(t, dir, "scores.csv", sampleCSV)
		dbPath := filepath.Join(dir, "rentsense.db")

		store, err := NewStore(dbPath)
		require.NoError(t, err)
		_, err = store.Import(ctx, []types.Candidate{{ID: "X1", Name: "Only", Scores: map[types.Dimension]float64{types.DimSafety: 1}}})
		require.NoError(t, err)
		require.NoError(t, store.Close())

		ds, err := Open(ctx, types.DatasetConfig{CSVPath: csvPath, DBPath: dbPath})
		require.NoError(t, err)
		assert.Equal(t, 1, ds.Len())
		assert.Equal(t, "X1", ds.Candidates()[0].ID)
	})

	t.Run("missing", func(t *testing.T) {
		dir := t.TempDir()
		_, err := Open(ctx, types.DatasetConfig{CSVPath: filepath.Join(dir, "nope.csv")})
		assert.ErrorIs(t, err, ErrMissing)
	})

	t.Run("header only", func(t *testing.T) {
		dir := t.TempDir()
		csvPath := writeFile(t, dir, "scores.csv", "id,safety_score\n")
		_, err := Open(ctx, types.DatasetConfig{CSVPath: csvPath})
		assert.ErrorIs(t, err, ErrMissing)
	})
}

func TestDataset_CandidatesIsACopy(t *testing.T) {
	ds := New([]types.Candidate{{ID: "A"}, {ID: "B"}}, "mem")
	c := ds.Candidates()
	c[0].ID = "changed"
	assert.Equal(t, "A", ds.Candidates()[0].ID)
}
