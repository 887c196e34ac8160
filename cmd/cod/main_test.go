package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-sod/cod/internal/collector"
	"github.com/go-sod/cod/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pairLines = `{"id": "a", "features": {"x": 0, "y": 0}}
{"id": "b", "features": {"x": 0, "y": 2}}

{"id": "c", "features": {"x": 10, "y": 0}}
`

func TestImportAndLoad(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db, err := database.Open(ctx, filepath.Join(t.TempDir(), "cod.db"))
	require.NoError(t, err)
	defer db.Close(ctx)

	n, err := importItems(ctx, db, "pair", strings.NewReader(pairLines))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	ds, err := loadDataset(db, "pair")
	require.NoError(t, err)
	require.Equal(t, 3, ds.Len())
	assert.Equal(t, "a", ds.At(0).ID())
	assert.Equal(t, "b", ds.At(1).ID())
	assert.Equal(t, "c", ds.At(2).ID())

	_, err = loadDataset(db, "missing")
	assert.ErrorIs(t, err, collector.ErrUnknownDataset)

	_, err = importItems(ctx, db, "broken", strings.NewReader("{\"id\": "))
	assert.Error(t, err)
}

func TestRootCmd_Cluster(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "cod.db")
	input := filepath.Join(dir, "pair.jsonl")
	require.NoError(t, os.WriteFile(input, []byte(pairLines), 0o600))

	run := func(args ...string) string {
		t.Helper()
		var out bytes.Buffer
		cmd := newRootCmd()
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(append(args, "--db", dbPath))
		require.NoError(t, cmd.ExecuteContext(context.Background()), out.String())
		return out.String()
	}

	assert.Equal(t, "imported 3 vectors into pair\n", run("import", "pair", input))
	assert.Equal(t, "pair\t3\n", run("datasets"))

	out := run("cluster", "pair", "--k", "2", "--seeds", "0,2", "--strategy", "medoid", "--normalize=false")
	assert.Equal(t, "MEDOID clustering:\n\tk: 2\n\tsse: 4\n"+
		"\ncluster 1: 2 members, sse: 4\n\tcentroid: a\n\ta\n\tb\n"+
		"\ncluster 2: 1 members, sse: 0\n\tcentroid: c\n\tc\n", out)

	outFile := filepath.Join(dir, "bestk.txt")
	run("bestk", "pair", "--min-k", "1", "--max-k", "3", "--normalize=false", "--out", outFile)
	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "best k: ")
}
