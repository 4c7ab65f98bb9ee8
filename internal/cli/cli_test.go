package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCommand("test")
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestResolve(t *testing.T) {
	out, err := run(t, "resolve", "Petra")
	require.NoError(t, err)
	assert.Equal(t, "FACULTY_PETRA\n", out)

	_, err = run(t, "resolve", "qqqq")
	assert.Error(t, err)
}

func TestQuery(t *testing.T) {
	out, err := run(t, "query", "Theo", "--hops", "1")
	require.NoError(t, err)
	assert.Contains(t, out, `GraphRAG MEMORY: "Theo"`)

	out, err = run(t, "query", "Theo", "--json")
	require.NoError(t, err)
	var res struct {
		Seed string `json:"seed"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "Subject_Theo", res.Seed)

	_, err = run(t, "query", "Theo", "--mode", "sideways")
	assert.Error(t, err)
}

func TestPath(t *testing.T) {
	out, err := run(t, "path", "Darius", "Theo")
	require.NoError(t, err)
	assert.Equal(t, "Subject_Darius -> Subject_Theo\n", out)
}

func TestCommunities(t *testing.T) {
	out, err := run(t, "communities")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 20)
}

func TestSchema(t *testing.T) {
	out, err := run(t, "schema")
	require.NoError(t, err)
	assert.Contains(t, out, "update_grudge")
}

func TestExportApplyImport(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SNAPSHOT_BACKEND", "file")
	t.Setenv("SNAPSHOT_DIR", filepath.Join(dir, "store"))

	graphFile := filepath.Join(dir, "graph.json")
	out, err := run(t, "export", graphFile)
	require.NoError(t, err)
	assert.Contains(t, out, "exported 20 nodes, 16 edges")

	batch := filepath.Join(dir, "batch.json")
	require.NoError(t, os.WriteFile(batch, []byte(`[
		{"operation":"add_node","node":{"id":"loc_chapel","type":"LOCATION","label":"Chapel"}},
		{"operation":"fly"}
	]`), 0o644))

	out, err = run(t, "apply", batch, "--graph", graphFile)
	require.NoError(t, err)
	assert.Contains(t, out, "applied 1, skipped 1")

	out, err = run(t, "resolve", "Chapel", "--graph", graphFile)
	require.NoError(t, err)
	assert.Equal(t, "loc_chapel\n", out)

	out, err = run(t, "import", graphFile, "--name", "chapel-run")
	require.NoError(t, err)
	assert.Contains(t, out, "imported 21 nodes")
	_, err = os.Stat(filepath.Join(dir, "store", "chapel-run.json"))
	assert.NoError(t, err)

	_, err = run(t, "import", graphFile, "--name", "../escape")
	assert.Error(t, err)
}

func TestApplyNeedsDestination(t *testing.T) {
	batch := filepath.Join(t.TempDir(), "batch.json")
	require.NoError(t, os.WriteFile(batch, []byte(`[]`), 0o644))

	_, err := run(t, "apply", batch)
	assert.Error(t, err)
}
