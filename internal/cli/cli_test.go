package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darved2305/VeriTextAI/internal/analysis"
	"github.com/darved2305/VeriTextAI/internal/db"
	"github.com/darved2305/VeriTextAI/internal/model"
	"github.com/darved2305/VeriTextAI/internal/workspace"
)

const revolution = "The industrial revolution transformed the economic structure of European societies within a few decades."

func writeConfig(t *testing.T, backend string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	cfg := "corpus:\n  backend: " + backend + "\n" +
		"storage:\n  dataDir: " + dataDir + "\n  persist: true\n" +
		"logging:\n  level: warn\n  outputPath: " + filepath.Join(dir, "veritext.log") + "\n"
	path := filepath.Join(dir, "veritext.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path, dataDir
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append(args, "--env-file", ""))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCorpusAddThenAnalyze(t *testing.T) {
	cfgPath, dataDir := writeConfig(t, "sqlite")
	doc := filepath.Join(t.TempDir(), "reference.txt")
	require.NoError(t, os.WriteFile(doc, []byte(revolution), 0o644))

	out, err := execute(t, "", "corpus", "add", doc, "--id", "ref", "--type", "academic", "-c", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Added ref (reference)")

	out, err = execute(t, "", "corpus", "stats", "-c", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Sources:      1")

	out, err = execute(t, "", "analyze", doc, "--json", "--save", "-c", cfgPath)
	require.NoError(t, err)
	var res model.AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.MatchedSources, 1)
	assert.Equal(t, "ref", res.MatchedSources[0].SourceID)
	assert.Equal(t, model.SourceAcademic, res.MatchedSources[0].Type)

	saved, err := workspace.LoadReport(dataDir, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, res.OverallScore, saved.OverallScore)

	checks, err := db.CountRows(workspace.DBPath(dataDir), "plagiarism_check")
	require.NoError(t, err)
	assert.Equal(t, 1, checks)
}

func TestAnalyzeStdinSummary(t *testing.T) {
	cfgPath, _ := writeConfig(t, "memory")
	out, err := execute(t, revolution, "analyze", "-c", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Overall:")
	assert.Contains(t, out, "Words:        14 in 1 sentences")
	assert.NotContains(t, out, "Matched sources")
}

func TestAnalyzeErrors(t *testing.T) {
	cfgPath, _ := writeConfig(t, "memory")

	_, err := execute(t, "   ", "analyze", "-c", cfgPath)
	assert.True(t, errors.Is(err, analysis.ErrEmptyInput), "got %v", err)

	_, err = execute(t, "", "analyze", "--text", "hello", "--type", "grammar", "-c", cfgPath)
	assert.Error(t, err)
}

func TestCorpusAddValidatesFlags(t *testing.T) {
	cfgPath, _ := writeConfig(t, "memory")
	_, err := execute(t, "", "corpus", "add", "a.txt", "b.txt", "--id", "x", "-c", cfgPath)
	assert.Error(t, err)

	_, err = execute(t, "", "corpus", "add", "a.txt", "--type", "blog", "-c", cfgPath)
	assert.Error(t, err)
}
