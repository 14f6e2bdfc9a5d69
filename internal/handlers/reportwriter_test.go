package handlers

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/tournauto/tournauto/internal/config"
	"github.com/tournauto/tournauto/internal/lifecycle"
)

func TestReportWriterWritesYAMLAndHTML(t *testing.T) {
	dir := t.TempDir()
	w, err := NewReportWriter("report-writer", dir)
	require.NoError(t, err)

	rt := &lifecycle.Runtime{
		Config: config.Default(),
		Log:    slog.Default(),
		Report: lifecycle.NewReport(),
		Round:  150,
	}
	rt.Report.Set("sub-42", "submissions", "main", "id")
	rt.Report.Set(83.3, "submissions", "main", "consistency")

	require.NoError(t, w.OnCleanup(context.Background(), rt))

	yamlData, err := os.ReadFile(filepath.Join(dir, "round_150.yaml"))
	require.NoError(t, err)
	var tree map[string]any
	require.NoError(t, yaml.Unmarshal(yamlData, &tree))
	submissions, ok := tree["submissions"].(map[string]any)
	require.True(t, ok)
	main, ok := submissions["main"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "sub-42", main["id"])

	htmlData, err := os.ReadFile(filepath.Join(dir, "round_150.html"))
	require.NoError(t, err)
	html := string(htmlData)
	assert.Contains(t, html, "Round 150 report")
	assert.Contains(t, html, "sub-42")
}

func TestReportWriterEmptyReport(t *testing.T) {
	dir := t.TempDir()
	w, err := NewReportWriter("report-writer", dir)
	require.NoError(t, err)

	rt := &lifecycle.Runtime{
		Config: config.Default(),
		Log:    slog.Default(),
		Report: lifecycle.NewReport(),
		Round:  151,
	}
	require.NoError(t, w.OnCleanup(context.Background(), rt))

	htmlData, err := os.ReadFile(filepath.Join(dir, "round_151.html"))
	require.NoError(t, err)
	assert.Contains(t, string(htmlData), "No report entries were recorded")
}

func TestReportWriterFallsBackToConfiguredDirectory(t *testing.T) {
	w, err := NewReportWriter("report-writer", "")
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Reports.Directory = filepath.Join(t.TempDir(), "reports")
	rt := &lifecycle.Runtime{
		Config: cfg,
		Log:    slog.Default(),
		Report: lifecycle.NewReport(),
		Round:  152,
	}
	require.NoError(t, w.OnCleanup(context.Background(), rt))

	_, err = os.Stat(filepath.Join(cfg.Reports.Directory, "round_152.yaml"))
	assert.NoError(t, err)
}

func TestRenderMarkdownSortsKeys(t *testing.T) {
	md := renderMarkdown(1, map[string]any{
		"zeta":  "last",
		"alpha": map[string]any{"b": 2, "a": 1},
	})

	alphaIdx := strings.Index(md, "alpha")
	zetaIdx := strings.Index(md, "zeta")
	require.GreaterOrEqual(t, alphaIdx, 0)
	require.GreaterOrEqual(t, zetaIdx, 0)
	assert.Less(t, alphaIdx, zetaIdx)
}
