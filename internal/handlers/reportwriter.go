package handlers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"gopkg.in/yaml.v3"

	"github.com/tournauto/tournauto/internal/lifecycle"
	"github.com/tournauto/tournauto/internal/logfields"
)

// ReportWriter persists the shared per-round report at cleanup time, once
// every other handler has appended its entries: the raw tree as YAML and a
// human-readable HTML summary rendered from markdown. Registered last by
// convention.
type ReportWriter struct {
	lifecycle.Base
	dir string
}

// NewReportWriter creates a report writer targeting dir (falls back to the
// configured reports directory when empty).
func NewReportWriter(name, dir string) (*ReportWriter, error) {
	base, err := lifecycle.NewBase(name)
	if err != nil {
		return nil, err
	}
	return &ReportWriter{Base: base, dir: dir}, nil
}

func (w *ReportWriter) OnCleanup(ctx context.Context, rt *lifecycle.Runtime) error {
	dir := w.dir
	if dir == "" {
		dir = rt.Config.Reports.Directory
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create reports directory: %w", err)
	}

	tree := rt.Report.Tree()

	yamlPath := filepath.Join(dir, fmt.Sprintf("round_%d.yaml", rt.Round))
	data, err := yaml.Marshal(tree)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(yamlPath, data, 0o640); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	htmlPath := filepath.Join(dir, fmt.Sprintf("round_%d.html", rt.Round))
	md := renderMarkdown(rt.Round, tree)
	var html strings.Builder
	if err := goldmark.Convert([]byte(md), &html); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	if err := os.WriteFile(htmlPath, []byte(html.String()), 0o640); err != nil {
		return fmt.Errorf("write report summary: %w", err)
	}

	rt.Log.Info("Round report written",
		logfields.Handler(w.Name()), logfields.Round(rt.Round), logfields.Path(yamlPath))
	return nil
}

// renderMarkdown flattens the report tree into a nested bullet list with
// deterministic (sorted) key order.
func renderMarkdown(round int, tree map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Round %d report\n\n", round)
	if len(tree) == 0 {
		b.WriteString("No report entries were recorded for this round.\n")
		return b.String()
	}
	writeTree(&b, tree, 0)
	return b.String()
}

func writeTree(b *strings.Builder, node map[string]any, depth int) {
	keys := make([]string, 0, len(node))
	for k := range node {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	indent := strings.Repeat("  ", depth)
	for _, k := range keys {
		switch v := node[k].(type) {
		case map[string]any:
			fmt.Fprintf(b, "%s- **%s**\n", indent, k)
			writeTree(b, v, depth+1)
		default:
			fmt.Fprintf(b, "%s- **%s**: %v\n", indent, k, v)
		}
	}
}
