package cmd

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"foreachfix/internal/config"
	"foreachfix/internal/transformer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Output.Colors = false
	cfg.Output.Progress = false
	return cfg
}

func copySample(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "testdata", name))
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func readSample(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "testdata", name))
	require.NoError(t, err)
	return string(data)
}

func TestRunOncePrintsSource(t *testing.T) {
	for _, tt := range []struct{ input, expected string }{
		{"sample.js", "sample.expected.js"},
		{"sample.ts", "sample.expected.ts"},
	} {
		t.Run(tt.input, func(t *testing.T) {
			cfg := testConfig()
			engine := transformer.NewTransformerWithConfig(cfg).WithLogger(discardLogger())
			path := filepath.Join("..", "testdata", tt.input)

			var out bytes.Buffer
			require.NoError(t, runOnce(context.Background(), engine, cfg, []string{path}, &out))
			assert.Equal(t, readSample(t, tt.expected), out.String())
		})
	}
}

func TestRunOnceWritesFiles(t *testing.T) {
	dir := t.TempDir()
	js := copySample(t, dir, "sample.js")
	ts := copySample(t, dir, "sample.ts")

	cfg := testConfig()
	cfg.Output.Write = true
	engine := transformer.NewTransformerWithConfig(cfg).WithLogger(discardLogger())

	var out bytes.Buffer
	require.NoError(t, runOnce(context.Background(), engine, cfg, []string{js, ts}, &out))
	assert.Empty(t, out.String())

	got, err := os.ReadFile(js)
	require.NoError(t, err)
	assert.Equal(t, readSample(t, "sample.expected.js"), string(got))

	info, err := os.Stat(js)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err = os.ReadFile(ts)
	require.NoError(t, err)
	assert.Equal(t, readSample(t, "sample.expected.ts"), string(got))
}

func TestRunOnceMultipleFilesHaveHeaders(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.js")
	b := filepath.Join(dir, "b.js")
	require.NoError(t, os.WriteFile(a, []byte("a.forEach(f);\n"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("let b;\n"), 0o644))

	cfg := testConfig()
	engine := transformer.NewTransformerWithConfig(cfg).WithLogger(discardLogger())

	var out bytes.Buffer
	require.NoError(t, runOnce(context.Background(), engine, cfg, []string{a, b}, &out))
	want := "==> " + a + " <==\nfor (let _el of a) {\n    f(_el);\n}\n==> " + b + " <==\nlet b;\n"
	assert.Equal(t, want, out.String())
}

func TestRunOnceReport(t *testing.T) {
	cfg := testConfig()
	cfg.Output.Format = "console"
	engine := transformer.NewTransformerWithConfig(cfg).WithLogger(discardLogger())

	var out bytes.Buffer
	path := filepath.Join("..", "testdata", "sample.js")
	require.NoError(t, runOnce(context.Background(), engine, cfg, []string{path}, &out))

	report := out.String()
	assert.Contains(t, report, "Calls rewritten: 3")
	assert.Contains(t, report, "Calls skipped: 2")
	assert.Contains(t, report, "async callback: 1")
	assert.Contains(t, report, "call result is used: 1")
}

func TestRunOnceReportToFile(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()
	cfg.Output.Format = "json"
	cfg.Output.OutputFile = filepath.Join(dir, "reports", "result.json")
	engine := transformer.NewTransformerWithConfig(cfg).WithLogger(discardLogger())

	var out bytes.Buffer
	path := filepath.Join("..", "testdata", "sample.ts")
	require.NoError(t, runOnce(context.Background(), engine, cfg, []string{path}, &out))
	assert.Empty(t, out.String())

	data, err := os.ReadFile(cfg.Output.OutputFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"total_rewritten": 3`)
}

func TestRunOnceParseErrorWritesNothing(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.js")
	bad := filepath.Join(dir, "bad.js")
	require.NoError(t, os.WriteFile(good, []byte("items.forEach(f);\n"), 0o644))
	require.NoError(t, os.WriteFile(bad, []byte("items.forEach(x => {\n"), 0o644))

	cfg := testConfig()
	cfg.Output.Write = true
	engine := transformer.NewTransformerWithConfig(cfg).WithLogger(discardLogger())

	err := runOnce(context.Background(), engine, cfg, []string{good, bad}, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "syntax error")

	got, err := os.ReadFile(good)
	require.NoError(t, err)
	assert.Equal(t, "items.forEach(f);\n", string(got))
}

func TestCollectFiles(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"app.js":                  "a.forEach(f);\n",
		"lib/util.ts":             "b.forEach(g);\n",
		"lib/view.tsx":            "c.forEach(h);\n",
		"lib/types.d.ts":          "declare const d: number[];\n",
		"lib/readme.md":           "# docs\n",
		"vendor.min.js":           "e.forEach(i);\n",
		"node_modules/pkg/x.js":   "f.forEach(j);\n",
		"dist/bundle.js":          "g.forEach(k);\n",
		"big.js":                  strings.Repeat("x;\n", 1024),
		"explicit/notes.txt":      "items.forEach(f);\n",
		"explicit/nested/deep.js": "h.forEach(l);\n",
	}
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	cfg := testConfig()
	cfg.Files.MaxFileSize = 1

	got, err := collectFiles(cfg, []string{dir, filepath.Join(dir, "explicit", "notes.txt"), filepath.Join(dir, "app.js")}, discardLogger())
	require.NoError(t, err)

	var rel []string
	for _, path := range got {
		r, err := filepath.Rel(dir, path)
		require.NoError(t, err)
		rel = append(rel, filepath.ToSlash(r))
	}
	assert.Equal(t, []string{
		"app.js",
		"explicit/nested/deep.js",
		"lib/util.ts",
		"lib/view.tsx",
		"explicit/notes.txt",
	}, rel)
}

func TestCollectFilesMissingPath(t *testing.T) {
	_, err := collectFiles(testConfig(), []string{filepath.Join(t.TempDir(), "missing")}, discardLogger())
	assert.Error(t, err)
}
