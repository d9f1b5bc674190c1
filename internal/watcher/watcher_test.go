package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"foreachfix/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncerBatchesEvents(t *testing.T) {
	d := newDebouncer(20*time.Millisecond, slog.Default())

	var mu sync.Mutex
	var batches [][]string
	handler := func(files []string) error {
		mu.Lock()
		defer mu.Unlock()
		batches = append(batches, files)
		return nil
	}

	d.add(FileChangeEvent{Path: "b.js"}, handler)
	d.add(FileChangeEvent{Path: "a.js"}, handler)
	d.add(FileChangeEvent{Path: "b.js"}, handler)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(batches) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, []string{"a.js", "b.js"}, batches[0])
	mu.Unlock()
}

func TestDebouncerStop(t *testing.T) {
	d := newDebouncer(10*time.Millisecond, slog.Default())
	called := make(chan struct{}, 1)
	handler := func([]string) error {
		called <- struct{}{}
		return nil
	}

	d.add(FileChangeEvent{Path: "a.js"}, handler)
	d.stop()
	d.add(FileChangeEvent{Path: "b.js"}, handler)

	select {
	case <-called:
		t.Fatal("handler called after stop")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFileWatcherFilters(t *testing.T) {
	fw := &FileWatcher{config: config.DefaultConfig()}

	assert.True(t, fw.isSourceFile("src/app.ts"))
	assert.False(t, fw.isSourceFile("src/app.go"))
	assert.False(t, fw.isSourceFile("node_modules/x/index.js"))

	assert.True(t, fw.shouldSkipDir("web/node_modules"))
	assert.True(t, fw.shouldSkipDir("coverage"))
	assert.False(t, fw.shouldSkipDir("src"))

	assert.True(t, fw.shouldSkipFile("src/.app.js"))
	assert.True(t, fw.shouldSkipFile("src/app.js~"))
	assert.False(t, fw.shouldSkipFile("src/app.js"))
}

func TestFileWatcherReportsChanges(t *testing.T) {
	dir := t.TempDir()
	fw, err := NewFileWatcherWithDelay(config.DefaultConfig(), 20*time.Millisecond)
	require.NoError(t, err)
	defer fw.Close()

	changed := make(chan []string, 4)
	require.NoError(t, fw.Watch([]string{dir}, func(files []string) error {
		changed <- files
		return nil
	}))
	assert.Contains(t, fw.GetWatchedPaths(), dir)

	path := filepath.Join(dir, "app.js")
	require.NoError(t, os.WriteFile(path, []byte("items.forEach(f);\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	select {
	case files := <-changed:
		assert.Equal(t, []string{path}, files)
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported")
	}
}
