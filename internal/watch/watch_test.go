package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/svcheck/internal/controller"
)

type fakeTrigger struct {
	mu    sync.Mutex
	calls int
	busy  int // reject this many calls with ErrRunInProgress
}

func (f *fakeTrigger) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.busy > 0 {
		f.busy--
		return controller.ErrRunInProgress
	}
	return nil
}

func (f *fakeTrigger) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testOptions() Options {
	return Options{
		Extensions:  []string{".svelte", ".ts"},
		Debounce:    20 * time.Millisecond,
		MinInterval: time.Millisecond,
	}
}

func TestWatcher_Relevant(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	w, err := New(root, &fakeTrigger{}, testOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.fsw.Close() })

	tests := []struct {
		name string
		path string
		op   fsnotify.Op
		want bool
	}{
		{"svelte write", "src/App.svelte", fsnotify.Write, true},
		{"ts create", "src/lib/api.ts", fsnotify.Create, true},
		{"remove", "src/Old.svelte", fsnotify.Remove, true},
		{"chmod only", "src/App.svelte", fsnotify.Chmod, false},
		{"other extension", "README.md", fsnotify.Write, false},
		{"node_modules", "node_modules/pkg/index.ts", fsnotify.Write, false},
		{"kit output", ".svelte-kit/types/app.ts", fsnotify.Write, false},
		{"raw output dir", ".svcheck/raw/last.log", fsnotify.Write, false},
	}
	for _, tt := range tests {
		ev := fsnotify.Event{Name: filepath.Join(root, tt.path), Op: tt.op}
		assert.Equal(t, tt.want, w.relevant(ev), tt.name)
	}
}

func TestWatcher_Ignored_OutsideRoot(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	w, err := New(root, &fakeTrigger{}, testOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.fsw.Close() })

	assert.True(t, w.ignored(filepath.Join(filepath.Dir(root), "elsewhere.ts")))
}

func TestNew_MissingRoot_ReturnsError(t *testing.T) {
	t.Parallel()

	_, err := New(filepath.Join(t.TempDir(), "missing"), &fakeTrigger{}, testOptions())
	require.Error(t, err)
}

func startWatcher(t *testing.T, root string, trig Trigger) *Watcher {
	t.Helper()
	w, err := New(root, trig, testOptions())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return w
}

func TestWatcher_Run_TriggersOnSourceChange(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	src := filepath.Join(root, "src")
	require.NoError(t, os.MkdirAll(src, 0o755))
	trig := &fakeTrigger{}
	startWatcher(t, root, trig)

	// A burst of saves collapses into one run.
	for range 3 {
		require.NoError(t, os.WriteFile(filepath.Join(src, "App.svelte"), []byte("<script></script>"), 0o600))
	}
	require.Eventually(t, func() bool { return trig.count() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.md"), []byte("x"), 0o600))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, trig.count(), "non-source files do not trigger")
}

func TestWatcher_Run_WatchesNewDirectories(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	trig := &fakeTrigger{}
	startWatcher(t, root, trig)

	nested := filepath.Join(root, "src", "routes")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	// Give the watcher a moment to register the new directory.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(nested, "+page.svelte"), []byte("x"), 0o600))

	require.Eventually(t, func() bool { return trig.count() >= 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestWatcher_BusyRun_ReRunsWhenIdle(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	trig := &fakeTrigger{busy: 1}
	w := startWatcher(t, root, trig)

	require.NoError(t, os.WriteFile(filepath.Join(root, "App.svelte"), []byte("x"), 0o600))
	require.Eventually(t, func() bool { return trig.count() == 1 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, w.pending.Load, time.Second, 5*time.Millisecond)

	w.Idle()
	require.Eventually(t, func() bool { return trig.count() == 2 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return !w.pending.Load() }, time.Second, 5*time.Millisecond)

	w.Idle()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, trig.count(), "Idle without pending changes does nothing")
}
