package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu    sync.Mutex
	paths []string
	err   error
}

func (r *recorder) handle(_ context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, filepath.Base(path))
	return r.err
}

func (r *recorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func TestWatcher_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w, err := New(dir, rec.handle, WithDebounce(100*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	path := filepath.Join(dir, "ada.json")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte(`{"sections":[]}`), 0644))
	}

	require.Eventually(t, func() bool { return len(rec.seen()) == 1 }, 3*time.Second, 20*time.Millisecond)
	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, []string{"ada.json"}, rec.seen())
	assert.Equal(t, 1, w.Stats().Handled)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	keep := filepath.Join(dir, "keep.json")
	w, err := New(dir, rec.handle, WithDebounce(50*time.Millisecond), WithFiles(keep))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".keep.json.123.tmp"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0644))
	require.NoError(t, os.WriteFile(keep, []byte("{}"), 0644))

	require.Eventually(t, func() bool { return len(rec.seen()) == 1 }, 3*time.Second, 20*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, []string{"keep.json"}, rec.seen())
}

func TestWatcher_CountsHandlerErrors(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{err: errors.New("boom")}
	w, err := New(dir, rec.handle, WithDebounce(50*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte("{}"), 0644))
	require.Eventually(t, func() bool { return w.Stats().Errors == 1 }, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, 0, w.Stats().Handled)
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w, err := New(t.TempDir(), func(context.Context, string) error { return nil })
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Start(context.Background()))
	w.Stop()
	w.Stop()
}

func TestWatcher_CloseWithoutStart(t *testing.T) {
	w, err := New(t.TempDir(), func(context.Context, string) error { return nil })
	require.NoError(t, err)
	assert.NoError(t, w.Close())
}

func TestWatcher_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w, err := New(t.TempDir(), func(context.Context, string) error { return nil })
	require.NoError(t, err)
	require.NoError(t, w.Start(ctx))
	cancel()
	w.Stop()
}
