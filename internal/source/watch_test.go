package source

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRelevant(t *testing.T) {
	set := ExtSet([]string{"md"})
	tests := []struct {
		name string
		ev   fsnotify.Event
		want bool
	}{
		{"create", fsnotify.Event{Name: "/d/a.md", Op: fsnotify.Create}, true},
		{"write", fsnotify.Event{Name: "/d/a.md", Op: fsnotify.Write}, true},
		{"remove", fsnotify.Event{Name: "/d/a.md", Op: fsnotify.Remove}, true},
		{"rename", fsnotify.Event{Name: "/d/a.md", Op: fsnotify.Rename}, true},
		{"write and chmod", fsnotify.Event{Name: "/d/a.md", Op: fsnotify.Write | fsnotify.Chmod}, true},
		{"chmod only", fsnotify.Event{Name: "/d/a.md", Op: fsnotify.Chmod}, false},
		{"other extension", fsnotify.Event{Name: "/d/a.txt", Op: fsnotify.Write}, false},
		{"hidden", fsnotify.Event{Name: "/d/.a.md", Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, relevant(tt.ev, set))
		})
	}
}

func TestWatch_DebouncesChanges(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, dir, []string{"md"}, 50*time.Millisecond, zaptest.NewLogger(t), func(context.Context) error {
			calls.Add(1)
			return nil
		})
	}()

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)
	for i := range 3 {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte{byte('a' + i)}, 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0o644))

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	cancel()
	require.NoError(t, <-done)
}

func TestWatch_MissingDir(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "absent"), nil, 0, nil, func(context.Context) error { return nil })
	require.ErrorIs(t, err, ErrRead)
}
