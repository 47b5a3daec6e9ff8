package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcher_CoalescesWriteThenDelete(t *testing.T) {
	dir := t.TempDir()
	w, err := New([]string{dir}, 30*time.Millisecond, 2)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	select {
	case ev := <-w.Events():
		require.Equal(t, EventReindex, ev.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for create event")
	}

	require.NoError(t, os.Remove(path))

	select {
	case ev := <-w.Events():
		require.Equal(t, EventRemove, ev.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for remove event")
	}
}

func TestWatcher_Close(t *testing.T) {
	dir := t.TempDir()
	w, err := New([]string{dir}, 10*time.Millisecond, 1)
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func TestDispatch_StopsOnContextCancel(t *testing.T) {
	events := make(chan Event)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		Dispatch(ctx, events, 2, func(context.Context, Event) {})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch did not return after context cancellation")
	}
}
