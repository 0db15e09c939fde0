package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherRescansOnChanges(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry(dir, ".jfr")
	_, err := r.List()
	require.NoError(t, err)

	w := NewWatcher(r)
	w.debounce = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// Give the watcher time to register
	time.Sleep(50 * time.Millisecond)

	path := writeFile(t, dir, "trace-a.jfr", "a")
	writeFile(t, dir, "ignored.txt", "x")
	assert.Eventually(t, func() bool {
		return len(r.Files()) == 1
	}, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(path))
	assert.Eventually(t, func() bool {
		return len(r.Files()) == 0
	}, 3*time.Second, 20*time.Millisecond)
}
