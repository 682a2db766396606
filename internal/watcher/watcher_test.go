package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_Run_DeliversFilteredBatch(t *testing.T) {
	// Given: a watcher over a temp dir accepting only .txt files
	root := t.TempDir()
	w, err := New(Options{
		Root:     root,
		Debounce: 100 * time.Millisecond,
		Filter:   func(p string) bool { return strings.HasSuffix(p, ".txt") },
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	batches := make(chan []FileEvent, 4)
	runErr := make(chan error, 1)
	go func() {
		runErr <- w.Run(ctx, func(_ context.Context, b []FileEvent) { batches <- b })
	}()
	time.Sleep(200 * time.Millisecond)

	// When: a relevant and an irrelevant file are written
	require.NoError(t, os.WriteFile(filepath.Join(root, "logo.png"), []byte{1}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notas.txt"), []byte("hola"), 0o644))

	// Then: only the relevant file is reported
	var got []FileEvent
	select {
	case got = <-batches:
	case <-time.After(5 * time.Second):
		t.Fatal("no batch delivered")
	}
	require.NotEmpty(t, got)
	for _, ev := range got {
		assert.Equal(t, "notas.txt", ev.Path)
	}

	cancel()
	select {
	case err := <-runErr:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_Run_MissingRoot(t *testing.T) {
	w, err := New(Options{Root: filepath.Join(t.TempDir(), "missing")})
	require.NoError(t, err)

	err = w.Run(context.Background(), func(context.Context, []FileEvent) {})

	assert.Error(t, err)
}

func TestHidden(t *testing.T) {
	assert.True(t, hidden(".git"))
	assert.True(t, hidden("~$informe.docx"))
	assert.False(t, hidden("informe.docx"))
}
