package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot(t *testing.T) {
	first := &RuleSet{RemoteServer: "http://one"}
	second := &RuleSet{RemoteServer: "http://two"}

	s := NewSnapshot(first)
	assert.Same(t, first, s.RuleSet())

	s.Store(second)
	assert.Same(t, second, s.RuleSet())
}

func TestNewWatcher_RequiresSnapshot(t *testing.T) {
	_, err := NewWatcher(WatcherOptions{Path: "config.json"})
	assert.Error(t, err)
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	path := writeConfig(t, "config.json", `{"remote_server": "http://one"}`)
	rs, err := LoadFromFile(path)
	require.NoError(t, err)

	snap := NewSnapshot(rs)
	reloads := make(chan error, 4)
	w, err := NewWatcher(WatcherOptions{
		Path:     path,
		Snapshot: snap,
		Debounce: 20 * time.Millisecond,
		OnReload: func(err error) { reloads <- err },
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte(`{"remote_server": "http://two"}`), 0644))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))

	select {
	case err := <-reloads:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
	assert.Equal(t, "http://two", snap.RuleSet().RemoteServer)

	cancel()
	assert.NoError(t, <-done)
}

func TestWatcher_KeepsPreviousRulesOnError(t *testing.T) {
	path := writeConfig(t, "config.json", `{"remote_server": "http://one"}`)
	rs, err := LoadFromFile(path)
	require.NoError(t, err)

	snap := NewSnapshot(rs)
	reloads := make(chan error, 4)
	w, err := NewWatcher(WatcherOptions{
		Path:     path,
		Snapshot: snap,
		Debounce: 20 * time.Millisecond,
		OnReload: func(err error) { reloads <- err },
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte(`{"remote_server": `), 0644))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))

	select {
	case err := <-reloads:
		assert.ErrorIs(t, err, ErrInvalidJSON)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
	assert.Same(t, rs, snap.RuleSet())
}
