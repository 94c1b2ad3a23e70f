package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

type changeRecorder struct {
	mu    sync.Mutex
	teams []string
}

func (r *changeRecorder) record(team string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.teams = append(r.teams, team)
}

func (r *changeRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.teams...)
}

func (r *changeRecorder) waitFor(t *testing.T, team string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		for _, got := range r.snapshot() {
			if got == team {
				return
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("no change reported for %s within %v; saw %v", team, timeout, r.snapshot())
}

func startWatcher(t *testing.T, root string, rec *changeRecorder) *Watcher {
	t.Helper()
	w, err := New(root, rec.record, zap.NewNop())
	require.NoError(t, err)
	w.SetDebounce(50 * time.Millisecond)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(w.Stop)
	return w
}

func TestWatcherReportsChangedTeam(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	teamDir := filepath.Join(root, "alpha")
	require.NoError(t, os.MkdirAll(teamDir, 0755))

	rec := &changeRecorder{}
	w, err := New(root, rec.record, zap.NewNop())
	require.NoError(t, err)
	w.SetDebounce(50 * time.Millisecond)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(teamDir, "bot.go"), []byte("package bot"), 0644))
	rec.waitFor(t, "alpha", 3*time.Second)
}

func TestWatcherDebouncesBursts(t *testing.T) {
	root := t.TempDir()
	teamDir := filepath.Join(root, "bravo")
	require.NoError(t, os.MkdirAll(teamDir, 0755))

	rec := &changeRecorder{}
	startWatcher(t, root, rec)

	// A burst of writes inside one settle window reports once.
	path := filepath.Join(teamDir, "bot.go")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("package bot\n"), 0644))
		time.Sleep(5 * time.Millisecond)
	}
	rec.waitFor(t, "bravo", 3*time.Second)
	time.Sleep(200 * time.Millisecond)

	count := 0
	for _, team := range rec.snapshot() {
		if team == "bravo" {
			count++
		}
	}
	assert.Equal(t, 1, count, "burst must settle to a single notification")
}

func TestWatcherPicksUpNewTeamFolder(t *testing.T) {
	root := t.TempDir()
	rec := &changeRecorder{}
	startWatcher(t, root, rec)

	teamDir := filepath.Join(root, "newcomer")
	require.NoError(t, os.MkdirAll(teamDir, 0755))
	// Give the watcher a beat to add the new directory.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(teamDir, "bot.go"), []byte("package bot"), 0644))

	rec.waitFor(t, "newcomer", 3*time.Second)
}

func TestWatcherIgnoresNonGoFiles(t *testing.T) {
	root := t.TempDir()
	teamDir := filepath.Join(root, "noise")
	require.NoError(t, os.MkdirAll(teamDir, 0755))

	rec := &changeRecorder{}
	startWatcher(t, root, rec)

	require.NoError(t, os.WriteFile(filepath.Join(teamDir, "notes.txt"), []byte("hi"), 0644))
	time.Sleep(300 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
}

func TestStopIsIdempotent(t *testing.T) {
	w, err := New(t.TempDir(), nil, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	assert.True(t, w.Running())
	w.Stop()
	assert.False(t, w.Running())
	w.Stop()
}
