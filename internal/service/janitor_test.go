package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"instaweb/internal/adapters/localstorage"
	"instaweb/internal/adapters/memstore"
	"instaweb/internal/core/domain"
	"instaweb/internal/core/ports"
)

// stuckStorage lists fixed entries and refuses to delete any of them.
type stuckStorage struct {
	*localstorage.LocalStorage
	entries []ports.Entry
	removes []string
}

func (s *stuckStorage) ListEntries() ([]ports.Entry, error) { return s.entries, nil }

func (s *stuckStorage) Remove(path string) error {
	s.removes = append(s.removes, path)
	return errors.New("permission denied")
}

func TestJanitor_SweepRemovesExpired(t *testing.T) {
	env := newTestEnv(t, succeed("mp4"))
	now := time.Now()

	oldDir, err := env.storage.InitJob(context.Background(), "old")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(oldDir, "a.mp4"), []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(oldDir, now.Add(-time.Hour), now.Add(-time.Hour)))

	youngDir, err := env.storage.InitJob(context.Background(), "young")
	require.NoError(t, err)

	old := domain.NewJob("old", testURL, "c", domain.FormatVideo, false, now)
	old.Status = domain.StatusReady
	old.WorkDir = oldDir
	old.FilePath = filepath.Join(oldDir, "a.mp4")
	require.NoError(t, env.store.Create(old))

	young := domain.NewJob("young", testURL, "c", domain.FormatVideo, false, now)
	young.WorkDir = youngDir
	require.NoError(t, env.store.Create(young))

	removed := env.orch.Janitor().Sweep(now)

	assert.Equal(t, 1, removed)
	assert.NoDirExists(t, oldDir)
	assert.DirExists(t, youngDir)
	_, ok := env.store.Get("old")
	assert.False(t, ok)
	_, ok = env.store.Get("young")
	assert.True(t, ok)
}

func TestJanitor_FailedRemovalStillForgetsJobs(t *testing.T) {
	now := time.Now()
	root := t.TempDir()
	dir := filepath.Join(root, "locked")
	storage := &stuckStorage{
		LocalStorage: localstorage.NewLocalStorage(root),
		entries:      []ports.Entry{{Path: dir, ModTime: now.Add(-time.Hour)}},
	}
	store := memstore.New()

	job := domain.NewJob("locked", testURL, "c", domain.FormatVideo, false, now)
	job.Status = domain.StatusReady
	job.WorkDir = dir
	job.FilePath = filepath.Join(dir, "a.mp4")
	require.NoError(t, store.Create(job))

	removed := NewJanitor(store, storage, nil, nil).Sweep(now)

	assert.Zero(t, removed)
	assert.Equal(t, []string{dir}, storage.removes)
	_, ok := store.Get("locked")
	assert.False(t, ok)
}

func TestJanitor_MissingRootIsHarmless(t *testing.T) {
	env := newTestEnv(t, succeed("mp4"))
	require.NoError(t, os.RemoveAll(env.root))

	assert.Zero(t, env.orch.Janitor().Sweep(time.Now()))
}

func TestJanitor_RemovesStrayFile(t *testing.T) {
	env := newTestEnv(t, succeed("mp4"))
	now := time.Now()

	stray := filepath.Join(env.root, "stray.mp4")
	require.NoError(t, os.WriteFile(stray, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(stray, now.Add(-2*time.Hour), now.Add(-2*time.Hour)))

	assert.Equal(t, 1, env.orch.Janitor().Sweep(now))
	assert.NoFileExists(t, stray)
}

func TestOwnedBy(t *testing.T) {
	root := filepath.Join("srv", "downloads")
	dir := filepath.Join(root, "abc")
	match := ownedBy(dir)

	assert.True(t, match(domain.Job{WorkDir: dir}))
	assert.True(t, match(domain.Job{FilePath: filepath.Join(dir, "x.mp4")}))
	assert.False(t, match(domain.Job{WorkDir: filepath.Join(root, "abcd")}))
	assert.False(t, match(domain.Job{FilePath: filepath.Join(root, "abcd", "x.mp4")}))
	assert.False(t, match(domain.Job{}))
}
