package input

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("x\n"), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

func TestLogFileSelectorPicksNewest(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)

	touch(t, dir, "output_log_2025-01-01_10-00-00.txt", base)
	newest := touch(t, dir, "output_log_2025-01-01_11-00-00.txt", base.Add(time.Hour))
	touch(t, dir, "output_log_2025-01-01_09-00-00.txt", base.Add(-time.Hour))
	touch(t, dir, "player_log.txt", base.Add(2*time.Hour))

	s, err := NewLogFileSelector("")
	require.NoError(t, err)
	assert.Equal(t, DefaultLogPattern, s.Pattern())

	got, err := s.SelectLatest(dir)
	require.NoError(t, err)
	assert.Equal(t, newest, got)
}

func TestLogFileSelectorTieBreakIsStable(t *testing.T) {
	dir := t.TempDir()
	mtime := time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)

	touch(t, dir, "output_log_a.txt", mtime)
	greatest := touch(t, dir, "output_log_b.txt", mtime)

	s, err := NewLogFileSelector(DefaultLogPattern)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		got, err := s.SelectLatest(dir)
		require.NoError(t, err)
		assert.Equal(t, greatest, got)
	}
}

func TestLogFileSelectorIgnoresDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "output_log_dir.txt"), 0o755))

	s, err := NewLogFileSelector("")
	require.NoError(t, err)

	_, err = s.SelectLatest(dir)
	assert.ErrorIs(t, err, ErrNoLogFile)
}

func TestLogFileSelectorNoMatch(t *testing.T) {
	s, err := NewLogFileSelector("")
	require.NoError(t, err)

	_, err = s.SelectLatest(t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoLogFile))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestLogFileSelectorMissingDirectory(t *testing.T) {
	s, err := NewLogFileSelector("")
	require.NoError(t, err)

	_, err = s.SelectLatest(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoLogFile))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestLogFileSelectorCustomPattern(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	want := touch(t, dir, "output_log_12-30-45.txt", now)
	touch(t, dir, "output_log_latest.txt", now.Add(time.Minute))

	s, err := NewLogFileSelector("output_log_[0-9][0-9]-[0-9][0-9]-[0-9][0-9].txt")
	require.NoError(t, err)

	got, err := s.SelectLatest(dir)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	candidates, err := s.Candidates(dir)
	require.NoError(t, err)
	assert.Len(t, candidates, 1)
}

func TestNewLogFileSelectorInvalidPattern(t *testing.T) {
	_, err := NewLogFileSelector("output_log_[.txt")
	assert.Error(t, err)
}
