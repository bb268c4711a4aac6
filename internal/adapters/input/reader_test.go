package input

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendFile(t *testing.T, path, data string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(data)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func collect(t *testing.T, r *ContinuousFileReader) []string {
	t.Helper()
	var lines []string
	require.NoError(t, r.ReadAppended(func(line string) {
		lines = append(lines, line)
	}))
	return lines
}

func TestContinuousFileReaderReadsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output_log_1.txt")
	appendFile(t, path, "first\nsecond\n")

	r := NewContinuousFileReader(path)
	assert.Equal(t, []string{"first", "second"}, collect(t, r))
	assert.Equal(t, int64(len("first\nsecond\n")), r.Cursor().Offset)

	appendFile(t, path, "third\n")
	assert.Equal(t, []string{"third"}, collect(t, r))
}

func TestContinuousFileReaderIdempotentWithoutGrowth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output_log_1.txt")
	appendFile(t, path, "a\nb\n")

	r := NewContinuousFileReader(path)
	require.Len(t, collect(t, r), 2)
	offset := r.Cursor().Offset

	assert.Empty(t, collect(t, r))
	assert.Equal(t, offset, r.Cursor().Offset)
}

func TestContinuousFileReaderKeepsPartialLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output_log_1.txt")
	appendFile(t, path, "done\npart")

	r := NewContinuousFileReader(path)
	assert.Equal(t, []string{"done"}, collect(t, r))
	assert.Equal(t, int64(5), r.Cursor().Offset)

	appendFile(t, path, "ial\n")
	assert.Equal(t, []string{"partial"}, collect(t, r))
}

func TestContinuousFileReaderCountsBytesNotRunes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output_log_1.txt")
	appendFile(t, path, "Zoë joined\r\nこんにちは\n")

	r := NewContinuousFileReader(path)
	assert.Equal(t, []string{"Zoë joined", "こんにちは"}, collect(t, r))
	assert.Equal(t, int64(len("Zoë joined\r\nこんにちは\n")), r.Cursor().Offset)

	appendFile(t, path, "next\n")
	assert.Equal(t, []string{"next"}, collect(t, r))
}

func TestContinuousFileReaderEmptyLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output_log_1.txt")
	appendFile(t, path, "\n\nx\n")

	r := NewContinuousFileReader(path)
	assert.Equal(t, []string{"", "", "x"}, collect(t, r))
}

func TestContinuousFileReaderTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output_log_1.txt")
	appendFile(t, path, "old line one\nold line two\n")

	r := NewContinuousFileReader(path)
	require.Len(t, collect(t, r), 2)

	require.NoError(t, os.WriteFile(path, []byte("new\n"), 0o644))
	assert.Equal(t, []string{"new"}, collect(t, r))
	assert.Equal(t, int64(4), r.Cursor().Offset)
}

func TestContinuousFileReaderMissingFile(t *testing.T) {
	r := NewContinuousFileReader(filepath.Join(t.TempDir(), "gone.txt"))

	called := false
	err := r.ReadAppended(func(string) { called = true })

	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.False(t, called)
	assert.Equal(t, int64(0), r.Cursor().Offset)
}
