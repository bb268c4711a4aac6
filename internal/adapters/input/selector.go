package input

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog/log"
)

const DefaultLogPattern = "output_log_*.txt"

// ErrNoLogFile means no file in the directory matched the pattern. It wraps
// fs.ErrNotExist so callers can treat it like a missing file.
var ErrNoLogFile = fmt.Errorf("no matching log file: %w", fs.ErrNotExist)

// LogFileSelector picks the most recently modified log file in a directory.
type LogFileSelector struct {
	pattern string
}

// NewLogFileSelector returns a selector for file base names matching the
// doublestar pattern. An empty pattern selects DefaultLogPattern.
func NewLogFileSelector(pattern string) (*LogFileSelector, error) {
	if pattern == "" {
		pattern = DefaultLogPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid log file pattern %q", pattern)
	}
	return &LogFileSelector{pattern: pattern}, nil
}

func (s *LogFileSelector) Pattern() string {
	return s.pattern
}

// Candidate is a matching log file and its modification time.
type Candidate struct {
	Path    string
	ModTime time.Time
	Size    int64
}

// Candidates lists the regular files in dir whose name matches the pattern.
// Entries that vanish or cannot be stat'ed while listing are skipped.
func (s *LogFileSelector) Candidates(dir string) ([]Candidate, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, errors.Join(ErrNoLogFile, err))
	}

	var out []Candidate
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		ok, err := doublestar.Match(s.pattern, entry.Name())
		if err != nil || !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			log.Debug().Err(err).Str("file", entry.Name()).Msg("Skipping log file candidate")
			continue
		}
		out = append(out, Candidate{
			Path:    filepath.Join(dir, entry.Name()),
			ModTime: info.ModTime(),
			Size:    info.Size(),
		})
	}
	return out, nil
}

// SelectLatest returns the candidate with the newest modification time.
// Ties go to the lexicographically greatest path so repeated calls agree.
func (s *LogFileSelector) SelectLatest(dir string) (string, error) {
	candidates, err := s.Candidates(dir)
	if err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("%s in %s: %w", s.pattern, dir, ErrNoLogFile)
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.ModTime.After(best.ModTime) || (c.ModTime.Equal(best.ModTime) && c.Path > best.Path) {
			best = c
		}
	}
	return best.Path, nil
}
