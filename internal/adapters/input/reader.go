package input

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/xoelrdgz/roomwatch/internal/domain"
)

const readBufferSize = 64 * 1024

// ContinuousFileReader remembers how far into one file it has read and, on
// every call, hands out only the complete lines appended since then.
// It is not safe for concurrent use; the watch loop owns it.
type ContinuousFileReader struct {
	cursor domain.ReaderCursor
}

func NewContinuousFileReader(path string) *ContinuousFileReader {
	return &ContinuousFileReader{
		cursor: domain.ReaderCursor{Path: path},
	}
}

func (r *ContinuousFileReader) Cursor() domain.ReaderCursor {
	return r.cursor
}

func (r *ContinuousFileReader) Path() string {
	return r.cursor.Path
}

// ReadAppended calls fn for every newline-terminated line past the cursor,
// with the "\n" or "\r\n" terminator removed, and advances the cursor by the
// bytes each line occupied. A trailing line without its newline is left for a
// later call. Open and seek failures are returned wrapped, so a file that
// vanished satisfies errors.Is(err, fs.ErrNotExist).
func (r *ContinuousFileReader) ReadAppended(fn func(line string)) error {
	f, err := os.Open(r.cursor.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", r.cursor.Path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", r.cursor.Path, err)
	}
	if info.Size() < r.cursor.Offset {
		log.Warn().
			Str("file", r.cursor.Path).
			Int64("offset", r.cursor.Offset).
			Int64("size", info.Size()).
			Msg("Log file shrank below read cursor, reading from start")
		r.cursor.Offset = 0
	}
	if info.Size() == r.cursor.Offset {
		return nil
	}

	if _, err := f.Seek(r.cursor.Offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek %s to %d: %w", r.cursor.Path, r.cursor.Offset, err)
	}

	br := bufio.NewReaderSize(f, readBufferSize)
	for {
		raw, err := br.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				// raw holds a partial line, if any; it is re-read next time.
				return nil
			}
			return fmt.Errorf("read %s at %d: %w", r.cursor.Path, r.cursor.Offset, err)
		}

		r.cursor.Offset += int64(len(raw))
		fn(trimNewline(raw))
	}
}

func trimNewline(s string) string {
	s = s[:len(s)-1]
	if n := len(s); n > 0 && s[n-1] == '\r' {
		s = s[:n-1]
	}
	return s
}
