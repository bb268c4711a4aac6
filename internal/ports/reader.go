package ports

import (
	"context"

	"github.com/xoelrdgz/roomwatch/internal/domain"
)

// LogReader streams parsed lines from a single file until stopped.
type LogReader interface {
	Start(ctx context.Context) (<-chan *domain.LogLine, <-chan error)
	Stop() error
}

type LogParser interface {
	Parse(line string) (*domain.LogLine, error)
	Format() string
}

type LogFileSelector interface {
	SelectLatest(dir string) (string, error)
}

// AppendedLineReader drains lines appended to one file since the last call.
type AppendedLineReader interface {
	ReadAppended(fn func(line string)) error
	Cursor() domain.ReaderCursor
}

// LineConsumer receives every parsed line together with the backfill flag of
// the batch it was read in.
type LineConsumer interface {
	ProcessLine(line *domain.LogLine, isFirstRead bool)
}
