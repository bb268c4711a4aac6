package app

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/xoelrdgz/roomwatch/internal/domain"
	"github.com/xoelrdgz/roomwatch/internal/ports"
)

// ErrNoReaderFactory is returned by NewLogProcessor when no reader factory
// was supplied.
var ErrNoReaderFactory = errors.New("log processor needs a reader factory")

type ProcessorState int

const (
	// StateUnstarted: no log file has been selected yet.
	StateUnstarted ProcessorState = iota
	// StateTracking: one file is being read.
	StateTracking
)

func (s ProcessorState) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateTracking:
		return "tracking"
	default:
		return "unknown"
	}
}

// ReaderFactory opens a fresh cursor at offset 0 for path.
type ReaderFactory func(path string) ports.AppendedLineReader

// LogProcessor follows the newest log file in a directory across polling
// cycles. The first batch it reads is historical backfill and is forwarded
// with isFirstRead set; batches read after a rotation are not.
//
// Thread Safety: not safe for concurrent use. ProcessLog is called from a
// single polling loop.
type LogProcessor struct {
	dir       string
	selector  ports.LogFileSelector
	newReader ReaderFactory
	parser    ports.LogParser
	consumer  ports.LineConsumer
	metrics   *domain.PipelineMetrics

	observer  ports.ProcessingObserver
	collector ports.MetricsCollector

	state  ProcessorState
	reader ports.AppendedLineReader
	// backfill stays set until the first batch has been drained without
	// error, so a file that vanished on the very first cycle does not turn
	// its history into live notifications on the next one.
	backfill bool
}

func NewLogProcessor(
	dir string,
	selector ports.LogFileSelector,
	newReader ReaderFactory,
	parser ports.LogParser,
	consumer ports.LineConsumer,
	metrics *domain.PipelineMetrics,
) (*LogProcessor, error) {
	if newReader == nil {
		return nil, ErrNoReaderFactory
	}
	if metrics == nil {
		metrics = domain.NewPipelineMetrics()
	}

	return &LogProcessor{
		dir:       dir,
		selector:  selector,
		newReader: newReader,
		parser:    parser,
		consumer:  consumer,
		metrics:   metrics,
		state:     StateUnstarted,
	}, nil
}

// SetObserver attaches a per-line result observer (Prometheus in practice).
func (p *LogProcessor) SetObserver(observer ports.ProcessingObserver) {
	p.observer = observer
}

func (p *LogProcessor) SetCollector(collector ports.MetricsCollector) {
	p.collector = collector
}

func (p *LogProcessor) State() ProcessorState {
	return p.state
}

// CurrentPath returns the tracked file, or "" before the first selection.
func (p *LogProcessor) CurrentPath() string {
	if p.reader == nil {
		return ""
	}
	return p.reader.Cursor().Path
}

func (p *LogProcessor) Cursor() domain.ReaderCursor {
	if p.reader == nil {
		return domain.ReaderCursor{}
	}
	return p.reader.Cursor()
}

func (p *LogProcessor) Dir() string {
	return p.dir
}

// ProcessLog runs one cycle: select the newest file, switch to it if it
// changed, and forward every newly appended line to the consumer.
//
// A missing directory, an empty directory or a file that vanished between
// select and read all yield an error matching fs.ErrNotExist. The cycle is
// abandoned and the caller retries on the next tick.
func (p *LogProcessor) ProcessLog() error {
	path, err := p.selector.SelectLatest(p.dir)
	if err != nil {
		return fmt.Errorf("select log file: %w", err)
	}

	if p.state == StateUnstarted || path != p.reader.Cursor().Path {
		p.switchTo(path)
	}

	firstRead := p.backfill
	lines := 0
	err = p.reader.ReadAppended(func(raw string) {
		lines++
		p.handle(raw, firstRead)
	})
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	if firstRead {
		log.Info().
			Str("file", path).
			Int("lines", lines).
			Msg("Backfill complete, notifications are live")
	}
	p.backfill = false
	return nil
}

func (p *LogProcessor) switchTo(path string) {
	if p.state == StateUnstarted {
		p.state = StateTracking
		p.backfill = true
		log.Info().Str("file", path).Msg("Tracking log file")
	} else {
		log.Info().
			Str("from", p.reader.Cursor().Path).
			Str("to", path).
			Msg("Log file rotated")
		p.metrics.IncrementRotations()
		if p.collector != nil {
			p.collector.IncrementRotations()
		}
	}

	p.reader = p.newReader(path)
	p.metrics.SetCurrentFile(path)
}

func (p *LogProcessor) handle(raw string, firstRead bool) {
	p.metrics.IncrementLinesRead()

	line, err := p.parser.Parse(raw)
	if err != nil {
		p.metrics.IncrementSkipped()
		p.observe("skipped")
		return
	}

	p.metrics.IncrementLinesParsed()
	if line.HasEvent() {
		p.metrics.IncrementEvents()
		p.observe("event")
		log.Debug().
			Str("event", line.Event.String()).
			Bool("backfill", firstRead).
			Msg("Event parsed")
	} else {
		p.observe("parsed")
	}

	p.consumer.ProcessLine(line, firstRead)
}

func (p *LogProcessor) observe(result string) {
	if p.observer != nil {
		p.observer.IncrementLinesProcessedByResult(result)
	}
}
