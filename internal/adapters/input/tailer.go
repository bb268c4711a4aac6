package input

import (
	"context"
	"io"
	"sync"

	"github.com/nxadm/tail"
	"github.com/rs/zerolog/log"

	"github.com/xoelrdgz/roomwatch/internal/domain"
	"github.com/xoelrdgz/roomwatch/internal/ports"
)

// FileTailer follows a single file with nxadm/tail and streams parsed lines.
// Unlike the watch pipeline it never switches files; it backs the follow
// command.
type FileTailer struct {
	filepath      string
	parser        ports.LogParser
	tail          *tail.Tail
	bufferSize    int
	fromBeginning bool
	poll          bool
	mu            sync.Mutex
	running       bool
	stopChan      chan struct{}
}

func NewFileTailer(filepath string, parser ports.LogParser, bufferSize int) *FileTailer {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &FileTailer{
		filepath:   filepath,
		parser:     parser,
		bufferSize: bufferSize,
		stopChan:   make(chan struct{}),
	}
}

func (t *FileTailer) SetFromBeginning(fromBeginning bool) {
	t.fromBeginning = fromBeginning
}

// SetPoll makes the tailer poll for changes instead of using inotify. VRChat
// running under Proton on a network share needs it.
func (t *FileTailer) SetPoll(poll bool) {
	t.poll = poll
}

func (t *FileTailer) Start(ctx context.Context) (<-chan *domain.LogLine, <-chan error) {
	lineChan := make(chan *domain.LogLine, t.bufferSize)
	errChan := make(chan error, 10)

	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		close(lineChan)
		close(errChan)
		return lineChan, errChan
	}
	t.running = true
	t.stopChan = make(chan struct{})
	stop := t.stopChan

	whence := io.SeekEnd
	if t.fromBeginning {
		whence = io.SeekStart
	}
	tl, err := tail.TailFile(t.filepath, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: false,
		Poll:      t.poll,
		Location:  &tail.SeekInfo{Offset: 0, Whence: whence},
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		t.running = false
		t.mu.Unlock()
		log.Error().Err(err).Str("file", t.filepath).Msg("Failed to tail file")
		errChan <- err
		close(lineChan)
		close(errChan)
		return lineChan, errChan
	}
	t.tail = tl
	t.mu.Unlock()

	go func() {
		defer close(lineChan)
		defer close(errChan)

		log.Info().Str("file", t.filepath).Msg("Started tailing log file")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("Context cancelled, stopping tailer")
				return
			case <-stop:
				log.Info().Msg("Stop signal received, stopping tailer")
				return
			case raw, ok := <-tl.Lines:
				if !ok {
					log.Info().Msg("Tail channel closed")
					return
				}
				if raw.Err != nil {
					log.Warn().Err(raw.Err).Msg("Error reading line")
					select {
					case errChan <- raw.Err:
					default:
					}
					continue
				}
				if raw.Text == "" {
					continue
				}

				line, err := t.parser.Parse(raw.Text)
				if err != nil {
					log.Debug().Err(err).Str("line", raw.Text).Msg("Skipping unparsed log line")
					continue
				}

				select {
				case lineChan <- line:
				case <-ctx.Done():
					return
				case <-stop:
					return
				}
			}
		}
	}()

	return lineChan, errChan
}

func (t *FileTailer) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return nil
	}

	close(t.stopChan)
	t.running = false

	if t.tail != nil {
		err := t.tail.Stop()
		t.tail.Cleanup()
		return err
	}
	return nil
}

func (t *FileTailer) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}
