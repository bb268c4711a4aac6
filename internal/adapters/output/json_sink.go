// Package output provides notification sinks and observability adapters.
//
// This file implements the secondary notification destinations:
//   - JSONSink: Buffered newline-delimited JSON to file or stdout (dry run)
//   - MemorySink: In-memory ring buffer of recent notifications
//   - FanOutSink: Delivers one notification to several sinks
//
// Thread Safety: All implementations are safe for concurrent Send() calls.
package output

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"sync"
	"time"

	"github.com/xoelrdgz/roomwatch/internal/domain"
	"github.com/xoelrdgz/roomwatch/internal/ports"
)

// JSONSink writes notifications as JSON lines instead of sending them.
//
// Features:
//   - Buffered writes, flushed every second and on Close
//   - Optional pretty-printing
//   - File sync on flush
type JSONSink struct {
	bufWriter *bufio.Writer // Buffered writer (64KB)
	file      *os.File      // File handle (nil for stdout)
	mu        sync.Mutex    // Protects writes
	encoder   *json.Encoder // Reused encoder
	stopFlush chan struct{} // Stop periodic flush
	closeOnce sync.Once
}

// JSONSinkConfig configures JSON output.
type JSONSinkConfig struct {
	FilePath string    // Output file path (empty for discard)
	Stdout   bool      // Write to stdout
	Writer   io.Writer // Explicit destination, wins over the others
	Pretty   bool      // Pretty-print JSON
}

// jsonRecord is what a dry run writes per notification: the overlay payload
// plus the bookkeeping fields the wire format leaves out.
type jsonRecord struct {
	ID        string               `json:"id"`
	CreatedAt time.Time            `json:"created_at"`
	Kind      domain.EventKind     `json:"kind,omitempty"`
	Payload   *domain.Notification `json:"payload"`
}

// NewJSONSink creates a JSON notification writer.
//
// Output Priority:
//  1. config.Writer if set
//  2. Stdout if config.Stdout is true
//  3. File if config.FilePath is set
//  4. io.Discard otherwise
//
// File Permissions: 0600 (owner read/write only)
func NewJSONSink(config JSONSinkConfig) (*JSONSink, error) {
	var writer io.Writer
	var file *os.File

	switch {
	case config.Writer != nil:
		writer = config.Writer
	case config.Stdout:
		writer = os.Stdout
	case config.FilePath != "":
		var err error
		file, err = os.OpenFile(config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, err
		}
		writer = file
	default:
		writer = io.Discard
	}

	const bufferSize = 64 * 1024
	bufWriter := bufio.NewWriterSize(writer, bufferSize)

	sink := &JSONSink{
		bufWriter: bufWriter,
		file:      file,
		stopFlush: make(chan struct{}),
	}

	sink.encoder = json.NewEncoder(bufWriter)
	if config.Pretty {
		sink.encoder.SetIndent("", "  ")
	}

	go sink.periodicFlush()

	return sink, nil
}

func (s *JSONSink) periodicFlush() {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = s.Flush()
		case <-s.stopFlush:
			return
		}
	}
}

// Send encodes a notification record into the buffer.
func (s *JSONSink) Send(ctx context.Context, n *domain.Notification) error {
	if n == nil {
		return &SendError{Kind: SendErrorEncode, Err: errors.New("nil notification")}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.encoder.Encode(jsonRecord{
		ID:        n.ID,
		CreatedAt: n.CreatedAt,
		Kind:      n.Kind,
		Payload:   n,
	}); err != nil {
		return &SendError{Kind: SendErrorEncode, Err: err}
	}
	return nil
}

// Flush forces buffered data to the destination.
func (s *JSONSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.bufWriter.Flush(); err != nil {
		return err
	}
	if s.file != nil {
		return s.file.Sync()
	}
	return nil
}

// Close stops periodic flushing, flushes what is left and closes the file.
func (s *JSONSink) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stopFlush)

		s.mu.Lock()
		defer s.mu.Unlock()

		if err = s.bufWriter.Flush(); err != nil {
			return
		}
		if s.file != nil {
			if err = s.file.Sync(); err != nil {
				return
			}
			err = s.file.Close()
		}
	})
	return err
}

// MemorySink stores notifications in a fixed-size ring buffer.
//
// Used by tests and the status output to look at what would have been
// shown without a running overlay.
//
// Thread Safety: Safe for concurrent access via RWMutex.
type MemorySink struct {
	items    []*domain.Notification // Ring buffer storage
	head     int                    // Next write position
	count    int                    // Current count
	maxItems int                    // Buffer capacity
	mu       sync.RWMutex           // Protects all fields
}

// NewMemorySink creates an in-memory buffer holding up to maxItems
// notifications (1000 if <= 0).
func NewMemorySink(maxItems int) *MemorySink {
	if maxItems <= 0 {
		maxItems = 1000
	}
	return &MemorySink{
		items:    make([]*domain.Notification, maxItems),
		maxItems: maxItems,
	}
}

// Send stores a notification, overwriting the oldest when full.
func (s *MemorySink) Send(ctx context.Context, n *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[s.head] = n
	s.head = (s.head + 1) % s.maxItems
	if s.count < s.maxItems {
		s.count++
	}

	return nil
}

func (s *MemorySink) Close() error {
	return nil
}

// Notifications returns all stored notifications, oldest first.
func (s *MemorySink) Notifications() []*domain.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Notification, s.count)
	if s.count == 0 {
		return result
	}

	start := 0
	if s.count == s.maxItems {
		start = s.head
	}

	for i := 0; i < s.count; i++ {
		result[i] = s.items[(start+i)%s.maxItems]
	}
	return result
}

// Latest returns the n most recent notifications, oldest first.
func (s *MemorySink) Latest(n int) []*domain.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || n > s.count {
		n = s.count
	}
	if n == 0 {
		return []*domain.Notification{}
	}

	result := make([]*domain.Notification, n)
	for i := 0; i < n; i++ {
		idx := (s.head - n + i + s.maxItems) % s.maxItems
		result[i] = s.items[idx]
	}
	return result
}

// Titles is a convenience for assertions and status output.
func (s *MemorySink) Titles() []string {
	items := s.Notifications()
	titles := make([]string, len(items))
	for i, n := range items {
		titles[i] = n.Title
	}
	return titles
}

func (s *MemorySink) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

func (s *MemorySink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.head = 0
	s.count = 0
	for i := range s.items {
		s.items[i] = nil
	}
}

// FanOutSink sends every notification to all of its sinks. Every sink gets
// its attempt; the errors are joined.
type FanOutSink struct {
	sinks []ports.NotificationSink
}

func NewFanOutSink(sinks ...ports.NotificationSink) *FanOutSink {
	return &FanOutSink{sinks: sinks}
}

func (f *FanOutSink) Send(ctx context.Context, n *domain.Notification) error {
	var errs []error
	for _, sink := range f.sinks {
		if err := sink.Send(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *FanOutSink) Close() error {
	var errs []error
	for _, sink := range f.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
