package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/xoelrdgz/roomwatch/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, time.November, 3, 5, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingSink struct {
	mu   sync.Mutex
	sent []*domain.Notification
	err  error
}

func (s *recordingSink) Send(_ context.Context, n *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, n)
	return nil
}

func (s *recordingSink) Close() error { return nil }

func (s *recordingSink) Titles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	titles := make([]string, 0, len(s.sent))
	for _, n := range s.sent {
		titles = append(titles, n.Title)
	}
	return titles
}

func (s *recordingSink) failWith(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// kindedError mimics a sink error that reports its kind.
type kindedError struct{ kind string }

func (e *kindedError) Error() string     { return e.kind + " failure" }
func (e *kindedError) ErrorKind() string { return e.kind }

var errUnreachable = errors.New("overlay unreachable")

type recordingCollector struct {
	mu         sync.Mutex
	decisions  map[string]int
	sinkErrors map[string]int
	rotations  int
	cycles     int
	failed     int
}

func newRecordingCollector() *recordingCollector {
	return &recordingCollector{
		decisions:  make(map[string]int),
		sinkErrors: make(map[string]int),
	}
}

func (c *recordingCollector) IncrementNotifications(decision string) {
	c.mu.Lock()
	c.decisions[decision]++
	c.mu.Unlock()
}

func (c *recordingCollector) IncrementSinkErrors(kind string) {
	c.mu.Lock()
	c.sinkErrors[kind]++
	c.mu.Unlock()
}

func (c *recordingCollector) IncrementRotations() {
	c.mu.Lock()
	c.rotations++
	c.mu.Unlock()
}

func (c *recordingCollector) ObserveCycle(_ float64, ok bool) {
	c.mu.Lock()
	c.cycles++
	if !ok {
		c.failed++
	}
	c.mu.Unlock()
}

// recordingConsumer stores what the processor forwarded.
type recordingConsumer struct {
	lines      []*domain.LogLine
	firstReads []bool
}

func (c *recordingConsumer) ProcessLine(line *domain.LogLine, isFirstRead bool) {
	c.lines = append(c.lines, line)
	c.firstReads = append(c.firstReads, isFirstRead)
}

func (c *recordingConsumer) reset() {
	c.lines = nil
	c.firstReads = nil
}

func eventLine(kind domain.EventKind, user string) *domain.LogLine {
	return &domain.LogLine{
		Timestamp: time.Now(),
		Level:     domain.LevelLog,
		Event:     &domain.Event{Kind: kind, UserName: user},
		Body:      string(kind) + " " + user,
	}
}
