package domain

import (
	"sync"
	"sync/atomic"
	"time"
)

type MetricsSnapshot struct {
	LinesRead            int64
	LinesParsed          int64
	LinesSkipped         int64
	Events               int64
	NotificationsSent    int64
	NotificationsDropped int64
	NotificationsFailed  int64
	Rotations            int64
	Cycles               int64
	FailedCycles         int64
	CurrentFile          string
	LastSuccessfulCycle  time.Time
	Uptime               time.Duration
	StartTime            time.Time
}

type PipelineMetrics struct {
	linesRead            atomic.Int64
	linesParsed          atomic.Int64
	linesSkipped         atomic.Int64
	events               atomic.Int64
	notificationsSent    atomic.Int64
	notificationsDropped atomic.Int64
	notificationsFailed  atomic.Int64
	rotations            atomic.Int64
	cycles               atomic.Int64
	failedCycles         atomic.Int64
	lastSuccess          atomic.Int64

	StartTime time.Time

	mu          sync.RWMutex
	currentFile string
}

func NewPipelineMetrics() *PipelineMetrics {
	return &PipelineMetrics{
		StartTime: time.Now(),
	}
}

func (m *PipelineMetrics) IncrementLinesRead()   { m.linesRead.Add(1) }
func (m *PipelineMetrics) IncrementLinesParsed() { m.linesParsed.Add(1) }
func (m *PipelineMetrics) IncrementSkipped()     { m.linesSkipped.Add(1) }
func (m *PipelineMetrics) IncrementEvents()      { m.events.Add(1) }
func (m *PipelineMetrics) IncrementSent()        { m.notificationsSent.Add(1) }
func (m *PipelineMetrics) IncrementDropped()     { m.notificationsDropped.Add(1) }
func (m *PipelineMetrics) IncrementFailed()      { m.notificationsFailed.Add(1) }
func (m *PipelineMetrics) IncrementRotations()   { m.rotations.Add(1) }

func (m *PipelineMetrics) RecordCycle(err error, at time.Time) {
	m.cycles.Add(1)
	if err != nil {
		m.failedCycles.Add(1)
		return
	}
	m.lastSuccess.Store(at.UnixNano())
}

func (m *PipelineMetrics) SetCurrentFile(path string) {
	m.mu.Lock()
	m.currentFile = path
	m.mu.Unlock()
}

func (m *PipelineMetrics) CurrentFile() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentFile
}

func (m *PipelineMetrics) LastSuccessfulCycle() time.Time {
	ns := m.lastSuccess.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

func (m *PipelineMetrics) TotalLines() int64 {
	return m.linesRead.Load()
}

func (m *PipelineMetrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		LinesRead:            m.linesRead.Load(),
		LinesParsed:          m.linesParsed.Load(),
		LinesSkipped:         m.linesSkipped.Load(),
		Events:               m.events.Load(),
		NotificationsSent:    m.notificationsSent.Load(),
		NotificationsDropped: m.notificationsDropped.Load(),
		NotificationsFailed:  m.notificationsFailed.Load(),
		Rotations:            m.rotations.Load(),
		Cycles:               m.cycles.Load(),
		FailedCycles:         m.failedCycles.Load(),
		CurrentFile:          m.CurrentFile(),
		LastSuccessfulCycle:  m.LastSuccessfulCycle(),
		Uptime:               time.Since(m.StartTime),
		StartTime:            m.StartTime,
	}
}
