package app

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/xoelrdgz/roomwatch/internal/domain"
	"github.com/xoelrdgz/roomwatch/internal/ports"
)

const (
	StartupTitle   = domain.DefaultSourceApp
	StartupContent = "Join and leave notifications are enabled."
	startupTimeout = 2 * time.Second
	startupDisplay = 2 * time.Second

	// Writes arrive in bursts; events closer than this to the previous
	// cycle are left to the next tick.
	minEventGap = 50 * time.Millisecond
)

type WatcherConfig struct {
	PollInterval time.Duration
	// WatchFS runs an extra cycle whenever the log directory reports a
	// write or create, on top of the ticker.
	WatchFS bool
	// Startup sends the confirmation popup before the first cycle.
	Startup bool
}

func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		PollInterval: time.Second,
		WatchFS:      true,
		Startup:      true,
	}
}

// Watcher drives the LogProcessor on a fixed interval until its context is
// cancelled. Cycle failures are logged and counted, never fatal.
type Watcher struct {
	processor *LogProcessor
	notifier  *Notifier
	metrics   *domain.PipelineMetrics
	collector ports.MetricsCollector
	config    WatcherConfig

	mu        sync.RWMutex
	running   bool
	lastCycle time.Time
	lastErr   string
}

func NewWatcher(processor *LogProcessor, notifier *Notifier, metrics *domain.PipelineMetrics, config WatcherConfig) *Watcher {
	if config.PollInterval <= 0 {
		config.PollInterval = time.Second
	}
	if metrics == nil {
		metrics = domain.NewPipelineMetrics()
	}
	return &Watcher{
		processor: processor,
		notifier:  notifier,
		metrics:   metrics,
		config:    config,
	}
}

func (w *Watcher) SetCollector(collector ports.MetricsCollector) {
	w.collector = collector
}

func (w *Watcher) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	if w.config.Startup {
		w.sendStartup(ctx)
	}

	events, fsErrors, closeFS := w.watchDir()
	defer closeFS()

	log.Info().
		Str("dir", w.processor.Dir()).
		Dur("interval", w.config.PollInterval).
		Bool("fs_events", events != nil).
		Msg("Watcher started")

	w.Cycle()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Int64("cycles", w.metrics.Snapshot().Cycles).Msg("Watcher stopped")
			return nil
		case <-ticker.C:
			w.Cycle()
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				if time.Since(w.LastCycle()) >= minEventGap {
					w.Cycle()
				}
			}
		case err, ok := <-fsErrors:
			if !ok {
				fsErrors = nil
				continue
			}
			log.Warn().Err(err).Msg("Directory watch error")
		}
	}
}

// watchDir subscribes to the log directory. When that fails the watcher
// falls back to polling alone and the returned channels are nil.
func (w *Watcher) watchDir() (<-chan fsnotify.Event, <-chan error, func()) {
	noop := func() {}
	if !w.config.WatchFS {
		return nil, nil, noop
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn().Err(err).Msg("File system notifications unavailable, polling only")
		return nil, nil, noop
	}
	if err := fsw.Add(w.processor.Dir()); err != nil {
		_ = fsw.Close()
		log.Warn().Err(err).Str("dir", w.processor.Dir()).Msg("Cannot watch log directory, polling only")
		return nil, nil, noop
	}

	return fsw.Events, fsw.Errors, func() { _ = fsw.Close() }
}

func (w *Watcher) sendStartup(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	n := domain.NewNotification(StartupTitle).
		WithContent(StartupContent).
		WithTimeout(startupDisplay)
	if err := w.notifier.Send(ctx, n); err != nil {
		log.Warn().Err(err).Msg("Startup notification failed, continuing")
	}
}

// Cycle runs ProcessLog once and records the outcome.
func (w *Watcher) Cycle() {
	start := time.Now()
	err := w.processor.ProcessLog()
	end := time.Now()

	w.metrics.RecordCycle(err, end)
	if w.collector != nil {
		w.collector.ObserveCycle(end.Sub(start).Seconds(), err == nil)
	}

	w.mu.Lock()
	w.lastCycle = end
	previous := w.lastErr
	if err != nil {
		w.lastErr = err.Error()
	} else {
		w.lastErr = ""
	}
	w.mu.Unlock()

	switch {
	case err == nil:
		if previous != "" {
			log.Info().Str("file", w.processor.CurrentPath()).Msg("Log reading recovered")
		}
	case err.Error() == previous:
		// Same failure as last cycle, already reported.
		log.Debug().Err(err).Msg("Cycle failed")
	case errors.Is(err, fs.ErrNotExist):
		log.Warn().Err(err).Msg("No log file available, retrying")
	default:
		log.Error().Err(err).Msg("Cycle failed, retrying")
	}
}

func (w *Watcher) LastCycle() time.Time {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastCycle
}

func (w *Watcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

func (w *Watcher) Metrics() domain.MetricsSnapshot {
	return w.metrics.Snapshot()
}

// DefaultLogDir returns the VRChat log directory for this platform: under
// LocalLow on Windows, inside the Steam Proton prefix elsewhere. It returns
// "" when the home directory is unknown.
func DefaultLogDir() string {
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(filepath.Dir(appData), "LocalLow", "VRChat", "VRChat")
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	if runtime.GOOS == "windows" {
		return filepath.Join(home, "AppData", "LocalLow", "VRChat", "VRChat")
	}
	return filepath.Join(home, ".steam", "steam", "steamapps", "compatdata", "438100",
		"pfx", "drive_c", "users", "steamuser", "AppData", "LocalLow", "VRChat", "VRChat")
}
