package input

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// DemoGenerator writes a synthetic VRChat session into a log directory:
// authentication, room joins with the usual burst of players already present,
// live joins and leaves, and an occasional rotation to a fresh log file.
// It exists to exercise the watch loop without the game running.
type DemoGenerator struct {
	dir       string
	interval  time.Duration
	rotateAt  int
	selfName  string
	mu        sync.Mutex
	running   bool
	stopChan  chan struct{}
	generated atomic.Uint64
	rotations atomic.Uint64

	names   []string
	noise   []string
	present map[string]bool
	file    *os.File
	written int
}

type DemoConfig struct {
	Dir string
	// Interval between generated lines.
	Interval time.Duration
	// RotateEvery starts a new log file after this many lines; 0 disables.
	RotateEvery int
	SelfName    string
}

func DefaultDemoConfig(dir string) DemoConfig {
	return DemoConfig{
		Dir:         dir,
		Interval:    750 * time.Millisecond,
		RotateEvery: 400,
		SelfName:    "DemoUser",
	}
}

func NewDemoGenerator(config DemoConfig) *DemoGenerator {
	if config.Interval <= 0 {
		config.Interval = 750 * time.Millisecond
	}
	if config.SelfName == "" {
		config.SelfName = "DemoUser"
	}

	return &DemoGenerator{
		dir:      config.Dir,
		interval: config.Interval,
		rotateAt: config.RotateEvery,
		selfName: config.SelfName,
		stopChan: make(chan struct{}),
		names: []string{
			"Alice", "Bob", "Carol", "Dave", "Erin", "Frank", "Grace",
			"Heidi", "Ivan", "Judy", "Mallory", "Niaj", "Olivia", "Peggy",
			"Rupert", "Sybil", "Trent", "Victor", "Walter", "ゆき",
		},
		noise: []string{
			"[Network] Connected to master",
			"[AssetBundleDownloadManager] Downloading asset bundle for avatar",
			"[Behaviour] Initialized PlayerAPI",
			"[Always] Loading world",
			"Fetching user information",
			"[ModerationManager] Requesting moderations",
		},
		present: make(map[string]bool),
	}
}

// Start runs the generator until ctx is cancelled or Stop is called. Write
// failures are reported on the returned channel and end the run.
func (g *DemoGenerator) Start(ctx context.Context) <-chan error {
	errChan := make(chan error, 1)

	g.mu.Lock()
	if g.running {
		g.mu.Unlock()
		close(errChan)
		return errChan
	}
	g.running = true
	g.stopChan = make(chan struct{})
	stop := g.stopChan
	g.mu.Unlock()

	go func() {
		defer close(errChan)
		defer g.closeFile()

		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		if err := g.rotate(); err != nil {
			errChan <- err
			return
		}
		if err := g.session(rng); err != nil {
			errChan <- err
			return
		}

		log.Info().Str("dir", g.dir).Dur("interval", g.interval).Msg("Demo generator started")

		ticker := time.NewTicker(g.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info().Uint64("total_generated", g.generated.Load()).Msg("Demo generator stopped (context cancelled)")
				return
			case <-stop:
				log.Info().Uint64("total_generated", g.generated.Load()).Msg("Demo generator stopped")
				return
			case <-ticker.C:
				if err := g.step(rng); err != nil {
					errChan <- err
					return
				}
			}
		}
	}()

	return errChan
}

// session writes the preamble of a fresh log: self authentication followed
// by a room join and the players already in the room.
func (g *DemoGenerator) session(rng *rand.Rand) error {
	if err := g.write("Log", fmt.Sprintf("User Authenticated: %s (usr_%08x)", g.selfName, rng.Uint32())); err != nil {
		return err
	}
	return g.joinRoom(rng)
}

func (g *DemoGenerator) joinRoom(rng *rand.Rand) error {
	for name := range g.present {
		delete(g.present, name)
	}
	if err := g.write("Log", "[Behaviour] OnJoinedRoom"); err != nil {
		return err
	}
	if err := g.write("Log", "[Behaviour] OnPlayerJoined "+g.selfName); err != nil {
		return err
	}
	for i := rng.Intn(6); i > 0; i-- {
		if err := g.playerJoined(rng); err != nil {
			return err
		}
	}
	return nil
}

func (g *DemoGenerator) step(rng *rand.Rand) error {
	if g.rotateAt > 0 && g.written >= g.rotateAt {
		if err := g.rotate(); err != nil {
			return err
		}
		return g.session(rng)
	}

	switch roll := rng.Intn(100); {
	case roll < 45:
		level := "Log"
		if rng.Intn(10) == 0 {
			level = "Warning"
		}
		return g.write(level, g.noise[rng.Intn(len(g.noise))])
	case roll < 70:
		return g.playerJoined(rng)
	case roll < 92:
		return g.playerLeft(rng)
	default:
		if err := g.write("Log", "[Behaviour] OnLeftRoom"); err != nil {
			return err
		}
		return g.joinRoom(rng)
	}
}

func (g *DemoGenerator) playerJoined(rng *rand.Rand) error {
	name := g.names[rng.Intn(len(g.names))]
	if g.present[name] {
		return nil
	}
	g.present[name] = true
	return g.write("Log", fmt.Sprintf("[Behaviour] OnPlayerJoined %s (usr_%08x)", name, rng.Uint32()))
}

func (g *DemoGenerator) playerLeft(rng *rand.Rand) error {
	for name := range g.present {
		delete(g.present, name)
		return g.write("Log", "[Behaviour] OnPlayerLeft "+name)
	}
	return nil
}

func (g *DemoGenerator) write(level, body string) error {
	line := fmt.Sprintf("%s %-10s -  %s\n", time.Now().Format(vrchatTimeLayout), level, body)
	if _, err := g.file.WriteString(line); err != nil {
		return fmt.Errorf("write demo log: %w", err)
	}
	g.written++
	g.generated.Add(1)
	return nil
}

func (g *DemoGenerator) rotate() error {
	g.closeFile()

	name := fmt.Sprintf("output_log_%s_%03d.txt", time.Now().Format("2006-01-02_15-04-05"), g.rotations.Load())
	path := filepath.Join(g.dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create demo log: %w", err)
	}

	g.file = f
	g.written = 0
	g.rotations.Add(1)
	log.Info().Str("file", path).Msg("Demo generator writing new log file")
	return nil
}

func (g *DemoGenerator) closeFile() {
	if g.file != nil {
		_ = g.file.Close()
		g.file = nil
	}
}

func (g *DemoGenerator) Stop() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.running {
		return nil
	}

	close(g.stopChan)
	g.running = false

	return nil
}

func (g *DemoGenerator) IsRunning() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}

func (g *DemoGenerator) Generated() uint64 {
	return g.generated.Load()
}

func (g *DemoGenerator) Rotations() uint64 {
	return g.rotations.Load()
}
