package app

import (
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config keys.
const (
	KeyLogDir       = "log.dir"
	KeyLogPattern   = "log.pattern"
	KeyPollInterval = "poll.interval"
	KeyWatchFS      = "poll.watch_fs"

	KeyGracePeriod     = "notify.grace_period"
	KeyRoomTransitions = "notify.room_transitions"
	KeyRoomJoinedTitle = "notify.room_joined_title"
	KeyRoomLeftTitle   = "notify.room_left_title"
	KeyTrackSelf       = "notify.track_self"
	KeyNotifyTimeout   = "notify.timeout"
	KeySendTimeout     = "notify.send_timeout"
	KeyDedupWindow     = "notify.dedup_window"
	KeyStartup         = "notify.startup"

	KeySinkHost      = "sink.host"
	KeySinkPort      = "sink.port"
	KeySinkSourceApp = "sink.source_app"
	KeySinkDryRun    = "sink.dry_run"
	KeySinkEcho      = "sink.echo"

	KeyMetricsEnabled = "metrics.enabled"
	KeyMetricsAddr    = "metrics.addr"

	KeyLogLevel       = "logging.level"
	KeyParserLocation = "parser.location"
	KeyParserPatterns = "parser.patterns"
)

// SetDefaults registers a default for every key so env overrides work
// without a config file.
func SetDefaults(v *viper.Viper) {
	policy := DefaultPolicy()

	v.SetDefault(KeyLogDir, "")
	v.SetDefault(KeyLogPattern, "output_log_*.txt")
	v.SetDefault(KeyPollInterval, time.Second)
	v.SetDefault(KeyWatchFS, true)

	v.SetDefault(KeyGracePeriod, policy.GracePeriod)
	v.SetDefault(KeyRoomTransitions, policy.NotifyRoomTransitions)
	v.SetDefault(KeyRoomJoinedTitle, policy.RoomJoinedTitle)
	v.SetDefault(KeyRoomLeftTitle, policy.RoomLeftTitle)
	v.SetDefault(KeyTrackSelf, policy.TrackSelfIdentity)
	v.SetDefault(KeyNotifyTimeout, policy.NotificationTimeout)
	v.SetDefault(KeySendTimeout, policy.SendTimeout)
	v.SetDefault(KeyDedupWindow, policy.DedupWindow)
	v.SetDefault(KeyStartup, true)

	v.SetDefault(KeySinkHost, "127.0.0.1")
	v.SetDefault(KeySinkPort, 42069)
	v.SetDefault(KeySinkSourceApp, "roomwatch")
	v.SetDefault(KeySinkDryRun, false)
	v.SetDefault(KeySinkEcho, false)

	v.SetDefault(KeyMetricsEnabled, false)
	v.SetDefault(KeyMetricsAddr, "127.0.0.1:9091")

	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyParserLocation, "Local")
}

type SinkConfig struct {
	Host      string
	Port      int
	SourceApp string
	DryRun    bool
	// Echo also prints every notification sent to XSOverlay as JSON.
	Echo bool
}

// Config is the resolved, validated configuration of the watch command.
type Config struct {
	LogDir       string
	LogPattern   string
	PollInterval time.Duration
	WatchFS      bool

	Policy  Policy
	Startup bool

	Sink SinkConfig

	MetricsEnabled bool
	MetricsAddr    string

	LogLevel       string
	ParserLocation string
}

func LoadConfig(v *viper.Viper) (Config, error) {
	policy, err := LoadPolicy(v)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		LogDir:       v.GetString(KeyLogDir),
		LogPattern:   v.GetString(KeyLogPattern),
		PollInterval: v.GetDuration(KeyPollInterval),
		WatchFS:      v.GetBool(KeyWatchFS),
		Policy:       policy,
		Startup:      v.GetBool(KeyStartup),
		Sink: SinkConfig{
			Host:      v.GetString(KeySinkHost),
			Port:      v.GetInt(KeySinkPort),
			SourceApp: v.GetString(KeySinkSourceApp),
			DryRun:    v.GetBool(KeySinkDryRun),
			Echo:      v.GetBool(KeySinkEcho),
		},
		MetricsEnabled: v.GetBool(KeyMetricsEnabled),
		MetricsAddr:    v.GetString(KeyMetricsAddr),
		LogLevel:       v.GetString(KeyLogLevel),
		ParserLocation: v.GetString(KeyParserLocation),
	}

	if cfg.PollInterval < 10*time.Millisecond || cfg.PollInterval > time.Minute {
		return Config{}, &ConfigValidationError{Field: KeyPollInterval, Value: cfg.PollInterval, Reason: "must be between 10ms and 1m"}
	}
	if cfg.Sink.Port < 1 || cfg.Sink.Port > 65535 {
		return Config{}, &ConfigValidationError{Field: KeySinkPort, Value: cfg.Sink.Port, Reason: "must be between 1 and 65535"}
	}
	if cfg.LogPattern == "" {
		return Config{}, &ConfigValidationError{Field: KeyLogPattern, Value: cfg.LogPattern, Reason: "must not be empty"}
	}
	if cfg.LogDir == "" {
		cfg.LogDir = DefaultLogDir()
	}
	return cfg, nil
}

// LoadPolicy reads the notify.* keys and validates the result.
func LoadPolicy(v *viper.Viper) (Policy, error) {
	policy := Policy{
		GracePeriod:           v.GetDuration(KeyGracePeriod),
		NotifyRoomTransitions: v.GetBool(KeyRoomTransitions),
		RoomJoinedTitle:       v.GetString(KeyRoomJoinedTitle),
		RoomLeftTitle:         v.GetString(KeyRoomLeftTitle),
		TrackSelfIdentity:     v.GetBool(KeyTrackSelf),
		NotificationTimeout:   v.GetDuration(KeyNotifyTimeout),
		SendTimeout:           v.GetDuration(KeySendTimeout),
		DedupWindow:           v.GetDuration(KeyDedupWindow),
	}
	if err := policy.Validate(); err != nil {
		return Policy{}, err
	}
	return policy, nil
}

// PolicyTarget receives reloaded policies. *Notifier implements it.
type PolicyTarget interface {
	SetPolicy(Policy)
}

// HotReloadConfig re-reads the config file when it changes and pushes a
// validated notification policy to its target. Invalid files are rejected
// and the running policy is kept.
type HotReloadConfig struct {
	v      *viper.Viper
	target PolicyTarget

	mu       sync.Mutex
	reloads  int
	rejected int
}

func NewHotReloadConfig(v *viper.Viper, target PolicyTarget) *HotReloadConfig {
	if v == nil {
		v = viper.GetViper()
	}
	return &HotReloadConfig{v: v, target: target}
}

// StartWatching installs the fsnotify watch on the config file in use. It
// is a no-op when no config file was loaded.
func (h *HotReloadConfig) StartWatching() {
	path := h.v.ConfigFileUsed()
	if path == "" {
		log.Debug().Msg("No config file in use, hot reload disabled")
		return
	}

	h.v.OnConfigChange(func(e fsnotify.Event) {
		log.Info().
			Str("file", e.Name).
			Str("op", e.Op.String()).
			Msg("Config file changed, reloading...")

		h.Reload()
	})

	h.v.WatchConfig()
	log.Info().Str("config", path).Msg("Hot-reload config watching started")
}

// Reload applies the current viper state to the target. Viper has already
// re-read the file when OnConfigChange fires.
func (h *HotReloadConfig) Reload() {
	h.mu.Lock()
	defer h.mu.Unlock()

	policy, err := LoadPolicy(h.v)
	if err != nil {
		h.rejected++
		log.Error().Err(err).Msg("Invalid configuration, rejecting reload")
		return
	}

	h.target.SetPolicy(policy)
	h.reloads++
	log.Info().Msg("Configuration hot-reloaded successfully")
}

// Stats returns the number of applied and rejected reloads.
func (h *HotReloadConfig) Stats() (applied, rejected int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reloads, h.rejected
}

type ConfigValidationError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ConfigValidationError) Error() string {
	return "config validation error: " + e.Field + " = " +
		formatValue(e.Value) + " - " + e.Reason
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		if val == "" {
			return `""`
		}
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
