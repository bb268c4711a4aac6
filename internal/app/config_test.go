package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoadConfigDefaults(t *testing.T) {
	v := newTestViper()
	v.Set(KeyLogDir, "/tmp/vrchat")

	cfg, err := LoadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/vrchat", cfg.LogDir)
	assert.Equal(t, "output_log_*.txt", cfg.LogPattern)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.True(t, cfg.WatchFS)
	assert.True(t, cfg.Startup)
	assert.Equal(t, DefaultPolicy(), cfg.Policy)
	assert.Equal(t, SinkConfig{Host: "127.0.0.1", Port: 42069, SourceApp: "roomwatch"}, cfg.Sink)
	assert.False(t, cfg.MetricsEnabled)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfigFallsBackToPlatformLogDir(t *testing.T) {
	cfg, err := LoadConfig(newTestViper())
	require.NoError(t, err)
	assert.Equal(t, DefaultLogDir(), cfg.LogDir)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roomwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  dir: /games/vrchat
poll:
  interval: 250ms
notify:
  grace_period: 8s
  room_transitions: true
  dedup_window: 1m
sink:
  port: 42070
`), 0o644))

	v := newTestViper()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := LoadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "/games/vrchat", cfg.LogDir)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 8*time.Second, cfg.Policy.GracePeriod)
	assert.True(t, cfg.Policy.NotifyRoomTransitions)
	assert.Equal(t, time.Minute, cfg.Policy.DedupWindow)
	assert.Equal(t, 42070, cfg.Sink.Port)
	assert.True(t, cfg.Policy.TrackSelfIdentity)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		key   string
		value interface{}
	}{
		{KeyPollInterval, time.Millisecond},
		{KeyPollInterval, time.Hour},
		{KeySinkPort, 0},
		{KeySinkPort, 70000},
		{KeyLogPattern, ""},
		{KeyGracePeriod, -time.Second},
		{KeySendTimeout, 0},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			v := newTestViper()
			v.Set(tt.key, tt.value)

			_, err := LoadConfig(v)
			var cfgErr *ConfigValidationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.key, cfgErr.Field)
		})
	}
}

func TestConfigValidationErrorMessage(t *testing.T) {
	err := &ConfigValidationError{Field: KeySinkPort, Value: 70000, Reason: "must be between 1 and 65535"}
	assert.Equal(t, "config validation error: sink.port = 70000 - must be between 1 and 65535", err.Error())

	err = &ConfigValidationError{Field: KeyGracePeriod, Value: -time.Second, Reason: "must not be negative"}
	assert.Contains(t, err.Error(), "= -1s -")

	err = &ConfigValidationError{Field: KeyLogPattern, Value: "", Reason: "must not be empty"}
	assert.Contains(t, err.Error(), `= "" -`)
}

type policyRecorder struct {
	policies []Policy
}

func (r *policyRecorder) SetPolicy(p Policy) {
	r.policies = append(r.policies, p)
}

func TestHotReloadAppliesValidPolicy(t *testing.T) {
	v := newTestViper()
	target := &policyRecorder{}
	h := NewHotReloadConfig(v, target)

	v.Set(KeyGracePeriod, "12s")
	h.Reload()

	require.Len(t, target.policies, 1)
	assert.Equal(t, 12*time.Second, target.policies[0].GracePeriod)

	applied, rejected := h.Stats()
	assert.Equal(t, 1, applied)
	assert.Equal(t, 0, rejected)
}

func TestHotReloadRejectsInvalidPolicy(t *testing.T) {
	v := newTestViper()
	target := &policyRecorder{}
	h := NewHotReloadConfig(v, target)

	v.Set(KeyNotifyTimeout, "0s")
	h.Reload()

	assert.Empty(t, target.policies)
	applied, rejected := h.Stats()
	assert.Equal(t, 0, applied)
	assert.Equal(t, 1, rejected)
}

func TestHotReloadUpdatesNotifier(t *testing.T) {
	v := newTestViper()
	n, _, _, _ := newTestNotifier(DefaultPolicy())
	h := NewHotReloadConfig(v, n)

	v.Set(KeyRoomTransitions, true)
	h.Reload()

	assert.True(t, n.Policy().NotifyRoomTransitions)
}

func TestHotReloadWithoutConfigFileIsNoop(t *testing.T) {
	h := NewHotReloadConfig(newTestViper(), &policyRecorder{})
	h.StartWatching()

	applied, rejected := h.Stats()
	assert.Zero(t, applied)
	assert.Zero(t, rejected)
}
