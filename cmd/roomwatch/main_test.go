package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/xoelrdgz/roomwatch/internal/adapters/output"
	"github.com/xoelrdgz/roomwatch/internal/app"
	"github.com/xoelrdgz/roomwatch/internal/domain"
)

func TestLoadLocation(t *testing.T) {
	loc, err := loadLocation("")
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	loc, err = loadLocation("UTC")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	loc, err = loadLocation("Asia/Tokyo")
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", loc.String())

	_, err = loadLocation("Mars/Olympus")
	assert.Error(t, err)
}

func TestReplayClock(t *testing.T) {
	c := &replayClock{}
	ts := time.Date(2024, time.June, 1, 20, 0, 0, 0, time.UTC)
	c.now = ts
	assert.Equal(t, ts, c.Now())
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"watch", "scan", "follow", "version"} {
		assert.True(t, names[want], want)
	}
}

func TestNewSink(t *testing.T) {
	tests := []struct {
		name     string
		cfg      app.SinkConfig
		wantEcho bool
	}{
		{"dry run", app.SinkConfig{DryRun: true, Echo: true}, true},
		{"xsoverlay only", app.SinkConfig{Host: "127.0.0.1", Port: 42169}, false},
		{"xsoverlay with echo", app.SinkConfig{Host: "127.0.0.1", Port: 42169, Echo: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout bytes.Buffer
			sink, err := newSink(tt.cfg, &stdout)
			require.NoError(t, err)

			switch {
			case tt.cfg.DryRun:
				assert.IsType(t, &output.JSONSink{}, sink)
			case tt.cfg.Echo:
				assert.IsType(t, &output.FanOutSink{}, sink)
			default:
				assert.IsType(t, &output.XSOverlaySink{}, sink)
			}

			require.NoError(t, sink.Send(context.Background(), domain.NewNotification("Bob joined.")))
			require.NoError(t, sink.Close())

			if tt.wantEcho {
				assert.Equal(t, "Bob joined.", gjson.Get(stdout.String(), "payload.title").String())
			} else {
				assert.Empty(t, stdout.String())
			}
		})
	}
}
