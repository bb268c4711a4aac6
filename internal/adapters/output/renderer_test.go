package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/xoelrdgz/roomwatch/internal/domain"
)

func sampleLines() []*domain.LogLine {
	ts := time.Date(2024, time.June, 1, 20, 0, 5, 0, time.UTC)
	return []*domain.LogLine{
		{Timestamp: ts, Level: domain.LevelLog, Body: "[Network] Connected"},
		{
			Timestamp: ts,
			Level:     domain.LevelLog,
			Event:     &domain.Event{Kind: domain.EventPlayerJoined, UserName: "Bob", UserID: "usr_b"},
			Body:      "[Behaviour] OnPlayerJoined Bob (usr_b)",
		},
		{
			Timestamp: ts,
			Level:     domain.LevelWarning,
			Event:     &domain.Event{Kind: domain.EventRoomJoined},
			Body:      "[Behaviour] OnJoinedRoom",
		},
	}
}

func TestTextRendererPlain(t *testing.T) {
	var buf bytes.Buffer
	r := NewTextRenderer(&buf, false, false)
	for _, line := range sampleLines() {
		require.NoError(t, r.Render(line))
	}
	require.NoError(t, r.Render(nil))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "20:00:05 Log     [Network] Connected", lines[0])
	assert.Equal(t, "20:00:05 Log     + Bob [Behaviour] OnPlayerJoined Bob (usr_b)", lines[1])
	assert.Equal(t, "20:00:05 Warning [joined room] [Behaviour] OnJoinedRoom", lines[2])
	assert.NotContains(t, buf.String(), "\x1b")
}

func TestTextRendererEventsOnly(t *testing.T) {
	var buf bytes.Buffer
	r := NewTextRenderer(&buf, false, true)
	for _, line := range sampleLines() {
		require.NoError(t, r.Render(line))
	}
	assert.Equal(t, 2, strings.Count(buf.String(), "\n"))
}

func TestTextRendererNeutralizesEscapes(t *testing.T) {
	var buf bytes.Buffer
	r := NewTextRenderer(&buf, false, false)
	require.NoError(t, r.Render(&domain.LogLine{
		Level: domain.LevelLog,
		Event: &domain.Event{Kind: domain.EventPlayerLeft, UserName: "Eve\x1b[2J"},
		Body:  "OnPlayerLeft Eve\x1b[2J",
	}))
	assert.NotContains(t, buf.String(), "\x1b")
	assert.Contains(t, buf.String(), "- Eve")
}

func TestEventTag(t *testing.T) {
	assert.Equal(t, "@ Alice", eventTag(&domain.Event{Kind: domain.EventSelfAuthenticated, UserName: "Alice"}))
	assert.Equal(t, "[left room]", eventTag(&domain.Event{Kind: domain.EventRoomLeft}))
	assert.Equal(t, "custom", eventTag(&domain.Event{Kind: "custom"}))
}

func TestJSONRenderer(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONRenderer(&buf, true)
	for _, line := range sampleLines() {
		require.NoError(t, r.Render(line))
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "player_joined", gjson.Get(lines[0], "event.kind").String())
	assert.Equal(t, "Bob", gjson.Get(lines[0], "event.user_name").String())
	assert.Equal(t, "usr_b", gjson.Get(lines[0], "event.user_id").String())
	assert.Equal(t, "Log", gjson.Get(lines[0], "level").String())
	assert.Equal(t, "Warning", gjson.Get(lines[1], "level").String())
}
