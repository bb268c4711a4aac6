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

func sampleRows() []ScanRow {
	ts := time.Date(2024, time.June, 1, 20, 0, 5, 0, time.UTC)
	return []ScanRow{
		{Timestamp: ts, Level: domain.LevelLog, Kind: domain.EventRoomJoined, Decision: "room_transition"},
		{Timestamp: ts.Add(6 * time.Second), Level: domain.LevelLog, Kind: domain.EventPlayerJoined,
			UserName: "Bob", UserID: "usr_b", Decision: "notify", Title: "Bob joined."},
	}
}

func TestWriteScanRowsTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteScanRows(&buf, sampleRows(), "table"))

	out := buf.String()
	assert.Contains(t, out, "Bob joined.")
	assert.Contains(t, out, "2024-06-01 20:00:11")
	assert.Contains(t, strings.ToLower(out), "2 events")
	assert.Contains(t, strings.ToLower(out), "1 notify")
}

func TestWriteScanRowsEmptyTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteScanRows(&buf, nil, ""))
	assert.Contains(t, buf.String(), "(no events)")
}

func TestWriteScanRowsPlain(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteScanRows(&buf, sampleRows(), "plain"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "timestamp\tlevel\tevent\tuser\tdecision\ttitle", lines[0])
	assert.Equal(t, "2024-06-01T20:00:11Z\tLog\tplayer_joined\tBob\tnotify\tBob joined.", lines[2])
}

func TestWriteScanRowsJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteScanRows(&buf, sampleRows(), "json"))
	assert.Equal(t, int64(2), gjson.Get(buf.String(), "#").Int())
	assert.Equal(t, "Bob", gjson.Get(buf.String(), "1.user_name").String())

	buf.Reset()
	require.NoError(t, WriteScanRows(&buf, sampleRows(), "JSONL"))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "room_transition", gjson.Get(lines[0], "decision").String())
	assert.False(t, gjson.Get(lines[0], "title").Exists())
}

func TestWriteScanRowsUnknownFormat(t *testing.T) {
	assert.Error(t, WriteScanRows(&bytes.Buffer{}, nil, "xml"))
}
