package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/xoelrdgz/roomwatch/internal/domain"
	"github.com/xoelrdgz/roomwatch/pkg/sanitize"
)

// Renderer writes parsed log lines for the follow command.
type Renderer interface {
	Render(line *domain.LogLine) error
}

var (
	colorAmber = lipgloss.Color("#ffb000")
	colorRed   = lipgloss.Color("#ff3333")
	colorCyan  = lipgloss.Color("#00b8ff")
	colorGreen = lipgloss.Color("#00ff41")
	colorMuted = lipgloss.Color("#707070")
	colorDim   = lipgloss.Color("#404040")

	styleTime    = lipgloss.NewStyle().Foreground(colorMuted)
	styleDebug   = lipgloss.NewStyle().Foreground(colorDim)
	styleLog     = lipgloss.NewStyle().Foreground(colorMuted)
	styleWarning = lipgloss.NewStyle().Foreground(colorAmber).Bold(true)
	styleError   = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	styleBody    = lipgloss.NewStyle()
	styleJoin    = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
	styleLeave   = lipgloss.NewStyle().Foreground(colorAmber).Bold(true)
	styleRoom    = lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
	styleSelf    = lipgloss.NewStyle().Foreground(colorCyan).Italic(true)
)

// TextRenderer prints one line per log line, highlighting events. With
// color off it prints the same layout without escape sequences.
type TextRenderer struct {
	w          io.Writer
	color      bool
	eventsOnly bool
}

func NewTextRenderer(w io.Writer, color, eventsOnly bool) *TextRenderer {
	return &TextRenderer{w: w, color: color, eventsOnly: eventsOnly}
}

func (r *TextRenderer) Render(line *domain.LogLine) error {
	if line == nil || (r.eventsOnly && !line.HasEvent()) {
		return nil
	}

	ts := line.Timestamp.Format("15:04:05")
	level := fmt.Sprintf("%-7s", line.Level)
	body := sanitize.ForTerminal(line.Body)
	tag := ""
	if line.HasEvent() {
		tag = eventTag(line.Event)
	}

	if r.color {
		ts = styleTime.Render(ts)
		level = levelStyle(line.Level).Render(level)
		if tag != "" {
			tag = eventStyle(line.Event.Kind).Render(tag)
		}
		body = styleBody.Render(body)
	}

	var err error
	if tag != "" {
		_, err = fmt.Fprintf(r.w, "%s %s %s %s\n", ts, level, tag, body)
	} else {
		_, err = fmt.Fprintf(r.w, "%s %s %s\n", ts, level, body)
	}
	return err
}

func eventTag(e *domain.Event) string {
	switch e.Kind {
	case domain.EventPlayerJoined:
		return "+ " + sanitize.ForTerminal(e.UserName)
	case domain.EventPlayerLeft:
		return "- " + sanitize.ForTerminal(e.UserName)
	case domain.EventRoomJoined:
		return "[joined room]"
	case domain.EventRoomLeft:
		return "[left room]"
	case domain.EventSelfAuthenticated:
		return "@ " + sanitize.ForTerminal(e.UserName)
	}
	return string(e.Kind)
}

func levelStyle(l domain.Level) lipgloss.Style {
	switch l {
	case domain.LevelDebug:
		return styleDebug
	case domain.LevelWarning:
		return styleWarning
	case domain.LevelError:
		return styleError
	default:
		return styleLog
	}
}

func eventStyle(k domain.EventKind) lipgloss.Style {
	switch k {
	case domain.EventPlayerJoined:
		return styleJoin
	case domain.EventPlayerLeft:
		return styleLeave
	case domain.EventSelfAuthenticated:
		return styleSelf
	default:
		return styleRoom
	}
}

// JSONRenderer prints each log line as a single JSON object per line.
type JSONRenderer struct {
	enc        *json.Encoder
	eventsOnly bool
}

func NewJSONRenderer(w io.Writer, eventsOnly bool) *JSONRenderer {
	return &JSONRenderer{enc: json.NewEncoder(w), eventsOnly: eventsOnly}
}

func (r *JSONRenderer) Render(line *domain.LogLine) error {
	if line == nil || (r.eventsOnly && !line.HasEvent()) {
		return nil
	}
	return r.enc.Encode(line)
}
