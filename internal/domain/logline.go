package domain

import (
	"strings"
	"time"
)

const (
	MaxLineLength   = 8192
	MaxUserNameSize = 128
)

type Level int

const (
	LevelDebug Level = iota
	LevelLog
	LevelWarning
	LevelError
)

var levelNames = [...]string{"Debug", "Log", "Warning", "Error"}

func ParseLevel(s string) (Level, bool) {
	for i, name := range levelNames {
		if s == name {
			return Level(i), true
		}
	}
	return 0, false
}

func (l Level) String() string {
	if l < LevelDebug || l > LevelError {
		return "Unknown"
	}
	return levelNames[l]
}

func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

type EventKind string

const (
	EventRoomJoined        EventKind = "room_joined"
	EventRoomLeft          EventKind = "room_left"
	EventPlayerJoined      EventKind = "player_joined"
	EventPlayerLeft        EventKind = "player_left"
	EventSelfAuthenticated EventKind = "self_authenticated"
)

// EventKinds lists every kind in the order the default parser tries them.
var EventKinds = []EventKind{
	EventRoomJoined,
	EventPlayerJoined,
	EventRoomLeft,
	EventPlayerLeft,
	EventSelfAuthenticated,
}

func (k EventKind) Valid() bool {
	for _, known := range EventKinds {
		if k == known {
			return true
		}
	}
	return false
}

// CarriesUser reports whether events of this kind name a user.
func (k EventKind) CarriesUser() bool {
	switch k {
	case EventPlayerJoined, EventPlayerLeft, EventSelfAuthenticated:
		return true
	default:
		return false
	}
}

func (k EventKind) IsRoomTransition() bool {
	return k == EventRoomJoined || k == EventRoomLeft
}

type Event struct {
	Kind     EventKind `json:"kind"`
	UserName string    `json:"user_name,omitempty"`
	UserID   string    `json:"user_id,omitempty"`
}

func (e *Event) HasUser() bool {
	return e != nil && e.UserName != ""
}

func (e *Event) String() string {
	if e == nil {
		return ""
	}
	if e.UserName == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + "(" + e.UserName + ")"
}

type LogLine struct {
	Timestamp time.Time `json:"timestamp"`
	Level     Level     `json:"level"`
	Event     *Event    `json:"event,omitempty"`
	Body      string    `json:"body"`
	Truncated bool      `json:"truncated,omitempty"`
}

func (l *LogLine) HasEvent() bool {
	return l != nil && l.Event != nil
}

func (l *LogLine) EventKind() EventKind {
	if l == nil || l.Event == nil {
		return ""
	}
	return l.Event.Kind
}

type ReaderCursor struct {
	Path   string `json:"path"`
	Offset int64  `json:"offset"`
}

func (c ReaderCursor) IsZero() bool {
	return strings.TrimSpace(c.Path) == "" && c.Offset == 0
}
