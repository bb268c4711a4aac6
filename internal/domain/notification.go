package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type MessageType int

const (
	MessageTypePopup       MessageType = 1
	MessageTypeMediaPlayer MessageType = 2
)

const (
	SoundDefault = "default"
	SoundWarning = "warning"
	SoundError   = "error"

	IconDefault = "default"
	IconWarning = "warning"
	IconError   = "error"

	DefaultSourceApp = "roomwatch"
)

// Notification is a popup destined for the overlay. Field names follow the
// XSOverlay message object.
type Notification struct {
	ID        string      `json:"-"`
	CreatedAt time.Time   `json:"-"`
	Kind      EventKind   `json:"-"`
	Type      MessageType `json:"messageType"`
	Index     int         `json:"index"`
	Timeout   float32     `json:"timeout"`
	Height    float32     `json:"height"`
	Opacity   float32     `json:"opacity"`
	Volume    float32     `json:"volume"`
	AudioPath string      `json:"audioPath"`
	Title     string      `json:"title"`
	Content   string      `json:"content"`
	Base64    bool        `json:"useBase64Icon"`
	Icon      string      `json:"icon"`
	SourceApp string      `json:"sourceApp"`
}

func NewNotification(title string) *Notification {
	return &Notification{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Type:      MessageTypePopup,
		Timeout:   1.5,
		Height:    175,
		Opacity:   1,
		Volume:    0.7,
		AudioPath: SoundDefault,
		Title:     title,
		Icon:      IconDefault,
		SourceApp: DefaultSourceApp,
	}
}

func (n *Notification) WithContent(content string) *Notification {
	n.Content = content
	return n
}

func (n *Notification) WithTimeout(d time.Duration) *Notification {
	n.Timeout = float32(d.Seconds())
	return n
}

func (n *Notification) WithAudio(audio string) *Notification {
	n.AudioPath = audio
	return n
}

func (n *Notification) WithIcon(icon string, base64 bool) *Notification {
	n.Icon = icon
	n.Base64 = base64
	return n
}

func (n *Notification) WithSourceApp(app string) *Notification {
	if app != "" {
		n.SourceApp = app
	}
	return n
}

func (n *Notification) WithKind(kind EventKind) *Notification {
	n.Kind = kind
	return n
}

func (n *Notification) ToJSON() ([]byte, error) {
	return json.Marshal(n)
}

func JoinedTitle(userName string) string {
	return userName + " joined."
}

func LeftTitle(userName string) string {
	return userName + " left."
}
