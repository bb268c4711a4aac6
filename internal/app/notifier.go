package app

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/xoelrdgz/roomwatch/internal/domain"
	"github.com/xoelrdgz/roomwatch/internal/ports"
	"github.com/xoelrdgz/roomwatch/pkg/lru"
	"github.com/xoelrdgz/roomwatch/pkg/sanitize"
)

// Decision is the reason the notifier gave for one line.
type Decision int

const (
	DecisionNotify Decision = iota
	DecisionBackfill
	DecisionNoEvent
	DecisionSelfIdentity
	DecisionRoomTransition
	DecisionWindow
	DecisionSelf
	DecisionDuplicate
)

func (d Decision) String() string {
	switch d {
	case DecisionNotify:
		return "notify"
	case DecisionBackfill:
		return "backfill"
	case DecisionNoEvent:
		return "no_event"
	case DecisionSelfIdentity:
		return "self_identity"
	case DecisionRoomTransition:
		return "room_transition"
	case DecisionWindow:
		return "window"
	case DecisionSelf:
		return "self"
	case DecisionDuplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// Policy tunes the notifier. Zero durations are replaced by defaults only
// through DefaultPolicy and config loading, never silently.
type Policy struct {
	// GracePeriod is how long after a room transition player joins and
	// leaves are treated as the room being enumerated.
	GracePeriod time.Duration

	// NotifyRoomTransitions emits a notification for the transition line
	// itself. The window is opened either way.
	NotifyRoomTransitions bool
	RoomJoinedTitle       string
	RoomLeftTitle         string

	// TrackSelfIdentity drops joins and leaves of the authenticated user.
	TrackSelfIdentity bool

	NotificationTimeout time.Duration
	SendTimeout         time.Duration

	// DedupWindow drops a title identical to one sent within the window.
	// Zero disables deduplication.
	DedupWindow time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		GracePeriod:         5 * time.Second,
		RoomJoinedTitle:     "Joined a room.",
		RoomLeftTitle:       "Left the room.",
		TrackSelfIdentity:   true,
		NotificationTimeout: time.Second,
		SendTimeout:         2 * time.Second,
	}
}

// Validate reports the first out-of-range field as a *ConfigValidationError.
func (p Policy) Validate() error {
	if p.GracePeriod < 0 {
		return &ConfigValidationError{Field: "notify.grace_period", Value: p.GracePeriod, Reason: "must not be negative"}
	}
	if p.NotificationTimeout <= 0 {
		return &ConfigValidationError{Field: "notify.timeout", Value: p.NotificationTimeout, Reason: "must be positive"}
	}
	if p.SendTimeout <= 0 {
		return &ConfigValidationError{Field: "notify.send_timeout", Value: p.SendTimeout, Reason: "must be positive"}
	}
	if p.DedupWindow < 0 {
		return &ConfigValidationError{Field: "notify.dedup_window", Value: p.DedupWindow, Reason: "must not be negative"}
	}
	return nil
}

// Notifier decides which parsed lines become overlay notifications and
// sends them. It implements ports.LineConsumer.
//
// The suppression window is measured on the injected clock, not on log
// timestamps: around a DST fallback the log's local times repeat, while the
// window must follow real elapsed time since the transition was observed.
//
// Thread Safety: ProcessLine and Decide must be called from one goroutine.
// SetPolicy may be called concurrently with them.
type Notifier struct {
	sink      ports.NotificationSink
	clock     ports.Clock
	collector ports.MetricsCollector
	metrics   *domain.PipelineMetrics

	policy atomic.Pointer[Policy]

	activeUntil time.Time
	selfName    string
	recent      *lru.Cache[string, struct{}]
}

// NewNotifier wires a notifier to sink. A nil clock uses the system clock;
// collector may be nil.
func NewNotifier(sink ports.NotificationSink, clock ports.Clock, policy Policy, collector ports.MetricsCollector) *Notifier {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	n := &Notifier{
		sink:      sink,
		clock:     clock,
		collector: collector,
		metrics:   domain.NewPipelineMetrics(),
		recent:    lru.New[string, struct{}](lru.DefaultCapacity),
	}
	n.policy.Store(&policy)
	return n
}

// SetMetrics shares the pipeline counters with the rest of the watcher.
func (n *Notifier) SetMetrics(metrics *domain.PipelineMetrics) {
	if metrics != nil {
		n.metrics = metrics
	}
}

func (n *Notifier) Policy() Policy {
	return *n.policy.Load()
}

// SetPolicy swaps the policy used for subsequent lines. An open window keeps
// the deadline it was opened with.
func (n *Notifier) SetPolicy(policy Policy) {
	n.policy.Store(&policy)
	log.Info().
		Dur("grace_period", policy.GracePeriod).
		Bool("room_transitions", policy.NotifyRoomTransitions).
		Bool("track_self", policy.TrackSelfIdentity).
		Dur("dedup_window", policy.DedupWindow).
		Msg("Notification policy updated")
}

// SelfName returns the last authenticated user name, if any.
func (n *Notifier) SelfName() string {
	return n.selfName
}

// WindowActive reports whether a room transition is still being enumerated.
func (n *Notifier) WindowActive() bool {
	return n.clock.Now().Before(n.activeUntil)
}

// Decide applies the suppression rules to one line and returns the
// notification to send, or nil and the reason it was dropped. It updates
// the window, self identity and dedup state as a side effect.
func (n *Notifier) Decide(line *domain.LogLine, isFirstRead bool) (*domain.Notification, Decision) {
	policy := n.policy.Load()

	if !line.HasEvent() {
		if isFirstRead {
			return nil, DecisionBackfill
		}
		return nil, DecisionNoEvent
	}
	event := line.Event

	// Backfill never notifies and never opens a window, but the login line
	// usually lives in the history and is the only way to learn who we are.
	if isFirstRead {
		if event.Kind == domain.EventSelfAuthenticated {
			n.learnSelf(event, policy)
		}
		return nil, DecisionBackfill
	}

	now := n.clock.Now()

	switch {
	case event.Kind == domain.EventSelfAuthenticated:
		n.learnSelf(event, policy)
		return nil, DecisionSelfIdentity

	case event.Kind.IsRoomTransition():
		n.activeUntil = now.Add(policy.GracePeriod)
		if !policy.NotifyRoomTransitions {
			return nil, DecisionRoomTransition
		}
		title := policy.RoomJoinedTitle
		if event.Kind == domain.EventRoomLeft {
			title = policy.RoomLeftTitle
		}
		return n.build(title, event.Kind, now, policy)

	case now.Before(n.activeUntil):
		return nil, DecisionWindow
	}

	if !event.HasUser() {
		return nil, DecisionNoEvent
	}
	if policy.TrackSelfIdentity && n.selfName != "" && event.UserName == n.selfName {
		return nil, DecisionSelf
	}

	name := sanitize.Title(event.UserName, sanitize.DefaultMaxTitleLength)
	switch event.Kind {
	case domain.EventPlayerJoined:
		return n.build(domain.JoinedTitle(name), event.Kind, now, policy)
	case domain.EventPlayerLeft:
		return n.build(domain.LeftTitle(name), event.Kind, now, policy)
	default:
		return nil, DecisionNoEvent
	}
}

func (n *Notifier) learnSelf(event *domain.Event, policy *Policy) {
	if !policy.TrackSelfIdentity || !event.HasUser() || event.UserName == n.selfName {
		return
	}
	n.selfName = event.UserName
	log.Info().Str("user", sanitize.String(n.selfName, sanitize.DefaultMaxTitleLength)).Msg("Authenticated user identified")
}

func (n *Notifier) build(title string, kind domain.EventKind, now time.Time, policy *Policy) (*domain.Notification, Decision) {
	title = sanitize.Title(title, sanitize.DefaultMaxTitleLength)

	if policy.DedupWindow > 0 {
		if _, seen := n.recent.Get(title, now); seen {
			return nil, DecisionDuplicate
		}
		n.recent.Put(title, struct{}{}, now, policy.DedupWindow)
	}

	notification := domain.NewNotification(title).
		WithTimeout(policy.NotificationTimeout).
		WithKind(kind)
	return notification, DecisionNotify
}

// ProcessLine implements ports.LineConsumer. Sink failures are logged and
// counted; they never change suppression state.
func (n *Notifier) ProcessLine(line *domain.LogLine, isFirstRead bool) {
	notification, decision := n.Decide(line, isFirstRead)

	if line.HasEvent() && n.collector != nil {
		n.collector.IncrementNotifications(decision.String())
	}
	if notification == nil {
		if line.HasEvent() {
			n.metrics.IncrementDropped()
			log.Debug().
				Str("event", line.Event.String()).
				Str("decision", decision.String()).
				Msg("Notification suppressed")
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.Policy().SendTimeout)
	defer cancel()
	_ = n.Send(ctx, notification)
}

// Send delivers one notification and records the outcome. The error is
// returned for callers that care; ProcessLine ignores it.
func (n *Notifier) Send(ctx context.Context, notification *domain.Notification) error {
	if err := n.sink.Send(ctx, notification); err != nil {
		kind := "other"
		var sinkErr ports.SinkError
		if errors.As(err, &sinkErr) {
			kind = sinkErr.ErrorKind()
		}

		n.metrics.IncrementFailed()
		if n.collector != nil {
			n.collector.IncrementSinkErrors(kind)
		}
		log.Error().
			Err(err).
			Str("kind", kind).
			Str("title", notification.Title).
			Msg("Failed to send notification")
		return err
	}

	n.metrics.IncrementSent()
	log.Info().Str("title", notification.Title).Msg("Notification sent")
	return nil
}
