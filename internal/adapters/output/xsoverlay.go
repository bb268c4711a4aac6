package output

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/xoelrdgz/roomwatch/internal/domain"
)

const (
	DefaultXSOverlayHost = "127.0.0.1"
	DefaultXSOverlayPort = 42069
)

var (
	ErrEncode    = errors.New("notification encoding failed")
	ErrTransport = errors.New("notification transport failed")
	ErrClosed    = errors.New("sink closed")
)

type SendErrorKind int

const (
	SendErrorEncode SendErrorKind = iota
	SendErrorTransport
)

func (k SendErrorKind) String() string {
	if k == SendErrorEncode {
		return "encode"
	}
	return "transport"
}

// SendError is returned by XSOverlaySink.Send. Use errors.Is with ErrEncode
// or ErrTransport to tell the two failure kinds apart.
type SendError struct {
	Kind SendErrorKind
	Err  error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("xsoverlay %s: %v", e.Kind, e.Err)
}

// ErrorKind implements ports.SinkError.
func (e *SendError) ErrorKind() string {
	return e.Kind.String()
}

func (e *SendError) Unwrap() error {
	return e.Err
}

func (e *SendError) Is(target error) bool {
	switch target {
	case ErrEncode:
		return e.Kind == SendErrorEncode
	case ErrTransport:
		return e.Kind == SendErrorTransport
	}
	return false
}

type XSOverlayConfig struct {
	Host string
	Port int
	// SourceApp overrides the notification's sourceApp when set.
	SourceApp    string
	WriteTimeout time.Duration
}

func DefaultXSOverlayConfig() XSOverlayConfig {
	return XSOverlayConfig{
		Host:         DefaultXSOverlayHost,
		Port:         DefaultXSOverlayPort,
		SourceApp:    domain.DefaultSourceApp,
		WriteTimeout: time.Second,
	}
}

// XSOverlaySink sends each notification as one JSON datagram to the
// XSOverlay UDP endpoint. There is no acknowledgement and no retry.
//
// Thread Safety: safe for concurrent Send calls.
type XSOverlaySink struct {
	conn      *net.UDPConn
	raddr     *net.UDPAddr
	sourceApp string
	timeout   time.Duration

	mu     sync.Mutex
	closed bool
}

func NewXSOverlaySink(config XSOverlayConfig) (*XSOverlaySink, error) {
	if config.Host == "" {
		config.Host = DefaultXSOverlayHost
	}
	if config.Port <= 0 || config.Port > 65535 {
		config.Port = DefaultXSOverlayPort
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = time.Second
	}

	target := net.JoinHostPort(config.Host, strconv.Itoa(config.Port))
	raddr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", target, err)
	}

	// Unconnected, so a closed endpoint does not surface as ICMP errors on
	// later writes.
	var laddr *net.UDPAddr
	if raddr.IP.IsLoopback() {
		laddr = &net.UDPAddr{IP: raddr.IP}
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("bind udp socket: %w", err)
	}

	log.Debug().
		Str("local", conn.LocalAddr().String()).
		Str("target", target).
		Msg("XSOverlay sink ready")

	return &XSOverlaySink{
		conn:      conn,
		raddr:     raddr,
		sourceApp: config.SourceApp,
		timeout:   config.WriteTimeout,
	}, nil
}

func (s *XSOverlaySink) Target() string {
	return s.raddr.String()
}

func (s *XSOverlaySink) Send(ctx context.Context, n *domain.Notification) error {
	if n == nil {
		return &SendError{Kind: SendErrorEncode, Err: errors.New("nil notification")}
	}
	if s.sourceApp != "" {
		n.SourceApp = s.sourceApp
	}

	payload, err := n.ToJSON()
	if err != nil {
		return &SendError{Kind: SendErrorEncode, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return &SendError{Kind: SendErrorTransport, Err: ErrClosed}
	}
	if err := ctx.Err(); err != nil {
		return &SendError{Kind: SendErrorTransport, Err: err}
	}

	deadline := time.Now().Add(s.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return &SendError{Kind: SendErrorTransport, Err: err}
	}

	if _, err := s.conn.WriteToUDP(payload, s.raddr); err != nil {
		return &SendError{Kind: SendErrorTransport, Err: err}
	}

	log.Debug().
		Str("id", n.ID).
		Str("title", n.Title).
		Int("bytes", len(payload)).
		Msg("Notification sent")
	return nil
}

func (s *XSOverlaySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}
