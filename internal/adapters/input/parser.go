package input

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xoelrdgz/roomwatch/internal/domain"
	"github.com/xoelrdgz/roomwatch/pkg/ahocorasick"
)

var (
	ErrInvalidLogFormat = errors.New("invalid log format")
	ErrUnknownLevel     = errors.New("unknown log level")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	ErrInvalidPattern   = errors.New("invalid event pattern")
)

const (
	vrchatTimeLayout = "2006.01.02 15:04:05"
	headerPattern    = `^(\d{4}\.\d{2}\.\d{2} \d{2}:\d{2}:\d{2}) (\S+) *- +(.*)$`
	namedGroup       = "name"
)

// userIDSuffix matches the opaque "(usr_...)" id VRChat appends to names.
var userIDSuffix = regexp.MustCompile(`^(.*?)\s*\((usr_[^()\s]*)\)\s*$`)

// EventPattern maps a body regex to an event kind. Keyword is a literal that
// must occur in every body the regex can match; it feeds the prefilter.
type EventPattern struct {
	Kind    domain.EventKind `mapstructure:"kind" json:"kind"`
	Keyword string           `mapstructure:"keyword" json:"keyword"`
	Regex   string           `mapstructure:"regex" json:"regex"`
}

type ParserConfig struct {
	Location *time.Location
	Patterns []EventPattern
}

// DefaultEventPatterns returns the built-in table in evaluation order.
func DefaultEventPatterns() []EventPattern {
	return []EventPattern{
		{Kind: domain.EventRoomJoined, Keyword: "OnJoinedRoom", Regex: `OnJoinedRoom`},
		{Kind: domain.EventPlayerJoined, Keyword: "OnPlayerJoined", Regex: `OnPlayerJoined (?P<name>.+)`},
		{Kind: domain.EventRoomLeft, Keyword: "OnLeftRoom", Regex: `OnLeftRoom`},
		{Kind: domain.EventPlayerLeft, Keyword: "OnPlayerLeft", Regex: `OnPlayerLeft (?P<name>.+)`},
		{Kind: domain.EventSelfAuthenticated, Keyword: "User Authenticated", Regex: `User Authenticated: (?P<name>.+)`},
	}
}

func DefaultParserConfig() ParserConfig {
	return ParserConfig{
		Location: time.Local,
		Patterns: DefaultEventPatterns(),
	}
}

type compiledPattern struct {
	kind    domain.EventKind
	re      *regexp.Regexp
	nameIdx int
	always  bool
}

// VRChatParser turns "YYYY.MM.DD HH:MM:SS <Level> -  <body>" lines into
// domain log lines. All regexes are compiled by the constructor; Parse is
// safe for concurrent use.
//
// The prefilter holds one keyword per pattern, at the same index. Empty
// keywords never match.
type VRChatParser struct {
	header    *regexp.Regexp
	loc       *time.Location
	patterns  []compiledPattern
	prefilter *ahocorasick.Matcher
}

func NewVRChatParser(cfg ParserConfig) (*VRChatParser, error) {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if len(cfg.Patterns) == 0 {
		cfg.Patterns = DefaultEventPatterns()
	}

	p := &VRChatParser{
		header:   regexp.MustCompile(headerPattern),
		loc:      cfg.Location,
		patterns: make([]compiledPattern, 0, len(cfg.Patterns)),
	}

	keywords := make([]string, 0, len(cfg.Patterns))
	for i, ep := range cfg.Patterns {
		cp, err := compilePattern(ep)
		if err != nil {
			return nil, fmt.Errorf("pattern %d (%s): %w", i, ep.Kind, err)
		}
		keywords = append(keywords, ep.Keyword)
		p.patterns = append(p.patterns, cp)
	}
	// Case-insensitive so a (?i) regex is never filtered out by its keyword.
	p.prefilter = ahocorasick.New(keywords)

	return p, nil
}

// MustNewVRChatParser panics on a bad configuration. Only for built-in tables.
func MustNewVRChatParser(cfg ParserConfig) *VRChatParser {
	p, err := NewVRChatParser(cfg)
	if err != nil {
		panic(err)
	}
	return p
}

func compilePattern(ep EventPattern) (compiledPattern, error) {
	if !ep.Kind.Valid() {
		return compiledPattern{}, fmt.Errorf("%w: unknown event kind %q", ErrInvalidPattern, ep.Kind)
	}
	if ep.Regex == "" {
		return compiledPattern{}, fmt.Errorf("%w: empty regex", ErrInvalidPattern)
	}
	re, err := regexp.Compile(ep.Regex)
	if err != nil {
		return compiledPattern{}, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}

	nameIdx := re.SubexpIndex(namedGroup)
	if ep.Kind.CarriesUser() && nameIdx < 0 {
		return compiledPattern{}, fmt.Errorf("%w: %s needs a (?P<name>...) group", ErrInvalidPattern, ep.Kind)
	}
	if ep.Keyword != "" && !strings.Contains(ep.Regex, ep.Keyword) {
		return compiledPattern{}, fmt.Errorf("%w: keyword %q does not occur in regex", ErrInvalidPattern, ep.Keyword)
	}

	return compiledPattern{
		kind:    ep.Kind,
		re:      re,
		nameIdx: nameIdx,
		always:  ep.Keyword == "",
	}, nil
}

func (p *VRChatParser) Parse(line string) (*domain.LogLine, error) {
	truncated := false
	if len(line) > domain.MaxLineLength {
		line = truncateUTF8(line, domain.MaxLineLength)
		truncated = true
	}

	m := p.header.FindStringSubmatch(line)
	if m == nil {
		return nil, ErrInvalidLogFormat
	}

	level, ok := domain.ParseLevel(m[2])
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLevel, m[2])
	}

	naive, err := time.Parse(vrchatTimeLayout, m[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTimestamp, err)
	}
	ts, err := domain.ResolveLocal(naive, p.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTimestamp, m[1], err)
	}

	body := m[3]
	return &domain.LogLine{
		Timestamp: ts,
		Level:     level,
		Event:     p.classify(body),
		Body:      strings.Clone(body),
		Truncated: truncated,
	}, nil
}

// classify returns the event of the first pattern, in table order, whose
// regex matches body.
func (p *VRChatParser) classify(body string) *domain.Event {
	candidate := p.prefilter.MarkMatches(body, nil)

	for i, cp := range p.patterns {
		if !cp.always && !candidate[i] {
			continue
		}
		sub := cp.re.FindStringSubmatch(body)
		if sub == nil {
			continue
		}
		event := &domain.Event{Kind: cp.kind}
		if cp.nameIdx >= 0 {
			event.UserName, event.UserID = splitUserName(sub[cp.nameIdx])
			// Nothing left once the id and padding are gone.
			if !event.HasUser() {
				continue
			}
		}
		return event
	}
	return nil
}

// splitUserName strips a trailing "(usr_...)" identifier and returns the
// display name trimmed of surrounding whitespace plus the identifier, if any.
func splitUserName(raw string) (name, id string) {
	name = raw
	if m := userIDSuffix.FindStringSubmatch(raw); m != nil {
		name, id = m[1], m[2]
	}
	name = strings.TrimSpace(name)
	if len(name) > domain.MaxUserNameSize {
		name = truncateUTF8(name, domain.MaxUserNameSize)
	}
	return strings.Clone(name), strings.Clone(id)
}

func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func (p *VRChatParser) Format() string {
	return "vrchat"
}

// Validate is a cheap shape check used by the follow command before parsing.
func (p *VRChatParser) Validate(line string) bool {
	return len(line) > len(vrchatTimeLayout) && line[4] == '.' && line[7] == '.' && line[10] == ' '
}

func (p *VRChatParser) Location() *time.Location {
	return p.loc
}
