// Package ahocorasick implements Aho-Corasick multi-pattern string matching.
//
// The automaton finds every occurrence of any of a fixed set of keywords in
// one pass over the text, O(n + m + z) for text length n, total keyword
// length m and z matches. roomwatch uses it to decide which event regexes
// are worth running against a log body at all: most VRChat log lines carry
// none of the event keywords.
//
// Thread Safety: a Matcher is immutable after construction and safe for
// concurrent use.
package ahocorasick

import "unicode"

// Matcher is an Aho-Corasick automaton over a set of keywords.
type Matcher struct {
	root          *node
	patterns      []string
	caseSensitive bool
}

type node struct {
	children map[rune]*node
	fail     *node
	output   []int // Pattern indices matching at this state
}

// New builds a case-insensitive matcher. Empty patterns are kept for index
// alignment but never match.
func New(patterns []string) *Matcher {
	return build(patterns, false)
}

// NewCaseSensitive builds a matcher that compares runes exactly.
func NewCaseSensitive(patterns []string) *Matcher {
	return build(patterns, true)
}

func build(patterns []string, caseSensitive bool) *Matcher {
	m := &Matcher{
		root:          newNode(),
		patterns:      patterns,
		caseSensitive: caseSensitive,
	}

	for i, pattern := range patterns {
		if pattern == "" {
			continue
		}
		m.addPattern(pattern, i)
	}
	m.buildFailureLinks()

	return m
}

func newNode() *node {
	return &node{children: make(map[rune]*node)}
}

func (m *Matcher) fold(r rune) rune {
	if m.caseSensitive {
		return r
	}
	return unicode.ToLower(r)
}

func (m *Matcher) addPattern(pattern string, index int) {
	current := m.root
	for _, r := range pattern {
		r = m.fold(r)
		next, ok := current.children[r]
		if !ok {
			next = newNode()
			current.children[r] = next
		}
		current = next
	}
	current.output = append(current.output, index)
}

// buildFailureLinks sets every node's failure link to the longest proper
// suffix that is also a trie path, breadth first from the root.
func (m *Matcher) buildFailureLinks() {
	queue := make([]*node, 0, len(m.root.children))

	for _, child := range m.root.children {
		child.fail = m.root
		queue = append(queue, child)
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for r, child := range current.children {
			queue = append(queue, child)

			fail := current.fail
			for fail != nil {
				if next, ok := fail.children[r]; ok {
					child.fail = next
					child.output = append(child.output, next.output...)
					break
				}
				fail = fail.fail
			}
			if child.fail == nil {
				child.fail = m.root
			}
		}
	}
}

// scan feeds text through the automaton and calls hit with the output of
// every state that has one. Scanning stops early when hit returns false.
func (m *Matcher) scan(text string, hit func(output []int) bool) {
	current := m.root
	for _, r := range text {
		r = m.fold(r)

		for current != m.root {
			if _, ok := current.children[r]; ok {
				break
			}
			current = current.fail
		}
		if next, ok := current.children[r]; ok {
			current = next
		}

		if len(current.output) > 0 && !hit(current.output) {
			return
		}
	}
}

// Match reports whether any pattern occurs in text.
func (m *Matcher) Match(text string) bool {
	found := false
	m.scan(text, func([]int) bool {
		found = true
		return false
	})
	return found
}

// MatchAll returns the indices of all patterns occurring in text, each at
// most once, in order of first occurrence.
func (m *Matcher) MatchAll(text string) []int {
	var matches []int
	seen := make(map[int]bool)

	m.scan(text, func(output []int) bool {
		for _, idx := range output {
			if !seen[idx] {
				seen[idx] = true
				matches = append(matches, idx)
			}
		}
		return true
	})
	return matches
}

// MarkMatches sets dst[i] for every pattern i occurring in text and returns
// dst, grown to PatternCount if it was shorter. Existing true entries are
// left alone, so callers reusing a buffer should clear it first.
func (m *Matcher) MarkMatches(text string, dst []bool) []bool {
	if len(dst) < len(m.patterns) {
		grown := make([]bool, len(m.patterns))
		copy(grown, dst)
		dst = grown
	}
	m.scan(text, func(output []int) bool {
		for _, idx := range output {
			dst[idx] = true
		}
		return true
	})
	return dst
}

// PatternCount returns the number of patterns in the automaton.
func (m *Matcher) PatternCount() int {
	return len(m.patterns)
}

// Pattern returns the i-th pattern as given to the constructor.
func (m *Matcher) Pattern(i int) string {
	return m.patterns[i]
}

func (m *Matcher) CaseSensitive() bool {
	return m.caseSensitive
}
