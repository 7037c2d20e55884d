// Package textclean turns raw OCR output into canonical text: allowlisted
// characters only, single spaces, no degenerate lines.
package textclean

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	DefaultPunctuation   = ".,-/:()"
	DefaultMinLineLength = 2
)

// EmptyMarker is how reports render canonical text with no surviving lines.
const EmptyMarker = "No valid text after cleaning"

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reWhitespace = regexp.MustCompile(`\s+`)
)

type Config struct {
	Punctuation   string
	MinLineLength int
}

type Cleaner struct {
	minLen     int
	disallowed *regexp.Regexp
}

// New builds a Cleaner. An empty punctuation set falls back to the default;
// MinLineLength 0 means the default.
func New(cfg Config) *Cleaner {
	if cfg.Punctuation == "" {
		cfg.Punctuation = DefaultPunctuation
	}
	if cfg.MinLineLength <= 0 {
		cfg.MinLineLength = DefaultMinLineLength
	}

	var class strings.Builder
	class.WriteString(`[^A-Za-z0-9\s`)
	for _, r := range cfg.Punctuation {
		fmt.Fprintf(&class, `\x{%X}`, r)
	}
	class.WriteString(`]`)

	return &Cleaner{
		minLen:     cfg.MinLineLength,
		disallowed: regexp.MustCompile(class.String()),
	}
}

var defaultCleaner = New(Config{})

// Clean applies the default allowlist.
func Clean(raw string) CanonicalText {
	return defaultCleaner.Clean(raw)
}

// Clean normalizes raw line by line, preserving line order.
func (c *Cleaner) Clean(raw string) CanonicalText {
	raw = reCRLF.ReplaceAllString(raw, "\n")

	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = c.disallowed.ReplaceAllString(strings.TrimSpace(line), "")
		line = strings.TrimSpace(reWhitespace.ReplaceAllString(line, " "))
		if utf8.RuneCountInString(line) < c.minLen {
			continue
		}
		lines = append(lines, line)
	}
	return CanonicalText{lines: lines}
}

// CanonicalText is cleaned OCR text. The zero value is the empty state.
type CanonicalText struct {
	lines []string
}

// FromLines wraps lines that are already canonical.
func FromLines(lines ...string) CanonicalText {
	return CanonicalText{lines: append([]string(nil), lines...)}
}

// IsEmpty reports whether no line survived cleaning.
func (c CanonicalText) IsEmpty() bool { return len(c.lines) == 0 }

func (c CanonicalText) String() string { return strings.Join(c.lines, "\n") }

func (c CanonicalText) Lines() []string { return append([]string(nil), c.lines...) }

// Display is String, or EmptyMarker for the empty state.
func (c CanonicalText) Display() string {
	if c.IsEmpty() {
		return EmptyMarker
	}
	return c.String()
}
