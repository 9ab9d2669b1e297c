// Package minutes turns raw generated text into client-facing minutes.
package minutes

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode"
)

// Mode selects the presentation of the minutes.
type Mode string

const (
	ModeBullets    Mode = "bullets"
	ModeStructured Mode = "structured"
)

// Placeholder is returned when the model produced nothing usable.
const Placeholder = "No summary generated."

const structuredHeader = "Meeting Minutes:\n\nKey Points:\n"

// ParseMode maps a request value to a Mode. Empty selects bullets.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ModeBullets:
		return ModeBullets, nil
	case ModeStructured:
		return ModeStructured, nil
	default:
		return "", fmt.Errorf("unknown format %q", raw)
	}
}

// Formatter renders engine output. It never fails: if rendering panics the
// summary is returned untouched and the panic is logged.
type Formatter struct {
	render func(summary string, mode Mode) string
	logger *slog.Logger
}

// NewFormatter constructs a Formatter that reports recovered panics to logger.
func NewFormatter(logger *slog.Logger) *Formatter {
	return &Formatter{render: render, logger: logger.With("component", "minutes.formatter")}
}

// Format renders summary in the requested mode.
func (f *Formatter) Format(summary string, mode Mode) (out string) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("minutes formatting failed", "mode", string(mode), "panic", r)
			out = summary
		}
	}()
	return f.render(summary, mode)
}

func render(summary string, mode Mode) string {
	if mode == ModeStructured {
		return structured(summary)
	}
	return bullets(summary)
}

// bullets deliberately leaves the model text as-is apart from trimming.
func bullets(summary string) string {
	trimmed := strings.TrimSpace(summary)
	if trimmed == "" {
		return Placeholder
	}
	return trimmed
}

func structured(summary string) string {
	sentences := SplitSentences(summary)
	if len(sentences) == 0 {
		return Placeholder
	}
	var b strings.Builder
	b.WriteString(structuredHeader)
	for i, s := range sentences {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("  • ")
		b.WriteString(s)
	}
	return b.String()
}

// SplitSentences cuts text after '.', '!' or '?' when whitespace follows.
// Abbreviations and decimals followed by a space are split too.
func SplitSentences(text string) []string {
	var (
		out   []string
		start = 0
		prev  rune
	)
	flush := func(end int) {
		if s := strings.TrimSpace(text[start:end]); s != "" {
			out = append(out, s)
		}
	}
	for i, r := range text {
		if unicode.IsSpace(r) && isTerminal(prev) {
			flush(i)
			start = i
		}
		prev = r
	}
	flush(len(text))
	return out
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
