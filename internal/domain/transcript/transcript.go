// Package transcript holds the input checks shared by the orchestrator and
// the inference service. Both tiers must reject the same inputs.
package transcript

import (
	"fmt"
	"strings"

	apperrors "github.com/yanqian/transcript2minutes/pkg/errors"
)

// DefaultMaxWords is the word ceiling used when none is configured.
const DefaultMaxWords = 1500

// Input is a validated transcript.
type Input struct {
	Text  string
	Words int
}

// Validate trims the transcript and enforces presence, non-emptiness and the
// word ceiling. A nil pointer means the field was absent from the request.
func Validate(raw *string, maxWords int) (Input, error) {
	if raw == nil {
		return Input{}, apperrors.Wrap(apperrors.CodeInvalidInput, "Missing transcript field", nil)
	}
	text := strings.TrimSpace(*raw)
	if text == "" {
		return Input{}, apperrors.Wrap(apperrors.CodeInvalidInput, "Transcript cannot be empty", nil)
	}
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}
	words := CountWords(text)
	if words > maxWords {
		return Input{}, apperrors.Wrap(apperrors.CodeInvalidInput,
			fmt.Sprintf("Transcript too long. Maximum %d words allowed. Got %d words.", maxWords, words), nil)
	}
	return Input{Text: text, Words: words}, nil
}

// CountWords counts whitespace-delimited words.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
