package generation

import (
	"errors"
	"fmt"
	"math"
)

// Params are the decoding parameters of one generation call. Lengths are in
// model tokens, not words.
type Params struct {
	MaxLength         int     `yaml:"maxLength"`
	MinLength         int     `yaml:"minLength"`
	BeamCount         int     `yaml:"beamCount"`
	LengthPenalty     float64 `yaml:"lengthPenalty"`
	NoRepeatNgramSize int     `yaml:"noRepeatNgramSize"`
}

// DefaultParams returns the decoding parameters used for minutes.
func DefaultParams() Params {
	return Params{
		MaxLength:         250,
		MinLength:         50,
		BeamCount:         4,
		LengthPenalty:     2.0,
		NoRepeatNgramSize: 3,
	}
}

// Validate rejects parameter sets beam search cannot honor.
func (p Params) Validate() error {
	if p.MaxLength <= 0 {
		return errors.New("max_length must be positive")
	}
	if p.MinLength < 0 {
		return errors.New("min_length cannot be negative")
	}
	if p.MinLength > p.MaxLength {
		return fmt.Errorf("min_length (%d) exceeds max_length (%d)", p.MinLength, p.MaxLength)
	}
	if p.BeamCount <= 0 {
		return errors.New("beam_count must be positive")
	}
	if math.IsNaN(p.LengthPenalty) || math.IsInf(p.LengthPenalty, 0) {
		return errors.New("length_penalty must be finite")
	}
	if p.NoRepeatNgramSize < 0 {
		return errors.New("no_repeat_ngram_size cannot be negative")
	}
	return nil
}
