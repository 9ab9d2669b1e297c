// Package generation runs deterministic beam-search summarization over a
// loaded model handle.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yanqian/transcript2minutes/internal/domain/model"
	apperrors "github.com/yanqian/transcript2minutes/pkg/errors"
)

const (
	// DefaultPrefix is the task instruction prepended to every input.
	DefaultPrefix = "summarize: "
	// DefaultMaxInputTokens bounds the encoded input. Longer input is
	// truncated without any signal to the caller.
	DefaultMaxInputTokens = 512
)

// Config configures an Engine.
type Config struct {
	Params         Params
	Prefix         string
	MaxInputTokens int
}

// Engine owns one model handle for the process lifetime. It holds no
// mutable state and serves concurrent callers.
type Engine struct {
	handle *model.Handle
	cfg    Config
	logger *slog.Logger
}

// NewEngine validates cfg and binds it to handle.
func NewEngine(handle *model.Handle, cfg Config, logger *slog.Logger) (*Engine, error) {
	if handle == nil || handle.Tokenizer == nil || handle.Network == nil {
		return nil, errors.New("generation engine requires a loaded model")
	}
	if err := cfg.Params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid default generation params: %w", err)
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.MaxInputTokens <= 1 {
		cfg.MaxInputTokens = DefaultMaxInputTokens
	}
	return &Engine{handle: handle, cfg: cfg, logger: logger.With("component", "generation.engine")}, nil
}

// ModelID identifies the loaded model.
func (e *Engine) ModelID() string { return e.handle.ID }

// Device reports where the model was placed.
func (e *Engine) Device() model.Device { return e.handle.Device }

// Defaults returns the parameters validated at construction.
func (e *Engine) Defaults() Params { return e.cfg.Params }

// Summarize generates a summary of text. Identical model, text and params
// always yield the same output.
func (e *Engine) Summarize(ctx context.Context, text string, params Params) (summary string, err error) {
	if err := params.Validate(); err != nil {
		return "", apperrors.Wrap(apperrors.CodeInvalidInput, "invalid generation params", err)
	}
	defer func() {
		if r := recover(); r != nil {
			summary = ""
			err = apperrors.Wrap(apperrors.CodeGeneration, "generation failed", fmt.Errorf("panic: %v", r))
		}
	}()

	tok := e.handle.Tokenizer
	source := e.encode(text)
	e.logger.Debug("generating summary",
		"input_chars", len(text),
		"input_tokens", len(source),
		"max_length", params.MaxLength,
		"min_length", params.MinLength,
		"beams", params.BeamCount,
	)

	ids, err := beamSearch(ctx, e.handle.Network, source, tok.Pad(), tok.EOS(), params)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeGeneration, "generation failed", err)
	}
	summary = strings.TrimSpace(tok.Decode(ids))
	e.logger.Debug("summary generated", "output_tokens", len(ids), "words", len(strings.Fields(summary)))
	return summary, nil
}

// encode prefixes the task instruction, truncates to the input budget and
// closes the sequence with EOS.
func (e *Engine) encode(text string) []int {
	tok := e.handle.Tokenizer
	ids := tok.Encode(e.cfg.Prefix + text)
	limit := e.cfg.MaxInputTokens - 1
	if len(ids) > limit {
		e.logger.Debug("input truncated", "tokens", len(ids), "kept", limit)
		ids = ids[:limit]
	}
	source := make([]int, len(ids), len(ids)+1)
	copy(source, ids)
	return append(source, tok.EOS())
}
