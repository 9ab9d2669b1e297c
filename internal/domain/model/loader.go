package model

import (
	"context"
	"log/slog"
	"strings"
)

// DefaultBaseModel is the known-good reference used when the requested model
// cannot be opened.
const DefaultBaseModel = "ngram-base"

// LoaderConfig configures the fallback policy.
type LoaderConfig struct {
	BaseModel string
	// Device is "auto", "cpu" or "cuda".
	Device string
}

// Loader opens a model with at most one fallback attempt.
type Loader struct {
	cfg         LoaderConfig
	opener      Opener
	accelerator func() bool
	logger      *slog.Logger
}

// NewLoader constructs a Loader.
func NewLoader(cfg LoaderConfig, opener Opener, logger *slog.Logger) *Loader {
	if strings.TrimSpace(cfg.BaseModel) == "" {
		cfg.BaseModel = DefaultBaseModel
	}
	return &Loader{
		cfg:         cfg,
		opener:      opener,
		accelerator: DetectAccelerator,
		logger:      logger.With("component", "model.loader"),
	}
}

// Load opens ref, falling back to the base model exactly once. The returned
// error is a *LoadError when every attempt failed.
func (l *Loader) Load(ctx context.Context, ref string) (*Handle, error) {
	placement, err := SelectPlacement(l.cfg.Device, l.accelerator)
	if err != nil {
		return nil, &LoadError{Attempts: []Attempt{{Ref: ref, Err: err}}}
	}
	l.logger.Info("model placement selected", "device", placement.Device, "precision", placement.Precision)

	candidates := []string{ref}
	if ref != l.cfg.BaseModel {
		candidates = append(candidates, l.cfg.BaseModel)
	}

	loadErr := &LoadError{}
	for i, candidate := range candidates {
		l.logger.Info("loading model", "ref", candidate, "attempt", i+1)
		tok, network, err := l.opener.Open(ctx, candidate, placement)
		if err == nil {
			l.logger.Info("model ready", "ref", candidate, "fallback", i > 0)
			return &Handle{
				ID:        candidate,
				Tokenizer: tok,
				Network:   network,
				Device:    placement.Device,
				Precision: placement.Precision,
				Fallback:  i > 0,
			}, nil
		}
		loadErr.Attempts = append(loadErr.Attempts, Attempt{Ref: candidate, Err: err})
		if i+1 < len(candidates) {
			l.logger.Warn("model load failed, falling back to base model", "ref", candidate, "base", l.cfg.BaseModel, "error", err)
		}
	}
	l.logger.Error("model load exhausted fallback", "error", loadErr)
	return nil, loadErr
}
