// Package inference implements the model-owning tier: it validates a
// transcript, runs the generation engine and formats the minutes.
package inference

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/yanqian/transcript2minutes/internal/domain/generation"
	"github.com/yanqian/transcript2minutes/internal/domain/minutes"
	"github.com/yanqian/transcript2minutes/internal/domain/model"
	"github.com/yanqian/transcript2minutes/internal/domain/transcript"
	apperrors "github.com/yanqian/transcript2minutes/pkg/errors"
	"github.com/yanqian/transcript2minutes/pkg/metrics"
	"github.com/yanqian/transcript2minutes/pkg/util"
)

const (
	msgModelNotLoaded   = "Model not loaded"
	msgGenerationFailed = "Failed to generate summary"
	msgRunsFailed       = "Failed to load runs"
)

// Bounds for RecentRuns.
const (
	DefaultRecentRuns = 20
	MaxRecentRuns     = 100
)

// Engine is the generation capability the service owns.
type Engine interface {
	ModelID() string
	Device() model.Device
	Defaults() generation.Params
	Summarize(ctx context.Context, text string, params generation.Params) (string, error)
}

// Service exposes the inference operations.
type Service interface {
	Summarize(ctx context.Context, req Request) (Response, error)
	Health() Health
	// RecentRuns lists the latest run records, newest first.
	RecentRuns(ctx context.Context, limit int) ([]RunRecord, error)
}

type service struct {
	cfg       Config
	engine    Engine
	cache     Cache
	runs      RunRepository
	metrics   *metrics.Recorder
	group     singleflight.Group
	formatter *minutes.Formatter
	logger    *slog.Logger
}

// NewService is a wire provider for the inference domain. engine may be nil
// until a model is loaded; cache and runs may be nil to disable them.
func NewService(cfg Config, engine Engine, cache Cache, runs RunRepository, recorder *metrics.Recorder, logger *slog.Logger) Service {
	return &service{
		cfg:       cfg.Normalize(),
		engine:    engine,
		cache:     cache,
		runs:      runs,
		metrics:   recorder,
		formatter: minutes.NewFormatter(logger),
		logger:    logger.With("component", "inference.service"),
	}
}

func (s *service) Summarize(ctx context.Context, req Request) (resp Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("summarize panicked", "panic", r)
			resp, err = Response{}, apperrors.Wrap(apperrors.CodeInternal, msgGenerationFailed, fmt.Errorf("panic: %v", r))
		}
	}()

	if s.engine == nil {
		return Response{}, apperrors.Wrap(apperrors.CodeModelUnavailable, msgModelNotLoaded, nil)
	}
	input, err := transcript.Validate(req.Transcript, s.cfg.MaxWords)
	if err != nil {
		return Response{}, err
	}
	mode, err := minutes.ParseMode(req.Format)
	if err != nil {
		return Response{}, apperrors.Wrap(apperrors.CodeInvalidInput, err.Error(), nil)
	}

	start := time.Now()
	summary, cached, err := s.generate(ctx, input.Text)
	if err != nil {
		s.logger.Error("generation failed", "error", err, "input_words", input.Words)
		code := apperrors.CodeOf(err)
		if code != apperrors.CodeGeneration {
			code = apperrors.CodeInternal
		}
		return Response{}, apperrors.Wrap(code, msgGenerationFailed, err)
	}

	out := s.formatter.Format(summary, mode)
	stats := Stats{InputWords: input.Words, OutputWords: transcript.CountWords(out)}
	s.record(ctx, RunRecord{
		ID:          uuid.NewString(),
		ModelID:     s.engine.ModelID(),
		InputWords:  stats.InputWords,
		OutputWords: stats.OutputWords,
		DurationMs:  util.Since(start),
		Cached:      cached,
		CreatedAt:   util.NowUTC(),
	})
	return Response{Minutes: out, Stats: stats}, nil
}

func (s *service) Health() Health {
	if s.engine == nil {
		return Health{Status: "unavailable"}
	}
	return Health{Status: "healthy", Model: s.engine.ModelID(), Device: string(s.engine.Device())}
}

func (s *service) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	switch {
	case limit <= 0:
		limit = DefaultRecentRuns
	case limit > MaxRecentRuns:
		limit = MaxRecentRuns
	}
	if s.runs == nil {
		return []RunRecord{}, nil
	}
	records, err := s.runs.Recent(ctx, limit)
	if err != nil {
		s.logger.Error("run log read failed", "error", err)
		return nil, apperrors.Wrap(apperrors.CodeInternal, msgRunsFailed, err)
	}
	if records == nil {
		records = []RunRecord{}
	}
	return records, nil
}

// generate returns the raw summary for text, consulting the cache first.
// Concurrent callers with the same key share one engine run.
func (s *service) generate(ctx context.Context, text string) (string, bool, error) {
	params := s.engine.Defaults()
	key := cacheKey(s.engine.ModelID(), params, text)

	if s.cache != nil {
		entry, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("summary cache lookup failed", "error", err)
		}
		s.metrics.ObserveCache(ok)
		if ok {
			return entry.Summary, true, nil
		}
	}

	ch := s.group.DoChan(key, func() (v any, err error) {
		// DoChan runs this on its own goroutine, where a panic would kill
		// the process.
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("generation panicked", "panic", r)
				v, err = "", fmt.Errorf("generation panicked: %v", r)
			}
		}()
		return s.runEngine(ctx, key, text, params)
	})

	select {
	case <-ctx.Done():
		return "", false, apperrors.Wrap(apperrors.CodeGeneration, "generation abandoned", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", false, res.Err
		}
		return res.Val.(string), false, nil
	}
}

// runEngine is the shared body of a collapsed generation. It is detached from
// the first caller's cancellation so other waiters are unaffected when that
// caller goes away, and bounded by GenerationTimeout instead.
func (s *service) runEngine(ctx context.Context, key, text string, params generation.Params) (string, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.GenerationTimeout)
	defer cancel()

	start := time.Now()
	summary, err := s.engine.Summarize(ctx, text, params)
	s.metrics.ObserveGeneration(time.Since(start), err)
	if err != nil {
		return "", err
	}
	s.logger.Info("summary generated", "model", s.engine.ModelID(), "duration_ms", util.Since(start))
	if s.cache != nil {
		entry := CachedSummary{ModelID: s.engine.ModelID(), Summary: summary}
		if err := s.cache.Put(ctx, key, entry, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("summary cache store failed", "error", err)
		}
	}
	return summary, nil
}

func (s *service) record(ctx context.Context, rec RunRecord) {
	if s.runs == nil {
		return
	}
	if err := s.runs.Append(ctx, rec); err != nil {
		s.logger.Warn("run record append failed", "error", err, "run_id", rec.ID)
	}
}

func cacheKey(modelID string, p generation.Params, text string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%d\x00%d\x00%d\x00%g\x00%d\x00", modelID, p.MaxLength, p.MinLength, p.BeamCount, p.LengthPenalty, p.NoRepeatNgramSize)
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
