// Package orchestrator implements the public tier: it validates transcripts
// and forwards them to the inference service.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"

	"github.com/yanqian/transcript2minutes/internal/domain/transcript"
	"github.com/yanqian/transcript2minutes/internal/infra/mlclient"
	apperrors "github.com/yanqian/transcript2minutes/pkg/errors"
	"github.com/yanqian/transcript2minutes/pkg/metrics"
)

const (
	msgUnavailable = "MLservice is not available. Please try again later."
	msgTimeout     = "Request timeout. Transcript may be too long."
	msgUpstream    = "Failed to generate minutes. Please try again."
	msgUnexpected  = "An unexpected error occurred"
)

// Upstream statuses reported by Health.
const (
	UpstreamHealthy     = "healthy"
	UpstreamUnhealthy   = "unhealthy"
	UpstreamUnreachable = "unreachable"
)

// Upstream is the inference service client.
type Upstream interface {
	Summarize(ctx context.Context, req mlclient.SummarizeRequest) (mlclient.Reply, error)
	Health(ctx context.Context) (int, error)
}

// Config configures the orchestrator.
type Config struct {
	// MaxWords must equal the inference service ceiling.
	MaxWords int
}

// Request is the public summarize payload.
type Request struct {
	Transcript *string `json:"transcript"`
	Format     string  `json:"format,omitempty"`
}

// Result is the upstream success response, relayed verbatim.
type Result struct {
	Status      int
	ContentType string
	Body        []byte
}

// Health is the public health report.
type Health struct {
	Status    string `json:"status"`
	MLService string `json:"mlservice"`
}

// Service exposes orchestrator operations.
type Service interface {
	Summarize(ctx context.Context, req Request) (Result, error)
	Health(ctx context.Context) Health
}

type service struct {
	cfg      Config
	upstream Upstream
	metrics  *metrics.Recorder
	logger   *slog.Logger
}

// NewService is a wire provider for the orchestrator domain.
func NewService(cfg Config, upstream Upstream, recorder *metrics.Recorder, logger *slog.Logger) Service {
	if cfg.MaxWords <= 0 {
		cfg.MaxWords = transcript.DefaultMaxWords
	}
	return &service{cfg: cfg, upstream: upstream, metrics: recorder, logger: logger.With("component", "orchestrator.service")}
}

func (s *service) Summarize(ctx context.Context, req Request) (Result, error) {
	input, err := transcript.Validate(req.Transcript, s.cfg.MaxWords)
	if err != nil {
		return Result{}, err
	}

	reply, err := s.upstream.Summarize(ctx, mlclient.SummarizeRequest{Transcript: input.Text, Format: req.Format})
	if err != nil {
		return Result{}, s.translate(err)
	}
	return Result{Status: reply.Status, ContentType: reply.ContentType, Body: reply.Body}, nil
}

// translate maps a client failure to a fixed public message. Upstream
// detail is only logged.
func (s *service) translate(err error) error {
	var statusErr *mlclient.StatusError
	switch {
	case errors.Is(err, mlclient.ErrUnreachable):
		s.logger.Error("mlservice unreachable", "error", err)
		s.metrics.ObserveUpstreamFailure("unreachable")
		return apperrors.Wrap(apperrors.CodeUpstreamUnavailable, msgUnavailable, err)
	case errors.Is(err, mlclient.ErrTimeout):
		s.logger.Error("mlservice timed out", "error", err)
		s.metrics.ObserveUpstreamFailure("timeout")
		return apperrors.Wrap(apperrors.CodeUpstreamTimeout, msgTimeout, err)
	case errors.As(err, &statusErr):
		s.logger.Error("mlservice returned error", "status", statusErr.Status, "body", string(statusErr.Body))
		s.metrics.ObserveUpstreamFailure("status")
		return apperrors.Wrap(apperrors.CodeUpstreamError, msgUpstream, err)
	default:
		s.logger.Error("forwarding to mlservice failed", "error", err)
		s.metrics.ObserveUpstreamFailure("other")
		return apperrors.Wrap(apperrors.CodeInternal, msgUnexpected, err)
	}
}

// Health never fails; the upstream check result is informational.
func (s *service) Health(ctx context.Context) Health {
	status, err := s.upstream.Health(ctx)
	switch {
	case err != nil:
		s.logger.Warn("mlservice health check failed", "error", err)
		return Health{Status: "healthy", MLService: UpstreamUnreachable}
	case status == 200:
		return Health{Status: "healthy", MLService: UpstreamHealthy}
	default:
		return Health{Status: "healthy", MLService: UpstreamUnhealthy}
	}
}
