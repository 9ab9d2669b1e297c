package inference

import (
	"time"

	"github.com/yanqian/transcript2minutes/internal/domain/transcript"
)

// DefaultGenerationTimeout bounds one shared engine run.
const DefaultGenerationTimeout = 2 * time.Minute

// Config configures the inference service.
type Config struct {
	MaxWords          int
	CacheTTL          time.Duration
	GenerationTimeout time.Duration
}

// Normalize fills zero values with defaults.
func (c Config) Normalize() Config {
	if c.MaxWords <= 0 {
		c.MaxWords = transcript.DefaultMaxWords
	}
	if c.GenerationTimeout <= 0 {
		c.GenerationTimeout = DefaultGenerationTimeout
	}
	return c
}

// Request is the summarize payload. Transcript is a pointer so an absent
// field can be told apart from an empty one.
type Request struct {
	Transcript *string `json:"transcript"`
	Format     string  `json:"format,omitempty"`
}

// Stats reports word counts of the input and the produced minutes.
type Stats struct {
	InputWords  int `json:"input_words"`
	OutputWords int `json:"output_words"`
}

// Response is returned by a successful summarize call.
type Response struct {
	Minutes string `json:"minutes"`
	Stats   Stats  `json:"stats"`
}

// Health describes the loaded model.
type Health struct {
	Status string `json:"status"`
	Model  string `json:"model"`
	Device string `json:"device"`
}

// CachedSummary is the unformatted engine output stored in the summary cache.
type CachedSummary struct {
	ModelID string `json:"model_id"`
	Summary string `json:"summary"`
}

// RunRecord is appended once per successful summarization.
type RunRecord struct {
	ID          string    `json:"id"`
	ModelID     string    `json:"model_id"`
	InputWords  int       `json:"input_words"`
	OutputWords int       `json:"output_words"`
	DurationMs  int64     `json:"duration_ms"`
	Cached      bool      `json:"cached"`
	CreatedAt   time.Time `json:"created_at"`
}
