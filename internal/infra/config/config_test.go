package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsPerBinary(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")

	ml, err := LoadMLService()
	require.NoError(t, err)
	require.Equal(t, ":5001", ml.HTTP.Address)
	require.Equal(t, 1500, ml.Input.MaxWords)
	require.Equal(t, "ngram-base", ml.Model.BaseModel)
	require.Equal(t, 250, ml.Generation.MaxLength)
	require.Equal(t, 50, ml.Generation.MinLength)
	require.Equal(t, 4, ml.Generation.NumBeams)
	require.Equal(t, 2.0, ml.Generation.LengthPenalty)
	require.Equal(t, 3, ml.Generation.NoRepeatNgramSize)

	backend, err := LoadBackend()
	require.NoError(t, err)
	require.Equal(t, ":5002", backend.HTTP.Address)
	require.Equal(t, "http://localhost:5001", backend.MLService.URL)
	require.Equal(t, 60*time.Second, backend.MLService.Timeout)
	require.Equal(t, 5*time.Second, backend.MLService.HealthTimeout)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
input:
  maxWords: 800
model:
  path: team/minutes-v2
  device: cpu
generation:
  numBeams: 2
mlservice:
  timeout: 30s
`), 0o644))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("MAX_INPUT_LENGTH", "900")
	t.Setenv("MLSERVICE_URL", "http://mlservice:5001")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000, https://minutes.example.com")
	t.Setenv("SUMMARY_CACHE_ENABLED", "true")
	t.Setenv("SUMMARY_CACHE_ADDR", "localhost:6379")

	cfg, err := LoadBackend()
	require.NoError(t, err)
	require.Equal(t, 900, cfg.Input.MaxWords)
	require.Equal(t, "team/minutes-v2", cfg.Model.Path)
	require.Equal(t, "cpu", cfg.Model.Device)
	require.Equal(t, 2, cfg.Generation.NumBeams)
	require.Equal(t, 250, cfg.Generation.MaxLength)
	require.Equal(t, 30*time.Second, cfg.MLService.Timeout)
	require.Equal(t, "http://mlservice:5001", cfg.MLService.URL)
	require.Equal(t, []string{"http://localhost:3000", "https://minutes.example.com"}, cfg.HTTP.AllowedOrigins)
	require.True(t, cfg.Cache.Enabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "min above max", mutate: func(c *Config) { c.Generation.MinLength = 300 }, wantErr: "cannot exceed"},
		{name: "zero beams", mutate: func(c *Config) { c.Generation.NumBeams = 0 }, wantErr: "numBeams"},
		{name: "bad device", mutate: func(c *Config) { c.Model.Device = "tpu" }, wantErr: "model.device"},
		{name: "cache without addr", mutate: func(c *Config) { c.Cache.Enabled = true }, wantErr: "cache.addr"},
		{name: "short jwt secret", mutate: func(c *Config) { c.Auth.Enabled = true; c.Auth.JWTSecret = "short" }, wantErr: "jwtSecret"},
		{name: "zero generation timeout", mutate: func(c *Config) { c.Generation.Timeout = 0 }, wantErr: "generation.timeout"},
		{name: "empty cache dir", mutate: func(c *Config) { c.Model.CacheDir = " " }, wantErr: "model.cacheDir"},
		{name: "zero ceiling", mutate: func(c *Config) { c.Input.MaxWords = 0 }, wantErr: "maxWords"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := defaultConfig()
			cfg.HTTP.Address = ":0"
			tt.mutate(cfg)
			require.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestLoadRejectsInvalidGenerationEnv(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("GEN_MIN_LENGTH", "400")

	_, err := LoadMLService()
	require.ErrorContains(t, err, "cannot exceed")
}
