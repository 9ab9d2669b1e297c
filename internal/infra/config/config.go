package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default listen addresses of the two tiers.
const (
	MLServiceAddress = ":5001"
	BackendAddress   = ":5002"
)

// Config aggregates runtime configuration used by both tiers. Each binary
// reads the sections it needs.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Input      InputConfig      `yaml:"input"`
	Model      ModelConfig      `yaml:"model"`
	Generation GenerationConfig `yaml:"generation"`
	MLService  MLServiceConfig  `yaml:"mlservice"`
	Cache      CacheConfig      `yaml:"cache"`
	RunLog     RunLogConfig     `yaml:"runLog"`
	Auth       AuthConfig       `yaml:"auth"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string          `yaml:"address"`
	ReadTimeout    time.Duration   `yaml:"readTimeout"`
	WriteTimeout   time.Duration   `yaml:"writeTimeout"`
	AllowedOrigins []string        `yaml:"allowedOrigins"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// InputConfig bounds accepted transcripts. Both tiers must load the same
// value.
type InputConfig struct {
	MaxWords int `yaml:"maxWords"`
}

// ModelConfig locates the model artifact.
type ModelConfig struct {
	Path      string      `yaml:"path"`
	BaseModel string      `yaml:"baseModel"`
	ModelsDir string      `yaml:"modelsDir"`
	CacheDir  string      `yaml:"cacheDir"`
	Device    string      `yaml:"device"`
	Store     StoreConfig `yaml:"store"`
}

// StoreConfig points at the S3-compatible bucket remote models are fetched from.
type StoreConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Prefix    string `yaml:"prefix"`
}

// Enabled reports whether a remote store is configured.
func (s StoreConfig) Enabled() bool {
	return strings.TrimSpace(s.Endpoint) != "" && strings.TrimSpace(s.Bucket) != ""
}

// GenerationConfig holds the default decoding parameters.
type GenerationConfig struct {
	MaxLength         int     `yaml:"maxLength"`
	MinLength         int     `yaml:"minLength"`
	NumBeams          int     `yaml:"numBeams"`
	LengthPenalty     float64 `yaml:"lengthPenalty"`
	NoRepeatNgramSize int     `yaml:"noRepeatNgramSize"`
	MaxInputTokens    int     `yaml:"maxInputTokens"`
	// Timeout bounds one engine run shared by collapsed requests.
	Timeout time.Duration `yaml:"timeout"`
}

// MLServiceConfig tells the backend where the inference tier lives.
type MLServiceConfig struct {
	URL           string        `yaml:"url"`
	Timeout       time.Duration `yaml:"timeout"`
	HealthTimeout time.Duration `yaml:"healthTimeout"`
}

// CacheConfig controls the summary cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Addr    string        `yaml:"addr"`
	TTL     time.Duration `yaml:"ttl"`
}

// RunLogConfig contains DSN and pooling settings for the run log.
type RunLogConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
}

// AuthConfig controls bearer token checks on the public tier.
type AuthConfig struct {
	Enabled   bool          `yaml:"enabled"`
	JWTSecret string        `yaml:"jwtSecret"`
	Issuer    string        `yaml:"issuer"`
	TokenTTL  time.Duration `yaml:"tokenTtl"`
}

// LoadMLService loads configuration for the inference tier.
func LoadMLService() (*Config, error) {
	return load(MLServiceAddress)
}

// LoadBackend loads configuration for the public tier.
func LoadBackend() (*Config, error) {
	return load(BackendAddress)
}

// load reads .env, a YAML file and environment variables, in that order of
// increasing precedence.
func load(address string) (*Config, error) {
	cfg := defaultConfig()
	cfg.HTTP.Address = address

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.HTTP.Address, "HTTP_ADDRESS")
	setDuration(&cfg.HTTP.ReadTimeout, "HTTP_READ_TIMEOUT")
	setDuration(&cfg.HTTP.WriteTimeout, "HTTP_WRITE_TIMEOUT")
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	setBool(&cfg.HTTP.RateLimit.Enabled, "HTTP_RATE_LIMIT_ENABLED")
	setInt(&cfg.HTTP.RateLimit.RequestsPerMinute, "HTTP_RATE_LIMIT_RPM")
	setInt(&cfg.HTTP.RateLimit.Burst, "HTTP_RATE_LIMIT_BURST")

	setInt(&cfg.Input.MaxWords, "MAX_INPUT_LENGTH")

	setString(&cfg.Model.Path, "MODEL_PATH")
	setString(&cfg.Model.BaseModel, "BASE_MODEL")
	setString(&cfg.Model.ModelsDir, "MODELS_DIR")
	setString(&cfg.Model.CacheDir, "MODEL_CACHE_DIR")
	setString(&cfg.Model.Device, "MODEL_DEVICE")
	setString(&cfg.Model.Store.Endpoint, "MODEL_STORE_ENDPOINT")
	setString(&cfg.Model.Store.AccessKey, "MODEL_STORE_ACCESS_KEY")
	setString(&cfg.Model.Store.SecretKey, "MODEL_STORE_SECRET_KEY")
	setString(&cfg.Model.Store.Bucket, "MODEL_STORE_BUCKET")
	setString(&cfg.Model.Store.Region, "MODEL_STORE_REGION")
	setString(&cfg.Model.Store.Prefix, "MODEL_STORE_PREFIX")

	setInt(&cfg.Generation.MaxLength, "GEN_MAX_LENGTH")
	setInt(&cfg.Generation.MinLength, "GEN_MIN_LENGTH")
	setInt(&cfg.Generation.NumBeams, "GEN_NUM_BEAMS")
	if v := os.Getenv("GEN_LENGTH_PENALTY"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Generation.LengthPenalty = parsed
		}
	}
	setInt(&cfg.Generation.NoRepeatNgramSize, "GEN_NO_REPEAT_NGRAM_SIZE")
	setInt(&cfg.Generation.MaxInputTokens, "GEN_MAX_INPUT_TOKENS")
	setDuration(&cfg.Generation.Timeout, "GEN_TIMEOUT")

	setString(&cfg.MLService.URL, "MLSERVICE_URL")
	setDuration(&cfg.MLService.Timeout, "MLSERVICE_TIMEOUT")
	setDuration(&cfg.MLService.HealthTimeout, "MLSERVICE_HEALTH_TIMEOUT")

	setBool(&cfg.Cache.Enabled, "SUMMARY_CACHE_ENABLED")
	setString(&cfg.Cache.Addr, "SUMMARY_CACHE_ADDR")
	setDuration(&cfg.Cache.TTL, "SUMMARY_CACHE_TTL")

	setString(&cfg.RunLog.DSN, "RUNLOG_POSTGRES_DSN")
	if v := os.Getenv("RUNLOG_POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.RunLog.MaxConns = int32(parsed)
		}
	}

	setBool(&cfg.Auth.Enabled, "AUTH_ENABLED")
	setString(&cfg.Auth.JWTSecret, "AUTH_JWT_SECRET")
	setString(&cfg.Auth.Issuer, "AUTH_ISSUER")
	setDuration(&cfg.Auth.TokenTTL, "AUTH_TOKEN_TTL")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "1" || strings.EqualFold(v, "true")
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			*dst = parsed
		}
	}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   90 * time.Second,
			AllowedOrigins: []string{"*"},
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 30,
				Burst:             10,
			},
		},
		Input: InputConfig{MaxWords: 1500},
		Model: ModelConfig{
			Path:      "models/minutes",
			BaseModel: "ngram-base",
			ModelsDir: "models",
			CacheDir:  ".cache/models",
			Device:    "auto",
			Store:     StoreConfig{Prefix: "models"},
		},
		Generation: GenerationConfig{
			MaxLength:         250,
			MinLength:         50,
			NumBeams:          4,
			LengthPenalty:     2.0,
			NoRepeatNgramSize: 3,
			MaxInputTokens:    512,
			Timeout:           2 * time.Minute,
		},
		MLService: MLServiceConfig{
			URL:           "http://localhost:5001",
			Timeout:       60 * time.Second,
			HealthTimeout: 5 * time.Second,
		},
		Cache: CacheConfig{
			Enabled: false,
			TTL:     24 * time.Hour,
		},
		RunLog: RunLogConfig{MaxConns: 4},
		Auth: AuthConfig{
			Enabled:  false,
			Issuer:   "transcript2minutes",
			TokenTTL: 24 * time.Hour,
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if c.Input.MaxWords <= 0 {
		return errors.New("input.maxWords must be positive")
	}
	if strings.TrimSpace(c.Model.Path) == "" {
		return errors.New("model.path cannot be empty")
	}
	if strings.TrimSpace(c.Model.CacheDir) == "" {
		return errors.New("model.cacheDir cannot be empty")
	}
	switch c.Model.Device {
	case "auto", "cpu", "cuda":
	default:
		return fmt.Errorf("model.device must be auto, cpu or cuda, got %q", c.Model.Device)
	}
	if err := c.Generation.validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.MLService.URL) == "" {
		return errors.New("mlservice.url cannot be empty")
	}
	if c.MLService.Timeout <= 0 {
		return errors.New("mlservice.timeout must be positive")
	}
	if c.MLService.HealthTimeout <= 0 {
		return errors.New("mlservice.healthTimeout must be positive")
	}
	if c.Cache.Enabled && strings.TrimSpace(c.Cache.Addr) == "" {
		return errors.New("cache.addr cannot be empty when the summary cache is enabled")
	}
	if c.Cache.TTL < 0 {
		return errors.New("cache.ttl cannot be negative")
	}
	if c.Auth.Enabled && len(c.Auth.JWTSecret) < 16 {
		return errors.New("auth.jwtSecret must be at least 16 characters when auth is enabled")
	}
	return nil
}

func (g GenerationConfig) validate() error {
	switch {
	case g.MaxLength < 1:
		return errors.New("generation.maxLength must be positive")
	case g.MinLength < 0:
		return errors.New("generation.minLength cannot be negative")
	case g.MinLength > g.MaxLength:
		return fmt.Errorf("generation.minLength (%d) cannot exceed generation.maxLength (%d)", g.MinLength, g.MaxLength)
	case g.NumBeams < 1:
		return errors.New("generation.numBeams must be positive")
	case g.NoRepeatNgramSize < 0:
		return errors.New("generation.noRepeatNgramSize cannot be negative")
	case math.IsNaN(g.LengthPenalty) || math.IsInf(g.LengthPenalty, 0):
		return errors.New("generation.lengthPenalty must be finite")
	case g.MaxInputTokens < 2:
		return errors.New("generation.maxInputTokens must be at least 2")
	case g.Timeout <= 0:
		return errors.New("generation.timeout must be positive")
	}
	return nil
}
