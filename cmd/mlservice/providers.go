package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/transcript2minutes/internal/domain/generation"
	"github.com/yanqian/transcript2minutes/internal/domain/inference"
	"github.com/yanqian/transcript2minutes/internal/domain/model"
	"github.com/yanqian/transcript2minutes/internal/infra/config"
	"github.com/yanqian/transcript2minutes/internal/infra/modelstore"
	"github.com/yanqian/transcript2minutes/internal/infra/runlog"
	"github.com/yanqian/transcript2minutes/internal/infra/runtime/ngram"
	"github.com/yanqian/transcript2minutes/internal/infra/summarycache"
	"github.com/yanqian/transcript2minutes/internal/infra/tokenizer"
	"github.com/yanqian/transcript2minutes/pkg/logger"
	"github.com/yanqian/transcript2minutes/pkg/metrics"
)

func provideLogger() *slog.Logger {
	return logger.New("mlservice")
}

func provideMetrics() *metrics.Recorder {
	return metrics.New("mlservice")
}

// provideModelStore chains the configured bucket, if any, in front of the
// artifacts compiled into the binary.
func provideModelStore(cfg *config.Config, logger *slog.Logger) modelstore.ObjectStore {
	builtin := modelstore.Builtin()
	store := cfg.Model.Store
	if !store.Enabled() {
		logger.Info("model store not configured, resolving local and builtin artifacts only")
		return builtin
	}
	client, err := modelstore.NewMinioStore(modelstore.MinioConfig{
		Endpoint:  store.Endpoint,
		AccessKey: store.AccessKey,
		SecretKey: store.SecretKey,
		Bucket:    store.Bucket,
		Region:    store.Region,
		Prefix:    store.Prefix,
	}, logger)
	if err != nil {
		logger.Error("invalid model store configuration, resolving local and builtin artifacts only", "error", err)
		return builtin
	}
	logger.Info("model store enabled", "endpoint", store.Endpoint, "bucket", store.Bucket)
	return modelstore.NewMultiStore(client, builtin)
}

func provideResolver(cfg *config.Config, store modelstore.ObjectStore, logger *slog.Logger) *modelstore.Resolver {
	return modelstore.NewResolver(cfg.Model.ModelsDir, cfg.Model.CacheDir, store, logger)
}

func provideOpener(resolver *modelstore.Resolver, logger *slog.Logger) *ngram.Opener {
	return ngram.NewOpener(resolver, tokenizer.Factory, logger)
}

func provideLoader(cfg *config.Config, opener *ngram.Opener, logger *slog.Logger) *model.Loader {
	return model.NewLoader(model.LoaderConfig{
		BaseModel: cfg.Model.BaseModel,
		Device:    cfg.Model.Device,
	}, opener, logger)
}

func provideModelHandle(ctx context.Context, cfg *config.Config, loader *model.Loader) (*model.Handle, error) {
	return loader.Load(ctx, cfg.Model.Path)
}

func provideEngine(cfg *config.Config, handle *model.Handle, logger *slog.Logger) (*generation.Engine, error) {
	g := cfg.Generation
	return generation.NewEngine(handle, generation.Config{
		Params: generation.Params{
			MaxLength:         g.MaxLength,
			MinLength:         g.MinLength,
			BeamCount:         g.NumBeams,
			LengthPenalty:     g.LengthPenalty,
			NoRepeatNgramSize: g.NoRepeatNgramSize,
		},
		MaxInputTokens: g.MaxInputTokens,
	}, logger)
}

func provideInferenceConfig(cfg *config.Config) inference.Config {
	return inference.Config{
		MaxWords:          cfg.Input.MaxWords,
		CacheTTL:          cfg.Cache.TTL,
		GenerationTimeout: cfg.Generation.Timeout,
	}
}

// provideSummaryCache returns nil when caching is disabled. An unreachable
// valkey degrades to the in-process cache.
func provideSummaryCache(cfg *config.Config, logger *slog.Logger) inference.Cache {
	if !cfg.Cache.Enabled {
		logger.Info("summary cache disabled")
		return nil
	}
	if cfg.Cache.Addr != "" {
		opt, err := buildValkeyOptions(cfg.Cache.Addr)
		if err != nil {
			logger.Error("invalid valkey configuration, falling back to memory cache", "error", err)
			return summarycache.NewMemoryStore()
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, falling back to memory cache", "error", err)
			return summarycache.NewMemoryStore()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, falling back to memory cache", "error", err)
			client.Close()
		} else {
			logger.Info("summary valkey cache enabled", "addr", cfg.Cache.Addr)
			return summarycache.NewValkeyStore(client, "minutes")
		}
	}
	return summarycache.NewMemoryStore()
}

func buildValkeyOptions(addr string) (valkey.ClientOption, error) {
	if strings.Contains(addr, "://") {
		return valkey.ParseURL(addr)
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}

func provideRunRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) inference.RunRepository {
	fallback := runlog.NewMemoryRepository(0)
	dsn := strings.TrimSpace(cfg.RunLog.DSN)
	if dsn == "" {
		logger.Info("run log postgres dsn not set, using memory repository")
		return fallback
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory repository", "error", err)
		return fallback
	}
	if cfg.RunLog.MaxConns > 0 {
		poolConfig.MaxConns = cfg.RunLog.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory repository", "error", err)
		return fallback
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		logger.Error("postgres ping failed, using memory repository", "error", err)
		pool.Close()
		return fallback
	}
	repo := runlog.NewPostgresRepository(pool)
	if err := repo.EnsureSchema(pingCtx); err != nil {
		logger.Error("run log schema setup failed, using memory repository", "error", err)
		pool.Close()
		return fallback
	}
	logger.Info("run log postgres repository enabled")
	return repo
}
