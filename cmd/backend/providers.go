package main

import (
	"log/slog"

	"github.com/yanqian/transcript2minutes/internal/domain/orchestrator"
	"github.com/yanqian/transcript2minutes/internal/infra/auth"
	"github.com/yanqian/transcript2minutes/internal/infra/config"
	"github.com/yanqian/transcript2minutes/internal/infra/mlclient"
	httpiface "github.com/yanqian/transcript2minutes/internal/interface/http"
	"github.com/yanqian/transcript2minutes/pkg/logger"
	"github.com/yanqian/transcript2minutes/pkg/metrics"
)

func provideLogger() *slog.Logger {
	return logger.New("backend")
}

func provideMetrics() *metrics.Recorder {
	return metrics.New("backend")
}

func provideOrchestratorConfig(cfg *config.Config) orchestrator.Config {
	return orchestrator.Config{MaxWords: cfg.Input.MaxWords}
}

func provideMLClient(cfg *config.Config, logger *slog.Logger) *mlclient.Client {
	logger.Info("forwarding to mlservice", "url", cfg.MLService.URL, "timeout", cfg.MLService.Timeout.String())
	return mlclient.NewClient(mlclient.Config{
		BaseURL:       cfg.MLService.URL,
		Timeout:       cfg.MLService.Timeout,
		HealthTimeout: cfg.MLService.HealthTimeout,
	})
}

// provideTokenValidator returns nil when bearer auth is off.
func provideTokenValidator(cfg *config.Config) httpiface.TokenValidator {
	if !cfg.Auth.Enabled {
		return nil
	}
	return auth.NewTokens(auth.Config{
		Secret:   cfg.Auth.JWTSecret,
		Issuer:   cfg.Auth.Issuer,
		TokenTTL: cfg.Auth.TokenTTL,
	})
}
