//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/transcript2minutes/internal/bootstrap"
	"github.com/yanqian/transcript2minutes/internal/domain/orchestrator"
	"github.com/yanqian/transcript2minutes/internal/infra/config"
	"github.com/yanqian/transcript2minutes/internal/infra/mlclient"
	httpiface "github.com/yanqian/transcript2minutes/internal/interface/http"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.LoadBackend,
		provideLogger,
		provideMetrics,
		provideOrchestratorConfig,
		provideMLClient,
		provideTokenValidator,
		orchestrator.NewService,
		wire.Bind(new(orchestrator.Upstream), new(*mlclient.Client)),
		httpiface.NewBackendHandler,
		httpiface.NewBackendRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
