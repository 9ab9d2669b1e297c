//go:build wireinject
// +build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"github.com/yanqian/transcript2minutes/internal/bootstrap"
	"github.com/yanqian/transcript2minutes/internal/domain/generation"
	"github.com/yanqian/transcript2minutes/internal/domain/inference"
	"github.com/yanqian/transcript2minutes/internal/infra/config"
	httpiface "github.com/yanqian/transcript2minutes/internal/interface/http"
)

func initializeApp(ctx context.Context) (*bootstrap.App, error) {
	wire.Build(
		config.LoadMLService,
		provideLogger,
		provideMetrics,
		provideModelStore,
		provideResolver,
		provideOpener,
		provideLoader,
		provideModelHandle,
		provideEngine,
		provideInferenceConfig,
		provideSummaryCache,
		provideRunRepository,
		inference.NewService,
		wire.Bind(new(inference.Engine), new(*generation.Engine)),
		httpiface.NewMLServiceHandler,
		httpiface.NewMLServiceRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
