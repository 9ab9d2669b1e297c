package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/transcript2minutes/internal/infra/config"
	"github.com/yanqian/transcript2minutes/pkg/metrics"
)

// NewMLServiceRouter wires the inference tier routes and returns a configured server.
func NewMLServiceRouter(cfg *config.Config, handler *MLServiceHandler, recorder *metrics.Recorder) *http.Server {
	router := newEngine(handler.logger, recorder)

	router.GET("/health", handler.Health)
	router.POST("/summarize", handler.Summarize)
	router.GET("/runs", handler.Runs)
	router.GET("/metrics", gin.WrapH(recorder.Handler()))

	return newServer(cfg, router)
}

// NewBackendRouter wires the public tier routes. validator may be nil when
// bearer auth is disabled.
func NewBackendRouter(cfg *config.Config, handler *BackendHandler, recorder *metrics.Recorder, validator TokenValidator) *http.Server {
	router := newEngine(handler.logger, recorder)
	router.Use(corsMiddleware(cfg.HTTP.AllowedOrigins))

	router.GET("/health", handler.Health)
	router.POST("/summarize",
		rateLimitMiddleware(cfg.HTTP.RateLimit, handler.logger),
		authMiddleware(validator),
		handler.Summarize,
	)
	router.GET("/metrics", gin.WrapH(recorder.Handler()))

	return newServer(cfg, router)
}

func newEngine(logger *slog.Logger, recorder *metrics.Recorder) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(
		recoveryMiddleware(logger),
		requestIDMiddleware(),
		requestLogger(logger),
		metricsMiddleware(recorder),
		errorHandlingMiddleware(logger),
	)
	router.NoRoute(notFoundHandler)
	router.NoMethod(methodNotAllowedHandler)
	return router
}

func newServer(cfg *config.Config, router *gin.Engine) *http.Server {
	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        router,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
