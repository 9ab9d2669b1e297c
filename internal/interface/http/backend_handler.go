package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/transcript2minutes/internal/domain/orchestrator"
)

// BackendHandler serves the public tier.
type BackendHandler struct {
	svc    orchestrator.Service
	logger *slog.Logger
}

// NewBackendHandler constructs the public tier handler.
func NewBackendHandler(svc orchestrator.Service, logger *slog.Logger) *BackendHandler {
	return &BackendHandler{svc: svc, logger: logger.With("component", "http.backend")}
}

// Health always answers 200; the mlservice field carries the health check result.
func (h *BackendHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Health(c.Request.Context()))
}

// Summarize validates and forwards the transcript, relaying the upstream
// body on success.
func (h *BackendHandler) Summarize(c *gin.Context) {
	var req orchestrator.Request
	if !bindTranscript(c, &req) {
		return
	}

	res, err := h.svc.Summarize(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromAppError(err))
		return
	}
	contentType := res.ContentType
	if contentType == "" {
		contentType = "application/json; charset=utf-8"
	}
	c.Data(res.Status, contentType, res.Body)
}
