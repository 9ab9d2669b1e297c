package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/transcript2minutes/internal/domain/inference"
	apperrors "github.com/yanqian/transcript2minutes/pkg/errors"
)

// MLServiceHandler serves the inference tier.
type MLServiceHandler struct {
	svc    inference.Service
	logger *slog.Logger
}

// NewMLServiceHandler constructs the inference tier handler.
func NewMLServiceHandler(svc inference.Service, logger *slog.Logger) *MLServiceHandler {
	return &MLServiceHandler{svc: svc, logger: logger.With("component", "http.mlservice")}
}

// Health reports the loaded model and device.
func (h *MLServiceHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Health())
}

// Summarize turns a transcript into minutes.
func (h *MLServiceHandler) Summarize(c *gin.Context) {
	var req inference.Request
	if !bindTranscript(c, &req) {
		return
	}

	resp, err := h.svc.Summarize(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromAppError(err))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Runs lists recent run records. limit is optional and clamped by the service.
func (h *MLServiceHandler) Runs(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, apperrors.CodeInvalidInput, "limit must be a positive integer", err))
			return
		}
		limit = n
	}

	runs, err := h.svc.RecentRuns(c.Request.Context(), limit)
	if err != nil {
		abortWithError(c, fromAppError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// bindTranscript decodes the JSON body. An empty body binds nothing, so the
// domain reports the missing field.
func bindTranscript(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, apperrors.CodeInvalidInput, "Invalid JSON body", err))
		return false
	}
	return true
}
