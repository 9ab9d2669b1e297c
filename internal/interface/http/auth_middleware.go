package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/transcript2minutes/internal/infra/auth"
	apperrors "github.com/yanqian/transcript2minutes/pkg/errors"
)

const authSubjectKey = "auth_subject"

// TokenValidator verifies bearer tokens.
type TokenValidator interface {
	Validate(token string) (auth.Claims, error)
}

// authMiddleware requires a valid bearer token. A nil validator disables the
// check.
func authMiddleware(validator TokenValidator) gin.HandlerFunc {
	if validator == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortWithError(c, NewHTTPError(http.StatusUnauthorized, apperrors.CodeUnauthorized, "Missing authorization header", nil))
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortWithError(c, NewHTTPError(http.StatusUnauthorized, apperrors.CodeUnauthorized, "Invalid authorization header", nil))
			return
		}
		claims, err := validator.Validate(strings.TrimSpace(parts[1]))
		if err != nil {
			abortWithError(c, NewHTTPError(http.StatusUnauthorized, apperrors.CodeUnauthorized, "Invalid or expired token", err))
			return
		}
		c.Set(authSubjectKey, claims.Subject)
		c.Next()
	}
}
