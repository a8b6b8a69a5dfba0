package httpserver

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"storefront/internal/logger"
	authsvc "storefront/internal/service/auth"
)

const (
	headerRequestID = "X-Request-ID"
	identityKey     = "identity"
)

// requestLogger tags each request with an id and logs it once finished.
func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(headerRequestID, requestID)

		reqLog := log.With("request_id", requestID)
		c.Request = c.Request.WithContext(logger.Inject(c.Request.Context(), reqLog))

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if status >= http.StatusInternalServerError {
			reqLog.Error("http request", attrs...)
			return
		}
		reqLog.Info("http request", attrs...)
	}
}

func recoverPanic(log *slog.Logger) gin.RecoveryFunc {
	return func(c *gin.Context, recovered any) {
		logger.FromCtx(c.Request.Context(), log).Error("http panic", "panic", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// authMiddleware verifies the bearer token and stores the identity on the
// gin context. Missing tokens are 401, bad ones 403.
func authMiddleware(svc AuthService, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := svc.Verify(c.Request.Context(), bearerToken(c.GetHeader("Authorization")))
		if err != nil {
			writeError(c, log, err)
			c.Abort()
			return
		}
		c.Set(identityKey, *id)
		c.Next()
	}
}

// bearerToken accepts "Bearer <token>" or the bare token.
func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

func identityFrom(c *gin.Context) authsvc.Identity {
	id, _ := c.Get(identityKey)
	identity, _ := id.(authsvc.Identity)
	return identity
}
