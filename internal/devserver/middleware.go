package devserver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

const requestIDHeader = "X-Request-ID"

type contextKey struct{}

var requestIDContextKey = contextKey{}

// requestID injects a unique request ID and logs start/completion, ported
// near-verbatim from the teacher's middleware.RequestID.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := generateRequestID()
		c.Writer.Header().Set(requestIDHeader, id)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), requestIDContextKey, id))

		startedAt := time.Now()
		logger := slog.With("request_id", id)
		logger.Info("devserver request started", "method", c.Request.Method, "path", c.Request.URL.Path)

		c.Next()

		logger.Info("devserver request completed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(startedAt).Milliseconds(),
		)
	}
}

func generateRequestID() string {
	return fmt.Sprintf("%d-%x", time.Now().UnixNano(), time.Now().Unix())
}
