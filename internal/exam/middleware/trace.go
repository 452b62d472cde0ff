package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const traceIDHeader = "X-Trace-Id"

// TraceMiddleware ensures each request has a trace ID for logs and responses.
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := strings.TrimSpace(c.GetHeader(traceIDHeader))
		if traceID == "" {
			traceID = uuid.NewString()
		}
		c.Set("trace_id", traceID)
		ctx := context.WithValue(c.Request.Context(), "trace_id", traceID)

		// Exam code and participant ride along in the context so every log
		// line under this request carries them.
		if code := c.Param("code"); code != "" {
			ctx = context.WithValue(ctx, "exam_code", code)
		}
		if name := c.Param("name"); name != "" {
			ctx = context.WithValue(ctx, "participant", name)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set(traceIDHeader, traceID)
		c.Next()
	}
}
