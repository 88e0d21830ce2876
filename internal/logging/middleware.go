package logging

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLogger はリクエストごとに1行のアクセスログを出力するミドルウェアです。
// Cookie や Authorization ヘッダーの値は出力しません。
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("clientIP", c.ClientIP()),
			zap.Strings("headers", headerNames(c.Request.Header)),
		}

		for _, e := range c.Errors {
			log.Error("handler error", append(fields, zap.Error(e.Err))...)
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			log.Error("request completed", fields...)
		case c.IsAborted():
			log.Warn("request aborted", fields...)
		default:
			log.Info("request completed", fields...)
		}
	}
}

// headerNames はヘッダー名の一覧を返し、機微なヘッダーは伏せ字にします。
func headerNames(h http.Header) []string {
	names := make([]string, 0, len(h))
	for k := range h {
		lower := strings.ToLower(k)
		if strings.Contains(lower, "authorization") || strings.Contains(lower, "cookie") {
			names = append(names, k+"=[redacted]")
			continue
		}
		names = append(names, k)
	}
	return names
}
