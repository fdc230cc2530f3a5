package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"doha-explorer/config"
)

// RequestLogging 은 요청 진입부터 응답까지 걸린 시간을 한 줄로 남긴다.
// 느린 요청(slow 이상)은 warn 레벨로 올린다.
func RequestLogging(slow time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		status := c.Writer.Status()
		elapsed := time.Since(start)

		if slow > 0 && elapsed >= slow {
			config.Logger.Warnf("api_request method=%s path=%s status=%d duration_ms=%d slow=true", method, path, status, elapsed.Milliseconds())
			return
		}
		config.Logger.Infof("api_request method=%s path=%s status=%d duration_ms=%d", method, path, status, elapsed.Milliseconds())
	}
}
