package common

import (
	"annopedia-backend/logging"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// LogRequest 记录每个请求的方法、路径、状态码与耗时。
func LogRequest(ctx *gin.Context) {
	start := time.Now()
	ctx.Next()

	entry := logging.Default().WithFields(logrus.Fields{
		"method":  ctx.Request.Method,
		"path":    ctx.Request.URL.Path,
		"status":  ctx.Writer.Status(),
		"latency": time.Since(start).String(),
		"ip":      ctx.ClientIP(),
	})
	if contributor := CurrentContributor(ctx); contributor != nil {
		entry = entry.WithField("contributor", contributor.Username)
	}
	if method := ctx.GetString(RequestContextKeyAuthMethod); len(method) != 0 {
		entry = entry.WithField("auth", method)
	}

	if ctx.Writer.Status() >= 500 {
		entry.Warn("request done")
	} else {
		entry.Debug("request done")
	}
}
