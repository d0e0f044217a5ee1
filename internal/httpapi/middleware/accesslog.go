package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/suPer8Hu/roadmaster/internal/logger"
)

// AccessLog writes one line per request after the handler returns.
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		e := logger.From(c.Request.Context()).WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		})
		if uid, ok := c.Get(UserIDKey); ok {
			e = e.WithField("user_id", uid)
		}
		switch {
		case c.Writer.Status() >= 500:
			e.Error("request")
		case c.Writer.Status() >= 400:
			e.Warn("request")
		default:
			e.Info("request")
		}
	}
}
