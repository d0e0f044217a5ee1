package middleware

import (
	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/roadmaster/internal/common"
	"github.com/suPer8Hu/roadmaster/internal/logger"
)

const (
	RequestIDKey    = "request_id"
	RequestIDHeader = "X-Request-ID"
)

// RequestID tags every request with a ULID, reusing the caller's id when
// one is sent, and scopes a logger and Sentry hub to the request.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(RequestIDHeader)
		if rid == "" || len(rid) > 64 {
			rid = common.NewULID()
		}
		c.Set(RequestIDKey, rid)
		c.Header(RequestIDHeader, rid)

		ctx := c.Request.Context()
		ctx = logger.WithContext(ctx, logger.L().WithField(RequestIDKey, rid))

		hub := sentry.CurrentHub().Clone()
		hub.Scope().SetTag(RequestIDKey, rid)
		hub.Scope().SetRequest(c.Request)
		ctx = sentry.SetHubOnContext(ctx, hub)

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
