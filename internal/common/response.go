package common

import (
	"crypto/rand"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
)

func OK(c *gin.Context, data any) {
	c.JSON(200, data)
}

// Fail writes {"error", "code"} and aborts the chain.
func Fail(c *gin.Context, httpStatus int, code int, msg string) {
	c.AbortWithStatusJSON(httpStatus, gin.H{
		"error": msg,
		"code":  code,
	})
}

// FailDetails is Fail with a per field breakdown.
func FailDetails(c *gin.Context, httpStatus int, code int, msg string, details any) {
	c.AbortWithStatusJSON(httpStatus, gin.H{
		"error":   msg,
		"code":    code,
		"details": details,
	})
}

func NewULID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}
