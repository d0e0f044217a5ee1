package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/roadmaster/internal/auth"
	"github.com/suPer8Hu/roadmaster/internal/common"
)

const UserIDKey = "user_id"

// AuthRequired admits requests carrying a valid session token and stores
// the session's user id under UserIDKey.
func AuthRequired(sessions auth.SessionAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			common.Fail(c, http.StatusUnauthorized, 40101, "Unauthorized")
			return
		}
		uid, err := sessions.Authenticate(c.Request.Context(), token)
		if err != nil {
			common.Fail(c, http.StatusUnauthorized, 40101, "Unauthorized")
			return
		}
		c.Set(UserIDKey, uid)
		c.Next()
	}
}

// UserID returns the id set by AuthRequired.
func UserID(c *gin.Context) (string, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}
