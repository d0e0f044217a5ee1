package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/suPer8Hu/roadmaster/internal/auth"
	"github.com/suPer8Hu/roadmaster/internal/common"
	"github.com/suPer8Hu/roadmaster/internal/haul"
	"github.com/suPer8Hu/roadmaster/internal/observe"
	"github.com/suPer8Hu/roadmaster/internal/ratelimit"
	"github.com/suPer8Hu/roadmaster/internal/validation"
)

type Handler struct {
	Haul    *haul.Service
	Auth    *auth.Resolver
	Limiter *ratelimit.Limiter
}

func NewHandler(svc *haul.Service, resolver *auth.Resolver, limiter *ratelimit.Limiter) *Handler {
	return &Handler{Haul: svc, Auth: resolver, Limiter: limiter}
}

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"message": "pong"})
}

// bind decodes and validates the JSON body. Nothing touches the store
// before it returns true.
func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		common.FailDetails(c, http.StatusBadRequest, 10001, "Invalid JSON", validation.FromDecodeError(err))
		return false
	}
	if err := validation.Struct(req); err != nil {
		var verrs validation.Errors
		if errors.As(err, &verrs) {
			common.FailDetails(c, http.StatusBadRequest, 10002, "Validation failed", verrs)
			return false
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "Internal server error")
		return false
	}
	return true
}

// credentials picks the auth path for a body. A user_id means a browser
// session whose token must name that same user; otherwise the plugin key.
func credentials(c *gin.Context, a validation.Auth) auth.Credentials {
	if a.UserID != nil {
		return auth.Session{
			Token:         auth.BearerToken(c.GetHeader("Authorization")),
			ClaimedUserID: *a.UserID,
		}
	}
	if a.APIKey != nil {
		return auth.APIKey{Key: *a.APIKey}
	}
	return nil
}

func (h *Handler) authenticate(c *gin.Context, a validation.Auth) (string, bool) {
	uid, err := h.Auth.Resolve(c.Request.Context(), credentials(c, a))
	switch {
	case err == nil:
		return uid, true
	case errors.Is(err, auth.ErrInvalidAPIKey):
		common.Fail(c, http.StatusUnauthorized, 40102, "Invalid API key")
	case errors.Is(err, auth.ErrUnauthenticated):
		common.Fail(c, http.StatusUnauthorized, 40101, "Authentication required")
	default:
		observe.CaptureError(c.Request.Context(), err, logrus.Fields{"op": "resolve_credentials"})
		common.Fail(c, http.StatusInternalServerError, 50001, "Internal server error")
	}
	return "", false
}

// limit spends one request of the user's budget for class and sets the
// rate limit headers on the response.
func (h *Handler) limit(c *gin.Context, class ratelimit.Class, uid string) bool {
	res, err := h.Limiter.Allow(c.Request.Context(), class, uid)
	if err != nil {
		observe.CaptureError(c.Request.Context(), err, logrus.Fields{
			"op":      "rate_limit",
			"class":   string(class),
			"user_id": uid,
		})
		common.Fail(c, http.StatusInternalServerError, 50001, "Internal server error")
		return false
	}

	c.Header("X-RateLimit-Limit", strconv.FormatInt(res.Limit, 10))
	c.Header("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(res.Reset.UnixMilli(), 10))
	if !res.Allowed {
		c.Header("Retry-After", strconv.FormatInt(res.RetryAfter(h.Limiter.Now()), 10))
		common.Fail(c, http.StatusTooManyRequests, 42901, "Rate limit exceeded")
		return false
	}
	return true
}

// owns answers 403 when uid does not own the row. Missing rows look the same.
func (h *Handler) owns(c *gin.Context, uid, table, id string) bool {
	ok, err := h.Haul.OwnsResource(c.Request.Context(), uid, table, id)
	if err != nil {
		observe.CaptureError(c.Request.Context(), err, logrus.Fields{
			"op":          "ownership",
			"user_id":     uid,
			"resource":    table,
			"resource_id": id,
		})
		common.Fail(c, http.StatusInternalServerError, 50001, "Internal server error")
		return false
	}
	if !ok {
		observe.SecurityEvent(c.Request.Context(), "resource ownership mismatch", logrus.Fields{
			"user_id":     uid,
			"resource":    table,
			"resource_id": id,
		})
		common.Fail(c, http.StatusForbidden, 40301, "Unauthorized")
		return false
	}
	return true
}
