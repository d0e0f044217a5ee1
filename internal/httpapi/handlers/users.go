package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/suPer8Hu/roadmaster/internal/auth"
	"github.com/suPer8Hu/roadmaster/internal/common"
	"github.com/suPer8Hu/roadmaster/internal/httpapi/middleware"
	"github.com/suPer8Hu/roadmaster/internal/logger"
	"github.com/suPer8Hu/roadmaster/internal/observe"
	"github.com/suPer8Hu/roadmaster/internal/ratelimit"
	"github.com/suPer8Hu/roadmaster/internal/validation"
)

func (h *Handler) GetPreferences(c *gin.Context) {
	uid, ok := middleware.UserID(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "Unauthorized")
		return
	}

	prefs, err := h.Haul.Preferences(c.Request.Context(), uid)
	if err != nil {
		observe.CaptureError(c.Request.Context(), err, logrus.Fields{"op": "get_preferences", "user_id": uid})
		common.Fail(c, http.StatusInternalServerError, 50001, "Failed to fetch preferences")
		return
	}
	common.OK(c, prefs)
}

func (h *Handler) UpdatePreferences(c *gin.Context) {
	uid, ok := middleware.UserID(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "Unauthorized")
		return
	}

	var req validation.PreferencesInput
	if !h.bind(c, &req) {
		return
	}
	if !h.limit(c, ratelimit.Auth, uid) {
		return
	}

	if err := h.Haul.UpdatePreferences(c.Request.Context(), uid, preferenceUpdates(&req)); err != nil {
		observe.CaptureError(c.Request.Context(), err, logrus.Fields{"op": "update_preferences", "user_id": uid})
		common.Fail(c, http.StatusInternalServerError, 50001, "Failed to update preferences")
		return
	}
	common.OK(c, gin.H{"success": true})
}

func preferenceUpdates(req *validation.PreferencesInput) map[string]any {
	m := map[string]any{}
	if req.FuelAlertThreshold != nil {
		m["fuel_alert_threshold"] = *req.FuelAlertThreshold
	}
	if req.RestAlertMinutes != nil {
		m["rest_alert_minutes"] = *req.RestAlertMinutes
	}
	if req.MaintenanceAlertThreshold != nil {
		m["maintenance_alert_threshold"] = *req.MaintenanceAlertThreshold
	}
	if req.Units != nil {
		m["units"] = *req.Units
	}
	if req.Currency != nil {
		m["currency"] = *req.Currency
	}
	if req.Timezone != nil {
		m["timezone"] = *req.Timezone
	}
	return m
}

// RegenerateKey issues a new plugin key. The plaintext is returned once and
// only its digest is stored, which revokes the previous key.
func (h *Handler) RegenerateKey(c *gin.Context) {
	uid, ok := middleware.UserID(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "Unauthorized")
		return
	}
	if !h.limit(c, ratelimit.Auth, uid) {
		return
	}

	key, err := auth.GenerateAPIKey()
	if err != nil {
		observe.CaptureError(c.Request.Context(), err, logrus.Fields{"op": "generate_api_key", "user_id": uid})
		common.Fail(c, http.StatusInternalServerError, 50001, "Failed to regenerate API key")
		return
	}
	if err := h.Haul.RotateAPIKey(c.Request.Context(), uid, auth.DigestAPIKey(key)); err != nil {
		observe.CaptureError(c.Request.Context(), err, logrus.Fields{"op": "rotate_api_key", "user_id": uid})
		common.Fail(c, http.StatusInternalServerError, 50001, "Failed to regenerate API key")
		return
	}

	logger.From(c.Request.Context()).WithField("user_id", uid).Info("[Users] API key regenerated")
	common.OK(c, gin.H{
		"api_key": key,
		"message": "API key regenerated successfully",
	})
}
