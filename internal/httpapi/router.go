package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/roadmaster/internal/auth"
	"github.com/suPer8Hu/roadmaster/internal/common"
	"github.com/suPer8Hu/roadmaster/internal/httpapi/handlers"
	"github.com/suPer8Hu/roadmaster/internal/httpapi/middleware"
)

func NewRouter(h *handlers.Handler, sessions auth.SessionAuthenticator, corsOrigins []string) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery())
	r.Use(middleware.AccessLog())
	if len(corsOrigins) > 0 {
		r.Use(middleware.CORS(corsOrigins))
	}

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.GET("/ping", h.Ping)

	api := r.Group("/api")

	// plugin and dashboard writes; credentials travel in the body
	api.POST("/jobs/start", h.StartJob)
	api.POST("/jobs/complete", h.CompleteJob)
	api.POST("/telemetry", h.IngestTelemetry)

	// session only
	user := api.Group("/user")
	user.Use(middleware.AuthRequired(sessions))
	user.GET("/preferences", h.GetPreferences)
	user.POST("/preferences", h.UpdatePreferences)
	user.POST("/regenerate-key", h.RegenerateKey)

	return r
}
