package api

import (
	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine exposing the event submission,
// lookup, cancellation, and admin surface. adminToken gates the
// cleanup endpoint; an empty token disables that route entirely
// rather than accepting an empty bearer token as valid.
func NewRouter(h *Handlers, adminToken string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	v1 := r.Group("/api/v1/events")
	v1.POST("", h.SubmitEvent)
	v1.POST("/batch", h.SubmitBatch)
	v1.GET("/statistics", h.Statistics)
	v1.GET("/:id", h.GetByID)
	v1.GET("/external/:ext", h.GetByExternalID)
	v1.GET("/external/:ext/all", h.ListByExternalID)
	v1.DELETE("/:id", h.CancelByID)
	v1.DELETE("/external/:ext", h.CancelByExternalID)

	if adminToken != "" {
		v1.POST("/admin/cleanup", adminAuth(adminToken), h.AdminCleanup)
	}

	return r
}
