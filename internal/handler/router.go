package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/merchantkit/storesync/internal/middleware"
)

// triggerCooldown throttles manual syncs per caller+tenant; the scheduler
// path is unaffected.
const triggerCooldown = 10 * time.Second

type RouterDeps struct {
	Sync      *SyncHandler
	Context   *ContextHandler
	Health    *HealthHandler
	JWTSecret []byte
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/healthz", deps.Health.Check)

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))

	authGroup.POST("/tenants/:id/sync", middleware.RateLimit(triggerCooldown), deps.Sync.Trigger)
	authGroup.GET("/tenants/:id/sync/report", deps.Sync.Report)
	authGroup.GET("/sync/status", deps.Sync.Status)

	authGroup.POST("/context/query", deps.Context.Query)
	authGroup.POST("/context/search", deps.Context.Search)

	adminGroup := authGroup.Group("")
	adminGroup.Use(middleware.RequireRole(middleware.RoleAdmin))
	adminGroup.POST("/tenants/:id/unlock", deps.Sync.Unlock)
}
