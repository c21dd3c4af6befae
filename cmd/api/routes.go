package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/campushub/college-admin-api/internal/handler"
	"github.com/campushub/college-admin-api/internal/middleware"
	"github.com/campushub/college-admin-api/internal/models"
)

// apiHandlers bundles everything registerRoutes mounts.
type apiHandlers struct {
	timetable     *handler.TimetableHandler
	notifications *handler.NotificationHandler
	events        *handler.EventHandler
	metrics       *handler.MetricsHandler
}

// registerRoutes mounts the public endpoints and the authenticated API
// groups under prefix.
func registerRoutes(r *gin.Engine, prefix string, verifier *middleware.TokenVerifier, h apiHandlers, docs bool) {
	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)
	if docs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(prefix)
	api.Use(middleware.JWT(verifier))

	timetable := api.Group("/timetable")
	{
		timetable.GET("", h.timetable.List)
		timetable.GET("/student", middleware.RequireRoles(models.RoleStudent), h.timetable.ListForStudent)
		timetable.GET("/teacher", middleware.RequireRoles(models.RoleTeacher), h.timetable.ListForTeacher)
		timetable.GET("/export", h.timetable.Export)
		timetable.POST("", middleware.RequireRoles(models.RoleAdmin), h.timetable.Create)
		// Any authenticated user may probe availability, including
		// their own.
		timetable.POST("/check-overlap", h.timetable.CheckOverlap)
		timetable.POST("/reassign", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), h.timetable.Reassign)
		timetable.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), h.timetable.Update)
		timetable.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), h.timetable.Delete)
	}

	notifications := api.Group("/notifications")
	{
		notifications.GET("", h.notifications.List)
		notifications.POST("/send", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), h.notifications.Send)
		notifications.PUT("/read-all", h.notifications.MarkAllRead)
		notifications.PUT("/:id/read", h.notifications.MarkRead)
		notifications.DELETE("/clear-read", h.notifications.ClearRead)
		notifications.DELETE("/:id", h.notifications.Delete)
	}

	events := api.Group("/events")
	{
		events.GET("", h.events.List)
		events.GET("/:id", h.events.Get)
		events.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), h.events.Create)
		events.PUT("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), h.events.Update)
		events.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), h.events.Delete)
		events.POST("/:id/register", h.events.Register)
		events.DELETE("/:id/register", h.events.Unregister)
	}
}
