package api

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes sets up the control API routes
func SetupRoutes(handler *Handler) *gin.Engine {
	router := gin.New()

	// Middleware
	router.Use(Recovery())
	router.Use(CORS())
	router.Use(RequestLogger())

	// Health check
	router.GET("/health", handler.HealthCheck)

	// API v1
	v1 := router.Group("/api/v1")
	{
		v1.POST("/events", handler.IngestEvent)
		v1.GET("/metrics", handler.GetMetrics)
		v1.GET("/status", handler.GetStatus)
		v1.POST("/sync", handler.ForceSync)

		reminders := v1.Group("/reminders")
		{
			reminders.GET("", handler.ListReminders)
			reminders.POST("", handler.CreateReminder)
			reminders.PATCH("/:id", handler.UpdateReminder)
			reminders.DELETE("/:id", handler.DeleteReminder)
		}

		pomodoro := v1.Group("/pomodoro")
		{
			pomodoro.GET("", handler.GetPomodoro)
			pomodoro.POST("/toggle", handler.TogglePomodoro)
		}
	}

	return router
}
