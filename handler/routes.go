package handler

import (
	"remindly/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxRequestBody = 1 << 20

type Handlers struct {
	Tasks  *TaskHandler
	Admin  *AdminHandler
	Auth   *AuthHandler
	Health *HealthHandler
}

type RouterConfig struct {
	Tokens         middleware.TokenParser
	AllowedOrigins []string
}

func SetupRouter(h Handlers, cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.RecoveryMiddleware(),
		middleware.RequestTracingMiddleware(),
		middleware.RequestLogger(),
		middleware.MetricsMiddleware(),
		middleware.CORSMiddleware(cfg.AllowedOrigins),
		middleware.SecurityHeaders(),
		middleware.RequestSizeLimiter(maxRequestBody),
	)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api", middleware.NoStoreMiddleware())
	api.GET("/health", h.Health.Check)

	auth := api.Group("/auth")
	auth.POST("/google", h.Auth.GoogleLogin)
	auth.POST("/verify", h.Auth.VerifyOTP)

	protected := api.Group("", middleware.AuthMiddleware(cfg.Tokens))
	protected.POST("/auth/logout", h.Auth.Logout)

	tasks := protected.Group("/tasks")
	tasks.GET("", h.Tasks.ListTasks)
	tasks.POST("", h.Tasks.CreateTask)
	tasks.GET("/stats", h.Tasks.GetStats)
	tasks.GET("/:id", h.Tasks.GetTask)
	tasks.PUT("/:id", h.Tasks.UpdateTask)
	tasks.DELETE("/:id", h.Tasks.DeleteTask)

	admin := protected.Group("/admin", middleware.RequireAdmin())
	admin.GET("/users", h.Admin.GetUsers)
	admin.GET("/users/:userId", h.Admin.GetUserDetails)
	admin.PUT("/users/:userId", h.Admin.UpdateUser)
	admin.DELETE("/users/:userId", h.Admin.DeleteUser)
	admin.GET("/tasks", h.Admin.GetTasks)
	admin.PUT("/tasks/bulk-update", h.Admin.BulkUpdateTasks)
	admin.DELETE("/tasks/bulk-delete", h.Admin.BulkDeleteTasks)
	admin.GET("/stats", h.Admin.GetSystemStats)
	admin.GET("/reminders/pending", h.Admin.GetPendingReminders)
	admin.GET("/reminders/armed", h.Admin.GetArmedReminders)
	admin.POST("/reminders/:taskId/send", h.Admin.SendReminder)

	return router
}
