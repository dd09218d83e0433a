package main

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/consultdesk/internal/config"
	"github.com/huangang/consultdesk/internal/handlers"
	"github.com/huangang/consultdesk/internal/middleware"
	"github.com/huangang/consultdesk/internal/models"
	"github.com/huangang/consultdesk/internal/services"
	"github.com/huangang/consultdesk/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, cfg *config.Config, svc *appServices) {
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS(cfg.Server.CORSOrigins...))

	db := models.GetDB()

	healthHandler := handlers.NewHealthHandler(db, svc.hub, svc.taskQueue)
	r.GET("/health", healthHandler.CheckHealth)
	r.GET("/metrics", handlers.Metrics)

	authLimiter := middleware.NewRateLimiter(cfg.Server.AuthRPS, cfg.Server.AuthBurst)
	svc.limiters = append(svc.limiters, authLimiter)
	authHandler := handlers.NewAuthHandler(svc.authService)
	reminderHandler := handlers.NewReminderHandler(svc.reminders)

	api := r.Group("/api")
	{
		auth := api.Group("/auth", authLimiter.Middleware())
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/register", authHandler.Register)
			auth.GET("/config", authHandler.GetAuthConfig)
		}

		protected := api.Group("")
		protected.Use(middleware.AuthRequired(), middleware.AuditLog())
		{
			protected.GET("/auth/me", authHandler.GetCurrentUser)
			protected.POST("/auth/logout", authHandler.Logout)
			protected.PUT("/auth/password", authHandler.ChangePassword)

			sseHandler := handlers.NewSSEHandler(svc.hub)
			protected.GET("/events", sseHandler.Stream)

			handlers.RegisterWorkspaceRoutes(protected, svc.workspace)

			protected.GET("/reminders", reminderHandler.Status)

			orgHandler := handlers.NewOrganizationHandler(db)
			protected.GET("/organizations", orgHandler.List)
			protected.POST("/organizations", orgHandler.Create)
			protected.GET("/organizations/:id/members", orgHandler.Members)
			protected.POST("/organizations/:id/members", orgHandler.Invite)
		}

		admin := protected.Group("")
		admin.Use(middleware.AdminRequired())
		{
			userHandler := handlers.NewUserHandler(services.NewUserService(db))
			admin.GET("/users", userHandler.List)
			admin.PUT("/users/:id", userHandler.Update)

			systemLogHandler := handlers.NewSystemLogHandler(svc.logs)
			admin.GET("/system-logs", systemLogHandler.List)
			admin.GET("/system-logs/modules", systemLogHandler.GetModules)

			admin.POST("/reminders/run", reminderHandler.Run)
		}
	}
}
