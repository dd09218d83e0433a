package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/consultdesk/internal/services"
)

// RegisterWorkspaceRoutes mounts the owner-scoped consultant, group,
// project, engagement, payment, task and dashboard routes on an authenticated group.
func RegisterWorkspaceRoutes(api *gin.RouterGroup, ws *services.Workspace) {
	consultantHandler := NewConsultantHandler(ws)
	taskHandler := NewTaskHandler(ws)
	consultants := api.Group("/consultants")
	{
		consultants.GET("", consultantHandler.List)
		consultants.GET("/grouped", consultantHandler.Grouped)
		consultants.POST("", consultantHandler.Create)
		consultants.PUT("/:email", consultantHandler.Update)
		consultants.DELETE("/:email", consultantHandler.Delete)
		consultants.POST("/:email/move", consultantHandler.Move)

		consultants.GET("/:email/tasks", taskHandler.List)
		consultants.POST("/:email/tasks", taskHandler.Add)
		consultants.POST("/:email/tasks/close", taskHandler.Close)
		consultants.POST("/:email/tasks/:taskID/toggle", taskHandler.Toggle)
		consultants.DELETE("/:email/tasks/:taskID", taskHandler.Delete)
	}

	groupHandler := NewGroupHandler(ws)
	groups := api.Group("/groups")
	{
		groups.GET("", groupHandler.List)
		groups.POST("", groupHandler.Create)
		groups.PUT("/:id", groupHandler.Rename)
	}

	projectHandler := NewProjectHandler(ws)
	engagementHandler := NewEngagementHandler(ws)
	paymentHandler := NewPaymentHandler(ws)
	projects := api.Group("/projects")
	{
		projects.GET("", projectHandler.List)
		projects.GET("/:id", projectHandler.GetByID)
		projects.POST("", projectHandler.Create)
		projects.PUT("/:id", projectHandler.Update)
		projects.PUT("/:id/status", projectHandler.UpdateStatus)
		projects.DELETE("/:id", projectHandler.Delete)

		projects.GET("/:id/consultants", engagementHandler.List)
		projects.POST("/:id/consultants", engagementHandler.Attach)
		projects.DELETE("/:id/consultants/:email", engagementHandler.Detach)
		projects.PUT("/:id/consultants/:email/quote", engagementHandler.UpdateQuote)
		projects.PUT("/:id/consultants/:email/status", engagementHandler.UpdateStatus)

		projects.GET("/:id/payments", paymentHandler.Ledger)
		projects.POST("/:id/payments", paymentHandler.CreateInvoice)
		projects.POST("/:id/payments/:paymentID/paid", paymentHandler.MarkPaid)
	}

	dashboardHandler := NewDashboardHandler(ws)
	api.GET("/dashboard", dashboardHandler.GetStats)
}
