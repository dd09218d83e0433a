package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/consultdesk/internal/services"
	"github.com/huangang/consultdesk/pkg/response"
)

type DashboardHandler struct {
	workspace *services.Workspace
}

func NewDashboardHandler(workspace *services.Workspace) *DashboardHandler {
	return &DashboardHandler{workspace: workspace}
}

// GetStats returns project, money and consultant totals of the caller
// GET /api/dashboard
func (h *DashboardHandler) GetStats(c *gin.Context) {
	resp, err := h.workspace.Dashboard(c.Request.Context(), owner(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, resp)
}
