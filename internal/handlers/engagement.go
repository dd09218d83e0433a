package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/consultdesk/internal/models"
	"github.com/huangang/consultdesk/internal/services"
	"github.com/huangang/consultdesk/pkg/response"
)

// EngagementHandler manages the consultants attached to a project.
type EngagementHandler struct {
	workspace *services.Workspace
}

func NewEngagementHandler(workspace *services.Workspace) *EngagementHandler {
	return &EngagementHandler{workspace: workspace}
}

type AttachRequest struct {
	Email string `json:"email" binding:"required"`
}

type QuoteRequest struct {
	Quote *float64 `json:"quote" binding:"required"`
}

type EngagementStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// GET /api/projects/:id/consultants
func (h *EngagementHandler) List(c *gin.Context) {
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}

	engagements, err := h.workspace.ListEngagements(c.Request.Context(), owner(c), projectID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, engagements)
}

// Attach adds a consultant with a zero quote
// POST /api/projects/:id/consultants
func (h *EngagementHandler) Attach(c *gin.Context) {
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req AttachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	email, err := models.NormalizeEmail(req.Email)
	if err != nil {
		response.Error(c, err)
		return
	}

	engagement, err := h.workspace.AttachConsultant(c.Request.Context(), owner(c), projectID, email)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, engagement)
}

// Detach also removes the consultant's invoices on the project
// DELETE /api/projects/:id/consultants/:email
func (h *EngagementHandler) Detach(c *gin.Context) {
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	email, ok := paramEmail(c)
	if !ok {
		return
	}

	if err := h.workspace.DetachConsultant(c.Request.Context(), owner(c), projectID, email); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// PUT /api/projects/:id/consultants/:email/quote
func (h *EngagementHandler) UpdateQuote(c *gin.Context) {
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	email, ok := paramEmail(c)
	if !ok {
		return
	}
	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	engagement, err := h.workspace.UpdateQuote(c.Request.Context(), owner(c), projectID, email, *req.Quote)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, engagement)
}

// PUT /api/projects/:id/consultants/:email/status
func (h *EngagementHandler) UpdateStatus(c *gin.Context) {
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	email, ok := paramEmail(c)
	if !ok {
		return
	}
	var req EngagementStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	status, err := models.ParseEngagementStatus(req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}

	engagement, err := h.workspace.UpdateEngagementStatus(c.Request.Context(), owner(c), projectID, email, status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, engagement)
}
