package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/consultdesk/internal/models"
	"github.com/huangang/consultdesk/internal/services"
	"github.com/huangang/consultdesk/pkg/response"
)

type ConsultantHandler struct {
	workspace *services.Workspace
}

func NewConsultantHandler(workspace *services.Workspace) *ConsultantHandler {
	return &ConsultantHandler{workspace: workspace}
}

// UpdateConsultantRequest omits the email, which identifies the consultant
// and cannot change.
type UpdateConsultantRequest struct {
	Name      string  `json:"name" binding:"required"`
	Phone     *string `json:"phone"`
	Specialty string  `json:"specialty"`
	Company   *string `json:"company"`
	Address   *string `json:"address"`
}

type MoveConsultantRequest struct {
	FromGroup uint `json:"from_group"`
	ToGroup   uint `json:"to_group"`
}

// List returns the owner's consultants
// GET /api/consultants
func (h *ConsultantHandler) List(c *gin.Context) {
	consultants, err := h.workspace.ListConsultants(c.Request.Context(), owner(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, consultants)
}

// Grouped returns consultants partitioned by specialty label
// GET /api/consultants/grouped
func (h *ConsultantHandler) Grouped(c *gin.Context) {
	groups, err := h.workspace.GroupedConsultants(c.Request.Context(), owner(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, groups)
}

// Create
// POST /api/consultants
func (h *ConsultantHandler) Create(c *gin.Context) {
	var req models.ConsultantInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	consultant, err := h.workspace.CreateConsultant(c.Request.Context(), owner(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, consultant)
}

// Update
// PUT /api/consultants/:email
func (h *ConsultantHandler) Update(c *gin.Context) {
	var req UpdateConsultantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	email, ok := paramEmail(c)
	if !ok {
		return
	}
	consultant, err := h.workspace.UpdateConsultant(c.Request.Context(), owner(c), email, models.ConsultantInput{
		Name:      req.Name,
		Email:     email,
		Phone:     req.Phone,
		Specialty: req.Specialty,
		Company:   req.Company,
		Address:   req.Address,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, consultant)
}

// Delete removes the consultant with its engagements, invoices and tasks
// DELETE /api/consultants/:email
func (h *ConsultantHandler) Delete(c *gin.Context) {
	email, ok := paramEmail(c)
	if !ok {
		return
	}
	if err := h.workspace.DeleteConsultant(c.Request.Context(), owner(c), email); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Move transfers a consultant between groups; group 0 is "no group"
// POST /api/consultants/:email/move
func (h *ConsultantHandler) Move(c *gin.Context) {
	email, ok := paramEmail(c)
	if !ok {
		return
	}
	var req MoveConsultantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	moved, err := h.workspace.MoveConsultant(c.Request.Context(), owner(c), email, req.FromGroup, req.ToGroup)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"moved": moved})
}
