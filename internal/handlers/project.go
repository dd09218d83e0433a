package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/consultdesk/internal/models"
	"github.com/huangang/consultdesk/internal/services"
	"github.com/huangang/consultdesk/pkg/response"
)

type ProjectHandler struct {
	workspace *services.Workspace
}

func NewProjectHandler(workspace *services.Workspace) *ProjectHandler {
	return &ProjectHandler{workspace: workspace}
}

type ProjectStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// List returns the owner's projects
// GET /api/projects
func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.workspace.ListProjects(c.Request.Context(), owner(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, projects)
}

// GetByID returns a project by ID
// GET /api/projects/:id
func (h *ProjectHandler) GetByID(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	project, err := h.workspace.GetProject(c.Request.Context(), owner(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, project)
}

// Create creates a new project in the active state
// POST /api/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req models.ProjectInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.workspace.CreateProject(c.Request.Context(), owner(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, project)
}

// Update replaces the editable fields of a project
// PUT /api/projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req models.ProjectInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.workspace.UpdateProject(c.Request.Context(), owner(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, project)
}

// UpdateStatus
// PUT /api/projects/:id/status
func (h *ProjectHandler) UpdateStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req ProjectStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	status, err := models.ParseProjectStatus(req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}

	project, err := h.workspace.UpdateProjectStatus(c.Request.Context(), owner(c), id, status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, project)
}

// Delete removes a project with its engagements and invoices
// DELETE /api/projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.workspace.DeleteProject(c.Request.Context(), owner(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
