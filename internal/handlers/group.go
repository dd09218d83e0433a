package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/consultdesk/internal/services"
	"github.com/huangang/consultdesk/pkg/response"
)

type GroupHandler struct {
	workspace *services.Workspace
}

func NewGroupHandler(workspace *services.Workspace) *GroupHandler {
	return &GroupHandler{workspace: workspace}
}

type GroupRequest struct {
	Title string `json:"title" binding:"required"`
}

// GET /api/groups
func (h *GroupHandler) List(c *gin.Context) {
	groups, err := h.workspace.ListGroups(c.Request.Context(), owner(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, groups)
}

// POST /api/groups
func (h *GroupHandler) Create(c *gin.Context) {
	var req GroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	group, err := h.workspace.CreateGroup(c.Request.Context(), owner(c), req.Title)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, group)
}

// PUT /api/groups/:id
func (h *GroupHandler) Rename(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req GroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	group, err := h.workspace.RenameGroup(c.Request.Context(), owner(c), id, req.Title)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, group)
}
