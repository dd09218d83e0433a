package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huangang/consultdesk/internal/models"
	"github.com/huangang/consultdesk/internal/services"
	"github.com/huangang/consultdesk/pkg/response"
)

type TaskHandler struct {
	workspace *services.Workspace
}

func NewTaskHandler(workspace *services.Workspace) *TaskHandler {
	return &TaskHandler{workspace: workspace}
}

type AddTaskRequest struct {
	Description    string   `json:"description"`
	DueDate        string   `json:"due_date"` // YYYY-MM-DD
	RelatedTaskIDs []string `json:"related_task_ids"`
}

// TaskView is a task with its related task descriptions resolved.
type TaskView struct {
	models.Task
	Related []string `json:"related"`
}

// List
// GET /api/consultants/:email/tasks
func (h *TaskHandler) List(c *gin.Context) {
	email, ok := paramEmail(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	tasks, err := h.workspace.ListTasks(ctx, owner(c), email)
	if err != nil {
		response.Error(c, err)
		return
	}
	related, err := h.workspace.RelatedDescriptions(ctx, owner(c), email)
	if err != nil {
		response.Error(c, err)
		return
	}

	views := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, TaskView{Task: t, Related: related[t.ID]})
	}
	response.Success(c, views)
}

// Add appends a task; a blank description adds nothing
// POST /api/consultants/:email/tasks
func (h *TaskHandler) Add(c *gin.Context) {
	email, ok := paramEmail(c)
	if !ok {
		return
	}
	var req AddTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	var due *time.Time
	if req.DueDate != "" {
		d, err := time.ParseInLocation("2006-01-02", req.DueDate, time.Local)
		if err != nil {
			response.BadRequest(c, "due_date must be YYYY-MM-DD")
			return
		}
		due = &d
	}

	task, err := h.workspace.AddTask(c.Request.Context(), owner(c), email, req.Description, due, req.RelatedTaskIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	if task == nil {
		response.Success(c, nil)
		return
	}
	response.Created(c, task)
}

// Toggle
// POST /api/consultants/:email/tasks/:taskID/toggle
func (h *TaskHandler) Toggle(c *gin.Context) {
	email, ok := paramEmail(c)
	if !ok {
		return
	}
	changed, err := h.workspace.ToggleTask(c.Request.Context(), owner(c), email, c.Param("taskID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"changed": changed})
}

// Delete
// DELETE /api/consultants/:email/tasks/:taskID
func (h *TaskHandler) Delete(c *gin.Context) {
	email, ok := paramEmail(c)
	if !ok {
		return
	}
	changed, err := h.workspace.DeleteTask(c.Request.Context(), owner(c), email, c.Param("taskID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"changed": changed})
}

// Close reports the final list when the task view is dismissed
// POST /api/consultants/:email/tasks/close
func (h *TaskHandler) Close(c *gin.Context) {
	email, ok := paramEmail(c)
	if !ok {
		return
	}
	tasks, err := h.workspace.CloseTasks(c.Request.Context(), owner(c), email)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, tasks)
}
