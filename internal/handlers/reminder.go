package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/consultdesk/internal/services"
	"github.com/huangang/consultdesk/pkg/response"
)

type ReminderHandler struct {
	reminders *services.ReminderService
}

func NewReminderHandler(reminders *services.ReminderService) *ReminderHandler {
	return &ReminderHandler{reminders: reminders}
}

// Status returns the reminder schedule and the selectable holiday calendars
// GET /api/reminders
func (h *ReminderHandler) Status(c *gin.Context) {
	response.Success(c, h.reminders.Status())
}

// Run scans for due tasks now. A day that was already scanned enqueues
// nothing.
// POST /api/reminders/run
func (h *ReminderHandler) Run(c *gin.Context) {
	n, err := h.reminders.Run(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"enqueued": n})
}
