package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/consultdesk/internal/models"
	"github.com/huangang/consultdesk/internal/services"
	"github.com/huangang/consultdesk/pkg/response"
)

type PaymentHandler struct {
	workspace *services.Workspace
}

func NewPaymentHandler(workspace *services.Workspace) *PaymentHandler {
	return &PaymentHandler{workspace: workspace}
}

type InvoiceRequest struct {
	Email       string  `json:"email" binding:"required"`
	Amount      float64 `json:"amount"`
	InvoiceName string  `json:"invoice_name"`
}

// Ledger returns the invoices of a project with totals and the remaining
// quote of every consultant
// GET /api/projects/:id/payments
func (h *PaymentHandler) Ledger(c *gin.Context) {
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}

	ledger, err := h.workspace.ProjectLedger(c.Request.Context(), owner(c), projectID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, ledger)
}

// CreateInvoice
// POST /api/projects/:id/payments
func (h *PaymentHandler) CreateInvoice(c *gin.Context) {
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req InvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	email, err := models.NormalizeEmail(req.Email)
	if err != nil {
		response.Error(c, err)
		return
	}

	payment, err := h.workspace.CreateInvoice(c.Request.Context(), owner(c), projectID, email, req.Amount, req.InvoiceName)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, payment)
}

// MarkPaid
// POST /api/projects/:id/payments/:paymentID/paid
func (h *PaymentHandler) MarkPaid(c *gin.Context) {
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	paymentID, ok := paramID(c, "paymentID")
	if !ok {
		return
	}

	payment, err := h.workspace.MarkPaid(c.Request.Context(), owner(c), projectID, paymentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, payment)
}
