package services

import (
	"math"
	"strings"
	"time"

	"github.com/huangang/consultdesk/internal/models"
)

// Ledger messages are shown to users as is.
const (
	MsgInvalidAmount = "invalid amount"
	MsgMissingName   = "missing name"
	MsgExceedsQuote  = "exceeds quote"
)

// MaxAmount bounds every quote and invoice so cent arithmetic stays within int64.
const MaxAmount = 1e13

func validAmount(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v <= MaxAmount
}

// Summary aggregates the money of a project.
type Summary struct {
	TotalQuote    float64 `json:"total_quote"`
	TotalInvoiced float64 `json:"total_invoiced"`
	TotalPaid     float64 `json:"total_paid"`
}

// cents compares money at cent precision so that float sums such as
// 0.1+0.2 do not trip the quote check.
func cents(v float64) int64 {
	return int64(math.Round(v * 100))
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func engagementPayments(e *models.ProjectConsultant, payments []models.Payment) []models.Payment {
	out := make([]models.Payment, 0, len(payments))
	for _, p := range payments {
		if p.ConsultantEmail != e.ConsultantEmail {
			continue
		}
		if e.ProjectID != 0 && p.ProjectID != 0 && p.ProjectID != e.ProjectID {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Invoiced sums every payment raised on the engagement regardless of status.
func Invoiced(e *models.ProjectConsultant, payments []models.Payment) float64 {
	var sum float64
	for _, p := range engagementPayments(e, payments) {
		sum += p.Amount
	}
	return sum
}

// CreateInvoice validates a new invoice against the engagement quote and
// returns it as a pending payment dated on now's day.
func CreateInvoice(e *models.ProjectConsultant, amount float64, invoiceName string, existing []models.Payment, now time.Time) (*models.Payment, error) {
	if amount <= 0 || !validAmount(amount) {
		return nil, validationError(MsgInvalidAmount)
	}
	name := strings.TrimSpace(invoiceName)
	if name == "" {
		return nil, validationError(MsgMissingName)
	}
	if cents(Invoiced(e, existing))+cents(amount) > cents(e.Quote) {
		return nil, validationError(MsgExceedsQuote)
	}
	return &models.Payment{
		ProjectID:       e.ProjectID,
		ConsultantEmail: e.ConsultantEmail,
		Amount:          amount,
		Status:          models.PaymentPending,
		InvoiceName:     name,
		InvoiceDate:     day(now),
	}, nil
}

// MarkPaid returns a paid copy of p. Paying twice is rejected so the first
// paid date is kept.
func MarkPaid(p models.Payment, now time.Time) (*models.Payment, error) {
	if p.Status == models.PaymentPaid {
		return nil, &InvalidStateError{Msg: "invoice " + p.InvoiceName + " is already paid"}
	}
	paid := day(now)
	p.Status = models.PaymentPaid
	p.PaidDate = &paid
	return &p, nil
}

// Summarize totals quotes over engagements and invoiced and paid amounts
// over payments.
func Summarize(engagements []models.ProjectConsultant, payments []models.Payment) Summary {
	var s Summary
	for _, e := range engagements {
		s.TotalQuote += e.Quote
	}
	for _, p := range payments {
		s.TotalInvoiced += p.Amount
		if p.Status == models.PaymentPaid {
			s.TotalPaid += p.Amount
		}
	}
	return s
}

// RemainingQuote is the quote minus everything invoiced on the engagement.
// A negative value means the quote was lowered after invoicing.
func RemainingQuote(e *models.ProjectConsultant, payments []models.Payment) float64 {
	return float64(cents(e.Quote)-cents(Invoiced(e, payments))) / 100
}
