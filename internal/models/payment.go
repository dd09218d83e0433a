package models

import "time"

// Payment is one invoice raised against an engagement.
type Payment struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	ProjectID       uint          `gorm:"index:idx_payment_engagement;not null" json:"project_id"`
	ConsultantEmail string        `gorm:"index:idx_payment_engagement;size:255;not null" json:"consultant_email"`
	Amount          float64       `gorm:"not null" json:"amount"`
	Status          PaymentStatus `gorm:"size:20;not null;default:pending" json:"status"`
	InvoiceName     string        `gorm:"size:200;not null" json:"invoice_name"`
	InvoiceDate     time.Time     `json:"invoice_date"`
	PaidDate        *time.Time    `json:"paid_date"`
	CreatedAt       time.Time     `json:"created_at"`
}

func (Payment) TableName() string { return "payments" }
