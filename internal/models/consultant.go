package models

import (
	"net/mail"
	"strings"
	"time"
)

// Consultant is a person or firm that can be engaged on projects. Email is
// the natural key within an owner scope.
type Consultant struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	OwnerID   uint      `gorm:"uniqueIndex:idx_owner_email;not null" json:"-"`
	Email     string    `gorm:"uniqueIndex:idx_owner_email;size:255;not null" json:"email"`
	Name      string    `gorm:"size:200;not null" json:"name"`
	Phone     *string   `gorm:"size:50" json:"phone"`
	Specialty string    `gorm:"size:200" json:"specialty"`
	Company   *string   `gorm:"size:200" json:"company"`
	Address   *string   `gorm:"size:500" json:"address"`
	GroupID   *uint     `gorm:"index" json:"group_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Consultant) TableName() string { return "consultants" }

// ConsultantInput carries the user-editable consultant fields.
type ConsultantInput struct {
	Name      string  `json:"name" binding:"required"`
	Email     string  `json:"email" binding:"required"`
	Phone     *string `json:"phone"`
	Specialty string  `json:"specialty"`
	Company   *string `json:"company"`
	Address   *string `json:"address"`
	GroupID   *uint   `json:"group_id"`
}

// NewConsultant validates in and builds a consultant for owner.
func NewConsultant(owner uint, in ConsultantInput) (*Consultant, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("consultant name is required")
	}
	email, err := NormalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	return &Consultant{
		OwnerID:   owner,
		Email:     email,
		Name:      name,
		Phone:     Optional(in.Phone),
		Specialty: strings.TrimSpace(in.Specialty),
		Company:   Optional(in.Company),
		Address:   Optional(in.Address),
		GroupID:   in.GroupID,
	}, nil
}

// NormalizeEmail trims and lower-cases an address after checking its syntax.
func NormalizeEmail(v string) (string, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return "", invalid("email is required")
	}
	if addr, err := mail.ParseAddress(v); err != nil || addr.Address != v {
		return "", invalid("invalid email " + v)
	}
	return v, nil
}

// Optional trims p and maps blank values to nil so absent fields are never
// stored as sentinel strings.
func Optional(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}
