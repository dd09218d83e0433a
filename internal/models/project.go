package models

import (
	"strings"
	"time"
)

// Project is a unit of client work. ID is assigned by the store.
type Project struct {
	ID               uint          `gorm:"primaryKey" json:"id"`
	OwnerID          uint          `gorm:"index;not null" json:"-"`
	Title            string        `gorm:"size:200;not null" json:"title"`
	Status           ProjectStatus `gorm:"size:20;not null;default:active" json:"status"`
	ClientName       string        `gorm:"size:200;not null" json:"client_name"`
	ClientEmail      string        `gorm:"size:255;not null" json:"client_email"`
	ClientPhone      *string       `gorm:"size:50" json:"client_phone"`
	ConstructionCost float64       `gorm:"not null;default:0" json:"construction_cost"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

func (Project) TableName() string { return "projects" }

type ProjectInput struct {
	Title            string  `json:"title" binding:"required"`
	ClientName       string  `json:"client_name" binding:"required"`
	ClientEmail      string  `json:"client_email" binding:"required"`
	ClientPhone      *string `json:"client_phone"`
	ConstructionCost float64 `json:"construction_cost"`
}

// NewProject validates in and returns an active project for owner.
func NewProject(owner uint, in ProjectInput) (*Project, error) {
	p := &Project{OwnerID: owner, Status: ProjectActive}
	if err := p.Apply(in); err != nil {
		return nil, err
	}
	return p, nil
}

// Apply copies validated editable fields onto p. Status is left alone.
func (p *Project) Apply(in ProjectInput) error {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return invalid("project title is required")
	}
	client := strings.TrimSpace(in.ClientName)
	if client == "" {
		return invalid("client name is required")
	}
	email, err := NormalizeEmail(in.ClientEmail)
	if err != nil {
		return err
	}
	if in.ConstructionCost < 0 {
		return invalid("construction cost must not be negative")
	}
	p.Title = title
	p.ClientName = client
	p.ClientEmail = email
	p.ClientPhone = Optional(in.ClientPhone)
	p.ConstructionCost = in.ConstructionCost
	return nil
}
