package models

import "time"

// ProjectConsultant is one consultant's engagement on one project. Name and
// Specialty are copied when the consultant is attached and are not refreshed
// by later edits to the consultant.
type ProjectConsultant struct {
	ID              uint             `gorm:"primaryKey" json:"-"`
	ProjectID       uint             `gorm:"uniqueIndex:idx_project_consultant;not null" json:"project_id"`
	ConsultantEmail string           `gorm:"uniqueIndex:idx_project_consultant;size:255;not null" json:"consultant_email"`
	Quote           float64          `gorm:"not null;default:0" json:"quote"`
	Status          EngagementStatus `gorm:"size:20;not null;default:in-progress" json:"status"`
	Name            string           `gorm:"size:200" json:"name"`
	Specialty       string           `gorm:"size:200" json:"specialty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func (ProjectConsultant) TableName() string { return "project_consultants" }

// NewEngagement returns the default engagement of c on projectID: quote 0,
// in progress.
func NewEngagement(projectID uint, c *Consultant) (*ProjectConsultant, error) {
	if projectID == 0 {
		return nil, invalid("project id is required")
	}
	if c == nil || c.Email == "" {
		return nil, invalid("consultant is required")
	}
	return &ProjectConsultant{
		ProjectID:       projectID,
		ConsultantEmail: c.Email,
		Quote:           0,
		Status:          EngagementInProgress,
		Name:            c.Name,
		Specialty:       c.Specialty,
	}, nil
}
