package models

import "time"

const (
	OrgRoleAdmin  = "admin"
	OrgRoleMember = "member"
)

type Organization struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:200;not null" json:"name"`
	CreatedBy uint      `gorm:"index;not null" json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

func (Organization) TableName() string { return "organizations" }

// OrganizationMember links a user to an organization with a role.
type OrganizationMember struct {
	ID             uint          `gorm:"primaryKey" json:"id"`
	OrganizationID uint          `gorm:"uniqueIndex:idx_org_user;not null" json:"organization_id"`
	Organization   *Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	UserID         uint          `gorm:"uniqueIndex:idx_org_user;not null" json:"user_id"`
	User           *User         `gorm:"foreignKey:UserID" json:"-"`
	Role           string        `gorm:"size:50;default:member" json:"role"` // admin, member
	CreatedAt      time.Time     `json:"created_at"`
}

func (OrganizationMember) TableName() string { return "organization_members" }
