package models

import (
	"strings"
	"time"
)

// Group buckets consultants for display. A consultant belongs to at most
// one group through Consultant.GroupID; Members is derived from that key.
type Group struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OwnerID   uint      `gorm:"index;not null" json:"-"`
	Title     string    `gorm:"size:200;not null" json:"title"`
	Members   []string  `gorm:"-" json:"members"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Group) TableName() string { return "consultant_groups" }

func NewGroup(owner uint, title string) (*Group, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, invalid("group title is required")
	}
	return &Group{OwnerID: owner, Title: title, Members: []string{}}, nil
}

// HasMember reports whether email is listed in the group.
func (g *Group) HasMember(email string) bool {
	for _, m := range g.Members {
		if m == email {
			return true
		}
	}
	return false
}
