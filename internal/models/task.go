package models

import "time"

// Task is a to-do item on a consultant's task list. RelatedTaskIDs point at
// other tasks of the same list and may dangle.
type Task struct {
	ID              string     `gorm:"primaryKey;size:36" json:"id"`
	OwnerID         uint       `gorm:"index:idx_task_list;not null" json:"-"`
	ConsultantEmail string     `gorm:"index:idx_task_list;size:255;not null" json:"consultant_email"`
	Position        int        `gorm:"not null;default:0" json:"-"`
	Description     string     `gorm:"type:text;not null" json:"description"`
	Completed       bool       `gorm:"default:false" json:"completed"`
	DueDate         *time.Time `gorm:"index" json:"due_date"`
	RelatedTaskIDs  []string   `gorm:"serializer:json;type:text" json:"related_task_ids"`
	CreatedAt       time.Time  `json:"created_at"`
}

func (Task) TableName() string { return "consultant_tasks" }

// DueOn reports whether the task is open and due on the calendar day of t.
func (t *Task) DueOn(day time.Time) bool {
	if t.Completed || t.DueDate == nil {
		return false
	}
	y1, m1, d1 := t.DueDate.Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
