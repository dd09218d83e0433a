package models

import "fmt"

// ProjectStatus is the lifecycle state of a project. Any state may follow any
// other; there is no terminal state.
type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
	ProjectOnHold    ProjectStatus = "on-hold"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectActive, ProjectCompleted, ProjectOnHold:
		return true
	}
	return false
}

func ParseProjectStatus(v string) (ProjectStatus, error) {
	s := ProjectStatus(v)
	if !s.Valid() {
		return "", invalid(fmt.Sprintf("invalid project status %q", v))
	}
	return s, nil
}

// EngagementStatus is the state of one consultant's work on one project.
type EngagementStatus string

const (
	EngagementInProgress EngagementStatus = "in-progress"
	EngagementCompleted  EngagementStatus = "completed"
	EngagementOnHold     EngagementStatus = "on-hold"
)

func (s EngagementStatus) Valid() bool {
	switch s {
	case EngagementInProgress, EngagementCompleted, EngagementOnHold:
		return true
	}
	return false
}

func ParseEngagementStatus(v string) (EngagementStatus, error) {
	s := EngagementStatus(v)
	if !s.Valid() {
		return "", invalid(fmt.Sprintf("invalid engagement status %q", v))
	}
	return s, nil
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

func (s PaymentStatus) Valid() bool {
	return s == PaymentPending || s == PaymentPaid
}
