package services

import (
	"sync/atomic"

	"github.com/huangang/consultdesk/internal/models"
)

// Snapshot is the full state of one owner scope. A published snapshot is
// never mutated; reconciler operations return a modified copy instead.
type Snapshot struct {
	Consultants []models.Consultant        `json:"consultants"`
	Groups      []models.Group             `json:"groups"`
	Projects    []models.Project           `json:"projects"`
	Engagements []models.ProjectConsultant `json:"engagements"`
	Payments    []models.Payment           `json:"payments"`
}

// NewSnapshot assembles a snapshot from stored rows and derives group
// membership from each consultant's group id, in consultant order.
func NewSnapshot(consultants []models.Consultant, groups []models.Group, projects []models.Project,
	engagements []models.ProjectConsultant, payments []models.Payment) *Snapshot {
	s := &Snapshot{
		Consultants: nonNil(consultants),
		Groups:      nonNil(groups),
		Projects:    nonNil(projects),
		Engagements: nonNil(engagements),
		Payments:    nonNil(payments),
	}
	byID := make(map[uint]int, len(s.Groups))
	for i := range s.Groups {
		s.Groups[i].Members = []string{}
		byID[s.Groups[i].ID] = i
	}
	for _, c := range s.Consultants {
		if c.GroupID == nil {
			continue
		}
		if i, ok := byID[*c.GroupID]; ok {
			s.Groups[i].Members = append(s.Groups[i].Members, c.Email)
		}
	}
	return s
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}

func (s *Snapshot) clone() *Snapshot {
	next := &Snapshot{
		Consultants: append([]models.Consultant{}, s.Consultants...),
		Groups:      make([]models.Group, len(s.Groups)),
		Projects:    append([]models.Project{}, s.Projects...),
		Engagements: append([]models.ProjectConsultant{}, s.Engagements...),
		Payments:    append([]models.Payment{}, s.Payments...),
	}
	for i, g := range s.Groups {
		g.Members = append([]string{}, g.Members...)
		next.Groups[i] = g
	}
	return next
}

func (s *Snapshot) consultantIndex(email string) int {
	for i := range s.Consultants {
		if s.Consultants[i].Email == email {
			return i
		}
	}
	return -1
}

func (s *Snapshot) groupIndex(id uint) int {
	for i := range s.Groups {
		if s.Groups[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Snapshot) projectIndex(id uint) int {
	for i := range s.Projects {
		if s.Projects[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Snapshot) engagementIndex(projectID uint, email string) int {
	for i := range s.Engagements {
		if s.Engagements[i].ProjectID == projectID && s.Engagements[i].ConsultantEmail == email {
			return i
		}
	}
	return -1
}

func (s *Snapshot) paymentIndex(id uint) int {
	for i := range s.Payments {
		if s.Payments[i].ID == id {
			return i
		}
	}
	return -1
}

// Consultant returns a copy of the consultant with the given email.
func (s *Snapshot) Consultant(email string) (models.Consultant, bool) {
	if i := s.consultantIndex(email); i >= 0 {
		return s.Consultants[i], true
	}
	return models.Consultant{}, false
}

func (s *Snapshot) Group(id uint) (models.Group, bool) {
	if i := s.groupIndex(id); i >= 0 {
		return s.Groups[i], true
	}
	return models.Group{}, false
}

func (s *Snapshot) Project(id uint) (models.Project, bool) {
	if i := s.projectIndex(id); i >= 0 {
		return s.Projects[i], true
	}
	return models.Project{}, false
}

func (s *Snapshot) Engagement(projectID uint, email string) (models.ProjectConsultant, bool) {
	if i := s.engagementIndex(projectID, email); i >= 0 {
		return s.Engagements[i], true
	}
	return models.ProjectConsultant{}, false
}

func (s *Snapshot) Payment(id uint) (models.Payment, bool) {
	if i := s.paymentIndex(id); i >= 0 {
		return s.Payments[i], true
	}
	return models.Payment{}, false
}

// EngagementsOf lists the engagements of a project in attach order.
func (s *Snapshot) EngagementsOf(projectID uint) []models.ProjectConsultant {
	out := []models.ProjectConsultant{}
	for _, e := range s.Engagements {
		if e.ProjectID == projectID {
			out = append(out, e)
		}
	}
	return out
}

// PaymentsOf lists the payments raised on a project in creation order.
func (s *Snapshot) PaymentsOf(projectID uint) []models.Payment {
	out := []models.Payment{}
	for _, p := range s.Payments {
		if p.ProjectID == projectID {
			out = append(out, p)
		}
	}
	return out
}

// Arena holds the current snapshot of one owner scope. Load never blocks
// and always returns a complete snapshot.
type Arena struct {
	current atomic.Pointer[Snapshot]
}

func NewArena(initial *Snapshot) *Arena {
	a := &Arena{}
	if initial == nil {
		initial = NewSnapshot(nil, nil, nil, nil, nil)
	}
	a.current.Store(initial)
	return a
}

func (a *Arena) Load() *Snapshot {
	return a.current.Load()
}

// Replace publishes next as the current snapshot.
func (a *Arena) Replace(next *Snapshot) {
	a.current.Store(next)
}
