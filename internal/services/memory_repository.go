package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/huangang/consultdesk/internal/models"
)

// ErrStoreDown is returned by MemoryRepository methods switched off with FailOn.
var ErrStoreDown = errors.New("store unavailable")

// MemoryRepository is a Repository held in process memory. It backs the
// workspace in tests and can simulate store outages per method.
type MemoryRepository struct {
	mu          sync.Mutex
	nextID      uint
	failOn      map[string]bool
	consultants []models.Consultant
	groups      []models.Group
	projects    []models.Project
	engagements []models.ProjectConsultant
	payments    []models.Payment
	tasks       []models.Task
	calls       []string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{failOn: map[string]bool{}}
}

// FailOn makes the named method fail with ErrStoreDown until cleared.
func (r *MemoryRepository) FailOn(method string, fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failOn[method] = fail
}

// Calls returns the names of the methods invoked so far.
func (r *MemoryRepository) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *MemoryRepository) enter(name string) error {
	r.calls = append(r.calls, name)
	if r.failOn[name] {
		return ErrStoreDown
	}
	return nil
}

func (r *MemoryRepository) id() uint {
	r.nextID++
	return r.nextID
}

func (r *MemoryRepository) ListConsultants(_ context.Context, owner uint) ([]models.Consultant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("ListConsultants"); err != nil {
		return nil, err
	}
	return filter(r.consultants, func(c models.Consultant) bool { return c.OwnerID == owner }), nil
}

func (r *MemoryRepository) ListGroups(_ context.Context, owner uint) ([]models.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("ListGroups"); err != nil {
		return nil, err
	}
	return filter(r.groups, func(g models.Group) bool { return g.OwnerID == owner }), nil
}

func (r *MemoryRepository) ListProjects(_ context.Context, owner uint) ([]models.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("ListProjects"); err != nil {
		return nil, err
	}
	return filter(r.projects, func(p models.Project) bool { return p.OwnerID == owner }), nil
}

func (r *MemoryRepository) ListProjectConsultants(_ context.Context, projectID uint) ([]models.ProjectConsultant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("ListProjectConsultants"); err != nil {
		return nil, err
	}
	return filter(r.engagements, func(e models.ProjectConsultant) bool { return e.ProjectID == projectID }), nil
}

func (r *MemoryRepository) ListPayments(_ context.Context, projectID uint) ([]models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("ListPayments"); err != nil {
		return nil, err
	}
	return filter(r.payments, func(p models.Payment) bool { return p.ProjectID == projectID }), nil
}

func (r *MemoryRepository) InsertConsultant(_ context.Context, c *models.Consultant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("InsertConsultant"); err != nil {
		return err
	}
	c.ID = r.id()
	r.consultants = append(r.consultants, *c)
	return nil
}

func (r *MemoryRepository) UpdateConsultant(_ context.Context, c *models.Consultant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("UpdateConsultant"); err != nil {
		return err
	}
	for i := range r.consultants {
		if r.consultants[i].ID == c.ID {
			r.consultants[i] = *c
		}
	}
	return nil
}

func (r *MemoryRepository) DeleteConsultant(_ context.Context, owner uint, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("DeleteConsultant"); err != nil {
		return err
	}
	r.payments = filter(r.payments, func(p models.Payment) bool { return p.ConsultantEmail != email })
	r.engagements = filter(r.engagements, func(e models.ProjectConsultant) bool { return e.ConsultantEmail != email })
	r.tasks = filter(r.tasks, func(t models.Task) bool { return t.OwnerID != owner || t.ConsultantEmail != email })
	r.consultants = filter(r.consultants, func(c models.Consultant) bool { return c.OwnerID != owner || c.Email != email })
	return nil
}

func (r *MemoryRepository) InsertGroup(_ context.Context, g *models.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("InsertGroup"); err != nil {
		return err
	}
	g.ID = r.id()
	r.groups = append(r.groups, *g)
	return nil
}

func (r *MemoryRepository) UpdateGroup(_ context.Context, g *models.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("UpdateGroup"); err != nil {
		return err
	}
	for i := range r.groups {
		if r.groups[i].ID == g.ID {
			r.groups[i] = *g
		}
	}
	return nil
}

func (r *MemoryRepository) InsertProject(_ context.Context, p *models.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("InsertProject"); err != nil {
		return err
	}
	p.ID = r.id()
	r.projects = append(r.projects, *p)
	return nil
}

func (r *MemoryRepository) UpdateProject(_ context.Context, p *models.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("UpdateProject"); err != nil {
		return err
	}
	for i := range r.projects {
		if r.projects[i].ID == p.ID {
			r.projects[i] = *p
		}
	}
	return nil
}

func (r *MemoryRepository) DeleteProject(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("DeleteProject"); err != nil {
		return err
	}
	r.payments = filter(r.payments, func(p models.Payment) bool { return p.ProjectID != id })
	r.engagements = filter(r.engagements, func(e models.ProjectConsultant) bool { return e.ProjectID != id })
	r.projects = filter(r.projects, func(p models.Project) bool { return p.ID != id })
	return nil
}

func (r *MemoryRepository) InsertProjectConsultant(_ context.Context, e *models.ProjectConsultant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("InsertProjectConsultant"); err != nil {
		return err
	}
	e.ID = r.id()
	r.engagements = append(r.engagements, *e)
	return nil
}

func (r *MemoryRepository) UpdateProjectConsultant(_ context.Context, e *models.ProjectConsultant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("UpdateProjectConsultant"); err != nil {
		return err
	}
	for i := range r.engagements {
		if r.engagements[i].ProjectID == e.ProjectID && r.engagements[i].ConsultantEmail == e.ConsultantEmail {
			r.engagements[i].Quote = e.Quote
			r.engagements[i].Status = e.Status
		}
	}
	return nil
}

func (r *MemoryRepository) DeleteProjectConsultant(_ context.Context, projectID uint, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("DeleteProjectConsultant"); err != nil {
		return err
	}
	r.payments = filter(r.payments, func(p models.Payment) bool {
		return p.ProjectID != projectID || p.ConsultantEmail != email
	})
	r.engagements = filter(r.engagements, func(e models.ProjectConsultant) bool {
		return e.ProjectID != projectID || e.ConsultantEmail != email
	})
	return nil
}

func (r *MemoryRepository) InsertPayment(_ context.Context, p *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("InsertPayment"); err != nil {
		return err
	}
	p.ID = r.id()
	r.payments = append(r.payments, *p)
	return nil
}

func (r *MemoryRepository) UpdatePayment(_ context.Context, p *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("UpdatePayment"); err != nil {
		return err
	}
	for i := range r.payments {
		if r.payments[i].ID == p.ID {
			r.payments[i] = *p
		}
	}
	return nil
}

func (r *MemoryRepository) ListTasks(_ context.Context, owner uint, email string) ([]models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("ListTasks"); err != nil {
		return nil, err
	}
	return filter(r.tasks, func(t models.Task) bool { return t.OwnerID == owner && t.ConsultantEmail == email }), nil
}

func (r *MemoryRepository) ListTasksDue(_ context.Context, from, to time.Time) ([]models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("ListTasksDue"); err != nil {
		return nil, err
	}
	return filter(r.tasks, func(t models.Task) bool {
		return !t.Completed && t.DueDate != nil && !t.DueDate.Before(from) && t.DueDate.Before(to)
	}), nil
}

func (r *MemoryRepository) ReplaceTasks(_ context.Context, owner uint, email string, tasks []models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("ReplaceTasks"); err != nil {
		return err
	}
	r.tasks = filter(r.tasks, func(t models.Task) bool { return t.OwnerID != owner || t.ConsultantEmail != email })
	r.tasks = append(r.tasks, tasks...)
	return nil
}

// SeedTasks stores tasks as-is, bypassing the task list.
func (r *MemoryRepository) SeedTasks(tasks ...models.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, tasks...)
}

var _ Repository = (*MemoryRepository)(nil)
