package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/huangang/consultdesk/internal/models"
	"github.com/huangang/consultdesk/pkg/logger"
)

// scope is the in-memory state of one owner. Writers hold mu; readers load
// the arena without locking.
type scope struct {
	mu     sync.Mutex
	loaded atomic.Bool
	arena  *Arena
	tasks  map[string]*TaskList
}

// Workspace applies reconciler and ledger operations for every owner: it
// computes the next snapshot, persists the change, publishes the snapshot
// and notifies the owner. A failed step leaves the snapshot untouched.
type Workspace struct {
	repo     Repository
	notifier Notifier
	now      func() time.Time

	mu     sync.Mutex
	scopes map[uint]*scope
}

func NewWorkspace(repo Repository, notifier Notifier) *Workspace {
	return &Workspace{
		repo:     repo,
		notifier: notifier,
		now:      time.Now,
		scopes:   make(map[uint]*scope),
	}
}

func (w *Workspace) scope(ctx context.Context, owner uint) (*scope, error) {
	w.mu.Lock()
	s, ok := w.scopes[owner]
	if !ok {
		s = &scope{arena: NewArena(nil), tasks: make(map[string]*TaskList)}
		w.scopes[owner] = s
	}
	w.mu.Unlock()

	if s.loaded.Load() {
		return s, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded.Load() {
		return s, nil
	}
	snap, err := w.load(ctx, owner)
	if err != nil {
		return nil, persistenceError("load workspace", err)
	}
	s.arena.Replace(snap)
	s.loaded.Store(true)
	return s, nil
}

func (w *Workspace) load(ctx context.Context, owner uint) (*Snapshot, error) {
	consultants, err := w.repo.ListConsultants(ctx, owner)
	if err != nil {
		return nil, err
	}
	groups, err := w.repo.ListGroups(ctx, owner)
	if err != nil {
		return nil, err
	}
	projects, err := w.repo.ListProjects(ctx, owner)
	if err != nil {
		return nil, err
	}
	var engagements []models.ProjectConsultant
	var payments []models.Payment
	for _, p := range projects {
		e, err := w.repo.ListProjectConsultants(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		engagements = append(engagements, e...)
		pay, err := w.repo.ListPayments(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		payments = append(payments, pay...)
	}
	return NewSnapshot(consultants, groups, projects, engagements, payments), nil
}

// Snapshot returns the current state of owner.
func (w *Workspace) Snapshot(ctx context.Context, owner uint) (*Snapshot, error) {
	s, err := w.scope(ctx, owner)
	if err != nil {
		return nil, err
	}
	return s.arena.Load(), nil
}

// mutate runs fn with the scope's write lock held. fn returns the snapshot
// to publish, or nil to keep the current one.
func (w *Workspace) mutate(ctx context.Context, owner uint, action, key string, fn func(s *scope, snap *Snapshot) (*Snapshot, string, error)) error {
	s, err := w.scope(ctx, owner)
	if err != nil {
		w.fail(owner, action, key, err)
		return err
	}

	s.mu.Lock()
	next, msg, err := fn(s, s.arena.Load())
	if err == nil && next != nil {
		s.arena.Replace(next)
	}
	s.mu.Unlock()

	if err != nil {
		w.fail(owner, action, key, err)
		return err
	}
	if msg != "" {
		w.succeed(owner, action, key, msg)
	}
	return nil
}

func (w *Workspace) succeed(owner uint, action, key, msg string) {
	LogInfo("workspace", action, msg, &owner, key)
	w.notify(Notification{OwnerID: owner, Level: LevelSuccess, Action: action, Message: msg})
}

func (w *Workspace) fail(owner uint, action, key string, err error) {
	var perr *PersistenceError
	if errors.As(err, &perr) {
		LogError("workspace", action, err.Error(), &owner, key)
	}
	w.notify(Notification{OwnerID: owner, Level: LevelError, Action: action, Message: err.Error()})
}

func (w *Workspace) notify(n Notification) {
	if w.notifier == nil {
		return
	}
	n.Time = w.now()
	w.notifier.Notify(n)
}

// --- consultants ---

func (w *Workspace) ListConsultants(ctx context.Context, owner uint) ([]models.Consultant, error) {
	snap, err := w.Snapshot(ctx, owner)
	if err != nil {
		return nil, err
	}
	return snap.Consultants, nil
}

// GroupedConsultants partitions the owner's consultants by specialty label.
func (w *Workspace) GroupedConsultants(ctx context.Context, owner uint) ([]SpecialtyGroup, error) {
	snap, err := w.Snapshot(ctx, owner)
	if err != nil {
		return nil, err
	}
	return GroupBySpecialty(snap.Consultants), nil
}

func (w *Workspace) CreateConsultant(ctx context.Context, owner uint, in models.ConsultantInput) (models.Consultant, error) {
	var created models.Consultant
	err := w.mutate(ctx, owner, "create_consultant", in.Email, func(_ *scope, snap *Snapshot) (*Snapshot, string, error) {
		c, err := models.NewConsultant(owner, in)
		if err != nil {
			return nil, "", err
		}
		next, err := AddConsultant(snap, *c)
		if err != nil {
			return nil, "", err
		}
		if err := w.repo.InsertConsultant(ctx, c); err != nil {
			return nil, "", persistenceError("create consultant", err)
		}
		next.Consultants[len(next.Consultants)-1] = *c
		created = *c
		return next, fmt.Sprintf("Consultant %s created", c.Name), nil
	})
	return created, err
}

func (w *Workspace) UpdateConsultant(ctx context.Context, owner uint, email string, in models.ConsultantInput) (models.Consultant, error) {
	var updated models.Consultant
	err := w.mutate(ctx, owner, "update_consultant", email, func(_ *scope, snap *Snapshot) (*Snapshot, string, error) {
		next, c, err := UpdateConsultant(snap, email, in)
		if err != nil {
			return nil, "", err
		}
		if err := w.repo.UpdateConsultant(ctx, &c); err != nil {
			return nil, "", persistenceError("update consultant", err)
		}
		updated = c
		return next, fmt.Sprintf("Consultant %s updated", c.Name), nil
	})
	return updated, err
}

func (w *Workspace) DeleteConsultant(ctx context.Context, owner uint, email string) error {
	return w.mutate(ctx, owner, "delete_consultant", email, func(s *scope, snap *Snapshot) (*Snapshot, string, error) {
		next, err := DeleteConsultant(snap, email)
		if err != nil {
			return nil, "", err
		}
		if err := w.repo.DeleteConsultant(ctx, owner, email); err != nil {
			return nil, "", persistenceError("delete consultant", err)
		}
		delete(s.tasks, email)
		return next, fmt.Sprintf("Consultant %s deleted", email), nil
	})
}

// MoveConsultant transfers a consultant between groups and reports whether
// anything changed.
func (w *Workspace) MoveConsultant(ctx context.Context, owner uint, email string, fromGroup, toGroup uint) (bool, error) {
	moved := false
	err := w.mutate(ctx, owner, "move_consultant", email, func(_ *scope, snap *Snapshot) (*Snapshot, string, error) {
		next, c, err := MoveConsultant(snap, email, fromGroup, toGroup)
		if err != nil || c == nil {
			return nil, "", err
		}
		if err := w.repo.UpdateConsultant(ctx, c); err != nil {
			return nil, "", persistenceError("move consultant", err)
		}
		moved = true
		return next, fmt.Sprintf("Consultant %s moved", email), nil
	})
	return moved, err
}

// --- groups ---

func (w *Workspace) ListGroups(ctx context.Context, owner uint) ([]models.Group, error) {
	snap, err := w.Snapshot(ctx, owner)
	if err != nil {
		return nil, err
	}
	return snap.Groups, nil
}

func (w *Workspace) CreateGroup(ctx context.Context, owner uint, title string) (models.Group, error) {
	var created models.Group
	err := w.mutate(ctx, owner, "create_group", title, func(_ *scope, snap *Snapshot) (*Snapshot, string, error) {
		g, err := models.NewGroup(owner, title)
		if err != nil {
			return nil, "", err
		}
		if err := w.repo.InsertGroup(ctx, g); err != nil {
			return nil, "", persistenceError("create group", err)
		}
		next, err := AddGroup(snap, *g)
		if err != nil {
			return nil, "", err
		}
		created = *g
		return next, fmt.Sprintf("Group %s created", g.Title), nil
	})
	return created, err
}

func (w *Workspace) RenameGroup(ctx context.Context, owner, id uint, title string) (models.Group, error) {
	var renamed models.Group
	err := w.mutate(ctx, owner, "rename_group", fmt.Sprint(id), func(_ *scope, snap *Snapshot) (*Snapshot, string, error) {
		next, g, err := RenameGroup(snap, id, title)
		if err != nil {
			return nil, "", err
		}
		if err := w.repo.UpdateGroup(ctx, &g); err != nil {
			return nil, "", persistenceError("rename group", err)
		}
		renamed = g
		return next, fmt.Sprintf("Group renamed to %s", g.Title), nil
	})
	return renamed, err
}

// --- projects ---

func (w *Workspace) ListProjects(ctx context.Context, owner uint) ([]models.Project, error) {
	snap, err := w.Snapshot(ctx, owner)
	if err != nil {
		return nil, err
	}
	return snap.Projects, nil
}

func (w *Workspace) GetProject(ctx context.Context, owner, id uint) (models.Project, error) {
	snap, err := w.Snapshot(ctx, owner)
	if err != nil {
		return models.Project{}, err
	}
	p, ok := snap.Project(id)
	if !ok {
		return models.Project{}, &NotFoundError{Entity: "project", Key: fmt.Sprint(id)}
	}
	return p, nil
}

func (w *Workspace) CreateProject(ctx context.Context, owner uint, in models.ProjectInput) (models.Project, error) {
	var created models.Project
	err := w.mutate(ctx, owner, "create_project", in.Title, func(_ *scope, snap *Snapshot) (*Snapshot, string, error) {
		p, err := models.NewProject(owner, in)
		if err != nil {
			return nil, "", err
		}
		if err := w.repo.InsertProject(ctx, p); err != nil {
			return nil, "", persistenceError("create project", err)
		}
		next, err := AddProject(snap, *p)
		if err != nil {
			return nil, "", err
		}
		created = *p
		return next, fmt.Sprintf("Project %s created", p.Title), nil
	})
	return created, err
}

func (w *Workspace) UpdateProject(ctx context.Context, owner, id uint, in models.ProjectInput) (models.Project, error) {
	var updated models.Project
	err := w.mutate(ctx, owner, "update_project", fmt.Sprint(id), func(_ *scope, snap *Snapshot) (*Snapshot, string, error) {
		next, p, err := UpdateProject(snap, id, in)
		if err != nil {
			return nil, "", err
		}
		if err := w.repo.UpdateProject(ctx, &p); err != nil {
			return nil, "", persistenceError("update project", err)
		}
		updated = p
		return next, fmt.Sprintf("Project %s updated", p.Title), nil
	})
	return updated, err
}

func (w *Workspace) UpdateProjectStatus(ctx context.Context, owner, id uint, status models.ProjectStatus) (models.Project, error) {
	var updated models.Project
	err := w.mutate(ctx, owner, "update_project_status", fmt.Sprint(id), func(_ *scope, snap *Snapshot) (*Snapshot, string, error) {
		next, p, err := UpdateProjectStatus(snap, id, status)
		if err != nil {
			return nil, "", err
		}
		if err := w.repo.UpdateProject(ctx, &p); err != nil {
			return nil, "", persistenceError("update project status", err)
		}
		updated = p
		return next, fmt.Sprintf("Project %s is now %s", p.Title, p.Status), nil
	})
	return updated, err
}

func (w *Workspace) DeleteProject(ctx context.Context, owner, id uint) error {
	return w.mutate(ctx, owner, "delete_project", fmt.Sprint(id), func(_ *scope, snap *Snapshot) (*Snapshot, string, error) {
		next, err := DeleteProject(snap, id)
		if err != nil {
			return nil, "", err
		}
		if err := w.repo.DeleteProject(ctx, id); err != nil {
			return nil, "", persistenceError("delete project", err)
		}
		return next, fmt.Sprintf("Project %d deleted", id), nil
	})
}

// --- engagements ---

func (w *Workspace) ListEngagements(ctx context.Context, owner, projectID uint) ([]models.ProjectConsultant, error) {
	snap, err := w.Snapshot(ctx, owner)
	if err != nil {
		return nil, err
	}
	if _, ok := snap.Project(projectID); !ok {
		return nil, &NotFoundError{Entity: "project", Key: fmt.Sprint(projectID)}
	}
	return snap.EngagementsOf(projectID), nil
}

func engagementKey(projectID uint, email string) string {
	return fmt.Sprintf("%d/%s", projectID, email)
}

func (w *Workspace) AttachConsultant(ctx context.Context, owner, projectID uint, email string) (models.ProjectConsultant, error) {
	var attached models.ProjectConsultant
	err := w.mutate(ctx, owner, "attach_consultant", engagementKey(projectID, email), func(_ *scope, snap *Snapshot) (*Snapshot, string, error) {
		c, ok := snap.Consultant(email)
		if !ok {
			return nil, "", &NotFoundError{Entity: "consultant", Key: email}
		}
		next, e, err := AttachToProject(snap, projectID, c)
		if err != nil {
			return nil, "", err
		}
		if err := w.repo.InsertProjectConsultant(ctx, &e); err != nil {
			return nil, "", persistenceError("attach consultant", err)
		}
		next.Engagements[len(next.Engagements)-1] = e
		attached = e
		return next, fmt.Sprintf("%s added to project", c.Name), nil
	})
	return attached, err
}

func (w *Workspace) DetachConsultant(ctx context.Context, owner, projectID uint, email string) error {
	return w.mutate(ctx, owner, "detach_consultant", engagementKey(projectID, email), func(_ *scope, snap *Snapshot) (*Snapshot, string, error) {
		next, removed, err := DetachFromProject(snap, projectID, email)
		if err != nil {
			return nil, "", err
		}
		if err := w.repo.DeleteProjectConsultant(ctx, projectID, email); err != nil {
			return nil, "", persistenceError("detach consultant", err)
		}
		msg := fmt.Sprintf("%s removed from project", email)
		if removed > 0 {
			msg = fmt.Sprintf("%s removed from project with %d invoices", email, removed)
		}
		return next, msg, nil
	})
}

// UpdateQuote sets the engagement quote. A quote below the amount already
// invoiced is accepted and logged.
func (w *Workspace) UpdateQuote(ctx context.Context, owner, projectID uint, email string, quote float64) (models.ProjectConsultant, error) {
	var updated models.ProjectConsultant
	err := w.mutate(ctx, owner, "update_quote", engagementKey(projectID, email), func(_ *scope, snap *Snapshot) (*Snapshot, string, error) {
		next, e, err := UpdateQuote(snap, projectID, email, quote)
		if err != nil {
			return nil, "", err
		}
		if err := w.repo.UpdateProjectConsultant(ctx, &e); err != nil {
			return nil, "", persistenceError("update quote", err)
		}
		if remaining := RemainingQuote(&e, next.PaymentsOf(projectID)); remaining < 0 {
			logger.Warn().Uint("project_id", projectID).Str("email", email).
				Float64("remaining", remaining).Msg("quote is below the invoiced amount")
		}
		updated = e
		return next, fmt.Sprintf("Quote for %s updated", email), nil
	})
	return updated, err
}

func (w *Workspace) UpdateEngagementStatus(ctx context.Context, owner, projectID uint, email string, status models.EngagementStatus) (models.ProjectConsultant, error) {
	var updated models.ProjectConsultant
	err := w.mutate(ctx, owner, "update_engagement_status", engagementKey(projectID, email), func(_ *scope, snap *Snapshot) (*Snapshot, string, error) {
		next, e, err := UpdateEngagementStatus(snap, projectID, email, status)
		if err != nil {
			return nil, "", err
		}
		if err := w.repo.UpdateProjectConsultant(ctx, &e); err != nil {
			return nil, "", persistenceError("update engagement status", err)
		}
		updated = e
		return next, fmt.Sprintf("Status for %s is now %s", email, e.Status), nil
	})
	return updated, err
}

// --- payments ---

// ConsultantBalance is the invoicing position of one engagement.
type ConsultantBalance struct {
	ConsultantEmail string  `json:"consultant_email"`
	Name            string  `json:"name"`
	Quote           float64 `json:"quote"`
	Invoiced        float64 `json:"invoiced"`
	Remaining       float64 `json:"remaining"`
}

type ProjectLedger struct {
	Payments []models.Payment    `json:"payments"`
	Summary  Summary             `json:"summary"`
	Balances []ConsultantBalance `json:"balances"`
}

func (w *Workspace) ProjectLedger(ctx context.Context, owner, projectID uint) (*ProjectLedger, error) {
	snap, err := w.Snapshot(ctx, owner)
	if err != nil {
		return nil, err
	}
	if _, ok := snap.Project(projectID); !ok {
		return nil, &NotFoundError{Entity: "project", Key: fmt.Sprint(projectID)}
	}
	engagements := snap.EngagementsOf(projectID)
	payments := snap.PaymentsOf(projectID)

	ledger := &ProjectLedger{
		Payments: payments,
		Summary:  Summarize(engagements, payments),
		Balances: make([]ConsultantBalance, 0, len(engagements)),
	}
	for i := range engagements {
		e := &engagements[i]
		ledger.Balances = append(ledger.Balances, ConsultantBalance{
			ConsultantEmail: e.ConsultantEmail,
			Name:            e.Name,
			Quote:           e.Quote,
			Invoiced:        Invoiced(e, payments),
			Remaining:       RemainingQuote(e, payments),
		})
	}
	return ledger, nil
}

func (w *Workspace) CreateInvoice(ctx context.Context, owner, projectID uint, email string, amount float64, name string) (models.Payment, error) {
	var created models.Payment
	err := w.mutate(ctx, owner, "create_invoice", engagementKey(projectID, email), func(_ *scope, snap *Snapshot) (*Snapshot, string, error) {
		e, ok := snap.Engagement(projectID, email)
		if !ok {
			return nil, "", &NotFoundError{Entity: "engagement", Key: engagementKey(projectID, email)}
		}
		p, err := CreateInvoice(&e, amount, name, snap.PaymentsOf(projectID), w.now())
		if err != nil {
			return nil, "", err
		}
		if err := w.repo.InsertPayment(ctx, p); err != nil {
			return nil, "", persistenceError("create invoice", err)
		}
		next, err := AddPayment(snap, *p)
		if err != nil {
			return nil, "", err
		}
		created = *p
		return next, fmt.Sprintf("Invoice %s created", p.InvoiceName), nil
	})
	return created, err
}

func (w *Workspace) MarkPaid(ctx context.Context, owner, projectID, paymentID uint) (models.Payment, error) {
	var paid models.Payment
	err := w.mutate(ctx, owner, "mark_paid", fmt.Sprint(paymentID), func(_ *scope, snap *Snapshot) (*Snapshot, string, error) {
		cur, ok := snap.Payment(paymentID)
		if !ok || cur.ProjectID != projectID {
			return nil, "", &NotFoundError{Entity: "payment", Key: fmt.Sprint(paymentID)}
		}
		p, err := MarkPaid(cur, w.now())
		if err != nil {
			return nil, "", err
		}
		if err := w.repo.UpdatePayment(ctx, p); err != nil {
			return nil, "", persistenceError("mark invoice paid", err)
		}
		next, err := ReplacePayment(snap, *p)
		if err != nil {
			return nil, "", err
		}
		paid = *p
		return next, fmt.Sprintf("Invoice %s marked as paid", p.InvoiceName), nil
	})
	return paid, err
}

// --- tasks ---

// taskList returns the cached list of a consultant, loading it on first
// use. Callers hold s.mu, which also serializes task changes with deletes
// of the consultant.
func (w *Workspace) taskList(ctx context.Context, s *scope, owner uint, email string) (*TaskList, error) {
	if _, ok := s.arena.Load().Consultant(email); !ok {
		return nil, &NotFoundError{Entity: "consultant", Key: email}
	}
	if l, ok := s.tasks[email]; ok {
		return l, nil
	}
	tasks, err := w.repo.ListTasks(ctx, owner, email)
	if err != nil {
		return nil, persistenceError("load tasks", err)
	}
	l := NewTaskList(owner, email, tasks, func(ctx context.Context, tasks []models.Task) error {
		return w.repo.ReplaceTasks(ctx, owner, email, tasks)
	})
	l.now = w.now
	s.tasks[email] = l
	return l, nil
}

func (w *Workspace) withTasks(ctx context.Context, owner uint, email string, fn func(l *TaskList) error) error {
	s, err := w.scope(ctx, owner)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := w.taskList(ctx, s, owner, email)
	if err != nil {
		return err
	}
	return fn(l)
}

func (w *Workspace) ListTasks(ctx context.Context, owner uint, email string) ([]models.Task, error) {
	var tasks []models.Task
	err := w.withTasks(ctx, owner, email, func(l *TaskList) error {
		tasks = l.Tasks()
		return nil
	})
	return tasks, err
}

// RelatedDescriptions resolves the related task links of every task.
func (w *Workspace) RelatedDescriptions(ctx context.Context, owner uint, email string) (map[string][]string, error) {
	out := make(map[string][]string)
	err := w.withTasks(ctx, owner, email, func(l *TaskList) error {
		for _, t := range l.Tasks() {
			out[t.ID] = l.RelatedDescriptions(t)
		}
		return nil
	})
	return out, err
}

// AddTask returns nil without error when description is blank.
func (w *Workspace) AddTask(ctx context.Context, owner uint, email, description string, due *time.Time, related []string) (*models.Task, error) {
	var task *models.Task
	err := w.withTasks(ctx, owner, email, func(l *TaskList) error {
		var err error
		task, err = l.AddTask(ctx, description, due, related)
		return err
	})
	w.taskOutcome(owner, "add_task", email, task != nil, err)
	return task, err
}

func (w *Workspace) ToggleTask(ctx context.Context, owner uint, email, id string) (bool, error) {
	var changed bool
	err := w.withTasks(ctx, owner, email, func(l *TaskList) error {
		var err error
		changed, err = l.ToggleTask(ctx, id)
		return err
	})
	w.taskOutcome(owner, "toggle_task", email, changed, err)
	return changed, err
}

func (w *Workspace) DeleteTask(ctx context.Context, owner uint, email, id string) (bool, error) {
	var changed bool
	err := w.withTasks(ctx, owner, email, func(l *TaskList) error {
		var err error
		changed, err = l.DeleteTask(ctx, id)
		return err
	})
	w.taskOutcome(owner, "delete_task", email, changed, err)
	return changed, err
}

// CloseTasks reports the final list of a consultant's tasks.
func (w *Workspace) CloseTasks(ctx context.Context, owner uint, email string) ([]models.Task, error) {
	var tasks []models.Task
	err := w.withTasks(ctx, owner, email, func(l *TaskList) error {
		var err error
		tasks, err = l.Close(ctx)
		return err
	})
	if err != nil {
		w.fail(owner, "close_tasks", email, err)
	}
	return tasks, err
}

func (w *Workspace) taskOutcome(owner uint, action, email string, changed bool, err error) {
	switch {
	case err != nil:
		w.fail(owner, action, email, err)
	case changed:
		w.succeed(owner, action, email, "Tasks updated")
	}
}
