package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/huangang/consultdesk/internal/models"
)

// TaskNotFound is shown in place of a related task that no longer exists.
const TaskNotFound = "Task not found"

// TaskUpdateFunc receives the full list after every change. Returning an
// error discards the change.
type TaskUpdateFunc func(ctx context.Context, tasks []models.Task) error

// TaskList is the to-do list of one consultant.
type TaskList struct {
	mu       sync.Mutex
	owner    uint
	email    string
	tasks    []models.Task
	onUpdate TaskUpdateFunc
	newID    func() string
	now      func() time.Time
}

func NewTaskList(owner uint, email string, tasks []models.Task, onUpdate TaskUpdateFunc) *TaskList {
	return &TaskList{
		owner:    owner,
		email:    email,
		tasks:    append([]models.Task{}, tasks...),
		onUpdate: onUpdate,
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// Tasks returns a copy of the list in insertion order.
func (l *TaskList) Tasks() []models.Task {
	l.mu.Lock()
	defer l.mu.Unlock()
	return copyTasks(l.tasks)
}

func copyTasks(tasks []models.Task) []models.Task {
	out := make([]models.Task, len(tasks))
	for i, t := range tasks {
		t.RelatedTaskIDs = append([]string{}, t.RelatedTaskIDs...)
		out[i] = t
	}
	return out
}

// commit reports next to the callback and keeps it only when accepted.
func (l *TaskList) commit(ctx context.Context, next []models.Task) error {
	if l.onUpdate != nil {
		if err := l.onUpdate(ctx, copyTasks(next)); err != nil {
			return persistenceError("save tasks", err)
		}
	}
	l.tasks = next
	return nil
}

// AddTask appends a task. A blank description adds nothing and returns nil.
func (l *TaskList) AddTask(ctx context.Context, description string, due *time.Time, related []string) (*models.Task, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	position := 0
	if n := len(l.tasks); n > 0 {
		position = l.tasks[n-1].Position + 1
	}
	task := models.Task{
		ID:              l.newID(),
		OwnerID:         l.owner,
		ConsultantEmail: l.email,
		Position:        position,
		Description:     description,
		DueDate:         due,
		RelatedTaskIDs:  append([]string{}, related...),
		CreatedAt:       l.now(),
	}
	next := append(copyTasks(l.tasks), task)
	if err := l.commit(ctx, next); err != nil {
		return nil, err
	}
	return &task, nil
}

// ToggleTask flips the completed flag. Unknown ids are ignored and report
// false.
func (l *TaskList) ToggleTask(ctx context.Context, id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := copyTasks(l.tasks)
	for i := range next {
		if next[i].ID == id {
			next[i].Completed = !next[i].Completed
			return true, l.commit(ctx, next)
		}
	}
	return false, nil
}

// DeleteTask removes a task. Unknown ids are ignored and report false.
// Links from other tasks are left in place and render as TaskNotFound.
func (l *TaskList) DeleteTask(ctx context.Context, id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := make([]models.Task, 0, len(l.tasks))
	found := false
	for _, t := range copyTasks(l.tasks) {
		if t.ID == id {
			found = true
			continue
		}
		next = append(next, t)
	}
	if !found {
		return false, nil
	}
	return true, l.commit(ctx, next)
}

// Close reports the current list to the callback one last time.
func (l *TaskList) Close(ctx context.Context) ([]models.Task, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.commit(ctx, copyTasks(l.tasks)); err != nil {
		return nil, err
	}
	return copyTasks(l.tasks), nil
}

// RelatedDescriptions resolves the related ids of t against the list.
func (l *TaskList) RelatedDescriptions(t models.Task) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	byID := make(map[string]string, len(l.tasks))
	for _, task := range l.tasks {
		byID[task.ID] = task.Description
	}
	out := make([]string, 0, len(t.RelatedTaskIDs))
	for _, id := range t.RelatedTaskIDs {
		if desc, ok := byID[id]; ok {
			out = append(out, desc)
		} else {
			out = append(out, TaskNotFound)
		}
	}
	return out
}
