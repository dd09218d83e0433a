package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/huangang/consultdesk/internal/config"
	"github.com/huangang/consultdesk/internal/models"
)

type memoryLock struct {
	mu     sync.Mutex
	claims map[string]bool
	err    error
}

func (l *memoryLock) Claim(_ context.Context, name, key, _ string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	if l.claims == nil {
		l.claims = map[string]bool{}
	}
	if l.claims[name+key] {
		return false, nil
	}
	l.claims[name+key] = true
	return true, nil
}

type recordingQueue struct {
	tasks []*ReminderTask
}

func (q *recordingQueue) Enqueue(task *ReminderTask) error {
	q.tasks = append(q.tasks, task)
	return nil
}
func (q *recordingQueue) IsAsync() bool { return false }
func (q *recordingQueue) Close() error  { return nil }

func dueTask(id string, due time.Time, completed bool) models.Task {
	return models.Task{
		ID:              id,
		OwnerID:         owner,
		ConsultantEmail: "ana@x.com",
		Description:     "task " + id,
		Completed:       completed,
		DueDate:         &due,
	}
}

func newTestReminder(now time.Time) (*ReminderService, *MemoryRepository, *recordingQueue, *memoryLock) {
	repo := NewMemoryRepository()
	queue := &recordingQueue{}
	lock := &memoryLock{}
	svc := NewReminderService(repo, queue, lock, NewHolidayService(), &recordingNotifier{},
		config.ReminderConfig{Enabled: true, Cron: "0 8 * * *", Country: "NONE"})
	svc.now = func() time.Time { return now }
	return svc, repo, queue, lock
}

func TestReminderService_Window(t *testing.T) {
	svc, _, _, _ := newTestReminder(time.Now())

	monday := time.Date(2026, time.October, 19, 8, 0, 0, 0, time.UTC)
	from, to := svc.Window(monday)
	if want := time.Date(2026, time.October, 17, 0, 0, 0, 0, time.UTC); !from.Equal(want) {
		t.Errorf("from = %v, expected Saturday %v", from, want)
	}
	if want := time.Date(2026, time.October, 20, 0, 0, 0, 0, time.UTC); !to.Equal(want) {
		t.Errorf("to = %v, expected %v", to, want)
	}

	tuesday := monday.AddDate(0, 0, 1)
	from, _ = svc.Window(tuesday)
	if !from.Equal(time.Date(2026, time.October, 20, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("from = %v, expected the same day", from)
	}
}

func TestReminderService_RunEnqueuesDueTasks(t *testing.T) {
	monday := time.Date(2026, time.October, 19, 8, 0, 0, 0, time.UTC)
	svc, repo, queue, _ := newTestReminder(monday)

	repo.SeedTasks(
		dueTask("weekend", time.Date(2026, time.October, 18, 0, 0, 0, 0, time.UTC), false),
		dueTask("today", time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC), false),
		dueTask("done", time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC), true),
		dueTask("friday", time.Date(2026, time.October, 16, 0, 0, 0, 0, time.UTC), false),
		dueTask("tomorrow", time.Date(2026, time.October, 20, 0, 0, 0, 0, time.UTC), false),
	)

	sent, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sent != 2 {
		t.Errorf("sent = %d, expected 2", sent)
	}
	got := map[string]bool{}
	for _, task := range queue.tasks {
		got[task.TaskID] = true
	}
	if !got["weekend"] || !got["today"] {
		t.Errorf("enqueued = %v, expected weekend and today", got)
	}
}

func TestReminderService_RunOncePerDay(t *testing.T) {
	monday := time.Date(2026, time.October, 19, 8, 0, 0, 0, time.UTC)
	svc, repo, queue, _ := newTestReminder(monday)
	repo.SeedTasks(dueTask("today", monday, false))

	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	sent, err := svc.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sent != 0 || len(queue.tasks) != 1 {
		t.Errorf("second run sent %d (total %d), expected nothing new", sent, len(queue.tasks))
	}
}

func TestReminderService_SkipsNonWorkday(t *testing.T) {
	saturday := time.Date(2026, time.October, 17, 8, 0, 0, 0, time.UTC)
	svc, repo, queue, _ := newTestReminder(saturday)
	repo.SeedTasks(dueTask("today", saturday, false))

	sent, err := svc.Run(context.Background())
	if err != nil || sent != 0 {
		t.Errorf("Run() = %d, %v; expected 0, nil", sent, err)
	}
	if len(repo.Calls()) != 0 || len(queue.tasks) != 0 {
		t.Error("a non-workday scan should not touch the store or queue")
	}
}

func TestReminderService_Errors(t *testing.T) {
	monday := time.Date(2026, time.October, 19, 8, 0, 0, 0, time.UTC)

	svc, _, _, lock := newTestReminder(monday)
	lock.err = errors.New("locked out")
	if _, err := svc.Run(context.Background()); err == nil {
		t.Error("expected lock error")
	}

	svc, repo, _, _ := newTestReminder(monday)
	repo.FailOn("ListTasksDue", true)
	_, err := svc.Run(context.Background())
	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Errorf("error = %v, expected PersistenceError", err)
	}
}

func TestReminderService_Process(t *testing.T) {
	svc, _, _, _ := newTestReminder(time.Now())
	notifier := &recordingNotifier{}
	svc.notifier = notifier

	err := svc.Process(context.Background(), &ReminderTask{OwnerID: 3, ConsultantEmail: "ana@x.com", Description: "Call client"})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	n := notifier.last()
	if n.OwnerID != 3 || n.Level != LevelInfo || n.Action != "task_due" {
		t.Errorf("notification = %+v", n)
	}
	if n.Message != "Task due for ana@x.com: Call client" {
		t.Errorf("Message = %q", n.Message)
	}
}

func TestReminderService_StartRejectsBadCron(t *testing.T) {
	svc, _, _, _ := newTestReminder(time.Now())
	svc.cfg.Cron = "not a cron"
	if err := svc.Start(); err == nil {
		svc.Stop()
		t.Error("Start should fail on an invalid cron expression")
	}
}

type recordingMailer struct {
	sent []*ReminderTask
	err  error
}

func (m *recordingMailer) SendReminder(task *ReminderTask) error {
	m.sent = append(m.sent, task)
	return m.err
}

func TestReminderService_ProcessMails(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"delivered", nil},
		{"smtp failure is not fatal", errors.New("smtp down")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _, _ := newTestReminder(time.Now())
			notifier := &recordingNotifier{}
			svc.notifier = notifier
			mailer := &recordingMailer{err: tt.err}
			svc.SetMailer(mailer)

			if err := svc.Process(context.Background(), &ReminderTask{TaskID: "t1", OwnerID: 3, ConsultantEmail: "ana@x.com"}); err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			if len(mailer.sent) != 1 || mailer.sent[0].TaskID != "t1" {
				t.Errorf("sent = %v, expected the reminder", mailer.sent)
			}
			if notifier.last().Action != "task_due" {
				t.Error("owner should still be notified")
			}
		})
	}
}

func TestReminderService_Status(t *testing.T) {
	saturday := time.Date(2026, time.October, 17, 9, 0, 0, 0, time.UTC)
	svc, _, _, _ := newTestReminder(saturday)

	st := svc.Status()
	if st.TodayIsWorkday {
		t.Error("Saturday should not be a workday")
	}
	if st.NextWorkday != "2026-10-19" {
		t.Errorf("NextWorkday = %q, expected 2026-10-19", st.NextWorkday)
	}
	if len(st.Countries) == 0 {
		t.Error("Countries should list the supported calendars")
	}
}
