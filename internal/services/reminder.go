package services

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/huangang/consultdesk/internal/config"
	"github.com/huangang/consultdesk/internal/models"
	"github.com/huangang/consultdesk/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const reminderLockName = "task_reminder"

// RunLock claims a named scheduled run so that it happens once across
// server instances.
type RunLock interface {
	Claim(ctx context.Context, name, key, holder string, ttl time.Duration) (bool, error)
}

// GormRunLock implements RunLock on the scheduled_runs table. Expired
// claims are purged before each attempt.
type GormRunLock struct {
	db *gorm.DB
}

func NewGormRunLock(db *gorm.DB) *GormRunLock {
	return &GormRunLock{db: db}
}

func (l *GormRunLock) Claim(ctx context.Context, name, key, holder string, ttl time.Duration) (bool, error) {
	now := time.Now()
	db := l.db.WithContext(ctx)
	if err := db.Where("expires_at < ?", now).Delete(&models.RunClaim{}).Error; err != nil {
		return false, err
	}
	claim := models.RunClaim{
		Job:       name,
		RunKey:    key,
		Holder:    holder,
		ClaimedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&claim)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ReminderService scans for open tasks due today on every workday and
// dispatches one reminder per task through the task queue.
type ReminderService struct {
	repo     Repository
	queue    TaskQueue
	lock     RunLock
	holidays *HolidayService
	notifier Notifier
	mailer   Mailer
	cfg      config.ReminderConfig
	instance string
	cron     *cron.Cron
	now      func() time.Time
}

func NewReminderService(repo Repository, queue TaskQueue, lock RunLock, holidays *HolidayService, notifier Notifier, cfg config.ReminderConfig) *ReminderService {
	host, _ := os.Hostname()
	return &ReminderService{
		repo:     repo,
		queue:    queue,
		lock:     lock,
		holidays: holidays,
		notifier: notifier,
		cfg:      cfg,
		instance: fmt.Sprintf("%s-%d", host, os.Getpid()),
		cron:     cron.New(),
		now:      time.Now,
	}
}

// SetMailer makes Process also mail each reminder to its consultant.
func (s *ReminderService) SetMailer(m Mailer) {
	s.mailer = m
}

// Schedule registers an extra job on the reminder scheduler.
func (s *ReminderService) Schedule(expr string, job func()) error {
	_, err := s.cron.AddFunc(expr, job)
	return err
}

// Start registers the scan and starts the scheduler.
func (s *ReminderService) Start() error {
	if s.cfg.Enabled {
		if _, err := s.cron.AddFunc(s.cfg.Cron, func() {
			if _, err := s.Run(context.Background()); err != nil {
				logger.Errorf("[Reminder] scan failed: %v", err)
			}
		}); err != nil {
			return fmt.Errorf("invalid reminder cron %q: %w", s.cfg.Cron, err)
		}
	}
	s.cron.Start()
	logger.Info().Bool("reminders", s.cfg.Enabled).Str("cron", s.cfg.Cron).
		Str("country", s.cfg.Country).Msg("[Reminder] scheduler started")
	return nil
}

// Stop waits for running jobs.
func (s *ReminderService) Stop() {
	<-s.cron.Stop().Done()
}

// Window returns the due-date range covered by a scan on today: every day
// since the previous workday, so tasks due over a weekend are reminded on
// the next workday.
func (s *ReminderService) Window(today time.Time) (time.Time, time.Time) {
	to := day(today).AddDate(0, 0, 1)
	from := day(today)
	for i := 0; i < 31; i++ {
		prev := from.AddDate(0, 0, -1)
		if s.holidays.IsWorkday(prev, s.cfg.Country) {
			break
		}
		from = prev
	}
	return from, to
}

// Run performs one scan and returns the number of reminders enqueued. Scans
// on non-workdays and scans another instance already claimed do nothing.
func (s *ReminderService) Run(ctx context.Context) (int, error) {
	today := s.now()
	if !s.holidays.IsWorkday(today, s.cfg.Country) {
		logger.Debug().Time("day", today).Msg("[Reminder] not a workday, skipping")
		return 0, nil
	}

	key := today.Format("2006-01-02")
	claimed, err := s.lock.Claim(ctx, reminderLockName, key, s.instance, 20*time.Hour)
	if err != nil {
		return 0, fmt.Errorf("claim reminder run: %w", err)
	}
	if !claimed {
		logger.Debug().Str("key", key).Msg("[Reminder] run already claimed")
		return 0, nil
	}

	from, to := s.Window(today)
	tasks, err := s.repo.ListTasksDue(ctx, from, to)
	if err != nil {
		return 0, persistenceError("list due tasks", err)
	}

	sent := 0
	for _, t := range tasks {
		if err := s.queue.Enqueue(&ReminderTask{
			TaskID:          t.ID,
			OwnerID:         t.OwnerID,
			ConsultantEmail: t.ConsultantEmail,
			Description:     t.Description,
			DueDate:         *t.DueDate,
		}); err != nil {
			logger.Errorf("[Reminder] enqueue %s failed: %v", t.ID, err)
			continue
		}
		sent++
	}

	logger.Info().Int("due", len(tasks)).Int("enqueued", sent).Msg("[Reminder] scan complete")
	return sent, nil
}

// Process delivers a reminder to its owner, and to the consultant when a
// mailer is set. A failed mail is logged and does not fail the reminder.
func (s *ReminderService) Process(_ context.Context, task *ReminderTask) error {
	s.notifier.Notify(Notification{
		OwnerID: task.OwnerID,
		Level:   LevelInfo,
		Action:  "task_due",
		Message: fmt.Sprintf("Task due for %s: %s", task.ConsultantEmail, task.Description),
	})

	if s.mailer != nil {
		if err := s.mailer.SendReminder(task); err != nil {
			owner := task.OwnerID
			LogWarning("reminder", "mail", fmt.Sprintf("mail to %s failed: %v", task.ConsultantEmail, err), &owner, task.TaskID)
		}
	}
	return nil
}

// ReminderStatus describes the reminder schedule for display.
type ReminderStatus struct {
	Enabled        bool          `json:"enabled"`
	Cron           string        `json:"cron"`
	Country        string        `json:"country"`
	TodayIsWorkday bool          `json:"today_is_workday"`
	NextWorkday    string        `json:"next_workday"`
	Countries      []CountryInfo `json:"countries"`
}

func (s *ReminderService) Status() ReminderStatus {
	today := s.now()
	return ReminderStatus{
		Enabled:        s.cfg.Enabled,
		Cron:           s.cfg.Cron,
		Country:        s.cfg.Country,
		TodayIsWorkday: s.holidays.IsWorkday(today, s.cfg.Country),
		NextWorkday:    s.holidays.NextWorkday(today, s.cfg.Country).Format("2006-01-02"),
		Countries:      s.holidays.SupportedCountries(),
	}
}
