package main

import (
	"github.com/huangang/consultdesk/internal/config"
	"github.com/huangang/consultdesk/internal/handlers"
	"github.com/huangang/consultdesk/internal/middleware"
	"github.com/huangang/consultdesk/internal/models"
	"github.com/huangang/consultdesk/internal/services"
	"github.com/huangang/consultdesk/internal/utils"
	"github.com/huangang/consultdesk/pkg/logger"
)

// appServices holds the long-lived services shared by the routes.
type appServices struct {
	workspace   *services.Workspace
	hub         *services.EventHub
	authService *services.AuthService
	reminders   *services.ReminderService
	logs        *services.SystemLogService
	taskQueue   services.TaskQueue
	worker      *services.Worker
	limiters    []*middleware.RateLimiter
}

// bootstrap initializes the database, the workspace and the schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)
	services.RegisterSpecialtyLabels(cfg.Grouping.SpecialtyLabels)
	handlers.RegisterErrorTranslator()

	if err := models.InitDB(&cfg.Database, cfg.Server.Mode); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	if err := models.SeedDefaultData(utils.HashPassword); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed default data")
	}

	db := models.GetDB()
	services.InitSystemLogger(db)

	hub := services.GetEventHub()
	repo := services.NewGormRepository(db, cfg.Database.QueryTimeout)
	workspace := services.NewWorkspace(repo, hub)

	holidays := services.NewHolidayService()
	if !holidays.Supports(cfg.Reminder.Country) {
		logger.Warn().Str("country", cfg.Reminder.Country).Msg("Unknown reminder country, using weekdays only")
	}

	taskQueue := services.InitTaskQueue(cfg)
	reminders := services.NewReminderService(repo, taskQueue, services.NewGormRunLock(db), holidays, hub, cfg.Reminder)
	if mailer := services.NewEmailService(&cfg.Email); mailer.IsEnabled() {
		reminders.SetMailer(mailer)
	}
	if syncQueue, ok := taskQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(reminders.Process)
	}

	var worker *services.Worker
	if cfg.Redis.Enabled && taskQueue.IsAsync() {
		worker = services.NewWorker(&cfg.Redis)
		if worker != nil {
			worker.SetProcessor(reminders.Process)
			if err := worker.Start(); err != nil {
				logger.Error().Err(err).Msg("Failed to start worker")
			}
		}
	}

	logService := services.NewSystemLogService(db)
	retention := cfg.Log.RetentionDays
	if err := reminders.Schedule("@daily", func() {
		removed, err := logService.CleanupOldLogs(retention)
		if err != nil {
			logger.Error().Err(err).Msg("System log cleanup failed")
			return
		}
		logger.Info().Int64("removed", removed).Int("retention_days", retention).Msg("System log cleanup")
	}); err != nil {
		logger.Warn().Err(err).Msg("Failed to schedule log cleanup")
	}
	if err := reminders.Start(); err != nil {
		logger.Fatalf("Failed to start reminders: %v", err)
	}

	return &appServices{
		workspace:   workspace,
		hub:         hub,
		authService: services.NewAuthService(db, &cfg.JWT, &cfg.LDAP),
		reminders:   reminders,
		logs:        logService,
		taskQueue:   taskQueue,
		worker:      worker,
	}
}

// shutdown stops the schedulers, then the worker, then the queue.
func (s *appServices) shutdown() {
	for _, l := range s.limiters {
		l.Stop()
	}
	s.reminders.Stop()
	logger.Info().Msg("Schedulers stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		if err := s.taskQueue.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close task queue")
		}
	}
}
