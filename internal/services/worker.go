package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/huangang/consultdesk/internal/config"
	"github.com/huangang/consultdesk/pkg/logger"
)

// Worker runs reminder tasks queued in Redis.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor ReminderProcessor

	mu      sync.Mutex
	running bool
}

// NewWorker returns nil when Redis is disabled.
func NewWorker(cfg *config.RedisConfig) *Worker {
	if !cfg.Enabled {
		return nil
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}

	server := asynq.NewServer(redisOpt(cfg), asynq.Config{
		Concurrency:  concurrency,
		Queues:       map[string]int{"default": 1},
		ErrorHandler: asynq.ErrorHandlerFunc(reportFailure),
	})
	return &Worker{server: server, mux: asynq.NewServeMux()}
}

// reportFailure logs every failed attempt and writes an audit row once the
// task has no retries left.
func reportFailure(ctx context.Context, task *asynq.Task, err error) {
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	logger.Warn().Err(err).Str("type", task.Type()).Int("retry", retried).Int("max_retry", maxRetry).
		Msg("[Worker] task failed")
	if retried < maxRetry {
		return
	}

	var rt ReminderTask
	if json.Unmarshal(task.Payload(), &rt) != nil {
		return
	}
	owner := rt.OwnerID
	LogError("reminder", "deliver", fmt.Sprintf("reminder for %s gave up after %d retries: %v",
		rt.ConsultantEmail, retried, err), &owner, rt.TaskID)
}

func (w *Worker) SetProcessor(processor ReminderProcessor) {
	w.processor = processor
}

func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	w.mux.HandleFunc(TaskTypeReminder, w.handleReminder)
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	w.running = true
	logger.Info().Msg("[Worker] consuming reminders")
	return nil
}

// Stop waits for in-flight reminders, then disconnects.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.server.Shutdown()
	w.running = false
	logger.Info().Msg("[Worker] stopped")
}

func (w *Worker) handleReminder(ctx context.Context, t *asynq.Task) error {
	var task ReminderTask
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		return fmt.Errorf("decode reminder: %v: %w", err, asynq.SkipRetry)
	}
	if w.processor == nil {
		logger.Warn().Str("task", task.TaskID).Msg("[Worker] no processor set")
		return nil
	}
	return w.processor(ctx, &task)
}
