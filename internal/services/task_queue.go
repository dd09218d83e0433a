package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/huangang/consultdesk/internal/config"
	"github.com/huangang/consultdesk/pkg/logger"
)

const (
	TaskTypeReminder = "reminder:due"
)

// ReminderTask announces one open task that is due today.
type ReminderTask struct {
	TaskID          string    `json:"task_id"`
	OwnerID         uint      `json:"owner_id"`
	ConsultantEmail string    `json:"consultant_email"`
	Description     string    `json:"description"`
	DueDate         time.Time `json:"due_date"`
}

// ReminderProcessor handles a dequeued reminder.
type ReminderProcessor func(context.Context, *ReminderTask) error

// ErrQueueClosed is returned by Enqueue after Close.
var ErrQueueClosed = errors.New("task queue is closed")

// TaskQueue dispatches reminders to a ReminderProcessor.
type TaskQueue interface {
	Enqueue(task *ReminderTask) error
	// IsAsync reports whether reminders leave the process (Redis).
	IsAsync() bool
	// Close stops accepting reminders and waits for local ones.
	Close() error
}

var (
	globalTaskQueue TaskQueue
	taskQueueOnce   sync.Once
)

// InitTaskQueue picks the Redis backed queue when enabled and reachable,
// the in-process queue otherwise.
func InitTaskQueue(cfg *config.Config) TaskQueue {
	taskQueueOnce.Do(func() {
		globalTaskQueue = newTaskQueue(&cfg.Redis)
	})
	return globalTaskQueue
}

func newTaskQueue(cfg *config.RedisConfig) TaskQueue {
	if !cfg.Enabled {
		logger.Info().Msg("[TaskQueue] Redis disabled, reminders run in process")
		return NewSyncQueue()
	}
	queue, err := NewAsyncQueue(cfg)
	if err != nil {
		logger.Warn().Err(err).Str("addr", cfg.Addr).Msg("[TaskQueue] Redis unreachable, reminders run in process")
		return NewSyncQueue()
	}
	logger.Info().Str("addr", cfg.Addr).Msg("[TaskQueue] reminders queued in Redis")
	return queue
}

// GetTaskQueue returns the queue InitTaskQueue built, or nil before that.
func GetTaskQueue() TaskQueue {
	return globalTaskQueue
}

func redisOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}
}

// AsyncQueue hands reminders to a Worker through Redis.
type AsyncQueue struct {
	client *asynq.Client
}

// NewAsyncQueue fails when Redis does not answer.
func NewAsyncQueue(cfg *config.RedisConfig) (*AsyncQueue, error) {
	opt := redisOpt(cfg)
	inspector := asynq.NewInspector(opt)
	defer inspector.Close()
	if _, err := inspector.Queues(); err != nil {
		return nil, err
	}
	return &AsyncQueue{client: asynq.NewClient(opt)}, nil
}

// NewReminderPayload encodes a reminder as an asynq task. The task id is
// derived from the reminder so a rerun of the same day's scan is deduplicated.
func NewReminderPayload(task *ReminderTask) (*asynq.Task, []asynq.Option, error) {
	payload, err := json.Marshal(task)
	if err != nil {
		return nil, nil, err
	}
	opts := []asynq.Option{
		asynq.Queue("default"),
		asynq.MaxRetry(3),
		asynq.TaskID(task.TaskID + ":" + task.DueDate.Format(time.DateOnly)),
		asynq.Retention(24 * time.Hour),
	}
	return asynq.NewTask(TaskTypeReminder, payload), opts, nil
}

func (q *AsyncQueue) Enqueue(task *ReminderTask) error {
	t, opts, err := NewReminderPayload(task)
	if err != nil {
		return err
	}
	info, err := q.client.Enqueue(t, opts...)
	switch {
	case errors.Is(err, asynq.ErrTaskIDConflict):
		logger.Debug().Str("task_id", task.TaskID).Msg("[AsyncQueue] reminder already queued")
		return nil
	case err != nil:
		return err
	}
	logger.Debug().Str("id", info.ID).Str("queue", info.Queue).Msg("[AsyncQueue] reminder enqueued")
	return nil
}

func (q *AsyncQueue) IsAsync() bool { return true }

func (q *AsyncQueue) Close() error { return q.client.Close() }

// syncConcurrency caps the reminders a SyncQueue processes at once.
const syncConcurrency = 5

// SyncQueue processes reminders on goroutines of this process.
type SyncQueue struct {
	mu        sync.RWMutex
	processor ReminderProcessor
	closed    bool
	slots     chan struct{}
	wg        sync.WaitGroup
}

func NewSyncQueue() *SyncQueue {
	return &SyncQueue{slots: make(chan struct{}, syncConcurrency)}
}

func (q *SyncQueue) SetProcessor(processor ReminderProcessor) {
	q.mu.Lock()
	q.processor = processor
	q.mu.Unlock()
}

// Enqueue returns at once; the reminder waits for a free slot in the
// background. Reminders enqueued before a processor is set are dropped.
func (q *SyncQueue) Enqueue(task *ReminderTask) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	if q.processor == nil {
		logger.Warn().Str("task", task.TaskID).Msg("[SyncQueue] no processor set, reminder dropped")
		return nil
	}

	process := q.processor
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.slots <- struct{}{}
		defer func() { <-q.slots }()
		if err := process(context.Background(), task); err != nil {
			logger.Error().Err(err).Str("task", task.TaskID).Msg("[SyncQueue] reminder failed")
		}
	}()
	return nil
}

func (q *SyncQueue) IsAsync() bool { return false }

// Close rejects further reminders and waits for the queued ones.
func (q *SyncQueue) Close() error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wg.Wait()
	return nil
}
