package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/huangang/consultdesk/internal/config"
)

func TestNewWorker_DisabledRedis(t *testing.T) {
	if w := NewWorker(&config.RedisConfig{Enabled: false}); w != nil {
		t.Error("NewWorker should return nil when Redis is disabled")
	}
}

func TestWorker_HandleReminder(t *testing.T) {
	var got *ReminderTask
	w := &Worker{}
	w.SetProcessor(func(_ context.Context, task *ReminderTask) error {
		got = task
		return nil
	})

	payload, _ := json.Marshal(ReminderTask{TaskID: "t-1", OwnerID: 3, ConsultantEmail: "ana@example.com",
		Description: "Send draft", DueDate: time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)})
	if err := w.handleReminder(context.Background(), asynq.NewTask(TaskTypeReminder, payload)); err != nil {
		t.Fatalf("handleReminder() error = %v", err)
	}
	if got == nil || got.TaskID != "t-1" || got.OwnerID != 3 {
		t.Errorf("processor got %+v", got)
	}

	err := w.handleReminder(context.Background(), asynq.NewTask(TaskTypeReminder, []byte("{broken")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Errorf("malformed payload error = %v, expected SkipRetry", err)
	}
}
