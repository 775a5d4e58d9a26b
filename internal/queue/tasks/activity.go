package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/onboardhub/engine/internal/services"
	"github.com/onboardhub/engine/pkg/logger"
	"github.com/onboardhub/engine/pkg/metrics"
	"go.uber.org/zap"
)

// QueueSink hands activity entries to the worker through asynq.
type QueueSink struct {
	client Enqueuer
}

func NewQueueSink(client Enqueuer) *QueueSink {
	return &QueueSink{client: client}
}

var _ services.ActivitySink = (*QueueSink)(nil)

func NewActivityTask(entry services.ActivityEntry) (*asynq.Task, error) {
	b, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeActivityAppend, b, asynq.MaxRetry(3), asynq.Queue(QueueLow), asynq.Timeout(30*time.Second)), nil
}

// Append enqueues the entry. Failures are logged and dropped.
func (s *QueueSink) Append(ctx context.Context, entry services.ActivityEntry) {
	task, err := NewActivityTask(entry)
	if err != nil {
		metrics.IncrementActivity("dropped")
		logger.L().Warn("activity payload encode failed", zap.String("action", entry.Action), zap.Error(err))
		return
	}
	if _, err := s.client.EnqueueContext(context.WithoutCancel(ctx), task); err != nil {
		metrics.IncrementActivity("dropped")
		logger.L().Warn("activity enqueue failed", zap.String("action", entry.Action), zap.Error(err))
	}
}

// EntryWriter persists one activity entry.
type EntryWriter interface {
	Write(ctx context.Context, entry services.ActivityEntry) error
}

// ActivityTaskHandler writes queued activity entries.
type ActivityTaskHandler struct {
	writer EntryWriter
}

func NewActivityTaskHandler(writer EntryWriter) *ActivityTaskHandler {
	return &ActivityTaskHandler{writer: writer}
}

func (h *ActivityTaskHandler) HandleAppend(ctx context.Context, t *asynq.Task) error {
	var entry services.ActivityEntry
	if err := json.Unmarshal(t.Payload(), &entry); err != nil {
		logger.L().Error("invalid activity task payload", zap.Error(err))
		return fmt.Errorf("decode activity payload: %v: %w", err, asynq.SkipRetry)
	}
	if entry.Action == "" {
		logger.L().Error("activity task without action")
		return fmt.Errorf("activity entry missing action: %w", asynq.SkipRetry)
	}
	if err := h.writer.Write(ctx, entry); err != nil {
		metrics.IncrementActivity("retry")
		logger.L().Warn("activity write failed", zap.String("action", entry.Action), zap.Error(err))
		return err
	}
	metrics.IncrementActivity("written")
	return nil
}
