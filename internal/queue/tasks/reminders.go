package tasks

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/onboardhub/engine/internal/services"
	"github.com/onboardhub/engine/pkg/logger"
	"go.uber.org/zap"
)

func NewReminderTask() *asynq.Task {
	return asynq.NewTask(TypeReminderRun, nil, asynq.MaxRetry(1), asynq.Queue(QueueDefault), asynq.Timeout(10*time.Minute))
}

// ReminderTaskHandler runs the reminder batch.
type ReminderTaskHandler struct {
	reminders services.ReminderService
}

func NewReminderTaskHandler(reminders services.ReminderService) *ReminderTaskHandler {
	return &ReminderTaskHandler{reminders: reminders}
}

func (h *ReminderTaskHandler) HandleRun(ctx context.Context, _ *asynq.Task) error {
	logger.L().Info("handling reminder task")
	summary, err := h.reminders.Run(ctx)
	if err != nil {
		logger.L().Error("reminder run failed", zap.Error(err))
		return err
	}
	logger.L().Info("reminder task done",
		zap.Int("projects_scanned", summary.ProjectsScanned),
		zap.Int("attempted", summary.Attempted),
		zap.Int("succeeded", summary.Succeeded))
	return nil
}

// RegisterReminderSchedule adds the periodic reminder run to a scheduler.
func RegisterReminderSchedule(s *asynq.Scheduler, cronspec string) (string, error) {
	return s.Register(cronspec, NewReminderTask())
}
