package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/onboardhub/engine/internal/models"
	"github.com/onboardhub/engine/internal/services"
	"github.com/onboardhub/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	_, err := logger.Init("info", "json")
	if err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

type mockEnqueuer struct {
	mock.Mock
}

func (m *mockEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task)
	if v := args.Get(0); v != nil {
		return v.(*asynq.TaskInfo), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) Write(ctx context.Context, entry services.ActivityEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

type mockReminderService struct {
	mock.Mock
}

func (m *mockReminderService) Run(ctx context.Context) (*services.ReminderSummary, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.(*services.ReminderSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

func sampleEntry() services.ActivityEntry {
	return services.NewActivityEntry(uuid.New(), nil, services.Actor{Name: "ops@example.com", Type: models.ActorStaff}, services.ActionTaskCompleted, map[string]any{"title": "Kickoff"})
}

func TestQueueSinkEnqueuesActivityTask(t *testing.T) {
	enq := new(mockEnqueuer)
	entry := sampleEntry()
	enq.On("EnqueueContext", mock.Anything, mock.MatchedBy(func(task *asynq.Task) bool {
		var got services.ActivityEntry
		if err := json.Unmarshal(task.Payload(), &got); err != nil {
			return false
		}
		return task.Type() == TypeActivityAppend && got.Action == entry.Action && *got.ProjectID == *entry.ProjectID
	})).Return(&asynq.TaskInfo{ID: "1"}, nil).Once()

	NewQueueSink(enq).Append(context.Background(), entry)
	enq.AssertExpectations(t)
}

func TestQueueSinkSwallowsEnqueueFailure(t *testing.T) {
	enq := new(mockEnqueuer)
	enq.On("EnqueueContext", mock.Anything, mock.Anything).Return(nil, errors.New("redis down")).Once()

	require.NotPanics(t, func() {
		NewQueueSink(enq).Append(context.Background(), sampleEntry())
	})
	enq.AssertExpectations(t)
}

func TestActivityHandlerWritesEntry(t *testing.T) {
	entry := sampleEntry()
	task, err := NewActivityTask(entry)
	require.NoError(t, err)

	w := new(mockWriter)
	w.On("Write", mock.Anything, mock.MatchedBy(func(e services.ActivityEntry) bool {
		return e.Action == entry.Action && e.Actor == "ops@example.com" && e.ActorType == models.ActorStaff
	})).Return(nil).Once()

	require.NoError(t, NewActivityTaskHandler(w).HandleAppend(context.Background(), task))
	w.AssertExpectations(t)
}

func TestActivityHandlerSkipsRetryOnBadPayload(t *testing.T) {
	w := new(mockWriter)
	err := NewActivityTaskHandler(w).HandleAppend(context.Background(), asynq.NewTask(TypeActivityAppend, []byte("{not json")))
	require.Error(t, err)
	require.ErrorIs(t, err, asynq.SkipRetry)
	w.AssertNotCalled(t, "Write", mock.Anything, mock.Anything)
}

func TestActivityHandlerReturnsWriteError(t *testing.T) {
	task, err := NewActivityTask(sampleEntry())
	require.NoError(t, err)
	w := new(mockWriter)
	w.On("Write", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()

	err = NewActivityTaskHandler(w).HandleAppend(context.Background(), task)
	require.Error(t, err)
	require.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestReminderHandlerRunsBatch(t *testing.T) {
	svc := new(mockReminderService)
	svc.On("Run", mock.Anything).Return(&services.ReminderSummary{ProjectsScanned: 2, Attempted: 1, Succeeded: 1}, nil).Once()

	require.NoError(t, NewReminderTaskHandler(svc).HandleRun(context.Background(), NewReminderTask()))
	svc.AssertExpectations(t)
}

func TestReminderHandlerPropagatesFailure(t *testing.T) {
	svc := new(mockReminderService)
	svc.On("Run", mock.Anything).Return(nil, errors.New("store unavailable")).Once()

	require.Error(t, NewReminderTaskHandler(svc).HandleRun(context.Background(), NewReminderTask()))
}
