package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/onboardhub/engine/internal/models"
	"github.com/onboardhub/engine/internal/repository"
	"github.com/onboardhub/engine/pkg/logger"
	"github.com/onboardhub/engine/pkg/metrics"
	"go.uber.org/zap"
)

// Activity actions.
const (
	ActionProjectCreated  = "project_created"
	ActionProjectUpdated  = "project_updated"
	ActionTokenRotated    = "token_rotated"
	ActionTaskCreated     = "task_created"
	ActionTaskUpdated     = "task_updated"
	ActionTaskCompleted   = "task_completed"
	ActionTaskDeleted     = "task_deleted"
	ActionTasksReordered  = "tasks_reordered"
	ActionTemplateApplied = "template_instantiated"
	ActionFileUploaded    = "file_uploaded"
	ActionDocumentSigned  = "document_signed"
	ActionCommentAdded    = "comment_added"
	ActionTagAssigned     = "tag_assigned"
	ActionTagUnassigned   = "tag_unassigned"
	ActionReminderSent    = "reminder_sent"
	ActionInviteSent      = "invite_sent"
)

// ActivityEntry is one audit record handed to a sink.
type ActivityEntry struct {
	ProjectID *uuid.UUID       `json:"project_id,omitempty"`
	TaskID    *uuid.UUID       `json:"task_id,omitempty"`
	Actor     string           `json:"actor"`
	ActorType models.ActorType `json:"actor_type"`
	Action    string           `json:"action"`
	Details   map[string]any   `json:"details,omitempty"`
}

// NewActivityEntry fills the actor fields from a.
func NewActivityEntry(projectID uuid.UUID, taskID *uuid.UUID, a Actor, action string, details map[string]any) ActivityEntry {
	pid := projectID
	return ActivityEntry{
		ProjectID: &pid,
		TaskID:    taskID,
		Actor:     a.Label(),
		ActorType: a.actorType(),
		Action:    action,
		Details:   details,
	}
}

func (e ActivityEntry) Model() *models.ActivityLog {
	at := e.ActorType
	if !at.Valid() {
		at = models.ActorSystem
	}
	actor := e.Actor
	if actor == "" {
		actor = at.Label()
	}
	return &models.ActivityLog{
		ProjectID: e.ProjectID,
		TaskID:    e.TaskID,
		Actor:     actor,
		ActorType: at,
		Action:    e.Action,
		Details:   e.Details,
	}
}

// ActivitySink accepts audit entries. Append never reports failure to the caller.
type ActivitySink interface {
	Append(ctx context.Context, entry ActivityEntry)
}

// ActivityWriter persists one entry synchronously.
type ActivityWriter struct {
	repo repository.ActivityRepository
}

func NewActivityWriter(repo repository.ActivityRepository) *ActivityWriter {
	return &ActivityWriter{repo: repo}
}

func (w *ActivityWriter) Write(ctx context.Context, entry ActivityEntry) error {
	return w.repo.Create(ctx, entry.Model())
}

// AsyncSink writes entries in background goroutines, detached from the request context.
type AsyncSink struct {
	writer  *ActivityWriter
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewAsyncSink(writer *ActivityWriter, timeout time.Duration) *AsyncSink {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AsyncSink{writer: writer, timeout: timeout}
}

var _ ActivitySink = (*AsyncSink)(nil)

func (s *AsyncSink) Append(ctx context.Context, entry ActivityEntry) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		if err := s.writer.Write(wctx, entry); err != nil {
			metrics.IncrementActivity("dropped")
			logger.L().Warn("activity append dropped",
				zap.String("action", entry.Action),
				zap.Stringp("project_id", uuidStringPtr(entry.ProjectID)),
				zap.Error(err))
			return
		}
		metrics.IncrementActivity("written")
	}()
}

// Wait blocks until in-flight writes finish.
func (s *AsyncSink) Wait() { s.wg.Wait() }

// NopSink discards entries.
type NopSink struct{}

func (NopSink) Append(context.Context, ActivityEntry) {}

// ListActivity returns a project's entries, newest first.
func ListActivity(ctx context.Context, repo repository.ActivityRepository, projectID uuid.UUID, limit int) ([]models.ActivityLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return repo.Find(ctx, repository.Query{
		Filters: []repository.Filter{repository.Eq("project_id", projectID)},
		Order:   "created_at DESC",
		Limit:   limit,
	})
}

func uuidStringPtr(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
