package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/onboardhub/engine/internal/models"
	"github.com/onboardhub/engine/internal/repository"
	appErr "github.com/onboardhub/engine/pkg/errors"
	"github.com/onboardhub/engine/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type TaskService interface {
	CreateTask(ctx context.Context, projectID uuid.UUID, input *CreateTaskInput, actor Actor) (*models.Task, error)
	ListTasks(ctx context.Context, projectID uuid.UUID) ([]models.Task, error)
	UpdateTask(ctx context.Context, projectID, taskID uuid.UUID, input *UpdateTaskInput, actor Actor) (*models.Task, error)
	DeleteTask(ctx context.Context, projectID, taskID uuid.UUID, actor Actor) error

	// BulkComplete and BulkDelete process every id independently and report how many succeeded.
	BulkComplete(ctx context.Context, projectID uuid.UUID, taskIDs []uuid.UUID, actor Actor) (*BulkResult, error)
	BulkDelete(ctx context.Context, projectID uuid.UUID, taskIDs []uuid.UUID, actor Actor) (*BulkResult, error)
	// Reorder updates order_index per entry; entries without an index are skipped.
	Reorder(ctx context.Context, projectID uuid.UUID, items []ReorderItem, actor Actor) (*BulkResult, error)
}

type CreateTaskInput struct {
	Title              string
	Description        string
	OrderIndex         int
	Visibility         string
	AssigneeType       string
	AssigneeEmail      *string
	Category           string
	RequiresFileUpload bool
	RequiresSignature  bool
	DependsOn          *uuid.UUID
	StageID            *uuid.UUID
	DueDate            *time.Time
	Checklist          []models.ChecklistItem
}

// UpdateTaskInput applies only non-nil fields.
type UpdateTaskInput struct {
	Title         *string
	Description   *string
	Status        *string
	Visibility    *string
	AssigneeEmail *string
	Category      *string
	OrderIndex    *int
	StageID       *uuid.UUID
	DueDate       *time.Time
	Checklist     *[]models.ChecklistItem
	ClientNotes   *string
}

func (in *UpdateTaskInput) empty() bool {
	return in.Title == nil && in.Description == nil && in.Status == nil && in.Visibility == nil &&
		in.AssigneeEmail == nil && in.Category == nil && in.OrderIndex == nil && in.StageID == nil &&
		in.DueDate == nil && in.Checklist == nil && in.ClientNotes == nil
}

type ReorderItem struct {
	ID         uuid.UUID
	OrderIndex *int
}

type BulkResult struct {
	Requested int         `json:"requested"`
	Succeeded int         `json:"succeeded"`
	Skipped   []uuid.UUID `json:"skipped,omitempty"`
}

type taskService struct {
	repos    *repository.Set
	activity ActivitySink
	now      func() time.Time
}

func NewTaskService(repos *repository.Set, activity ActivitySink) TaskService {
	if activity == nil {
		activity = NopSink{}
	}
	return &taskService{repos: repos, activity: activity, now: time.Now}
}

var _ TaskService = (*taskService)(nil)

// completedBy picks an explicit actor name, then the assignee email, then the system label.
func completedBy(actor Actor, assigneeEmail *string) string {
	if actor.Name != "" {
		return actor.Name
	}
	if assigneeEmail != nil && *assigneeEmail != "" {
		return *assigneeEmail
	}
	return models.ActorSystem.Label()
}

func validVisibility(v string) bool {
	return v == models.VisibilityInternal || v == models.VisibilityExternal
}

func (s *taskService) CreateTask(ctx context.Context, projectID uuid.UUID, input *CreateTaskInput, actor Actor) (*models.Task, error) {
	if input == nil || strings.TrimSpace(input.Title) == "" {
		return nil, appErr.Invalid("title is required")
	}
	if input.Visibility == "" {
		input.Visibility = models.VisibilityInternal
	}
	if !validVisibility(input.Visibility) {
		return nil, appErr.Invalid("visibility must be internal or external")
	}
	var p models.Project
	if err := s.repos.Projects.GetByID(ctx, projectID, &p); err != nil {
		return nil, err
	}
	if err := s.checkStage(ctx, projectID, input.StageID); err != nil {
		return nil, err
	}
	if input.DependsOn != nil {
		var dep models.Task
		if err := s.repos.Tasks.GetInProject(ctx, projectID, *input.DependsOn, &dep); err != nil {
			return nil, err
		}
	}
	t := &models.Task{
		ProjectID:          projectID,
		Title:              strings.TrimSpace(input.Title),
		Description:        input.Description,
		OrderIndex:         input.OrderIndex,
		Visibility:         input.Visibility,
		AssigneeType:       input.AssigneeType,
		AssigneeEmail:      input.AssigneeEmail,
		Category:           input.Category,
		RequiresFileUpload: input.RequiresFileUpload,
		RequiresSignature:  input.RequiresSignature,
		DependsOn:          input.DependsOn,
		StageID:            input.StageID,
		Status:             models.TaskStatusPending,
		Checklist:          datatypes.JSONSlice[models.ChecklistItem](normalizeChecklist(input.Checklist)),
	}
	if input.DueDate != nil {
		due := input.DueDate.UTC()
		t.DueDate = &due
	}
	if err := s.repos.Tasks.Create(ctx, t); err != nil {
		return nil, err
	}
	s.activity.Append(ctx, NewActivityEntry(projectID, &t.ID, actor, ActionTaskCreated, map[string]any{"title": t.Title}))
	logger.L().Info("task created", zap.String("project_id", projectID.String()), zap.String("task_id", t.ID.String()))
	return t, nil
}

func (s *taskService) checkStage(ctx context.Context, projectID uuid.UUID, stageID *uuid.UUID) error {
	if stageID == nil {
		return nil
	}
	var st models.Stage
	if err := s.repos.Stages.GetByID(ctx, *stageID, &st); err != nil {
		return err
	}
	if st.ProjectID == nil || *st.ProjectID != projectID {
		return appErr.NotFound("stage not found in project")
	}
	return nil
}

func (s *taskService) ListTasks(ctx context.Context, projectID uuid.UUID) ([]models.Task, error) {
	return s.repos.Tasks.ListByProject(ctx, projectID)
}

func (s *taskService) UpdateTask(ctx context.Context, projectID, taskID uuid.UUID, input *UpdateTaskInput, actor Actor) (*models.Task, error) {
	logger.L().Info("update task", zap.String("project_id", projectID.String()), zap.String("task_id", taskID.String()))
	if input == nil || input.empty() {
		return nil, appErr.Invalid("no fields to update")
	}
	if input.Title != nil && strings.TrimSpace(*input.Title) == "" {
		return nil, appErr.Invalid("title must not be empty")
	}
	if input.Status != nil && strings.TrimSpace(*input.Status) == "" {
		return nil, appErr.Invalid("status must not be empty")
	}
	if input.Visibility != nil && !validVisibility(*input.Visibility) {
		return nil, appErr.Invalid("visibility must be internal or external")
	}

	var t models.Task
	if err := s.repos.Tasks.GetInProject(ctx, projectID, taskID, &t); err != nil {
		return nil, err
	}
	if err := s.checkStage(ctx, projectID, input.StageID); err != nil {
		return nil, err
	}

	patch := map[string]any{}
	if input.Title != nil {
		patch["title"] = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		patch["description"] = *input.Description
	}
	if input.Visibility != nil {
		patch["visibility"] = *input.Visibility
	}
	if input.AssigneeEmail != nil {
		patch["assignee_email"] = *input.AssigneeEmail
	}
	if input.Category != nil {
		patch["category"] = *input.Category
	}
	if input.OrderIndex != nil {
		patch["order_index"] = *input.OrderIndex
	}
	if input.StageID != nil {
		patch["stage_id"] = *input.StageID
	}
	if input.DueDate != nil {
		patch["due_date"] = input.DueDate.UTC()
	}
	if input.Checklist != nil {
		patch["checklist"] = datatypes.JSONSlice[models.ChecklistItem](normalizeChecklist(*input.Checklist))
	}
	if input.ClientNotes != nil {
		patch["client_notes"] = *input.ClientNotes
	}

	action := ActionTaskUpdated
	if input.Status != nil {
		patch["status"] = *input.Status
		if *input.Status == models.TaskStatusCompleted {
			assignee := t.AssigneeEmail
			if input.AssigneeEmail != nil {
				assignee = input.AssigneeEmail
			}
			patch["completed_at"] = s.now().UTC()
			patch["completed_by"] = completedBy(actor, assignee)
			action = ActionTaskCompleted
		}
	}

	if _, err := s.repos.Tasks.UpdateWhere(ctx, []repository.Filter{repository.Eq("id", taskID), repository.Eq("project_id", projectID)}, patch); err != nil {
		return nil, err
	}
	if err := s.repos.Tasks.GetByID(ctx, taskID, &t); err != nil {
		return nil, err
	}

	s.activity.Append(ctx, NewActivityEntry(projectID, &taskID, actor, action, map[string]any{
		"title":  t.Title,
		"fields": patchKeys(patch),
	}))
	logger.L().Info("task updated", zap.String("task_id", taskID.String()), zap.String("action", action))
	return &t, nil
}

func (s *taskService) DeleteTask(ctx context.Context, projectID, taskID uuid.UUID, actor Actor) error {
	var t models.Task
	if err := s.repos.Tasks.GetInProject(ctx, projectID, taskID, &t); err != nil {
		return err
	}
	if _, err := s.repos.Tasks.DeleteWhere(ctx, []repository.Filter{repository.Eq("id", taskID), repository.Eq("project_id", projectID)}); err != nil {
		return err
	}
	s.activity.Append(ctx, NewActivityEntry(projectID, &taskID, actor, ActionTaskDeleted, map[string]any{"title": t.Title}))
	logger.L().Info("task deleted", zap.String("project_id", projectID.String()), zap.String("task_id", taskID.String()))
	return nil
}

// existingTasks returns the project's rows among ids keyed by id.
func (s *taskService) existingTasks(ctx context.Context, projectID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]models.Task, error) {
	rows, err := s.repos.Tasks.Find(ctx, repository.Query{
		Filters: []repository.Filter{repository.Eq("project_id", projectID), repository.In("id", ids)},
	})
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]models.Task, len(rows))
	for _, r := range rows {
		out[r.ID] = r
	}
	return out, nil
}

func (s *taskService) BulkComplete(ctx context.Context, projectID uuid.UUID, taskIDs []uuid.UUID, actor Actor) (*BulkResult, error) {
	logger.L().Info("bulk complete tasks", zap.String("project_id", projectID.String()), zap.Int("count", len(taskIDs)))
	if len(taskIDs) == 0 {
		return nil, appErr.Invalid("task_ids is required")
	}
	existing, err := s.existingTasks(ctx, projectID, taskIDs)
	if err != nil {
		return nil, err
	}
	res := &BulkResult{Requested: len(taskIDs)}
	now := s.now().UTC()
	for _, id := range taskIDs {
		t, ok := existing[id]
		if !ok {
			res.Skipped = append(res.Skipped, id)
			continue
		}
		// repeated ids count once
		delete(existing, id)
		patch := map[string]any{
			"status":       models.TaskStatusCompleted,
			"completed_at": now,
			"completed_by": completedBy(actor, t.AssigneeEmail),
		}
		n, err := s.repos.Tasks.UpdateWhere(ctx, []repository.Filter{repository.Eq("id", id), repository.Eq("project_id", projectID)}, patch)
		if err != nil {
			logger.L().Error("bulk complete item failed", zap.String("task_id", id.String()), zap.Error(err))
			res.Skipped = append(res.Skipped, id)
			continue
		}
		if n == 0 {
			res.Skipped = append(res.Skipped, id)
			continue
		}
		res.Succeeded++
		taskID := id
		s.activity.Append(ctx, NewActivityEntry(projectID, &taskID, actor, ActionTaskCompleted, map[string]any{"title": t.Title, "bulk": true}))
	}
	logger.L().Info("bulk complete done", zap.String("project_id", projectID.String()), zap.Int("succeeded", res.Succeeded), zap.Int("skipped", len(res.Skipped)))
	return res, nil
}

func (s *taskService) BulkDelete(ctx context.Context, projectID uuid.UUID, taskIDs []uuid.UUID, actor Actor) (*BulkResult, error) {
	logger.L().Info("bulk delete tasks", zap.String("project_id", projectID.String()), zap.Int("count", len(taskIDs)))
	if len(taskIDs) == 0 {
		return nil, appErr.Invalid("task_ids is required")
	}
	// titles are read up front so entries stay readable once rows are gone
	existing, err := s.existingTasks(ctx, projectID, taskIDs)
	if err != nil {
		return nil, err
	}
	res := &BulkResult{Requested: len(taskIDs)}
	for _, id := range taskIDs {
		t, ok := existing[id]
		if !ok {
			res.Skipped = append(res.Skipped, id)
			continue
		}
		// repeated ids count once
		delete(existing, id)
		n, err := s.repos.Tasks.DeleteWhere(ctx, []repository.Filter{repository.Eq("id", id), repository.Eq("project_id", projectID)})
		if err != nil {
			logger.L().Error("bulk delete item failed", zap.String("task_id", id.String()), zap.Error(err))
			res.Skipped = append(res.Skipped, id)
			continue
		}
		if n == 0 {
			res.Skipped = append(res.Skipped, id)
			continue
		}
		res.Succeeded++
		taskID := id
		s.activity.Append(ctx, NewActivityEntry(projectID, &taskID, actor, ActionTaskDeleted, map[string]any{"title": t.Title, "bulk": true}))
	}
	logger.L().Info("bulk delete done", zap.String("project_id", projectID.String()), zap.Int("succeeded", res.Succeeded), zap.Int("skipped", len(res.Skipped)))
	return res, nil
}

func (s *taskService) Reorder(ctx context.Context, projectID uuid.UUID, items []ReorderItem, actor Actor) (*BulkResult, error) {
	logger.L().Info("reorder tasks", zap.String("project_id", projectID.String()), zap.Int("count", len(items)))
	res := &BulkResult{Requested: len(items)}
	for _, it := range items {
		if it.OrderIndex == nil {
			res.Skipped = append(res.Skipped, it.ID)
			continue
		}
		n, err := s.repos.Tasks.UpdateWhere(ctx,
			[]repository.Filter{repository.Eq("id", it.ID), repository.Eq("project_id", projectID)},
			map[string]any{"order_index": *it.OrderIndex})
		if err != nil {
			logger.L().Error("reorder item failed", zap.String("task_id", it.ID.String()), zap.Error(err))
			res.Skipped = append(res.Skipped, it.ID)
			continue
		}
		if n == 0 {
			res.Skipped = append(res.Skipped, it.ID)
			continue
		}
		res.Succeeded++
	}
	s.activity.Append(ctx, NewActivityEntry(projectID, nil, actor, ActionTasksReordered, map[string]any{"count": res.Succeeded}))
	return res, nil
}

// normalizeChecklist guarantees a non-nil list and fills missing item ids.
func normalizeChecklist(items []models.ChecklistItem) []models.ChecklistItem {
	out := make([]models.ChecklistItem, 0, len(items))
	for _, it := range items {
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		out = append(out, it)
	}
	return out
}

func patchKeys(patch map[string]any) []string {
	keys := make([]string, 0, len(patch))
	for k := range patch {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
