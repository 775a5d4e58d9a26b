package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/onboardhub/engine/internal/models"
	"gorm.io/gorm"
)

type TaskRepository interface {
	BaseRepository[models.Task]
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Task, error)
	ListExternalByProject(ctx context.Context, projectID uuid.UUID) ([]models.Task, error)
	// ListStageCountRows returns a minimal id/stage_id/status projection for stage counts.
	ListStageCountRows(ctx context.Context, projectID uuid.UUID) ([]models.Task, error)
	// ListDueExternalPending returns client-visible pending tasks with a due date at or before cutoff.
	ListDueExternalPending(ctx context.Context, projectIDs []uuid.UUID, cutoff time.Time) ([]models.Task, error)
	GetInProject(ctx context.Context, projectID, taskID uuid.UUID, dest *models.Task) error
}

type taskRepository struct {
	BaseRepository[models.Task]
}

func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{BaseRepository: NewBaseRepository[models.Task](db, "task")}
}

func (r *taskRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Task, error) {
	return r.Find(ctx, Query{Filters: []Filter{Eq("project_id", projectID)}, Order: "order_index ASC"})
}

func (r *taskRepository) ListExternalByProject(ctx context.Context, projectID uuid.UUID) ([]models.Task, error) {
	return r.Find(ctx, Query{
		Filters: []Filter{Eq("project_id", projectID), Eq("visibility", models.VisibilityExternal)},
		Order:   "order_index ASC",
	})
}

func (r *taskRepository) ListStageCountRows(ctx context.Context, projectID uuid.UUID) ([]models.Task, error) {
	return r.Find(ctx, Query{
		Filters: []Filter{Eq("project_id", projectID)},
		Select:  []string{"id", "stage_id", "status"},
	})
}

func (r *taskRepository) ListDueExternalPending(ctx context.Context, projectIDs []uuid.UUID, cutoff time.Time) ([]models.Task, error) {
	if len(projectIDs) == 0 {
		return nil, nil
	}
	return r.Find(ctx, Query{
		Filters: []Filter{
			In("project_id", projectIDs),
			Eq("visibility", models.VisibilityExternal),
			Eq("status", models.TaskStatusPending),
			NotNull("due_date"),
			Lte("due_date", cutoff),
		},
		Order: "due_date ASC",
	})
}

func (r *taskRepository) GetInProject(ctx context.Context, projectID, taskID uuid.UUID, dest *models.Task) error {
	return r.First(ctx, Query{Filters: []Filter{Eq("id", taskID), Eq("project_id", projectID)}}, dest)
}
