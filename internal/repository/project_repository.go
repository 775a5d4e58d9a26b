package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/onboardhub/engine/internal/models"
	"gorm.io/gorm"
)

type ProjectRepository interface {
	BaseRepository[models.Project]
	GetByToken(ctx context.Context, token string, dest *models.Project) error
	GetByDealID(ctx context.Context, dealID string, dest *models.Project) error
	ListByStatus(ctx context.Context, status string) ([]models.Project, error)
	// ListRemindable returns active projects that have a client email.
	ListRemindable(ctx context.Context) ([]models.Project, error)
}

type projectRepository struct {
	BaseRepository[models.Project]
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{BaseRepository: NewBaseRepository[models.Project](db, "project")}
}

func (r *projectRepository) GetByToken(ctx context.Context, token string, dest *models.Project) error {
	return r.First(ctx, Query{Filters: []Filter{Eq("public_token", token)}}, dest)
}

func (r *projectRepository) GetByDealID(ctx context.Context, dealID string, dest *models.Project) error {
	return r.First(ctx, Query{Filters: []Filter{Eq("source_deal_id", dealID)}}, dest)
}

func (r *projectRepository) ListByStatus(ctx context.Context, status string) ([]models.Project, error) {
	q := Query{Order: "created_at DESC"}
	if status != "" {
		q.Filters = append(q.Filters, Eq("status", status))
	}
	return r.Find(ctx, q)
}

func (r *projectRepository) ListRemindable(ctx context.Context) ([]models.Project, error) {
	return r.Find(ctx, Query{
		Filters: []Filter{
			Eq("status", models.ProjectStatusActive),
			NotNull("client_email"),
			Neq("client_email", ""),
		},
		Order: "created_at ASC",
	})
}

// ProjectTagRepository manages the project/tag join rows.
type ProjectTagRepository interface {
	BaseRepository[models.ProjectTag]
	TagIDsForProject(ctx context.Context, projectID uuid.UUID) ([]uuid.UUID, error)
}

type projectTagRepository struct {
	BaseRepository[models.ProjectTag]
}

func NewProjectTagRepository(db *gorm.DB) ProjectTagRepository {
	return &projectTagRepository{BaseRepository: NewBaseRepository[models.ProjectTag](db, "project tag")}
}

func (r *projectTagRepository) TagIDsForProject(ctx context.Context, projectID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.Find(ctx, Query{Filters: []Filter{Eq("project_id", projectID)}, Order: "created_at ASC"})
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.TagID)
	}
	return ids, nil
}
