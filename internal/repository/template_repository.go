package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/onboardhub/engine/internal/models"
	"gorm.io/gorm"
)

type TemplateRepository interface {
	BaseRepository[models.Template]
}

func NewTemplateRepository(db *gorm.DB) TemplateRepository {
	return NewBaseRepository[models.Template](db, "template")
}

type StageRepository interface {
	BaseRepository[models.Stage]
	ListByTemplate(ctx context.Context, templateID uuid.UUID) ([]models.Stage, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Stage, error)
}

type stageRepository struct {
	BaseRepository[models.Stage]
}

func NewStageRepository(db *gorm.DB) StageRepository {
	return &stageRepository{BaseRepository: NewBaseRepository[models.Stage](db, "stage")}
}

func (r *stageRepository) ListByTemplate(ctx context.Context, templateID uuid.UUID) ([]models.Stage, error) {
	return r.Find(ctx, Query{Filters: []Filter{Eq("template_id", templateID)}, Order: "order_index ASC"})
}

func (r *stageRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Stage, error) {
	return r.Find(ctx, Query{Filters: []Filter{Eq("project_id", projectID)}, Order: "order_index ASC"})
}

type TemplateTaskRepository interface {
	BaseRepository[models.TemplateTask]
	ListByTemplate(ctx context.Context, templateID uuid.UUID) ([]models.TemplateTask, error)
}

type templateTaskRepository struct {
	BaseRepository[models.TemplateTask]
}

func NewTemplateTaskRepository(db *gorm.DB) TemplateTaskRepository {
	return &templateTaskRepository{BaseRepository: NewBaseRepository[models.TemplateTask](db, "template task")}
}

func (r *templateTaskRepository) ListByTemplate(ctx context.Context, templateID uuid.UUID) ([]models.TemplateTask, error) {
	return r.Find(ctx, Query{Filters: []Filter{Eq("template_id", templateID)}, Order: "order_index ASC"})
}
