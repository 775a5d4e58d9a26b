package services

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/onboardhub/engine/internal/models"
	"github.com/onboardhub/engine/internal/repository"
	appErr "github.com/onboardhub/engine/pkg/errors"
	"github.com/onboardhub/engine/pkg/logger"
	"go.uber.org/zap"
)

type TagService interface {
	CreateTag(ctx context.Context, name, color string) (*models.Tag, error)
	ListTags(ctx context.Context) ([]models.Tag, error)
	AssignTag(ctx context.Context, projectID, tagID uuid.UUID, actor Actor) error
	UnassignTag(ctx context.Context, projectID, tagID uuid.UUID, actor Actor) error
	ListProjectTags(ctx context.Context, projectID uuid.UUID) ([]models.Tag, error)
}

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

const defaultTagColor = "#6b7280"

type tagService struct {
	repos    *repository.Set
	activity ActivitySink
}

func NewTagService(repos *repository.Set, activity ActivitySink) TagService {
	if activity == nil {
		activity = NopSink{}
	}
	return &tagService{repos: repos, activity: activity}
}

var _ TagService = (*tagService)(nil)

func (s *tagService) CreateTag(ctx context.Context, name, color string) (*models.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, appErr.Invalid("name is required")
	}
	if color == "" {
		color = defaultTagColor
	}
	if !hexColor.MatchString(color) {
		return nil, appErr.Invalid("color must be a #rrggbb hex value")
	}
	t := &models.Tag{Name: name, Color: color}
	if err := s.repos.Tags.Create(ctx, t); err != nil {
		if appErr.IsCode(err, appErr.CodeConflict) {
			return nil, appErr.Wrap(err, appErr.CodeConflict, "a tag with this name already exists")
		}
		return nil, err
	}
	logger.L().Info("tag created", zap.String("tag_id", t.ID.String()), zap.String("name", name))
	return t, nil
}

func (s *tagService) ListTags(ctx context.Context) ([]models.Tag, error) {
	return s.repos.Tags.Find(ctx, repository.Query{Order: "name ASC"})
}

func (s *tagService) AssignTag(ctx context.Context, projectID, tagID uuid.UUID, actor Actor) error {
	var p models.Project
	if err := s.repos.Projects.GetByID(ctx, projectID, &p); err != nil {
		return err
	}
	var t models.Tag
	if err := s.repos.Tags.GetByID(ctx, tagID, &t); err != nil {
		return err
	}
	if err := s.repos.ProjectTags.Create(ctx, &models.ProjectTag{ProjectID: projectID, TagID: tagID}); err != nil {
		if appErr.IsCode(err, appErr.CodeConflict) {
			return appErr.Wrap(err, appErr.CodeConflict, "tag already assigned to project")
		}
		return err
	}
	s.activity.Append(ctx, NewActivityEntry(projectID, nil, actor, ActionTagAssigned, map[string]any{"tag": t.Name}))
	return nil
}

func (s *tagService) UnassignTag(ctx context.Context, projectID, tagID uuid.UUID, actor Actor) error {
	n, err := s.repos.ProjectTags.DeleteWhere(ctx, []repository.Filter{repository.Eq("project_id", projectID), repository.Eq("tag_id", tagID)})
	if err != nil {
		return err
	}
	if n == 0 {
		return appErr.NotFound("tag not assigned to project")
	}
	s.activity.Append(ctx, NewActivityEntry(projectID, nil, actor, ActionTagUnassigned, map[string]any{"tag_id": tagID.String()}))
	return nil
}

func (s *tagService) ListProjectTags(ctx context.Context, projectID uuid.UUID) ([]models.Tag, error) {
	ids, err := s.repos.ProjectTags.TagIDsForProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []models.Tag{}, nil
	}
	return s.repos.Tags.Find(ctx, repository.Query{
		Filters: []repository.Filter{repository.In("id", ids)},
		Order:   "name ASC",
	})
}
