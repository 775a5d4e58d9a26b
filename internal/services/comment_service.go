package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/onboardhub/engine/internal/models"
	"github.com/onboardhub/engine/internal/repository"
	appErr "github.com/onboardhub/engine/pkg/errors"
)

type CommentService interface {
	AddComment(ctx context.Context, projectID uuid.UUID, input *CommentInput, actor Actor) (*models.Comment, error)
	// ListComments returns every comment including internal ones.
	ListComments(ctx context.Context, projectID uuid.UUID) ([]models.Comment, error)
}

type CommentInput struct {
	TaskID     *uuid.UUID
	AuthorName string
	Content    string
	IsInternal bool
}

type commentService struct {
	repos    *repository.Set
	activity ActivitySink
}

func NewCommentService(repos *repository.Set, activity ActivitySink) CommentService {
	if activity == nil {
		activity = NopSink{}
	}
	return &commentService{repos: repos, activity: activity}
}

var _ CommentService = (*commentService)(nil)

func (s *commentService) AddComment(ctx context.Context, projectID uuid.UUID, input *CommentInput, actor Actor) (*models.Comment, error) {
	if input == nil || strings.TrimSpace(input.Content) == "" {
		return nil, appErr.Invalid("content is required")
	}
	var p models.Project
	if err := s.repos.Projects.GetByID(ctx, projectID, &p); err != nil {
		return nil, err
	}
	if input.TaskID != nil {
		var t models.Task
		if err := s.repos.Tasks.GetInProject(ctx, projectID, *input.TaskID, &t); err != nil {
			return nil, err
		}
	}
	author := strings.TrimSpace(input.AuthorName)
	if author == "" {
		author = actor.Label()
	}
	c := &models.Comment{
		ProjectID:  projectID,
		TaskID:     input.TaskID,
		AuthorName: author,
		AuthorType: actor.actorType(),
		Content:    strings.TrimSpace(input.Content),
		IsInternal: input.IsInternal,
	}
	if err := s.repos.Comments.Create(ctx, c); err != nil {
		return nil, err
	}
	s.activity.Append(ctx, NewActivityEntry(projectID, input.TaskID, actor, ActionCommentAdded, map[string]any{
		"comment_id":  c.ID.String(),
		"is_internal": c.IsInternal,
	}))
	return c, nil
}

func (s *commentService) ListComments(ctx context.Context, projectID uuid.UUID) ([]models.Comment, error) {
	return s.repos.Comments.Find(ctx, repository.Query{
		Filters: []repository.Filter{repository.Eq("project_id", projectID)},
		Order:   "created_at ASC",
	})
}
