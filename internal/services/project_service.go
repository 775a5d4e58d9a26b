package services

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/onboardhub/engine/internal/models"
	"github.com/onboardhub/engine/internal/repository"
	appErr "github.com/onboardhub/engine/pkg/errors"
	"github.com/onboardhub/engine/pkg/logger"
	"github.com/onboardhub/engine/pkg/utils"
	"go.uber.org/zap"
)

type ProjectService interface {
	CreateProject(ctx context.Context, input *CreateProjectInput, actor Actor) (*models.Project, error)
	// CreateFromDeal returns the existing project for a deal with created=false.
	CreateFromDeal(ctx context.Context, input *DealInput) (*models.Project, bool, error)
	GetProject(ctx context.Context, projectID uuid.UUID) (*models.Project, error)
	ListProjects(ctx context.Context, status string) ([]models.Project, error)
	UpdateProject(ctx context.Context, projectID uuid.UUID, input *UpdateProjectInput, actor Actor) (*models.Project, error)
	ProjectProgress(ctx context.Context, projectID uuid.UUID) (*ProjectProgressView, error)
	RotateToken(ctx context.Context, projectID uuid.UUID, actor Actor) (*models.Project, error)
	ListActivity(ctx context.Context, projectID uuid.UUID, limit int) ([]models.ActivityLog, error)
}

type CreateProjectInput struct {
	Name          string
	ClientName    string
	ClientEmail   string
	ClientCompany string
	ClientPhone   string
	CommunityName *string
	TemplateID    *uuid.UUID
	StartDate     *time.Time
	TargetDate    *time.Time
	SendInvite    bool
	SourceDealID  *string
}

// DealInput is a closed CRM deal.
type DealInput struct {
	DealID        string
	Name          string
	ClientName    string
	ClientEmail   string
	ClientCompany string
	ClientPhone   string
	TemplateID    *uuid.UUID
	StartDate     *time.Time
	SendInvite    bool
}

type UpdateProjectInput struct {
	Name          *string
	Status        *string
	ClientName    *string
	ClientEmail   *string
	ClientCompany *string
	ClientPhone   *string
	CommunityName *string
	TargetDate    *time.Time
}

// ProjectProgressView is the staff progress summary.
type ProjectProgressView struct {
	ProjectID uuid.UUID       `json:"project_id"`
	Progress  Progress        `json:"overall"`
	Stages    []StageProgress `json:"stages"`
	AllTasks  Progress        `json:"all_tasks"`
}

type projectService struct {
	repos     *repository.Set
	templates TemplateService
	mailer    Mailer
	activity  ActivitySink
}

func NewProjectService(repos *repository.Set, templates TemplateService, mailer Mailer, activity ActivitySink) ProjectService {
	if activity == nil {
		activity = NopSink{}
	}
	return &projectService{repos: repos, templates: templates, mailer: mailer, activity: activity}
}

var _ ProjectService = (*projectService)(nil)

func validEmail(s string) bool {
	_, err := mail.ParseAddress(s)
	return err == nil
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func (s *projectService) CreateProject(ctx context.Context, input *CreateProjectInput, actor Actor) (*models.Project, error) {
	if input == nil || strings.TrimSpace(input.Name) == "" {
		return nil, appErr.Invalid("name is required")
	}
	if strings.TrimSpace(input.ClientName) == "" {
		return nil, appErr.Invalid("client_name is required")
	}
	if input.ClientEmail != "" && !validEmail(input.ClientEmail) {
		return nil, appErr.Invalid("client_email is invalid")
	}
	if input.SendInvite && input.ClientEmail == "" {
		return nil, appErr.Invalid("client_email is required to send an invite")
	}
	logger.L().Info("create project called", zap.String("name", input.Name), zap.String("actor", actor.Label()))

	if input.TemplateID != nil {
		var t models.Template
		if err := s.repos.Templates.GetByID(ctx, *input.TemplateID, &t); err != nil {
			return nil, err
		}
	}

	token, err := utils.NewPortalToken()
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "generate portal token failed")
	}
	p := &models.Project{
		Name:          strings.TrimSpace(input.Name),
		Status:        models.ProjectStatusActive,
		ClientName:    strings.TrimSpace(input.ClientName),
		ClientEmail:   optionalString(input.ClientEmail),
		ClientCompany: input.ClientCompany,
		ClientPhone:   input.ClientPhone,
		CommunityName: input.CommunityName,
		PublicToken:   token,
		SourceDealID:  input.SourceDealID,
		StartDate:     input.StartDate,
		TargetDate:    input.TargetDate,
	}
	if err := s.repos.Projects.Create(ctx, p); err != nil {
		return nil, err
	}
	s.activity.Append(ctx, NewActivityEntry(p.ID, nil, actor, ActionProjectCreated, map[string]any{"name": p.Name}))

	if input.TemplateID != nil {
		res, err := s.templates.InstantiateTemplate(ctx, *input.TemplateID, p.ID, input.StartDate)
		if err != nil {
			return nil, err
		}
		p.TemplateID = input.TemplateID
		s.activity.Append(ctx, NewActivityEntry(p.ID, nil, actor, ActionTemplateApplied, map[string]any{
			"template_id": input.TemplateID.String(),
			"tasks":       res.TasksCopied,
			"stages":      res.StagesCopied,
		}))
	}

	if input.SendInvite && p.ClientEmail != nil {
		s.sendInvite(ctx, p, actor)
	}

	logger.L().Info("project created", zap.String("project_id", p.ID.String()))
	return p, nil
}

// sendInvite never fails the caller; the project already exists.
func (s *projectService) sendInvite(ctx context.Context, p *models.Project, actor Actor) {
	if s.mailer == nil {
		logger.L().Warn("invite skipped, mailer not configured", zap.String("project_id", p.ID.String()))
		return
	}
	id, err := s.mailer.SendInvite(ctx, *p.ClientEmail, p.ClientName, p.Name, p.CommunityName, p.PublicToken)
	if err != nil || id == "" {
		logger.L().Warn("invite send failed", zap.String("project_id", p.ID.String()), zap.Error(err))
		return
	}
	s.activity.Append(ctx, NewActivityEntry(p.ID, nil, actor, ActionInviteSent, map[string]any{"message_id": id}))
}

func (s *projectService) CreateFromDeal(ctx context.Context, input *DealInput) (*models.Project, bool, error) {
	if input == nil || strings.TrimSpace(input.DealID) == "" {
		return nil, false, appErr.Invalid("deal_id is required")
	}
	dealID := strings.TrimSpace(input.DealID)
	var existing models.Project
	err := s.repos.Projects.GetByDealID(ctx, dealID, &existing)
	if err == nil {
		logger.L().Info("deal already onboarded", zap.String("deal_id", dealID), zap.String("project_id", existing.ID.String()))
		return &existing, false, nil
	}
	if !appErr.IsCode(err, appErr.CodeNotFound) {
		return nil, false, err
	}

	name := input.Name
	if strings.TrimSpace(name) == "" {
		name = input.ClientCompany
	}
	if strings.TrimSpace(name) == "" {
		name = input.ClientName
	}
	p, err := s.CreateProject(ctx, &CreateProjectInput{
		Name:          name,
		ClientName:    input.ClientName,
		ClientEmail:   input.ClientEmail,
		ClientCompany: input.ClientCompany,
		ClientPhone:   input.ClientPhone,
		TemplateID:    input.TemplateID,
		StartDate:     input.StartDate,
		SendInvite:    input.SendInvite,
		SourceDealID:  &dealID,
	}, Actor{Name: "crm:" + dealID, Type: models.ActorCRM})
	if appErr.IsCode(err, appErr.CodeConflict) {
		// a concurrent request created it first
		if gerr := s.repos.Projects.GetByDealID(ctx, dealID, &existing); gerr == nil {
			return &existing, false, nil
		}
	}
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

func (s *projectService) GetProject(ctx context.Context, projectID uuid.UUID) (*models.Project, error) {
	var p models.Project
	if err := s.repos.Projects.GetByID(ctx, projectID, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *projectService) ListProjects(ctx context.Context, status string) ([]models.Project, error) {
	return s.repos.Projects.ListByStatus(ctx, status)
}

func (s *projectService) UpdateProject(ctx context.Context, projectID uuid.UUID, input *UpdateProjectInput, actor Actor) (*models.Project, error) {
	logger.L().Info("update project", zap.String("project_id", projectID.String()))
	if input == nil {
		return nil, appErr.Invalid("no fields to update")
	}
	patch := map[string]any{}
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, appErr.Invalid("name must not be empty")
		}
		patch["name"] = strings.TrimSpace(*input.Name)
	}
	if input.Status != nil {
		if strings.TrimSpace(*input.Status) == "" {
			return nil, appErr.Invalid("status must not be empty")
		}
		patch["status"] = *input.Status
	}
	if input.ClientName != nil {
		patch["client_name"] = *input.ClientName
	}
	if input.ClientEmail != nil {
		if *input.ClientEmail != "" && !validEmail(*input.ClientEmail) {
			return nil, appErr.Invalid("client_email is invalid")
		}
		patch["client_email"] = optionalString(*input.ClientEmail)
	}
	if input.ClientCompany != nil {
		patch["client_company"] = *input.ClientCompany
	}
	if input.ClientPhone != nil {
		patch["client_phone"] = *input.ClientPhone
	}
	if input.CommunityName != nil {
		patch["community_name"] = optionalString(*input.CommunityName)
	}
	if input.TargetDate != nil {
		patch["target_date"] = input.TargetDate.UTC()
	}
	if len(patch) == 0 {
		return nil, appErr.Invalid("no fields to update")
	}

	p, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repos.Projects.UpdateWhere(ctx, []repository.Filter{repository.Eq("id", projectID)}, patch); err != nil {
		return nil, err
	}
	if p, err = s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	s.activity.Append(ctx, NewActivityEntry(projectID, nil, actor, ActionProjectUpdated, map[string]any{"fields": patchKeys(patch)}))
	return p, nil
}

func (s *projectService) ProjectProgress(ctx context.Context, projectID uuid.UUID) (*ProjectProgressView, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	tasks, err := s.repos.Tasks.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	stages, err := s.repos.Stages.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	all := Progress{Total: len(tasks)}
	for _, t := range tasks {
		if t.Status == models.TaskStatusCompleted {
			all.Completed++
		}
	}
	all.Percent = percent(all.Completed, all.Total)
	return &ProjectProgressView{
		ProjectID: projectID,
		Progress:  ComputeProjectProgress(tasks),
		Stages:    computeStages(stages, tasks),
		AllTasks:  all,
	}, nil
}

func (s *projectService) RotateToken(ctx context.Context, projectID uuid.UUID, actor Actor) (*models.Project, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	token, err := utils.NewPortalToken()
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "generate portal token failed")
	}
	if _, err := s.repos.Projects.UpdateWhere(ctx, []repository.Filter{repository.Eq("id", projectID)}, map[string]any{"public_token": token}); err != nil {
		return nil, err
	}
	s.activity.Append(ctx, NewActivityEntry(projectID, nil, actor, ActionTokenRotated, nil))
	logger.L().Info("portal token rotated", zap.String("project_id", projectID.String()))
	return s.GetProject(ctx, projectID)
}

func (s *projectService) ListActivity(ctx context.Context, projectID uuid.UUID, limit int) ([]models.ActivityLog, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return ListActivity(ctx, s.repos.Activity, projectID, limit)
}
