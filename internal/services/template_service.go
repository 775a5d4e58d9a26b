package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/onboardhub/engine/internal/models"
	"github.com/onboardhub/engine/internal/repository"
	appErr "github.com/onboardhub/engine/pkg/errors"
	"github.com/onboardhub/engine/pkg/logger"
	"github.com/onboardhub/engine/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type TemplateService interface {
	CreateTemplate(ctx context.Context, input *CreateTemplateInput) (*models.Template, error)
	GetTemplate(ctx context.Context, templateID uuid.UUID) (*TemplateDetail, error)
	ListTemplates(ctx context.Context) ([]models.Template, error)
	AddStage(ctx context.Context, templateID uuid.UUID, input *StageInput) (*models.Stage, error)
	AddTemplateTask(ctx context.Context, templateID uuid.UUID, input *TemplateTaskInput) (*models.TemplateTask, error)

	// DuplicateTemplate clones stages and tasks into a new template named "<source> (Copy)".
	DuplicateTemplate(ctx context.Context, sourceID uuid.UUID) (*CopyResult, error)
	// InstantiateTemplate copies a template's stages and tasks into an existing project.
	InstantiateTemplate(ctx context.Context, templateID, projectID uuid.UUID, startDate *time.Time) (*CopyResult, error)
}

type CreateTemplateInput struct {
	Name          string
	Description   string
	EstimatedDays int
}

type StageInput struct {
	Name       string
	OrderIndex int
}

type TemplateTaskInput struct {
	Title              string
	Description        string
	OrderIndex         int
	Visibility         string
	AssigneeType       string
	Category           string
	RequiresFileUpload bool
	RequiresSignature  bool
	DependsOn          *uuid.UUID
	StageID            *uuid.UUID
	DueDaysOffset      *int
}

type TemplateDetail struct {
	models.Template
	Stages []models.Stage        `json:"stages"`
	Tasks  []models.TemplateTask `json:"tasks"`
}

// CopyResult reports what a copy created. Unresolved counts references that were nulled.
type CopyResult struct {
	TemplateID   *uuid.UUID `json:"template_id,omitempty"`
	ProjectID    *uuid.UUID `json:"project_id,omitempty"`
	StagesCopied int        `json:"stages_copied"`
	TasksCopied  int        `json:"tasks_copied"`
	Unresolved   int        `json:"unresolved_references"`
}

type templateService struct {
	repos *repository.Set
}

func NewTemplateService(repos *repository.Set) TemplateService {
	return &templateService{repos: repos}
}

var _ TemplateService = (*templateService)(nil)

func (s *templateService) CreateTemplate(ctx context.Context, input *CreateTemplateInput) (*models.Template, error) {
	if input == nil || strings.TrimSpace(input.Name) == "" {
		return nil, appErr.Invalid("name is required")
	}
	if input.EstimatedDays < 0 {
		return nil, appErr.Invalid("estimated_days must not be negative")
	}
	t := &models.Template{
		Name:          strings.TrimSpace(input.Name),
		Description:   input.Description,
		EstimatedDays: input.EstimatedDays,
	}
	if err := s.repos.Templates.Create(ctx, t); err != nil {
		return nil, err
	}
	logger.L().Info("template created", zap.String("template_id", t.ID.String()))
	return t, nil
}

func (s *templateService) GetTemplate(ctx context.Context, templateID uuid.UUID) (*TemplateDetail, error) {
	src, err := s.loadSource(ctx, templateID)
	if err != nil {
		return nil, err
	}
	return &TemplateDetail{Template: src.template, Stages: src.stages, Tasks: src.tasks}, nil
}

func (s *templateService) ListTemplates(ctx context.Context) ([]models.Template, error) {
	return s.repos.Templates.Find(ctx, repository.Query{Order: "name ASC"})
}

func (s *templateService) AddStage(ctx context.Context, templateID uuid.UUID, input *StageInput) (*models.Stage, error) {
	if input == nil || strings.TrimSpace(input.Name) == "" {
		return nil, appErr.Invalid("stage name is required")
	}
	var t models.Template
	if err := s.repos.Templates.GetByID(ctx, templateID, &t); err != nil {
		return nil, err
	}
	n, err := s.repos.Stages.Count(ctx, repository.Eq("template_id", templateID), repository.Eq("order_index", input.OrderIndex))
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, appErr.Conflict("a stage with this order_index already exists")
	}
	tid := templateID
	st := &models.Stage{TemplateID: &tid, Name: strings.TrimSpace(input.Name), OrderIndex: input.OrderIndex, Status: models.StageStatusPending}
	if err := s.repos.Stages.Create(ctx, st); err != nil {
		return nil, err
	}
	logger.L().Info("template stage added", zap.String("template_id", templateID.String()), zap.String("stage_id", st.ID.String()))
	return st, nil
}

func (s *templateService) AddTemplateTask(ctx context.Context, templateID uuid.UUID, input *TemplateTaskInput) (*models.TemplateTask, error) {
	if input == nil || strings.TrimSpace(input.Title) == "" {
		return nil, appErr.Invalid("title is required")
	}
	visibility := input.Visibility
	if visibility == "" {
		visibility = models.VisibilityInternal
	}
	if visibility != models.VisibilityInternal && visibility != models.VisibilityExternal {
		return nil, appErr.Invalid("visibility must be internal or external")
	}
	var t models.Template
	if err := s.repos.Templates.GetByID(ctx, templateID, &t); err != nil {
		return nil, err
	}
	if input.StageID != nil {
		var st models.Stage
		if err := s.repos.Stages.GetByID(ctx, *input.StageID, &st); err != nil {
			return nil, err
		}
		if st.TemplateID == nil || *st.TemplateID != templateID {
			return nil, appErr.NotFound("stage not found in template")
		}
	}
	if input.DependsOn != nil {
		var dep models.TemplateTask
		if err := s.repos.TemplateTasks.GetByID(ctx, *input.DependsOn, &dep); err != nil {
			return nil, err
		}
		if dep.TemplateID != templateID {
			return nil, appErr.NotFound("depends_on task not found in template")
		}
	}
	tt := &models.TemplateTask{
		TemplateID:         templateID,
		Title:              strings.TrimSpace(input.Title),
		Description:        input.Description,
		OrderIndex:         input.OrderIndex,
		Visibility:         visibility,
		AssigneeType:       input.AssigneeType,
		Category:           input.Category,
		RequiresFileUpload: input.RequiresFileUpload,
		RequiresSignature:  input.RequiresSignature,
		DependsOn:          input.DependsOn,
		StageID:            input.StageID,
		DueDaysOffset:      input.DueDaysOffset,
	}
	if err := s.repos.TemplateTasks.Create(ctx, tt); err != nil {
		return nil, err
	}
	logger.L().Info("template task added", zap.String("template_id", templateID.String()), zap.String("template_task_id", tt.ID.String()))
	return tt, nil
}

type templateSource struct {
	template models.Template
	stages   []models.Stage
	tasks    []models.TemplateTask
}

// loadSource reads the template, its stages and its tasks concurrently.
func (s *templateService) loadSource(ctx context.Context, templateID uuid.UUID) (*templateSource, error) {
	var src templateSource
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.repos.Templates.GetByID(gctx, templateID, &src.template)
	})
	g.Go(func() error {
		stages, err := s.repos.Stages.ListByTemplate(gctx, templateID)
		src.stages = stages
		return err
	})
	g.Go(func() error {
		tasks, err := s.repos.TemplateTasks.ListByTemplate(gctx, templateID)
		src.tasks = tasks
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &src, nil
}

// checkStageOrder rejects sources whose stages cannot be matched by order_index.
func checkStageOrder(stages []models.Stage) error {
	seen := make(map[int]uuid.UUID, len(stages))
	for _, st := range stages {
		if other, ok := seen[st.OrderIndex]; ok {
			return appErr.Newf(appErr.CodeInvalid, "stages %s and %s share order_index %d", other, st.ID, st.OrderIndex).
				WithMeta("order_index", st.OrderIndex)
		}
		seen[st.OrderIndex] = st.ID
	}
	return nil
}

// copyStages inserts clones of src owned by the target set via own and returns old id to new id,
// matched by order_index.
func (s *templateService) copyStages(ctx context.Context, src []models.Stage, own func(*models.Stage)) (map[uuid.UUID]uuid.UUID, error) {
	if len(src) == 0 {
		return map[uuid.UUID]uuid.UUID{}, nil
	}
	clones := make([]models.Stage, 0, len(src))
	for _, st := range src {
		c := models.Stage{Name: st.Name, OrderIndex: st.OrderIndex, Status: models.StageStatusPending}
		own(&c)
		clones = append(clones, c)
	}
	if err := s.repos.Stages.CreateMany(ctx, clones); err != nil {
		return nil, err
	}
	byOrder := make(map[int]uuid.UUID, len(clones))
	for _, c := range clones {
		byOrder[c.OrderIndex] = c.ID
	}
	remap := make(map[uuid.UUID]uuid.UUID, len(src))
	for _, st := range src {
		remap[st.ID] = byOrder[st.OrderIndex]
	}
	return remap, nil
}

// resolveRef maps a source reference through remap. Missing targets are nulled and logged.
func resolveRef(ref *uuid.UUID, remap map[uuid.UUID]uuid.UUID, field string, owner uuid.UUID) (*uuid.UUID, bool) {
	if ref == nil {
		return nil, true
	}
	if id, ok := remap[*ref]; ok {
		return &id, true
	}
	logger.L().Warn("unresolved reference nulled during copy",
		zap.String("field", field),
		zap.String("source_row", owner.String()),
		zap.String("reference", ref.String()))
	return nil, false
}

// dependencyLink is a depends_on edge recorded in the first copy pass and written in the second.
type dependencyLink struct {
	newID     uuid.UUID
	sourceRef uuid.UUID
	sourceID  uuid.UUID
}

func (s *templateService) DuplicateTemplate(ctx context.Context, sourceID uuid.UUID) (*CopyResult, error) {
	logger.L().Info("duplicate template start", zap.String("template_id", sourceID.String()))
	src, err := s.loadSource(ctx, sourceID)
	if err != nil {
		metrics.IncrementTemplateCopy("duplicate", "failed")
		return nil, err
	}
	if err := checkStageOrder(src.stages); err != nil {
		metrics.IncrementTemplateCopy("duplicate", "rejected")
		return nil, err
	}

	copyT := &models.Template{
		Name:          src.template.Name + " (Copy)",
		Description:   src.template.Description,
		EstimatedDays: src.template.EstimatedDays,
	}
	if err := s.repos.Templates.Create(ctx, copyT); err != nil {
		metrics.IncrementTemplateCopy("duplicate", "failed")
		return nil, err
	}
	res := &CopyResult{TemplateID: &copyT.ID}
	partial := func(err error, step string) (*CopyResult, error) {
		metrics.IncrementTemplateCopy("duplicate", "partial")
		logger.L().Error("duplicate template incomplete",
			zap.String("template_id", sourceID.String()),
			zap.String("new_template_id", copyT.ID.String()),
			zap.String("step", step), zap.Error(err))
		return res, appErr.Wrap(err, appErr.CodeOf(err), "template duplication incomplete at "+step).
			WithMeta("template_id", copyT.ID.String())
	}

	newID := copyT.ID
	stageMap, err := s.copyStages(ctx, src.stages, func(st *models.Stage) { st.TemplateID = &newID })
	if err != nil {
		return partial(err, "stages")
	}
	res.StagesCopied = len(stageMap)

	clones := make([]models.TemplateTask, 0, len(src.tasks))
	for _, tt := range src.tasks {
		stageID, ok := resolveRef(tt.StageID, stageMap, "stage_id", tt.ID)
		if !ok {
			res.Unresolved++
		}
		clones = append(clones, models.TemplateTask{
			TemplateID:         newID,
			Title:              tt.Title,
			Description:        tt.Description,
			OrderIndex:         tt.OrderIndex,
			Visibility:         tt.Visibility,
			AssigneeType:       tt.AssigneeType,
			Category:           tt.Category,
			RequiresFileUpload: tt.RequiresFileUpload,
			RequiresSignature:  tt.RequiresSignature,
			StageID:            stageID,
			DueDaysOffset:      tt.DueDaysOffset,
		})
	}
	if err := s.repos.TemplateTasks.CreateMany(ctx, clones); err != nil {
		return partial(err, "tasks")
	}
	res.TasksCopied = len(clones)

	taskMap := make(map[uuid.UUID]uuid.UUID, len(clones))
	var links []dependencyLink
	for i, tt := range src.tasks {
		taskMap[tt.ID] = clones[i].ID
		if tt.DependsOn != nil {
			links = append(links, dependencyLink{newID: clones[i].ID, sourceRef: *tt.DependsOn, sourceID: tt.ID})
		}
	}
	unresolved, err := s.linkDependencies(ctx, links, taskMap, s.repos.TemplateTasks.UpdateWhere)
	res.Unresolved += unresolved
	if err != nil {
		return partial(err, "dependencies")
	}

	metrics.IncrementTemplateCopy("duplicate", "ok")
	logger.L().Info("duplicate template done",
		zap.String("template_id", sourceID.String()),
		zap.String("new_template_id", copyT.ID.String()),
		zap.Int("stages", res.StagesCopied),
		zap.Int("tasks", res.TasksCopied),
		zap.Int("unresolved", res.Unresolved))
	return res, nil
}

type updateWhereFunc func(ctx context.Context, filters []repository.Filter, patch map[string]any) (int64, error)

// linkDependencies is the second copy pass: it writes depends_on on the new rows once every
// new id is known.
func (s *templateService) linkDependencies(ctx context.Context, links []dependencyLink, taskMap map[uuid.UUID]uuid.UUID, update updateWhereFunc) (int, error) {
	unresolved := 0
	for _, l := range links {
		ref := l.sourceRef
		dep, ok := resolveRef(&ref, taskMap, "depends_on", l.sourceID)
		if !ok {
			unresolved++
			continue
		}
		if _, err := update(ctx, []repository.Filter{repository.Eq("id", l.newID)}, map[string]any{"depends_on": *dep}); err != nil {
			return unresolved, err
		}
	}
	return unresolved, nil
}

func (s *templateService) InstantiateTemplate(ctx context.Context, templateID, projectID uuid.UUID, startDate *time.Time) (*CopyResult, error) {
	logger.L().Info("instantiate template start", zap.String("template_id", templateID.String()), zap.String("project_id", projectID.String()))
	var p models.Project
	if err := s.repos.Projects.GetByID(ctx, projectID, &p); err != nil {
		return nil, err
	}
	src, err := s.loadSource(ctx, templateID)
	if err != nil {
		metrics.IncrementTemplateCopy("instantiate", "failed")
		return nil, err
	}
	if err := checkStageOrder(src.stages); err != nil {
		metrics.IncrementTemplateCopy("instantiate", "rejected")
		return nil, err
	}
	if startDate == nil {
		startDate = p.StartDate
	}

	res := &CopyResult{ProjectID: &p.ID}
	partial := func(err error, step string) (*CopyResult, error) {
		metrics.IncrementTemplateCopy("instantiate", "partial")
		logger.L().Error("instantiate template incomplete",
			zap.String("template_id", templateID.String()),
			zap.String("project_id", projectID.String()),
			zap.String("step", step), zap.Error(err))
		return res, appErr.Wrap(err, appErr.CodeOf(err), "template instantiation incomplete at "+step).
			WithMeta("project_id", projectID.String())
	}

	pid := p.ID
	stageMap, err := s.copyStages(ctx, src.stages, func(st *models.Stage) { st.ProjectID = &pid })
	if err != nil {
		return partial(err, "stages")
	}
	res.StagesCopied = len(stageMap)

	tasks := make([]models.Task, 0, len(src.tasks))
	for _, tt := range src.tasks {
		stageID, ok := resolveRef(tt.StageID, stageMap, "stage_id", tt.ID)
		if !ok {
			res.Unresolved++
		}
		ttID := tt.ID
		tasks = append(tasks, models.Task{
			ProjectID:          pid,
			TemplateTaskID:     &ttID,
			Title:              tt.Title,
			Description:        tt.Description,
			OrderIndex:         tt.OrderIndex,
			Visibility:         tt.Visibility,
			AssigneeType:       tt.AssigneeType,
			Category:           tt.Category,
			RequiresFileUpload: tt.RequiresFileUpload,
			RequiresSignature:  tt.RequiresSignature,
			StageID:            stageID,
			Status:             models.TaskStatusPending,
			DueDate:            dueDate(startDate, tt.DueDaysOffset),
		})
	}
	if err := s.repos.Tasks.CreateMany(ctx, tasks); err != nil {
		return partial(err, "tasks")
	}
	res.TasksCopied = len(tasks)

	taskMap := make(map[uuid.UUID]uuid.UUID, len(tasks))
	var links []dependencyLink
	for i, tt := range src.tasks {
		taskMap[tt.ID] = tasks[i].ID
		if tt.DependsOn != nil {
			links = append(links, dependencyLink{newID: tasks[i].ID, sourceRef: *tt.DependsOn, sourceID: tt.ID})
		}
	}
	unresolved, err := s.linkDependencies(ctx, links, taskMap, s.repos.Tasks.UpdateWhere)
	res.Unresolved += unresolved
	if err != nil {
		return partial(err, "dependencies")
	}

	if p.TemplateID == nil || *p.TemplateID != templateID {
		tid := templateID
		if _, err := s.repos.Projects.UpdateWhere(ctx, []repository.Filter{repository.Eq("id", pid)}, map[string]any{"template_id": tid}); err != nil {
			logger.L().Warn("record project template failed", zap.String("project_id", pid.String()), zap.Error(err))
		}
	}

	metrics.IncrementTemplateCopy("instantiate", "ok")
	logger.L().Info("instantiate template done",
		zap.String("template_id", templateID.String()),
		zap.String("project_id", projectID.String()),
		zap.Int("stages", res.StagesCopied),
		zap.Int("tasks", res.TasksCopied),
		zap.Int("unresolved", res.Unresolved))
	return res, nil
}

func dueDate(start *time.Time, offsetDays *int) *time.Time {
	if start == nil || offsetDays == nil {
		return nil
	}
	d := start.UTC().AddDate(0, 0, *offsetDays)
	return &d
}
