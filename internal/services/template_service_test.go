package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/onboardhub/engine/internal/models"
	appErr "github.com/onboardhub/engine/pkg/errors"
)

type templateFixture struct {
	template *models.Template
	stages   []*models.Stage
	tasks    []*models.TemplateTask
}

// seedTemplate builds a template with three stages and four tasks, two of them chained.
func seedTemplate(t *testing.T, svc TemplateService) templateFixture {
	t.Helper()
	ctx := context.Background()
	tpl, err := svc.CreateTemplate(ctx, &CreateTemplateInput{Name: "Standard", Description: "Default flow", EstimatedDays: 30})
	require.NoError(t, err)

	f := templateFixture{template: tpl}
	for i, name := range []string{"Kickoff", "Paperwork", "Go live"} {
		st, err := svc.AddStage(ctx, tpl.ID, &StageInput{Name: name, OrderIndex: (i + 1) * 10})
		require.NoError(t, err)
		f.stages = append(f.stages, st)
	}
	first, err := svc.AddTemplateTask(ctx, tpl.ID, &TemplateTaskInput{
		Title: "Intro call", OrderIndex: 1, Visibility: models.VisibilityExternal, StageID: &f.stages[0].ID, DueDaysOffset: intPtr(2),
	})
	require.NoError(t, err)
	second, err := svc.AddTemplateTask(ctx, tpl.ID, &TemplateTaskInput{
		Title: "Sign agreement", OrderIndex: 2, Visibility: models.VisibilityExternal, RequiresSignature: true,
		StageID: &f.stages[1].ID, DependsOn: &first.ID, DueDaysOffset: intPtr(7),
	})
	require.NoError(t, err)
	third, err := svc.AddTemplateTask(ctx, tpl.ID, &TemplateTaskInput{
		Title: "Provision account", OrderIndex: 3, Visibility: models.VisibilityInternal, StageID: &f.stages[2].ID, DependsOn: &second.ID,
	})
	require.NoError(t, err)
	loose, err := svc.AddTemplateTask(ctx, tpl.ID, &TemplateTaskInput{Title: "Send swag", OrderIndex: 4})
	require.NoError(t, err)
	f.tasks = []*models.TemplateTask{first, second, third, loose}
	return f
}

func TestDuplicateTemplateCopiesAndRemaps(t *testing.T) {
	repos := newTestRepos(t)
	svc := NewTemplateService(repos)
	ctx := context.Background()
	f := seedTemplate(t, svc)

	res, err := svc.DuplicateTemplate(ctx, f.template.ID)
	require.NoError(t, err)
	require.NotNil(t, res.TemplateID)
	require.Equal(t, 3, res.StagesCopied)
	require.Equal(t, 4, res.TasksCopied)
	require.Zero(t, res.Unresolved)

	dup, err := svc.GetTemplate(ctx, *res.TemplateID)
	require.NoError(t, err)
	require.Equal(t, "Standard (Copy)", dup.Name)
	require.Equal(t, "Default flow", dup.Description)
	require.Equal(t, 30, dup.EstimatedDays)
	require.Len(t, dup.Stages, len(f.stages))
	require.Len(t, dup.Tasks, len(f.tasks))

	oldIDs := map[uuid.UUID]bool{}
	oldStageOrder := map[uuid.UUID]int{}
	for _, st := range f.stages {
		oldIDs[st.ID] = true
		oldStageOrder[st.ID] = st.OrderIndex
	}
	for _, tt := range f.tasks {
		oldIDs[tt.ID] = true
	}
	newStageOrder := map[uuid.UUID]int{}
	for _, st := range dup.Stages {
		require.False(t, oldIDs[st.ID])
		newStageOrder[st.ID] = st.OrderIndex
	}
	newTaskIDs := map[uuid.UUID]bool{}
	for _, tt := range dup.Tasks {
		newTaskIDs[tt.ID] = true
	}

	for i, tt := range dup.Tasks {
		src := f.tasks[i]
		require.Equal(t, src.Title, tt.Title)
		require.Equal(t, src.Visibility, tt.Visibility)
		require.Equal(t, src.RequiresSignature, tt.RequiresSignature)
		if src.StageID == nil {
			require.Nil(t, tt.StageID)
		} else {
			require.NotNil(t, tt.StageID)
			require.Equal(t, oldStageOrder[*src.StageID], newStageOrder[*tt.StageID])
		}
		if tt.DependsOn != nil {
			require.False(t, oldIDs[*tt.DependsOn], "depends_on must not reference the source template")
			require.True(t, newTaskIDs[*tt.DependsOn])
		}
	}
	require.Equal(t, dup.Tasks[0].ID, *dup.Tasks[1].DependsOn)
	require.Equal(t, dup.Tasks[1].ID, *dup.Tasks[2].DependsOn)

	// source untouched
	src, err := svc.GetTemplate(ctx, f.template.ID)
	require.NoError(t, err)
	require.Len(t, src.Tasks, 4)
	require.Equal(t, f.tasks[0].ID, *src.Tasks[1].DependsOn)
}

func TestDuplicateTemplateRejectsAmbiguousStageOrder(t *testing.T) {
	repos := newTestRepos(t)
	svc := NewTemplateService(repos)
	ctx := context.Background()
	tpl, err := svc.CreateTemplate(ctx, &CreateTemplateInput{Name: "Messy"})
	require.NoError(t, err)
	// AddStage refuses duplicates, so write them directly
	seedStage(t, repos, func(s *models.Stage) { s.TemplateID = &tpl.ID; s.OrderIndex = 1 })
	seedStage(t, repos, func(s *models.Stage) { s.TemplateID = &tpl.ID; s.OrderIndex = 1 })

	_, err = svc.DuplicateTemplate(ctx, tpl.ID)
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))

	all, err := svc.ListTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1, "no copy may be created when remap is ambiguous")
}

func TestDuplicateTemplateNotFound(t *testing.T) {
	svc := NewTemplateService(newTestRepos(t))
	_, err := svc.DuplicateTemplate(context.Background(), uuid.New())
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestInstantiateTemplateIntoProject(t *testing.T) {
	repos := newTestRepos(t)
	svc := NewTemplateService(repos)
	ctx := context.Background()
	f := seedTemplate(t, svc)
	p := seedProject(t, repos, nil)
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	res, err := svc.InstantiateTemplate(ctx, f.template.ID, p.ID, &start)
	require.NoError(t, err)
	require.Equal(t, 3, res.StagesCopied)
	require.Equal(t, 4, res.TasksCopied)

	stages, err := repos.Stages.ListByProject(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, stages, 3)
	stageOrder := map[uuid.UUID]int{}
	for _, st := range stages {
		require.Nil(t, st.TemplateID)
		stageOrder[st.ID] = st.OrderIndex
	}

	tasks, err := repos.Tasks.ListByProject(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 4)
	for i, task := range tasks {
		src := f.tasks[i]
		require.Equal(t, src.Title, task.Title)
		require.Equal(t, src.OrderIndex, task.OrderIndex)
		require.Equal(t, models.TaskStatusPending, task.Status)
		require.Equal(t, src.ID, *task.TemplateTaskID)
		if src.StageID != nil {
			require.Contains(t, stageOrder, *task.StageID)
		}
	}
	require.Equal(t, 10, stageOrder[*tasks[0].StageID])
	require.Equal(t, tasks[0].ID, *tasks[1].DependsOn)
	require.Equal(t, tasks[1].ID, *tasks[2].DependsOn)
	require.Nil(t, tasks[3].DependsOn)
	require.True(t, tasks[0].DueDate.Equal(start.AddDate(0, 0, 2)))
	require.Nil(t, tasks[2].DueDate)

	var reloaded models.Project
	require.NoError(t, repos.Projects.GetByID(ctx, p.ID, &reloaded))
	require.Equal(t, f.template.ID, *reloaded.TemplateID)
}

func TestInstantiateNullsDanglingReferences(t *testing.T) {
	repos := newTestRepos(t)
	svc := NewTemplateService(repos)
	ctx := context.Background()
	tpl, err := svc.CreateTemplate(ctx, &CreateTemplateInput{Name: "Dangling"})
	require.NoError(t, err)
	ghost := uuid.New()
	require.NoError(t, repos.TemplateTasks.Create(ctx, &models.TemplateTask{
		TemplateID: tpl.ID, Title: "Orphan", Visibility: models.VisibilityExternal, DependsOn: &ghost, StageID: &ghost,
	}))
	p := seedProject(t, repos, nil)

	res, err := svc.InstantiateTemplate(ctx, tpl.ID, p.ID, nil)
	require.NoError(t, err)
	require.Equal(t, 2, res.Unresolved)

	tasks, err := repos.Tasks.ListByProject(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Nil(t, tasks[0].DependsOn)
	require.Nil(t, tasks[0].StageID)
}

func TestAddTemplateTaskValidatesOwnership(t *testing.T) {
	repos := newTestRepos(t)
	svc := NewTemplateService(repos)
	ctx := context.Background()
	a, err := svc.CreateTemplate(ctx, &CreateTemplateInput{Name: "A"})
	require.NoError(t, err)
	b, err := svc.CreateTemplate(ctx, &CreateTemplateInput{Name: "B"})
	require.NoError(t, err)
	stB, err := svc.AddStage(ctx, b.ID, &StageInput{Name: "B1", OrderIndex: 1})
	require.NoError(t, err)

	_, err = svc.AddTemplateTask(ctx, a.ID, &TemplateTaskInput{Title: "x", StageID: &stB.ID})
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))

	_, err = svc.AddTemplateTask(ctx, a.ID, &TemplateTaskInput{Title: "x", Visibility: "public"})
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))

	_, err = svc.AddStage(ctx, b.ID, &StageInput{Name: "dup", OrderIndex: 1})
	require.True(t, appErr.IsCode(err, appErr.CodeConflict))

	_, err = svc.CreateTemplate(ctx, &CreateTemplateInput{Name: "  "})
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))
}

func TestCheckStageOrder(t *testing.T) {
	require.NoError(t, checkStageOrder(nil))
	require.NoError(t, checkStageOrder([]models.Stage{{ID: uuid.New(), OrderIndex: 1}, {ID: uuid.New(), OrderIndex: 2}}))
	err := checkStageOrder([]models.Stage{{ID: uuid.New(), OrderIndex: 1}, {ID: uuid.New(), OrderIndex: 1}})
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))
}
