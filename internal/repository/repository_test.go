package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onboardhub/engine/internal/models"
	"github.com/onboardhub/engine/pkg/database"
	appErr "github.com/onboardhub/engine/pkg/errors"
	"github.com/onboardhub/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	if _, err := logger.Init("error", "json"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func newSet(t *testing.T) *Set {
	t.Helper()
	db, err := database.Open(context.Background(), database.Options{Driver: "sqlite", DSN: "file::memory:"})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewSet(db)
}

func project(name string) *models.Project {
	return &models.Project{Name: name, Status: models.ProjectStatusActive, ClientName: "Ada", PublicToken: uuid.NewString()}
}

func TestCreateAndLookup(t *testing.T) {
	repos := newSet(t)
	ctx := context.Background()

	p := project("Acme")
	require.NoError(t, repos.Projects.Create(ctx, p))
	require.NotEqual(t, uuid.Nil, p.ID)

	var byToken models.Project
	require.NoError(t, repos.Projects.GetByToken(ctx, p.PublicToken, &byToken))
	assert.Equal(t, p.ID, byToken.ID)

	var missing models.Project
	err := repos.Projects.GetByID(ctx, uuid.New(), &missing)
	assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))

	err = repos.Projects.Delete(ctx, uuid.New())
	assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestUniqueViolationIsConflict(t *testing.T) {
	repos := newSet(t)
	ctx := context.Background()

	p := project("Acme")
	require.NoError(t, repos.Projects.Create(ctx, p))
	dup := project("Other")
	dup.PublicToken = p.PublicToken
	err := repos.Projects.Create(ctx, dup)
	require.Error(t, err)
	assert.True(t, appErr.IsCode(err, appErr.CodeConflict), "got %v", err)
}

func TestCreateManyReturnsIDs(t *testing.T) {
	repos := newSet(t)
	ctx := context.Background()
	p := project("Acme")
	require.NoError(t, repos.Projects.Create(ctx, p))

	rows := []models.Task{
		{ProjectID: p.ID, Title: "a", OrderIndex: 0},
		{ProjectID: p.ID, Title: "b", OrderIndex: 1},
	}
	require.NoError(t, repos.Tasks.CreateMany(ctx, rows))
	for _, r := range rows {
		assert.NotEqual(t, uuid.Nil, r.ID)
	}

	require.NoError(t, repos.Tasks.CreateMany(ctx, nil))
}

func TestFiltersCombine(t *testing.T) {
	repos := newSet(t)
	ctx := context.Background()
	p := project("Acme")
	require.NoError(t, repos.Projects.Create(ctx, p))

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	soon := now.Add(24 * time.Hour)
	later := now.Add(10 * 24 * time.Hour)
	seed := []models.Task{
		{ProjectID: p.ID, Title: "due soon", Visibility: models.VisibilityExternal, Status: models.TaskStatusPending, DueDate: &soon, OrderIndex: 0},
		{ProjectID: p.ID, Title: "due later", Visibility: models.VisibilityExternal, Status: models.TaskStatusPending, DueDate: &later, OrderIndex: 1},
		{ProjectID: p.ID, Title: "internal", Visibility: models.VisibilityInternal, Status: models.TaskStatusPending, DueDate: &soon, OrderIndex: 2},
		{ProjectID: p.ID, Title: "done", Visibility: models.VisibilityExternal, Status: models.TaskStatusCompleted, DueDate: &soon, OrderIndex: 3},
		{ProjectID: p.ID, Title: "undated", Visibility: models.VisibilityExternal, Status: models.TaskStatusPending, OrderIndex: 4},
	}
	require.NoError(t, repos.Tasks.CreateMany(ctx, seed))

	due, err := repos.Tasks.ListDueExternalPending(ctx, []uuid.UUID{p.ID}, now.Add(72*time.Hour))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "due soon", due[0].Title)

	n, err := repos.Tasks.Count(ctx, Eq("project_id", p.ID), IsNull("due_date"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := repos.Tasks.Find(ctx, Query{
		Filters: []Filter{Eq("project_id", p.ID), Gte("order_index", 1), Lte("order_index", 3), Neq("status", models.TaskStatusCompleted)},
		Order:   "order_index DESC",
		Limit:   1,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "internal", got[0].Title)
}

func TestUpdateAndDeleteWhere(t *testing.T) {
	repos := newSet(t)
	ctx := context.Background()
	p := project("Acme")
	require.NoError(t, repos.Projects.Create(ctx, p))
	rows := []models.Task{{ProjectID: p.ID, Title: "a"}, {ProjectID: p.ID, Title: "b"}}
	require.NoError(t, repos.Tasks.CreateMany(ctx, rows))

	_, err := repos.Tasks.UpdateWhere(ctx, nil, map[string]any{"status": "completed"})
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))
	_, err = repos.Tasks.DeleteWhere(ctx, nil)
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))

	n, err := repos.Tasks.UpdateWhere(ctx, []Filter{In("id", []uuid.UUID{rows[0].ID})}, map[string]any{"status": models.TaskStatusCompleted})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = repos.Tasks.UpdateWhere(ctx, []Filter{Eq("id", rows[1].ID), Eq("project_id", uuid.New())}, map[string]any{"title": "x"})
	require.NoError(t, err)
	assert.Zero(t, n, "scoped to another project")

	n, err = repos.Tasks.DeleteWhere(ctx, []Filter{Eq("project_id", p.ID), Eq("status", models.TaskStatusCompleted)})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	left, err := repos.Tasks.ListByProject(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "b", left[0].Title)
}

func TestListByStatusAndRemindable(t *testing.T) {
	repos := newSet(t)
	ctx := context.Background()

	email := "ada@example.com"
	empty := ""
	a := project("with email")
	a.ClientEmail = &email
	b := project("empty email")
	b.ClientEmail = &empty
	c := project("closed")
	c.ClientEmail = &email
	c.Status = models.ProjectStatusCompleted
	for _, p := range []*models.Project{a, b, c} {
		require.NoError(t, repos.Projects.Create(ctx, p))
	}

	all, err := repos.Projects.ListByStatus(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	active, err := repos.Projects.ListByStatus(ctx, models.ProjectStatusActive)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	remindable, err := repos.Projects.ListRemindable(ctx)
	require.NoError(t, err)
	require.Len(t, remindable, 1)
	assert.Equal(t, a.ID, remindable[0].ID)
}
