package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onboardhub/engine/internal/app"
	"github.com/onboardhub/engine/internal/models"
	"github.com/onboardhub/engine/internal/services"
	"github.com/onboardhub/engine/pkg/config"
	"github.com/onboardhub/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	if _, err := logger.Init("error", "json"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func testOpen(t *testing.T) OpenFunc {
	t.Helper()
	cfg := &config.Config{
		AppEnv:         "test",
		LogLevel:       "error",
		DBDriver:       "sqlite",
		DatabaseURL:    filepath.Join(t.TempDir(), "onboard.db"),
		AdminSecret:    "admin-secret-0123456789",
		JWTSecret:      "jwt-secret-0123456789",
		StaffTokenTTL:  time.Hour,
		ReminderWindow: 72 * time.Hour,
		ActivityMode:   app.ActivityAsync,
	}
	return func(ctx context.Context) (*app.App, error) {
		return app.New(ctx, cfg, app.Options{SkipRedis: true, SkipBlobs: true})
	}
}

func run(t *testing.T, open OpenFunc, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand(open)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMigrateAndDuplicateTemplate(t *testing.T) {
	open := testOpen(t)

	out, err := run(t, open, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "migrations completed")

	ctx := context.Background()
	a, err := open(ctx)
	require.NoError(t, err)
	tpl, err := a.Templates.CreateTemplate(ctx, &services.CreateTemplateInput{Name: "Standard"})
	require.NoError(t, err)
	stage, err := a.Templates.AddStage(ctx, tpl.ID, &services.StageInput{Name: "Kickoff", OrderIndex: 0})
	require.NoError(t, err)
	_, err = a.Templates.AddTemplateTask(ctx, tpl.ID, &services.TemplateTaskInput{Title: "Call", StageID: &stage.ID})
	require.NoError(t, err)
	p := &models.Project{Name: "Acme", Status: models.ProjectStatusActive, ClientName: "Ada", PublicToken: uuid.NewString()}
	require.NoError(t, a.Repos.Projects.Create(ctx, p))
	require.NoError(t, a.Close())

	out, err = run(t, open, "template", "duplicate", tpl.ID.String())
	require.NoError(t, err)
	var dup services.CopyResult
	require.NoError(t, json.Unmarshal([]byte(out), &dup))
	assert.Equal(t, 1, dup.StagesCopied)
	assert.Equal(t, 1, dup.TasksCopied)
	require.NotNil(t, dup.TemplateID)
	assert.NotEqual(t, tpl.ID, *dup.TemplateID)

	out, err = run(t, open, "project", "instantiate", p.ID.String(), "--template", tpl.ID.String(), "--start", "2026-01-05")
	require.NoError(t, err)
	var inst services.CopyResult
	require.NoError(t, json.Unmarshal([]byte(out), &inst))
	assert.Equal(t, 1, inst.TasksCopied)

	out, err = run(t, open, "project", "progress", p.ID.String())
	require.NoError(t, err)
	assert.Contains(t, out, `"stages"`)
}

func TestCommandArgumentErrors(t *testing.T) {
	open := testOpen(t)

	_, err := run(t, open, "template", "duplicate", "not-a-uuid")
	assert.ErrorContains(t, err, "invalid template id")

	_, err = run(t, open, "project", "instantiate", uuid.NewString())
	assert.Error(t, err, "--template is required")

	_, err = run(t, open, "project", "instantiate", uuid.NewString(), "--template", uuid.NewString(), "--start", "05/01/2026")
	assert.ErrorContains(t, err, "invalid --start")
}

func TestRemindWithoutMailerFails(t *testing.T) {
	open := testOpen(t)
	_, err := run(t, open, "migrate")
	require.NoError(t, err)

	_, err = run(t, open, "remind")
	assert.ErrorContains(t, err, "mailer not configured")
}
