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

func TestAuthenticateStaff(t *testing.T) {
	gate := newGate(newTestRepos(t))

	p, err := gate.AuthenticateStaff("admin-secret-0123456789")
	require.NoError(t, err)
	require.Equal(t, models.ActorStaff, p.ActorType)

	p, err = gate.AuthenticateStaff("crm-secret-0123456789")
	require.NoError(t, err)
	require.Equal(t, models.ActorCRM, p.ActorType)

	for _, bad := range []string{"", "nope", "admin-secret-012345678"} {
		_, err = gate.AuthenticateStaff(bad)
		require.True(t, appErr.IsCode(err, appErr.CodeUnauthorized), bad)
	}
}

func TestEmptyCRMSecretNeverMatches(t *testing.T) {
	gate := NewAccessGate(AccessGateConfig{AdminSecret: "admin-secret-0123456789", JWTSecret: []byte("k")}, newTestRepos(t))
	_, err := gate.AuthenticateStaff("")
	require.True(t, appErr.IsCode(err, appErr.CodeUnauthorized))
}

func TestStaffTokenRoundTrip(t *testing.T) {
	gate := newGate(newTestRepos(t))
	token, exp, err := gate.IssueStaffToken("crm-secret-0123456789")
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	p, err := gate.ParseStaffToken(token)
	require.NoError(t, err)
	require.Equal(t, models.ActorCRM, p.ActorType)

	_, _, err = gate.IssueStaffToken("wrong")
	require.True(t, appErr.IsCode(err, appErr.CodeUnauthorized))
}

func TestParseStaffTokenRejectsExpiredAndForeign(t *testing.T) {
	repos := newTestRepos(t)
	g := newGate(repos).(*accessGate)
	g.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, err := g.IssueStaffToken("admin-secret-0123456789")
	require.NoError(t, err)
	g.now = time.Now
	_, err = g.ParseStaffToken(old)
	require.True(t, appErr.IsCode(err, appErr.CodeUnauthorized))

	other := NewAccessGate(AccessGateConfig{AdminSecret: "admin-secret-0123456789", JWTSecret: []byte("another-secret-123456")}, repos)
	foreign, _, err := other.IssueStaffToken("admin-secret-0123456789")
	require.NoError(t, err)
	_, err = g.ParseStaffToken(foreign)
	require.True(t, appErr.IsCode(err, appErr.CodeUnauthorized))

	_, err = g.ParseStaffToken("garbage")
	require.True(t, appErr.IsCode(err, appErr.CodeUnauthorized))
}

func TestAuthenticatePortalResolvesEveryCall(t *testing.T) {
	repos := newTestRepos(t)
	gate := newGate(repos)
	ctx := context.Background()
	p := seedProject(t, repos, nil)

	got, err := gate.AuthenticatePortal(ctx, p.PublicToken)
	require.NoError(t, err)
	require.Equal(t, p.ID, got.ID)

	projects := NewProjectService(repos, NewTemplateService(repos), nil, nil)
	_, err = projects.RotateToken(ctx, p.ID, SystemActor)
	require.NoError(t, err)

	_, err = gate.AuthenticatePortal(ctx, p.PublicToken)
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound), "rotated token must stop working immediately")
}

func TestTaskForPortalChecksProject(t *testing.T) {
	repos := newTestRepos(t)
	gate := newGate(repos)
	ctx := context.Background()
	a := seedProject(t, repos, nil)
	b := seedProject(t, repos, nil)
	taskB := seedTask(t, repos, b.ID, nil)

	_, _, err := gate.TaskForPortal(ctx, a.PublicToken, taskB.ID)
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
	_, _, err = gate.TaskForPortal(ctx, a.PublicToken, uuid.New())
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))

	_, got, err := gate.TaskForPortal(ctx, b.PublicToken, taskB.ID)
	require.NoError(t, err)
	require.Equal(t, taskB.ID, got.ID)
}
