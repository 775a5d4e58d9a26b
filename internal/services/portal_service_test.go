package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/onboardhub/engine/internal/models"
	"github.com/onboardhub/engine/internal/repository"
	appErr "github.com/onboardhub/engine/pkg/errors"
)

type portalFixture struct {
	repos  *repository.Set
	sink   *recordingSink
	blobs  *memBlobStore
	svc    PortalService
	proj   *models.Project
	other  *models.Project
	stage  *models.Stage
	public *models.Task
	hidden *models.Task
}

func newPortalFixture(t *testing.T) *portalFixture {
	t.Helper()
	repos := newTestRepos(t)
	sink := &recordingSink{}
	blobs := newMemBlobStore()
	tasks := NewTaskService(repos, sink)
	f := &portalFixture{
		repos: repos,
		sink:  sink,
		blobs: blobs,
		svc:   NewPortalService(newGate(repos), repos, tasks, blobs, sink),
	}
	f.proj = seedProject(t, repos, func(p *models.Project) { p.CommunityName = strPtr("Oak Grove") })
	f.other = seedProject(t, repos, func(p *models.Project) { p.Name = "Other" })
	pid := f.proj.ID
	f.stage = seedStage(t, repos, func(s *models.Stage) { s.ProjectID = &pid; s.Name = "Setup"; s.OrderIndex = 1 })
	f.public = seedTask(t, repos, pid, func(task *models.Task) { task.OrderIndex = 1; task.StageID = &f.stage.ID })
	f.hidden = seedTask(t, repos, pid, func(task *models.Task) {
		task.OrderIndex = 2
		task.Visibility = models.VisibilityInternal
		task.Status = models.TaskStatusCompleted
		task.StageID = &f.stage.ID
	})
	return f
}

func TestPortalViewWhitelistsAndAggregates(t *testing.T) {
	f := newPortalFixture(t)
	ctx := context.Background()
	doc := &models.Document{Name: "Master agreement"}
	require.NoError(t, f.repos.Documents.Create(ctx, doc))
	signed := &models.Signature{ProjectID: f.proj.ID, DocumentID: &doc.ID, Status: models.SignatureStatusPending}
	noDoc := &models.Signature{ProjectID: f.proj.ID, Status: models.SignatureStatusPending}
	declined := &models.Signature{ProjectID: f.proj.ID, DocumentID: &doc.ID, Status: models.SignatureStatusDeclined}
	for _, s := range []*models.Signature{signed, noDoc, declined} {
		require.NoError(t, f.repos.Signatures.Create(ctx, s))
	}
	require.NoError(t, f.repos.Files.Create(ctx, &models.OnboardingFile{
		ProjectID: f.proj.ID, FileName: "w9.pdf", StoragePath: "x/w9.pdf", UploaderType: models.ActorClient,
	}))
	_, err := f.repos.Tasks.UpdateWhere(ctx, []repository.Filter{repository.Eq("id", f.public.ID)},
		map[string]any{"depends_on": f.hidden.ID})
	require.NoError(t, err)

	view, err := f.svc.GetView(ctx, f.proj.PublicToken)
	require.NoError(t, err)

	require.Equal(t, f.proj.ID, view.Project.ID)
	require.Equal(t, "Oak Grove", *view.Project.CommunityName)
	require.Len(t, view.Tasks, 1)
	require.Equal(t, f.public.ID, view.Tasks[0].ID)
	require.NotNil(t, view.Tasks[0].Checklist)
	require.Empty(t, view.Tasks[0].Checklist)
	require.Equal(t, 0, view.Progress)
	require.Equal(t, 1, view.Total)

	require.Len(t, view.Stages, 1)
	require.Equal(t, 2, view.Stages[0].TotalTasks)
	require.Equal(t, 1, view.Stages[0].CompletedTasks)

	require.Len(t, view.Signatures, 2)
	names := map[uuid.UUID]*string{}
	for _, s := range view.Signatures {
		require.NotEqual(t, models.SignatureStatusDeclined, s.Status)
		names[s.ID] = s.DocumentName
	}
	require.Equal(t, "Master agreement", *names[signed.ID])
	require.Nil(t, names[noDoc.ID])
	require.Len(t, view.Files, 1)
	require.Nil(t, view.Tasks[0].DependsOn)

	raw, err := json.Marshal(view)
	require.NoError(t, err)
	body := string(raw)
	require.NotContains(t, body, f.proj.PublicToken)
	require.NotContains(t, body, "public_token")
	require.NotContains(t, body, "ada@example.com")
	require.NotContains(t, body, "storage_path")
	require.NotContains(t, body, f.hidden.Title)
	require.NotContains(t, body, f.hidden.ID.String())
	require.Contains(t, body, `"document_name":null`)
}

func TestPortalDependsOnKeptBetweenExternalTasks(t *testing.T) {
	f := newPortalFixture(t)
	ctx := context.Background()
	next := seedTask(t, f.repos, f.proj.ID, func(task *models.Task) {
		task.OrderIndex = 3
		task.DependsOn = &f.public.ID
	})
	_, err := f.repos.Tasks.UpdateWhere(ctx, []repository.Filter{repository.Eq("id", f.public.ID)},
		map[string]any{"depends_on": f.hidden.ID})
	require.NoError(t, err)

	view, err := f.svc.GetView(ctx, f.proj.PublicToken)
	require.NoError(t, err)
	deps := map[uuid.UUID]*uuid.UUID{}
	for _, task := range view.Tasks {
		deps[task.ID] = task.DependsOn
	}
	require.Nil(t, deps[f.public.ID])
	require.NotNil(t, deps[next.ID])
	require.Equal(t, f.public.ID, *deps[next.ID])

	updated, err := f.svc.UpdateTask(ctx, f.proj.PublicToken, f.public.ID, &PortalTaskUpdate{ClientNotes: strPtr("done soon")})
	require.NoError(t, err)
	require.Nil(t, updated.DependsOn)

	updated, err = f.svc.UpdateTask(ctx, f.proj.PublicToken, next.ID, &PortalTaskUpdate{ClientNotes: strPtr("ok")})
	require.NoError(t, err)
	require.Equal(t, f.public.ID, *updated.DependsOn)
}

func TestPortalHidesForeignDocumentNames(t *testing.T) {
	f := newPortalFixture(t)
	ctx := context.Background()
	foreign := &models.Document{ProjectID: &f.other.ID, Name: "Other client NDA"}
	own := &models.Document{ProjectID: &f.proj.ID, Name: "Welcome packet"}
	require.NoError(t, f.repos.Documents.Create(ctx, foreign))
	require.NoError(t, f.repos.Documents.Create(ctx, own))
	leaked := &models.Signature{ProjectID: f.proj.ID, DocumentID: &foreign.ID, Status: models.SignatureStatusPending}
	mine := &models.Signature{ProjectID: f.proj.ID, DocumentID: &own.ID, Status: models.SignatureStatusPending}
	require.NoError(t, f.repos.Signatures.Create(ctx, leaked))
	require.NoError(t, f.repos.Signatures.Create(ctx, mine))

	view, err := f.svc.GetView(ctx, f.proj.PublicToken)
	require.NoError(t, err)
	names := map[uuid.UUID]*string{}
	for _, s := range view.Signatures {
		names[s.ID] = s.DocumentName
	}
	require.Nil(t, names[leaked.ID])
	require.Equal(t, "Welcome packet", *names[mine.ID])

	raw, err := json.Marshal(view)
	require.NoError(t, err)
	require.NotContains(t, string(raw), "Other client NDA")

	out, err := f.svc.SignDocument(ctx, f.proj.PublicToken, leaked.ID, "Ada")
	require.NoError(t, err)
	require.Nil(t, out.DocumentName)
}

func TestPortalUnknownTokenIsNotFoundEverywhere(t *testing.T) {
	f := newPortalFixture(t)
	ctx := context.Background()
	bad := "not-a-real-token"

	_, err := f.svc.GetView(ctx, bad)
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
	_, err = f.svc.UpdateTask(ctx, bad, f.public.ID, &PortalTaskUpdate{Status: strPtr(models.TaskStatusCompleted)})
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
	_, err = f.svc.SignDocument(ctx, bad, uuid.New(), "Ada")
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
	_, _, err = f.svc.DownloadFile(ctx, bad, uuid.New())
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
	_, err = f.svc.ListComments(ctx, bad)
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
	_, err = f.svc.GetView(ctx, "")
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestPortalCrossProjectLookupsFailClosed(t *testing.T) {
	f := newPortalFixture(t)
	ctx := context.Background()
	foreignTask := seedTask(t, f.repos, f.other.ID, nil)
	foreignSig := &models.Signature{ProjectID: f.other.ID, Status: models.SignatureStatusPending}
	require.NoError(t, f.repos.Signatures.Create(ctx, foreignSig))
	foreignFile := &models.OnboardingFile{ProjectID: f.other.ID, FileName: "a", StoragePath: "a"}
	require.NoError(t, f.repos.Files.Create(ctx, foreignFile))

	_, err := f.svc.UpdateTask(ctx, f.proj.PublicToken, foreignTask.ID, &PortalTaskUpdate{Status: strPtr(models.TaskStatusCompleted)})
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
	_, err = f.svc.SignDocument(ctx, f.proj.PublicToken, foreignSig.ID, "Ada")
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
	_, _, err = f.svc.DownloadFile(ctx, f.proj.PublicToken, foreignFile.ID)
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))

	// internal tasks of the same project are hidden as well
	_, err = f.svc.UpdateTask(ctx, f.proj.PublicToken, f.hidden.ID, &PortalTaskUpdate{ClientNotes: strPtr("hi")})
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))

	var untouched models.Task
	require.NoError(t, f.repos.Tasks.GetByID(ctx, foreignTask.ID, &untouched))
	require.Equal(t, models.TaskStatusPending, untouched.Status)
}

func TestPortalCompleteTaskUsesClientActor(t *testing.T) {
	f := newPortalFixture(t)
	ctx := context.Background()
	checklist := []models.ChecklistItem{{Label: "Scan ID"}, {ID: "b", Label: "Scan card", Done: true}}

	got, err := f.svc.UpdateTask(ctx, f.proj.PublicToken, f.public.ID, &PortalTaskUpdate{
		Status:      strPtr(models.TaskStatusCompleted),
		Checklist:   &checklist,
		ClientNotes: strPtr("done"),
	})
	require.NoError(t, err)
	require.Equal(t, models.TaskStatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	require.Len(t, got.Checklist, 2)
	require.NotEmpty(t, got.Checklist[0].ID)
	require.Equal(t, "done", *got.ClientNotes)

	var row models.Task
	require.NoError(t, f.repos.Tasks.GetByID(ctx, f.public.ID, &row))
	require.Equal(t, "ada@example.com", *row.CompletedBy)
	require.Contains(t, f.sink.actions(), ActionTaskCompleted)
	require.Equal(t, models.ActorClient, f.sink.entries[len(f.sink.entries)-1].ActorType)

	_, err = f.svc.UpdateTask(ctx, f.proj.PublicToken, f.public.ID, &PortalTaskUpdate{Status: strPtr("archived")})
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))
}

func TestPortalSignDocument(t *testing.T) {
	f := newPortalFixture(t)
	ctx := context.Background()
	sig := &models.Signature{ProjectID: f.proj.ID, Status: models.SignatureStatusPending}
	require.NoError(t, f.repos.Signatures.Create(ctx, sig))

	out, err := f.svc.SignDocument(ctx, f.proj.PublicToken, sig.ID, "Ada Lovelace")
	require.NoError(t, err)
	require.Equal(t, models.SignatureStatusSigned, out.Status)
	require.Equal(t, "Ada Lovelace", *out.SignerName)
	require.NotNil(t, out.SignedAt)
	require.Contains(t, f.sink.actions(), ActionDocumentSigned)

	_, err = f.svc.SignDocument(ctx, f.proj.PublicToken, sig.ID, "Ada Lovelace")
	require.True(t, appErr.IsCode(err, appErr.CodeConflict))

	declined := &models.Signature{ProjectID: f.proj.ID, Status: models.SignatureStatusDeclined}
	require.NoError(t, f.repos.Signatures.Create(ctx, declined))
	_, err = f.svc.SignDocument(ctx, f.proj.PublicToken, declined.ID, "Ada")
	require.True(t, appErr.IsCode(err, appErr.CodeConflict))

	_, err = f.svc.SignDocument(ctx, f.proj.PublicToken, sig.ID, " ")
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))
}

func TestPortalUploadAndDownloadFile(t *testing.T) {
	f := newPortalFixture(t)
	ctx := context.Background()

	meta, err := f.svc.UploadFile(ctx, f.proj.PublicToken, f.public.ID, &FileUpload{
		FileName:    "../tax form.pdf",
		ContentType: "application/pdf",
		Body:        strings.NewReader("%PDF-1.4 data"),
	})
	require.NoError(t, err)
	require.EqualValues(t, len("%PDF-1.4 data"), meta.SizeBytes)

	var row models.OnboardingFile
	require.NoError(t, f.repos.Files.GetByID(ctx, meta.ID, &row))
	require.True(t, strings.HasPrefix(row.StoragePath, f.proj.ID.String()+"/"))
	require.True(t, strings.HasSuffix(row.StoragePath, "-tax_form.pdf"))
	require.Len(t, row.Checksum, 64)
	require.Equal(t, models.ActorClient, row.UploaderType)
	require.Contains(t, f.sink.actions(), ActionFileUploaded)

	got, rc, err := f.svc.DownloadFile(ctx, f.proj.PublicToken, meta.ID)
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.4 data", string(b))
	require.Equal(t, meta.ID, got.ID)

	_, _, err = f.svc.DownloadFile(ctx, f.other.PublicToken, meta.ID)
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestPortalUploadBlobFailureIsUpstream(t *testing.T) {
	f := newPortalFixture(t)
	f.blobs.fail = errors.New("bucket unavailable")
	_, err := f.svc.UploadFile(context.Background(), f.proj.PublicToken, f.public.ID, &FileUpload{FileName: "a.txt", Body: strings.NewReader("x")})
	require.True(t, appErr.IsCode(err, appErr.CodeUpstream))
}

func TestPortalCommentsHideInternal(t *testing.T) {
	f := newPortalFixture(t)
	ctx := context.Background()
	staff := NewCommentService(f.repos, f.sink)
	_, err := staff.AddComment(ctx, f.proj.ID, &CommentInput{Content: "internal note", IsInternal: true}, Actor{Name: "ops@example.com", Type: models.ActorStaff})
	require.NoError(t, err)
	_, err = staff.AddComment(ctx, f.proj.ID, &CommentInput{Content: "welcome aboard"}, Actor{Name: "ops@example.com", Type: models.ActorStaff})
	require.NoError(t, err)

	added, err := f.svc.AddComment(ctx, f.proj.PublicToken, &PortalCommentInput{Content: "thanks", TaskID: &f.public.ID})
	require.NoError(t, err)
	require.Equal(t, models.ActorClient, added.AuthorType)
	require.Equal(t, "Ada Lovelace", added.AuthorName)

	list, err := f.svc.ListComments(ctx, f.proj.PublicToken)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, c := range list {
		require.NotEqual(t, "internal note", c.Content)
	}

	all, err := staff.ListComments(ctx, f.proj.ID)
	require.NoError(t, err)
	require.Len(t, all, 3)

	_, err = f.svc.AddComment(ctx, f.proj.PublicToken, &PortalCommentInput{Content: "x", TaskID: &f.hidden.ID})
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}
