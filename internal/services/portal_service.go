package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/onboardhub/engine/internal/models"
	"github.com/onboardhub/engine/internal/repository"
	appErr "github.com/onboardhub/engine/pkg/errors"
	"github.com/onboardhub/engine/pkg/logger"
	"github.com/onboardhub/engine/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PortalView is everything a client sees for one project. Only whitelisted fields are exposed.
type PortalView struct {
	Project    PortalProject     `json:"project"`
	Tasks      []PortalTask      `json:"tasks"`
	Stages     []StageProgress   `json:"stages"`
	Progress   int               `json:"progress"`
	Completed  int               `json:"completed"`
	Total      int               `json:"total"`
	Signatures []PortalSignature `json:"signatures"`
	Files      []PortalFile      `json:"files"`
}

type PortalProject struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Status        string     `json:"status"`
	ClientName    string     `json:"client_name"`
	ClientCompany string     `json:"client_company"`
	CommunityName *string    `json:"community_name"`
	StartDate     *time.Time `json:"start_date"`
	TargetDate    *time.Time `json:"target_date"`
}

type PortalTask struct {
	ID                 uuid.UUID              `json:"id"`
	Title              string                 `json:"title"`
	Description        string                 `json:"description"`
	OrderIndex         int                    `json:"order_index"`
	Category           string                 `json:"category"`
	Status             string                 `json:"status"`
	RequiresFileUpload bool                   `json:"requires_file_upload"`
	RequiresSignature  bool                   `json:"requires_signature"`
	DependsOn          *uuid.UUID             `json:"depends_on"`
	StageID            *uuid.UUID             `json:"stage_id"`
	DueDate            *time.Time             `json:"due_date"`
	CompletedAt        *time.Time             `json:"completed_at"`
	Checklist          []models.ChecklistItem `json:"checklist"`
	ClientNotes        *string                `json:"client_notes"`
}

type PortalSignature struct {
	ID           uuid.UUID  `json:"id"`
	DocumentID   *uuid.UUID `json:"document_id"`
	DocumentName *string    `json:"document_name"`
	TaskID       *uuid.UUID `json:"task_id"`
	Status       string     `json:"status"`
	SignerName   *string    `json:"signer_name"`
	SignedAt     *time.Time `json:"signed_at"`
}

type PortalFile struct {
	ID          uuid.UUID  `json:"id"`
	TaskID      *uuid.UUID `json:"task_id"`
	FileName    string     `json:"file_name"`
	ContentType string     `json:"content_type"`
	SizeBytes   int64      `json:"size_bytes"`
	CreatedAt   time.Time  `json:"created_at"`
}

type PortalComment struct {
	ID         uuid.UUID        `json:"id"`
	TaskID     *uuid.UUID       `json:"task_id"`
	AuthorName string           `json:"author_name"`
	AuthorType models.ActorType `json:"author_type"`
	Content    string           `json:"content"`
	CreatedAt  time.Time        `json:"created_at"`
}

// PortalTaskUpdate is the subset of task fields a client may change.
type PortalTaskUpdate struct {
	Status      *string
	Checklist   *[]models.ChecklistItem
	ClientNotes *string
}

type FileUpload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
	UploadedBy  string
}

type PortalCommentInput struct {
	TaskID     *uuid.UUID
	AuthorName string
	Content    string
}

type PortalService interface {
	GetView(ctx context.Context, token string) (*PortalView, error)
	UpdateTask(ctx context.Context, token string, taskID uuid.UUID, input *PortalTaskUpdate) (*PortalTask, error)
	UploadFile(ctx context.Context, token string, taskID uuid.UUID, upload *FileUpload) (*PortalFile, error)
	DownloadFile(ctx context.Context, token string, fileID uuid.UUID) (*PortalFile, io.ReadCloser, error)
	SignDocument(ctx context.Context, token string, signatureID uuid.UUID, signerName string) (*PortalSignature, error)
	ListComments(ctx context.Context, token string) ([]PortalComment, error)
	AddComment(ctx context.Context, token string, input *PortalCommentInput) (*PortalComment, error)
}

type portalService struct {
	gate     AccessGate
	repos    *repository.Set
	tasks    TaskService
	blobs    BlobStore
	activity ActivitySink
	now      func() time.Time
}

func NewPortalService(gate AccessGate, repos *repository.Set, tasks TaskService, blobs BlobStore, activity ActivitySink) PortalService {
	if activity == nil {
		activity = NopSink{}
	}
	return &portalService{gate: gate, repos: repos, tasks: tasks, blobs: blobs, activity: activity, now: time.Now}
}

var _ PortalService = (*portalService)(nil)

func (s *portalService) GetView(ctx context.Context, token string) (*PortalView, error) {
	p, err := s.gate.AuthenticatePortal(ctx, token)
	if err != nil {
		return nil, err
	}
	logger.L().Info("portal view", zap.String("project_id", p.ID.String()))

	var (
		external   []models.Task
		all        []models.Task
		stages     []models.Stage
		signatures []models.Signature
		files      []models.OnboardingFile
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		external, err = s.repos.Tasks.ListExternalByProject(gctx, p.ID)
		return err
	})
	g.Go(func() (err error) {
		all, err = s.repos.Tasks.ListStageCountRows(gctx, p.ID)
		return err
	})
	g.Go(func() (err error) {
		stages, err = s.repos.Stages.ListByProject(gctx, p.ID)
		return err
	})
	g.Go(func() (err error) {
		signatures, err = s.repos.Signatures.Find(gctx, repository.Query{
			Filters: []repository.Filter{
				repository.Eq("project_id", p.ID),
				repository.Neq("status", models.SignatureStatusDeclined),
			},
			Order: "created_at ASC",
		})
		return err
	})
	g.Go(func() (err error) {
		files, err = s.repos.Files.Find(gctx, repository.Query{
			Filters: []repository.Filter{repository.Eq("project_id", p.ID)},
			Order:   "created_at DESC",
		})
		return err
	})
	if err := g.Wait(); err != nil {
		logger.L().Error("portal view load failed", zap.String("project_id", p.ID.String()), zap.Error(err))
		return nil, err
	}

	docNames, err := s.documentNames(ctx, p.ID, signatures)
	if err != nil {
		return nil, err
	}

	progress := ComputeProjectProgress(external)
	view := &PortalView{
		Project:    portalProject(p),
		Tasks:      make([]PortalTask, 0, len(external)),
		Stages:     computeStages(stages, all),
		Progress:   progress.Percent,
		Completed:  progress.Completed,
		Total:      progress.Total,
		Signatures: make([]PortalSignature, 0, len(signatures)),
		Files:      make([]PortalFile, 0, len(files)),
	}
	visible := make(map[uuid.UUID]bool, len(external))
	for i := range external {
		visible[external[i].ID] = true
	}
	for i := range external {
		t := portalTask(&external[i])
		if t.DependsOn != nil && !visible[*t.DependsOn] {
			t.DependsOn = nil
		}
		view.Tasks = append(view.Tasks, t)
	}
	for i := range signatures {
		view.Signatures = append(view.Signatures, portalSignature(&signatures[i], docNames))
	}
	for i := range files {
		view.Files = append(view.Files, portalFile(&files[i]))
	}
	return view, nil
}

// documentNames builds a document id to name map for the given signatures.
// Only documents owned by projectID or shared library documents are named.
func (s *portalService) documentNames(ctx context.Context, projectID uuid.UUID, sigs []models.Signature) (map[uuid.UUID]string, error) {
	ids := make([]uuid.UUID, 0, len(sigs))
	seen := map[uuid.UUID]bool{}
	for _, sig := range sigs {
		if sig.DocumentID != nil && !seen[*sig.DocumentID] {
			seen[*sig.DocumentID] = true
			ids = append(ids, *sig.DocumentID)
		}
	}
	names := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	docs, err := s.repos.Documents.Find(ctx, repository.Query{
		Filters: []repository.Filter{repository.In("id", ids)},
		Select:  []string{"id", "project_id", "name"},
	})
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		if d.ProjectID != nil && *d.ProjectID != projectID {
			logger.L().Warn("signature references foreign document",
				zap.String("project_id", projectID.String()),
				zap.String("document_id", d.ID.String()))
			continue
		}
		names[d.ID] = d.Name
	}
	return names, nil
}

func portalProject(p *models.Project) PortalProject {
	return PortalProject{
		ID:            p.ID,
		Name:          p.Name,
		Status:        p.Status,
		ClientName:    p.ClientName,
		ClientCompany: p.ClientCompany,
		CommunityName: p.CommunityName,
		StartDate:     p.StartDate,
		TargetDate:    p.TargetDate,
	}
}

func portalTask(t *models.Task) PortalTask {
	checklist := []models.ChecklistItem(t.Checklist)
	if checklist == nil {
		checklist = []models.ChecklistItem{}
	}
	return PortalTask{
		ID:                 t.ID,
		Title:              t.Title,
		Description:        t.Description,
		OrderIndex:         t.OrderIndex,
		Category:           t.Category,
		Status:             t.Status,
		RequiresFileUpload: t.RequiresFileUpload,
		RequiresSignature:  t.RequiresSignature,
		DependsOn:          t.DependsOn,
		StageID:            t.StageID,
		DueDate:            t.DueDate,
		CompletedAt:        t.CompletedAt,
		Checklist:          checklist,
		ClientNotes:        t.ClientNotes,
	}
}

func portalSignature(sig *models.Signature, names map[uuid.UUID]string) PortalSignature {
	out := PortalSignature{
		ID:         sig.ID,
		DocumentID: sig.DocumentID,
		TaskID:     sig.TaskID,
		Status:     sig.Status,
		SignerName: sig.SignerName,
		SignedAt:   sig.SignedAt,
	}
	if sig.DocumentID != nil {
		if name, ok := names[*sig.DocumentID]; ok {
			out.DocumentName = &name
		}
	}
	return out
}

func portalFile(f *models.OnboardingFile) PortalFile {
	return PortalFile{
		ID:          f.ID,
		TaskID:      f.TaskID,
		FileName:    f.FileName,
		ContentType: f.ContentType,
		SizeBytes:   f.SizeBytes,
		CreatedAt:   f.CreatedAt,
	}
}

func portalComment(c *models.Comment) PortalComment {
	return PortalComment{
		ID:         c.ID,
		TaskID:     c.TaskID,
		AuthorName: c.AuthorName,
		AuthorType: c.AuthorType,
		Content:    c.Content,
		CreatedAt:  c.CreatedAt,
	}
}

func (s *portalService) UpdateTask(ctx context.Context, token string, taskID uuid.UUID, input *PortalTaskUpdate) (*PortalTask, error) {
	if input == nil || (input.Status == nil && input.Checklist == nil && input.ClientNotes == nil) {
		return nil, appErr.Invalid("no fields to update")
	}
	if input.Status != nil && *input.Status != models.TaskStatusCompleted && *input.Status != models.TaskStatusPending {
		return nil, appErr.Invalid("status must be completed or pending")
	}
	p, t, err := s.gate.TaskForPortal(ctx, token, taskID)
	if err != nil {
		return nil, err
	}
	actor := ClientActor
	if p.ClientEmail != nil && *p.ClientEmail != "" {
		actor.Name = *p.ClientEmail
	}
	updated, err := s.tasks.UpdateTask(ctx, p.ID, t.ID, &UpdateTaskInput{
		Status:      input.Status,
		Checklist:   input.Checklist,
		ClientNotes: input.ClientNotes,
	}, actor)
	if err != nil {
		return nil, err
	}
	out := portalTask(updated)
	if out.DependsOn != nil {
		n, err := s.repos.Tasks.Count(ctx,
			repository.Eq("id", *out.DependsOn),
			repository.Eq("project_id", p.ID),
			repository.Eq("visibility", models.VisibilityExternal))
		if err != nil {
			return nil, err
		}
		if n == 0 {
			out.DependsOn = nil
		}
	}
	return &out, nil
}

// blobPath is <project_id>/<uuid>-<filename>.
func blobPath(projectID uuid.UUID, fileName string) string {
	return fmt.Sprintf("%s/%s-%s", projectID, uuid.NewString(), sanitizeFileName(fileName))
}

func sanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r == '.' || r == '-' || r == '_':
			return r
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		}
		return '_'
	}, name)
	if name == "" || name == "." || name == ".." {
		return "file"
	}
	return name
}

func (s *portalService) UploadFile(ctx context.Context, token string, taskID uuid.UUID, upload *FileUpload) (*PortalFile, error) {
	if upload == nil || upload.Body == nil || strings.TrimSpace(upload.FileName) == "" {
		return nil, appErr.Invalid("file is required")
	}
	if s.blobs == nil {
		return nil, appErr.New(appErr.CodeUpstream, "file storage not configured")
	}
	p, t, err := s.gate.TaskForPortal(ctx, token, taskID)
	if err != nil {
		return nil, err
	}
	contentType := upload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	hasher := utils.NewSHA256Writer()
	body := io.TeeReader(upload.Body, hasher)

	storagePath := blobPath(p.ID, upload.FileName)
	stored, err := s.blobs.Upload(ctx, storagePath, body, upload.Size, contentType)
	if err != nil {
		logger.L().Error("blob upload failed", zap.String("project_id", p.ID.String()), zap.String("path", storagePath), zap.Error(err))
		return nil, appErr.Wrap(err, appErr.CodeUpstream, "file upload failed")
	}
	uploadedBy := upload.UploadedBy
	if uploadedBy == "" {
		uploadedBy = p.ClientName
	}
	tid := t.ID
	f := &models.OnboardingFile{
		ProjectID:    p.ID,
		TaskID:       &tid,
		FileName:     upload.FileName,
		StoragePath:  stored,
		ContentType:  contentType,
		SizeBytes:    hasher.Size(),
		Checksum:     hasher.Sum(),
		UploadedBy:   uploadedBy,
		UploaderType: models.ActorClient,
	}
	if err := s.repos.Files.Create(ctx, f); err != nil {
		return nil, err
	}
	s.activity.Append(ctx, NewActivityEntry(p.ID, &tid, Actor{Name: uploadedBy, Type: models.ActorClient}, ActionFileUploaded, map[string]any{
		"file_id":   f.ID.String(),
		"file_name": f.FileName,
		"size":      f.SizeBytes,
	}))
	logger.L().Info("portal file uploaded", zap.String("project_id", p.ID.String()), zap.String("file_id", f.ID.String()), zap.Int64("size", f.SizeBytes))
	out := portalFile(f)
	return &out, nil
}

func (s *portalService) DownloadFile(ctx context.Context, token string, fileID uuid.UUID) (*PortalFile, io.ReadCloser, error) {
	if s.blobs == nil {
		return nil, nil, appErr.New(appErr.CodeUpstream, "file storage not configured")
	}
	_, f, err := s.gate.FileForPortal(ctx, token, fileID)
	if err != nil {
		return nil, nil, err
	}
	rc, _, err := s.blobs.Download(ctx, f.StoragePath)
	if err != nil {
		logger.L().Error("blob download failed", zap.String("file_id", f.ID.String()), zap.Error(err))
		return nil, nil, appErr.Wrap(err, appErr.CodeUpstream, "file download failed")
	}
	out := portalFile(f)
	return &out, rc, nil
}

func (s *portalService) SignDocument(ctx context.Context, token string, signatureID uuid.UUID, signerName string) (*PortalSignature, error) {
	signerName = strings.TrimSpace(signerName)
	if signerName == "" {
		return nil, appErr.Invalid("signer_name is required")
	}
	p, sig, err := s.gate.SignatureForPortal(ctx, token, signatureID)
	if err != nil {
		return nil, err
	}
	if sig.Status != models.SignatureStatusPending {
		return nil, appErr.Newf(appErr.CodeConflict, "signature is %s", sig.Status)
	}
	now := s.now().UTC()
	n, err := s.repos.Signatures.UpdateWhere(ctx,
		[]repository.Filter{
			repository.Eq("id", sig.ID),
			repository.Eq("project_id", p.ID),
			repository.Eq("status", models.SignatureStatusPending),
		},
		map[string]any{"status": models.SignatureStatusSigned, "signer_name": signerName, "signed_at": now})
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, appErr.Conflict("signature is no longer pending")
	}
	sig.Status = models.SignatureStatusSigned
	sig.SignerName = &signerName
	sig.SignedAt = &now

	names, err := s.documentNames(ctx, p.ID, []models.Signature{*sig})
	if err != nil {
		return nil, err
	}
	s.activity.Append(ctx, NewActivityEntry(p.ID, sig.TaskID, Actor{Name: signerName, Type: models.ActorClient}, ActionDocumentSigned, map[string]any{
		"signature_id": sig.ID.String(),
	}))
	logger.L().Info("document signed", zap.String("project_id", p.ID.String()), zap.String("signature_id", sig.ID.String()))
	out := portalSignature(sig, names)
	return &out, nil
}

func (s *portalService) ListComments(ctx context.Context, token string) ([]PortalComment, error) {
	p, err := s.gate.AuthenticatePortal(ctx, token)
	if err != nil {
		return nil, err
	}
	rows, err := s.repos.Comments.Find(ctx, repository.Query{
		Filters: []repository.Filter{repository.Eq("project_id", p.ID), repository.Eq("is_internal", false)},
		Order:   "created_at ASC",
	})
	if err != nil {
		return nil, err
	}
	out := make([]PortalComment, 0, len(rows))
	for i := range rows {
		out = append(out, portalComment(&rows[i]))
	}
	return out, nil
}

func (s *portalService) AddComment(ctx context.Context, token string, input *PortalCommentInput) (*PortalComment, error) {
	if input == nil || strings.TrimSpace(input.Content) == "" {
		return nil, appErr.Invalid("content is required")
	}
	var (
		p   *models.Project
		err error
	)
	if input.TaskID != nil {
		p, _, err = s.gate.TaskForPortal(ctx, token, *input.TaskID)
	} else {
		p, err = s.gate.AuthenticatePortal(ctx, token)
	}
	if err != nil {
		return nil, err
	}
	author := strings.TrimSpace(input.AuthorName)
	if author == "" {
		author = p.ClientName
	}
	c := &models.Comment{
		ProjectID:  p.ID,
		TaskID:     input.TaskID,
		AuthorName: author,
		AuthorType: models.ActorClient,
		Content:    strings.TrimSpace(input.Content),
		IsInternal: false,
	}
	if err := s.repos.Comments.Create(ctx, c); err != nil {
		return nil, err
	}
	s.activity.Append(ctx, NewActivityEntry(p.ID, input.TaskID, Actor{Name: author, Type: models.ActorClient}, ActionCommentAdded, map[string]any{"comment_id": c.ID.String()}))
	out := portalComment(c)
	return &out, nil
}
