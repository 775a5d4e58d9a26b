package repository

import (
	"github.com/onboardhub/engine/internal/models"
	"gorm.io/gorm"
)

type SignatureRepository interface {
	BaseRepository[models.Signature]
}

type DocumentRepository interface {
	BaseRepository[models.Document]
}

type FileRepository interface {
	BaseRepository[models.OnboardingFile]
}

type CommentRepository interface {
	BaseRepository[models.Comment]
}

type TagRepository interface {
	BaseRepository[models.Tag]
}

type ActivityRepository interface {
	BaseRepository[models.ActivityLog]
}

// Set bundles every collection repository over one database handle.
type Set struct {
	Projects      ProjectRepository
	ProjectTags   ProjectTagRepository
	Tags          TagRepository
	Templates     TemplateRepository
	Stages        StageRepository
	TemplateTasks TemplateTaskRepository
	Tasks         TaskRepository
	Signatures    SignatureRepository
	Documents     DocumentRepository
	Files         FileRepository
	Comments      CommentRepository
	Activity      ActivityRepository
}

func NewSet(db *gorm.DB) *Set {
	return &Set{
		Projects:      NewProjectRepository(db),
		ProjectTags:   NewProjectTagRepository(db),
		Tags:          NewBaseRepository[models.Tag](db, "tag"),
		Templates:     NewTemplateRepository(db),
		Stages:        NewStageRepository(db),
		TemplateTasks: NewTemplateTaskRepository(db),
		Tasks:         NewTaskRepository(db),
		Signatures:    NewBaseRepository[models.Signature](db, "signature"),
		Documents:     NewBaseRepository[models.Document](db, "document"),
		Files:         NewBaseRepository[models.OnboardingFile](db, "file"),
		Comments:      NewBaseRepository[models.Comment](db, "comment"),
		Activity:      NewBaseRepository[models.ActivityLog](db, "activity log"),
	}
}
