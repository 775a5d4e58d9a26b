package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Document is a signable document. ProjectID is nil for library documents shared across projects.
type Document struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID   *uuid.UUID `gorm:"type:uuid;index" json:"project_id,omitempty"`
	Name        string     `gorm:"not null" json:"name"`
	StoragePath string     `json:"storage_path"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (d *Document) BeforeCreate(tx *gorm.DB) error {
	ensureID(&d.ID)
	return nil
}

// Signature tracks a signing request for a project.
type Signature struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID     uuid.UUID  `gorm:"type:uuid;index;not null" json:"project_id"`
	DocumentID    *uuid.UUID `gorm:"type:uuid" json:"document_id"`
	TaskID        *uuid.UUID `gorm:"type:uuid" json:"task_id"`
	Status        string     `gorm:"type:varchar(32);not null;default:pending;index" json:"status"`
	SignerName    *string    `json:"signer_name"`
	SignedAt      *time.Time `json:"signed_at"`
	SignedPDFPath *string    `json:"signed_pdf_path"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (s *Signature) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// OnboardingFile is metadata for an uploaded blob.
type OnboardingFile struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID    uuid.UUID  `gorm:"type:uuid;index;not null" json:"project_id"`
	TaskID       *uuid.UUID `gorm:"type:uuid;index" json:"task_id"`
	FileName     string     `gorm:"not null" json:"file_name"`
	StoragePath  string     `gorm:"not null" json:"storage_path"`
	ContentType  string     `json:"content_type"`
	SizeBytes    int64      `json:"size_bytes"`
	Checksum     string     `gorm:"type:varchar(64)" json:"checksum"`
	UploadedBy   string     `json:"uploaded_by"`
	UploaderType ActorType  `gorm:"type:varchar(16)" json:"uploader_type"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (OnboardingFile) TableName() string { return "files" }

func (f *OnboardingFile) BeforeCreate(tx *gorm.DB) error {
	ensureID(&f.ID)
	return nil
}
