package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Template is a reusable blueprint of stages and tasks.
type Template struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string    `gorm:"not null" json:"name"`
	Description   string    `gorm:"type:text" json:"description"`
	EstimatedDays int       `json:"estimated_days"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (t *Template) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

// Stage groups tasks into a phase. Exactly one of TemplateID and ProjectID is set.
type Stage struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TemplateID *uuid.UUID `gorm:"type:uuid;index" json:"template_id,omitempty"`
	ProjectID  *uuid.UUID `gorm:"type:uuid;index" json:"project_id,omitempty"`
	Name       string     `gorm:"not null" json:"name"`
	OrderIndex int        `gorm:"not null;default:0" json:"order_index"`
	Status     string     `gorm:"type:varchar(32);not null;default:pending" json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (s *Stage) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// TemplateTask is a task definition owned by a template. DependsOn and StageID
// reference rows of the same template.
type TemplateTask struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TemplateID         uuid.UUID  `gorm:"type:uuid;index;not null" json:"template_id"`
	Title              string     `gorm:"not null" json:"title"`
	Description        string     `gorm:"type:text" json:"description"`
	OrderIndex         int        `gorm:"not null;default:0" json:"order_index"`
	Visibility         string     `gorm:"type:varchar(16);not null;default:internal" json:"visibility"`
	AssigneeType       string     `gorm:"type:varchar(32)" json:"assignee_type"`
	Category           string     `gorm:"type:varchar(64)" json:"category"`
	RequiresFileUpload bool       `gorm:"not null;default:false" json:"requires_file_upload"`
	RequiresSignature  bool       `gorm:"not null;default:false" json:"requires_signature"`
	DependsOn          *uuid.UUID `gorm:"type:uuid" json:"depends_on"`
	StageID            *uuid.UUID `gorm:"type:uuid;index" json:"stage_id"`
	DueDaysOffset      *int       `json:"due_days_offset"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (t *TemplateTask) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
