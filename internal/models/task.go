package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ChecklistItem is one ordered sub-item of a task.
type ChecklistItem struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Done  bool   `json:"done"`
}

// Task is a unit of work inside a project. CompletedAt and CompletedBy are set
// when the status moves to completed.
type Task struct {
	ID                 uuid.UUID                          `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID          uuid.UUID                          `gorm:"type:uuid;index;not null" json:"project_id"`
	TemplateTaskID     *uuid.UUID                         `gorm:"type:uuid" json:"template_task_id,omitempty"`
	Title              string                             `gorm:"not null" json:"title"`
	Description        string                             `gorm:"type:text" json:"description"`
	OrderIndex         int                                `gorm:"not null;default:0;index" json:"order_index"`
	Visibility         string                             `gorm:"type:varchar(16);not null;default:internal;index" json:"visibility"`
	AssigneeType       string                             `gorm:"type:varchar(32)" json:"assignee_type"`
	AssigneeEmail      *string                            `json:"assignee_email,omitempty"`
	Category           string                             `gorm:"type:varchar(64)" json:"category"`
	RequiresFileUpload bool                               `gorm:"not null;default:false" json:"requires_file_upload"`
	RequiresSignature  bool                               `gorm:"not null;default:false" json:"requires_signature"`
	DependsOn          *uuid.UUID                         `gorm:"type:uuid" json:"depends_on"`
	StageID            *uuid.UUID                         `gorm:"type:uuid;index" json:"stage_id"`
	Status             string                             `gorm:"type:varchar(32);not null;default:pending;index" json:"status"`
	CompletedAt        *time.Time                         `json:"completed_at"`
	CompletedBy        *string                            `json:"completed_by"`
	DueDate            *time.Time                         `gorm:"index" json:"due_date"`
	Checklist          datatypes.JSONSlice[ChecklistItem] `json:"checklist"`
	ClientNotes        *string                            `gorm:"type:text" json:"client_notes"`
	CreatedAt          time.Time                          `json:"created_at"`
	UpdatedAt          time.Time                          `json:"updated_at"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
