package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Comment is a note on a project or task. Internal comments are staff-only.
type Comment struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID  uuid.UUID  `gorm:"type:uuid;index;not null" json:"project_id"`
	TaskID     *uuid.UUID `gorm:"type:uuid;index" json:"task_id"`
	AuthorName string     `json:"author_name"`
	AuthorType ActorType  `gorm:"type:varchar(16);not null" json:"author_type"`
	Content    string     `gorm:"type:text;not null" json:"content"`
	IsInternal bool       `gorm:"not null;default:false" json:"is_internal"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// ActivityLog is an append-only audit entry.
type ActivityLog struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID *uuid.UUID        `gorm:"type:uuid;index" json:"project_id"`
	TaskID    *uuid.UUID        `gorm:"type:uuid" json:"task_id"`
	Actor     string            `gorm:"not null" json:"actor"`
	ActorType ActorType         `gorm:"type:varchar(16);not null" json:"actor_type"`
	Action    string            `gorm:"type:varchar(64);not null;index" json:"action"`
	Details   datatypes.JSONMap `json:"details"`
	CreatedAt time.Time         `gorm:"index" json:"created_at"`
}

func (ActivityLog) TableName() string { return "activity_log" }

func (a *ActivityLog) BeforeCreate(tx *gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

// All returns every model for AutoMigrate.
func All() []any {
	return []any{
		&Project{},
		&Tag{},
		&ProjectTag{},
		&Template{},
		&Stage{},
		&TemplateTask{},
		&Task{},
		&Document{},
		&Signature{},
		&OnboardingFile{},
		&Comment{},
		&ActivityLog{},
	}
}
