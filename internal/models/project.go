package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Project is one client onboarding engagement.
type Project struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string     `gorm:"not null" json:"name"`
	Status        string     `gorm:"type:varchar(32);index;not null;default:active" json:"status"`
	ClientName    string     `json:"client_name"`
	ClientEmail   *string    `gorm:"index" json:"client_email"`
	ClientCompany string     `json:"client_company"`
	ClientPhone   string     `json:"client_phone"`
	CommunityName *string    `json:"community_name,omitempty"`
	PublicToken   string     `gorm:"uniqueIndex;not null" json:"public_token"`
	SourceDealID  *string    `gorm:"uniqueIndex" json:"source_deal_id,omitempty"`
	TemplateID    *uuid.UUID `gorm:"type:uuid;index" json:"template_id,omitempty"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	TargetDate    *time.Time `json:"target_date,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// Tag labels projects; assignment goes through ProjectTag.
type Tag struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	Color     string    `gorm:"type:varchar(16)" json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

func (t *Tag) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

// ProjectTag is the join row between projects and tags.
type ProjectTag struct {
	ProjectID uuid.UUID `gorm:"type:uuid;primaryKey" json:"project_id"`
	TagID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"tag_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (ProjectTag) TableName() string { return "project_tags" }
