package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/onboardhub/engine/internal/models"
)

type TokenRequest struct {
	Secret string `json:"secret" validate:"required"`
}

type ProjectCreateRequest struct {
	Name          string     `json:"name" validate:"required,max=200"`
	ClientName    string     `json:"client_name" validate:"required,max=200"`
	ClientEmail   string     `json:"client_email" validate:"omitempty,email"`
	ClientCompany string     `json:"client_company"`
	ClientPhone   string     `json:"client_phone"`
	CommunityName *string    `json:"community_name"`
	TemplateID    *uuid.UUID `json:"template_id"`
	StartDate     *time.Time `json:"start_date"`
	TargetDate    *time.Time `json:"target_date"`
	SendInvite    bool       `json:"send_invite"`
}

type ProjectUpdateRequest struct {
	Name          *string    `json:"name" validate:"omitempty,min=1,max=200"`
	Status        *string    `json:"status" validate:"omitempty,min=1,max=32"`
	ClientName    *string    `json:"client_name" validate:"omitempty,min=1"`
	ClientEmail   *string    `json:"client_email" validate:"omitempty,email"`
	ClientCompany *string    `json:"client_company"`
	ClientPhone   *string    `json:"client_phone"`
	CommunityName *string    `json:"community_name"`
	TargetDate    *time.Time `json:"target_date"`
}

// DealRequest is the CRM webhook payload for a closed deal.
type DealRequest struct {
	DealID        string     `json:"deal_id" validate:"required"`
	Name          string     `json:"name" validate:"required"`
	ClientName    string     `json:"client_name" validate:"required"`
	ClientEmail   string     `json:"client_email" validate:"required,email"`
	ClientCompany string     `json:"client_company"`
	ClientPhone   string     `json:"client_phone"`
	TemplateID    *uuid.UUID `json:"template_id"`
	StartDate     *time.Time `json:"start_date"`
	SendInvite    bool       `json:"send_invite"`
}

type TemplateCreateRequest struct {
	Name          string `json:"name" validate:"required,max=200"`
	Description   string `json:"description"`
	EstimatedDays int    `json:"estimated_days" validate:"gte=0"`
}

type StageCreateRequest struct {
	Name       string `json:"name" validate:"required"`
	OrderIndex int    `json:"order_index" validate:"gte=0"`
}

type TemplateTaskCreateRequest struct {
	Title              string     `json:"title" validate:"required"`
	Description        string     `json:"description"`
	OrderIndex         int        `json:"order_index" validate:"gte=0"`
	Visibility         string     `json:"visibility" validate:"omitempty,oneof=internal external"`
	AssigneeType       string     `json:"assignee_type"`
	Category           string     `json:"category"`
	RequiresFileUpload bool       `json:"requires_file_upload"`
	RequiresSignature  bool       `json:"requires_signature"`
	DependsOn          *uuid.UUID `json:"depends_on"`
	StageID            *uuid.UUID `json:"stage_id"`
	DueDaysOffset      *int       `json:"due_days_offset" validate:"omitempty,gte=0"`
}

type InstantiateRequest struct {
	ProjectID uuid.UUID  `json:"project_id" validate:"required"`
	StartDate *time.Time `json:"start_date"`
}

type TaskCreateRequest struct {
	Title              string                 `json:"title" validate:"required"`
	Description        string                 `json:"description"`
	OrderIndex         int                    `json:"order_index" validate:"gte=0"`
	Visibility         string                 `json:"visibility" validate:"omitempty,oneof=internal external"`
	AssigneeType       string                 `json:"assignee_type"`
	AssigneeEmail      *string                `json:"assignee_email" validate:"omitempty,email"`
	Category           string                 `json:"category"`
	RequiresFileUpload bool                   `json:"requires_file_upload"`
	RequiresSignature  bool                   `json:"requires_signature"`
	DependsOn          *uuid.UUID             `json:"depends_on"`
	StageID            *uuid.UUID             `json:"stage_id"`
	DueDate            *time.Time             `json:"due_date"`
	Checklist          []models.ChecklistItem `json:"checklist"`
}

type TaskUpdateRequest struct {
	Title         *string                 `json:"title" validate:"omitempty,min=1"`
	Description   *string                 `json:"description"`
	Status        *string                 `json:"status" validate:"omitempty,min=1,max=32"`
	Visibility    *string                 `json:"visibility" validate:"omitempty,oneof=internal external"`
	AssigneeEmail *string                 `json:"assignee_email" validate:"omitempty,email"`
	Category      *string                 `json:"category"`
	OrderIndex    *int                    `json:"order_index" validate:"omitempty,gte=0"`
	StageID       *uuid.UUID              `json:"stage_id"`
	DueDate       *time.Time              `json:"due_date"`
	Checklist     *[]models.ChecklistItem `json:"checklist"`
	ClientNotes   *string                 `json:"client_notes"`
}

type BulkTasksRequest struct {
	TaskIDs []uuid.UUID `json:"task_ids" validate:"required,min=1,max=500"`
}

type ReorderItemRequest struct {
	ID         uuid.UUID `json:"id" validate:"required"`
	OrderIndex *int      `json:"order_index"`
}

type ReorderRequest struct {
	Items []ReorderItemRequest `json:"items" validate:"required,min=1,max=500,dive"`
}

type TagCreateRequest struct {
	Name  string `json:"name" validate:"required,max=64"`
	Color string `json:"color"`
}

type CommentCreateRequest struct {
	TaskID     *uuid.UUID `json:"task_id"`
	AuthorName string     `json:"author_name"`
	Content    string     `json:"content" validate:"required,max=10000"`
	IsInternal bool       `json:"is_internal"`
}

type PortalTaskUpdateRequest struct {
	Status      *string                 `json:"status" validate:"omitempty,oneof=pending completed"`
	Checklist   *[]models.ChecklistItem `json:"checklist"`
	ClientNotes *string                 `json:"client_notes" validate:"omitempty,max=10000"`
}

type PortalCommentRequest struct {
	TaskID     *uuid.UUID `json:"task_id"`
	AuthorName string     `json:"author_name"`
	Content    string     `json:"content" validate:"required,max=10000"`
}

type SignRequest struct {
	SignerName string `json:"signer_name" validate:"required,max=200"`
}
