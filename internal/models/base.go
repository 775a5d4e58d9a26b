package models

import "github.com/google/uuid"

// ActorType classifies who performed an action recorded in the activity log.
type ActorType string

const (
	ActorSystem ActorType = "system"
	ActorStaff  ActorType = "staff"
	ActorClient ActorType = "client"
	ActorCRM    ActorType = "crm"
)

// Valid reports whether a is one of the known actor types.
func (a ActorType) Valid() bool {
	switch a {
	case ActorSystem, ActorStaff, ActorClient, ActorCRM:
		return true
	}
	return false
}

// Label is the actor string used when no explicit actor name is supplied.
func (a ActorType) Label() string {
	if !a.Valid() {
		return string(ActorSystem)
	}
	return string(a)
}

const (
	VisibilityInternal = "internal"
	VisibilityExternal = "external"

	TaskStatusPending   = "pending"
	TaskStatusCompleted = "completed"

	ProjectStatusActive    = "active"
	ProjectStatusCompleted = "completed"

	StageStatusPending = "pending"

	SignatureStatusPending  = "pending"
	SignatureStatusSigned   = "signed"
	SignatureStatusDeclined = "declined"
)

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
