package services

import "github.com/onboardhub/engine/internal/models"

// Actor identifies who is performing a mutation.
type Actor struct {
	Name string
	Type models.ActorType
}

var (
	SystemActor = Actor{Type: models.ActorSystem}
	ClientActor = Actor{Type: models.ActorClient}
)

// Label is the string written to activity entries.
func (a Actor) Label() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Type.Label()
}

func (a Actor) actorType() models.ActorType {
	if !a.Type.Valid() {
		return models.ActorSystem
	}
	return a.Type
}
