// Package domain holds the records and naming conventions shared by the
// constructum server, the in-cluster client, and the state store.
package domain

import (
	"github.com/google/uuid"
)

// Repository is a registered source repository on the git server.
type Repository struct {
	ID uuid.UUID

	// ExternalID is the repository's id on the git server. Unique.
	ExternalID int64

	URL   string
	Owner string
	Name  string

	// WebhookID is the id of the push webhook registered on the git
	// server, or nil after a soft delete.
	WebhookID *int64

	// Enabled is false after a soft delete. Disabled repositories admit
	// no new pipelines.
	Enabled bool

	// BuildSeq is the sequence number assigned to the most recently
	// admitted pipeline of this repository.
	BuildSeq int
}

// Pipeline is one end-to-end CI run ("job") triggered by a push.
type Pipeline struct {
	ID           uuid.UUID
	Seq          int
	RepositoryID uuid.UUID
	Commit       string
	Finished     bool
	Status       PipelineStatus
}

// Step is one stage of a pipeline, executed as a single cluster workload.
type Step struct {
	ID         uuid.UUID
	PipelineID uuid.UUID

	// Ordinal is the zero-based position of the step in its pipeline.
	// Steps execute in strictly increasing ordinal order.
	Ordinal int

	Name     string
	Image    string
	Commands []string
	Status   StepStatus

	// LogKeys are object store keys of the step's archived pod logs.
	// Append-only.
	LogKeys []string
}
