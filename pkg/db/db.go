// Package db declares the state store interfaces of constructum.
//
// The control plane holds no pipeline state in memory; everything an
// operator or the recovery loop may need to observe lives behind these
// interfaces.
package db

import (
	"context"

	"github.com/google/uuid"

	"github.com/constructum-ci/constructum/pkg/domain"
)

type RepositoryInterface interface {
	// Register records a repository enabled for pipeline admission.
	//
	// Returns the stored record, with its id assigned.
	Register(ctx context.Context, repo domain.Repository) (domain.Repository, error)

	Get(ctx context.Context, id uuid.UUID) (domain.Repository, error)

	// GetByExternalID finds a repository by its id on the git server.
	GetByExternalID(ctx context.Context, externalID int64) (domain.Repository, error)

	List(ctx context.Context) ([]domain.Repository, error)

	// Disable soft-deletes a repository: it stays queryable with its
	// pipeline history, but admits no new pipelines. The stored webhook
	// id is cleared; removing the webhook on the git server is the
	// caller's business.
	//
	// Returns the record as it was before disabling, so the caller can
	// still reach its webhook.
	Disable(ctx context.Context, id uuid.UUID) (domain.Repository, error)
}

type PipelineInterface interface {
	// Admit creates a pipeline record for a push to the repository.
	//
	// The repository row is locked for the duration, so the assigned
	// per-repository sequence number is unique and gapless even under
	// concurrent pushes. A disabled repository admits nothing
	// (ErrDisabled).
	Admit(ctx context.Context, repositoryID uuid.UUID, commit string) (domain.Pipeline, error)

	Get(ctx context.Context, id uuid.UUID) (domain.Pipeline, error)

	List(ctx context.Context) ([]domain.Pipeline, error)

	// ListForRepository returns the repository's pipelines, oldest
	// first.
	ListForRepository(ctx context.Context, repositoryID uuid.UUID) ([]domain.Pipeline, error)

	// ListUnfinished returns pipelines not yet in a terminal state,
	// oldest first. The recovery loop feeds on this.
	ListUnfinished(ctx context.Context) ([]domain.Pipeline, error)

	// Finish moves the pipeline to a terminal status and marks it
	// finished. status must be terminal.
	Finish(ctx context.Context, id uuid.UUID, status domain.PipelineStatus) error
}

type StepInterface interface {
	// CreateBatch inserts all steps of a pipeline in one transaction,
	// preserving their ordinals.
	CreateBatch(ctx context.Context, steps []domain.Step) error

	Get(ctx context.Context, id uuid.UUID) (domain.Step, error)

	// ListForPipeline returns the pipeline's steps in ordinal order.
	ListForPipeline(ctx context.Context, pipelineID uuid.UUID) ([]domain.Step, error)

	SetStatus(ctx context.Context, id uuid.UUID, status domain.StepStatus) error

	// AppendLogKeys appends archive keys to the step's log key list.
	// Existing keys are never rewritten.
	AppendLogKeys(ctx context.Context, id uuid.UUID, keys ...string) error
}

// Stores bundles the state store interfaces the server hands around.
type Stores struct {
	Repositories RepositoryInterface
	Pipelines    PipelineInterface
	Steps        StepInterface
}
