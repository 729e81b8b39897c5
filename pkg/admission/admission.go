// Package admission turns git push events into supervised pipelines.
package admission

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/constructum-ci/constructum/pkg/cluster"
	"github.com/constructum-ci/constructum/pkg/db"
	"github.com/constructum-ci/constructum/pkg/manifest"
	"github.com/constructum-ci/constructum/pkg/registry"
	"github.com/constructum-ci/constructum/pkg/secrets"
	"github.com/constructum-ci/constructum/pkg/supervisor"
)

var (
	// ErrUnknownRepository : the push is for a repository nobody
	// registered.
	ErrUnknownRepository = errors.New("unknown repository")

	// ErrRepositoryDisabled : the repository is soft-deleted.
	ErrRepositoryDisabled = errors.New("repository is disabled")

	// ErrManifestInvalid : the manifest is missing or does not parse.
	ErrManifestInvalid = errors.New("invalid manifest")
)

// PushEvent is the inbound webhook payload, trimmed to the fields
// admission needs.
type PushEvent struct {
	After      string `json:"after"`
	Repository struct {
		ID      int64  `json:"id"`
		Name    string `json:"name"`
		HTMLURL string `json:"html_url"`
		SSHURL  string `json:"ssh_url"`
	} `json:"repository"`
}

type Admission struct {
	Repositories db.RepositoryInterface
	Pipelines    db.PipelineInterface
	Cluster      cluster.Cluster

	// Fetcher works in the server's bounded workspace; its manifest copy
	// is advisory, the in-cluster client fetches its own.
	Fetcher  manifest.Fetcher
	Metadata secrets.MetadataStore

	Registry   *registry.SupervisorRegistry
	Supervisor supervisor.Supervisor

	// ClientImage is the image of the client workload.
	ClientImage string

	Logger *log.Logger
}

func (a Admission) logger() *log.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return log.Default()
}

// Consume admits the push: validates repository, manifest, and secrets,
// inserts the pipeline record, allocates cluster resources, and detaches
// the supervision scaffold. Returns the new pipeline's id.
//
// Rejections happen before any record or resource is created.
func (a Admission) Consume(ctx context.Context, event PushEvent) (uuid.UUID, error) {
	repo, err := a.Repositories.GetByExternalID(ctx, event.Repository.ID)
	if err != nil {
		if errors.Is(err, db.ErrMissing) {
			return uuid.Nil, fmt.Errorf("%w: external id %d", ErrUnknownRepository, event.Repository.ID)
		}
		return uuid.Nil, err
	}
	if !repo.Enabled {
		return uuid.Nil, fmt.Errorf("%w: %s/%s", ErrRepositoryDisabled, repo.Owner, repo.Name)
	}

	// Fetch from the URL stored at registration, the same one the
	// pipeline client will clone from.
	m, err := a.Fetcher.FetchManifest(ctx, repo.URL, repo.Name, event.After)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrManifestInvalid, err)
	}
	if _, err := secrets.Resolve(ctx, m, a.Metadata); err != nil {
		return uuid.Nil, err
	}

	pipeline, err := a.Pipelines.Admit(ctx, repo.ID, event.After)
	if err != nil {
		return uuid.Nil, err
	}

	if err := a.AssignToCluster(ctx, pipeline.ID); err != nil {
		return uuid.Nil, err
	}
	return pipeline.ID, nil
}

// AssignToCluster makes sure the pipeline's cluster resources exist and
// a supervision scaffold is attached. Idempotent by resource name and by
// registry membership, so the recovery loop re-enters it safely.
func (a Admission) AssignToCluster(ctx context.Context, pipelineID uuid.UUID) error {
	if err := a.Cluster.EnsureScratchVolume(ctx, pipelineID); err != nil {
		return err
	}
	if err := a.Cluster.EnsureClientWorkload(ctx, cluster.ClientWorkload{
		PipelineID: pipelineID,
		Image:      a.ClientImage,
	}); err != nil {
		return err
	}

	if !a.Registry.Add(pipelineID) {
		// already supervised in this process
		return nil
	}

	// deliberately detached from the request context: server shutdown
	// does not cancel supervision, the recovery loop reattaches instead.
	go func() {
		defer a.Registry.Remove(pipelineID)
		if err := a.Supervisor.Attach(context.Background(), pipelineID); err != nil {
			a.logger().Printf("pipeline %s: %v", pipelineID, err)
		}
	}()
	return nil
}
