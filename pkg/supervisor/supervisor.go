// Package supervisor drives one pipeline from admission to a terminal
// status.
//
// Supervision splits in two: Run executes the pipeline's steps and owns
// every Step mutation plus the Pipeline's terminal transition; it is the
// program of the in-cluster client workload. Attach is the server-side
// scaffold that outlives admission: it waits for the client workload to
// terminate, archives the client's own logs best-effort, and releases
// the pipeline's cluster resources.
package supervisor

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/constructum-ci/constructum/pkg/cluster"
	"github.com/constructum-ci/constructum/pkg/db"
	"github.com/constructum-ci/constructum/pkg/domain"
	"github.com/constructum-ci/constructum/pkg/logcache"
	"github.com/constructum-ci/constructum/pkg/manifest"
	"github.com/constructum-ci/constructum/pkg/objectstore"
	"github.com/constructum-ci/constructum/pkg/secrets"
)

type Supervisor struct {
	Cluster   cluster.Cluster
	Pipelines db.PipelineInterface
	Steps     db.StepInterface
	Fetcher   manifest.Fetcher

	// Metadata may be nil when no secret store is configured; manifests
	// using secrets are then rejected.
	Metadata secrets.MetadataStore

	Archive objectstore.Bucket
	Cache   logcache.Cache

	// ServiceAccount grants secret access; attached to step workloads
	// that inject secrets.
	ServiceAccount string

	Logger *log.Logger
}

func (s Supervisor) logger() *log.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return log.Default()
}

// ShellArgv composes the step's single shell invocation: every command,
// joined with "; ", each (including the last) terminated with ";".
func ShellArgv(commands []string) []string {
	return []string{"-c", strings.Join(commands, "; ") + ";"}
}

// Run executes the pipeline to a terminal status. Steps run strictly in
// ordinal order; the first failing step halts the pipeline.
//
// Run fetches the repository into the workload's own workspace (the
// admission-side copy is advisory) and finishes the Pipeline record in
// every exit path, so a returned error means the pipeline is Failed, not
// in limbo.
func (s Supervisor) Run(ctx context.Context, pipeline domain.Pipeline, repo domain.Repository) error {
	m, workdir, err := s.Fetcher.FetchWorkspace(ctx, repo.URL, repo.Name, pipeline.Commit)
	if err != nil {
		return s.fail(ctx, pipeline.ID, fmt.Errorf("fetching workspace: %w", err))
	}

	conf, err := secrets.Resolve(ctx, m, s.Metadata)
	if err != nil {
		return s.fail(ctx, pipeline.ID, err)
	}

	steps := make([]domain.Step, 0, len(m.Steps))
	for ordinal, manifestStep := range m.Steps {
		steps = append(steps, domain.Step{
			ID:         uuid.New(),
			PipelineID: pipeline.ID,
			Ordinal:    ordinal,
			Name:       manifestStep.Name,
			Image:      manifestStep.Image,
			Commands:   manifestStep.Commands,
			Status:     domain.NotStarted,
		})
	}
	if err := s.Steps.CreateBatch(ctx, steps); err != nil {
		return s.fail(ctx, pipeline.ID, fmt.Errorf("recording steps: %w", err))
	}

	for ordinal, step := range steps {
		outcome, err := s.executeStep(ctx, pipeline, step, m.Steps[ordinal], conf, workdir)
		if err != nil {
			return s.fail(ctx, pipeline.ID, err)
		}
		if outcome == cluster.Failed {
			if err := s.Pipelines.Finish(ctx, pipeline.ID, domain.Failed); err != nil {
				return fmt.Errorf("finishing pipeline %s: %w", pipeline.ID, err)
			}
			return nil
		}
	}

	if err := s.Pipelines.Finish(ctx, pipeline.ID, domain.Complete); err != nil {
		return fmt.Errorf("finishing pipeline %s: %w", pipeline.ID, err)
	}
	return nil
}

// failStep best-effort marks a dispatched step Fail, so a failed
// pipeline never strands a step in InProgress.
func (s Supervisor) failStep(ctx context.Context, step domain.Step) {
	if err := s.Steps.SetStatus(ctx, step.ID, domain.StepFail); err != nil {
		s.logger().Printf("recording failure of step %s: %v", step.Name, err)
	}
}

func (s Supervisor) fail(ctx context.Context, pipelineID uuid.UUID, cause error) error {
	if err := s.Pipelines.Finish(ctx, pipelineID, domain.Failed); err != nil {
		s.logger().Printf("pipeline %s: recording failure: %v", pipelineID, err)
	}
	return cause
}

func (s Supervisor) executeStep(
	ctx context.Context,
	pipeline domain.Pipeline,
	step domain.Step,
	manifestStep manifest.Step,
	conf secrets.MaterializedSecretConfig,
	workdir string,
) (cluster.Outcome, error) {
	if err := s.Steps.SetStatus(ctx, step.ID, domain.StepInProgress); err != nil {
		return "", fmt.Errorf("dispatching step %s: %w", step.Name, err)
	}

	stepConf, err := conf.ForStep(manifestStep.Secrets)
	if err != nil {
		// resolution already validated every reference; reaching this
		// means the manifest changed under us.
		s.failStep(ctx, step)
		return "", err
	}

	workload := cluster.StepWorkload{
		PipelineID: pipeline.ID,
		StepName:   step.Name,
		Image:      step.Image,
		Argv:       ShellArgv(append(stepConf.SourcePreamble(), step.Commands...)),
		WorkDir:    workdir,
	}
	if !stepConf.Empty() {
		workload.Annotations = stepConf.Annotations(secrets.DefaultRole)
		workload.ServiceAccount = s.ServiceAccount
	}
	if err := s.Cluster.CreateStepWorkload(ctx, workload); err != nil {
		s.failStep(ctx, step)
		return "", err
	}

	workloadName := domain.StepWorkloadName(pipeline.ID, step.Name)
	containerName := domain.ContainerName(step.Name)

	// the log stream and the completion watch run in parallel and both
	// must finish before the step is finalized. The stream is drained
	// even when the workload failed.
	streamed := make(chan struct{})
	go func() {
		defer close(streamed)
		s.streamToCache(ctx, workloadName, containerName, step.Name)
	}()

	outcome, err := s.Cluster.WaitTerminal(ctx, workloadName)
	<-streamed
	if err != nil {
		s.failStep(ctx, step)
		return "", fmt.Errorf("watching step %s: %w", step.Name, err)
	}

	s.archiveStep(ctx, step, workloadName, containerName)

	status := domain.StepSuccess
	if outcome == cluster.Failed {
		status = domain.StepFail
	}
	if err := s.Steps.SetStatus(ctx, step.ID, status); err != nil {
		if status != domain.StepFail {
			s.failStep(ctx, step)
		}
		return "", fmt.Errorf("finalizing step %s: %w", step.Name, err)
	}
	if err := s.Cluster.DeleteWorkload(ctx, workloadName); err != nil {
		s.logger().Printf("pipeline %s: releasing workload %s: %v", pipeline.ID, workloadName, err)
	}
	return outcome, nil
}

// streamToCache feeds the workload's live logs to the cache. Live logs
// are best-effort: the archive is authoritative, so every failure here
// is logged and swallowed.
func (s Supervisor) streamToCache(ctx context.Context, workloadName string, containerName string, stepName string) {
	key := domain.LogCacheKey(workloadName, stepName)
	err := s.Cluster.StreamLogs(ctx, workloadName, containerName, func(pod string, chunk []byte) error {
		if err := s.Cache.Append(ctx, key, string(chunk)); err != nil {
			s.logger().Printf("live log of %s: %v", workloadName, err)
		}
		return nil
	})
	if err != nil {
		s.logger().Printf("live log of %s: %v", workloadName, err)
	}
}

// archiveStep archives the step's pod logs and records the keys.
// Failures are logged and do not fail the pipeline.
func (s Supervisor) archiveStep(ctx context.Context, step domain.Step, workloadName string, containerName string) {
	keys, err := s.Cluster.ArchiveLogs(ctx, workloadName, containerName, s.Archive)
	if err != nil {
		s.logger().Printf("archiving logs of %s: %v", workloadName, err)
	}
	if len(keys) == 0 {
		return
	}
	if err := s.Steps.AppendLogKeys(ctx, step.ID, keys...); err != nil {
		s.logger().Printf("recording log keys of %s: %v", workloadName, err)
	}
}

// Attach is the admission-side scaffold for one pipeline: it waits for
// the client workload to terminate, archives the client's own logs
// best-effort, and deletes the client workload and the scratch volume.
//
// Attach never mutates Pipeline or Step status; Run owns those. When the
// wait itself fails the resources are left in place for the recovery
// loop.
func (s Supervisor) Attach(ctx context.Context, pipelineID uuid.UUID) error {
	workloadName := domain.ClientWorkloadName(pipelineID)

	if _, err := s.Cluster.WaitTerminal(ctx, workloadName); err != nil {
		return fmt.Errorf("watching client workload of pipeline %s: %w", pipelineID, err)
	}

	containerName := domain.ContainerName(workloadName)
	if _, err := s.Cluster.ArchiveLogs(ctx, workloadName, containerName, s.Archive); err != nil {
		s.logger().Printf("archiving client logs of pipeline %s: %v", pipelineID, err)
	}

	if err := s.Cluster.DeleteWorkload(ctx, workloadName); err != nil {
		s.logger().Printf("releasing client workload of pipeline %s: %v", pipelineID, err)
	}
	if err := s.Cluster.DeleteScratchVolume(ctx, pipelineID); err != nil {
		s.logger().Printf("releasing scratch volume of pipeline %s: %v", pipelineID, err)
	}
	return nil
}
