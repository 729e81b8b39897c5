// Package recovery reattaches pipelines orphaned by a previous server
// exit.
package recovery

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/constructum-ci/constructum/pkg/db"
	"github.com/constructum-ci/constructum/pkg/loop"
	"github.com/constructum-ci/constructum/pkg/registry"
)

// Assign re-creates a pipeline's cluster resources and spawns its
// supervision scaffold. admission.AssignToCluster satisfies this.
type Assign func(ctx context.Context, pipelineID uuid.UUID) error

// Task is the recurring recovery tick: find pipelines recorded as
// in-flight that nobody in this process supervises, and reattach at
// most one of them. The one-per-tick policy bounds the restart rate.
//
// Every cluster mutation behind assign is idempotent by name, so
// re-entering a half-assigned pipeline is safe.
func Task(
	logger *log.Logger,
	pipelines db.PipelineInterface,
	reg *registry.SupervisorRegistry,
	assign Assign,
	interval time.Duration,
) loop.Task[struct{}] {
	return func(ctx context.Context, value struct{}) (struct{}, loop.Next) {
		unfinished, err := pipelines.ListUnfinished(ctx)
		if err != nil {
			// transient; try again next tick
			logger.Printf("listing unfinished pipelines: %v", err)
			return value, loop.Continue(interval)
		}

		for _, pipeline := range unfinished {
			if reg.Contains(pipeline.ID) {
				continue
			}
			logger.Printf("reattaching orphaned pipeline %s", pipeline.ID)
			if err := assign(ctx, pipeline.ID); err != nil {
				logger.Printf("reattaching pipeline %s: %v", pipeline.ID, err)
			}
			break // at most one per tick
		}
		return value, loop.Continue(interval)
	}
}

// Start runs the recovery loop until ctx ends.
func Start(
	ctx context.Context,
	logger *log.Logger,
	pipelines db.PipelineInterface,
	reg *registry.SupervisorRegistry,
	assign Assign,
	interval time.Duration,
) error {
	_, err := loop.Start(ctx, struct{}{}, Task(logger, pipelines, reg, assign, interval))
	return err
}
