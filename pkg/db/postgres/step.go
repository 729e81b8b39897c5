package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/constructum-ci/constructum/pkg/db"
	kpool "github.com/constructum-ci/constructum/pkg/db/postgres/pool"
	"github.com/constructum-ci/constructum/pkg/domain"
)

type pgStep struct {
	pool kpool.Pool
}

func NewStepStore(pool kpool.Pool) db.StepInterface {
	return &pgStep{pool: pool}
}

func (s *pgStep) CreateBatch(ctx context.Context, steps []domain.Step) error {
	if len(steps) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, step := range steps {
		if _, err := tx.Exec(
			ctx,
			`
			insert into "constructum"."step"
			("id", "pipeline_id", "ordinal", "name", "image", "commands", "status", "log_keys")
			values ($1, $2, $3, $4, $5, $6, $7, '{}')
			`,
			step.ID, step.PipelineID, step.Ordinal, step.Name, step.Image,
			step.Commands, step.Status.String(),
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *pgStep) Get(ctx context.Context, id uuid.UUID) (domain.Step, error) {
	step := domain.Step{}
	var status string
	if err := s.pool.QueryRow(
		ctx,
		`
		select "id", "pipeline_id", "ordinal", "name", "image", "commands", "status", "log_keys"
		from "constructum"."step"
		where "id" = $1
		`,
		id,
	).Scan(
		&step.ID, &step.PipelineID, &step.Ordinal, &step.Name, &step.Image,
		&step.Commands, &status, &step.LogKeys,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Step{}, db.Missing{Table: "step", Identity: id.String()}
		}
		return domain.Step{}, err
	}
	parsed, err := domain.AsStepStatus(status)
	if err != nil {
		return domain.Step{}, err
	}
	step.Status = parsed
	return step, nil
}

func (s *pgStep) ListForPipeline(ctx context.Context, pipelineID uuid.UUID) ([]domain.Step, error) {
	rows, err := s.pool.Query(
		ctx,
		`
		select "id", "pipeline_id", "ordinal", "name", "image", "commands", "status", "log_keys"
		from "constructum"."step"
		where "pipeline_id" = $1
		order by "ordinal"
		`,
		pipelineID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	steps := []domain.Step{}
	for rows.Next() {
		step := domain.Step{}
		var status string
		if err := rows.Scan(
			&step.ID, &step.PipelineID, &step.Ordinal, &step.Name, &step.Image,
			&step.Commands, &status, &step.LogKeys,
		); err != nil {
			return nil, err
		}
		parsed, err := domain.AsStepStatus(status)
		if err != nil {
			return nil, err
		}
		step.Status = parsed
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

// SetStatus moves the step along NotStarted -> InProgress ->
// (Success|Fail). The current status is read under a row lock, so a
// terminal step is never rewritten (ErrIllegalTransition).
func (s *pgStep) SetStatus(ctx context.Context, id uuid.UUID, status domain.StepStatus) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var current string
	if err := tx.QueryRow(
		ctx,
		`
		select "status" from "constructum"."step" where "id" = $1
		for update
		`,
		id,
	).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.Missing{Table: "step", Identity: id.String()}
		}
		return err
	}
	parsed, err := domain.AsStepStatus(current)
	if err != nil {
		return err
	}
	if !parsed.CanTransitTo(status) {
		return fmt.Errorf(
			"%w: step %s: %s -> %s", db.ErrIllegalTransition, id, parsed, status,
		)
	}

	if _, err := tx.Exec(
		ctx,
		`
		update "constructum"."step" set "status" = $1 where "id" = $2
		`,
		status.String(), id,
	); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *pgStep) AppendLogKeys(ctx context.Context, id uuid.UUID, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	tag, err := s.pool.Exec(
		ctx,
		`
		update "constructum"."step"
		set "log_keys" = array_cat("log_keys", $1)
		where "id" = $2
		`,
		keys, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.Missing{Table: "step", Identity: id.String()}
	}
	return nil
}
