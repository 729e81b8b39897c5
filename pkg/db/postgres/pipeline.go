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

type pgPipeline struct {
	pool kpool.Pool
}

func NewPipelineStore(pool kpool.Pool) db.PipelineInterface {
	return &pgPipeline{pool: pool}
}

func (p *pgPipeline) Admit(ctx context.Context, repositoryID uuid.UUID, commit string) (domain.Pipeline, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return domain.Pipeline{}, err
	}
	defer tx.Rollback(ctx)

	// the row lock serializes admissions per repository, keeping
	// sequence numbers unique and gapless.
	var enabled bool
	var buildSeq int
	if err := tx.QueryRow(
		ctx,
		`
		select "enabled", "build_seq" from "constructum"."repository"
		where "id" = $1
		for update
		`,
		repositoryID,
	).Scan(&enabled, &buildSeq); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Pipeline{}, db.Missing{Table: "repository", Identity: repositoryID.String()}
		}
		return domain.Pipeline{}, err
	}
	if !enabled {
		return domain.Pipeline{}, fmt.Errorf("%w: %s", db.ErrDisabled, repositoryID)
	}

	pipeline := domain.Pipeline{
		ID:           uuid.New(),
		Seq:          buildSeq + 1,
		RepositoryID: repositoryID,
		Commit:       commit,
		Finished:     false,
		Status:       domain.InProgress,
	}

	if _, err := tx.Exec(
		ctx,
		`
		update "constructum"."repository" set "build_seq" = $1 where "id" = $2
		`,
		pipeline.Seq, repositoryID,
	); err != nil {
		return domain.Pipeline{}, err
	}
	if _, err := tx.Exec(
		ctx,
		`
		insert into "constructum"."pipeline"
		("id", "seq", "repository_id", "commit_id", "finished", "status")
		values ($1, $2, $3, $4, false, $5)
		`,
		pipeline.ID, pipeline.Seq, pipeline.RepositoryID, pipeline.Commit, pipeline.Status.String(),
	); err != nil {
		return domain.Pipeline{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Pipeline{}, err
	}
	return pipeline, nil
}

func (p *pgPipeline) Get(ctx context.Context, id uuid.UUID) (domain.Pipeline, error) {
	pipeline := domain.Pipeline{}
	var status string
	if err := p.pool.QueryRow(
		ctx,
		`
		select "id", "seq", "repository_id", "commit_id", "finished", "status"
		from "constructum"."pipeline"
		where "id" = $1
		`,
		id,
	).Scan(
		&pipeline.ID, &pipeline.Seq, &pipeline.RepositoryID,
		&pipeline.Commit, &pipeline.Finished, &status,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Pipeline{}, db.Missing{Table: "pipeline", Identity: id.String()}
		}
		return domain.Pipeline{}, err
	}
	parsed, err := domain.AsPipelineStatus(status)
	if err != nil {
		return domain.Pipeline{}, err
	}
	pipeline.Status = parsed
	return pipeline, nil
}

func (p *pgPipeline) List(ctx context.Context) ([]domain.Pipeline, error) {
	return p.listWhere(ctx, "true")
}

func (p *pgPipeline) ListForRepository(ctx context.Context, repositoryID uuid.UUID) ([]domain.Pipeline, error) {
	return p.listWhere(ctx, `"repository_id" = $1`, repositoryID)
}

func (p *pgPipeline) ListUnfinished(ctx context.Context) ([]domain.Pipeline, error) {
	return p.listWhere(ctx, `"finished" = false`)
}

func (p *pgPipeline) listWhere(ctx context.Context, cond string, args ...interface{}) ([]domain.Pipeline, error) {
	rows, err := p.pool.Query(
		ctx,
		`
		select "id", "seq", "repository_id", "commit_id", "finished", "status"
		from "constructum"."pipeline"
		where `+cond+`
		order by "created_at"
		`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pipelines := []domain.Pipeline{}
	for rows.Next() {
		pipeline := domain.Pipeline{}
		var status string
		if err := rows.Scan(
			&pipeline.ID, &pipeline.Seq, &pipeline.RepositoryID,
			&pipeline.Commit, &pipeline.Finished, &status,
		); err != nil {
			return nil, err
		}
		parsed, err := domain.AsPipelineStatus(status)
		if err != nil {
			return nil, err
		}
		pipeline.Status = parsed
		pipelines = append(pipelines, pipeline)
	}
	return pipelines, rows.Err()
}

func (p *pgPipeline) Finish(ctx context.Context, id uuid.UUID, status domain.PipelineStatus) error {
	if !status.Terminal() {
		return fmt.Errorf("cannot finish pipeline %s with non-terminal status %s", id, status)
	}
	tag, err := p.pool.Exec(
		ctx,
		`
		update "constructum"."pipeline"
		set "finished" = true, "status" = $1
		where "id" = $2
		`,
		status.String(), id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.Missing{Table: "pipeline", Identity: id.String()}
	}
	return nil
}
