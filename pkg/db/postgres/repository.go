package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4"

	"github.com/constructum-ci/constructum/pkg/db"
	kpool "github.com/constructum-ci/constructum/pkg/db/postgres/pool"
	"github.com/constructum-ci/constructum/pkg/domain"
)

type pgRepository struct {
	pool kpool.Pool
}

func NewRepositoryStore(pool kpool.Pool) db.RepositoryInterface {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) Register(ctx context.Context, repo domain.Repository) (domain.Repository, error) {
	repo.ID = uuid.New()
	repo.Enabled = true
	repo.BuildSeq = 0

	if _, err := r.pool.Exec(
		ctx,
		`
		insert into "constructum"."repository"
		("id", "external_id", "url", "owner", "name", "webhook_id", "enabled", "build_seq")
		values ($1, $2, $3, $4, $5, $6, true, 0)
		`,
		repo.ID, repo.ExternalID, repo.URL, repo.Owner, repo.Name, repo.WebhookID,
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return domain.Repository{}, db.Conflict{
				Table: "repository", Identity: fmt.Sprintf("external_id=%d", repo.ExternalID),
			}
		}
		return domain.Repository{}, err
	}
	return repo, nil
}

func (r *pgRepository) Get(ctx context.Context, id uuid.UUID) (domain.Repository, error) {
	return r.getWhere(ctx, `"id" = $1`, id)
}

func (r *pgRepository) GetByExternalID(ctx context.Context, externalID int64) (domain.Repository, error) {
	return r.getWhere(ctx, `"external_id" = $1`, externalID)
}

func (r *pgRepository) getWhere(ctx context.Context, cond string, arg interface{}) (domain.Repository, error) {
	repo := domain.Repository{}
	if err := r.pool.QueryRow(
		ctx,
		`
		select "id", "external_id", "url", "owner", "name", "webhook_id", "enabled", "build_seq"
		from "constructum"."repository"
		where `+cond,
		arg,
	).Scan(
		&repo.ID, &repo.ExternalID, &repo.URL, &repo.Owner, &repo.Name,
		&repo.WebhookID, &repo.Enabled, &repo.BuildSeq,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Repository{}, db.Missing{Table: "repository", Identity: fmt.Sprint(arg)}
		}
		return domain.Repository{}, err
	}
	return repo, nil
}

func (r *pgRepository) List(ctx context.Context) ([]domain.Repository, error) {
	rows, err := r.pool.Query(
		ctx,
		`
		select "id", "external_id", "url", "owner", "name", "webhook_id", "enabled", "build_seq"
		from "constructum"."repository"
		order by "owner", "name"
		`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	repos := []domain.Repository{}
	for rows.Next() {
		repo := domain.Repository{}
		if err := rows.Scan(
			&repo.ID, &repo.ExternalID, &repo.URL, &repo.Owner, &repo.Name,
			&repo.WebhookID, &repo.Enabled, &repo.BuildSeq,
		); err != nil {
			return nil, err
		}
		repos = append(repos, repo)
	}
	return repos, rows.Err()
}

func (r *pgRepository) Disable(ctx context.Context, id uuid.UUID) (domain.Repository, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Repository{}, err
	}
	defer tx.Rollback(ctx)

	repo := domain.Repository{}
	if err := tx.QueryRow(
		ctx,
		`
		select "id", "external_id", "url", "owner", "name", "webhook_id", "enabled", "build_seq"
		from "constructum"."repository"
		where "id" = $1
		for update
		`,
		id,
	).Scan(
		&repo.ID, &repo.ExternalID, &repo.URL, &repo.Owner, &repo.Name,
		&repo.WebhookID, &repo.Enabled, &repo.BuildSeq,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Repository{}, db.Missing{Table: "repository", Identity: id.String()}
		}
		return domain.Repository{}, err
	}

	if _, err := tx.Exec(
		ctx,
		`
		update "constructum"."repository"
		set "enabled" = false, "webhook_id" = null
		where "id" = $1
		`,
		id,
	); err != nil {
		return domain.Repository{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Repository{}, err
	}
	return repo, nil
}
