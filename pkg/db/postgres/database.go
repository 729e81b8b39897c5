// Package postgres implements the state store on PostgreSQL.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/constructum-ci/constructum/pkg/db"
	kpool "github.com/constructum-ci/constructum/pkg/db/postgres/pool"
)

// Database is a connected state store.
type Database struct {
	db.Stores

	pool kpool.Pool
}

// New connects to the database at url and prepares the schema.
func New(ctx context.Context, url string) (*Database, error) {
	base, err := pgxpool.Connect(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	pool := kpool.Wrap(base)
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return Attach(pool), nil
}

// Attach builds the stores over an already prepared pool. Tests use this
// to inject their own pool.
func Attach(pool kpool.Pool) *Database {
	return &Database{
		Stores: db.Stores{
			Repositories: NewRepositoryStore(pool),
			Pipelines:    NewPipelineStore(pool),
			Steps:        NewStepStore(pool),
		},
		pool: pool,
	}
}

func (d *Database) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

func (d *Database) Close() {
	d.pool.Close()
}
