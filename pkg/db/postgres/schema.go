package postgres

import (
	"context"
	"fmt"

	kpool "github.com/constructum-ci/constructum/pkg/db/postgres/pool"
)

var schema = []string{
	`create schema if not exists "constructum"`,

	`create table if not exists "constructum"."repository" (
		"id" uuid primary key,
		"external_id" bigint not null unique,
		"url" text not null,
		"owner" text not null,
		"name" text not null,
		"webhook_id" bigint,
		"enabled" boolean not null default true,
		"build_seq" integer not null default 0
	)`,

	`create table if not exists "constructum"."pipeline" (
		"id" uuid primary key,
		"seq" integer not null,
		"repository_id" uuid not null references "constructum"."repository" ("id"),
		"commit_id" text not null,
		"finished" boolean not null default false,
		"status" text not null,
		"created_at" timestamp with time zone not null default now(),
		unique ("repository_id", "seq")
	)`,

	`create table if not exists "constructum"."step" (
		"id" uuid primary key,
		"pipeline_id" uuid not null references "constructum"."pipeline" ("id"),
		"ordinal" integer not null,
		"name" text not null,
		"image" text not null,
		"commands" text[] not null,
		"status" text not null,
		"log_keys" text[] not null default '{}',
		unique ("pipeline_id", "ordinal")
	)`,
}

// Migrate creates the constructum schema. Every statement is idempotent,
// so it is run unconditionally at startup.
func Migrate(ctx context.Context, pool kpool.Pool) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("preparing schema: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, stmt := range schema {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("preparing schema: %w", err)
		}
	}
	return tx.Commit(ctx)
}
