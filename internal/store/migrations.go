package store

import (
	"context"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGSERIAL PRIMARY KEY,
		name          TEXT NOT NULL,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL DEFAULT 'student',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS instances (
		id                 BIGSERIAL PRIMARY KEY,
		name               TEXT NOT NULL,
		engine             TEXT NOT NULL,
		username           TEXT NOT NULL,
		password_encrypted TEXT NOT NULL,
		owner_user_id      BIGINT NOT NULL REFERENCES users(id),
		created_by_user_id BIGINT NOT NULL REFERENCES users(id),
		container_name     TEXT NOT NULL,
		container_id       TEXT NOT NULL DEFAULT '',
		host_port          INT NOT NULL DEFAULT 0,
		state              TEXT NOT NULL DEFAULT 'suspended',
		created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	// One live instance per owner, enforced at write time. The service
	// layer checks first, but concurrent creates for the same owner must
	// not both slip through.
	`CREATE UNIQUE INDEX IF NOT EXISTS instances_owner_live_idx
		ON instances (owner_user_id) WHERE state <> 'deleted'`,
	`CREATE INDEX IF NOT EXISTS instances_state_idx ON instances (state)`,
}

// Migrate applies the schema migrations in order.
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("applying migration %d: %w", i, err)
		}
	}
	return nil
}
