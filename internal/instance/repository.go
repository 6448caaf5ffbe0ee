package instance

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no live instance matches the lookup.
var ErrNotFound = errors.New("instance not found")

// ErrOwnerConflict is returned when an insert collides with another live
// instance for the same owner.
var ErrOwnerConflict = errors.New("owner already has a live instance")

// Repository persists and queries Instance records.
type Repository interface {
	Add(ctx context.Context, inst *Instance) error
	GetByOwnerID(ctx context.Context, ownerUserID int64) (*Instance, error)
	Update(ctx context.Context, inst *Instance) error
	GetAll(ctx context.Context) ([]Instance, error)
}

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

// Add inserts a new instance record and fills in its id and timestamps.
func (r *PostgresRepository) Add(ctx context.Context, inst *Instance) error {
	query := `
		INSERT INTO instances (name, engine, username, password_encrypted,
			owner_user_id, created_by_user_id, container_name, container_id,
			host_port, state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		inst.Name,
		inst.Engine,
		inst.Username,
		inst.PasswordEncrypted,
		inst.OwnerUserID,
		inst.CreatedByUserID,
		inst.ContainerName,
		inst.ContainerID,
		inst.HostPort,
		inst.State,
	).Scan(&inst.ID, &inst.CreatedAt, &inst.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrOwnerConflict
		}
		return fmt.Errorf("inserting instance: %w", err)
	}

	return nil
}

// GetByOwnerID retrieves the live (non-deleted) instance for an owner.
func (r *PostgresRepository) GetByOwnerID(ctx context.Context, ownerUserID int64) (*Instance, error) {
	query := `
		SELECT id, name, engine, username, password_encrypted, owner_user_id,
		       created_by_user_id, container_name, container_id, host_port,
		       state, created_at, updated_at
		FROM instances
		WHERE owner_user_id = $1 AND state <> 'deleted'`

	inst, err := scanInstance(r.pool.QueryRow(ctx, query, ownerUserID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying instance by owner: %w", err)
	}
	return inst, nil
}

// Update persists the mutable fields of an instance.
func (r *PostgresRepository) Update(ctx context.Context, inst *Instance) error {
	query := `
		UPDATE instances
		SET container_id = $2, host_port = $3, state = $4, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query,
		inst.ID, inst.ContainerID, inst.HostPort, inst.State,
	).Scan(&inst.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("updating instance: %w", err)
	}
	return nil
}

// GetAll lists every non-deleted instance.
func (r *PostgresRepository) GetAll(ctx context.Context) ([]Instance, error) {
	query := `
		SELECT id, name, engine, username, password_encrypted, owner_user_id,
		       created_by_user_id, container_name, container_id, host_port,
		       state, created_at, updated_at
		FROM instances
		WHERE state <> 'deleted'
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing instances: %w", err)
	}
	defer rows.Close()

	var out []Instance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning instance: %w", err)
		}
		out = append(out, *inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating instances: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInstance(row rowScanner) (*Instance, error) {
	var inst Instance
	err := row.Scan(
		&inst.ID,
		&inst.Name,
		&inst.Engine,
		&inst.Username,
		&inst.PasswordEncrypted,
		&inst.OwnerUserID,
		&inst.CreatedByUserID,
		&inst.ContainerName,
		&inst.ContainerID,
		&inst.HostPort,
		&inst.State,
		&inst.CreatedAt,
		&inst.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inst, nil
}
