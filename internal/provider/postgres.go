package provider

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/nexusdb/nexusdb/internal/instance"
)

const (
	postgresImage    = "postgres:16-alpine"
	postgresPort     = 5432
	postgresDataPath = "/var/lib/postgresql/data"
)

// PostgreSQLProvider provisions dedicated PostgreSQL containers and proxies
// queries to them.
type PostgreSQLProvider struct {
	dockerLifecycle
}

var _ Provider = (*PostgreSQLProvider)(nil)

// NewPostgreSQLProvider creates a PostgreSQL provider.
func NewPostgreSQLProvider(opts Options) *PostgreSQLProvider {
	return &PostgreSQLProvider{dockerLifecycle{opts: opts}}
}

func (p *PostgreSQLProvider) Engine() string { return EnginePostgreSQL }

// CreateContainer provisions the container with a transient superuser
// credential, then bootstraps a login role and its owned database during
// readiness polling.
func (p *PostgreSQLProvider) CreateContainer(ctx context.Context, inst *instance.Instance, password string) error {
	rootPassword, err := newRootPassword()
	if err != nil {
		return err
	}

	env := []string{"POSTGRES_PASSWORD=" + rootPassword}

	bootstrapped := false
	probe := func(ctx context.Context) error {
		if !bootstrapped {
			if err := p.bootstrap(ctx, inst, rootPassword, password); err != nil {
				return err
			}
			bootstrapped = true
		}
		return p.ping(ctx, inst, password)
	}

	return provision(ctx, p.opts, inst, postgresImage, postgresPort, postgresDataPath, env, nil, probe)
}

// bootstrap creates the login role and the database owned by it. Postgres
// needs no privilege-cache flush. Existence checks keep retries idempotent.
func (p *PostgreSQLProvider) bootstrap(ctx context.Context, inst *instance.Instance, rootPassword, password string) error {
	adminDSN := fmt.Sprintf("postgres://postgres:%s@%s:%d/postgres?sslmode=disable",
		url.QueryEscape(rootPassword), p.opts.Host, inst.HostPort)

	db, err := sql.Open("pgx", adminDSN)
	if err != nil {
		return fmt.Errorf("opening admin connection: %w", err)
	}
	defer db.Close()

	var exists bool
	err = db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM pg_roles WHERE rolname = $1)", inst.Username).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking role: %w", err)
	}
	if !exists {
		stmt := fmt.Sprintf(`CREATE ROLE "%s" WITH LOGIN PASSWORD '%s'`, inst.Username, escapeLiteral(password))
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating role: %w", err)
		}
	}

	err = db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", inst.Name).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking database: %w", err)
	}
	if !exists {
		stmt := fmt.Sprintf(`CREATE DATABASE "%s" OWNER "%s"`, inst.Name, inst.Username)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating database: %w", err)
		}
	}
	return nil
}

// ping verifies the instance credential against the instance's database.
func (p *PostgreSQLProvider) ping(ctx context.Context, inst *instance.Instance, password string) error {
	db, err := sql.Open("pgx", p.dsn(inst, password))
	if err != nil {
		return err
	}
	defer db.Close()
	return db.PingContext(ctx)
}

func (p *PostgreSQLProvider) dsn(inst *instance.Instance, password string) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		url.QueryEscape(inst.Username), url.QueryEscape(password), p.opts.Host, inst.HostPort, inst.Name)
}

// ExecuteQuery proxies an ad-hoc statement to the instance's database.
func (p *PostgreSQLProvider) ExecuteQuery(ctx context.Context, inst *instance.Instance, statement, password string) *QueryResult {
	return execSQL(ctx, "pgx", p.dsn(inst, password), "PostgreSQL", statement)
}
