package provider

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/nexusdb/nexusdb/internal/instance"
)

const (
	sqlserverImage    = "mcr.microsoft.com/mssql/server:2022-latest"
	sqlserverPort     = 1433
	sqlserverDataPath = "/var/opt/mssql"
)

// SQLServerProvider provisions dedicated SQL Server containers and proxies
// queries to them.
type SQLServerProvider struct {
	dockerLifecycle
}

var _ Provider = (*SQLServerProvider)(nil)

// NewSQLServerProvider creates a SQL Server provider.
func NewSQLServerProvider(opts Options) *SQLServerProvider {
	return &SQLServerProvider{dockerLifecycle{opts: opts}}
}

func (p *SQLServerProvider) Engine() string { return EngineSQLServer }

// CreateContainer provisions the container with a transient SA credential,
// then bootstraps the database, a server login and a db_owner user during
// readiness polling.
func (p *SQLServerProvider) CreateContainer(ctx context.Context, inst *instance.Instance, password string) error {
	rootPassword, err := newRootPassword()
	if err != nil {
		return err
	}

	env := []string{
		"ACCEPT_EULA=Y",
		"MSSQL_SA_PASSWORD=" + rootPassword,
		"MSSQL_PID=Developer",
	}

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

	return provision(ctx, p.opts, inst, sqlserverImage, sqlserverPort, sqlserverDataPath, env, nil, probe)
}

// bootstrap creates the database and a login mapped to a db_owner user
// inside it. The guards keep retries idempotent; SQL Server's login and
// database creation has to happen as SA across two connections because the
// user must be created inside the target database.
func (p *SQLServerProvider) bootstrap(ctx context.Context, inst *instance.Instance, rootPassword, password string) error {
	master, err := sql.Open("sqlserver", p.adminDSN(rootPassword, "master", inst.HostPort))
	if err != nil {
		return fmt.Errorf("opening admin connection: %w", err)
	}
	defer master.Close()

	serverStatements := []string{
		fmt.Sprintf("IF DB_ID(N'%s') IS NULL CREATE DATABASE [%s]", inst.Name, inst.Name),
		fmt.Sprintf("IF SUSER_ID(N'%s') IS NULL CREATE LOGIN [%s] WITH PASSWORD = N'%s'", inst.Username, inst.Username, escapeLiteral(password)),
	}
	for _, stmt := range serverStatements {
		if _, err := master.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrapping sqlserver database: %w", err)
		}
	}

	scoped, err := sql.Open("sqlserver", p.adminDSN(rootPassword, inst.Name, inst.HostPort))
	if err != nil {
		return fmt.Errorf("opening database connection: %w", err)
	}
	defer scoped.Close()

	dbStatements := []string{
		fmt.Sprintf("IF DATABASE_PRINCIPAL_ID(N'%s') IS NULL CREATE USER [%s] FOR LOGIN [%s]", inst.Username, inst.Username, inst.Username),
		fmt.Sprintf("ALTER ROLE db_owner ADD MEMBER [%s]", inst.Username),
	}
	for _, stmt := range dbStatements {
		if _, err := scoped.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrapping sqlserver user: %w", err)
		}
	}
	return nil
}

func (p *SQLServerProvider) adminDSN(rootPassword, database string, hostPort int) string {
	return fmt.Sprintf("sqlserver://sa:%s@%s:%d?database=%s",
		url.QueryEscape(rootPassword), p.opts.Host, hostPort, database)
}

// ping verifies the instance credential against the instance's database.
func (p *SQLServerProvider) ping(ctx context.Context, inst *instance.Instance, password string) error {
	db, err := sql.Open("sqlserver", p.dsn(inst, password))
	if err != nil {
		return err
	}
	defer db.Close()
	return db.PingContext(ctx)
}

func (p *SQLServerProvider) dsn(inst *instance.Instance, password string) string {
	return fmt.Sprintf("sqlserver://%s:%s@%s:%d?database=%s",
		url.QueryEscape(inst.Username), url.QueryEscape(password), p.opts.Host, inst.HostPort, inst.Name)
}

// ExecuteQuery proxies an ad-hoc statement to the instance's database.
func (p *SQLServerProvider) ExecuteQuery(ctx context.Context, inst *instance.Instance, statement, password string) *QueryResult {
	return execSQL(ctx, "sqlserver", p.dsn(inst, password), "SQL Server", statement)
}
