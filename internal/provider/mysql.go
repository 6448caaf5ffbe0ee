package provider

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/nexusdb/nexusdb/internal/instance"
)

const (
	mysqlImage    = "mysql:8.0"
	mysqlPort     = 3306
	mysqlDataPath = "/var/lib/mysql"
)

// MySQLProvider provisions dedicated MySQL containers and proxies queries
// to them.
type MySQLProvider struct {
	dockerLifecycle
}

var _ Provider = (*MySQLProvider)(nil)

// NewMySQLProvider creates a MySQL provider.
func NewMySQLProvider(opts Options) *MySQLProvider {
	return &MySQLProvider{dockerLifecycle{opts: opts}}
}

func (p *MySQLProvider) Engine() string { return EngineMySQL }

// CreateContainer provisions the container with a transient root credential,
// then bootstraps the instance's database and user during readiness polling.
// The root password is discarded when this call returns.
func (p *MySQLProvider) CreateContainer(ctx context.Context, inst *instance.Instance, password string) error {
	rootPassword, err := newRootPassword()
	if err != nil {
		return err
	}

	env := []string{"MYSQL_ROOT_PASSWORD=" + rootPassword}

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

	return provision(ctx, p.opts, inst, mysqlImage, mysqlPort, mysqlDataPath, env, nil, probe)
}

// bootstrap creates the dedicated database, a user scoped to it, grants
// full privileges and flushes the privilege cache. Identifiers were
// validated at the API boundary; the statements are idempotent so a
// half-applied bootstrap can be retried by the polling loop.
func (p *MySQLProvider) bootstrap(ctx context.Context, inst *instance.Instance, rootPassword, password string) error {
	dsn := fmt.Sprintf("root:%s@tcp(%s:%d)/", rootPassword, p.opts.Host, inst.HostPort)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("opening admin connection: %w", err)
	}
	defer db.Close()

	statements := []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", inst.Name),
		fmt.Sprintf("CREATE USER IF NOT EXISTS '%s'@'%%' IDENTIFIED BY '%s'", inst.Username, escapeLiteralMySQL(password)),
		fmt.Sprintf("GRANT ALL PRIVILEGES ON `%s`.* TO '%s'@'%%'", inst.Name, inst.Username),
		"FLUSH PRIVILEGES",
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrapping mysql database: %w", err)
		}
	}
	return nil
}

// ping verifies the instance credential against the instance's database.
func (p *MySQLProvider) ping(ctx context.Context, inst *instance.Instance, password string) error {
	db, err := sql.Open("mysql", p.dsn(inst, password))
	if err != nil {
		return err
	}
	defer db.Close()
	return db.PingContext(ctx)
}

func (p *MySQLProvider) dsn(inst *instance.Instance, password string) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s", inst.Username, password, p.opts.Host, inst.HostPort, inst.Name)
}

// ExecuteQuery proxies an ad-hoc statement to the instance's database.
func (p *MySQLProvider) ExecuteQuery(ctx context.Context, inst *instance.Instance, statement, password string) *QueryResult {
	return execSQL(ctx, "mysql", p.dsn(inst, password), "MySQL", statement)
}
