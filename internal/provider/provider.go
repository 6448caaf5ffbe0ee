// Package provider implements the engine-specific database providers:
// container bootstrap, lifecycle and query execution.
package provider

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/nexusdb/nexusdb/internal/instance"
	"github.com/nexusdb/nexusdb/internal/runtime"
)

// Engine tags understood by the registry.
const (
	EngineMySQL      = "mysql"
	EnginePostgreSQL = "postgresql"
	EngineMongoDB    = "mongodb"
	EngineSQLServer  = "sqlserver"
	EngineRedis      = "redis"
)

// ErrEngineNotSupported is returned when no provider is registered for an
// engine tag.
var ErrEngineNotSupported = errors.New("engine not supported")

// ErrProvisioningTimeout is returned when readiness polling exhausts its
// attempts. The container and its record are left in place for inspection.
var ErrProvisioningTimeout = errors.New("provisioning timed out waiting for database readiness")

// Provider is the pluggable per-engine boundary. New engines are added by
// implementing this contract and registering it; nothing else changes.
type Provider interface {
	// Engine returns the tag this provider serves.
	Engine() string

	// CreateContainer provisions the instance's container and bootstraps
	// the database. On success it sets ContainerID and HostPort on the
	// instance. The plaintext password is used transiently for bootstrap
	// and is never stored.
	CreateContainer(ctx context.Context, inst *instance.Instance, password string) error

	// Start and Stop drive the underlying container. Remove destroys it,
	// freeing the derived container name for a later re-provision.
	Start(ctx context.Context, inst *instance.Instance) error
	Stop(ctx context.Context, inst *instance.Instance) error
	Remove(ctx context.Context, inst *instance.Instance) error

	// ExecuteQuery runs an ad-hoc statement against the instance using the
	// decrypted credential. Engine and driver failures are reported in the
	// result, never as an error.
	ExecuteQuery(ctx context.Context, inst *instance.Instance, statement, password string) *QueryResult
}

// Options holds the dependencies and tunables shared by all providers.
type Options struct {
	Runtime       runtime.Runtime
	Host          string // address the bound host ports are reachable on
	DataDir       string // optional root for persistent bind mounts
	Memory        int64  // per-container memory ceiling, bytes
	CPUQuota      int64  // per-container CPU quota, microseconds per period
	ReadyInterval time.Duration
	ReadyAttempts int
}

// provision runs the shared container creation protocol: ensure the image,
// probe a free host port, create and start the container, then poll the
// probe until the database accepts connections. ContainerID and HostPort
// are set on the instance once the runtime reports a successful creation.
func provision(ctx context.Context, o Options, inst *instance.Instance, img string, containerPort int, dataPath string, env, cmd []string, probe func(context.Context) error) error {
	if err := o.Runtime.EnsureImage(ctx, img); err != nil {
		return err
	}

	hostPort, err := runtime.FreePort()
	if err != nil {
		return fmt.Errorf("allocating host port: %w", err)
	}

	spec := runtime.ContainerSpec{
		Name:          inst.ContainerName,
		Image:         img,
		Env:           env,
		Cmd:           cmd,
		ContainerPort: containerPort,
		HostPort:      hostPort,
		Memory:        o.Memory,
		CPUQuota:      o.CPUQuota,
	}
	if o.DataDir != "" && dataPath != "" {
		spec.Binds = []string{filepath.Join(o.DataDir, inst.ContainerName) + ":" + dataPath}
	}

	id, err := o.Runtime.CreateContainer(ctx, spec)
	if err != nil {
		return err
	}
	if err := o.Runtime.StartContainer(ctx, id); err != nil {
		return err
	}

	inst.ContainerID = id
	inst.HostPort = hostPort

	return Poll(ctx, o.ReadyAttempts, o.ReadyInterval, probe)
}

// newRootPassword generates a transient root credential for engine
// bootstrap. The fixed prefix satisfies the strictest engine password
// policy (SQL Server wants mixed case, a digit and a symbol).
func newRootPassword() (string, error) {
	b := make([]byte, 18)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating root password: %w", err)
	}
	return "Nx1!" + base64.RawURLEncoding.EncodeToString(b), nil
}

// dockerLifecycle provides the container start/stop shared by the engines
// whose lifecycle is purely the container's.
type dockerLifecycle struct {
	opts Options
}

func (d *dockerLifecycle) Start(ctx context.Context, inst *instance.Instance) error {
	return d.opts.Runtime.StartContainer(ctx, inst.ContainerID)
}

func (d *dockerLifecycle) Stop(ctx context.Context, inst *instance.Instance) error {
	return d.opts.Runtime.StopContainer(ctx, inst.ContainerID)
}

func (d *dockerLifecycle) Remove(ctx context.Context, inst *instance.Instance) error {
	return d.opts.Runtime.RemoveContainer(ctx, inst.ContainerID)
}
