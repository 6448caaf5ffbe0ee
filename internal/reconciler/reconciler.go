// Package reconciler keeps persisted instance state in step with the
// container runtime. An instance recorded as active whose container has
// died is marked suspended so clients see the truth.
package reconciler

import (
	"context"
	"log/slog"
	"time"

	"github.com/nexusdb/nexusdb/internal/instance"
	"github.com/nexusdb/nexusdb/internal/runtime"
)

// Reconciler polls instances and reconciles their state with the runtime.
type Reconciler struct {
	repo     instance.Repository
	runtime  runtime.Runtime
	interval time.Duration
}

// New creates a new Reconciler.
func New(repo instance.Repository, rt runtime.Runtime, interval time.Duration) *Reconciler {
	return &Reconciler{
		repo:     repo,
		runtime:  rt,
		interval: interval,
	}
}

// Start begins the reconciliation loop. It blocks until ctx is cancelled.
func (r *Reconciler) Start(ctx context.Context) {
	slog.Info("reconciler started", "interval", r.interval.String())
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("reconciler stopped")
			return
		case <-ticker.C:
			r.reconcile(ctx)
		}
	}
}

func (r *Reconciler) reconcile(ctx context.Context) {
	instances, err := r.repo.GetAll(ctx)
	if err != nil {
		slog.Error("reconciler: failed to list instances", "error", err)
		return
	}

	for i := range instances {
		if ctx.Err() != nil {
			return
		}
		r.reconcileOne(ctx, &instances[i])
	}
}

func (r *Reconciler) reconcileOne(ctx context.Context, inst *instance.Instance) {
	if inst.State != instance.StateActive || inst.ContainerID == "" {
		return
	}

	running, err := r.runtime.ContainerRunning(ctx, inst.ContainerID)
	if err != nil {
		slog.Warn("reconciler: failed to inspect container",
			"instance_id", inst.ID,
			"container_id", inst.ContainerID,
			"error", err,
		)
		return
	}
	if running {
		return
	}

	if err := inst.Suspend(); err != nil {
		slog.Error("reconciler: failed to suspend instance",
			"instance_id", inst.ID,
			"error", err,
		)
		return
	}
	if err := r.repo.Update(ctx, inst); err != nil {
		slog.Error("reconciler: failed to persist instance state",
			"instance_id", inst.ID,
			"error", err,
		)
		return
	}

	slog.Warn("reconciler: instance container not running, marked suspended",
		"instance_id", inst.ID,
		"container_id", inst.ContainerID,
	)
}
