// Package orchestrator coordinates instance provisioning and lifecycle:
// it validates requests, drives the engine providers and keeps the
// persisted instance state in step with the container runtime.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nexusdb/nexusdb/internal/crypto"
	"github.com/nexusdb/nexusdb/internal/instance"
	"github.com/nexusdb/nexusdb/internal/provider"
	"github.com/nexusdb/nexusdb/internal/user"
)

var (
	// ErrCreatorNotFound is returned when the creating user does not exist.
	ErrCreatorNotFound = errors.New("creating user not found")

	// ErrOwnerNotFound is returned when the designated owner does not exist.
	ErrOwnerNotFound = errors.New("owner user not found")

	// ErrOwnerAlreadyHasInstance is returned when the owner already has a
	// live (non-deleted) instance.
	ErrOwnerAlreadyHasInstance = errors.New("owner already has an instance")

	// ErrInstanceNotFound is returned when no live instance exists for the
	// owner.
	ErrInstanceNotFound = errors.New("instance not found")

	// ErrProviderOperationFailed wraps container or bootstrap failures other
	// than a readiness timeout. Nothing is persisted when it is returned.
	ErrProviderOperationFailed = errors.New("provider operation failed")
)

// CreateRequest carries the parameters for provisioning a new instance.
type CreateRequest struct {
	Name            string
	Engine          string
	Username        string
	Password        string
	OwnerUserID     int64
	CreatedByUserID int64
}

// Service orchestrates instance provisioning, lifecycle and query
// execution across the registered engine providers.
type Service struct {
	instances       instance.Repository
	users           user.Repository
	providers       *provider.Registry
	vault           *crypto.Vault
	containerPrefix string
	logger          *slog.Logger
}

// NewService creates a new orchestrator Service.
func NewService(instances instance.Repository, users user.Repository, providers *provider.Registry, vault *crypto.Vault, containerPrefix string, logger *slog.Logger) *Service {
	return &Service{
		instances:       instances,
		users:           users,
		providers:       providers,
		vault:           vault,
		containerPrefix: containerPrefix,
		logger:          logger,
	}
}

// CreateInstance provisions a database container for the owner and persists
// the resulting instance. Exactly one live instance is allowed per owner.
//
// On a readiness timeout the container and a suspended instance record are
// left in place for inspection and the timeout error is returned. Any other
// provider failure persists nothing.
func (s *Service) CreateInstance(ctx context.Context, req CreateRequest) (*instance.Instance, error) {
	if _, err := s.users.GetByID(ctx, req.CreatedByUserID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrCreatorNotFound
		}
		return nil, fmt.Errorf("looking up creator: %w", err)
	}
	if _, err := s.users.GetByID(ctx, req.OwnerUserID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrOwnerNotFound
		}
		return nil, fmt.Errorf("looking up owner: %w", err)
	}

	if _, err := s.instances.GetByOwnerID(ctx, req.OwnerUserID); err == nil {
		return nil, ErrOwnerAlreadyHasInstance
	} else if !errors.Is(err, instance.ErrNotFound) {
		return nil, fmt.Errorf("checking existing instance: %w", err)
	}

	prov, err := s.providers.Resolve(req.Engine)
	if err != nil {
		return nil, err
	}

	encrypted, err := s.vault.Encrypt(req.Password)
	if err != nil {
		return nil, fmt.Errorf("encrypting credential: %w", err)
	}

	inst := instance.New(s.containerPrefix, req.Name, req.Engine, req.Username, encrypted, req.OwnerUserID, req.CreatedByUserID)

	s.logger.Info("provisioning instance",
		"engine", inst.Engine,
		"container", inst.ContainerName,
		"owner_user_id", inst.OwnerUserID)

	if err := prov.CreateContainer(ctx, inst, req.Password); err != nil {
		if errors.Is(err, provider.ErrProvisioningTimeout) {
			// The container exists but the database never came up. Keep
			// the suspended record so an operator can inspect or retry.
			if addErr := s.addInstance(ctx, inst); addErr != nil {
				return nil, addErr
			}
			s.logger.Warn("instance provisioning timed out",
				"container", inst.ContainerName,
				"owner_user_id", inst.OwnerUserID)
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderOperationFailed, err)
	}

	if err := inst.Activate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderOperationFailed, err)
	}

	if err := s.addInstance(ctx, inst); err != nil {
		return nil, err
	}

	s.logger.Info("instance provisioned",
		"instance_id", inst.ID,
		"container_id", inst.ContainerID,
		"host_port", inst.HostPort)

	return inst, nil
}

func (s *Service) addInstance(ctx context.Context, inst *instance.Instance) error {
	if err := s.instances.Add(ctx, inst); err != nil {
		if errors.Is(err, instance.ErrOwnerConflict) {
			return ErrOwnerAlreadyHasInstance
		}
		return fmt.Errorf("persisting instance: %w", err)
	}
	return nil
}

// StartInstance starts the owner's suspended instance and marks it active.
func (s *Service) StartInstance(ctx context.Context, ownerUserID int64) (*instance.Instance, error) {
	inst, prov, err := s.resolve(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}

	if err := prov.Start(ctx, inst); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderOperationFailed, err)
	}
	if err := inst.Activate(); err != nil {
		return nil, err
	}
	if err := s.instances.Update(ctx, inst); err != nil {
		return nil, fmt.Errorf("persisting instance state: %w", err)
	}

	s.logger.Info("instance started", "instance_id", inst.ID, "owner_user_id", ownerUserID)
	return inst, nil
}

// StopInstance stops the owner's instance and marks it suspended.
func (s *Service) StopInstance(ctx context.Context, ownerUserID int64) (*instance.Instance, error) {
	inst, prov, err := s.resolve(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}

	if err := prov.Stop(ctx, inst); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderOperationFailed, err)
	}
	if err := inst.Suspend(); err != nil {
		return nil, err
	}
	if err := s.instances.Update(ctx, inst); err != nil {
		return nil, fmt.Errorf("persisting instance state: %w", err)
	}

	s.logger.Info("instance stopped", "instance_id", inst.ID, "owner_user_id", ownerUserID)
	return inst, nil
}

// DeleteInstance removes the owner's instance container on a best-effort
// basis and marks the record deleted. Removal frees the derived container
// name, so the owner may provision a new instance afterwards. The row is
// kept for audit.
func (s *Service) DeleteInstance(ctx context.Context, ownerUserID int64) error {
	inst, prov, err := s.resolve(ctx, ownerUserID)
	if err != nil {
		return err
	}

	if inst.ContainerID != "" {
		if err := prov.Remove(ctx, inst); err != nil {
			s.logger.Warn("removing container during delete failed",
				"instance_id", inst.ID,
				"container_id", inst.ContainerID,
				"error", err)
		}
	}

	inst.MarkDeleted()
	if err := s.instances.Update(ctx, inst); err != nil {
		return fmt.Errorf("persisting instance state: %w", err)
	}

	s.logger.Info("instance deleted", "instance_id", inst.ID, "owner_user_id", ownerUserID)
	return nil
}

// GetInstance returns the owner's live instance.
func (s *Service) GetInstance(ctx context.Context, ownerUserID int64) (*instance.Instance, error) {
	inst, err := s.instances.GetByOwnerID(ctx, ownerUserID)
	if err != nil {
		if errors.Is(err, instance.ErrNotFound) {
			return nil, ErrInstanceNotFound
		}
		return nil, fmt.Errorf("querying instance: %w", err)
	}
	return inst, nil
}

// ListInstances returns all live instances.
func (s *Service) ListInstances(ctx context.Context) ([]instance.Instance, error) {
	return s.instances.GetAll(ctx)
}

// ExecuteQuery runs an ad-hoc statement against the owner's instance. All
// failures, including a missing instance or an unsupported engine, are
// reported inside the result so callers handle exactly one shape.
func (s *Service) ExecuteQuery(ctx context.Context, ownerUserID int64, statement string) *provider.QueryResult {
	inst, err := s.instances.GetByOwnerID(ctx, ownerUserID)
	if err != nil {
		if errors.Is(err, instance.ErrNotFound) {
			return provider.Fail("no instance found for user %d", ownerUserID)
		}
		return provider.Fail("looking up instance: %v", err)
	}

	prov, err := s.providers.Resolve(inst.Engine)
	if err != nil {
		return provider.Fail("engine %q is not supported", inst.Engine)
	}

	password, err := s.vault.Decrypt(inst.PasswordEncrypted)
	if err != nil {
		s.logger.Error("decrypting instance credential failed", "instance_id", inst.ID, "error", err)
		return provider.Fail("instance credential could not be decrypted")
	}

	return prov.ExecuteQuery(ctx, inst, statement, password)
}

// resolve fetches the owner's live instance together with its provider.
func (s *Service) resolve(ctx context.Context, ownerUserID int64) (*instance.Instance, provider.Provider, error) {
	inst, err := s.GetInstance(ctx, ownerUserID)
	if err != nil {
		return nil, nil, err
	}
	prov, err := s.providers.Resolve(inst.Engine)
	if err != nil {
		return nil, nil, err
	}
	return inst, prov, nil
}
