package instance

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// State is the lifecycle state of an instance.
type State string

const (
	StateSuspended State = "suspended"
	StateActive    State = "active"
	StateDeleted   State = "deleted"
)

// ErrInvalidTransition is returned when a state transition is not allowed.
var ErrInvalidTransition = errors.New("invalid state transition")

// Instance represents a provisioned per-owner database: its container, the
// selected engine and the access credential.
type Instance struct {
	ID                int64
	Name              string
	Engine            string
	Username          string
	PasswordEncrypted string // ciphertext only; plaintext is never stored
	OwnerUserID       int64
	CreatedByUserID   int64
	ContainerName     string
	ContainerID       string // set after the runtime creates the container
	HostPort          int    // allocated at container creation
	State             State
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// New constructs a suspended instance with its deterministic container name.
func New(prefix, name, engine, username, passwordEncrypted string, ownerUserID, createdByUserID int64) *Instance {
	return &Instance{
		Name:              name,
		Engine:            engine,
		Username:          username,
		PasswordEncrypted: passwordEncrypted,
		OwnerUserID:       ownerUserID,
		CreatedByUserID:   createdByUserID,
		ContainerName:     DeriveContainerName(prefix, ownerUserID, name),
		State:             StateSuspended,
	}
}

// Activate transitions the instance to active. An active instance must have
// a container id and a host port, so activation without them is rejected.
func (i *Instance) Activate() error {
	if i.State == StateDeleted {
		return fmt.Errorf("%w: cannot activate a deleted instance", ErrInvalidTransition)
	}
	if i.ContainerID == "" || i.HostPort == 0 {
		return fmt.Errorf("%w: container id and host port must be set before activation", ErrInvalidTransition)
	}
	i.State = StateActive
	return nil
}

// Suspend transitions the instance to suspended.
func (i *Instance) Suspend() error {
	if i.State == StateDeleted {
		return fmt.Errorf("%w: cannot suspend a deleted instance", ErrInvalidTransition)
	}
	i.State = StateSuspended
	return nil
}

// MarkDeleted soft-deletes the instance. Deleted is terminal.
func (i *Instance) MarkDeleted() {
	i.State = StateDeleted
}

// DeriveContainerName builds the deterministic container name
// <prefix>-<ownerUserID>-<sanitized name>. The logical name is lowercased
// and any character outside [a-z0-9-] is stripped, which keeps names unique
// per owner on a shared host. Client-supplied container names are ignored.
func DeriveContainerName(prefix string, ownerUserID int64, name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	return fmt.Sprintf("%s-%d-%s", prefix, ownerUserID, b.String())
}
