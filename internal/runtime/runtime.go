// Package runtime wraps the container engine used to host database
// instances.
package runtime

import "context"

// ContainerSpec describes a container to be created.
type ContainerSpec struct {
	Name          string
	Image         string
	Env           []string
	Cmd           []string
	ContainerPort int // the engine's native port inside the container
	HostPort      int // host-side port bound to ContainerPort
	Memory        int64
	CPUQuota      int64
	Binds         []string // optional bind mounts, "host:container"
}

// Runtime is the container engine client: image pull, container
// create/start/stop/remove and image listing.
type Runtime interface {
	EnsureImage(ctx context.Context, ref string) error
	CreateContainer(ctx context.Context, spec ContainerSpec) (string, error)
	StartContainer(ctx context.Context, id string) error
	StopContainer(ctx context.Context, id string) error
	RemoveContainer(ctx context.Context, id string) error
	ListImages(ctx context.Context) ([]string, error)
	ContainerRunning(ctx context.Context, id string) (bool, error)
}
