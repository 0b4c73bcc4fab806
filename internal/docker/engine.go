// Package docker is the container engine used to run MongoDB instances.
package docker

import (
	"context"
	"errors"
	"io"
)

// Common errors
var (
	ErrNoSuchContainer = errors.New("no such container")
	ErrNoSuchVolume    = errors.New("no such volume")
	ErrNotRunning      = errors.New("container is not running")
)

// RestartAlways is the only restart policy this tool sets.
const RestartAlways = "always"

// ContainerSpec describes a container to create.
type ContainerSpec struct {
	Name    string
	Image   string
	Restart string
	Network string
	Env     map[string]string
	// Volumes are "<volume>:<path>" binds.
	Volumes []string
}

// State is the runtime state reported by inspect.
type State struct {
	Running bool
	Status  string
}

// Engine is the subset of container engine operations the tool relies on.
type Engine interface {
	// GetContainer returns nil and no error when the container does not exist.
	GetContainer(ctx context.Context, name string) (Container, error)
	CreateContainer(ctx context.Context, spec ContainerSpec) (Container, error)
	// RemoveContainer stops and deletes the container. A missing container is not an error.
	RemoveContainer(ctx context.Context, name string) error

	HasVolume(ctx context.Context, name string) (bool, error)
	CreateVolume(ctx context.Context, name string) error
	RemoveVolume(ctx context.Context, name string) error

	PullImage(ctx context.Context, ref string) error
	// ServerVersion returns the engine's "X.Y.Z" version.
	ServerVersion(ctx context.Context) (string, error)
}

// Container is a handle on an existing container.
type Container interface {
	Name() string
	Inspect(ctx context.Context) (State, error)
	Start(ctx context.Context) error
	// Exec starts a command inside the running container. The returned
	// session must be finished with Wait.
	Exec(ctx context.Context, opts ExecOptions) (ExecSession, error)
}

// ExecOptions describes a command run inside a container.
type ExecOptions struct {
	Command []string
	// Env is set in the command's environment. Values are never placed on a
	// command line.
	Env     map[string]string
	TTY     bool
}

// ExecSession is a process running inside a container.
type ExecSession interface {
	// Stdin feeds the process. Closing it signals end of input.
	Stdin() io.WriteCloser
	// Stdout streams the process output until it exits.
	Stdout() io.Reader
	// Wait blocks until the process exits and reports a non-zero exit as an error.
	Wait() error
	// Terminate kills the process. Wait must still be called.
	Terminate() error
}
