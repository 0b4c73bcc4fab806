// Package mongodb manages MongoDB instances running as containers: their
// lifecycle, the shared admin console, and backups.
package mongodb

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wsdb/wsmongo/internal/config"
	"github.com/wsdb/wsmongo/internal/deps"
	"github.com/wsdb/wsmongo/internal/docker"
	"github.com/wsdb/wsmongo/internal/prompt"
	"github.com/wsdb/wsmongo/internal/proxy"
	"github.com/wsdb/wsmongo/internal/registry"
)

// Service carries out operations against the registry and the engine.
// Every mutating operation saves the registry before returning.
type Service struct {
	settings *config.Settings
	registry *registry.Registry
	engine   docker.Engine
	prompter prompt.Prompter
	notifier proxy.Notifier
	logger   *zap.Logger

	now   func() time.Time
	newID func() string
	open  func(path string) (io.ReadCloser, error)
}

// NewService wires a Service. A nil prompter never prompts, a nil notifier
// never notifies and a nil logger discards.
func NewService(settings *config.Settings, reg *registry.Registry, engine docker.Engine, prompter prompt.Prompter, notifier proxy.Notifier, logger *zap.Logger) *Service {
	if prompter == nil {
		prompter = prompt.NonInteractive{}
	}
	if notifier == nil {
		notifier = proxy.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		settings: settings,
		registry: reg,
		engine:   engine,
		prompter: prompter,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
		open:     openFile,
	}
}

func openFile(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// Registry returns the registry the service operates on.
func (s *Service) Registry() *registry.Registry {
	return s.registry
}

// checkHost fails with ErrIncompatibleHost when the engine is older than
// the configured minimum.
func (s *Service) checkHost(ctx context.Context) error {
	version, err := s.engine.ServerVersion(ctx)
	if err != nil {
		return fmt.Errorf("checking docker version: %w", err)
	}
	if !deps.AtLeast(version, s.settings.MinDockerVersion) {
		return fmt.Errorf("%w: docker %s is older than %s", ErrIncompatibleHost, version, s.settings.MinDockerVersion)
	}
	return nil
}

// runningContainer returns the instance's container, failing with
// ErrNotRunning when it is absent or stopped.
func (s *Service) runningContainer(ctx context.Context, inst *registry.Instance) (docker.Container, error) {
	c, err := s.engine.GetContainer(ctx, inst.ContainerName())
	if err != nil {
		return nil, fmt.Errorf("looking up %s: %w", inst.ContainerName(), err)
	}
	if c == nil {
		return nil, fmt.Errorf("%s: %w", inst.Name, ErrNotRunning)
	}
	state, err := c.Inspect(ctx)
	if err != nil {
		return nil, fmt.Errorf("inspecting %s: %w", inst.ContainerName(), err)
	}
	if !state.Running {
		return nil, fmt.Errorf("%s: %w", inst.Name, ErrNotRunning)
	}
	return c, nil
}
