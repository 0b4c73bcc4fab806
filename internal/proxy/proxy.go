// Package proxy tells the workspace reverse proxy that routing has changed.
package proxy

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/wsdb/wsmongo/internal/docker"
)

// Notifier is told whenever a routed container appears or is replaced.
type Notifier interface {
	NotifyRoutingChanged(ctx context.Context) error
}

// Nop is a Notifier that does nothing.
type Nop struct{}

// NotifyRoutingChanged implements Notifier.
func (Nop) NotifyRoutingChanged(context.Context) error { return nil }

// ContainerNotifier makes sure the proxy container is running so it picks up
// the new virtual hosts from the engine.
type ContainerNotifier struct {
	engine    docker.Engine
	container string
	logger    *zap.Logger
}

// NewContainerNotifier returns a notifier for the proxy container named container.
func NewContainerNotifier(engine docker.Engine, container string, logger *zap.Logger) *ContainerNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContainerNotifier{engine: engine, container: container, logger: logger}
}

// NotifyRoutingChanged implements Notifier. A missing proxy container is
// logged and otherwise ignored.
func (n *ContainerNotifier) NotifyRoutingChanged(ctx context.Context) error {
	c, err := n.engine.GetContainer(ctx, n.container)
	if err != nil {
		return fmt.Errorf("looking up proxy %s: %w", n.container, err)
	}
	if c == nil {
		n.logger.Warn("proxy container not found, routing not refreshed", zap.String("container", n.container))
		return nil
	}

	state, err := c.Inspect(ctx)
	if err != nil {
		return fmt.Errorf("inspecting proxy %s: %w", n.container, err)
	}
	if state.Running {
		return nil
	}
	n.logger.Debug("starting proxy", zap.String("container", n.container))
	if err := c.Start(ctx); err != nil {
		return fmt.Errorf("starting proxy %s: %w", n.container, err)
	}
	return nil
}

// Multi notifies every notifier in order and reports all failures.
type Multi []Notifier

// NotifyRoutingChanged implements Notifier.
func (m Multi) NotifyRoutingChanged(ctx context.Context) error {
	var result error
	for _, n := range m {
		if err := n.NotifyRoutingChanged(ctx); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}
