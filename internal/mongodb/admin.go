package mongodb

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/wsdb/wsmongo/internal/config"
	"github.com/wsdb/wsmongo/internal/docker"
	"github.com/wsdb/wsmongo/internal/registry"
)

// DefaultPort is the port mongod listens on inside its container.
const DefaultPort = 27017

// ConnectionURI returns the mongodb:// URI reaching inst over the container network.
func ConnectionURI(inst *registry.Instance) (string, error) {
	u := url.URL{
		Scheme: "mongodb",
		User:   url.UserPassword(inst.Username, inst.Password),
		Host:   net.JoinHostPort(inst.ContainerName(), strconv.Itoa(DefaultPort)),
	}
	uri := u.String()
	if err := options.Client().ApplyURI(uri).Validate(); err != nil {
		return "", fmt.Errorf("connection uri for %s: %w", inst.Name, err)
	}
	return uri, nil
}

// Admin rebuilds the admin console for the first running instance. The old
// console is always removed; a new one is only created when some instance
// is running. Instances that cannot be inspected count as not running.
func (s *Service) Admin(ctx context.Context) (*registry.Instance, error) {
	target := s.firstRunning(ctx)

	s.logger.Debug("removing admin console", zap.String("container", s.settings.Admin.Container))
	if err := s.engine.RemoveContainer(ctx, s.settings.Admin.Container); err != nil {
		return nil, fmt.Errorf("removing %s: %w", s.settings.Admin.Container, err)
	}
	if target == nil {
		return nil, nil
	}

	uri, err := ConnectionURI(target)
	if err != nil {
		return nil, err
	}

	if err := s.engine.PullImage(ctx, s.settings.Admin.Image); err != nil {
		return nil, fmt.Errorf("pulling %s: %w", s.settings.Admin.Image, err)
	}
	c, err := s.engine.CreateContainer(ctx, docker.ContainerSpec{
		Name:    s.settings.Admin.Container,
		Image:   s.settings.Admin.Image,
		Restart: docker.RestartAlways,
		Network: s.settings.Network,
		Env: config.AdminEnv(config.AdminEnvConfig{
			Host:          s.settings.Admin.Host,
			ConnectionURL: uri,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", s.settings.Admin.Container, err)
	}

	state, err := c.Inspect(ctx)
	if err != nil {
		return nil, fmt.Errorf("inspecting %s: %w", s.settings.Admin.Container, err)
	}
	if !state.Running {
		if err := c.Start(ctx); err != nil {
			return nil, fmt.Errorf("starting %s: %w", s.settings.Admin.Container, err)
		}
		if err := s.notifier.NotifyRoutingChanged(ctx); err != nil {
			return nil, fmt.Errorf("refreshing proxy: %w", err)
		}
	}
	return target, nil
}

// firstRunning returns the first instance, in registry order, whose container
// is running. Lookup and inspect failures are logged and skipped.
func (s *Service) firstRunning(ctx context.Context) *registry.Instance {
	for _, inst := range s.registry.Instances() {
		c, err := s.engine.GetContainer(ctx, inst.ContainerName())
		if err != nil {
			s.logger.Warn("treating database as not running",
				zap.String("database", inst.Name), zap.Error(err))
			continue
		}
		if c == nil {
			continue
		}
		state, err := c.Inspect(ctx)
		if err != nil {
			s.logger.Warn("treating database as not running",
				zap.String("database", inst.Name), zap.Error(err))
			continue
		}
		if state.Running {
			// mongo-express takes a single server.
			return inst
		}
	}
	return nil
}
