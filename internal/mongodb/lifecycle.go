package mongodb

import (
	"context"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/wsdb/wsmongo/internal/config"
	"github.com/wsdb/wsmongo/internal/docker"
	"github.com/wsdb/wsmongo/internal/prompt"
	"github.com/wsdb/wsmongo/internal/registry"
)

const (
	configMountPath = "/data/configdb"
	dataMountPath   = "/data/db"
)

// Names end up in container and volume names, so they follow docker's rules.
var namePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

// CreateOptions carries what the operator supplied for a new instance.
// Empty Name, Username and Password are prompted for.
type CreateOptions struct {
	Name     string
	Username string
	Password string
	// PasswordConfirm, when set, must equal Password.
	PasswordConfirm string

	ImageName    string
	ImageVersion string
}

// UpgradeOptions lists the fields to change. Empty fields are left alone.
type UpgradeOptions struct {
	ImageName     string
	ImageVersion  string
	Storage       string
	ConfigStorage string
}

// Row is one line of List.
type Row struct {
	Name          string `json:"name" yaml:"name"`
	IsDefault     bool   `json:"default" yaml:"default"`
	Username      string `json:"username" yaml:"username"`
	Host          string `json:"host" yaml:"host"`
	Image         string `json:"image" yaml:"image"`
	Storage       string `json:"storage" yaml:"storage"`
	ConfigStorage string `json:"configStorage" yaml:"configStorage"`
}

// DisplayName returns the name, marked when it is the default.
func (r Row) DisplayName() string {
	if r.IsDefault {
		return r.Name + " (default)"
	}
	return r.Name
}

// ValidateName rejects names that cannot be used in container and volume names.
func ValidateName(name string) error {
	if name == "" {
		return registry.ErrEmptyName
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("invalid database name %q: use letters, digits, '.', '_' or '-'", name)
	}
	return nil
}

func (s *Service) validateNewName(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if s.registry.Has(name) {
		return fmt.Errorf("database name %q is already taken", name)
	}
	return nil
}

// Create registers a new instance. A supplied name that is already taken
// fails with ErrNameTaken; the caller picks another. No container is started.
func (s *Service) Create(ctx context.Context, opts CreateOptions) (*registry.Instance, error) {
	name := opts.Name
	if name != "" {
		if s.registry.Has(name) {
			return nil, fmt.Errorf("%q: %w", name, ErrNameTaken)
		}
		if err := ValidateName(name); err != nil {
			return nil, err
		}
	} else {
		var err error
		name, err = s.prompter.Input("Database name:", s.validateNewName)
		if err != nil {
			return nil, err
		}
		if s.registry.Has(name) {
			return nil, fmt.Errorf("%q: %w", name, ErrNameTaken)
		}
		if err := ValidateName(name); err != nil {
			return nil, err
		}
	}

	username := opts.Username
	if username == "" {
		var err error
		username, err = s.prompter.Input("Username:", prompt.Required)
		if err != nil {
			return nil, err
		}
	}

	password := opts.Password
	switch {
	case password == "":
		var err error
		password, err = s.prompter.Password("Password:")
		if err != nil {
			return nil, err
		}
		confirm, err := s.prompter.Password("Confirm password:")
		if err != nil {
			return nil, err
		}
		if password != confirm {
			return nil, ErrPasswordMismatch
		}
	case opts.PasswordConfirm != "" && opts.PasswordConfirm != password:
		return nil, ErrPasswordMismatch
	}

	inst := &registry.Instance{
		Name:         name,
		ImageName:    opts.ImageName,
		ImageVersion: opts.ImageVersion,
		Username:     username,
		Password:     password,
	}
	s.registry.Upsert(inst)
	if err := s.registry.Save(); err != nil {
		return nil, err
	}
	s.logger.Debug("created database", zap.String("name", name))
	return inst, nil
}

// Upgrade applies the non-empty fields of opts to the named instance (or the
// default). It reports whether anything changed; nothing is saved otherwise.
// A running container keeps its old settings until it is restarted.
func (s *Service) Upgrade(ctx context.Context, name string, opts UpgradeOptions) (bool, error) {
	current, err := s.registry.Get(name)
	if err != nil {
		return false, err
	}

	inst := current.Clone()
	changed := false
	if opts.ImageName != "" && opts.ImageName != inst.ImageName {
		inst.ImageName = opts.ImageName
		changed = true
	}
	if opts.ImageVersion != "" && opts.ImageVersion != inst.ImageVersion {
		inst.ImageVersion = opts.ImageVersion
		changed = true
	}
	if opts.Storage != "" && opts.Storage != inst.Storage() {
		inst.StorageOverride = opts.Storage
		changed = true
	}
	if opts.ConfigStorage != "" && opts.ConfigStorage != inst.ConfigStorage() {
		inst.ConfigStorageOverride = opts.ConfigStorage
		changed = true
	}

	if !changed {
		return false, nil
	}
	s.registry.Upsert(inst)
	if err := s.registry.Save(); err != nil {
		return false, err
	}
	return true, nil
}

// Start makes sure the instance's container exists and is running. With
// restart an existing container is removed and created afresh. Starting with
// no name on an empty registry creates the first instance.
func (s *Service) Start(ctx context.Context, name string, restart bool) (*registry.Instance, error) {
	if err := s.checkHost(ctx); err != nil {
		return nil, err
	}

	if name == "" && s.registry.Len() == 0 {
		inst, err := s.Create(ctx, CreateOptions{})
		if err != nil {
			return nil, err
		}
		name = inst.Name
	}

	inst, err := s.registry.Get(name)
	if err != nil {
		return nil, err
	}

	c, err := s.engine.GetContainer(ctx, inst.ContainerName())
	if err != nil {
		return nil, fmt.Errorf("looking up %s: %w", inst.ContainerName(), err)
	}

	if restart && c != nil {
		s.logger.Debug("removing container for restart", zap.String("container", inst.ContainerName()))
		if err := s.engine.RemoveContainer(ctx, inst.ContainerName()); err != nil {
			return nil, fmt.Errorf("removing %s: %w", inst.ContainerName(), err)
		}
		c = nil
	}

	if c == nil {
		if c, err = s.createContainer(ctx, inst); err != nil {
			return nil, err
		}
	}

	state, err := c.Inspect(ctx)
	if err != nil {
		return nil, fmt.Errorf("inspecting %s: %w", inst.ContainerName(), err)
	}
	if !state.Running {
		s.logger.Debug("starting container", zap.String("container", inst.ContainerName()))
		if err := c.Start(ctx); err != nil {
			return nil, fmt.Errorf("starting %s: %w", inst.ContainerName(), err)
		}
	}
	return inst, nil
}

func (s *Service) createContainer(ctx context.Context, inst *registry.Instance) (docker.Container, error) {
	for _, vol := range []string{inst.ConfigStorage(), inst.Storage()} {
		if err := s.ensureVolume(ctx, vol); err != nil {
			return nil, err
		}
	}

	spec := docker.ContainerSpec{
		Name:    inst.ContainerName(),
		Image:   inst.Image(),
		Restart: docker.RestartAlways,
		Network: s.settings.Network,
		Env: config.MongoEnv(config.MongoEnvConfig{
			Username: inst.Username,
			Password: inst.Password,
		}),
		Volumes: []string{
			inst.ConfigStorage() + ":" + configMountPath,
			inst.Storage() + ":" + dataMountPath,
		},
	}
	s.logger.Debug("creating container", zap.String("container", spec.Name), zap.String("image", spec.Image))
	c, err := s.engine.CreateContainer(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", spec.Name, err)
	}
	return c, nil
}

func (s *Service) ensureVolume(ctx context.Context, name string) error {
	ok, err := s.engine.HasVolume(ctx, name)
	if err != nil {
		return fmt.Errorf("checking volume %s: %w", name, err)
	}
	if ok {
		return nil
	}
	s.logger.Debug("creating volume", zap.String("volume", name))
	if err := s.engine.CreateVolume(ctx, name); err != nil {
		return fmt.Errorf("creating volume %s: %w", name, err)
	}
	return nil
}

// Stop removes the instance's container (or the default's). A missing
// container is not an error.
func (s *Service) Stop(ctx context.Context, name string) (*registry.Instance, error) {
	inst, err := s.registry.Get(name)
	if err != nil {
		return nil, err
	}
	if err := s.removeContainer(ctx, inst); err != nil {
		return nil, err
	}
	return inst, nil
}

func (s *Service) removeContainer(ctx context.Context, inst *registry.Instance) error {
	s.logger.Debug("removing container", zap.String("container", inst.ContainerName()))
	if err := s.engine.RemoveContainer(ctx, inst.ContainerName()); err != nil {
		return fmt.Errorf("removing %s: %w", inst.ContainerName(), err)
	}
	return nil
}

// Destroy removes the instance, its container, and the volumes it owns.
// Volumes set through Upgrade are never removed. The default instance is
// only destroyed with force, and the operator confirms unless yes is set.
func (s *Service) Destroy(ctx context.Context, name string, yes, force bool) error {
	if err := s.checkHost(ctx); err != nil {
		return err
	}

	if name == "" {
		return fmt.Errorf("%w: destroy needs an explicit database name", registry.ErrNotFound)
	}
	inst, err := s.registry.Lookup(name)
	if err != nil {
		return err
	}

	if s.registry.IsDefault(inst.Name) && !force {
		return fmt.Errorf("%q: %w", inst.Name, ErrProtectedDefault)
	}

	if !yes {
		ok, err := s.prompter.Confirm(fmt.Sprintf("Delete database %q? All of its data will be lost.", inst.Name), false)
		if err != nil {
			return err
		}
		if !ok {
			return ErrCancelled
		}
	}

	if err := s.removeContainer(ctx, inst); err != nil {
		return err
	}

	owned := []struct {
		volume string
		owned  bool
	}{
		{inst.ConfigStorage(), inst.OwnsConfigStorage()},
		{inst.Storage(), inst.OwnsStorage()},
	}
	for _, v := range owned {
		if !v.owned {
			s.logger.Debug("keeping shared volume", zap.String("volume", v.volume))
			continue
		}
		exists, err := s.engine.HasVolume(ctx, v.volume)
		if err != nil {
			return fmt.Errorf("checking volume %s: %w", v.volume, err)
		}
		if !exists {
			continue
		}
		if err := s.engine.RemoveVolume(ctx, v.volume); err != nil {
			return fmt.Errorf("removing volume %s: %w", v.volume, err)
		}
	}

	if err := s.registry.Remove(inst.Name); err != nil {
		return err
	}
	return s.registry.Save()
}

// Use makes name the default instance.
func (s *Service) Use(ctx context.Context, name string) error {
	inst, err := s.registry.Lookup(name)
	if err != nil {
		return err
	}
	if err := s.registry.SetDefault(inst.Name); err != nil {
		return err
	}
	return s.registry.Save()
}

// List returns one row per instance in registry order.
func (s *Service) List() []Row {
	instances := s.registry.Instances()
	rows := make([]Row, 0, len(instances))
	for _, inst := range instances {
		rows = append(rows, Row{
			Name:          inst.Name,
			IsDefault:     s.registry.IsDefault(inst.Name),
			Username:      inst.Username,
			Host:          inst.ContainerName(),
			Image:         inst.Image(),
			Storage:       inst.Storage(),
			ConfigStorage: inst.ConfigStorage(),
		})
	}
	return rows
}
