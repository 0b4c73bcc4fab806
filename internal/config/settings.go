// Package config provides settings loading and container environment generation.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// HomeEnv overrides the default home directory.
const HomeEnv = "WSMONGO_HOME"

// DockerEnv overrides the docker binary.
const DockerEnv = "WSMONGO_DOCKER"

const (
	settingsFile = "settings.toml"
	registryFile = "config.json"
	backupDir    = "backup"

	defaultWebhookRetries = 3
)

// Settings is the optional settings.toml in the home directory.
// Zero values are replaced by defaults in Load, except webhook_retries,
// which only defaults when the key is absent so 0 disables retries.
type Settings struct {
	// Home is the directory holding settings, the registry and backups.
	Home string `toml:"-"`

	Network          string `toml:"network"`
	DockerBinary     string `toml:"docker_binary"`
	MinDockerVersion string `toml:"min_docker_version"`
	BackupDir        string `toml:"backup_dir"`

	Admin AdminSettings `toml:"admin"`
	Proxy ProxySettings `toml:"proxy"`
}

// AdminSettings configures the mongo-express console.
type AdminSettings struct {
	Image     string `toml:"image"`
	Container string `toml:"container"`
	// Host is the virtual host the reverse proxy routes to the console.
	// Defaults to the container name.
	Host string `toml:"host"`
}

// ProxySettings configures how the reverse proxy is told about routing changes.
type ProxySettings struct {
	Container      string `toml:"container"`
	WebhookURL     string `toml:"webhook_url"`
	WebhookRetries int    `toml:"webhook_retries"`
}

// Defaults returns settings rooted at home with every default filled in.
func Defaults(home string) *Settings {
	s := &Settings{Home: home}
	s.Proxy.WebhookRetries = defaultWebhookRetries
	s.applyDefaults()
	return s
}

func (s *Settings) applyDefaults() {
	if s.Network == "" {
		s.Network = "workspace"
	}
	if s.DockerBinary == "" {
		s.DockerBinary = "docker"
	}
	if s.MinDockerVersion == "" {
		s.MinDockerVersion = "20.10.0"
	}
	if s.BackupDir == "" {
		s.BackupDir = filepath.Join(s.Home, backupDir)
	}
	if s.Admin.Image == "" {
		s.Admin.Image = "mongo-express:latest"
	}
	if s.Admin.Container == "" {
		s.Admin.Container = "dbadmin-mongodb.workspace"
	}
	if s.Admin.Host == "" {
		s.Admin.Host = s.Admin.Container
	}
	if s.Proxy.Container == "" {
		s.Proxy.Container = "proxy.workspace"
	}
}

// ResolveHome picks the home directory: explicit flag, then $WSMONGO_HOME,
// then ~/.wsmongo.
func ResolveHome(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if env := os.Getenv(HomeEnv); env != "" {
		return env, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}
	return filepath.Join(home, ".wsmongo"), nil
}

// Load reads <home>/settings.toml if present and fills in defaults.
func Load(home string) (*Settings, error) {
	s := &Settings{}
	path := filepath.Join(home, settingsFile)

	md, err := toml.DecodeFile(path, s)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	s.Home = home

	if !md.IsDefined("proxy", "webhook_retries") {
		s.Proxy.WebhookRetries = defaultWebhookRetries
	}
	if s.Proxy.WebhookRetries < 0 {
		return nil, fmt.Errorf("reading %s: webhook_retries must not be negative", path)
	}

	if bin := os.Getenv(DockerEnv); bin != "" {
		s.DockerBinary = bin
	}
	if s.BackupDir != "" && !filepath.IsAbs(s.BackupDir) {
		s.BackupDir = filepath.Join(home, s.BackupDir)
	}
	s.applyDefaults()
	return s, nil
}

// RegistryPath is the JSON document holding the instances.
func (s *Settings) RegistryPath() string {
	return filepath.Join(s.Home, registryFile)
}

// SettingsPath is the TOML settings file.
func (s *Settings) SettingsPath() string {
	return filepath.Join(s.Home, settingsFile)
}

// InstanceBackupDir is where backups of one instance are kept.
func (s *Settings) InstanceBackupDir(instance string) string {
	return filepath.Join(s.BackupDir, instance)
}

// DatabaseBackupDir is where backups of one logical database are kept.
func (s *Settings) DatabaseBackupDir(instance, database string) string {
	return filepath.Join(s.BackupDir, instance, database)
}
