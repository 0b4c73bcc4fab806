// Package registry holds the persisted set of managed MongoDB instances.
package registry

import "fmt"

const (
	// DefaultImageName is used when an instance does not override the image.
	DefaultImageName = "mongo"
	// DefaultImageVersion is used when an instance does not pin a version.
	DefaultImageVersion = "latest"

	volumePrefix       = "wocker-mongodb"
	configVolumePrefix = "wocker-mongodb-config"
	containerService   = "mongodb"
	containerSuffix    = "ws"
)

// Instance is one managed MongoDB service.
//
// Volume names are resolved on read: an explicit override wins, otherwise the
// name derived from Name is returned. Nothing is cached, so a resolved name is
// stable for as long as Name and the override are.
type Instance struct {
	Name         string
	ImageName    string
	ImageVersion string
	Username     string
	Password     string

	// StorageOverride and ConfigStorageOverride are empty unless the operator
	// pointed the instance at an existing volume.
	StorageOverride       string
	ConfigStorageOverride string
}

// ContainerName returns the container name for the instance, e.g. "mongodb-db1.ws".
func (i *Instance) ContainerName() string {
	return fmt.Sprintf("%s-%s.%s", containerService, i.Name, containerSuffix)
}

// Image returns the image reference the container is created from.
func (i *Instance) Image() string {
	name := i.ImageName
	if name == "" {
		name = DefaultImageName
	}
	version := i.ImageVersion
	if version == "" {
		version = DefaultImageVersion
	}
	return name + ":" + version
}

// DefaultStorage is the data volume name derived from the instance name.
func (i *Instance) DefaultStorage() string {
	return volumePrefix + "-" + i.Name
}

// DefaultConfigStorage is the config volume name derived from the instance name.
func (i *Instance) DefaultConfigStorage() string {
	return configVolumePrefix + "-" + i.Name
}

// Storage returns the data volume mounted at /data/db.
func (i *Instance) Storage() string {
	if i.StorageOverride != "" {
		return i.StorageOverride
	}
	return i.DefaultStorage()
}

// ConfigStorage returns the config volume mounted at /data/configdb.
func (i *Instance) ConfigStorage() string {
	if i.ConfigStorageOverride != "" {
		return i.ConfigStorageOverride
	}
	return i.DefaultConfigStorage()
}

// OwnsStorage reports whether the data volume is the one derived from the
// instance name. Only owned volumes are removed on destroy.
func (i *Instance) OwnsStorage() bool {
	return i.Storage() == i.DefaultStorage()
}

// OwnsConfigStorage is OwnsStorage for the config volume.
func (i *Instance) OwnsConfigStorage() bool {
	return i.ConfigStorage() == i.DefaultConfigStorage()
}

// Clone returns a copy that can be mutated without touching the registry entry.
func (i *Instance) Clone() *Instance {
	c := *i
	return &c
}
