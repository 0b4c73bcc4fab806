package registry

// Document is the on-disk shape of the registry (config.json).
type Document struct {
	Default   string             `json:"default,omitempty"`
	Databases []InstanceDocument `json:"databases"`
}

// InstanceDocument is one entry of Document.Databases.
type InstanceDocument struct {
	Name          string `json:"name"`
	Username      string `json:"username"`
	Password      string `json:"password"`
	ImageName     string `json:"imageName,omitempty"`
	ImageVersion  string `json:"imageVersion,omitempty"`
	Storage       string `json:"storage,omitempty"`
	ConfigStorage string `json:"configStorage,omitempty"`

	// Older releases wrote the volume names under these keys. They are read
	// but never written back.
	Volume       string `json:"volume,omitempty"`
	ConfigVolume string `json:"configVolume,omitempty"`
}

func instanceFromDocument(d InstanceDocument) *Instance {
	inst := &Instance{
		Name:                  d.Name,
		Username:              d.Username,
		Password:              d.Password,
		ImageName:             d.ImageName,
		ImageVersion:          d.ImageVersion,
		StorageOverride:       d.Storage,
		ConfigStorageOverride: d.ConfigStorage,
	}
	if inst.StorageOverride == "" {
		inst.StorageOverride = d.Volume
	}
	if inst.ConfigStorageOverride == "" {
		inst.ConfigStorageOverride = d.ConfigVolume
	}
	return inst
}

func instanceToDocument(i *Instance) InstanceDocument {
	return InstanceDocument{
		Name:          i.Name,
		Username:      i.Username,
		Password:      i.Password,
		ImageName:     i.ImageName,
		ImageVersion:  i.ImageVersion,
		Storage:       i.StorageOverride,
		ConfigStorage: i.ConfigStorageOverride,
	}
}
