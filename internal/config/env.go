package config

// MongoEnvConfig specifies the credentials a database container starts with.
type MongoEnvConfig struct {
	// Username and Password are the root credentials.
	Username string
	Password string
}

// MongoEnv returns the environment for a database container.
// The official image reads MONGO_INITDB_ROOT_*; MONGO_ROOT_* are kept for
// images that still use the older names.
func MongoEnv(cfg MongoEnvConfig) map[string]string {
	return map[string]string{
		"MONGO_INITDB_ROOT_USERNAME": cfg.Username,
		"MONGO_INITDB_ROOT_PASSWORD": cfg.Password,
		"MONGO_ROOT_USER":            cfg.Username,
		"MONGO_ROOT_PASSWORD":        cfg.Password,
	}
}

// AdminEnvConfig specifies the configuration of the admin console container.
type AdminEnvConfig struct {
	// Host is the virtual host the reverse proxy serves the console on.
	Host string

	// ConnectionURL is the single mongodb:// URL the console connects to.
	// mongo-express cannot talk to more than one server.
	ConnectionURL string
}

// AdminEnv returns the environment for the mongo-express container.
func AdminEnv(cfg AdminEnvConfig) map[string]string {
	return map[string]string{
		"VIRTUAL_HOST":                   cfg.Host,
		"VIRTUAL_PORT":                   "80",
		"VCAP_APP_HOST":                  cfg.Host,
		"PORT":                           "80",
		"ME_CONFIG_BASICAUTH":            "false",
		"ME_CONFIG_BASICAUTH_USERNAME":   "",
		"ME_CONFIG_BASICAUTH_PASSWORD":   "",
		"ME_CONFIG_MONGODB_ENABLE_ADMIN": "true",
		"ME_CONFIG_MONGODB_URL":          cfg.ConnectionURL,
	}
}
