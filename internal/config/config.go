package config

import "time"

type Config interface {
	EnvConfig
	ClientConfig
	StoreConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetConsoleAddr() string
}

type ClientConfig interface {
	GetAPIBaseURL() string
	GetRequestTimeout() time.Duration
	GetRefreshTimeout() time.Duration
	GetLogoutTimeout() time.Duration
	GetLoginPath() string
	GetHomePath() string
}

type StoreConfig interface {
	GetStoreBackend() string
	GetStoreDir() string
	GetStorePollInterval() time.Duration
	GetKeyringService() string
}

type mainConfig struct {
	EnvVars
	Client
	Store
}

// New returns a Config backed by environment variables only.
func New() Config {
	return NewWithValues(nil)
}

// NewWithValues returns a Config where environment variables take precedence over
// the supplied values, which take precedence over the built-in defaults.
func NewWithValues(values Values) Config {
	return mainConfig{
		EnvVars: EnvVars{values: values},
		Client:  Client{values: values},
		Store:   Store{values: values},
	}
}
