package config

import (
	"os"
	"strings"
	"time"
)

const (
	envPrefix = "MYVOCAB_"

	appNameVar     = "APP_NAME"
	envVar         = "ENV"
	logLevelVar    = envPrefix + "LOG_LEVEL"
	consoleAddrVar = envPrefix + "CONSOLE_ADDR"
)

// Values holds settings loaded from a config file, keyed by the lowercased
// environment variable name without the MYVOCAB_ prefix (e.g. "api_base_url").
type Values map[string]string

func (v Values) get(envVar, defaultValue string) string {
	if value := os.Getenv(envVar); value != "" {
		return value
	}
	key := strings.ToLower(strings.TrimPrefix(envVar, envPrefix))
	if value, ok := v[key]; ok && value != "" {
		return value
	}
	return defaultValue
}

func (v Values) getDuration(envVar string, defaultValue time.Duration) time.Duration {
	raw := v.get(envVar, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

type EnvVars struct {
	values Values
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return e.values.get(appNameVar, "MyVocab")
}

func (e EnvVars) GetEnv() string {
	return strings.ToUpper(e.values.get(envVar, "DEV"))
}

func (e EnvVars) GetLogLevel() string {
	return e.values.get(logLevelVar, "info")
}

// GetConsoleAddr is the listen address of the local console server, which is also
// where the API redirects to after Google sign-in.
func (e EnvVars) GetConsoleAddr() string {
	return e.values.get(consoleAddrVar, "127.0.0.1:5173")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
