package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigFileVar names the optional YAML file layered under the environment
const ConfigFileVar = envPrefix + "CONFIG"

// Load reads a flat YAML file of settings and returns a Config where environment
// variables still win. An empty path returns the environment-only Config.
func Load(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		return New(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("[config Load] read %s: %w", path, err)
	}
	values, err := parseValues(raw)
	if err != nil {
		return nil, fmt.Errorf("[config Load] parse %s: %w", path, err)
	}
	return NewWithValues(values), nil
}

func parseValues(raw []byte) (Values, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	values := make(Values, len(doc))
	for k, v := range doc {
		if v == nil {
			continue
		}
		values[strings.ToLower(k)] = fmt.Sprint(v)
	}
	return values, nil
}
