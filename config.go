package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// loadConfig reads the yaml configuration file. An empty file name yields an empty configuration.
func loadConfig(file string) (map[string]any, error) {
	other := make(map[string]any)
	if file == "" {
		return other, nil
	}

	b, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("could not read config: %w", err)
	}

	if err := yaml.Unmarshal(b, &other); err != nil {
		return nil, fmt.Errorf("could not parse config %s: %w", file, err)
	}

	if other == nil {
		other = make(map[string]any)
	}

	return other, nil
}

// overrides sets all non-empty values on the configuration
func overrides(other map[string]any, values map[string]string) {
	for key, val := range values {
		if val != "" {
			other[key] = val
		}
	}
}
