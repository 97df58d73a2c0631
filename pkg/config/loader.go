package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FromFile reads the YAML file at the given path on top of the default configuration.
func FromFile(path string) (Configuration, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	err = Unmarshal(b, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("read config at %s: %w", path, err)
	}

	return cfg, nil
}

// Unmarshal decodes YAML into cfg, rejecting unknown keys.
func Unmarshal(b []byte, cfg *Configuration) error {
	m := map[string]any{}

	err := yaml.Unmarshal(b, &m)
	if err != nil {
		return err
	}

	b, err = json.Marshal(m)
	if err != nil {
		return fmt.Errorf("load config: marshal config: %w", err)
	}

	d := json.NewDecoder(bytes.NewReader(b))
	d.DisallowUnknownFields()

	return d.Decode(cfg)
}
