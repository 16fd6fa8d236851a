package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/amrita-ai/amrita/pkg/models"
)

// LoadFile reads a configuration file (.yaml, .yml or .json) over the
// defaults, expanding ${ENV} references, and validates the result.
func LoadFile(path string) (*models.AmritaConfig, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	expanded := []byte(os.ExpandEnv(string(data)))

	cfg := models.DefaultConfig()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parse yaml config %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parse json config %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config extension %q", ext)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}
