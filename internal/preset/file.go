package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/amrita-ai/amrita/pkg/models"
)

// LoadFile reads a single preset from a JSON or YAML file and normalizes
// defaulted fields.
func LoadFile(path string) (models.ModelPreset, error) {
	var p models.ModelPreset
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read preset: %w", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &p)
	default:
		err = json.Unmarshal(data, &p)
	}
	if err != nil {
		return p, fmt.Errorf("parse preset %s: %w", path, err)
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return p.Normalize(), nil
}

// SaveFile writes the preset as pretty-printed JSON (or YAML when the
// extension asks for it). Load(Save(p)) round-trips modulo normalization.
func SaveFile(path string, p models.ModelPreset) error {
	p = p.Normalize()
	var (
		data []byte
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(p)
	default:
		data, err = json.MarshalIndent(p, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode preset: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write preset: %w", err)
	}
	return nil
}
