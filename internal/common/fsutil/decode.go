package fsutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// SupportedExt reports whether path has an extension DecodeFile understands.
func SupportedExt(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json", ".toml":
		return true
	}
	return false
}

// DecodeFile reads path and unmarshals it into v based on its extension.
// Supports: .yaml/.yml, .json, .toml
func DecodeFile(path string, v any) error {
	if path == "" {
		return fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return yaml.Unmarshal(b, v)
	case ".json":
		return json.Unmarshal(b, v)
	case ".toml":
		return toml.Unmarshal(b, v)
	default:
		return fmt.Errorf("unsupported config extension: %s", ext)
	}
}
