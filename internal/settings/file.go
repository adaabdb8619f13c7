package settings

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Load reads a settings file on top of Default(). The format follows the
// extension: .yaml/.yml or .toml. Missing keys keep their defaults.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, err
	}
	s := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &s); err != nil {
			return Settings{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &s); err != nil {
			return Settings{}, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return Settings{}, fmt.Errorf("unsupported settings file extension %q", ext)
	}
	p, ok := LookupPreset(s.Theme)
	if !ok {
		return Settings{}, fmt.Errorf("%w %q in %s", ErrUnknownTheme, s.Theme, path)
	}
	s.Capabilities = p.Capabilities
	return s.Normalize(), nil
}

// Save writes s in the format chosen by the extension, YAML by default.
func Save(path string, s Settings) error {
	var buf bytes.Buffer
	if strings.ToLower(filepath.Ext(path)) == ".toml" {
		if err := toml.NewEncoder(&buf).Encode(s); err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
	} else {
		enc := yaml.NewEncoder(&buf)
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
		_ = enc.Close()
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}
