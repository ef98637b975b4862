package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadYAMLFile decodes the YAML document at path into target. A missing file
// is not an error: target keeps whatever defaults it already holds, and found
// reports false.
func LoadYAMLFile(path string, target any) (found bool, err error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return false, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, target); err != nil {
		return true, fmt.Errorf("decode config %s: %w", path, err)
	}
	return true, nil
}
