package config

import (
	"os"
	"path/filepath"
	"testing"
)

type fileTestConfig struct {
	Server string `yaml:"server"`
	OutDir string `yaml:"out_dir"`
}

func TestLoadYAMLFileMissingKeepsDefaults(t *testing.T) {
	t.Parallel()

	cfg := fileTestConfig{Server: "http://localhost:8093"}
	found, err := LoadYAMLFile(filepath.Join(t.TempDir(), "absent.yaml"), &cfg)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if found {
		t.Fatal("expected missing file to report found=false")
	}
	if cfg.Server != "http://localhost:8093" {
		t.Fatalf("server = %q, want default", cfg.Server)
	}
}

func TestLoadYAMLFileOverridesFields(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: https://stock.example.com\nout_dir: labels\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg := fileTestConfig{Server: "http://localhost:8093"}
	found, err := LoadYAMLFile(path, &cfg)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !found {
		t.Fatal("expected found=true")
	}
	if cfg.Server != "https://stock.example.com" || cfg.OutDir != "labels" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadYAMLFileRejectsMalformedDocument(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [unterminated\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	var cfg fileTestConfig
	if _, err := LoadYAMLFile(path, &cfg); err == nil {
		t.Fatal("expected decode error")
	}
}
