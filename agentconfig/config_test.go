package agentconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Transport.Name != "grpc" {
		t.Fatalf("expected default transport grpc, got %s", cfg.Transport.Name)
	}
	if cfg.Admin.Port != 8080 {
		t.Fatalf("expected default admin port 8080, got %d", cfg.Admin.Port)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "admin:\n  port: 9999\ntransport:\n  name: s3\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Admin.Port != 9999 {
		t.Fatalf("expected overridden admin port 9999, got %d", cfg.Admin.Port)
	}
	if cfg.Transport.Name != "s3" {
		t.Fatalf("expected overridden transport s3, got %s", cfg.Transport.Name)
	}
	if cfg.Agent.WorkDir != "/var/lib/ulta" {
		t.Fatalf("expected untouched default work_dir, got %s", cfg.Agent.WorkDir)
	}
}

func TestLoad_MissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}
