package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewConfigDefaultsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	cfg, err := NewConfig(dir)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	if cfg.File.Services.BorrowerHelper != DefaultBorrowerHelperURL {
		t.Fatalf("borrower helper = %s", cfg.File.Services.BorrowerHelper)
	}
	if cfg.Timeout() != DefaultHTTPTimeout {
		t.Fatalf("timeout = %s", cfg.Timeout())
	}
	if cfg.ClearFileOnFailure() {
		t.Fatalf("clear_file_on_failure must default to false")
	}
}

func TestInitPortalDirWritesLoadableConfig(t *testing.T) {
	dir := t.TempDir()
	if err := InitPortalDir(dir); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, PortalDir, "logs")); err != nil {
		t.Fatalf("logs dir missing: %v", err)
	}
	cfg, err := NewConfig(dir)
	if err != nil {
		t.Fatalf("load generated config: %v", err)
	}
	if cfg.File.Services.Letters != DefaultLettersURL {
		t.Fatalf("letters = %s", cfg.File.Services.Letters)
	}
}

func TestNewConfigParsesYamlAndEnv(t *testing.T) {
	dir := t.TempDir()
	portalDir := filepath.Join(dir, PortalDir)
	if err := os.MkdirAll(portalDir, 0o755); err != nil {
		t.Fatal(err)
	}
	configYAML := strings.TrimSpace(`
version: 1
services:
  borrower_helper: http://borrowers.internal:9001/
  underwriter_helper: http://underwriters.internal:9006
http:
  timeout: 3s
workflows:
  clear_file_on_failure: true
`)
	if err := os.WriteFile(filepath.Join(portalDir, "config.yaml"), []byte(configYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORTAL_LETTER_URL", "https://letters.example.com")
	cfg, err := NewConfig(dir)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	if cfg.File.Services.BorrowerHelper != "http://borrowers.internal:9001" {
		t.Fatalf("trailing slash should be trimmed, got %s", cfg.File.Services.BorrowerHelper)
	}
	if cfg.File.Services.Letters != "https://letters.example.com" {
		t.Fatalf("env override ignored: %s", cfg.File.Services.Letters)
	}
	if cfg.Timeout() != 3*time.Second {
		t.Fatalf("timeout = %s", cfg.Timeout())
	}
	if !cfg.ClearFileOnFailure() {
		t.Fatalf("expected clear_file_on_failure from file")
	}
}

func TestNewConfigValidation(t *testing.T) {
	cases := map[string]string{
		"bad scheme":       "services:\n  letters: ftp://letters\n",
		"negative timeout": "http:\n  timeout: -1s\n",
		"garbage timeout":  "http:\n  timeout: soon\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			portalDir := filepath.Join(dir, PortalDir)
			if err := os.MkdirAll(portalDir, 0o755); err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(filepath.Join(portalDir, "config.yaml"), []byte(body), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := NewConfig(dir); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestOverrideServices(t *testing.T) {
	cfg, err := NewConfig(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.OverrideServices("http://127.0.0.1:8080", "", ""); err != nil {
		t.Fatalf("override: %v", err)
	}
	if cfg.File.Services.BorrowerHelper != "http://127.0.0.1:8080" {
		t.Fatalf("borrower helper = %s", cfg.File.Services.BorrowerHelper)
	}
	if cfg.File.Services.UnderwriterHelper != DefaultUnderwriterHelperURL {
		t.Fatalf("empty override must keep existing value")
	}
	if err := cfg.OverrideServices("not a url", "", ""); err == nil {
		t.Fatalf("expected invalid override to fail")
	}
}
