// internal/config/config.go
//
// This package handles configuration and the .portal directory structure.
// Every directory the portal runs from gets a .portal/ folder holding the
// config file and the logs.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// PortalDir is the name of the directory we create in the working directory
	PortalDir = ".portal"

	DefaultBorrowerHelperURL    = "http://localhost:8001"
	DefaultUnderwriterHelperURL = "http://localhost:8006"
	DefaultLettersURL           = "http://localhost:8010"
	DefaultHTTPTimeout          = 15 * time.Second
)

const defaultConfigYAML = `# mortgage portal configuration
version: 1

# Base URLs of the decisioning services.
services:
  borrower_helper: http://localhost:8001
  underwriter_helper: http://localhost:8006
  letters: http://localhost:8010

http:
  timeout: 15s

workflows:
  # Clear the attached document even when the eligibility submission fails.
  clear_file_on_failure: false
`

// ServicesConfig holds the base URL of each collaborator.
type ServicesConfig struct {
	BorrowerHelper    string `yaml:"borrower_helper"`
	UnderwriterHelper string `yaml:"underwriter_helper"`
	Letters           string `yaml:"letters"`
}

// HTTPConfig tunes the outbound client.
type HTTPConfig struct {
	Timeout string `yaml:"timeout"`
}

// WorkflowConfig captures workflow behaviour switches.
type WorkflowConfig struct {
	ClearFileOnFailure bool `yaml:"clear_file_on_failure"`
}

// FileConfig models .portal/config.yaml.
type FileConfig struct {
	Version   int            `yaml:"version"`
	Services  ServicesConfig `yaml:"services"`
	HTTP      HTTPConfig     `yaml:"http"`
	Workflows WorkflowConfig `yaml:"workflows"`
}

// Config holds the runtime configuration for the portal.
type Config struct {
	// WorkDir is the directory the portal was started from
	WorkDir string

	// PortalStateDir is WorkDir/.portal
	PortalStateDir string

	File FileConfig

	timeout time.Duration
}

// InitPortalDir creates the .portal directory structure in dir and writes a
// default config file when none exists.
//
// Structure created:
// .portal/
// ├── config.yaml
// └── logs/      <- journey.log and http.log
func InitPortalDir(dir string) error {
	portalDir := filepath.Join(dir, PortalDir)
	if err := os.MkdirAll(filepath.Join(portalDir, "logs"), 0o755); err != nil {
		return err
	}
	return ensureConfigFile(filepath.Join(portalDir, "config.yaml"))
}

// NewConfig loads .portal/config.yaml (if present) and applies environment
// overrides.
func NewConfig(dir string) (*Config, error) {
	cfg := &Config{
		WorkDir:        dir,
		PortalStateDir: filepath.Join(dir, PortalDir),
		File:           defaultFileConfig(),
	}
	if err := cfg.loadFile(); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.PortalStateDir, "logs")
}

// ConfigPath returns the on-disk location for the config file.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.PortalStateDir, "config.yaml")
}

// Timeout returns the per-request timeout.
func (c *Config) Timeout() time.Duration {
	if c == nil || c.timeout <= 0 {
		return DefaultHTTPTimeout
	}
	return c.timeout
}

// ClearFileOnFailure reports whether a failed eligibility submission still
// clears the attached document.
func (c *Config) ClearFileOnFailure() bool {
	return c != nil && c.File.Workflows.ClearFileOnFailure
}

// OverrideServices replaces any non-empty base URL and revalidates.
func (c *Config) OverrideServices(borrower, underwriter, letters string) error {
	if v := strings.TrimSpace(borrower); v != "" {
		c.File.Services.BorrowerHelper = v
	}
	if v := strings.TrimSpace(underwriter); v != "" {
		c.File.Services.UnderwriterHelper = v
	}
	if v := strings.TrimSpace(letters); v != "" {
		c.File.Services.Letters = v
	}
	return c.finalize()
}

func (c *Config) loadFile() error {
	path := c.ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	var parsed FileConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	parsed.applyDefaults()
	c.File = parsed
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := strings.TrimSpace(os.Getenv("PORTAL_BORROWER_URL")); v != "" {
		c.File.Services.BorrowerHelper = v
	}
	if v := strings.TrimSpace(os.Getenv("PORTAL_UNDERWRITER_URL")); v != "" {
		c.File.Services.UnderwriterHelper = v
	}
	if v := strings.TrimSpace(os.Getenv("PORTAL_LETTER_URL")); v != "" {
		c.File.Services.Letters = v
	}
	if v := strings.TrimSpace(os.Getenv("PORTAL_HTTP_TIMEOUT")); v != "" {
		c.File.HTTP.Timeout = v
	}
}

func (c *Config) finalize() error {
	c.File.normalize()
	if err := c.File.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	timeout, err := time.ParseDuration(c.File.HTTP.Timeout)
	if err != nil {
		return fmt.Errorf("config: http.timeout: %w", err)
	}
	c.timeout = timeout
	return nil
}

func defaultFileConfig() FileConfig {
	fc := FileConfig{}
	fc.applyDefaults()
	return fc
}

func (fc *FileConfig) applyDefaults() {
	if fc.Version == 0 {
		fc.Version = 1
	}
	if strings.TrimSpace(fc.Services.BorrowerHelper) == "" {
		fc.Services.BorrowerHelper = DefaultBorrowerHelperURL
	}
	if strings.TrimSpace(fc.Services.UnderwriterHelper) == "" {
		fc.Services.UnderwriterHelper = DefaultUnderwriterHelperURL
	}
	if strings.TrimSpace(fc.Services.Letters) == "" {
		fc.Services.Letters = DefaultLettersURL
	}
	if strings.TrimSpace(fc.HTTP.Timeout) == "" {
		fc.HTTP.Timeout = DefaultHTTPTimeout.String()
	}
}

func (fc *FileConfig) normalize() {
	fc.Services.BorrowerHelper = normalizeURL(fc.Services.BorrowerHelper)
	fc.Services.UnderwriterHelper = normalizeURL(fc.Services.UnderwriterHelper)
	fc.Services.Letters = normalizeURL(fc.Services.Letters)
	fc.HTTP.Timeout = strings.TrimSpace(fc.HTTP.Timeout)
}

func (fc *FileConfig) validate() error {
	if fc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	for name, raw := range map[string]string{
		"services.borrower_helper":    fc.Services.BorrowerHelper,
		"services.underwriter_helper": fc.Services.UnderwriterHelper,
		"services.letters":            fc.Services.Letters,
	} {
		if err := validateBaseURL(raw); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	timeout, err := time.ParseDuration(fc.HTTP.Timeout)
	if err != nil {
		return fmt.Errorf("http.timeout: %w", err)
	}
	if timeout <= 0 {
		return fmt.Errorf("http.timeout must be positive")
	}
	return nil
}

func normalizeURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}

func validateBaseURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("url is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("url must be http or https, got %q", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("url must include a host, got %q", raw)
	}
	return nil
}

func ensureConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
