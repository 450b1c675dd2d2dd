// Package config loads server configuration from an optional YAML file
// with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/outbank-dev/outbank-mcp/internal/exclusion"
)

// DefaultPath is the config file looked up when no --config flag is given.
// A missing default file is fine; the environment alone is enough.
const DefaultPath = "outbank-mcp.yaml"

// Transport modes.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Config is the top-level server configuration.
type Config struct {
	CSVDir             string      `yaml:"csv_dir"`
	CSVGlob            string      `yaml:"csv_glob"`
	MinScore           float64     `yaml:"min_score"`
	ExcludedCategories string      `yaml:"excluded_categories,omitempty"` // comma-separated
	ExcludedTags       string      `yaml:"excluded_tags,omitempty"`
	Transport          string      `yaml:"transport"`
	HTTP               HTTPConfig  `yaml:"http"`
	Audit              AuditConfig `yaml:"audit"`
}

// HTTPConfig configures the HTTP transport and its middleware.
type HTTPConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	AuthToken      string `yaml:"auth_token,omitempty"`
	RateLimit      string `yaml:"rate_limit,omitempty"` // "100/minute", "10/s" or plain req/s
	MaxRequestSize int    `yaml:"max_request_size"`
}

// AuditConfig controls the append-only invocation log. Enabled defaults to
// on for HTTP transport and off for stdio when left unset.
type AuditConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	LogPath string `yaml:"log_path"`
}

// Default returns a Config with the stock defaults.
func Default() *Config {
	return &Config{
		CSVDir:    "./outbank_exports",
		CSVGlob:   "*.csv",
		MinScore:  0.55,
		Transport: TransportStdio,
		HTTP: HTTPConfig{
			Host:           "127.0.0.1",
			Port:           6668,
			MaxRequestSize: 1 << 20,
		},
		Audit: AuditConfig{
			LogPath: "./logs/audit.log",
		},
	}
}

// Load reads the YAML file at path (if present), then applies environment
// overrides. A missing file is only an error when path is not DefaultPath.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case os.IsNotExist(err) && path == DefaultPath:
		// No config file; environment and defaults apply.
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.CSVDir = getEnv("OUTBANK_CSV_DIR", c.CSVDir)
	c.CSVGlob = getEnv("OUTBANK_CSV_GLOB", c.CSVGlob)
	c.ExcludedCategories = getEnv("EXCLUDED_CATEGORIES", c.ExcludedCategories)
	c.ExcludedTags = getEnv("EXCLUDED_TAGS", c.ExcludedTags)
	c.Transport = strings.ToLower(strings.TrimSpace(getEnv("MCP_TRANSPORT", c.Transport)))
	c.HTTP.Host = getEnv("MCP_HOST", c.HTTP.Host)
	c.HTTP.AuthToken = strings.TrimSpace(getEnv("MCP_HTTP_AUTH_TOKEN", c.HTTP.AuthToken))
	c.HTTP.RateLimit = getEnv("MCP_RATE_LIMIT", c.HTTP.RateLimit)
	c.Audit.LogPath = getEnv("MCP_AUDIT_LOG", c.Audit.LogPath)

	var err error
	if c.MinScore, err = getEnvFloat("MCP_MIN_SCORE", c.MinScore); err != nil {
		return err
	}
	if c.HTTP.Port, err = getEnvInt("MCP_PORT", c.HTTP.Port); err != nil {
		return err
	}
	if c.HTTP.MaxRequestSize, err = getEnvInt("MCP_MAX_REQUEST_SIZE", c.HTTP.MaxRequestSize); err != nil {
		return err
	}
	if v, ok := os.LookupEnv("MCP_AUDIT_ENABLED"); ok {
		enabled := parseBool(v)
		c.Audit.Enabled = &enabled
	}
	return nil
}

// Validate checks the configuration and returns a descriptive error for
// the first problem found.
func (c *Config) Validate() error {
	if c.Transport != TransportStdio && c.Transport != TransportHTTP {
		return fmt.Errorf("transport must be %q or %q, got %q", TransportStdio, TransportHTTP, c.Transport)
	}
	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 1 and 65535", c.HTTP.Port)
	}
	if c.MinScore < 0 || c.MinScore > 1 {
		return fmt.Errorf("min_score must be between 0 and 1, got %v", c.MinScore)
	}
	if c.HTTP.MaxRequestSize < 1 {
		return fmt.Errorf("max_request_size must be positive, got %d", c.HTTP.MaxRequestSize)
	}
	return nil
}

// ValidateAuthToken enforces the minimum token strength for HTTP transport
// and returns advisory warnings for weak-but-accepted tokens.
func (c *Config) ValidateAuthToken() ([]string, error) {
	token := c.HTTP.AuthToken
	if token == "" {
		return nil, fmt.Errorf("an auth token is required when using HTTP transport; " +
			"set MCP_HTTP_AUTH_TOKEN or use stdio transport for local-only access " +
			"(generate one with: outbank-mcp token)")
	}
	if len(token) < 16 {
		return nil, fmt.Errorf("auth token must be at least 16 characters long (current: %d); "+
			"generate one with: outbank-mcp token", len(token))
	}

	var warnings []string
	if len(token) < 32 {
		warnings = append(warnings, fmt.Sprintf("token is %d characters; 32+ is recommended", len(token)))
	}

	unique := make(map[rune]struct{})
	for _, r := range token {
		unique[r] = struct{}{}
	}
	if len(unique) == 1 {
		warnings = append(warnings, "token contains only one unique character")
	}

	lower := strings.ToLower(token)
	for _, weak := range []string{"password", "secret", "token", "admin", "test", "123456", "qwerty"} {
		if strings.Contains(lower, weak) {
			warnings = append(warnings, "token contains common weak patterns")
			break
		}
	}

	if float64(len(unique))/float64(len([]rune(token))) < 0.3 {
		warnings = append(warnings, "token has low character diversity")
	}

	return warnings, nil
}

// Rules builds the exclusion rules from the configured lists.
func (c *Config) Rules() exclusion.Rules {
	return exclusion.NewRules(c.ExcludedCategories, c.ExcludedTags)
}

// AuditEnabled resolves the audit default: on for HTTP, off for stdio.
func (c *Config) AuditEnabled() bool {
	if c.Audit.Enabled != nil {
		return *c.Audit.Enabled
	}
	return c.Transport == TransportHTTP
}

// RatePerSecond parses the rate limit setting into requests per second.
// Accepts a plain number (req/s) or "<count>/<period>" where period is
// second, minute or hour. Returns false when unset or unparseable.
func (c *Config) RatePerSecond() (float64, bool) {
	value := strings.TrimSpace(c.HTTP.RateLimit)
	if value == "" {
		return 0, false
	}

	if rps, err := strconv.ParseFloat(value, 64); err == nil {
		return rps, rps > 0
	}

	countStr, period, ok := strings.Cut(value, "/")
	if !ok {
		return 0, false
	}
	count, err := strconv.ParseFloat(strings.TrimSpace(countStr), 64)
	if err != nil || count <= 0 {
		return 0, false
	}
	switch strings.ToLower(strings.TrimSpace(period)) {
	case "second", "sec", "s":
		return count, true
	case "hour", "hr", "h":
		return count / 3600.0, true
	default:
		// Unknown periods are read as per-minute.
		return count / 60.0, true
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, value)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", key, value)
	}
	return f, nil
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
