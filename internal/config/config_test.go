package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "./outbank_exports", cfg.CSVDir)
	assert.Equal(t, "*.csv", cfg.CSVGlob)
	assert.Equal(t, 0.55, cfg.MinScore)
	assert.Equal(t, TransportStdio, cfg.Transport)
	assert.Equal(t, "127.0.0.1", cfg.HTTP.Host)
	assert.Equal(t, 6668, cfg.HTTP.Port)
	assert.Equal(t, 1<<20, cfg.HTTP.MaxRequestSize)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingDefaultFileIsFine(t *testing.T) {
	cfg, err := Load(DefaultPath)
	require.NoError(t, err)
	assert.Equal(t, TransportStdio, cfg.Transport)
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	content := `
csv_dir: /data/exports
min_score: 0.7
transport: http
http:
  host: 0.0.0.0
  port: 9000
  rate_limit: 100/minute
excluded_categories: Transfer, Internal
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/exports", cfg.CSVDir)
	assert.Equal(t, 0.7, cfg.MinScore)
	assert.Equal(t, TransportHTTP, cfg.Transport)
	assert.Equal(t, "0.0.0.0", cfg.HTTP.Host)
	assert.Equal(t, 9000, cfg.HTTP.Port)
	// File values that yaml leaves unset keep their defaults.
	assert.Equal(t, "*.csv", cfg.CSVGlob)

	rules := cfg.Rules()
	assert.False(t, rules.Empty())
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("csv_dir: /from/file\n"), 0o644))

	t.Setenv("OUTBANK_CSV_DIR", "/from/env")
	t.Setenv("MCP_TRANSPORT", " HTTP ")
	t.Setenv("MCP_PORT", "8443")
	t.Setenv("MCP_MIN_SCORE", "0.8")
	t.Setenv("MCP_AUDIT_ENABLED", "false")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.CSVDir)
	assert.Equal(t, TransportHTTP, cfg.Transport, "transport is trimmed and lowercased")
	assert.Equal(t, 8443, cfg.HTTP.Port)
	assert.Equal(t, 0.8, cfg.MinScore)
	assert.False(t, cfg.AuditEnabled(), "explicit env setting beats the HTTP default")
}

func TestEnvBadNumbersFail(t *testing.T) {
	t.Setenv("MCP_PORT", "not-a-port")
	_, err := Load(DefaultPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MCP_PORT")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Transport = "carrier-pigeon"
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.HTTP.Port = 0
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.MinScore = 1.5
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.HTTP.MaxRequestSize = 0
	require.Error(t, cfg.Validate())
}

func TestAuditEnabledDefaults(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.AuditEnabled(), "stdio defaults to no audit log")

	cfg.Transport = TransportHTTP
	assert.True(t, cfg.AuditEnabled(), "http defaults to auditing on")

	off := false
	cfg.Audit.Enabled = &off
	assert.False(t, cfg.AuditEnabled())
}

func TestRatePerSecond(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"", 0, false},
		{"10", 10, true},
		{"0", 0, false},
		{"60/minute", 1, true},
		{"5/second", 5, true},
		{"3600/hour", 1, true},
		{"120/fortnight", 2, true}, // unknown periods read as per-minute
		{"banana/minute", 0, false},
		{"//", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			cfg := Default()
			cfg.HTTP.RateLimit = tt.raw
			rps, ok := cfg.RatePerSecond()
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, rps, 1e-9)
			}
		})
	}
}

func TestValidateAuthToken(t *testing.T) {
	cfg := Default()
	cfg.Transport = TransportHTTP

	_, err := cfg.ValidateAuthToken()
	require.Error(t, err, "empty token is rejected")

	cfg.HTTP.AuthToken = "short"
	_, err = cfg.ValidateAuthToken()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 16 characters")

	cfg.HTTP.AuthToken = "password12345678"
	warnings, err := cfg.ValidateAuthToken()
	require.NoError(t, err)
	assert.NotEmpty(t, warnings, "weak patterns are accepted with warnings")

	cfg.HTTP.AuthToken = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	warnings, err = cfg.ValidateAuthToken()
	require.NoError(t, err)
	assert.NotEmpty(t, warnings, "single-character tokens warn")

	cfg.HTTP.AuthToken = "kQ9vX2mRfLp7TzWc4bNyE8dHs6gJa3Uw"
	warnings, err = cfg.ValidateAuthToken()
	require.NoError(t, err)
	assert.Empty(t, warnings)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.CSVDir = "/some/dir"
	cfg.HTTP.Port = 7000
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/some/dir", loaded.CSVDir)
	assert.Equal(t, 7000, loaded.HTTP.Port)
}
