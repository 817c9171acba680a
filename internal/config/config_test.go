package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "PUBLIC_URL", "HISTORY_DSN", "OPERATOR_PASS_HASH", "CORS_ORIGINS", "TOKEN_TTL"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "https://ws.everify.gov.ph/api/dev", cfg.SandboxBaseURL)
	assert.Equal(t, "https://ws.everify.gov.ph/api", cfg.ProductionBaseURL)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.Equal(t, "sqlite", cfg.HistoryDriver)
	assert.Empty(t, cfg.HistoryDSN)
	assert.Empty(t, cfg.OperatorPassHash)
	assert.False(t, cfg.SecureCookies)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:8080"}, cfg.CORSOrigins)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("PUBLIC_URL", "https://tester.example.com")
	t.Setenv("TOKEN_TTL", "5m")
	t.Setenv("HISTORY_LIMIT", "10")
	t.Setenv("HISTORY_DRIVER", "postgres")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("ENABLE_METRICS", "no")

	cfg := FromEnv()

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.True(t, cfg.SecureCookies)
	assert.Equal(t, 5*time.Minute, cfg.TokenTTL)
	assert.Equal(t, 10, cfg.HistoryLimit)
	assert.Equal(t, "postgres", cfg.HistoryDriver)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.False(t, cfg.EnableMetrics)
}

func TestFromEnvIgnoresBadNumbers(t *testing.T) {
	t.Setenv("TOKEN_TTL", "soon")
	t.Setenv("HISTORY_LIMIT", "-3")

	cfg := FromEnv()

	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.Equal(t, 50, cfg.HistoryLimit)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("EVERIFY_TEST_ONLY_VAR=from-file\n"), 0o600))
	t.Setenv("EVERIFY_TEST_ONLY_VAR", "")
	os.Unsetenv("EVERIFY_TEST_ONLY_VAR")

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("EVERIFY_TEST_ONLY_VAR"))
}
