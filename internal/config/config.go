package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr  string
	PublicURL string

	LogLevel  string // debug|info|warn|error
	LogFormat string // text|json

	SessionSecret    string
	SessionMaxAge    time.Duration
	SecureCookies    bool
	WorkspaceIdleTTL time.Duration
	SweepInterval    time.Duration

	// eVerify client
	SandboxBaseURL    string
	ProductionBaseURL string
	ClientTimeout     time.Duration
	TokenTTL          time.Duration

	HistoryDriver string // sqlite|postgres
	HistoryDSN    string // empty = in-memory sqlite
	HistoryLimit  int

	CORSOrigins []string

	OperatorUser     string
	OperatorPassHash string // bcrypt; empty disables the gate

	EnableMetrics bool
}

// LoadDotEnv loads the given .env files into the process environment.
// Missing files are skipped; variables already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func FromEnv() Config {
	pub := os.Getenv("PUBLIC_URL")
	return Config{
		HTTPAddr:  envOr("HTTP_ADDR", ":8080"),
		PublicURL: pub,

		LogLevel:  envOr("LOG_LEVEL", "info"),
		LogFormat: envOr("LOG_FORMAT", "text"),

		SessionSecret:    envOr("SESSION_SECRET", "everify-tester-dev-session-key"),
		SessionMaxAge:    envDuration("SESSION_MAX_AGE", 12*time.Hour),
		SecureCookies:    envBool("SECURE_COOKIES", strings.HasPrefix(pub, "https://")),
		WorkspaceIdleTTL: envDuration("WORKSPACE_IDLE_TTL", 2*time.Hour),
		SweepInterval:    envDuration("WORKSPACE_SWEEP_INTERVAL", 5*time.Minute),

		SandboxBaseURL:    envOr("SANDBOX_BASE_URL", "https://ws.everify.gov.ph/api/dev"),
		ProductionBaseURL: envOr("PRODUCTION_BASE_URL", "https://ws.everify.gov.ph/api"),
		ClientTimeout:     envDuration("HTTP_CLIENT_TIMEOUT", 30*time.Second),
		TokenTTL:          envDuration("TOKEN_TTL", 30*time.Minute),

		HistoryDriver: envOr("HISTORY_DRIVER", "sqlite"),
		HistoryDSN:    os.Getenv("HISTORY_DSN"),
		HistoryLimit:  envInt("HISTORY_LIMIT", 50),

		CORSOrigins: csvOr("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"),

		OperatorUser:     envOr("OPERATOR_USER", "operator"),
		OperatorPassHash: os.Getenv("OPERATOR_PASS_HASH"),

		EnableMetrics: envBool("ENABLE_METRICS", true),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envInt(k string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(k)); err == nil && n > 0 {
		return n
	}
	return def
}
func envDuration(k string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(k)); err == nil && d > 0 {
		return d
	}
	return def
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
