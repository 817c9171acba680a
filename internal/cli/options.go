package cli

import "time"

type Options struct {
	Environment  string        `short:"e" long:"environment" env:"EVERIFY_ENVIRONMENT" default:"sandbox" description:"sandbox or production"`
	Tier         string        `short:"t" long:"tier" env:"EVERIFY_TIER" default:"tier1" description:"sandbox credential preset (tier1 or tier2)"`
	ClientID     string        `long:"client-id" env:"EVERIFY_CLIENT_ID" description:"client id, overrides the preset"`
	ClientSecret string        `long:"client-secret" env:"EVERIFY_CLIENT_SECRET" description:"client secret, overrides the preset"`
	APIKey       string        `long:"api-key" env:"EVERIFY_API_KEY" description:"API key, overrides the preset"`
	EnvFile      string        `long:"env-file" default:".env" description:".env file to load before reading the environment"`
	Timeout      time.Duration `long:"timeout" env:"HTTP_CLIENT_TIMEOUT" default:"30s" description:"HTTP client timeout"`
	SandboxURL   string        `long:"sandbox-url" env:"SANDBOX_BASE_URL" description:"override the sandbox base URL"`
	ProdURL      string        `long:"production-url" env:"PRODUCTION_BASE_URL" description:"override the production base URL"`

	Action     string `short:"a" long:"action" choice:"authenticate" choice:"verify-person" choice:"qr-check" choice:"qr-verify" description:"run one action and exit"`
	QRValue    string `long:"qr-value" description:"QR value for qr-check and qr-verify (default: the Digital ID sample)"`
	LivenessID string `long:"liveness-id" description:"face liveness session id for qr-verify"`
}
