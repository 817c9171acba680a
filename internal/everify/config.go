// Package everify holds the configuration, session and request-dispatch
// policy used to drive the PSA eVerify REST API by hand.
package everify

import (
	"fmt"
	"strings"
	"sync"
)

type Environment string

const (
	Sandbox    Environment = "sandbox"
	Production Environment = "production"
)

type Tier string

const (
	Tier1 Tier = "tier1"
	Tier2 Tier = "tier2"
)

const (
	SandboxBaseURL    = "https://ws.everify.gov.ph/api/dev"
	ProductionBaseURL = "https://ws.everify.gov.ph/api"
)

// Credentials is the client/secret/key triple a tier preset fills in.
type Credentials struct {
	ClientID     string
	ClientSecret string
	APIKey       string
}

var (
	tier1Preset = Credentials{
		ClientID:     "tier-1-client-id",
		ClientSecret: "tier-1-client-secret",
		APIKey:       "TIER 1 TOKEN",
	}
	tier2Preset = Credentials{
		ClientID:     "tier-2-client-id",
		ClientSecret: "tier-2-client-secret",
		APIKey:       "TIER 2 TOKEN",
	}
)

// Preset returns the sandbox credentials for a tier. Anything that is not
// tier1 gets the tier-2 preset.
func Preset(t Tier) Credentials {
	if t == Tier1 {
		return tier1Preset
	}
	return tier2Preset
}

type Config struct {
	Environment  Environment `json:"environment"`
	Tier         Tier        `json:"tier"`
	ClientID     string      `json:"clientId"`
	ClientSecret string      `json:"clientSecret"`
	APIKey       string      `json:"apiKey"`
}

// DefaultConfig is the tier-1 sandbox configuration a fresh store starts with.
func DefaultConfig() Config {
	p := Preset(Tier1)
	return Config{
		Environment:  Sandbox,
		Tier:         Tier1,
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		APIKey:       p.APIKey,
	}
}

// CanAuthenticate gates the authenticate button; the dispatcher does not enforce it.
func (c Config) CanAuthenticate() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

func (c Config) TierLabel() string {
	if c.Tier == Tier1 {
		return "Tier I"
	}
	return "Tier II"
}

// Redacted masks the secret and the API key. Client id stays readable.
func (c Config) Redacted() Config {
	c.ClientSecret = Mask(c.ClientSecret)
	c.APIKey = Mask(c.APIKey)
	return c
}

type Field string

const (
	FieldEnvironment  Field = "environment"
	FieldTier         Field = "tier"
	FieldClientID     Field = "clientId"
	FieldClientSecret Field = "clientSecret"
	FieldAPIKey       Field = "apiKey"
)

// Endpoints maps each environment to its base URL.
type Endpoints struct {
	Sandbox    string
	Production string
}

func DefaultEndpoints() Endpoints {
	return Endpoints{Sandbox: SandboxBaseURL, Production: ProductionBaseURL}
}

// BaseURL resolves env the same way the operator UI does: sandbox is the dev
// endpoint and every other value is production.
func (e Endpoints) BaseURL(env Environment) string {
	if env == Sandbox {
		return strings.TrimRight(e.Sandbox, "/")
	}
	return strings.TrimRight(e.Production, "/")
}

// Store is the configuration store. Values are never validated.
type Store struct {
	mu        sync.RWMutex
	cfg       Config
	endpoints Endpoints
}

// NewStore returns a store holding DefaultConfig. Empty endpoint entries fall
// back to the fixed eVerify URLs.
func NewStore(endpoints Endpoints) *Store {
	def := DefaultEndpoints()
	if endpoints.Sandbox == "" {
		endpoints.Sandbox = def.Sandbox
	}
	if endpoints.Production == "" {
		endpoints.Production = def.Production
	}
	return &Store{cfg: DefaultConfig(), endpoints: endpoints}
}

func (s *Store) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *Store) BaseURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.endpoints.BaseURL(s.cfg.Environment)
}

// Set overwrites one field. Changing the tier while in sandbox also replaces
// all three credentials with that tier's preset, in the same critical section.
func (s *Store) Set(field Field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch field {
	case FieldEnvironment:
		s.cfg.Environment = Environment(value)
	case FieldTier:
		s.cfg.Tier = Tier(value)
		if s.cfg.Environment == Sandbox {
			p := Preset(s.cfg.Tier)
			s.cfg.ClientID = p.ClientID
			s.cfg.ClientSecret = p.ClientSecret
			s.cfg.APIKey = p.APIKey
		}
	case FieldClientID:
		s.cfg.ClientID = value
	case FieldClientSecret:
		s.cfg.ClientSecret = value
	case FieldAPIKey:
		s.cfg.APIKey = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}
