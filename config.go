package identity

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvConfig implements Config from environment variables.
type EnvConfig struct {
	SigningKey      string        `env:"IDENTITY_SIGNING_KEY,required,notEmpty"`
	TokenExpiration int           `env:"IDENTITY_TOKEN_EXPIRATION" envDefault:"72"`
	Issuer          string        `env:"IDENTITY_ISSUER"`
	Audience        []string      `env:"IDENTITY_AUDIENCE" envSeparator:","`
	VerificationTTL time.Duration `env:"IDENTITY_VERIFICATION_TTL" envDefault:"24h"`
}

var _ Config = (*EnvConfig)(nil)

// LoadEnvConfig loads configuration from environment variables.
func LoadEnvConfig() (*EnvConfig, error) {
	cfg := &EnvConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func (c *EnvConfig) GetSigningKey() string { return c.SigningKey }

// GetTokenExpiration returns the bearer token lifetime in hours.
func (c *EnvConfig) GetTokenExpiration() int { return c.TokenExpiration }

func (c *EnvConfig) GetIssuer() string { return c.Issuer }

func (c *EnvConfig) GetAudience() []string { return c.Audience }

func (c *EnvConfig) GetVerificationTTL() time.Duration { return c.VerificationTTL }
