// Package apple verifies Sign in with Apple ID tokens against Apple's JWK
// set. Apple has no userinfo endpoint, so only ID tokens are accepted.
package apple

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-identity"
)

const (
	defaultKeysURL = "https://appleid.apple.com/auth/keys"
	trustedIssuer  = "https://appleid.apple.com"
)

// Config holds Apple verifier configuration.
type Config struct {
	// ClientID is the app's bundle or services identifier. When set it is
	// enforced as the token audience.
	ClientID string

	KeysURL string

	// KeyFunc overrides JWKS resolution, mainly for tests.
	KeyFunc jwt.Keyfunc

	RefreshInterval time.Duration
	HTTPClient      *http.Client
}

// Verifier implements identity.IdentityVerifier for Apple.
type Verifier struct {
	config  Config
	keyFunc jwt.Keyfunc
}

var _ identity.IdentityVerifier = (*Verifier)(nil)

// New creates an Apple verifier. Unless a KeyFunc is provided it starts a
// background refresh of Apple's JWK set.
func New(cfg Config) (*Verifier, error) {
	if cfg.KeysURL == "" {
		cfg.KeysURL = defaultKeysURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		refresh := cfg.RefreshInterval
		if refresh == 0 {
			refresh = time.Hour
		}
		jwks, err := keyfunc.Get(cfg.KeysURL, keyfunc.Options{
			Client: client,
			RefreshErrorHandler: func(err error) {
				log.Printf("apple: background JWK set refresh failed: %s", err)
			},
			RefreshInterval:   refresh,
			RefreshRateLimit:  time.Minute * 5,
			RefreshTimeout:    time.Second * 10,
			RefreshUnknownKID: true,
		})
		if err != nil {
			return nil, fmt.Errorf("apple: failed to load JWK set: %w", err)
		}
		keyFunc = jwks.Keyfunc
	}

	return &Verifier{
		config:  cfg,
		keyFunc: keyFunc,
	}, nil
}

// Name implements identity.IdentityVerifier.
func (v *Verifier) Name() string {
	return identity.ProviderApple
}

type idTokenClaims struct {
	jwt.RegisteredClaims
	Email          string       `json:"email"`
	EmailVerified  flexibleBool `json:"email_verified"`
	IsPrivateEmail flexibleBool `json:"is_private_email"`
	Name           string       `json:"name"`
}

// Verify implements identity.IdentityVerifier.
func (v *Verifier) Verify(_ context.Context, credential string) (*identity.ProviderIdentity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, identity.WrapVerificationFailed(nil, "apple: empty credential")
	}

	claims := &idTokenClaims{}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(trustedIssuer),
	}
	if v.config.ClientID != "" {
		opts = append(opts, jwt.WithAudience(v.config.ClientID))
	}

	token, err := jwt.ParseWithClaims(credential, claims, v.keyFunc, opts...)
	if err != nil {
		return nil, identity.WrapVerificationFailed(err, "apple: ID token rejected")
	}
	if !token.Valid {
		return nil, identity.WrapVerificationFailed(nil, "apple: ID token rejected")
	}

	if claims.Subject == "" {
		return nil, identity.WrapVerificationFailed(nil, "apple: ID token missing subject")
	}
	if claims.Email == "" {
		return nil, identity.WrapVerificationFailed(nil, "apple: ID token missing email")
	}

	return &identity.ProviderIdentity{
		Provider:       identity.ProviderApple,
		ProviderUserID: claims.Subject,
		Email:          identity.NormalizeEmail(claims.Email),
		DisplayName:    claims.Name,
	}, nil
}

// flexibleBool accepts the bool and string encodings Apple uses for boolean
// claims.
type flexibleBool bool

func (b *flexibleBool) UnmarshalJSON(data []byte) error {
	trimmed := bytes.Trim(data, `"`)
	switch string(trimmed) {
	case "true":
		*b = true
	case "false", "null", "":
		*b = false
	default:
		return fmt.Errorf("invalid boolean claim: %s", data)
	}
	return nil
}
