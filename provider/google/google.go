// Package google verifies Google credentials. It accepts either an ID token,
// checked offline against Google's JWK set, or an OAuth access token, which is
// resolved through the userinfo endpoint.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-identity"
)

const (
	defaultJWKSURL     = "https://www.googleapis.com/oauth2/v3/certs"
	defaultUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
)

var trustedIssuers = []string{
	"https://accounts.google.com",
	"accounts.google.com",
}

// Config holds Google verifier configuration.
type Config struct {
	// ClientID, when set, is enforced as the token audience.
	ClientID string

	JWKSURL     string
	UserInfoURL string

	// KeyFunc overrides JWKS resolution, mainly for tests.
	KeyFunc jwt.Keyfunc

	RefreshInterval time.Duration
	HTTPClient      *http.Client
}

// Verifier implements identity.IdentityVerifier for Google.
type Verifier struct {
	config     Config
	keyFunc    jwt.Keyfunc
	httpClient *http.Client
}

var _ identity.IdentityVerifier = (*Verifier)(nil)

// New creates a Google verifier. Unless a KeyFunc is provided it starts a
// background refresh of Google's JWK set.
func New(cfg Config) (*Verifier, error) {
	if cfg.JWKSURL == "" {
		cfg.JWKSURL = defaultJWKSURL
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = defaultUserInfoURL
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
		jwks, err := keyfunc.Get(cfg.JWKSURL, keyfunc.Options{
			Client: client,
			RefreshErrorHandler: func(err error) {
				log.Printf("google: background JWK set refresh failed: %s", err)
			},
			RefreshInterval:   refresh,
			RefreshRateLimit:  time.Minute * 5,
			RefreshTimeout:    time.Second * 10,
			RefreshUnknownKID: true,
		})
		if err != nil {
			return nil, fmt.Errorf("google: failed to load JWK set: %w", err)
		}
		keyFunc = jwks.Keyfunc
	}

	return &Verifier{
		config:     cfg,
		keyFunc:    keyFunc,
		httpClient: client,
	}, nil
}

// Name implements identity.IdentityVerifier.
func (v *Verifier) Name() string {
	return identity.ProviderGoogle
}

// Verify implements identity.IdentityVerifier. A credential with two dots is
// treated as an ID token, anything else as an access token.
func (v *Verifier) Verify(ctx context.Context, credential string) (*identity.ProviderIdentity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, identity.WrapVerificationFailed(nil, "google: empty credential")
	}

	if strings.Count(credential, ".") == 2 {
		return v.verifyIDToken(ctx, credential)
	}

	return v.verifyAccessToken(ctx, credential)
}

type idTokenClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

func (v *Verifier) verifyIDToken(_ context.Context, credential string) (*identity.ProviderIdentity, error) {
	claims := &idTokenClaims{}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256"}),
	}
	if v.config.ClientID != "" {
		opts = append(opts, jwt.WithAudience(v.config.ClientID))
	}

	token, err := jwt.ParseWithClaims(credential, claims, v.keyFunc, opts...)
	if err != nil {
		return nil, identity.WrapVerificationFailed(err, "google: ID token rejected")
	}
	if !token.Valid {
		return nil, identity.WrapVerificationFailed(nil, "google: ID token rejected")
	}

	if !trustedIssuer(claims.Issuer) {
		return nil, identity.WrapVerificationFailed(nil, "google: untrusted issuer: "+claims.Issuer)
	}
	if claims.Subject == "" {
		return nil, identity.WrapVerificationFailed(nil, "google: ID token missing subject")
	}
	if claims.Email == "" {
		return nil, identity.WrapVerificationFailed(nil, "google: ID token missing email")
	}
	if !claims.EmailVerified {
		return nil, identity.WrapVerificationFailed(nil, "google: email not verified by google")
	}

	return &identity.ProviderIdentity{
		Provider:       identity.ProviderGoogle,
		ProviderUserID: claims.Subject,
		Email:          identity.NormalizeEmail(claims.Email),
		DisplayName:    claims.Name,
	}, nil
}

type userInfoResponse struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

func (v *Verifier) verifyAccessToken(ctx context.Context, credential string) (*identity.ProviderIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.config.UserInfoURL, nil)
	if err != nil {
		return nil, identity.WrapVerificationFailed(err, "google: failed to build userinfo request")
	}
	req.Header.Set("Authorization", "Bearer "+credential)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, identity.WrapVerificationFailed(err, "google: userinfo request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, identity.WrapVerificationFailed(err, "google: failed to read userinfo response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, identity.WrapVerificationFailed(nil,
			fmt.Sprintf("google: userinfo rejected the token with status %d", resp.StatusCode))
	}

	var info userInfoResponse
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, identity.WrapVerificationFailed(err, "google: invalid userinfo response")
	}

	if info.Sub == "" {
		return nil, identity.WrapVerificationFailed(nil, "google: userinfo missing subject")
	}
	if info.Email == "" {
		return nil, identity.WrapVerificationFailed(nil, "google: userinfo missing email")
	}
	if !info.EmailVerified {
		return nil, identity.WrapVerificationFailed(nil, "google: email not verified by google")
	}

	return &identity.ProviderIdentity{
		Provider:       identity.ProviderGoogle,
		ProviderUserID: info.Sub,
		Email:          identity.NormalizeEmail(info.Email),
		DisplayName:    info.Name,
	}, nil
}

func trustedIssuer(issuer string) bool {
	for _, trusted := range trustedIssuers {
		if issuer == trusted {
			return true
		}
	}
	return false
}
