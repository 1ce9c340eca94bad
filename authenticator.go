package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/golang-jwt/jwt/v5"
)

// Auther validates local credentials and issues bearer tokens
type Auther struct {
	stores       StoreManager
	hasher       PasswordAuthenticator
	tokenService TokenService
	logger       Logger
}

// NewAuthenticator returns a new Auther
func NewAuthenticator(stores StoreManager, opts Config) *Auther {
	tokenService := NewTokenService(
		[]byte(opts.GetSigningKey()),
		opts.GetTokenExpiration(),
		opts.GetIssuer(),
		jwt.ClaimStrings(opts.GetAudience()),
		defLogger{},
	)

	return &Auther{
		stores:       stores,
		hasher:       BcryptHasher{},
		tokenService: tokenService,
		logger:       defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithTokenService overrides the token service used to mint bearer tokens.
func (s *Auther) WithTokenService(tokenService TokenService) *Auther {
	if tokenService != nil {
		s.tokenService = tokenService
	}
	return s
}

// WithHasher overrides the password hasher.
func (s *Auther) WithHasher(hasher PasswordAuthenticator) *Auther {
	if hasher != nil {
		s.hasher = hasher
	}
	return s
}

// TokenService returns the TokenService instance used by this Auther
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login validates the credentials and issues a bearer token. A missing
// account, a non password binding, and a wrong password all yield the
// identical ErrInvalidCredentials. ErrNotVerified is reported only after the
// credentials checked out on an account that never completed verification.
func (s *Auther) Login(ctx context.Context, email, password string) (string, error) {
	account, err := s.stores.Accounts().GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if goerrors.IsNotFound(err) {
			return "", ErrInvalidCredentials
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account during login")
	}

	if !account.IsLocal() || account.PasswordHash == "" {
		return "", ErrInvalidCredentials
	}

	if err := s.hasher.ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		return "", ErrInvalidCredentials
	}

	if !account.Active {
		return "", ErrNotVerified
	}

	account.Touch(time.Now())
	if _, err := s.stores.Accounts().Update(ctx, account); err != nil {
		s.logger.Error("Login failed to touch account", "error", err)
	}

	token, err := s.tokenService.Generate(NewIdentityFromAccount(account))
	if err != nil {
		return "", err
	}

	s.logger.Debug("Login issued token", "account", account.ID.String())

	return token, nil
}
