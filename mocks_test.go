package identity

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

type memAccounts struct {
	byID        map[uuid.UUID]*Account
	createErr   error
	updateErr   error
	createHook  func()
	createCalls int
	updateCalls int
}

func newMemAccounts() *memAccounts {
	return &memAccounts{byID: map[uuid.UUID]*Account{}}
}

func (m *memAccounts) add(account *Account) *Account {
	cp := *account
	m.byID[cp.ID] = &cp
	return &cp
}

func (m *memAccounts) Create(ctx context.Context, record *Account) (*Account, error) {
	m.createCalls++
	if m.createHook != nil {
		m.createHook()
	}
	if m.createErr != nil {
		return nil, m.createErr
	}
	for _, existing := range m.byID {
		if existing.Email == record.Email {
			return nil, ErrDuplicateAccount
		}
		if record.Provider != "" && existing.Provider == record.Provider &&
			existing.ProviderUserID == record.ProviderUserID {
			return nil, ErrDuplicateAccount
		}
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	cp := *record
	m.byID[cp.ID] = &cp
	return record, nil
}

func (m *memAccounts) Update(ctx context.Context, record *Account) (*Account, error) {
	m.updateCalls++
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	if _, ok := m.byID[record.ID]; !ok {
		return nil, repository.NewRecordNotFound()
	}
	for id, existing := range m.byID {
		if id == record.ID {
			continue
		}
		if existing.Email == record.Email {
			return nil, ErrDuplicateAccount
		}
		if record.Provider != "" && existing.Provider == record.Provider &&
			existing.ProviderUserID == record.ProviderUserID {
			return nil, ErrDuplicateAccount
		}
	}
	cp := *record
	m.byID[cp.ID] = &cp
	return record, nil
}

func (m *memAccounts) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	if account, ok := m.byID[id]; ok {
		cp := *account
		return &cp, nil
	}
	return nil, repository.NewRecordNotFound()
}

func (m *memAccounts) GetByEmail(ctx context.Context, email string) (*Account, error) {
	for _, account := range m.byID {
		if account.Email == email {
			cp := *account
			return &cp, nil
		}
	}
	return nil, repository.NewRecordNotFound()
}

func (m *memAccounts) GetByProviderIdentity(ctx context.Context, provider, providerUserID string) (*Account, error) {
	for _, account := range m.byID {
		if account.Provider == provider && account.ProviderUserID == providerUserID {
			cp := *account
			return &cp, nil
		}
	}
	return nil, repository.NewRecordNotFound()
}

type memTokens struct {
	byToken   map[string]*VerificationToken
	createErr error
}

func newMemTokens() *memTokens {
	return &memTokens{byToken: map[string]*VerificationToken{}}
}

func (m *memTokens) add(token *VerificationToken) *VerificationToken {
	cp := *token
	m.byToken[cp.Token] = &cp
	return &cp
}

func (m *memTokens) Create(ctx context.Context, record *VerificationToken) (*VerificationToken, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	cp := *record
	m.byToken[cp.Token] = &cp
	return record, nil
}

func (m *memTokens) GetByToken(ctx context.Context, token string) (*VerificationToken, error) {
	if record, ok := m.byToken[token]; ok {
		cp := *record
		return &cp, nil
	}
	return nil, repository.NewRecordNotFound()
}

func (m *memTokens) MarkConsumed(ctx context.Context, token string, at time.Time) error {
	record, ok := m.byToken[token]
	if !ok {
		return ErrTokenInvalid
	}
	if record.ConsumedAt != nil {
		return ErrTokenConsumed
	}
	record.ConsumedAt = &at
	return nil
}

type memStores struct {
	accounts *memAccounts
	tokens   *memTokens
	txErr    error
}

func newMemStores() *memStores {
	return &memStores{
		accounts: newMemAccounts(),
		tokens:   newMemTokens(),
	}
}

func (m *memStores) Accounts() AccountStore                     { return m.accounts }
func (m *memStores) VerificationTokens() VerificationTokenStore { return m.tokens }

func (m *memStores) RunInTx(ctx context.Context, fn func(ctx context.Context, tx StoreManager) error) error {
	if m.txErr != nil {
		return m.txErr
	}
	return fn(ctx, m)
}

type stubHasher struct {
	hashErr error
}

func (s stubHasher) HashPassword(password string) (string, error) {
	if s.hashErr != nil {
		return "", s.hashErr
	}
	if password == "" {
		return "", ErrNoEmptyString
	}
	return "hashed:" + password, nil
}

func (s stubHasher) ComparePasswordAndHash(password, hash string) error {
	if "hashed:"+password != hash {
		return ErrInvalidCredentials
	}
	return nil
}

type stubTokenService struct {
	token    string
	err      error
	lastSeen Identity
}

func (s *stubTokenService) Generate(identity Identity) (string, error) {
	s.lastSeen = identity
	if s.err != nil {
		return "", s.err
	}
	if s.token == "" {
		return "stub-token", nil
	}
	return s.token, nil
}

func (s *stubTokenService) Validate(tokenString string) (AuthClaims, error) {
	return nil, errors.New("not implemented")
}

type testConfig struct {
	signingKey string
}

func (c testConfig) GetSigningKey() string {
	if c.signingKey != "" {
		return c.signingKey
	}
	return "test-signing-key-0123456789"
}

func (c testConfig) GetTokenExpiration() int           { return 1 }
func (c testConfig) GetIssuer() string                 { return "go-identity-test" }
func (c testConfig) GetAudience() []string             { return []string{"test-clients"} }
func (c testConfig) GetVerificationTTL() time.Duration { return DefaultVerificationTTL }

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
