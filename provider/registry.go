// Package provider hosts the third-party identity verifiers and their
// dispatch registry. Each provider ships as its own subpackage implementing
// identity.IdentityVerifier; the registry selects one by tag so services
// never branch on provider names themselves.
package provider

import (
	"context"
	"sort"
	"strings"
	"sync"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-identity"
)

// Registry dispatches credentials to the verifier registered for a provider
// tag.
type Registry struct {
	mu        sync.RWMutex
	verifiers map[string]identity.IdentityVerifier
}

var _ identity.VerifierRegistry = (*Registry)(nil)

// NewRegistry creates a registry with the given verifiers.
func NewRegistry(verifiers ...identity.IdentityVerifier) *Registry {
	r := &Registry{
		verifiers: map[string]identity.IdentityVerifier{},
	}
	for _, v := range verifiers {
		r.Register(v)
	}
	return r
}

// Register adds a verifier, keyed by its lowercase name.
func (r *Registry) Register(v identity.IdentityVerifier) {
	if v == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verifiers[strings.ToLower(v.Name())] = v
}

// Names returns the registered provider tags.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.verifiers))
	for name := range r.verifiers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Verify dispatches the credential to the verifier registered for the
// provider tag.
func (r *Registry) Verify(ctx context.Context, provider, credential string) (*identity.ProviderIdentity, error) {
	r.mu.RLock()
	v, ok := r.verifiers[strings.ToLower(strings.TrimSpace(provider))]
	r.mu.RUnlock()

	if !ok {
		return nil, goerrors.New("unsupported identity provider: "+provider, goerrors.CategoryAuth).
			WithTextCode(identity.TextCodeVerificationFailed).
			WithCode(goerrors.CodeUnauthorized)
	}

	return v.Verify(ctx, credential)
}
