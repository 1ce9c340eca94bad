// Package identity implements the account identity lifecycle: local
// email/password registration with mandatory email verification, and sign-in
// via third-party identity providers with automatic linking of provider
// identities into existing accounts.
//
// Account lifecycle:
//   - Registrar creates inactive Local accounts plus a one-time verification
//     token. EmailVerifier redeems the token and activates the account,
//     committing activation and consumption as one unit.
//   - Auther validates local credentials and mints bearer tokens through
//     TokenService. The invalid-credential conditions collapse into a single
//     error so callers cannot probe which one failed.
//   - ProviderLinker resolves a verified provider identity to an account:
//     exact identity match, then email match (the existing account is rebound
//     to the provider identity), then a fresh active account.
//
// Storage:
//   - Accounts and verification tokens are persisted via Bun repositories.
//     Uniqueness on email and on (provider, provider_user_id) is enforced by
//     schema constraints, concurrent writes are arbitrated by the database
//     and surface as ErrDuplicateAccount, never as duplicate rows.
//
// Provider verification lives in the provider subpackages; credentials are
// validated against each provider's JWKS before their asserted identity ever
// reaches ProviderLinker.
package identity
