package identity

// AccountIdentity adapts an Account into the Identity interface for token
// generation.
type AccountIdentity struct {
	account *Account
}

// NewIdentityFromAccount returns an Identity adapter for the provided account.
func NewIdentityFromAccount(account *Account) Identity {
	if account == nil {
		return nil
	}
	return AccountIdentity{account: account}
}

// ID returns the account's id as a string.
func (a AccountIdentity) ID() string {
	if a.account == nil {
		return ""
	}
	return a.account.ID.String()
}

// Email returns the account's email address.
func (a AccountIdentity) Email() string {
	if a.account == nil {
		return ""
	}
	return a.account.Email
}

// BindingKind returns the account's current binding kind.
func (a AccountIdentity) BindingKind() string {
	if a.account == nil {
		return ""
	}
	return a.account.AuthKind
}
