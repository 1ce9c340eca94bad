package identity

import (
	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/crypto/bcrypt"
)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation)

// HashPassword will generate a password hash. The output embeds a random
// salt, hashing the same password twice yields different encodings that both
// verify.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost())
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext password matches
// the hashed password. bcrypt compares the whole hash, there is no prefix
// exit to leak where a mismatch occurs. A malformed stored hash fails closed:
// the caller sees the same mismatch error, never a panic.
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// BcryptHasher is the default PasswordAuthenticator
type BcryptHasher struct{}

func (BcryptHasher) HashPassword(password string) (string, error) {
	return HashPassword(password)
}

func (BcryptHasher) ComparePasswordAndHash(password, hash string) error {
	return ComparePasswordAndHash(password, hash)
}

var _ PasswordAuthenticator = (*BcryptHasher)(nil)
