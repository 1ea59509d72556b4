package auth

import (
	"errors"

	"github.com/dmitrijs2005/vidtube/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// DefaultPasswordCost is the bcrypt work factor used for stored passwords.
const DefaultPasswordCost = 10

type PasswordHasher struct {
	cost int
}

func NewPasswordHasher() *PasswordHasher {
	return &PasswordHasher{cost: DefaultPasswordCost}
}

// Hash returns the bcrypt digest of plain. Passwords longer than bcrypt's
// 72-byte limit are rejected as a validation error.
func (h *PasswordHasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", common.WrapError(common.ErrValidation, err, "Password is too long")
		}
		return "", err
	}
	return string(b), nil
}

// Verify reports whether plain matches digest. A mismatch is (false, nil);
// a malformed digest is an error.
func (h *PasswordHasher) Verify(plain, digest string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}
