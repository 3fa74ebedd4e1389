package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const DefaultCost = 10

var ErrMismatchedPassword = errors.New("passwords do not match")

func Hash(plain string) (string, error) {
	return HashWithCost(plain, DefaultCost)
}

func HashWithCost(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// Compare returns nil when plain matches hash, ErrMismatchedPassword when it
// does not, and a wrapped error when hash is not a bcrypt hash.
func Compare(hash, plain string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrMismatchedPassword
	default:
		return fmt.Errorf("compare password: %w", err)
	}
}
