package twofactor

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor used when hashing passwords.
var BcryptCost = 14

// ErrNoEmptyString rejects empty passwords before hashing.
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest)

// ErrMismatchedHashAndPassword is the uniform bad-credentials error.
var ErrMismatchedHashAndPassword = goerrors.New("credentials do not match", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized)

// HashPassword will generate a password hash
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}

// RandomPasswordHash is a temporary password
func RandomPasswordHash() string {
	pwd := uuid.New()

	h, err := HashPassword(pwd.String())
	if err != nil {
		return RandomPasswordHash()
	}

	return h
}
