package twofactor

import (
	"context"
	"fmt"
	"strings"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// UserRecord holds the attributes of a local account owned by the inner
// collaborator. This package never creates or deletes user records, it only
// removes its own pairing data when told a user is gone.
type UserRecord interface {
	ID() string
	Username() string
	Email() string
}

// CredentialValidator is the narrow surface we need from the inner
// username/password store. Its verdict on a password is authoritative.
type CredentialValidator interface {
	ValidateCredentials(ctx context.Context, username, secret string) (bool, error)
	ResolveUser(ctx context.Context, username string) (UserRecord, error)
	DeleteUser(ctx context.Context, username string) error
}

// SecondFactorAuthenticator is the caller-facing login surface consumed by
// the session/UI layer.
type SecondFactorAuthenticator interface {
	ValidateCredentials(ctx context.Context, username, secret string) (AuthResult, error)
	ConfirmChallenge(username, submittedToken string) AuthResult
	AccountIDFor(ctx context.Context, username string) (string, error)
}

// Pairer manages the linkage between local users and provider accounts.
type Pairer interface {
	Pair(ctx context.Context, username, pairingToken string) (string, error)
	Unpair(ctx context.Context, username string) error
	OnUserDeleted(ctx context.Context, username string) error
	AccountIDFor(ctx context.Context, username string) (string, error)
}

// Config holds provider options
type Config interface {
	GetAppID() string
	GetAppSecret() string
	GetAPIHost() string
	GetOperationID() string
	GetPairingStorePath() string
	GetChallengeSigningKey() string
	GetChallengeTokenExpiration() int
}

// NormalizeUsername lower-cases and trims a username so every keyed lookup
// in the package agrees on the same form.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] 2FA "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] 2FA "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] 2FA "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] 2FA "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
