package twofactor

import (
	"context"

	"github.com/goliatone/go-errors"
)

// MaxLoginAttempts is the maximum number of attempts a user gets
// in a period
var MaxLoginAttempts = 5

// CoolDownPeriod is the period in which we enforce a cool down
var CoolDownPeriod = "24h"

// ErrTooManyLoginAttempts is returned while a user is cooling down.
var ErrTooManyLoginAttempts = errors.New("too many login attempts", errors.CategoryRateLimit).
	WithTextCode("TOO_MANY_LOGIN_ATTEMPTS")

// UserStore is the slice of the Users repository the provider needs.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (*User, error)
	TrackAttemptedLogin(ctx context.Context, user *User) error
	TrackSuccessfulLogin(ctx context.Context, user *User) error
	DeleteByUsername(ctx context.Context, username string) error
}

// UserProvider is the batteries-included inner CredentialValidator, backed
// by the Users repository. The Decorator works with any CredentialValidator;
// this one covers deployments that keep accounts in the same database.
type UserProvider struct {
	store  UserStore
	logger Logger
}

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserStore) *UserProvider {
	return &UserProvider{
		store:  store,
		logger: defLogger{},
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	if l != nil {
		u.logger = l
	}
	return u
}

// ValidateCredentials compares secret against the stored hash. A bad
// password or unknown user is a plain false; only store failures and an
// active cool down surface as errors.
func (u *UserProvider) ValidateCredentials(ctx context.Context, username, secret string) (bool, error) {
	user, err := u.store.GetByUsername(ctx, username)
	if err != nil {
		if errors.IsNotFound(err) {
			return false, nil
		}
		return false, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	if user == nil {
		return false, nil
	}

	if user.LoginAttemptAt != nil {
		expired, err := IsOutsideThresholdPeriod(*user.LoginAttemptAt, CoolDownPeriod)
		if err != nil {
			return false, errors.Wrap(err, errors.CategoryInternal, "failed to calculate login attempt cooldown")
		}

		if expired {
			user.LoginAttempts = 0
		}
	}

	// too many attempts in the window, cool off
	if user.LoginAttempts > MaxLoginAttempts {
		return false, ErrTooManyLoginAttempts
	}

	if err := ComparePasswordAndHash(secret, user.PasswordHash); err != nil {
		if err2 := u.store.TrackAttemptedLogin(ctx, user); err2 != nil {
			return false, errors.Wrap(err2, errors.CategoryInternal, "failed to track login attempt")
		}
		return false, nil
	}

	if err := u.store.TrackSuccessfulLogin(ctx, user); err != nil {
		u.logger.Error("failed to track successful login", "error", err)
	}

	return true, nil
}

// ResolveUser returns the local account for username, or a NotFound error
// when the inner store has never heard of it.
func (u *UserProvider) ResolveUser(ctx context.Context, username string) (UserRecord, error) {
	user, err := u.store.GetByUsername(ctx, username)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrInvalidUsername.WithMetadata(map[string]any{"username": username})
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to resolve user")
	}

	if user == nil {
		return nil, ErrInvalidUsername.WithMetadata(map[string]any{"username": username})
	}

	return userRecord{
		id:       user.ID.String(),
		username: user.Username,
		email:    user.Email,
	}, nil
}

// DeleteUser removes the local account. Pairing cleanup is the
// PairingService's job; see PairingService.OnUserDeleted.
func (u *UserProvider) DeleteUser(ctx context.Context, username string) error {
	return u.store.DeleteByUsername(ctx, username)
}

var _ CredentialValidator = (*UserProvider)(nil)
