package twofactor

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the slim user repository behind the default inner validator.
type Users interface {
	repository.Repository[*User]

	GetByUsername(ctx context.Context, username string) (*User, error)
	TrackAttemptedLogin(ctx context.Context, user *User) error
	TrackSuccessfulLogin(ctx context.Context, user *User) error
	DeleteByUsername(ctx context.Context, username string) error
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var _ Users = (*users)(nil)

// NewUsersRepository creates the Bun-backed Users repository.
func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "username"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) GetByUsername(ctx context.Context, username string) (*User, error) {
	user := &User{}
	err := a.db.NewSelect().
		Model(user).
		Where("lower(username) = ?", NormalizeUsername(username)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"username": username,
				})
		}
		return nil, err
	}
	return user, nil
}

func (a *users) TrackAttemptedLogin(ctx context.Context, user *User) error {
	now := time.Now()
	user.LoginAttempts = user.LoginAttempts + 1
	user.LoginAttemptAt = &now

	_, err := a.db.NewUpdate().
		Model(user).
		Column("login_attempts", "login_attempt_at").
		WherePK().
		Exec(ctx)

	return err
}

func (a *users) TrackSuccessfulLogin(ctx context.Context, user *User) error {
	now := time.Now()
	user.LoginAttempts = 0
	user.LoginAttemptAt = nil
	user.LoggedInAt = &now

	_, err := a.db.NewUpdate().
		Model(user).
		Column("login_attempts", "login_attempt_at", "loggedin_at").
		WherePK().
		Exec(ctx)

	return err
}

func (a *users) DeleteByUsername(ctx context.Context, username string) error {
	_, err := a.db.NewDelete().
		Model((*User)(nil)).
		Where("lower(username) = ?", NormalizeUsername(username)).
		Exec(ctx)

	return err
}
