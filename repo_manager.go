package twofactor

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
	Pairings() PairingStore
}

type mngr struct {
	db       *bun.DB
	users    Users
	pairings PairingStore
}

// NewRepositoryManager wires the Bun-backed repositories.
func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:       db,
		users:    NewUsersRepository(db),
		pairings: NewBunPairingStore(db),
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.pairings == nil {
		return errors.New("repository pairings should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) Pairings() PairingStore {
	return m.pairings
}
