package twofactor

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the local account model backing the default inner validator.
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username       string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email          string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash   string     `bun:"password_hash" json:"password_hash,omitempty"`
	LoginAttempts  int        `bun:"login_attempts" json:"login_attempts,omitempty"`
	LoginAttemptAt *time.Time `bun:"login_attempt_at" json:"login_attempt_at,omitempty"`
	LoggedInAt     *time.Time `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

type userRecord struct {
	id       string
	username string
	email    string
}

func (u userRecord) ID() string       { return u.id }
func (u userRecord) Username() string { return u.username }
func (u userRecord) Email() string    { return u.email }

var _ UserRecord = userRecord{}
