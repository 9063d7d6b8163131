package twofactor

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// PairingModel is the Bun model for pairing records.
type PairingModel struct {
	bun.BaseModel `bun:"table:second_factor_pairings,alias:sfp"`

	ID        uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username  string    `bun:"username,notnull,unique" json:"username"`
	AccountID string    `bun:"account_id" json:"account_id,omitempty"`
	CreatedAt time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// BunPairingStore implements PairingStore on a Bun database. Each mutation
// is a single upsert/update statement, so durability is the database's
// problem rather than a whole-file rewrite.
type BunPairingStore struct {
	db *bun.DB
}

// NewBunPairingStore creates a Bun-backed pairing store.
func NewBunPairingStore(db *bun.DB) *BunPairingStore {
	return &BunPairingStore{db: db}
}

// Load implements PairingStore.
func (r *BunPairingStore) Load(ctx context.Context) ([]PairingRecord, error) {
	var models []PairingModel
	err := r.db.NewSelect().
		Model(&models).
		Order("username ASC").
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return []PairingRecord{}, nil
		}
		return nil, WrapPersistence(err, "failed to load pairing records")
	}

	records := make([]PairingRecord, len(models))
	for i, m := range models {
		records[i] = PairingRecord{Username: m.Username, AccountID: m.AccountID}
	}
	return records, nil
}

// Find implements PairingStore.
func (r *BunPairingStore) Find(ctx context.Context, username string) (string, error) {
	var model PairingModel
	err := r.db.NewSelect().
		Model(&model).
		Where("username = ?", NormalizeUsername(username)).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", WrapPersistence(err, "failed to find pairing record")
	}
	return model.AccountID, nil
}

// Upsert implements PairingStore.
func (r *BunPairingStore) Upsert(ctx context.Context, username, accountID string) error {
	model := &PairingModel{
		ID:        pairingID(username),
		Username:  NormalizeUsername(username),
		AccountID: accountID,
		UpdatedAt: time.Now(),
	}

	_, err := r.db.NewInsert().
		Model(model).
		On("CONFLICT (username) DO UPDATE").
		Set("account_id = EXCLUDED.account_id").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return WrapPersistence(err, "failed to upsert pairing record")
	}

	return nil
}

// Clear implements PairingStore. The row is retained with a blank account id.
func (r *BunPairingStore) Clear(ctx context.Context, username string) error {
	_, err := r.db.NewUpdate().
		Model((*PairingModel)(nil)).
		Set("account_id = ?", "").
		Set("updated_at = ?", time.Now()).
		Where("username = ?", NormalizeUsername(username)).
		Exec(ctx)
	if err != nil {
		return WrapPersistence(err, "failed to clear pairing record")
	}

	return nil
}

// pairingID derives a stable record id from the username so re-pairing the
// same user never creates duplicate rows.
func pairingID(username string) uuid.UUID {
	if id, err := hashid.NewUUID(NormalizeUsername(username)); err == nil {
		return id
	}
	return uuid.New()
}

var _ PairingStore = (*BunPairingStore)(nil)
