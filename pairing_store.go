package twofactor

import "context"

// PairingRecord links a local username to a provider account id. A non-empty
// AccountID means the user is second-factor enabled; pairing is opt-in and
// users without a record (or with a blank id) pass straight through.
type PairingRecord struct {
	Username  string `json:"username"`
	AccountID string `json:"account_id"`
}

// Paired reports whether the record carries a live provider linkage.
func (r PairingRecord) Paired() bool {
	return r.AccountID != ""
}

// PairingStore is the durable username -> provider account registry. There
// is at most one record per username. Every mutation persists synchronously
// before returning; persistence failures surface to the caller. Load
// failures, by contrast, are tolerated and read as an empty store, since a
// missing file on first run is expected.
type PairingStore interface {
	// Load returns every record in the store.
	Load(ctx context.Context) ([]PairingRecord, error)

	// Find returns the account id for username, or "" when the user has no
	// pairing (never an error for the absent case).
	Find(ctx context.Context, username string) (string, error)

	// Upsert creates or replaces the record for username.
	Upsert(ctx context.Context, username, accountID string) error

	// Clear blanks the account id for username. The row is retained so the
	// store keeps a trace of severed pairings.
	Clear(ctx context.Context, username string) error
}
