package twofactor

import "context"

// ProviderClient is the logical contract with the remote second-factor
// service. Wire/transport details live behind implementations of this
// interface; only the request/response shapes matter here.
//
// None of the calls enforce a timeout of their own. A hung provider blocks
// the calling request, so callers should bound ctx themselves.
type ProviderClient interface {
	// ExchangeToken trades a one-time pairing token for the provider
	// account id it unlocks.
	ExchangeToken(ctx context.Context, pairingToken string) (*PairingExchange, error)

	// OperationStatus returns the provider's current decision for the
	// given account and login operation.
	OperationStatus(ctx context.Context, accountID, operationID string) (*OperationState, error)

	// Release severs the pairing on the provider side.
	Release(ctx context.Context, accountID string) error
}

// OperationStatusValue is the provider's policy state for a login operation.
type OperationStatusValue string

const (
	// StatusOn permits the login, optionally demanding token confirmation.
	StatusOn OperationStatusValue = "on"
	// StatusOff vetoes the login regardless of password correctness.
	StatusOff OperationStatusValue = "off"
)

// PairingExchange is the successful result of trading a pairing token for a
// provider account id.
type PairingExchange struct {
	AccountID string `json:"account_id"`
}

// OperationState describes the provider's current decision for one account
// and login operation. ConfirmToken, when present, is the one-time token the
// user must echo back to complete the login.
type OperationState struct {
	Status       OperationStatusValue `json:"status"`
	ConfirmToken string               `json:"confirm_token,omitempty"`
}

// Permits reports whether the provider allows the login to proceed. Any
// status other than "on" counts as a veto.
func (s OperationState) Permits() bool {
	return s.Status == StatusOn
}

// RequiresConfirmation reports whether the provider attached a one-time
// token that must be confirmed before the login completes.
func (s OperationState) RequiresConfirmation() bool {
	return s.Permits() && s.ConfirmToken != ""
}
