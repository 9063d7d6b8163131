package twofactor

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
)

// PairingService exposes the pair/unpair operations that mutate the
// PairingStore through the provider client.
type PairingService struct {
	inner        CredentialValidator
	client       ProviderClient
	pairings     PairingStore
	logger       Logger
	activitySink ActivitySink
	now          func() time.Time
}

// NewPairingService wires a PairingService.
func NewPairingService(inner CredentialValidator, client ProviderClient, pairings PairingStore) *PairingService {
	return &PairingService{
		inner:        inner,
		client:       client,
		pairings:     pairings,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		now:          time.Now,
	}
}

func (p *PairingService) WithLogger(logger Logger) *PairingService {
	if logger != nil {
		p.logger = logger
	}
	return p
}

// WithActivitySink configures an ActivitySink for emitting pairing events.
func (p *PairingService) WithActivitySink(sink ActivitySink) *PairingService {
	p.activitySink = normalizeActivitySink(sink)
	return p
}

// Pair links username to the provider account unlocked by pairingToken and
// returns the account id. Re-pairing an already-paired user replaces the
// previous linkage.
func (p *PairingService) Pair(ctx context.Context, username, pairingToken string) (string, error) {
	username = NormalizeUsername(username)

	if err := validation.Validate(pairingToken, validation.Required, validation.Length(4, 100)); err != nil {
		return "", errors.Wrap(err, errors.CategoryValidation, "invalid pairing token").
			WithCode(errors.CodeBadRequest)
	}

	if err := p.resolveUser(ctx, username); err != nil {
		return "", err
	}

	exchange, err := p.client.ExchangeToken(ctx, pairingToken)
	if err != nil {
		p.logger.Error("pairing token exchange failed", "username", username, "error", err)
		return "", errors.Wrap(err, errors.CategoryOperation, "pairing token exchange failed").
			WithTextCode(TextCodeExternalAPI)
	}

	// A response with neither data nor error is a provider contract
	// violation and is treated the same as an explicit remote failure.
	if exchange == nil || exchange.AccountID == "" {
		return "", ExternalAPIError("", "provider returned no account id for pairing token")
	}

	if err := p.pairings.Upsert(ctx, username, exchange.AccountID); err != nil {
		return "", err
	}

	p.emit(ctx, ActivityEventAccountPaired, username, exchange.AccountID, nil)

	return exchange.AccountID, nil
}

// Unpair severs the linkage for username. An already-unpaired user is a
// no-op success and makes no remote call. When the remote release fails the
// local record is cleared anyway and the remote error is propagated: local
// state must never keep pointing at a linkage the user asked to sever.
func (p *PairingService) Unpair(ctx context.Context, username string) error {
	username = NormalizeUsername(username)

	accountID, err := p.pairings.Find(ctx, username)
	if err != nil {
		return err
	}

	if accountID == "" {
		return nil
	}

	releaseErr := p.client.Release(ctx, accountID)

	if err := p.pairings.Clear(ctx, username); err != nil {
		if releaseErr != nil {
			p.logger.Error("provider release failed", "username", username, "error", releaseErr)
		}
		return err
	}

	p.emit(ctx, ActivityEventAccountUnpaired, username, accountID, nil)

	if releaseErr != nil {
		return errors.Wrap(releaseErr, errors.CategoryOperation, "provider release failed").
			WithTextCode(TextCodeExternalAPI).
			WithMetadata(map[string]any{"account_id": accountID})
	}

	return nil
}

// OnUserDeleted runs a best-effort unpair before delegating the delete to
// the inner store. Second-factor bookkeeping never blocks account removal.
func (p *PairingService) OnUserDeleted(ctx context.Context, username string) error {
	username = NormalizeUsername(username)

	if err := p.Unpair(ctx, username); err != nil {
		p.logger.Warn("best-effort unpair on delete failed", "username", username, "error", err)
	}

	return p.inner.DeleteUser(ctx, username)
}

// AccountIDFor returns the provider account id paired with username. Unknown
// local users fail with ErrInvalidUsername, matching Pair.
func (p *PairingService) AccountIDFor(ctx context.Context, username string) (string, error) {
	username = NormalizeUsername(username)

	if err := p.resolveUser(ctx, username); err != nil {
		return "", err
	}

	return p.pairings.Find(ctx, username)
}

// resolveUser checks the inner store knows the user. Absence maps to
// ErrInvalidUsername, store failures keep their own category.
func (p *PairingService) resolveUser(ctx context.Context, username string) error {
	user, err := p.inner.ResolveUser(ctx, username)
	if err != nil {
		if errors.IsNotFound(err) {
			return ErrInvalidUsername.WithMetadata(map[string]any{"username": username})
		}
		return err
	}

	if user == nil {
		return ErrInvalidUsername.WithMetadata(map[string]any{"username": username})
	}

	return nil
}

func (p *PairingService) emit(ctx context.Context, eventType ActivityEventType, username, accountID string, metadata map[string]any) {
	sink := normalizeActivitySink(p.activitySink)
	event := ActivityEvent{
		EventType:  eventType,
		Username:   username,
		AccountID:  accountID,
		Metadata:   metadata,
		OccurredAt: p.now(),
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if err := sink.Record(ctx, event); err != nil {
		p.logger.Warn("activity sink record error: %v", err)
	}
}

var _ Pairer = (*PairingService)(nil)
