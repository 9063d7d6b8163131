package twofactor

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Decorator wraps an inner CredentialValidator with the remote second-factor
// check. The inner verdict is authoritative: the decorator can only tighten
// the outcome, never loosen it.
type Decorator struct {
	inner        CredentialValidator
	client       ProviderClient
	pairings     PairingStore
	challenges   *ChallengeStore
	operationID  string
	logger       Logger
	activitySink ActivitySink
	now          func() time.Time
}

// NewDecorator returns a Decorator wired to the inner validator, provider
// client, and pairing registry. The operation id falls back to the app id
// when the config leaves it blank.
func NewDecorator(inner CredentialValidator, client ProviderClient, pairings PairingStore, opts Config) *Decorator {
	operationID := opts.GetOperationID()
	if operationID == "" {
		operationID = opts.GetAppID()
	}

	return &Decorator{
		inner:        inner,
		client:       client,
		pairings:     pairings,
		challenges:   NewChallengeStore(),
		operationID:  operationID,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		now:          time.Now,
	}
}

func (d *Decorator) WithLogger(logger Logger) *Decorator {
	if logger != nil {
		d.logger = logger
	}
	return d
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (d *Decorator) WithActivitySink(sink ActivitySink) *Decorator {
	d.activitySink = normalizeActivitySink(sink)
	return d
}

// WithChallengeStore replaces the default store, e.g. to enable a TTL.
func (d *Decorator) WithChallengeStore(store *ChallengeStore) *Decorator {
	if store != nil {
		d.challenges = store
	}
	return d
}

// WithClock injects a custom clock (useful for tests).
func (d *Decorator) WithClock(clock func() time.Time) *Decorator {
	if clock != nil {
		d.now = clock
	}
	return d
}

// Challenges exposes the challenge store, e.g. for callers that apply their
// own staleness policy.
func (d *Decorator) Challenges() *ChallengeStore {
	return d.challenges
}

// ValidateCredentials runs the full two-step check. Expected outcomes (bad
// password, provider veto, unpaired pass-through, issued challenge) are all
// represented in the AuthResult; the error return is reserved for
// infrastructure failures, which abort the attempt rather than fail open.
func (d *Decorator) ValidateCredentials(ctx context.Context, username, secret string) (AuthResult, error) {
	username = NormalizeUsername(username)

	ok, err := d.inner.ValidateCredentials(ctx, username, secret)
	if err != nil {
		d.logger.Error("inner credential check failed", "username", username, "error", err)
		return deniedResult(), errors.Wrap(err, errors.CategoryInternal, "inner credential check failed")
	}

	if !ok {
		d.emit(ctx, ActivityEventLoginDenied, username, "", map[string]any{
			"reason": "invalid_credentials",
		})
		return deniedResult(), nil
	}

	accountID, err := d.pairings.Find(ctx, username)
	if err != nil {
		d.logger.Error("pairing lookup failed", "username", username, "error", err)
		return deniedResult(), err
	}

	// Pairing is opt-in: users without a linkage pass straight through.
	if accountID == "" {
		d.emit(ctx, ActivityEventLoginAuthenticated, username, "", nil)
		return authenticatedResult(), nil
	}

	state, err := d.client.OperationStatus(ctx, accountID, d.operationID)
	if err != nil {
		// Fail closed: an unreachable provider aborts the attempt instead
		// of silently skipping the second factor.
		d.logger.Error("provider status query failed", "username", username, "error", err)
		return deniedResult(), errors.Wrap(err, errors.CategoryOperation, "provider status query failed").
			WithTextCode(TextCodeExternalAPI)
	}

	if state == nil || !state.Permits() {
		d.emit(ctx, ActivityEventLoginDenied, username, accountID, map[string]any{
			"reason": "provider_veto",
		})
		return deniedResult(), nil
	}

	if !state.RequiresConfirmation() {
		d.emit(ctx, ActivityEventLoginAuthenticated, username, accountID, nil)
		return authenticatedResult(), nil
	}

	ref := d.challenges.Put(username, state.ConfirmToken)
	ref.Reference = uuid.NewString()

	d.emit(ctx, ActivityEventChallengeIssued, username, accountID, map[string]any{
		"reference": ref.Reference,
	})

	return challengeResult(ref), nil
}

// ConfirmChallenge resolves the outstanding challenge for username. The
// pending entry is consumed exactly once, match or not, so a wrong token
// burns the challenge and the next login starts the sequence over.
func (d *Decorator) ConfirmChallenge(username, submittedToken string) AuthResult {
	username = NormalizeUsername(username)

	if d.challenges.TryConsume(username, submittedToken) {
		d.emit(context.Background(), ActivityEventChallengeConfirmed, username, "", nil)
		return authenticatedResult()
	}

	d.emit(context.Background(), ActivityEventChallengeRejected, username, "", nil)
	return deniedResult()
}

// AccountIDFor returns the provider account id paired with username, or ""
// when the user has no pairing.
func (d *Decorator) AccountIDFor(ctx context.Context, username string) (string, error) {
	return d.pairings.Find(ctx, NormalizeUsername(username))
}

func (d *Decorator) emit(ctx context.Context, eventType ActivityEventType, username, accountID string, metadata map[string]any) {
	sink := normalizeActivitySink(d.activitySink)
	event := ActivityEvent{
		EventType: eventType,
		Username:  username,
		AccountID: accountID,
		Metadata:  metadata,
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = d.now()
	}

	if err := sink.Record(ctx, event); err != nil {
		d.logger.Warn("activity sink record error: %v", err)
	}
}

var _ SecondFactorAuthenticator = (*Decorator)(nil)
