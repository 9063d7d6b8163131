package twofactor

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventLoginDenied        ActivityEventType = "twofactor.login.denied"
	ActivityEventLoginAuthenticated ActivityEventType = "twofactor.login.authenticated"
	ActivityEventChallengeIssued    ActivityEventType = "twofactor.challenge.issued"
	ActivityEventChallengeConfirmed ActivityEventType = "twofactor.challenge.confirmed"
	ActivityEventChallengeRejected  ActivityEventType = "twofactor.challenge.rejected"
	ActivityEventAccountPaired      ActivityEventType = "twofactor.pairing.created"
	ActivityEventAccountUnpaired    ActivityEventType = "twofactor.pairing.released"
)

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Username   string
	AccountID  string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
// Sinks run best-effort: record errors are logged by the emitter, never
// propagated into the login or pairing flow.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
