package twofactor

import "time"

// AuthOutcome tags the result of a credential validation.
type AuthOutcome string

const (
	// OutcomeDenied rejects the login. Bad passwords, a provider "off"
	// status, and failed confirmations all land here.
	OutcomeDenied AuthOutcome = "denied"
	// OutcomeAuthenticated completes the login with no further steps.
	OutcomeAuthenticated AuthOutcome = "authenticated"
	// OutcomeChallengeIssued means the password check passed but the login
	// is not complete until ConfirmChallenge sees the one-time token.
	OutcomeChallengeIssued AuthOutcome = "challenge_issued"
)

// ChallengeRef is the opaque handle a caller uses to drive the confirmation
// step. It never exposes the expected token itself.
type ChallengeRef struct {
	Username  string    `json:"username"`
	Reference string    `json:"reference"`
	IssuedAt  time.Time `json:"issued_at"`
}

// AuthResult is the tagged outcome of ValidateCredentials or
// ConfirmChallenge.
type AuthResult struct {
	Outcome   AuthOutcome   `json:"outcome"`
	Challenge *ChallengeRef `json:"challenge,omitempty"`
}

// Authenticated reports whether the login is complete.
func (r AuthResult) Authenticated() bool {
	return r.Outcome == OutcomeAuthenticated
}

// Denied reports whether the login was rejected.
func (r AuthResult) Denied() bool {
	return r.Outcome == OutcomeDenied
}

// ChallengePending reports whether a confirmation step is still outstanding.
func (r AuthResult) ChallengePending() bool {
	return r.Outcome == OutcomeChallengeIssued
}

func deniedResult() AuthResult {
	return AuthResult{Outcome: OutcomeDenied}
}

func authenticatedResult() AuthResult {
	return AuthResult{Outcome: OutcomeAuthenticated}
}

func challengeResult(ref ChallengeRef) AuthResult {
	return AuthResult{Outcome: OutcomeChallengeIssued, Challenge: &ref}
}
