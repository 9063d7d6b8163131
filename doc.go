// Package twofactor decorates an existing username/password validator with a
// remote, out-of-band second factor, plus the pairing registry that links
// local usernames to external second-factor accounts.
//
// Login flow:
//   - Decorator.ValidateCredentials delegates the password check to the inner
//     CredentialValidator. That verdict is authoritative and never weakened.
//   - Paired users are then checked against the remote provider. The provider
//     can approve the login outright, veto it ("off" acts as a kill switch,
//     password correctness notwithstanding), or demand confirmation of a
//     one-time token. In the last case the result is ChallengeIssued and the
//     login is not complete until Decorator.ConfirmChallenge sees the token.
//   - Provider or transport failures abort the attempt. The decorator never
//     fails open.
//
// Pairing:
//   - PairingService.Pair exchanges a provider pairing token for an account id
//     and records the linkage in a PairingStore. Two store backends ship with
//     the package: a whole-file JSON store and a Bun-backed SQL store.
//   - PairingService.Unpair clears the local linkage even when the remote
//     release fails; local state wins over remote consistency.
//
// Activity sinks:
//   - ActivitySink is a best-effort audit emitter describing logins, issued
//     and consumed challenges, and pairing changes. Sink errors are logged,
//     never propagated, so forwarding events to a queue or database cannot
//     block authentication.
package twofactor
