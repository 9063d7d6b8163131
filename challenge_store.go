package twofactor

import (
	"sync"
	"time"
)

type pendingChallenge struct {
	token    string
	issuedAt time.Time
}

// ChallengeStore keeps the single outstanding confirmation token per
// username for in-progress logins. Entries live in memory only: a pending
// login does not survive a process restart, it fails safely and the next
// attempt starts a fresh challenge.
type ChallengeStore struct {
	mu      sync.Mutex
	pending map[string]pendingChallenge
	ttl     time.Duration
	now     func() time.Time
}

// ChallengeStoreOption customizes store behavior.
type ChallengeStoreOption func(*ChallengeStore)

// WithChallengeTTL expires entries older than ttl at consume time. The zero
// value disables expiry, leaving staleness policy to the caller.
func WithChallengeTTL(ttl time.Duration) ChallengeStoreOption {
	return func(s *ChallengeStore) {
		s.ttl = ttl
	}
}

// WithChallengeClock injects a custom clock (useful for tests).
func WithChallengeClock(clock func() time.Time) ChallengeStoreOption {
	return func(s *ChallengeStore) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewChallengeStore returns an empty store.
func NewChallengeStore(opts ...ChallengeStoreOption) *ChallengeStore {
	s := &ChallengeStore{
		pending: make(map[string]pendingChallenge),
		now:     time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// Put records the expected token for username, unconditionally replacing any
// previous entry. Last writer wins; there is no queueing or stacking of
// challenges for the same user.
func (s *ChallengeStore) Put(username, token string) ChallengeRef {
	key := NormalizeUsername(username)
	issued := s.now()

	s.mu.Lock()
	s.pending[key] = pendingChallenge{token: token, issuedAt: issued}
	s.mu.Unlock()

	return ChallengeRef{Username: key, IssuedAt: issued}
}

// TryConsume atomically compares submitted against the stored token and
// removes the entry regardless of the outcome. Exactly one concurrent caller
// can win; a matched entry is never left behind.
func (s *ChallengeStore) TryConsume(username, submitted string) bool {
	key := NormalizeUsername(username)

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.pending[key]
	if !ok {
		return false
	}

	delete(s.pending, key)

	if s.ttl > 0 && s.now().Sub(entry.issuedAt) > s.ttl {
		return false
	}

	return entry.token == submitted
}

// HasPending reports whether username has an outstanding challenge.
func (s *ChallengeStore) HasPending(username string) bool {
	key := NormalizeUsername(username)

	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.pending[key]
	return ok
}

// Drop removes any outstanding challenge for username without comparing.
func (s *ChallengeStore) Drop(username string) {
	key := NormalizeUsername(username)

	s.mu.Lock()
	delete(s.pending, key)
	s.mu.Unlock()
}

// Len returns the number of outstanding challenges.
func (s *ChallengeStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
