package exchange

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ExchangeKind is the value of the "type" query parameter.
type ExchangeKind string

const (
	KindCatalog ExchangeKind = "catalog"
	KindSale    ExchangeKind = "sale"
)

// IsValid returns true if the kind is known
func (k ExchangeKind) IsValid() bool {
	return k == KindCatalog || k == KindSale
}

// Mode is the value of the "mode" query parameter.
type Mode string

const (
	ModeCheckAuth Mode = "checkauth"
	ModeInit      Mode = "init"
	ModeFile      Mode = "file"
	ModeImport    Mode = "import"
	ModeQuery     Mode = "query"
	ModeSuccess   Mode = "success"
)

// SessionState is the position of a session in the exchange handshake.
type SessionState string

const (
	StateUnauthenticated SessionState = "unauthenticated"
	StateAuthenticated   SessionState = "authenticated"
	StateInitialized     SessionState = "initialized"
	StateReceiving       SessionState = "receiving"
	StateCommitted       SessionState = "committed"
	StateExpired         SessionState = "expired"
	StateError           SessionState = "error"
)

// sessionTransitions lists the states reachable from each state. Expired and
// Error are reachable from anywhere and handled in Advance.
//
// A single ERP run reuses its session for several files (import.xml, then
// offers.xml), so a committed session may receive or re-initialize again.
var sessionTransitions = map[SessionState][]SessionState{
	StateUnauthenticated: {StateAuthenticated},
	StateAuthenticated:   {StateInitialized, StateReceiving, StateCommitted},
	StateInitialized:     {StateInitialized, StateReceiving, StateCommitted},
	StateReceiving:       {StateReceiving, StateCommitted},
	StateCommitted:       {StateInitialized, StateReceiving, StateCommitted},
}

// ---------------------------------------------------------------------------
// ExchangeSession Entity
// ---------------------------------------------------------------------------

// ExchangeSession is issued on successful authentication and lives until it
// expires. Expiry is evaluated lazily whenever the session is touched.
type ExchangeSession struct {
	ID        string
	Kind      ExchangeKind
	State     SessionState
	CreatedAt time.Time
	ExpiresAt time.Time
}

// NewExchangeSession creates an authenticated session with a fresh identifier.
func NewExchangeSession(kind ExchangeKind, ttl time.Duration, now time.Time) (*ExchangeSession, error) {
	if !kind.IsValid() {
		return nil, ErrUnknownExchangeType
	}
	return &ExchangeSession{
		ID:        uuid.New().String(),
		Kind:      kind,
		State:     StateAuthenticated,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// IsExpired reports whether the session TTL has elapsed at now.
func (s *ExchangeSession) IsExpired(now time.Time) bool {
	return s.State == StateExpired || !now.Before(s.ExpiresAt)
}

// CanTransitionTo reports whether next is reachable from the current state.
func (s *ExchangeSession) CanTransitionTo(next SessionState) bool {
	if next == StateExpired || next == StateError {
		return true
	}
	for _, allowed := range sessionTransitions[s.State] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Check returns the error Advance would return for next, without changing
// the session.
func (s *ExchangeSession) Check(next SessionState, now time.Time) error {
	if next != StateExpired && s.IsExpired(now) {
		return ErrSessionExpired
	}
	if !s.CanTransitionTo(next) {
		return ErrIllegalTransition.WithDetail("%s -> %s", s.State, next)
	}
	return nil
}

// Advance moves the session to next, checking expiry first.
func (s *ExchangeSession) Advance(next SessionState, now time.Time) error {
	if err := s.Check(next, now); err != nil {
		if errors.Is(err, ErrSessionExpired) {
			s.State = StateExpired
		}
		return err
	}
	s.State = next
	return nil
}

// Remaining returns the time left before expiry, never negative.
func (s *ExchangeSession) Remaining(now time.Time) time.Duration {
	d := s.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
