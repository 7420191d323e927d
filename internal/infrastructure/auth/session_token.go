package auth

import (
	"crypto/rand"
	"errors"
	"time"

	"github.com/erp/exchange/internal/domain/exchange"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultIssuer is written into every session token.
const DefaultIssuer = "cml-exchange"

// SessionClaims are the claims of a session token.
type SessionClaims struct {
	jwt.RegisteredClaims
	Kind exchange.ExchangeKind `json:"kind"`
}

// SessionTokenService signs exchange sessions into opaque tokens. The ERP
// client treats the token as a cookie value and sends it back unchanged.
type SessionTokenService struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// TokenOption configures a SessionTokenService
type TokenOption func(*SessionTokenService)

// WithIssuer overrides the token issuer
func WithIssuer(issuer string) TokenOption {
	return func(s *SessionTokenService) {
		if issuer != "" {
			s.issuer = issuer
		}
	}
}

// WithTokenClock sets the time source used for signing and validation
func WithTokenClock(now func() time.Time) TokenOption {
	return func(s *SessionTokenService) {
		s.now = now
	}
}

// NewSessionTokenService creates a token service. An empty secret is
// replaced by a random one, so tokens do not survive a restart.
func NewSessionTokenService(secret string, opts ...TokenOption) (*SessionTokenService, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
	}
	s := &SessionTokenService{
		secret: key,
		issuer: DefaultIssuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue signs a token for session, valid until the session expires
func (s *SessionTokenService) Issue(session *exchange.ExchangeSession) (string, error) {
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Issuer:    s.issuer,
			Subject:   session.ID,
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(s.now()),
		},
		Kind: session.Kind,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Parse validates token and returns the session id it carries.
func (s *SessionTokenService) Parse(token string) (string, error) {
	claims, err := s.ParseClaims(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ParseClaims validates token and returns its claims. An expired token
// yields exchange.ErrSessionExpired; anything else that fails validation
// yields exchange.ErrAuthenticationFailed.
func (s *SessionTokenService) ParseClaims(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, exchange.ErrAuthenticationFailed
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, exchange.ErrSessionExpired
		}
		return nil, exchange.ErrAuthenticationFailed
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, exchange.ErrAuthenticationFailed
	}
	return claims, nil
}
