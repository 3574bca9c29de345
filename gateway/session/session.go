// Package session issues and verifies the gateway's own operator bearer
// tokens. These authenticate a human operator or partner integration to
// the HTTP layer; they are unrelated to the sgdt1. delegation tokens the
// engine mints and verifies (authz.VerifyDelegationToken), which bind an
// agent's standing authority and are carried inside the request envelope
// instead.
package session

import (
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Claims is the gateway session's JWT claim set.
type Claims struct {
	jwt.RegisteredClaims
	ActorType string   `json:"actor_type"`
	ActorID   string   `json:"actor_id"`
	Scopes    []string `json:"scopes,omitempty"`
}

// Config configures the session issuer/authenticator.
type Config struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
}

// Authenticator mints and verifies gateway session tokens.
type Authenticator struct {
	cfg    Config
	secret []byte
}

// New constructs an Authenticator. TTL defaults to one hour.
func New(cfg Config) *Authenticator {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	return &Authenticator{cfg: cfg, secret: []byte(cfg.Secret)}
}

// Issue mints a signed session token for the given actor.
func (a *Authenticator) Issue(actorType, actorID string, scopes []string, now time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.cfg.Issuer,
			Audience:  jwt.ClaimStrings{a.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.cfg.TTL)),
		},
		ActorType: actorType,
		ActorID:   actorID,
		Scopes:    scopes,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// Verify parses and validates a bearer token, returning its claims.
func (a *Authenticator) Verify(tokenString string) (*Claims, error) {
	if len(a.secret) == 0 {
		return nil, errors.New("session: signing secret not configured")
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("session: unexpected signing method")
		}
		return a.secret, nil
	}, jwt.WithIssuer(a.cfg.Issuer), jwt.WithAudience(a.cfg.Audience))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("session: token invalid")
	}
	return claims, nil
}

// ExtractBearer pulls the bearer token out of an Authorization header.
func ExtractBearer(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
