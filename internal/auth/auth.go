// Package auth verifies bearer tokens and carries the resolved user id in
// request contexts. Credential management and token issuance for real
// users live outside this service; Mint exists for tooling and tests.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("auth: invalid token")
	ErrUnauthorized = errors.New("auth: unauthorized")
)

// Verifier validates HS256 JWTs and extracts the subject user id.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

// NewVerifier builds a Verifier for the shared secret.
func NewVerifier(secret string) (*Verifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: empty token secret")
	}
	return &Verifier{secret: []byte(secret), now: time.Now}, nil
}

// Verify parses the token and returns the subject user id.
func (v *Verifier) Verify(token string) (string, error) {
	parsed, err := jwt.Parse(token,
		func(t *jwt.Token) (any, error) { return v.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}

// Mint issues a short token for the given user id. Used by cmd/smoke and
// the test suites.
func (v *Verifier) Mint(userID string, ttl time.Duration) (string, error) {
	now := v.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	signed, err := tok.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

type ctxKey int

const userKey ctxKey = iota

// ContextWithUser returns ctx carrying the authenticated user id.
func ContextWithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey, userID)
}

// UserFromContext returns the authenticated user id, if any.
func UserFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userKey).(string)
	return id, ok && id != ""
}
