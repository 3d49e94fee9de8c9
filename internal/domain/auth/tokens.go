// Package auth issues and verifies the bearer tokens that identify the
// acting user of API calls.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the lifetime of issued tokens.
const DefaultTTL = 15 * time.Minute

// Principal is the authenticated caller. UserID becomes the actor of every
// mutation the request makes.
type Principal struct {
	UserID string
	Roles  []string
}

type claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles,omitempty"`
}

// Tokens signs and verifies HS256 tokens for one issuer.
type Tokens struct {
	key    []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

func NewTokens(secret, issuer string) *Tokens {
	t := &Tokens{key: []byte(secret), issuer: issuer, ttl: DefaultTTL, now: time.Now}
	t.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return t.now() }),
	)
	return t
}

// Issue returns a signed token for userID and its expiry.
func (t *Tokens) Issue(userID string, roles ...string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, errors.New("user id is required")
	}
	now := t.now()
	exp := now.Add(t.ttl)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Roles: roles,
	}).SignedString(t.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify checks algorithm, signature, issuer and expiry.
func (t *Tokens) Verify(raw string) (*Principal, error) {
	var c claims
	if _, err := t.parser.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) { return t.key, nil }); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if c.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return &Principal{UserID: c.Subject, Roles: c.Roles}, nil
}
