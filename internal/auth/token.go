// Package auth issues and verifies the bearer tokens of the API and turns
// them into a model.Principal on the request context.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pavelanni/classquiz/internal/model"
)

// DefaultTTL is how long an issued token stays valid.
const DefaultTTL = 120 * time.Hour

// Claims is the JWT payload. Subject holds the user id and ID the token id
// used for revocation.
type Claims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Principal returns the authenticated user the claims describe.
func (c Claims) Principal() (model.Principal, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return model.Principal{}, fmt.Errorf("bad subject %q: %w", c.Subject, model.ErrUnauthorized)
	}
	if !c.Role.Valid() {
		return model.Principal{}, fmt.Errorf("bad role %q: %w", c.Role, model.ErrUnauthorized)
	}
	return model.Principal{UserID: id, Role: c.Role}, nil
}

// Tokens signs and checks HS256 tokens with a shared secret.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens creates a Tokens. A zero ttl means DefaultTTL.
func NewTokens(secret string, ttl time.Duration) (*Tokens, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue returns a signed token for u along with its claims.
func (t *Tokens) Issue(u model.User) (string, Claims, error) {
	now := t.now()
	claims := Claims{
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(u.ID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Verify parses a token and checks its signature and expiry. Every failure
// wraps model.ErrUnauthorized.
func (t *Tokens) Verify(tokenString string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenMalformed):
		return Claims{}, fmt.Errorf("malformed token: %w", model.ErrUnauthorized)
	case errors.Is(err, jwt.ErrTokenExpired):
		return Claims{}, fmt.Errorf("token expired: %w", model.ErrUnauthorized)
	default:
		return Claims{}, fmt.Errorf("invalid token: %v: %w", err, model.ErrUnauthorized)
	}
}
