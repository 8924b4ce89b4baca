package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// ErrNoLifetime is returned by Issue when no positive lifetime is supplied.
// It indicates a configuration mistake, not a runtime condition.
var ErrNoLifetime = errors.New("token lifetime must be positive")

type Claims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// Codec signs and verifies access and refresh tokens with a single
// server-held secret.
type Codec struct {
	Secret []byte
	Method jwt.SigningMethod
}

func NewCodec(secret []byte, method jwt.SigningMethod) *Codec {
	return &Codec{Secret: secret, Method: method}
}

func MethodFromName(name string) (jwt.SigningMethod, error) {
	switch name {
	case "HS256":
		return jwt.SigningMethodHS256, nil
	case "HS384":
		return jwt.SigningMethodHS384, nil
	case "HS512":
		return jwt.SigningMethodHS512, nil
	}
	return nil, fmt.Errorf("unsupported signing algorithm %q", name)
}

// Issue signs a token of the given type for subject. Claim times are
// second-granularity epoch values with iat = nbf = now and
// exp = now + lifetime. Refresh tokens carry a freshly generated jti.
func (c *Codec) Issue(subject, tokenType string, lifetime time.Duration) (string, error) {
	if lifetime <= 0 {
		return "", ErrNoLifetime
	}
	now := time.Now().UTC().Truncate(time.Second)
	claims := Claims{
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
		},
	}
	if tokenType == TypeRefresh {
		claims.ID = uuid.NewString()
	}
	return jwt.NewWithClaims(c.Method, claims).SignedString(c.Secret)
}

func (c *Codec) keyFunc(t *jwt.Token) (any, error) {
	if t.Method.Alg() != c.Method.Alg() {
		return nil, errors.New("unexpected sign method")
	}
	return c.Secret, nil
}

// Parse verifies the signature and the [nbf, exp] window and returns the
// claim set. Validity here is necessary but not sufficient for refresh
// tokens; the stored row decides.
func (c *Codec) Parse(tokenStr string) (*Claims, error) {
	var claims Claims
	if _, err := jwt.ParseWithClaims(tokenStr, &claims, c.keyFunc); err != nil {
		return nil, err
	}
	return &claims, nil
}

// ParseAllowExpired verifies the signature but skips claim validation, so
// an expired token still yields its claims. Logout uses this: logging out
// an expired refresh token is a valid no-op, while a malformed or badly
// signed token still fails.
func (c *Codec) ParseAllowExpired(tokenStr string) (*Claims, error) {
	var claims Claims
	if _, err := jwt.ParseWithClaims(tokenStr, &claims, c.keyFunc, jwt.WithoutClaimsValidation()); err != nil {
		return nil, err
	}
	return &claims, nil
}
