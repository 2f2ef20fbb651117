package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims identifies the panel to the inventory backend.
type Claims struct {
	Service string   `json:"svc"`
	Roles   []string `json:"roles"`
	jwt.RegisteredClaims
}

// TokenIssuer mints short-lived HS256 service tokens for backend calls and
// reuses a token until it is close to expiring.
type TokenIssuer struct {
	secret   string
	issuer   string
	audience string
	expiry   time.Duration
	now      func() time.Time

	mu      sync.Mutex
	cached  string
	expires time.Time
}

// refreshBefore is how long before expiry a cached token is replaced.
const refreshBefore = 30 * time.Second

func NewTokenIssuer(secret, issuer, audience string, expiry time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:   secret,
		issuer:   issuer,
		audience: audience,
		expiry:   expiry,
		now:      time.Now,
	}
}

// ValidateConfig rejects settings that would produce unusable tokens.
func (j *TokenIssuer) ValidateConfig() error {
	if j.secret == "" {
		return errors.New("token secret is required")
	}
	if len(j.secret) < 32 {
		return errors.New("token secret must be at least 32 characters")
	}
	if j.issuer == "" {
		return errors.New("token issuer is required")
	}
	if j.audience == "" {
		return errors.New("token audience is required")
	}
	if j.expiry <= 0 {
		return errors.New("token expiry must be positive")
	}
	return nil
}

// GenerateToken creates a new signed token for the given service name.
func (j *TokenIssuer) GenerateToken(service string, roles []string) (string, time.Time, error) {
	now := j.now()
	expires := now.Add(j.expiry)
	claims := &Claims{
		Service: service,
		Roles:   roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    j.issuer,
			Audience:  []string{j.audience},
			Subject:   service,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(j.secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// Token returns the cached service token, minting a new one when needed.
func (j *TokenIssuer) Token(_ context.Context) (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.cached != "" && j.now().Before(j.expires.Add(-refreshBefore)) {
		return j.cached, nil
	}
	tok, exp, err := j.GenerateToken(j.issuer, []string{"panel"})
	if err != nil {
		return "", err
	}
	j.cached, j.expires = tok, exp
	return tok, nil
}

// ValidateToken validates and parses a token signed by this issuer.
func (j *TokenIssuer) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(j.secret), nil
	}, jwt.WithIssuer(j.issuer), jwt.WithAudience(j.audience), jwt.WithTimeFunc(j.now))

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// HasRole checks if the token carries any of the required roles.
func (c *Claims) HasRole(requiredRoles ...string) bool {
	for _, required := range requiredRoles {
		for _, role := range c.Roles {
			if role == required {
				return true
			}
		}
	}
	return false
}
