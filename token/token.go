package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Claims is the payload embedded in both access and refresh tokens.
// Type keeps the two kinds from ever authorizing each other's calls.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Type   string `json:"typ"`
	jwt.RegisteredClaims
}

// Codec signs and verifies bearer tokens. The secret is injected at
// construction so tests can run with their own.
type Codec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewCodec(secret string, accessTTL, refreshTTL time.Duration) *Codec {
	return &Codec{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

func (c *Codec) AccessTTL() time.Duration  { return c.accessTTL }
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// IssueAccess signs a short-lived access token. The absolute expiry is
// returned alongside so callers can expose it without re-parsing.
func (c *Codec) IssueAccess(userID, email, role string) (string, time.Time, error) {
	return c.issue(userID, email, role, TypeAccess, c.accessTTL)
}

// IssueRefresh signs a long-lived refresh token.
func (c *Codec) IssueRefresh(userID, email, role string) (string, time.Time, error) {
	return c.issue(userID, email, role, TypeRefresh, c.refreshTTL)
}

func (c *Codec) issue(userID, email, role, typ string, ttl time.Duration) (string, time.Time, error) {
	expiresAt := time.Now().Add(ttl)
	claims := Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			// unique id so two tokens issued in the same second for
			// the same account never collide
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify checks signature and expiry. It reports only valid/invalid;
// callers must not learn why verification failed.
func (c *Codec) Verify(tokenStr string) (*Claims, bool) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, false
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, false
	}
	return claims, true
}
