// Package session owns the refresh-token lifecycle: one active
// refresh token per account, rotated on every refresh, cleared on
// logout. There is no revocation list; issuing a new refresh token
// silently invalidates the previous one because validation requires
// exact equality with the stored value.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/moxuan/socialbackend/apperr"
	"github.com/moxuan/socialbackend/models"
	"github.com/moxuan/socialbackend/store"
	"github.com/moxuan/socialbackend/token"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// TokenPair is what login and refresh hand back to clients. Expiries
// are absolute so clients never need to decode the tokens.
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"-"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"-"`
}

// AccessExpiresAtMillis and RefreshExpiresAtMillis are the wire form
// of the absolute expiries (milliseconds since epoch).
func (p *TokenPair) AccessExpiresAtMillis() int64  { return p.AccessExpiresAt.UnixMilli() }
func (p *TokenPair) RefreshExpiresAtMillis() int64 { return p.RefreshExpiresAt.UnixMilli() }

type Manager struct {
	codec *token.Codec
	users store.UserStore
}

func NewManager(codec *token.Codec, users store.UserStore) *Manager {
	return &Manager{codec: codec, users: users}
}

// Login issues a fresh pair and overwrites the stored refresh token,
// even if a session was already active: last login wins.
func (m *Manager) Login(ctx context.Context, user *models.User) (*TokenPair, error) {
	pair, err := m.issuePair(user)
	if err != nil {
		return nil, err
	}
	if err := m.users.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, apperr.Internal("failed to store refresh token", err)
	}
	return pair, nil
}

// Refresh rotates the presented refresh token for a new pair. The
// rotation is a conditional write keyed on the presented value, so of
// two concurrent calls with the same token at most one wins; the loser
// observes an auth failure, never a stale success.
func (m *Manager) Refresh(ctx context.Context, presented string) (*TokenPair, error) {
	claims, ok := m.codec.Verify(presented)
	if !ok || claims.Type != token.TypeRefresh {
		return nil, apperr.Auth("invalid or expired refresh token")
	}

	// Resolve by stored value, then cross-check against the claims:
	// the token must both verify and be the account's current one.
	user, err := m.users.FindByRefreshToken(ctx, presented)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Auth("invalid refresh token")
		}
		return nil, apperr.Internal("failed to load account", err)
	}
	if user.ID.Hex() != claims.UserID || !user.IsActive {
		return nil, apperr.Auth("invalid refresh token or account disabled")
	}

	pair, err := m.issuePair(user)
	if err != nil {
		return nil, err
	}

	if err := m.users.RotateRefreshToken(ctx, user.ID, presented, pair.RefreshToken); err != nil {
		if errors.Is(err, store.ErrStale) {
			// Someone rotated first; the presented token is spent.
			return nil, apperr.Auth("invalid refresh token")
		}
		return nil, apperr.Internal("failed to rotate refresh token", err)
	}
	return pair, nil
}

// Logout clears the stored refresh token for whichever account holds
// the presented value.
func (m *Manager) Logout(ctx context.Context, presented string) error {
	if err := m.users.ClearRefreshTokenByValue(ctx, presented); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.Auth("invalid refresh token")
		}
		return apperr.Internal("failed to clear refresh token", err)
	}
	return nil
}

// Authenticate resolves a bearer access token to a live account. The
// lookup happens on every call so deactivation takes effect
// immediately, even against unexpired tokens. A store failure is
// reported as internal, never as an auth failure: a transient outage
// must not deny active sessions.
func (m *Manager) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	claims, ok := m.codec.Verify(accessToken)
	if !ok || claims.Type != token.TypeAccess {
		return nil, apperr.Auth("invalid or expired token")
	}

	userID, err := bson.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, apperr.Auth("invalid or expired token")
	}

	user, err := m.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Auth("account not found or disabled")
		}
		return nil, apperr.Internal("failed to load account", err)
	}
	if !user.IsActive {
		return nil, apperr.Auth("account not found or disabled")
	}
	return user, nil
}

func (m *Manager) issuePair(user *models.User) (*TokenPair, error) {
	access, accessExp, err := m.codec.IssueAccess(user.ID.Hex(), user.Email, string(user.Role))
	if err != nil {
		return nil, apperr.Internal("failed to generate access token", err)
	}
	refresh, refreshExp, err := m.codec.IssueRefresh(user.ID.Hex(), user.Email, string(user.Role))
	if err != nil {
		return nil, apperr.Internal("failed to generate refresh token", err)
	}
	return &TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}
