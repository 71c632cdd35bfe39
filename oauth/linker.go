package oauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/moxuan/socialbackend/apperr"
	"github.com/moxuan/socialbackend/models"
	"github.com/moxuan/socialbackend/session"
	"github.com/moxuan/socialbackend/store"
	"github.com/moxuan/socialbackend/utils"
)

// Linker resolves a provider callback into exactly one local account:
// match by openId first, then link by email, then create.
type Linker struct {
	provider Provider
	users    store.UserStore
	sessions *session.Manager
}

func NewLinker(provider Provider, users store.UserStore, sessions *session.Manager) *Linker {
	return &Linker{provider: provider, users: users, sessions: sessions}
}

func (l *Linker) AuthURL(state string) string {
	return l.provider.AuthURL(state)
}

// HandleCallback exchanges the authorization code, resolves the
// identity to a local account and logs it in. Exchange failure
// short-circuits before any account mutation.
func (l *Linker) HandleCallback(ctx context.Context, code string) (*models.User, *session.TokenPair, error) {
	info, err := l.provider.ExchangeCode(ctx, code)
	if err != nil {
		return nil, nil, apperr.Internal("oauth exchange failed", err)
	}

	user, err := l.resolve(ctx, info)
	if err != nil {
		return nil, nil, err
	}
	if !user.IsActive {
		return nil, nil, apperr.Forbidden("account disabled")
	}

	pair, err := l.sessions.Login(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

func (l *Linker) resolve(ctx context.Context, info *UserInfo) (*models.User, error) {
	// 1. Already linked: same provider subject id.
	user, err := l.users.FindByOpenID(ctx, info.ID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Internal("failed to look up account", err)
	}

	// 2. Known email: link the existing account instead of creating a
	// duplicate, whatever platform it was created on.
	user, err = l.users.FindByEmail(ctx, strings.ToLower(info.Email))
	if err == nil {
		user.OpenID = info.ID
		user.Platform = models.PlatformGoogle
		user.Picture = info.Picture
		if err := l.users.Update(ctx, user); err != nil {
			return nil, apperr.Internal("failed to link account", err)
		}
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Internal("failed to look up account", err)
	}

	// 3. New account. The password placeholder is random and never
	// disclosed, so password login stays impossible until a reset.
	placeholder, err := randomPassword()
	if err != nil {
		return nil, apperr.Internal("failed to generate password placeholder", err)
	}
	hash, err := utils.HashPassword(placeholder)
	if err != nil {
		return nil, apperr.Internal("failed to hash password placeholder", err)
	}

	user = &models.User{
		Username:     info.Name,
		Email:        strings.ToLower(info.Email),
		PasswordHash: hash,
		Role:         models.RoleUser,
		IsActive:     true,
		Platform:     models.PlatformGoogle,
		OpenID:       info.ID,
		Picture:      info.Picture,
	}
	if err := l.users.Insert(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("email already registered")
		}
		return nil, apperr.Internal("failed to create account", err)
	}
	return user, nil
}

func randomPassword() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
