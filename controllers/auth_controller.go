package controllers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/moxuan/socialbackend/dto"
	"github.com/moxuan/socialbackend/models"
	"github.com/moxuan/socialbackend/oauth"
	"github.com/moxuan/socialbackend/session"
	"github.com/moxuan/socialbackend/store"
	"github.com/moxuan/socialbackend/utils"
)

func pairResponse(pair *session.TokenPair) gin.H {
	return gin.H{
		"accessToken":           pair.AccessToken,
		"accessTokenExpiresAt":  pair.AccessExpiresAtMillis(),
		"refreshToken":          pair.RefreshToken,
		"refreshTokenExpiresAt": pair.RefreshExpiresAtMillis(),
	}
}

func userSummary(user *models.User) gin.H {
	return gin.H{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
		"role":     user.Role,
	}
}

func Register(users store.UserStore, sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.RegisterDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		email := strings.ToLower(strings.TrimSpace(body.Email))
		ctx := c.Request.Context()

		hash, err := utils.HashPassword(body.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
			return
		}

		user := &models.User{
			Username:     strings.TrimSpace(body.Username),
			Email:        email,
			PasswordHash: hash,
			Role:         models.RoleUser,
			IsActive:     true,
			Platform:     models.PlatformLocal,
		}
		if err := users.Insert(ctx, user); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "email already registered"})
				return
			}
			respondError(c, err)
			return
		}

		pair, err := sessions.Login(ctx, user)
		if err != nil {
			respondError(c, err)
			return
		}

		resp := pairResponse(pair)
		resp["user"] = userSummary(user)
		c.JSON(http.StatusCreated, resp)
	}
}

func Login(users store.UserStore, sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.LoginDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx := c.Request.Context()
		user, err := users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(body.Email)))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email or password"})
				return
			}
			respondError(c, err)
			return
		}

		if !user.IsActive {
			c.JSON(http.StatusForbidden, gin.H{"error": "account disabled"})
			return
		}
		if err := utils.CheckPassword(user.PasswordHash, body.Password); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email or password"})
			return
		}

		pair, err := sessions.Login(ctx, user)
		if err != nil {
			respondError(c, err)
			return
		}

		resp := pairResponse(pair)
		resp["user"] = userSummary(user)
		c.JSON(http.StatusOK, resp)
	}
}

func Refresh(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.RefreshDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "refresh token is required"})
			return
		}

		pair, err := sessions.Refresh(c.Request.Context(), body.RefreshToken)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, pairResponse(pair))
	}
}

func Logout(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.LogoutDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "refresh token is required"})
			return
		}

		if err := sessions.Logout(c.Request.Context(), body.RefreshToken); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "logged out"})
	}
}

func GoogleAuthURL(linker *oauth.Linker) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"url": linker.AuthURL(c.Query("state"))})
	}
}

// GoogleCallback exchanges the authorization code and redirects back
// to the caller-supplied URL with the token pair appended. A missing
// code fails before any account is touched.
func GoogleCallback(linker *oauth.Linker) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Query("code")
		redirectURI := c.Query("redirectUri")
		if code == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing authorization code"})
			return
		}
		if redirectURI == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing redirect uri"})
			return
		}

		_, pair, err := linker.HandleCallback(c.Request.Context(), code)
		if err != nil {
			respondError(c, err)
			return
		}

		params := url.Values{
			"accessToken":  {pair.AccessToken},
			"refreshToken": {pair.RefreshToken},
		}
		sep := "?"
		if strings.Contains(redirectURI, "?") {
			sep = "&"
		}
		c.Redirect(http.StatusFound, redirectURI+sep+params.Encode())
	}
}
