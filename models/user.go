package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func ValidRole(r string) bool {
	return r == string(RoleAdmin) || r == string(RoleUser)
}

// Platform marks how an account was created.
type Platform int

const (
	PlatformLocal  Platform = 1
	PlatformGoogle Platform = 2
)

type User struct {
	ID           bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string        `bson:"username" json:"username"`
	Email        string        `bson:"email" json:"email"`
	PasswordHash string        `bson:"passwordHash" json:"-"` // never expose
	Role         Role          `bson:"role" json:"role"`
	IsActive     bool          `bson:"isActive" json:"isActive"`
	RefreshToken string        `bson:"refreshToken,omitempty" json:"-"` // single active session
	Platform     Platform      `bson:"platform" json:"platform"`
	OpenID       string        `bson:"openId,omitempty" json:"-"`
	Picture      string        `bson:"picture,omitempty" json:"picture,omitempty"`
	CreatedAt    time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// PublicUser is the shape returned in list/detail responses,
// optionally annotated relative to the viewer.
type PublicUser struct {
	ID          bson.ObjectID `json:"id"`
	Username    string        `json:"username"`
	Email       string        `json:"email"`
	Role        Role          `json:"role"`
	IsActive    bool          `json:"isActive"`
	Picture     string        `json:"picture,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	IsFollowing *bool         `json:"isFollowing,omitempty"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
		Picture:   u.Picture,
		CreatedAt: u.CreatedAt,
	}
}
