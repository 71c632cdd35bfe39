package utils

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/moxuan/socialbackend/models"
	"github.com/moxuan/socialbackend/store"
)

// SeedAdminUser ensures the bootstrap admin account exists. It is a
// no-op when an account with the configured email is already present.
func SeedAdminUser(ctx context.Context, users store.UserStore, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return fmt.Errorf("missing ADMIN_EMAIL or ADMIN_PASSWORD env vars")
	}

	if _, err := users.FindByEmail(ctx, email); err == nil {
		fmt.Println("Admin user already exists:", email)
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("seed admin lookup failed: %w", err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	admin := &models.User{
		Username:     "Admin",
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		IsActive:     true,
		Platform:     models.PlatformLocal,
	}

	if err := users.Insert(ctx, admin); err != nil {
		// A concurrent boot may have seeded first.
		if errors.Is(err, store.ErrDuplicate) {
			return nil
		}
		return fmt.Errorf("seed admin insert failed: %w", err)
	}

	fmt.Println("Admin user seeded:", email)
	return nil
}
