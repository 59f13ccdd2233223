package seeders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shashiranjanraj/zepto/app/models"
	"github.com/shashiranjanraj/zepto/app/repositories"
	"github.com/shashiranjanraj/zepto/config"
	"github.com/shashiranjanraj/zepto/pkg/auth"
)

func init() {
	Register("admin", SeedAdmin)
}

// SeedAdmin creates the administrator account from ADMIN_PHONE and
// ADMIN_PASSWORD. Registration never grants admin, so this is the only
// way to get one.
func SeedAdmin(ctx context.Context, store *repositories.Store) error {
	phone := config.AdminPhone()
	if _, err := store.Users.FindByPhone(ctx, phone); err == nil {
		return nil
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return err
	}

	hash, err := auth.HashPassword(config.AdminPassword())
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	return store.Users.Create(ctx, &models.User{
		ID:        uuid.NewString(),
		Name:      "Admin",
		Phone:     phone,
		Password:  hash,
		IsAdmin:   true,
		CreatedAt: now,
		UpdatedAt: now,
	})
}
