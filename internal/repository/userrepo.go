// Package repository defines storage contracts consumed by services.
package repository

import (
	"context"

	"github.com/dbrvsk/yamusic-bot/internal/model"
)

// UserRepository persists bot users and their opaque bearer tokens.
type UserRepository interface {
	// Upsert inserts the user or replaces their stored token.
	Upsert(ctx context.Context, user model.User) error
	// GetByUserID returns the user or errs.ErrNotFound.
	GetByUserID(ctx context.Context, userID int64) (*model.User, error)
}
