package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/dbrvsk/yamusic-bot/internal/errs"
	"github.com/dbrvsk/yamusic-bot/internal/model"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

// Upsert inserts a user row or replaces the stored token.
func (r *UserRepo) Upsert(ctx context.Context, u model.User) error {
	const q = `
INSERT INTO users (user_id, token)
VALUES ($1, $2)
ON CONFLICT (user_id) DO UPDATE SET token = EXCLUDED.token`
	_, err := r.db.Pool.Exec(ctx, q, u.UserID, u.Token)
	return err
}

// GetByUserID selects a user by Telegram user id.
func (r *UserRepo) GetByUserID(ctx context.Context, userID int64) (*model.User, error) {
	const q = `
SELECT user_id, token, created_at
FROM users WHERE user_id=$1`
	row := r.db.Pool.QueryRow(ctx, q, userID)
	var u model.User
	if err := row.Scan(&u.UserID, &u.Token, &u.CreatedAt); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
