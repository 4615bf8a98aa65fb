package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/dbrvsk/yamusic-bot/internal/errs"
	"github.com/dbrvsk/yamusic-bot/internal/model"
)

func TestUserRepo_Upsert(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO users \(user_id, token\) VALUES \(\$1, \$2\) ON CONFLICT \(user_id\) DO UPDATE SET token = EXCLUDED\.token`).
		WithArgs(int64(100), "tok-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.Upsert(ctx, model.User{UserID: 100, Token: "tok-1"}))

	// token replacement reuses the same statement
	mock.ExpectExec(`INSERT INTO users \(user_id, token\) VALUES \(\$1, \$2\) ON CONFLICT \(user_id\) DO UPDATE SET token = EXCLUDED\.token`).
		WithArgs(int64(100), "tok-2").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, r.Upsert(ctx, model.User{UserID: 100, Token: "tok-2"}))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByUserID(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT user_id, token, created_at FROM users WHERE user_id=\$1`).
		WithArgs(int64(100)).
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "token", "created_at"}).
			AddRow(int64(100), "tok-1", time.Now()))
	u, err := r.GetByUserID(ctx, 100)
	require.NoError(t, err)
	require.Equal(t, int64(100), u.UserID)
	require.Equal(t, "tok-1", u.Token)

	mock.ExpectQuery(`SELECT user_id, token, created_at FROM users WHERE user_id=\$1`).
		WithArgs(int64(7)).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByUserID(ctx, 7)
	require.ErrorIs(t, err, errs.ErrNotFound)
}
