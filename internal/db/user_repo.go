package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"stockwatch/internal/types"
)

// UserRepository provides read access to the users table. Account management
// is out of scope here; the alert pipeline only needs identity, verification
// state, and notification preferences.
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a new UserRepository backed by the given database
// connection (pool or transaction).
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID returns a single user or a not-found AppError.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*types.User, error) {
	var (
		u     types.User
		prefs []byte
	)
	err := r.db.QueryRow(ctx,
		`SELECT id, email, email_verified, preferences, created_at
		 FROM users WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.Email, &u.EmailVerified, &prefs, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundUser, fmt.Sprintf("user %s not found", id), nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to load user", err)
	}
	if len(prefs) > 0 {
		_ = json.Unmarshal(prefs, &u.Preferences)
	}
	return &u, nil
}
