package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/muzerhq/muzer/internal/apperror"
	"github.com/muzerhq/muzer/internal/model"
	"github.com/muzerhq/muzer/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// Upsert inserts or updates a user keyed by email.
//
// Email is the identity key, not the provider account ID: someone who
// first signs in with Google and later with GitHub must end up with ONE
// row, its provider column reflecting the most recent sign-in. We look
// up the existing row first so a returning user keeps their internal ID
// (streams and votes reference it).
func (db *DB) Upsert(ctx context.Context, user *model.User) error {
	var existingID string
	err := db.conn.QueryRowContext(ctx,
		`SELECT id FROM users WHERE email = ?`, user.Email,
	).Scan(&existingID)

	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("sqlite: looking up user by email: %w", err)
	}

	if existingID != "" {
		// Returning user — refresh name and provider.
		user.ID = existingID
		user.UpdatedAt = time.Now()
		_, err = db.conn.ExecContext(ctx,
			`UPDATE users SET name = ?, provider = ?, updated_at = ? WHERE id = ?`,
			user.Name,
			user.Provider,
			user.UpdatedAt,
			user.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
		}
		return nil
	}

	// First sign-in — generate an ID and insert.
	now := time.Now()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (id, email, name, provider, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.Name,
		user.Provider,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		// Two first sign-ins for the same email can race past the
		// SELECT above; the UNIQUE(email) constraint decides the winner.
		// Re-read the winning row and treat this call as an update.
		if isUniqueViolation(err) {
			return db.Upsert(ctx, user)
		}
		return fmt.Errorf("sqlite: inserting user: %w", err)
	}

	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, email, name, provider, created_at, updated_at
		 FROM users WHERE id = ?`,
		id,
	).Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.Provider,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}

	return &u, nil
}
