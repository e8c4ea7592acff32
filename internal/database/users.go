// users.go handles user-related database operations.
package database

import (
	"context"

	"github.com/Shimizu-Technology/smartconverter-api/internal/models"
)

// CreateUser inserts a new user record.
func (db *DB) CreateUser(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (email, password_hash, name)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	return db.QueryRowContext(ctx, query,
		u.Email, u.PasswordHash, u.Name,
	).Scan(&u.ID, &u.CreatedAt)
}

// GetUserByEmail retrieves a user by email address.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := db.GetContext(ctx, &u, `SELECT * FROM users WHERE lower(email) = lower($1)`, email)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return &u, nil
}

// GetUserByID retrieves a user by ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := db.GetContext(ctx, &u, `SELECT * FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return &u, nil
}
