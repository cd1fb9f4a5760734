package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/rangovai/internal/model"
)

// ErrUserNotFound is returned when no users row matches.
var ErrUserNotFound = errors.New("user not found")

// UserRepo reads and registers rows of the 'users' table.  Accounts are
// issued by the identity provider; only display data is kept here.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Upsert inserts the user or refreshes name and email of an existing row.
func (r *UserRepo) Upsert(ctx context.Context, u model.User) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (id, name, email) VALUES (?,?,?) ON DUPLICATE KEY UPDATE name=VALUES(name), email=VALUES(email)",
		u.ID, strings.TrimSpace(u.Name), strings.ToLower(strings.TrimSpace(u.Email)))
	return err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,name,email FROM users WHERE id=? LIMIT 1",
		id).Scan(&u.ID, &u.Name, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrUserNotFound
	}
	return u, err
}
