package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/timeslot-reservation/internal/model"
	"github.com/iliyamo/timeslot-reservation/internal/utils"
)

// UserRepo provides persistence for the 'users' table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, username, password, role string, cost int) (uint64, error) {
	username = strings.TrimSpace(username)
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, role) VALUES (?,?,?)",
		username, hash, role)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrUsernameExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByUsername fetches a user by name.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	username = strings.TrimSpace(username)
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,username,password_hash,role,created_at,updated_at FROM users WHERE username=? LIMIT 1",
		username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,username,password_hash,role,created_at,updated_at FROM users WHERE id=? LIMIT 1",
		id).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}
