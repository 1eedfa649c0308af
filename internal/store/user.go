package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pavelanni/classquiz/internal/model"
)

const userColumns = `id, email, password_hash, first_name, last_name, birth_date, role, created_at`

// CreateUser inserts a new user. A taken email yields model.ErrAlreadyExists.
func (s *Store) CreateUser(ctx context.Context, u model.User) (int64, error) {
	var birth *time.Time
	if u.BirthDate != nil {
		b := dbTime(*u.BirthDate)
		birth = &b
	}
	var id int64
	err := s.db.QueryRowxContext(ctx, s.db.Rebind(
		`INSERT INTO users (email, password_hash, first_name, last_name, birth_date, role, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		u.Email, u.PasswordHash, u.FirstName, u.LastName, birth, u.Role, dbTime(time.Now()),
	).Scan(&id)
	if isUniqueViolation(err) {
		return 0, fmt.Errorf("email %s: %w", u.Email, model.ErrAlreadyExists)
	}
	if err != nil {
		slog.Error("failed to create user", "email", u.Email, "error", err)
		return 0, err
	}
	slog.Info("created user", "id", id, "email", u.Email, "role", u.Role)
	return id, nil
}

// GetUserByEmail returns a user by email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	var u model.User
	err := s.db.GetContext(ctx, &u, s.db.Rebind(`SELECT `+userColumns+` FROM users WHERE email = ?`), email)
	return u, notFound(err)
}

// GetUserByID returns a user by ID.
func (s *Store) GetUserByID(ctx context.Context, id int64) (model.User, error) {
	var u model.User
	err := s.db.GetContext(ctx, &u, s.db.Rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id)
	return u, notFound(err)
}

// StudentIDsByEmail resolves emails to the ids of users with the student
// role. Unknown emails and non-students are left out.
func (s *Store) StudentIDsByEmail(ctx context.Context, emails []string) ([]int64, error) {
	if len(emails) == 0 {
		return nil, nil
	}
	q, args, err := in(s.db,
		`SELECT DISTINCT id FROM users WHERE email IN (?) AND role = ? ORDER BY id`,
		emails, model.RoleStudent)
	if err != nil {
		return nil, err
	}
	var ids []int64
	err = s.db.SelectContext(ctx, &ids, q, args...)
	return ids, err
}

// UserCount returns the total number of users.
func (s *Store) UserCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users`)
	return count, err
}
