package store

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/pavelanni/interviewer/internal/model"
)

// CreateUser inserts a new user profile.
func (s *Store) CreateUser(u model.User) (int64, error) {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	var email any
	if u.Email != "" {
		email = u.Email
	}
	res, err := s.db.Exec(
		`INSERT INTO users (name, email, domain, experience_level, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		u.Name, email, u.Domain, u.ExperienceLevel, u.CreatedAt,
	)
	if err != nil {
		slog.Error("failed to create user", "email", u.Email, "error", err)
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	slog.Info("created user", "id", id, "domain", u.Domain, "experience_level", u.ExperienceLevel)
	return id, nil
}

// GetUserByID returns a user by ID, or nil if not found.
func (s *Store) GetUserByID(id int64) (*model.User, error) {
	return s.scanUser(s.db.QueryRow(
		`SELECT id, name, COALESCE(email, ''), domain, experience_level, created_at
		 FROM users WHERE id = ?`, id,
	))
}

// GetUserByEmail returns a user by email, or nil if not found.
func (s *Store) GetUserByEmail(email string) (*model.User, error) {
	return s.scanUser(s.db.QueryRow(
		`SELECT id, name, COALESCE(email, ''), domain, experience_level, created_at
		 FROM users WHERE email = ?`, email,
	))
}

func (s *Store) scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Domain, &u.ExperienceLevel, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UserCount returns the number of user profiles.
func (s *Store) UserCount() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}
