// Package staff manages the accounts that operate the platform:
// administrators and mentors assigned to formations.
package staff

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrNotFound is returned when a staff member does not resolve.
var ErrNotFound = errors.New("staff: not found")

// ErrBadCredentials is returned on email/password mismatch.
var ErrBadCredentials = errors.New("staff: bad credentials")

// Member is a staff account.
type Member struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository persists staff accounts in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a staff member with a bcrypt-hashed password.
func (r *Repository) Create(ctx context.Context, email, name, password, role string) (Member, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Member{}, err
	}
	m := Member{ID: uuid.NewString(), Email: email, Name: name, Role: role}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO staff (id, email, name, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, m.ID, m.Email, m.Name, string(hash), m.Role)
	if err := row.Scan(&m.CreatedAt); err != nil {
		return Member{}, err
	}
	return m, nil
}

// Authenticate checks email/password and returns the member on success.
func (r *Repository) Authenticate(ctx context.Context, email, password string) (Member, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, email, name, role, password_hash, created_at
		FROM staff WHERE email = $1
	`, email)
	var m Member
	var hash string
	if err := row.Scan(&m.ID, &m.Email, &m.Name, &m.Role, &hash, &m.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Member{}, ErrBadCredentials
		}
		return Member{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return Member{}, ErrBadCredentials
	}
	return m, nil
}

// Get returns a staff member by id.
func (r *Repository) Get(ctx context.Context, id string) (Member, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, email, name, role, created_at FROM staff WHERE id = $1
	`, id)
	var m Member
	if err := row.Scan(&m.ID, &m.Email, &m.Name, &m.Role, &m.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Member{}, ErrNotFound
		}
		return Member{}, err
	}
	return m, nil
}

// EnsureAdmin creates the bootstrap admin account when no staff exists yet.
func (r *Repository) EnsureAdmin(ctx context.Context, email, password string) error {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM staff`).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_, err := r.Create(ctx, email, "Administrator", password, "admin")
	return err
}

// SaveRefreshToken stores a refresh token for rotation checks.
func (r *Repository) SaveRefreshToken(ctx context.Context, staffID, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (staff_id, token, expires_at)
		VALUES ($1, $2, $3)
	`, staffID, token, expiresAt)
	return err
}

// RefreshTokenValid reports whether the token is known, unexpired and unrevoked.
func (r *Repository) RefreshTokenValid(ctx context.Context, staffID, token string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM refresh_tokens
		WHERE staff_id = $1 AND token = $2 AND expires_at > NOW() AND NOT revoked
	`, staffID, token).Scan(&n)
	return n > 0, err
}

// RevokeRefreshToken marks a token revoked.
func (r *Repository) RevokeRefreshToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE token = $1`, token)
	return err
}
