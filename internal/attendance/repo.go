package attendance

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository persists candidates and their session records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// InsertCandidate writes a new candidate row.
func (r *Repository) InsertCandidate(ctx context.Context, c Candidate) (Candidate, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Profile == nil {
		c.Profile = map[string]string{}
	}
	profile, err := json.Marshal(c.Profile)
	if err != nil {
		return Candidate{}, err
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO candidates (id, formation_id, email, first_name, last_name, profile, photo_url, presence_state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, c.ID, c.FormationID, c.Email, c.FirstName, c.LastName, profile, c.PhotoURL, c.Confirmed)
	if err := row.Scan(&c.CreatedAt); err != nil {
		return Candidate{}, err
	}
	return c, nil
}

// SeedSessions inserts one absent/absent record per date, leaving any
// already-present record alone.
func (r *Repository) SeedSessions(ctx context.Context, candidateID string, dates []time.Time) error {
	for _, d := range dates {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO candidate_sessions (candidate_id, session_date, morning, afternoon)
			VALUES ($1, $2, FALSE, FALSE)
			ON CONFLICT (candidate_id, session_date) DO NOTHING
		`, candidateID, d)
		if err != nil {
			return err
		}
	}
	return nil
}

// UpsertSession sets the supplied periods on the record for (candidate,
// date), creating the record if missing. A nil flag leaves that period
// untouched. The returned bool reports whether a new row was created.
func (r *Repository) UpsertSession(ctx context.Context, candidateID string, date time.Time, morning, afternoon *bool) (bool, error) {
	var created bool
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO candidate_sessions (candidate_id, session_date, morning, afternoon)
		VALUES ($1, $2, COALESCE($3::boolean, FALSE), COALESCE($4::boolean, FALSE))
		ON CONFLICT (candidate_id, session_date) DO UPDATE SET
			morning   = COALESCE($3::boolean, candidate_sessions.morning),
			afternoon = COALESCE($4::boolean, candidate_sessions.afternoon)
		RETURNING (xmax = 0)
	`, candidateID, date, morning, afternoon).Scan(&created)
	return created, err
}

// ToggleConfirmed flips the candidate's confirmed flag and returns the
// new value.
func (r *Repository) ToggleConfirmed(ctx context.Context, candidateID string) (bool, error) {
	var state bool
	err := r.db.QueryRowContext(ctx, `
		UPDATE candidates SET presence_state = NOT presence_state
		WHERE id = $1
		RETURNING presence_state
	`, candidateID).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	return state, err
}

// GetCandidate returns a candidate by id.
func (r *Repository) GetCandidate(ctx context.Context, id string) (Candidate, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, formation_id, email, first_name, last_name, profile, photo_url, presence_state, created_at
		FROM candidates WHERE id = $1
	`, id)
	c, err := scanCandidate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Candidate{}, ErrNotFound
	}
	return c, err
}

// CandidatesForFormation returns the roster of a formation.
func (r *Repository) CandidatesForFormation(ctx context.Context, formationID string) ([]Candidate, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, formation_id, email, first_name, last_name, profile, photo_url, presence_state, created_at
		FROM candidates WHERE formation_id = $1
		ORDER BY last_name, first_name
	`, formationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// RecordsForDate returns the session records that exist for a
// formation's candidates on one calendar day, keyed by candidate id.
func (r *Repository) RecordsForDate(ctx context.Context, formationID string, date time.Time) (map[string]DayPresence, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.candidate_id, s.morning, s.afternoon
		FROM candidate_sessions s
		JOIN candidates c ON c.id = s.candidate_id
		WHERE c.formation_id = $1 AND s.session_date = $2
	`, formationID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := make(map[string]DayPresence)
	for rows.Next() {
		var id string
		var p DayPresence
		if err := rows.Scan(&id, &p.Morning, &p.Afternoon); err != nil {
			return nil, err
		}
		res[id] = p
	}
	return res, rows.Err()
}

// SetPhotoURL stores the uploaded profile picture reference.
func (r *Repository) SetPhotoURL(ctx context.Context, candidateID, url string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE candidates SET photo_url = $2 WHERE id = $1`, candidateID, url)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCandidate(row scanner) (Candidate, error) {
	var c Candidate
	var profile []byte
	if err := row.Scan(&c.ID, &c.FormationID, &c.Email, &c.FirstName, &c.LastName, &profile, &c.PhotoURL, &c.Confirmed, &c.CreatedAt); err != nil {
		return Candidate{}, err
	}
	if err := json.Unmarshal(profile, &c.Profile); err != nil {
		return Candidate{}, err
	}
	return c, nil
}
