package formation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
)

// Repository persists formations in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes a new formation. Mentors and tags land in jsonb columns.
func (r *Repository) Insert(ctx context.Context, f Formation) (Formation, error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	mentors, err := json.Marshal(emptyIfNil(f.Mentors))
	if err != nil {
		return Formation{}, err
	}
	tags, err := json.Marshal(emptyIfNil(f.Tags))
	if err != nil {
		return Formation{}, err
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO formations (id, title, description, start_date, end_date, mentors, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, f.ID, f.Title, f.Description, f.StartDate, f.EndDate, mentors, tags)
	if err := row.Scan(&f.CreatedAt); err != nil {
		return Formation{}, err
	}
	return f, nil
}

// Get returns a single formation by id.
func (r *Repository) Get(ctx context.Context, id string) (Formation, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, description, start_date, end_date, mentors, tags, created_at
		FROM formations WHERE id = $1
	`, id)
	f, err := scanFormation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Formation{}, ErrNotFound
	}
	return f, err
}

// List returns all formations ordered by start date.
func (r *Repository) List(ctx context.Context) ([]Formation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, description, start_date, end_date, mentors, tags, created_at
		FROM formations ORDER BY start_date, title
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Formation
	for rows.Next() {
		f, err := scanFormation(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, f)
	}
	return res, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFormation(row scanner) (Formation, error) {
	var f Formation
	var mentors, tags []byte
	if err := row.Scan(&f.ID, &f.Title, &f.Description, &f.StartDate, &f.EndDate, &mentors, &tags, &f.CreatedAt); err != nil {
		return Formation{}, err
	}
	if err := json.Unmarshal(mentors, &f.Mentors); err != nil {
		return Formation{}, err
	}
	if err := json.Unmarshal(tags, &f.Tags); err != nil {
		return Formation{}, err
	}
	return f, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
