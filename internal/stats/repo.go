package stats

import (
	"context"
	"database/sql"

	"formation/internal/formation"
)

// Repository reads aggregate figures straight from Postgres.
type Repository struct {
	db         *sql.DB
	formations *formation.Repository
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, formations: formation.NewRepository(db)}
}

// Formations lists all formations.
func (r *Repository) Formations(ctx context.Context) ([]formation.Formation, error) {
	return r.formations.List(ctx)
}

// ConfirmationCounts returns total and confirmed candidate counts.
func (r *Repository) ConfirmationCounts(ctx context.Context, formationID string) (int, int, error) {
	var total, confirmed int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE presence_state)
		FROM candidates WHERE formation_id = $1
	`, formationID).Scan(&total, &confirmed)
	return total, confirmed, err
}

// AttendedSessionCounts returns, per candidate of the formation, the
// number of session records with at least one present period.
func (r *Repository) AttendedSessionCounts(ctx context.Context, formationID string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.candidate_id, COUNT(*)
		FROM candidate_sessions s
		JOIN candidates c ON c.id = s.candidate_id
		WHERE c.formation_id = $1 AND (s.morning OR s.afternoon)
		GROUP BY s.candidate_id
	`, formationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		res[id] = n
	}
	return res, rows.Err()
}
