package roster

import (
	"context"
	"io"
	"time"

	"formation/internal/attendance"
	"formation/internal/calendar"
	"formation/internal/formation"
)

// Formations resolves the owning formation of an import.
type Formations interface {
	Get(ctx context.Context, id string) (formation.Formation, error)
}

// Enroller creates candidates with their seeded session records.
type Enroller interface {
	Enroll(ctx context.Context, c attendance.Candidate, sessionDates []time.Time) (attendance.Candidate, error)
}

// RowResult is the per-row outcome of an import.
type RowResult struct {
	Row         int    `json:"row"` // 1-based data row index
	CandidateID string `json:"candidate_id,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Report aggregates a roster import.
type Report struct {
	FormationID  string      `json:"formation_id"`
	SessionCount int         `json:"session_count"`
	Imported     int         `json:"imported"`
	Failed       int         `json:"failed"`
	CandidateIDs []string    `json:"candidate_ids"`
	Rows         []RowResult `json:"rows"`
}

// Importer orchestrates bulk candidate import: parse the workbook,
// compute the formation's session calendar once, then enroll row by
// row. A bad row is reported and skipped, never aborting the batch.
type Importer struct {
	formations Formations
	enroller   Enroller
}

// NewImporter creates an importer.
func NewImporter(formations Formations, enroller Enroller) *Importer {
	return &Importer{formations: formations, enroller: enroller}
}

// Import enrolls the roster in r against the formation.
func (i *Importer) Import(ctx context.Context, formationID string, r io.Reader) (Report, error) {
	f, err := i.formations.Get(ctx, formationID)
	if err != nil {
		return Report{}, err
	}
	rows, err := ParseWorkbook(r)
	if err != nil {
		return Report{}, err
	}

	days := calendar.SessionDays(f.StartDate, f.EndDate)
	report := Report{FormationID: f.ID, SessionCount: len(days)}
	for n, row := range rows {
		result := RowResult{Row: n + 1}
		cand, err := CandidateFromRow(f.ID, row)
		if err == nil {
			cand, err = i.enroller.Enroll(ctx, cand, days)
		}
		if err != nil {
			result.Error = err.Error()
			report.Failed++
		} else {
			result.CandidateID = cand.ID
			report.Imported++
			report.CandidateIDs = append(report.CandidateIDs, cand.ID)
		}
		report.Rows = append(report.Rows, result)
	}
	return report, nil
}
