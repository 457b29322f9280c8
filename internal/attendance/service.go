package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"formation/internal/calendar"
)

// ErrValidation rejects a malformed batch before any mutation happens.
var ErrValidation = errors.New("attendance: invalid request")

// Ledger is the persistence surface the service needs.
type Ledger interface {
	InsertCandidate(ctx context.Context, c Candidate) (Candidate, error)
	SeedSessions(ctx context.Context, candidateID string, dates []time.Time) error
	UpsertSession(ctx context.Context, candidateID string, date time.Time, morning, afternoon *bool) (created bool, err error)
	ToggleConfirmed(ctx context.Context, candidateID string) (bool, error)
	GetCandidate(ctx context.Context, id string) (Candidate, error)
	CandidatesForFormation(ctx context.Context, formationID string) ([]Candidate, error)
	RecordsForDate(ctx context.Context, formationID string, date time.Time) (map[string]DayPresence, error)
	SetPhotoURL(ctx context.Context, candidateID, url string) error
}

// Service coordinates ledger mutations and queries.
type Service struct {
	ledger Ledger
}

// NewService creates a service backed by a ledger.
func NewService(ledger Ledger) *Service {
	return &Service{ledger: ledger}
}

// Enroll creates the candidate and seeds one absent/absent session
// record per date. Called once per candidate at roster import.
func (s *Service) Enroll(ctx context.Context, c Candidate, sessionDates []time.Time) (Candidate, error) {
	if c.FormationID == "" || c.Email == "" {
		return Candidate{}, fmt.Errorf("%w: formation id and email required", ErrValidation)
	}
	c, err := s.ledger.InsertCandidate(ctx, c)
	if err != nil {
		return Candidate{}, err
	}
	if err := s.ledger.SeedSessions(ctx, c.ID, sessionDates); err != nil {
		return Candidate{}, err
	}
	return c, nil
}

// Mark applies a batch presence mutation for one session date. The
// batch is not transactional: a candidate that fails to resolve is
// tagged skipped and the rest proceed. Records missing for the date are
// created (upsert), so marking works regardless of seeding order.
func (s *Service) Mark(ctx context.Context, req MarkRequest) (MarkResult, error) {
	if req.Date.IsZero() {
		return MarkResult{}, fmt.Errorf("%w: session date required", ErrValidation)
	}
	if len(req.CandidateIDs) == 0 {
		return MarkResult{}, fmt.Errorf("%w: candidate ids required", ErrValidation)
	}

	date := calendar.DateOnly(req.Date)
	var res MarkResult
	for _, id := range req.CandidateIDs {
		morning := flagFor(req.Morning, id)
		afternoon := flagFor(req.Afternoon, id)
		if morning == nil && afternoon == nil {
			res.Skipped++
			res.Results = append(res.Results, CandidateResult{CandidateID: id, Outcome: OutcomeSkipped, Reason: "no periods supplied"})
			continue
		}

		created, err := s.ledger.UpsertSession(ctx, id, date, morning, afternoon)
		if err != nil {
			res.Skipped++
			res.Results = append(res.Results, CandidateResult{CandidateID: id, Outcome: OutcomeSkipped, Reason: err.Error()})
			continue
		}
		if created {
			res.Created++
			res.Results = append(res.Results, CandidateResult{CandidateID: id, Outcome: OutcomeCreated})
		} else {
			res.Updated++
			res.Results = append(res.Results, CandidateResult{CandidateID: id, Outcome: OutcomeUpdated})
		}
	}
	return res, nil
}

// AttendanceForDate reports per-candidate presence for one calendar day
// of a formation. Candidates without a record for the date report false
// for both periods.
func (s *Service) AttendanceForDate(ctx context.Context, formationID string, date time.Time) (map[string]DayPresence, error) {
	candidates, err := s.ledger.CandidatesForFormation(ctx, formationID)
	if err != nil {
		return nil, err
	}
	records, err := s.ledger.RecordsForDate(ctx, formationID, calendar.DateOnly(date))
	if err != nil {
		return nil, err
	}

	res := make(map[string]DayPresence, len(candidates))
	for _, c := range candidates {
		res[c.ID] = records[c.ID] // zero value when no record exists
	}
	return res, nil
}

// ToggleConfirmed flips the candidate's confirmed flag.
func (s *Service) ToggleConfirmed(ctx context.Context, candidateID string) (bool, error) {
	return s.ledger.ToggleConfirmed(ctx, candidateID)
}

// Candidate returns one candidate by id.
func (s *Service) Candidate(ctx context.Context, id string) (Candidate, error) {
	return s.ledger.GetCandidate(ctx, id)
}

// Roster returns the candidates of a formation.
func (s *Service) Roster(ctx context.Context, formationID string) ([]Candidate, error) {
	return s.ledger.CandidatesForFormation(ctx, formationID)
}

// SetPhoto stores the uploaded profile picture reference.
func (s *Service) SetPhoto(ctx context.Context, candidateID, url string) error {
	return s.ledger.SetPhotoURL(ctx, candidateID, url)
}

func flagFor(m map[string]bool, id string) *bool {
	if m == nil {
		return nil
	}
	v, ok := m[id]
	if !ok {
		return nil
	}
	return &v
}
