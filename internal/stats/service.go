package stats

import (
	"context"
	"log"
	"math"
	"time"

	"formation/internal/calendar"
	"formation/internal/formation"
)

// Store is the read surface the aggregator needs.
type Store interface {
	Formations(ctx context.Context) ([]formation.Formation, error)
	ConfirmationCounts(ctx context.Context, formationID string) (total, confirmed int, err error)
	AttendedSessionCounts(ctx context.Context, formationID string) (map[string]int, error)
}

// Service computes read-only statistics. A failure on one formation
// degrades that entry to zeros and never aborts the rest of the batch.
type Service struct {
	store Store
}

// NewService creates a service backed by a store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// ConfirmationStats reports the confirmed rate for every formation.
func (s *Service) ConfirmationStats(ctx context.Context) ([]FormationConfirmation, error) {
	formations, err := s.store.Formations(ctx)
	if err != nil {
		return nil, err
	}

	res := make([]FormationConfirmation, 0, len(formations))
	for _, f := range formations {
		entry := FormationConfirmation{FormationID: f.ID, Title: f.Title}
		total, confirmed, err := s.store.ConfirmationCounts(ctx, f.ID)
		if err != nil {
			log.Printf("stats: confirmation counts for %s failed: %v", f.ID, err)
			res = append(res, entry)
			continue
		}
		entry.TotalCandidates = total
		entry.Confirmed = confirmed
		if total > 0 {
			entry.Rate = round2(float64(confirmed) / float64(total) * 100)
		}
		res = append(res, entry)
	}
	return res, nil
}

// PresenceStats reports, for each formation whose end date has passed,
// the count of candidates whose attended sessions exceed half of the
// formation's total session count.
func (s *Service) PresenceStats(ctx context.Context, now time.Time) ([]FormationPresence, error) {
	formations, err := s.store.Formations(ctx)
	if err != nil {
		return nil, err
	}

	today := calendar.DateOnly(now)
	res := make([]FormationPresence, 0, len(formations))
	for _, f := range formations {
		if !calendar.DateOnly(f.EndDate).Before(today) {
			continue // only finished formations
		}
		entry := FormationPresence{FormationID: f.ID, Title: f.Title}
		entry.TotalSessions = rangeDays(f.StartDate, f.EndDate)
		if entry.TotalSessions <= 0 {
			res = append(res, entry)
			continue
		}

		attended, err := s.store.AttendedSessionCounts(ctx, f.ID)
		if err != nil {
			log.Printf("stats: attended counts for %s failed: %v", f.ID, err)
			res = append(res, entry)
			continue
		}
		total, _, err := s.store.ConfirmationCounts(ctx, f.ID)
		if err != nil {
			log.Printf("stats: candidate count for %s failed: %v", f.ID, err)
			res = append(res, entry)
			continue
		}
		entry.TotalCandidates = total

		for _, n := range attended {
			if float64(n)/float64(entry.TotalSessions) > 0.5 {
				entry.Attending++
			}
		}
		res = append(res, entry)
	}
	return res, nil
}

// rangeDays is the inclusive calendar-day count of the range, weekends
// included. Kept distinct from calendar.SessionDays on purpose.
func rangeDays(start, end time.Time) int {
	s := calendar.DateOnly(start)
	e := calendar.DateOnly(end)
	return int(e.Sub(s)/(24*time.Hour)) + 1
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
