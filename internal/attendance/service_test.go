package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formation/internal/calendar"
)

// fakeLedger is an in-memory Ledger for service tests.
type fakeLedger struct {
	candidates map[string]Candidate
	sessions   map[string]map[time.Time]DayPresence // candidate -> date -> presence
	nextID     int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		candidates: make(map[string]Candidate),
		sessions:   make(map[string]map[time.Time]DayPresence),
	}
}

func (f *fakeLedger) InsertCandidate(_ context.Context, c Candidate) (Candidate, error) {
	if c.ID == "" {
		f.nextID++
		c.ID = string(rune('A' + f.nextID - 1))
	}
	f.candidates[c.ID] = c
	return c, nil
}

func (f *fakeLedger) SeedSessions(_ context.Context, candidateID string, dates []time.Time) error {
	m := f.sessions[candidateID]
	if m == nil {
		m = make(map[time.Time]DayPresence)
		f.sessions[candidateID] = m
	}
	for _, d := range dates {
		if _, ok := m[d]; !ok {
			m[d] = DayPresence{}
		}
	}
	return nil
}

func (f *fakeLedger) UpsertSession(_ context.Context, candidateID string, date time.Time, morning, afternoon *bool) (bool, error) {
	if _, ok := f.candidates[candidateID]; !ok {
		return false, ErrNotFound
	}
	m := f.sessions[candidateID]
	if m == nil {
		m = make(map[time.Time]DayPresence)
		f.sessions[candidateID] = m
	}
	p, existed := m[date]
	if morning != nil {
		p.Morning = *morning
	}
	if afternoon != nil {
		p.Afternoon = *afternoon
	}
	m[date] = p
	return !existed, nil
}

func (f *fakeLedger) ToggleConfirmed(_ context.Context, candidateID string) (bool, error) {
	c, ok := f.candidates[candidateID]
	if !ok {
		return false, ErrNotFound
	}
	c.Confirmed = !c.Confirmed
	f.candidates[candidateID] = c
	return c.Confirmed, nil
}

func (f *fakeLedger) GetCandidate(_ context.Context, id string) (Candidate, error) {
	c, ok := f.candidates[id]
	if !ok {
		return Candidate{}, ErrNotFound
	}
	return c, nil
}

func (f *fakeLedger) CandidatesForFormation(_ context.Context, formationID string) ([]Candidate, error) {
	var res []Candidate
	for _, c := range f.candidates {
		if c.FormationID == formationID {
			res = append(res, c)
		}
	}
	return res, nil
}

func (f *fakeLedger) RecordsForDate(_ context.Context, formationID string, date time.Time) (map[string]DayPresence, error) {
	res := make(map[string]DayPresence)
	for id, c := range f.candidates {
		if c.FormationID != formationID {
			continue
		}
		if p, ok := f.sessions[id][date]; ok {
			res[id] = p
		}
	}
	return res, nil
}

func (f *fakeLedger) SetPhotoURL(_ context.Context, candidateID, url string) error {
	c, ok := f.candidates[candidateID]
	if !ok {
		return ErrNotFound
	}
	c.PhotoURL = url
	f.candidates[candidateID] = c
	return nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestEnroll_SeedsAllSessionDays(t *testing.T) {
	ledger := newFakeLedger()
	svc := NewService(ledger)

	days := calendar.SessionDays(date(2024, 1, 1), date(2024, 1, 5))
	require.Len(t, days, 5)

	c, err := svc.Enroll(context.Background(), Candidate{FormationID: "f1", Email: "a@x.test"}, days)
	require.NoError(t, err)

	require.Len(t, ledger.sessions[c.ID], 5)
	for _, p := range ledger.sessions[c.ID] {
		assert.False(t, p.Morning)
		assert.False(t, p.Afternoon)
	}
}

func TestEnroll_RequiresFormationAndEmail(t *testing.T) {
	svc := NewService(newFakeLedger())
	_, err := svc.Enroll(context.Background(), Candidate{Email: "a@x.test"}, nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMark_FailFastValidation(t *testing.T) {
	svc := NewService(newFakeLedger())

	_, err := svc.Mark(context.Background(), MarkRequest{CandidateIDs: []string{"A"}})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Mark(context.Background(), MarkRequest{Date: date(2024, 1, 1)})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMark_UpsertCreatesMissingRecord(t *testing.T) {
	ledger := newFakeLedger()
	svc := NewService(ledger)
	ctx := context.Background()

	c, err := svc.Enroll(ctx, Candidate{FormationID: "f1", Email: "a@x.test"}, nil) // no seeding
	require.NoError(t, err)

	day := date(2024, 1, 1)
	res, err := svc.Mark(ctx, MarkRequest{
		Date:         day,
		CandidateIDs: []string{c.ID},
		Morning:      map[string]bool{c.ID: true},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Applied())

	got, err := svc.AttendanceForDate(ctx, "f1", day)
	require.NoError(t, err)
	assert.Equal(t, DayPresence{Morning: true}, got[c.ID])
}

func TestMark_OnlySuppliedPeriodChanges(t *testing.T) {
	ledger := newFakeLedger()
	svc := NewService(ledger)
	ctx := context.Background()

	day := date(2024, 1, 2)
	c, err := svc.Enroll(ctx, Candidate{FormationID: "f1", Email: "a@x.test"}, []time.Time{day})
	require.NoError(t, err)

	// Mark afternoon present, then morning; the afternoon flag must survive.
	_, err = svc.Mark(ctx, MarkRequest{Date: day, CandidateIDs: []string{c.ID}, Afternoon: map[string]bool{c.ID: true}})
	require.NoError(t, err)
	res, err := svc.Mark(ctx, MarkRequest{Date: day, CandidateIDs: []string{c.ID}, Morning: map[string]bool{c.ID: true}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)

	got, err := svc.AttendanceForDate(ctx, "f1", day)
	require.NoError(t, err)
	assert.Equal(t, DayPresence{Morning: true, Afternoon: true}, got[c.ID])
}

func TestMark_PartialBatchFailure(t *testing.T) {
	ledger := newFakeLedger()
	svc := NewService(ledger)
	ctx := context.Background()

	day := date(2024, 1, 1)
	c, err := svc.Enroll(ctx, Candidate{FormationID: "f1", Email: "a@x.test"}, []time.Time{day})
	require.NoError(t, err)

	res, err := svc.Mark(ctx, MarkRequest{
		Date:         day,
		CandidateIDs: []string{c.ID, "ghost"},
		Morning:      map[string]bool{c.ID: true, "ghost": true},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied())
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Results, 2)
	assert.Equal(t, OutcomeUpdated, res.Results[0].Outcome)
	assert.Equal(t, OutcomeSkipped, res.Results[1].Outcome)
}

func TestMark_NoPeriodSuppliedIsSkipped(t *testing.T) {
	ledger := newFakeLedger()
	svc := NewService(ledger)
	ctx := context.Background()

	c, err := svc.Enroll(ctx, Candidate{FormationID: "f1", Email: "a@x.test"}, nil)
	require.NoError(t, err)

	res, err := svc.Mark(ctx, MarkRequest{Date: date(2024, 1, 1), CandidateIDs: []string{c.ID}})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Applied())
	assert.Equal(t, 1, res.Skipped)
}

func TestAttendanceForDate_DefaultsToAbsent(t *testing.T) {
	ledger := newFakeLedger()
	svc := NewService(ledger)
	ctx := context.Background()

	days := calendar.SessionDays(date(2024, 1, 1), date(2024, 1, 5))
	a, err := svc.Enroll(ctx, Candidate{FormationID: "f1", Email: "a@x.test"}, days)
	require.NoError(t, err)
	b, err := svc.Enroll(ctx, Candidate{FormationID: "f1", Email: "b@x.test"}, nil) // never seeded
	require.NoError(t, err)

	first := days[0]
	_, err = svc.Mark(ctx, MarkRequest{
		Date:         first,
		CandidateIDs: []string{a.ID},
		Morning:      map[string]bool{a.ID: true},
		Afternoon:    map[string]bool{a.ID: true},
	})
	require.NoError(t, err)

	got, err := svc.AttendanceForDate(ctx, "f1", first)
	require.NoError(t, err)
	assert.Equal(t, DayPresence{Morning: true, Afternoon: true}, got[a.ID])
	assert.Equal(t, DayPresence{}, got[b.ID])
}

func TestToggleConfirmed_Involution(t *testing.T) {
	ledger := newFakeLedger()
	svc := NewService(ledger)
	ctx := context.Background()

	c, err := svc.Enroll(ctx, Candidate{FormationID: "f1", Email: "a@x.test"}, nil)
	require.NoError(t, err)

	first, err := svc.ToggleConfirmed(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := svc.ToggleConfirmed(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, second)
}

func TestToggleConfirmed_NotFound(t *testing.T) {
	svc := NewService(newFakeLedger())
	_, err := svc.ToggleConfirmed(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}
