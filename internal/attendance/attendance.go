// Package attendance keeps the per-candidate ledger of session records:
// one row per weekday of the owning formation, with a morning and an
// afternoon presence flag, seeded at roster import and mutated by
// attendance marking.
package attendance

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a candidate id does not resolve.
var ErrNotFound = errors.New("attendance: candidate not found")

// Candidate is a participant enrolled in a formation.
type Candidate struct {
	ID          string            `json:"id"`
	FormationID string            `json:"formation_id"`
	Email       string            `json:"email"`
	FirstName   string            `json:"first_name"`
	LastName    string            `json:"last_name"`
	Profile     map[string]string `json:"profile,omitempty"`
	PhotoURL    string            `json:"photo_url,omitempty"`
	Confirmed   bool              `json:"confirmed"`
	CreatedAt   time.Time         `json:"created_at"`
}

// SessionRecord is one attendance day for a candidate.
type SessionRecord struct {
	Date      time.Time `json:"date"`
	Morning   bool      `json:"morning"`
	Afternoon bool      `json:"afternoon"`
}

// DayPresence is the per-period presence reported for one candidate on
// one date.
type DayPresence struct {
	Morning   bool `json:"morning"`
	Afternoon bool `json:"afternoon"`
}

// Outcome tags what a batch mark did for one candidate.
type Outcome string

const (
	OutcomeUpdated Outcome = "updated" // existing record mutated
	OutcomeCreated Outcome = "created" // no record for the date, one was created
	OutcomeSkipped Outcome = "skipped" // candidate failed to resolve or nothing to apply
)

// MarkRequest is a batch presence mutation for a single session date.
// Morning and Afternoon carry the per-candidate flags for the periods
// being marked; a period absent from both maps is left untouched.
type MarkRequest struct {
	Date         time.Time
	CandidateIDs []string
	Morning      map[string]bool
	Afternoon    map[string]bool
}

// CandidateResult is the tagged outcome for one candidate in a batch.
type CandidateResult struct {
	CandidateID string  `json:"candidate_id"`
	Outcome     Outcome `json:"outcome"`
	Reason      string  `json:"reason,omitempty"`
}

// MarkResult aggregates a batch mark.
type MarkResult struct {
	Updated int               `json:"updated"`
	Created int               `json:"created"`
	Skipped int               `json:"skipped"`
	Results []CandidateResult `json:"results"`
}

// Applied is the number of candidates whose ledger changed.
func (r MarkResult) Applied() int { return r.Updated + r.Created }
