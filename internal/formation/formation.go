// Package formation manages training programs: a titled course with a
// start/end date range, assigned mentors and free-form tags.
package formation

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a formation id does not resolve.
var ErrNotFound = errors.New("formation: not found")

// ErrInvalidRange is returned when end_date precedes start_date at creation.
var ErrInvalidRange = errors.New("formation: end date before start date")

// Formation is a scheduled training program.
type Formation struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Mentors     []string  `json:"mentors"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"created_at"`
}
