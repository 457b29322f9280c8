// Package stats aggregates confirmation and presence figures per
// formation for the dashboards.
package stats

// FormationConfirmation reports the confirmed-candidate rate of one
// formation. Rate is a percentage rounded to two decimals, 0 when the
// formation has no candidates.
type FormationConfirmation struct {
	FormationID     string  `json:"formation_id"`
	Title           string  `json:"title"`
	TotalCandidates int     `json:"total_candidates"`
	Confirmed       int     `json:"confirmed"`
	Rate            float64 `json:"rate"`
}

// FormationPresence reports, for a finished formation, how many
// candidates attended more than half of the sessions.
//
// TotalSessions is the raw calendar-day count of the range, not the
// weekday-filtered count the calendar package produces. The two notions
// disagree for any range spanning a weekend; the raw count is the
// historical behavior of this aggregate and is kept as is.
type FormationPresence struct {
	FormationID     string `json:"formation_id"`
	Title           string `json:"title"`
	TotalSessions   int    `json:"total_sessions"`
	TotalCandidates int    `json:"total_candidates"`
	Attending       int    `json:"attending"`
}
