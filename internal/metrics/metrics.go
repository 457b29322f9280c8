// Package metrics exposes the Prometheus counters of the API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AttendanceMarks counts candidates touched by attendance marking,
	// labeled by outcome (updated, created, skipped).
	AttendanceMarks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "formation_attendance_marks_total",
		Help: "Candidates processed by attendance mark batches.",
	}, []string{"outcome"})

	// RosterImports counts bulk roster imports.
	RosterImports = promauto.NewCounter(prometheus.CounterOpts{
		Name: "formation_roster_imports_total",
		Help: "Roster import requests processed.",
	})

	// ImportedCandidates counts candidates created through imports.
	ImportedCandidates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "formation_imported_candidates_total",
		Help: "Candidates created by roster imports.",
	})
)
