// Package roster turns uploaded candidate spreadsheets into enrolled
// candidates. Parsing is kept apart from the attendance logic: a
// workbook becomes untyped header-keyed rows first, and each row is
// validated into a candidate in a separate step.
package roster

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"formation/internal/attendance"
)

// ErrEmptyWorkbook is returned when the sheet holds no data rows.
var ErrEmptyWorkbook = errors.New("roster: workbook has no data rows")

// RawRow is one spreadsheet row keyed by normalized header name.
type RawRow map[string]string

// headerAliases maps legacy roster column names onto canonical fields.
var headerAliases = map[string]string{
	"nom":    "last_name",
	"prenom": "first_name",
	"mail":   "email",
}

// ParseWorkbook reads the first sheet of an .xlsx file. The first row
// is the header; remaining rows become RawRows. Headers are lowercased
// and trimmed, with legacy French names mapped to canonical fields.
// Cells beyond the header width are ignored.
func ParseWorkbook(r io.Reader) ([]RawRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("roster: open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyWorkbook
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("roster: read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, ErrEmptyWorkbook
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = normalizeHeader(h)
	}

	out := make([]RawRow, 0, len(rows)-1)
	for _, cells := range rows[1:] {
		row := make(RawRow, len(headers))
		empty := true
		for i, h := range headers {
			if h == "" {
				continue
			}
			var val string
			if i < len(cells) {
				val = strings.TrimSpace(cells[i])
			}
			if val != "" {
				empty = false
			}
			row[h] = val
		}
		if !empty {
			out = append(out, row)
		}
	}
	return out, nil
}

// CandidateFromRow validates a raw row into a candidate owned by the
// formation. Email is required; first/last name are taken when present
// and every other column lands in the opaque profile map.
func CandidateFromRow(formationID string, row RawRow) (attendance.Candidate, error) {
	email := row["email"]
	if email == "" {
		return attendance.Candidate{}, errors.New("roster: row missing email")
	}

	c := attendance.Candidate{
		FormationID: formationID,
		Email:       email,
		FirstName:   row["first_name"],
		LastName:    row["last_name"],
		Profile:     map[string]string{},
	}
	for k, v := range row {
		switch k {
		case "email", "first_name", "last_name":
		default:
			if v != "" {
				c.Profile[k] = v
			}
		}
	}
	return c, nil
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.ReplaceAll(h, " ", "_")
	if canonical, ok := headerAliases[h]; ok {
		return canonical
	}
	return h
}
