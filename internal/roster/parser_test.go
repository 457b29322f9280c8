package roster

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"formation/internal/attendance"
	"formation/internal/formation"
)

func workbook(t *testing.T, rows [][]string) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetList()[0]
	for r, cells := range rows {
		for c, val := range cells {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, val))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return bytes.NewReader(buf.Bytes())
}

func TestParseWorkbook_HeaderKeyedRows(t *testing.T) {
	r := workbook(t, [][]string{
		{"Email", "First Name", "Nom", "Ville"},
		{"a@x.test", "Ada", "Lovelace", "Paris"},
		{"b@x.test", "Blaise", "Pascal", ""},
	})

	rows, err := ParseWorkbook(r)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "a@x.test", rows[0]["email"])
	assert.Equal(t, "Ada", rows[0]["first_name"])
	assert.Equal(t, "Lovelace", rows[0]["last_name"]) // "nom" alias
	assert.Equal(t, "Paris", rows[0]["ville"])
	assert.Equal(t, "", rows[1]["ville"])
}

func TestParseWorkbook_NoDataRows(t *testing.T) {
	r := workbook(t, [][]string{{"email"}})
	_, err := ParseWorkbook(r)
	assert.ErrorIs(t, err, ErrEmptyWorkbook)
}

func TestParseWorkbook_SkipsBlankRows(t *testing.T) {
	r := workbook(t, [][]string{
		{"email"},
		{""},
		{"a@x.test"},
	})
	rows, err := ParseWorkbook(r)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestCandidateFromRow(t *testing.T) {
	c, err := CandidateFromRow("f1", RawRow{
		"email":      "a@x.test",
		"first_name": "Ada",
		"last_name":  "Lovelace",
		"ville":      "Paris",
	})
	require.NoError(t, err)
	assert.Equal(t, "f1", c.FormationID)
	assert.Equal(t, "a@x.test", c.Email)
	assert.Equal(t, map[string]string{"ville": "Paris"}, c.Profile)
}

func TestCandidateFromRow_MissingEmail(t *testing.T) {
	_, err := CandidateFromRow("f1", RawRow{"first_name": "Ada"})
	assert.Error(t, err)
}

type fakeFormations struct{ f formation.Formation }

func (s fakeFormations) Get(_ context.Context, id string) (formation.Formation, error) {
	if id != s.f.ID {
		return formation.Formation{}, formation.ErrNotFound
	}
	return s.f, nil
}

type fakeEnroller struct {
	enrolled []attendance.Candidate
	days     [][]time.Time
	failOn   string
}

func (e *fakeEnroller) Enroll(_ context.Context, c attendance.Candidate, dates []time.Time) (attendance.Candidate, error) {
	if c.Email == e.failOn {
		return attendance.Candidate{}, errors.New("duplicate email")
	}
	c.ID = c.Email
	e.enrolled = append(e.enrolled, c)
	e.days = append(e.days, dates)
	return c, nil
}

func TestImport_SeedsCalendarAndReportsPerRow(t *testing.T) {
	formations := fakeFormations{f: formation.Formation{
		ID:        "f1",
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
	}}
	enroller := &fakeEnroller{failOn: "bad@x.test"}
	imp := NewImporter(formations, enroller)

	r := workbook(t, [][]string{
		{"email"},
		{"a@x.test"},
		{"bad@x.test"},
		{"c@x.test"},
	})
	report, err := imp.Import(context.Background(), "f1", r)
	require.NoError(t, err)

	assert.Equal(t, 5, report.SessionCount)
	assert.Equal(t, 2, report.Imported)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Rows, 3)
	assert.Empty(t, report.Rows[0].Error)
	assert.NotEmpty(t, report.Rows[1].Error)
	require.Len(t, enroller.days, 2)
	assert.Len(t, enroller.days[0], 5)
}

func TestImport_UnknownFormation(t *testing.T) {
	imp := NewImporter(fakeFormations{f: formation.Formation{ID: "f1"}}, &fakeEnroller{})
	_, err := imp.Import(context.Background(), "ghost", workbook(t, [][]string{{"email"}, {"a@x.test"}}))
	assert.ErrorIs(t, err, formation.ErrNotFound)
}
