package engine

import (
	"strings"

	"github.com/hokieplan/schedule-api/internal/models"
)

// commentPhrases appear in registrar boilerplate rows that the upstream
// collector sometimes captures alongside real section data.
var commentPhrases = []string{
	"Comments for CRN",
	"Each CRN is a combined",
	"Additional Times",
	"Course Request Number",
	"Show All Types",
	"ALL Sections",
	"ONLY OPEN Sections",
	"Course Modality",
	"ALL Modalities",
	"Face-to-Face Instruction",
	"Online with Synchronous",
	"Online: Asynchronous",
}

// FilterRows drops catalog rows that cannot describe a real section: comment
// and boilerplate rows, rows without a numeric CRN, and rows whose text
// fields are too long to be catalog data. Empty days/times survive the filter
// because online sections legitimately have neither.
func FilterRows(rows []models.RawSectionRow) []models.RawSectionRow {
	kept := make([]models.RawSectionRow, 0, len(rows))
	for _, row := range rows {
		if validRow(row) {
			kept = append(kept, row)
		}
	}
	return kept
}

func validRow(row models.RawSectionRow) bool {
	crn := strings.TrimSpace(row.CRN)
	if crn == "" || crn == "?" || !allDigits(crn) {
		return false
	}

	course := strings.TrimSpace(row.Course)
	if course == "" || len(course) > 20 {
		return false
	}
	if len(strings.TrimSpace(row.Title)) > 100 {
		return false
	}
	if len(strings.TrimSpace(row.ScheduleType)) > 20 {
		return false
	}
	if len(strings.TrimSpace(row.Instructor)) > 50 {
		return false
	}
	if len(strings.TrimSpace(row.Days)) > 10 {
		return false
	}
	if len(strings.TrimSpace(row.BeginTime)) > 10 || len(strings.TrimSpace(row.EndTime)) > 10 {
		return false
	}
	if len(strings.TrimSpace(row.Location)) > 50 {
		return false
	}

	fields := []string{row.CRN, row.Course, row.Title, row.ScheduleType, row.Instructor, row.Days, row.BeginTime, row.EndTime, row.Location}
	for _, field := range fields {
		for _, phrase := range commentPhrases {
			if strings.Contains(field, phrase) {
				return false
			}
		}
	}
	return true
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Complexity is the structural classification driving strategy selection.
type Complexity string

const (
	// ComplexityStructured means every section is a plain single-block
	// in-person meeting, so local search applies.
	ComplexityStructured Complexity = "structured"
	// ComplexityIrregular means at least one course carries labs, online or
	// hybrid delivery, arranged days, or multi-block CRNs. Irregular inputs
	// go straight to the oracle.
	ComplexityIrregular Complexity = "irregular"
)

// ClassifyRows inspects the raw (already filtered) rows per course and
// reports whether the request is structurally irregular.
func ClassifyRows(rowsByCourse map[string][]models.RawSectionRow) Complexity {
	for _, rows := range rowsByCourse {
		crnRows := make(map[string]int)
		for _, row := range rows {
			crn := strings.TrimSpace(row.CRN)
			crnRows[crn]++
			if crnRows[crn] > 1 {
				return ComplexityIrregular
			}

			scheduleType := strings.ToLower(row.ScheduleType)
			modality := strings.ToLower(row.Modality)
			days := strings.TrimSpace(row.Days)
			begin := strings.TrimSpace(row.BeginTime)

			if strings.Contains(scheduleType, "lab") {
				return ComplexityIrregular
			}
			if strings.Contains(modality, "online") || strings.Contains(modality, "hybrid") {
				return ComplexityIrregular
			}
			// Days with no start time marks an asynchronous/arranged meeting.
			if days != "" && begin == "" {
				return ComplexityIrregular
			}
			if strings.Contains(strings.ToLower(days), "arr") || strings.Contains(strings.ToLower(begin), "arr") {
				return ComplexityIrregular
			}
		}
	}
	return ComplexityStructured
}
