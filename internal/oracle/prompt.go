package oracle

import (
	"fmt"
	"strings"

	"github.com/hokieplan/schedule-api/internal/models"
)

// SystemInstruction pins the generation contract: one CRN per course, all of
// a CRN's time blocks or none, no overlaps, 5-minute minimum gap, and the
// exact JSON row shape the validator expects.
const SystemInstruction = `You are a university timetable generator.

Input:
- A list of required courses the student must take.
- For each course, the available sections as CSV rows with columns:
  CRN, Course, Title, Schedule Type, Modality, Instructor, Days, Begin Time, End Time, Location.
- Some CRNs appear on multiple rows; additional rows carry extra meeting
  blocks (labs, extra days) for that same CRN and belong to it.

Strict rules, never to be broken:
1. Select exactly one section (CRN) per required course.
2. If a CRN has multiple time blocks, include all of them or none of them.
3. No two classes may overlap, even by a single minute. A class ending at
   10:00AM and another starting at 10:00AM is a conflict.
4. Leave at least a 5-minute gap between consecutive classes.
5. For courses with lecture and lab components, include both or return nothing.
6. Never return a partial schedule. If no valid combination exists after
   trying many different CRN selections, return an empty classes array.

Course codes must use the form DEPARTMENTNUMBER (for example "CS2114"),
never hyphenated.

Output one row per meeting day: a class meeting Monday, Wednesday and Friday
produces three rows. Times use the 12-hour clock, for example
"9:30AM - 10:45AM". Online sections use "Online" for days, time and location.

Preferences apply only after every strict rule is satisfied.`

// BuildPrompt renders the request into the textual form the oracle consumes:
// preference lines, the required course list, and per-course CSV timetables.
func BuildPrompt(courses []models.CourseRequirement, rowsByCourse map[string][]models.RawSectionRow, pref models.Preference) string {
	var b strings.Builder

	if lines := preferenceLines(pref); len(lines) > 0 {
		b.WriteString("Student preferences:\n")
		for _, line := range lines {
			b.WriteString("- ")
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("Required courses:\n")
	for _, course := range courses {
		b.WriteString("- ")
		b.WriteString(course.Code())
		b.WriteString("\n")
	}

	b.WriteString("\nAvailable sections:\n")
	for _, course := range courses {
		code := course.Code()
		rows := rowsByCourse[code]
		b.WriteString(fmt.Sprintf("\nCourse %s:\n", code))
		b.WriteString("CRN,Course,Title,Schedule Type,Modality,Instructor,Days,Begin Time,End Time,Location\n")
		for _, row := range rows {
			b.WriteString(strings.Join([]string{
				csvField(row.CRN),
				csvField(row.Course),
				csvField(row.Title),
				csvField(row.ScheduleType),
				csvField(row.Modality),
				csvField(row.Instructor),
				csvField(row.Days),
				csvField(row.BeginTime),
				csvField(row.EndTime),
				csvField(row.Location),
			}, ","))
			b.WriteString("\n")
		}
	}

	return b.String()
}

func preferenceLines(pref models.Preference) []string {
	var lines []string
	if pref.Morning {
		lines = append(lines, "prefers morning classes")
	}
	if pref.Afternoon {
		lines = append(lines, "prefers afternoon classes")
	}
	if pref.Evening {
		lines = append(lines, "prefers evening classes")
	}
	if pref.LunchBreak {
		lines = append(lines, "wants a lunch break")
	}
	if pref.CompactSchedule {
		lines = append(lines, "wants classes close together")
	}
	if affinity := strings.TrimSpace(pref.InstructorAffinity); affinity != "" {
		lines = append(lines, fmt.Sprintf("prefers instructor %s when available", affinity))
	}
	if text := strings.TrimSpace(pref.FreeText); text != "" {
		lines = append(lines, text)
	}
	return lines
}

func csvField(s string) string {
	s = strings.TrimSpace(s)
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
