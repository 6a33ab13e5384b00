package engine

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/hokieplan/schedule-api/internal/models"
)

// GapMinutes is the minimum break required between two classes sharing a day.
// A pair closer than this counts as an overlap even when the windows touch.
const GapMinutes = 5

// ViolationKind enumerates schedule validation failures.
type ViolationKind string

const (
	ViolationIncomplete       ViolationKind = "INCOMPLETE"
	ViolationOverlap          ViolationKind = "OVERLAP"
	ViolationComponentMissing ViolationKind = "COMPONENT_MISSING"
)

// Violation describes the first validation rule a schedule broke.
type Violation struct {
	Kind   ViolationKind
	Detail string
}

func (v *Violation) Error() string {
	if v == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s: %s", v.Kind, v.Detail)
}

// ParseClock converts a 12-hour catalog time string ("9:30AM", "12:00 PM")
// into minutes since midnight. Strings without an AM/PM suffix are read as a
// 24-hour clock.
func ParseClock(raw string) (int, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return 0, fmt.Errorf("empty time string")
	}

	period := ""
	if idx := strings.IndexAny(s, "AP"); idx >= 0 {
		period = strings.TrimSpace(s[idx:])
		s = strings.TrimSpace(s[:idx])
		if period != "AM" && period != "PM" {
			return 0, fmt.Errorf("unrecognized clock suffix %q", raw)
		}
	}

	hourPart := s
	minutePart := "0"
	if strings.Contains(s, ":") {
		parts := strings.SplitN(s, ":", 2)
		hourPart, minutePart = parts[0], parts[1]
	}

	hours, err := strconv.Atoi(strings.TrimSpace(hourPart))
	if err != nil {
		return 0, fmt.Errorf("parse hours in %q: %w", raw, err)
	}
	minutes, err := strconv.Atoi(strings.TrimSpace(minutePart))
	if err != nil {
		return 0, fmt.Errorf("parse minutes in %q: %w", raw, err)
	}
	if minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("minutes out of range in %q", raw)
	}

	switch period {
	case "PM":
		if hours != 12 {
			hours += 12
		}
	case "AM":
		if hours == 12 {
			hours = 0
		}
	}
	if hours < 0 || hours > 23 {
		return 0, fmt.Errorf("hours out of range in %q", raw)
	}

	return hours*60 + minutes, nil
}

// ParseSections groups raw catalog rows by CRN and produces one section per
// CRN. Rows with days and times become time blocks; rows with days but no
// times become auxiliary (arranged) blocks on an already-seen CRN; rows with
// neither mark the section online. Rows with malformed times are dropped with
// a warning.
func ParseSections(logger *zap.Logger, rows []models.RawSectionRow) []models.Section {
	if logger == nil {
		logger = zap.NewNop()
	}

	groups := make(map[string]*models.Section)
	var order []string

	for _, row := range rows {
		crn := strings.TrimSpace(row.CRN)
		if crn == "" {
			continue
		}
		sec, ok := groups[crn]
		if !ok {
			sec = &models.Section{
				CRN:        crn,
				CourseCode: models.NormalizeCourseCode(row.Course),
				Title:      strings.TrimSpace(row.Title),
				Instructor: strings.TrimSpace(row.Instructor),
				Kind:       models.ParseScheduleKind(row.ScheduleType),
				Modality:   models.ParseModality(row.Modality),
			}
			groups[crn] = sec
			order = append(order, crn)
		}

		days := strings.TrimSpace(row.Days)
		if strings.EqualFold(days, "ARR") {
			days = ""
		}
		begin := strings.TrimSpace(row.BeginTime)
		end := strings.TrimSpace(row.EndTime)
		location := strings.TrimSpace(row.Location)

		switch {
		case days == "" && begin == "" && end == "":
			if sec.Modality == models.ModalityInPerson {
				sec.Modality = models.ModalityOnline
			}
			sec.Blocks = append(sec.Blocks, models.TimeBlock{Location: location})

		case days != "" && begin != "" && end != "":
			start, err := ParseClock(begin)
			if err == nil {
				var finish int
				finish, err = ParseClock(end)
				if err == nil && finish > start {
					weekdays := models.ParseWeekdays(days)
					if len(weekdays) > 0 {
						sec.Blocks = append(sec.Blocks, models.TimeBlock{
							Days:        weekdays,
							StartMinute: start,
							EndMinute:   finish,
							Location:    location,
						})
					}
					continue
				}
			}
			logger.Warn("dropping section row with malformed time",
				zap.String("crn", crn),
				zap.String("begin", begin),
				zap.String("end", end),
				zap.Error(err))

		case days != "":
			// Arranged/auxiliary row: only meaningful when the CRN already
			// has a primary block to inherit identity from.
			if len(sec.Blocks) == 0 {
				continue
			}
			weekdays := models.ParseWeekdays(days)
			if len(weekdays) == 0 {
				continue
			}
			block := models.TimeBlock{Days: weekdays, Location: location}
			if begin != "" && end != "" {
				if start, err := ParseClock(begin); err == nil {
					if finish, err := ParseClock(end); err == nil && finish > start {
						block.StartMinute = start
						block.EndMinute = finish
					}
				}
			}
			sec.Blocks = append(sec.Blocks, block)

		default:
			logger.Warn("dropping malformed section row",
				zap.String("crn", crn),
				zap.String("days", row.Days),
				zap.String("begin", begin))
		}
	}

	sections := make([]models.Section, 0, len(order))
	for _, crn := range order {
		sections = append(sections, *groups[crn])
	}
	return sections
}

// blocksConflict reports whether two timed blocks share a weekday and sit
// closer than the required gap.
func blocksConflict(a, b models.TimeBlock) bool {
	if !a.Timed() || !b.Timed() {
		return false
	}
	shared := false
	for _, da := range a.Days {
		for _, db := range b.Days {
			if da == db {
				shared = true
			}
		}
	}
	if !shared {
		return false
	}
	return a.StartMinute < b.EndMinute+GapMinutes && b.StartMinute < a.EndMinute+GapMinutes
}

// Conflicts reports whether any block pair of the two sections collides.
// A section without any timed block never conflicts.
func Conflicts(a, b models.Section) bool {
	if a.Untimed() || b.Untimed() {
		return false
	}
	for _, ba := range a.Blocks {
		for _, bb := range b.Blocks {
			if blocksConflict(ba, bb) {
				return true
			}
		}
	}
	return false
}

// ConflictGraph is an undirected adjacency structure over a fixed section
// slice, built fresh per request.
type ConflictGraph struct {
	sections []models.Section
	adjacent []map[int]struct{}
}

// BuildConflictGraph computes pairwise conflicts once so search strategies
// can test edges in constant time.
func BuildConflictGraph(sections []models.Section) *ConflictGraph {
	g := &ConflictGraph{
		sections: sections,
		adjacent: make([]map[int]struct{}, len(sections)),
	}
	for i := range sections {
		g.adjacent[i] = make(map[int]struct{})
	}
	for i := 0; i < len(sections); i++ {
		for j := i + 1; j < len(sections); j++ {
			if Conflicts(sections[i], sections[j]) {
				g.adjacent[i][j] = struct{}{}
				g.adjacent[j][i] = struct{}{}
			}
		}
	}
	return g
}

// Edge reports whether sections i and j conflict.
func (g *ConflictGraph) Edge(i, j int) bool {
	if i < 0 || j < 0 || i >= len(g.adjacent) || j >= len(g.adjacent) {
		return false
	}
	_, ok := g.adjacent[i][j]
	return ok
}

// Validate checks a candidate schedule in order: exact course-set coverage,
// pairwise overlap, then lecture/lab completeness. The first broken rule is
// returned; nil means the schedule is acceptable.
func Validate(schedule models.Schedule, required []models.CourseRequirement, candidates map[string][]models.Section) *Violation {
	want := make(map[string]struct{}, len(required))
	for _, course := range required {
		want[course.Code()] = struct{}{}
	}
	if len(schedule.Sections) != len(want) {
		return &Violation{Kind: ViolationIncomplete, Detail: fmt.Sprintf("schedule covers %d of %d required courses", len(schedule.Sections), len(want))}
	}
	for code := range schedule.Sections {
		if _, ok := want[code]; !ok {
			return &Violation{Kind: ViolationIncomplete, Detail: fmt.Sprintf("unexpected course %s", code)}
		}
	}

	codes := schedule.CourseCodes()
	for i := 0; i < len(codes); i++ {
		for j := i + 1; j < len(codes); j++ {
			a := schedule.Sections[codes[i]]
			b := schedule.Sections[codes[j]]
			if Conflicts(a, b) {
				return &Violation{Kind: ViolationOverlap, Detail: fmt.Sprintf("%s (CRN %s) overlaps %s (CRN %s)", codes[i], a.CRN, codes[j], b.CRN)}
			}
		}
	}

	for code, chosen := range schedule.Sections {
		pool := candidates[code]
		if len(pool) == 0 {
			continue
		}
		hasLecture, hasLab, combined := false, false, false
		for _, cand := range pool {
			switch cand.Kind {
			case models.KindLecture:
				hasLecture = true
			case models.KindLab:
				hasLab = true
			}
			if timedBlocks(cand) > 1 {
				combined = true
			}
		}
		if hasLecture && hasLab && combined &&
			chosen.Kind == models.KindLecture && timedBlocks(chosen) <= 1 {
			return &Violation{Kind: ViolationComponentMissing, Detail: fmt.Sprintf("%s requires a combined lecture+lab offering, CRN %s is lecture only", code, chosen.CRN)}
		}
	}

	return nil
}

func timedBlocks(sec models.Section) int {
	count := 0
	for _, b := range sec.Blocks {
		if b.Timed() {
			count++
		}
	}
	return count
}
