package models

import "strings"

// Weekday indexes the five teaching days.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
)

var dayLetters = [...]string{"M", "T", "W", "R", "F"}

// Letter returns the single-letter catalog code for the day.
func (d Weekday) Letter() string {
	if d < Monday || d > Friday {
		return "?"
	}
	return dayLetters[d]
}

// ParseWeekdays converts a catalog day string such as "MWF" into weekdays.
// Unknown letters are skipped.
func ParseWeekdays(raw string) []Weekday {
	var days []Weekday
	for _, r := range strings.ToUpper(strings.TrimSpace(raw)) {
		switch r {
		case 'M':
			days = append(days, Monday)
		case 'T':
			days = append(days, Tuesday)
		case 'W':
			days = append(days, Wednesday)
		case 'R':
			days = append(days, Thursday)
		case 'F':
			days = append(days, Friday)
		}
	}
	return days
}

// FormatWeekdays renders days back into the catalog letter form.
func FormatWeekdays(days []Weekday) string {
	var b strings.Builder
	for _, d := range days {
		b.WriteString(d.Letter())
	}
	return b.String()
}

// ScheduleKind classifies the meeting type of a section row.
type ScheduleKind string

const (
	KindLecture    ScheduleKind = "lecture"
	KindLab        ScheduleKind = "lab"
	KindRecitation ScheduleKind = "recitation"
	KindOther      ScheduleKind = "other"
)

// ParseScheduleKind normalises free-form catalog schedule types.
func ParseScheduleKind(raw string) ScheduleKind {
	lower := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(lower, "lab"):
		return KindLab
	case strings.Contains(lower, "recitation"):
		return KindRecitation
	case strings.Contains(lower, "lecture"), lower == "l":
		return KindLecture
	default:
		return KindOther
	}
}

// Modality describes how a section is delivered.
type Modality string

const (
	ModalityInPerson Modality = "inPerson"
	ModalityOnline   Modality = "online"
	ModalityHybrid   Modality = "hybrid"
)

// ParseModality normalises free-form catalog modality descriptions.
func ParseModality(raw string) Modality {
	lower := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(lower, "online"), strings.Contains(lower, "asynchronous"):
		return ModalityOnline
	case strings.Contains(lower, "hybrid"):
		return ModalityHybrid
	default:
		return ModalityInPerson
	}
}

// TimeBlock is one recurring weekly meeting window. An all-zero block
// (no days, start == end == 0) marks a section without a fixed meeting time.
type TimeBlock struct {
	Days        []Weekday `json:"days"`
	StartMinute int       `json:"startMinute"`
	EndMinute   int       `json:"endMinute"`
	Location    string    `json:"location"`
}

// Timed reports whether the block occupies a real weekly window.
func (b TimeBlock) Timed() bool {
	return len(b.Days) > 0 && b.EndMinute > b.StartMinute
}

// Section is one selectable offering (one CRN) of a course, possibly spanning
// multiple time blocks (lecture + lab). Blocks are committed as a unit.
type Section struct {
	CRN        string       `json:"crn"`
	CourseCode string       `json:"courseCode"`
	Title      string       `json:"title"`
	Instructor string       `json:"instructor"`
	Kind       ScheduleKind `json:"scheduleKind"`
	Modality   Modality     `json:"modality"`
	Blocks     []TimeBlock  `json:"timeBlocks"`
}

// Untimed reports whether the section carries no real meeting window
// (asynchronous/online). Untimed sections never conflict with anything.
func (s Section) Untimed() bool {
	for _, b := range s.Blocks {
		if b.Timed() {
			return false
		}
	}
	return true
}

// RawSectionRow is the normalised upstream row shape produced by the catalog
// collector. Rows may still be malformed and are filtered before parsing.
type RawSectionRow struct {
	CRN          string `json:"crn"`
	Course       string `json:"course"`
	Title        string `json:"title"`
	ScheduleType string `json:"scheduleType"`
	Modality     string `json:"modality"`
	Instructor   string `json:"instructor"`
	Days         string `json:"days"`
	BeginTime    string `json:"beginTime"`
	EndTime      string `json:"endTime"`
	Location     string `json:"location"`
}

// CourseRequirement identifies one required course.
type CourseRequirement struct {
	Department string `json:"department"`
	Number     string `json:"number"`
}

// Code joins department and number into the catalog course code.
func (c CourseRequirement) Code() string {
	return strings.ToUpper(strings.TrimSpace(c.Department)) + strings.TrimSpace(c.Number)
}
