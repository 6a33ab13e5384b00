package models

import (
	"fmt"
	"sort"
	"strings"
)

// Schedule maps each required course code to exactly one chosen section.
type Schedule struct {
	Sections map[string]Section `json:"sections"`
}

// NewSchedule builds an empty schedule.
func NewSchedule() Schedule {
	return Schedule{Sections: make(map[string]Section)}
}

// AllBlocks returns every time block of every chosen section.
func (s Schedule) AllBlocks() []TimeBlock {
	var blocks []TimeBlock
	for _, sec := range s.Sections {
		blocks = append(blocks, sec.Blocks...)
	}
	return blocks
}

// CourseCodes returns the scheduled course codes in sorted order.
func (s Schedule) CourseCodes() []string {
	codes := make([]string, 0, len(s.Sections))
	for code := range s.Sections {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// ScheduleClass is one serialised row of an accepted schedule, one entry per
// time block so multi-block sections stay fully represented downstream.
type ScheduleClass struct {
	CRN          string `json:"crn"`
	CourseNumber string `json:"courseNumber"`
	CourseName   string `json:"courseName"`
	Days         string `json:"days"`
	Time         string `json:"time"`
	Location     string `json:"location"`
	IsLab        bool   `json:"isLab"`
}

// ScheduleResult is the downstream contract: either a complete set of classes
// or an empty list plus a typed error.
type ScheduleResult struct {
	Classes []ScheduleClass `json:"classes"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Serialize flattens a schedule into the downstream class-row form. Every
// block of a chosen section is emitted; untimed sections are marked Online.
func (s Schedule) Serialize() ScheduleResult {
	result := ScheduleResult{Classes: []ScheduleClass{}}
	for _, code := range s.CourseCodes() {
		sec := s.Sections[code]
		if sec.Untimed() {
			result.Classes = append(result.Classes, ScheduleClass{
				CRN:          sec.CRN,
				CourseNumber: sec.CourseCode,
				CourseName:   sec.Title,
				Days:         "Online",
				Time:         "Online",
				Location:     "Online",
				IsLab:        sec.Kind == KindLab,
			})
			continue
		}
		for _, block := range sec.Blocks {
			if !block.Timed() {
				continue
			}
			result.Classes = append(result.Classes, ScheduleClass{
				CRN:          sec.CRN,
				CourseNumber: sec.CourseCode,
				CourseName:   sec.Title,
				Days:         FormatWeekdays(block.Days),
				Time:         fmt.Sprintf("%s - %s", FormatClock(block.StartMinute), FormatClock(block.EndMinute)),
				Location:     block.Location,
				IsLab:        sec.Kind == KindLab,
			})
		}
	}
	return result
}

// FormatClock renders minutes-since-midnight as a 12-hour clock string.
func FormatClock(minute int) string {
	hour := minute / 60
	min := minute % 60
	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	display := hour % 12
	if display == 0 {
		display = 12
	}
	return fmt.Sprintf("%d:%02d%s", display, min, suffix)
}

// NormalizeCourseCode strips hyphens and whitespace so oracle responses using
// "CS-2114" match the catalog form "CS2114".
func NormalizeCourseCode(raw string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), "-", ""))
}
