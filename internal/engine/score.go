package engine

import (
	"sort"
	"strings"

	"github.com/hokieplan/schedule-api/internal/models"
)

// BaseScore is awarded to every conflict-free complete schedule before
// preference bonuses.
const BaseScore = 1000

type dayWindow struct {
	start int
	end   int
}

// Score rates a schedule against the student's preferences. Both search
// strategies use this same function so their rankings agree.
func Score(schedule models.Schedule, pref models.Preference) int {
	score := BaseScore

	byDay := make(map[models.Weekday][]dayWindow)
	morning, afternoon, evening := 0, 0, 0
	for _, sec := range schedule.Sections {
		for _, block := range sec.Blocks {
			if !block.Timed() {
				continue
			}
			startHour := block.StartMinute / 60
			switch {
			case startHour >= 7 && startHour < 12:
				morning++
			case startHour >= 12 && startHour < 17:
				afternoon++
			default:
				evening++
			}
			for _, day := range block.Days {
				byDay[day] = append(byDay[day], dayWindow{start: block.StartMinute, end: block.EndMinute})
			}
		}
	}

	var gaps []int
	for _, windows := range byDay {
		sort.Slice(windows, func(i, j int) bool { return windows[i].start < windows[j].start })
		for i := 0; i+1 < len(windows); i++ {
			gaps = append(gaps, windows[i+1].start-windows[i].end)
		}
	}

	if pref.Morning {
		score += morning * 10
	}
	if pref.Afternoon {
		score += afternoon * 10
	}
	if pref.Evening {
		score += evening * 10
	}

	if pref.LunchBreak {
		for _, gap := range gaps {
			if gap >= 30 && gap <= 120 {
				score += 5
			}
		}
	}

	if pref.CompactSchedule {
		for _, gap := range gaps {
			if gap <= 30 {
				score += 3
			}
		}
	} else {
		for _, gap := range gaps {
			if gap >= 15 && gap <= 60 {
				score += 2
			}
		}
	}

	if affinity := strings.ToLower(strings.TrimSpace(pref.InstructorAffinity)); affinity != "" {
		for _, sec := range schedule.Sections {
			if sec.Instructor != "" && strings.Contains(strings.ToLower(sec.Instructor), affinity) {
				score += 20
			}
		}
	}

	return score
}
