package engine

import (
	"context"
	"sort"

	"github.com/hokieplan/schedule-api/internal/models"
)

// TopSchedules is how many ranked schedules the exact search keeps.
const TopSchedules = 10

// Ranked pairs a complete conflict-free schedule with its preference score.
type Ranked struct {
	Schedule models.Schedule
	Score    int
}

// ExactSearch enumerates one-section-per-course assignments by backtracking,
// pruning any candidate conflicting with the partial assignment. It returns
// up to TopSchedules results sorted best-first, or nil when the instance is
// infeasible. Cancellation is checked at each depth boundary.
func ExactSearch(ctx context.Context, candidates map[string][]models.Section, pref models.Preference) ([]Ranked, error) {
	courses := make([]string, 0, len(candidates))
	for code := range candidates {
		courses = append(courses, code)
	}
	sort.Strings(courses)

	var results []Ranked
	chosen := make([]models.Section, 0, len(courses))

	var walk func(depth int) error
	walk = func(depth int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if depth == len(courses) {
			schedule := models.NewSchedule()
			for i, code := range courses {
				schedule.Sections[code] = chosen[i]
			}
			results = append(results, Ranked{Schedule: schedule, Score: Score(schedule, pref)})
			return nil
		}
		for _, cand := range candidates[courses[depth]] {
			clash := false
			for _, committed := range chosen {
				if Conflicts(cand, committed) {
					clash = true
					break
				}
			}
			if clash {
				continue
			}
			chosen = append(chosen, cand)
			if err := walk(depth + 1); err != nil {
				return err
			}
			chosen = chosen[:len(chosen)-1]
		}
		return nil
	}

	if err := walk(0); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > TopSchedules {
		results = results[:TopSchedules]
	}
	return results, nil
}
