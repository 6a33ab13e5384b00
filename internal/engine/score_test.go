package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hokieplan/schedule-api/internal/models"
)

func twoClassSchedule(firstStart, firstEnd, secondStart, secondEnd int) models.Schedule {
	mon := []models.Weekday{models.Monday}
	s := models.NewSchedule()
	s.Sections["A"] = timedSection("1", "A", mon, firstStart, firstEnd)
	s.Sections["B"] = timedSection("2", "B", mon, secondStart, secondEnd)
	return s
}

func TestScoreBaseline(t *testing.T) {
	s := twoClassSchedule(540, 590, 800, 850)
	assert.Equal(t, BaseScore, Score(s, models.Preference{}))
}

func TestScoreMorningPreference(t *testing.T) {
	morningHeavy := twoClassSchedule(480, 530, 540, 590) // both before noon
	afternoonHeavy := twoClassSchedule(780, 830, 840, 890)

	pref := models.Preference{Morning: true}
	assert.Greater(t, Score(morningHeavy, pref), Score(afternoonHeavy, pref))
}

func TestScoreLunchBreak(t *testing.T) {
	// 60 minute gap lands in the lunch window.
	withGap := twoClassSchedule(600, 650, 710, 760)
	noGap := twoClassSchedule(600, 650, 1000, 1050)

	pref := models.Preference{LunchBreak: true}
	assert.Greater(t, Score(withGap, pref), Score(noGap, pref))
}

func TestScoreCompactSchedule(t *testing.T) {
	tight := twoClassSchedule(540, 590, 600, 650)  // 10 minute gap
	sparse := twoClassSchedule(540, 590, 800, 850) // long gap

	pref := models.Preference{CompactSchedule: true}
	assert.Greater(t, Score(tight, pref), Score(sparse, pref))
}

func TestScoreInstructorAffinity(t *testing.T) {
	s := twoClassSchedule(540, 590, 800, 850)
	withInstructor := s.Sections["A"]
	withInstructor.Instructor = "Dana McPilkey"
	s.Sections["A"] = withInstructor

	assert.Equal(t, BaseScore+20, Score(s, models.Preference{InstructorAffinity: "mcpilkey"}))
}

func TestScoreIgnoresUntimedBlocks(t *testing.T) {
	s := models.NewSchedule()
	s.Sections["A"] = onlineSection("1", "A")
	assert.Equal(t, BaseScore, Score(s, models.Preference{Morning: true, LunchBreak: true}))
}
