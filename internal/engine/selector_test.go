package engine

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hokieplan/schedule-api/internal/models"
)

func lectureRow(crn, course, days, begin, end string) models.RawSectionRow {
	return models.RawSectionRow{
		CRN:          crn,
		Course:       course,
		Title:        course + " Lecture",
		ScheduleType: "Lecture",
		Modality:     "Face-to-Face",
		Days:         days,
		BeginTime:    begin,
		EndTime:      end,
		Location:     "Hall 100",
	}
}

func testSelector() *Selector {
	s := NewSelector(zap.NewNop(), DefaultGeneticParams())
	s.newRand = func() *rand.Rand { return rand.New(rand.NewSource(99)) }
	return s
}

func TestSolveSmallStructuredUsesExact(t *testing.T) {
	in := Input{
		Courses: []models.CourseRequirement{
			{Department: "CS", Number: "101"},
			{Department: "MATH", Number: "201"},
		},
		RowsByCourse: map[string][]models.RawSectionRow{
			"CS101": {
				lectureRow("100", "CS101", "MWF", "9:00AM", "9:50AM"),
				lectureRow("101", "CS101", "MWF", "10:00AM", "10:50AM"),
			},
			"MATH201": {
				lectureRow("200", "MATH201", "TR", "9:30AM", "10:45AM"),
			},
		},
	}

	solution, err := testSelector().Solve(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, StrategyExact, solution.Strategy)
	assert.Equal(t, ComplexityStructured, solution.Complexity)
	assert.False(t, solution.Escalate)
	require.NotEmpty(t, solution.Ranked)
	assert.Nil(t, Validate(solution.Ranked[0].Schedule, in.Courses, solution.Candidates))
}

func TestSolveIrregularEscalatesBeforeSearch(t *testing.T) {
	labRow := lectureRow("300", "CHEM1035", "T", "1:00PM", "3:50PM")
	labRow.ScheduleType = "Lab"

	in := Input{
		Courses: []models.CourseRequirement{{Department: "CHEM", Number: "1035"}},
		RowsByCourse: map[string][]models.RawSectionRow{
			"CHEM1035": {
				lectureRow("301", "CHEM1035", "MWF", "9:00AM", "9:50AM"),
				labRow,
			},
		},
	}

	solution, err := testSelector().Solve(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, StrategyOracle, solution.Strategy)
	assert.Equal(t, ComplexityIrregular, solution.Complexity)
	assert.True(t, solution.Escalate)
	assert.Empty(t, solution.Ranked)
}

func TestSolveLargeStructuredUsesGenetic(t *testing.T) {
	in := Input{RowsByCourse: map[string][]models.RawSectionRow{}}
	for c := 0; c < 5; c++ {
		course := fmt.Sprintf("DEPT10%d", c)
		in.Courses = append(in.Courses, models.CourseRequirement{Department: "DEPT", Number: fmt.Sprintf("10%d", c)})
		var rows []models.RawSectionRow
		for s := 0; s < 5; s++ {
			crn := fmt.Sprintf("9%d%d", c, s)
			begin := models.FormatClock(480 + s*60)
			end := models.FormatClock(480 + s*60 + 50)
			rows = append(rows, lectureRow(crn, course, "MWF", begin, end))
		}
		in.RowsByCourse[course] = rows
	}

	solution, err := testSelector().Solve(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, StrategyGenetic, solution.Strategy)
	assert.False(t, solution.Escalate)
	require.Len(t, solution.Ranked, 1)
	assert.Nil(t, Validate(solution.Ranked[0].Schedule, in.Courses, solution.Candidates))
}

func TestSolveInfeasibleStructuredEscalates(t *testing.T) {
	// Single shared slot for both courses: no local schedule exists.
	in := Input{
		Courses: []models.CourseRequirement{
			{Department: "CS", Number: "101"},
			{Department: "MATH", Number: "201"},
		},
		RowsByCourse: map[string][]models.RawSectionRow{
			"CS101":   {lectureRow("100", "CS101", "MWF", "9:00AM", "9:50AM")},
			"MATH201": {lectureRow("200", "MATH201", "MWF", "9:00AM", "9:50AM")},
		},
	}

	solution, err := testSelector().Solve(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, solution.Escalate)
	assert.Empty(t, solution.Ranked)
}

func TestSolveCourseWithoutSectionsEscalates(t *testing.T) {
	in := Input{
		Courses: []models.CourseRequirement{{Department: "CS", Number: "101"}},
		RowsByCourse: map[string][]models.RawSectionRow{
			"CS101": {},
		},
	}
	solution, err := testSelector().Solve(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, solution.Escalate)
	assert.Equal(t, StrategyOracle, solution.Strategy)
}
