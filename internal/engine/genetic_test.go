package engine

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hokieplan/schedule-api/internal/models"
)

func TestGeneticSearchFindsConflictFreeSchedule(t *testing.T) {
	mon := []models.Weekday{models.Monday}
	candidates := map[string][]models.Section{}
	// Five courses, five sections each; section i of every course occupies
	// slot i, so any schedule picking five distinct slots is valid.
	for c := 0; c < 5; c++ {
		course := fmt.Sprintf("COURSE%d", c)
		var sections []models.Section
		for s := 0; s < 5; s++ {
			start := 480 + s*60
			crn := fmt.Sprintf("%d%d", c, s)
			sections = append(sections, timedSection(crn, course, mon, start, start+50))
		}
		candidates[course] = sections
	}

	rng := rand.New(rand.NewSource(42))
	best, err := GeneticSearch(context.Background(), candidates, models.Preference{}, DefaultGeneticParams(), rng)
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.GreaterOrEqual(t, best.Score, BaseScore)

	// Winning schedule must be conflict-free.
	codes := best.Schedule.CourseCodes()
	for i := 0; i < len(codes); i++ {
		for j := i + 1; j < len(codes); j++ {
			assert.False(t, Conflicts(best.Schedule.Sections[codes[i]], best.Schedule.Sections[codes[j]]))
		}
	}
}

func TestGeneticSearchInfeasibleReturnsNil(t *testing.T) {
	mon := []models.Weekday{models.Monday}
	// Both courses only offer the same time slot.
	candidates := map[string][]models.Section{
		"A": {timedSection("1", "A", mon, 540, 590)},
		"B": {timedSection("2", "B", mon, 540, 590)},
	}

	rng := rand.New(rand.NewSource(7))
	best, err := GeneticSearch(context.Background(), candidates, models.Preference{}, DefaultGeneticParams(), rng)
	require.NoError(t, err)
	assert.Nil(t, best)
}

func TestGeneticSearchHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	candidates := map[string][]models.Section{
		"A": {timedSection("1", "A", []models.Weekday{models.Monday}, 540, 590)},
	}
	rng := rand.New(rand.NewSource(1))
	_, err := GeneticSearch(ctx, candidates, models.Preference{}, DefaultGeneticParams(), rng)
	assert.ErrorIs(t, err, context.Canceled)
}
