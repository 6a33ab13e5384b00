package engine

import (
	"context"
	"math/rand"
	"sort"

	"github.com/hokieplan/schedule-api/internal/models"
)

// GeneticParams tunes the metaheuristic search.
type GeneticParams struct {
	PopulationSize int
	Generations    int
	MutationRate   float64
	TournamentSize int
}

// DefaultGeneticParams mirrors the tuning that works well for typical course
// loads (4-7 courses, tens of sections each).
func DefaultGeneticParams() GeneticParams {
	return GeneticParams{
		PopulationSize: 50,
		Generations:    100,
		MutationRate:   0.1,
		TournamentSize: 3,
	}
}

// individual is one candidate assignment: section index per course position.
type individual []int

// GeneticSearch evolves one-section-per-course assignments. Conflicting
// assignments score zero so selection pressure removes them. Returns the best
// conflict-free schedule found, or nil when no generation produced one.
// Cancellation is checked once per generation.
func GeneticSearch(ctx context.Context, candidates map[string][]models.Section, pref models.Preference, params GeneticParams, rng *rand.Rand) (*Ranked, error) {
	courses := make([]string, 0, len(candidates))
	for code := range candidates {
		if len(candidates[code]) == 0 {
			return nil, nil
		}
		courses = append(courses, code)
	}
	sort.Strings(courses)
	if len(courses) == 0 {
		return nil, nil
	}

	build := func(ind individual) models.Schedule {
		schedule := models.NewSchedule()
		for i, code := range courses {
			schedule.Sections[code] = candidates[code][ind[i]]
		}
		return schedule
	}

	fitness := func(ind individual) int {
		schedule := build(ind)
		codes := schedule.CourseCodes()
		for i := 0; i < len(codes); i++ {
			for j := i + 1; j < len(codes); j++ {
				if Conflicts(schedule.Sections[codes[i]], schedule.Sections[codes[j]]) {
					return 0
				}
			}
		}
		return Score(schedule, pref)
	}

	random := func() individual {
		ind := make(individual, len(courses))
		for i, code := range courses {
			ind[i] = rng.Intn(len(candidates[code]))
		}
		return ind
	}

	tournament := func(population []individual, scores []int) individual {
		best := rng.Intn(len(population))
		for k := 1; k < params.TournamentSize; k++ {
			challenger := rng.Intn(len(population))
			if scores[challenger] > scores[best] {
				best = challenger
			}
		}
		return population[best]
	}

	crossover := func(a, b individual) (individual, individual) {
		if len(a) < 2 {
			return append(individual(nil), a...), append(individual(nil), b...)
		}
		point := 1 + rng.Intn(len(a)-1)
		c1 := append(append(individual(nil), a[:point]...), b[point:]...)
		c2 := append(append(individual(nil), b[:point]...), a[point:]...)
		return c1, c2
	}

	mutate := func(ind individual) {
		if rng.Float64() < params.MutationRate {
			i := rng.Intn(len(ind))
			ind[i] = rng.Intn(len(candidates[courses[i]]))
		}
	}

	population := make([]individual, params.PopulationSize)
	for i := range population {
		population[i] = random()
	}

	bestFitness := 0
	var best individual

	for gen := 0; gen < params.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		scores := make([]int, len(population))
		eliteIdx := 0
		for i, ind := range population {
			scores[i] = fitness(ind)
			if scores[i] > scores[eliteIdx] {
				eliteIdx = i
			}
			if scores[i] > bestFitness {
				bestFitness = scores[i]
				best = append(individual(nil), ind...)
			}
		}

		next := make([]individual, 0, params.PopulationSize)
		next = append(next, append(individual(nil), population[eliteIdx]...))
		for len(next) < params.PopulationSize {
			p1 := tournament(population, scores)
			p2 := tournament(population, scores)
			c1, c2 := crossover(p1, p2)
			mutate(c1)
			mutate(c2)
			next = append(next, c1, c2)
		}
		population = next[:params.PopulationSize]
	}

	if best == nil {
		return nil, nil
	}
	schedule := build(best)
	return &Ranked{Schedule: schedule, Score: bestFitness}, nil
}
