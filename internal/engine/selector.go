package engine

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/hokieplan/schedule-api/internal/models"
)

// Strategy names the search path a request took.
type Strategy string

const (
	StrategyExact   Strategy = "exact"
	StrategyGenetic Strategy = "genetic"
	StrategyOracle  Strategy = "oracle"
)

// Thresholds splitting small structured instances (full enumeration) from
// large ones (metaheuristic).
const (
	maxCoursesForExact  = 3
	maxSectionsForExact = 20
)

// Input is one solvable request: required courses, their raw catalog rows,
// and the student's preferences.
type Input struct {
	Courses      []models.CourseRequirement
	RowsByCourse map[string][]models.RawSectionRow
	Preference   models.Preference
}

// Solution is the local search outcome. Escalate set with no schedules means
// the caller should hand the request to the oracle.
type Solution struct {
	Strategy   Strategy
	Complexity Complexity
	Ranked     []Ranked
	Candidates map[string][]models.Section
	Escalate   bool
}

// Selector classifies a request and routes it through the cheapest strategy
// that fits: exact enumeration, genetic search, or oracle escalation.
type Selector struct {
	logger  *zap.Logger
	params  GeneticParams
	newRand func() *rand.Rand
}

func NewSelector(logger *zap.Logger, params GeneticParams) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{
		logger: logger,
		params: params,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
	}
}

// Solve filters and classifies the rows, then runs the appropriate local
// strategy. Irregular structure (labs, online/hybrid, arranged days,
// multi-block CRNs) escalates before any local search; a local search that
// finds nothing escalates afterwards.
func (s *Selector) Solve(ctx context.Context, in Input) (Solution, error) {
	filtered := make(map[string][]models.RawSectionRow, len(in.RowsByCourse))
	totalSections := 0
	for code, rows := range in.RowsByCourse {
		kept := FilterRows(rows)
		filtered[code] = kept
		seen := make(map[string]struct{})
		for _, row := range kept {
			seen[row.CRN] = struct{}{}
		}
		totalSections += len(seen)
	}

	if complexity := ClassifyRows(filtered); complexity == ComplexityIrregular {
		s.logger.Info("irregular section structure, escalating to oracle",
			zap.Int("courses", len(in.Courses)))
		return Solution{Strategy: StrategyOracle, Complexity: complexity, Escalate: true}, nil
	}

	candidates := make(map[string][]models.Section, len(in.Courses))
	var all []models.Section
	for _, course := range in.Courses {
		code := course.Code()
		sections := ParseSections(s.logger, filtered[code])
		candidates[code] = sections
		all = append(all, sections...)
	}

	solution := Solution{Complexity: ComplexityStructured, Candidates: candidates}

	// A course with no parseable sections can never be scheduled locally.
	for code, sections := range candidates {
		if len(sections) == 0 {
			s.logger.Warn("course has no usable sections, escalating",
				zap.String("course", code))
			solution.Strategy = StrategyOracle
			solution.Escalate = true
			return solution, nil
		}
	}

	graph := BuildConflictGraph(all)
	if coursePairBlocked(candidates, all, graph) {
		s.logger.Info("course pair fully conflicting, escalating to oracle")
		solution.Strategy = StrategyOracle
		solution.Escalate = true
		return solution, nil
	}

	if len(in.Courses) <= maxCoursesForExact && totalSections <= maxSectionsForExact {
		solution.Strategy = StrategyExact
		ranked, err := ExactSearch(ctx, candidates, in.Preference)
		if err != nil {
			return solution, err
		}
		solution.Ranked = ranked
		solution.Escalate = len(ranked) == 0
		return solution, nil
	}

	solution.Strategy = StrategyGenetic
	best, err := GeneticSearch(ctx, candidates, in.Preference, s.params, s.newRand())
	if err != nil {
		return solution, err
	}
	if best != nil {
		solution.Ranked = []Ranked{*best}
		return solution, nil
	}

	// The metaheuristic can miss tight instances the exhaustive search still
	// cracks, so fall back before giving up locally.
	s.logger.Info("genetic search found nothing, falling back to exact search")
	solution.Strategy = StrategyExact
	ranked, err := ExactSearch(ctx, candidates, in.Preference)
	if err != nil {
		return solution, err
	}
	solution.Ranked = ranked
	solution.Escalate = len(ranked) == 0
	return solution, nil
}

// coursePairBlocked reports whether some pair of courses has every candidate
// combination in conflict, which makes the whole instance infeasible without
// enumerating assignments.
func coursePairBlocked(candidates map[string][]models.Section, all []models.Section, graph *ConflictGraph) bool {
	index := make(map[string]int, len(all))
	for i, sec := range all {
		index[sec.CRN] = i
	}

	codes := make([]string, 0, len(candidates))
	for code := range candidates {
		codes = append(codes, code)
	}
	for i := 0; i < len(codes); i++ {
		for j := i + 1; j < len(codes); j++ {
			blocked := true
			for _, a := range candidates[codes[i]] {
				for _, b := range candidates[codes[j]] {
					if !graph.Edge(index[a.CRN], index[b.CRN]) {
						blocked = false
						break
					}
				}
				if !blocked {
					break
				}
			}
			if blocked {
				return true
			}
		}
	}
	return false
}
