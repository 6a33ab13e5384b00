package oracle

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/hokieplan/schedule-api/internal/engine"
	"github.com/hokieplan/schedule-api/internal/models"
)

// FailureKind is the typed outcome of a failed oracle run.
type FailureKind string

const (
	FailureNone            FailureKind = ""
	FailureCooldownActive  FailureKind = "COOLDOWN_ACTIVE"
	FailureQuotaExhausted  FailureKind = "QUOTA_EXHAUSTED"
	FailureNoValidSchedule FailureKind = "NO_VALID_SCHEDULE_FOUND"
)

// DefaultMaxRetries bounds total generation calls per request.
const DefaultMaxRetries = 20

// Request is one oracle generation job.
type Request struct {
	RequestID    string
	Courses      []models.CourseRequirement
	RowsByCourse map[string][]models.RawSectionRow
	Preference   models.Preference
}

// Outcome is either a validated schedule or a typed failure, never both.
type Outcome struct {
	Schedule *models.Schedule
	Result   models.ScheduleResult
	Failure  FailureKind
	Attempts int
	Model    string
}

// UsageRecorder receives token accounting for every generation call.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, requestID, model string, inputTokens, outputTokens int, success bool)
}

// Adapter drives the retry/validation loop around the generative client:
// cooldown gate, credential rotation on quota errors, model fallback on other
// errors, and local validation of every response before acceptance.
type Adapter struct {
	client     Client
	guard      *QuotaGuard
	keys       []string
	modelChain []string
	maxRetries int
	timeout    time.Duration
	usage      UsageRecorder
	logger     *zap.Logger
}

type AdapterConfig struct {
	Keys           []string
	Model          string
	FallbackModels []string
	MaxRetries     int
	Timeout        time.Duration
}

func NewAdapter(client Client, guard *QuotaGuard, cfg AdapterConfig, usage UsageRecorder, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	chain := append([]string{cfg.Model}, cfg.FallbackModels...)
	return &Adapter{
		client:     client,
		guard:      guard,
		keys:       cfg.Keys,
		modelChain: chain,
		maxRetries: maxRetries,
		timeout:    timeout,
		usage:      usage,
		logger:     logger,
	}
}

type oracleResponse struct {
	Classes []models.ScheduleClass `json:"classes"`
}

// Generate runs the full oracle pipeline for one request. A schedule is only
// returned after it passes the same validation the local engine applies.
func (a *Adapter) Generate(ctx context.Context, req Request) Outcome {
	if a.guard.OnCooldown() {
		a.logger.Info("oracle call refused, cooldown active", zap.String("requestId", req.RequestID))
		return Outcome{
			Failure: FailureCooldownActive,
			Result: models.ScheduleResult{
				Classes: []models.ScheduleClass{},
				Error:   string(FailureCooldownActive),
				Message: "generation credentials are in a cooldown period",
			},
		}
	}

	catalog, candidates := a.buildCatalog(req)
	prompt := BuildPrompt(req.Courses, req.RowsByCourse, req.Preference)

	modelIdx := 0
	attempts := 0
	keyAttempts := 0

	for attempts < a.maxRetries && keyAttempts < len(a.keys) {
		model := a.modelChain[modelIdx]
		key := a.keys[a.guard.ActiveKey()]

		callCtx, cancel := context.WithTimeout(ctx, a.timeout)
		result, err := a.client.Generate(callCtx, model, key, SystemInstruction, prompt)
		cancel()
		attempts++

		if err != nil {
			a.recordUsage(ctx, req.RequestID, model, 0, 0, false)

			if IsQuotaError(err) {
				a.guard.RecordQuotaError()
				a.logger.Warn("quota-kind generation error",
					zap.String("requestId", req.RequestID),
					zap.Int("keyAttempt", keyAttempts+1),
					zap.Error(err))
				if keyAttempts < len(a.keys)-1 {
					a.guard.RotateKey()
					keyAttempts++
					continue
				}
				return Outcome{
					Failure:  FailureQuotaExhausted,
					Attempts: attempts,
					Model:    model,
					Result: models.ScheduleResult{
						Classes: []models.ScheduleClass{},
						Error:   string(FailureQuotaExhausted),
						Message: "all generation credentials have exceeded their quota",
					},
				}
			}

			a.logger.Warn("generation error, trying fallback model",
				zap.String("requestId", req.RequestID),
				zap.String("model", model),
				zap.Error(err))
			if modelIdx < len(a.modelChain)-1 {
				modelIdx++
			}
			continue
		}

		a.recordUsage(ctx, req.RequestID, model, result.InputTokens, result.OutputTokens, true)

		schedule, ok := a.decodeAndValidate(req, result.Text, catalog, candidates)
		if !ok {
			a.logger.Info("oracle response rejected, retrying",
				zap.String("requestId", req.RequestID),
				zap.Int("attempt", attempts))
			continue
		}

		a.guard.Reset()
		a.logger.Info("oracle schedule accepted",
			zap.String("requestId", req.RequestID),
			zap.String("model", model),
			zap.Int("attempts", attempts))
		return Outcome{
			Schedule: schedule,
			Result:   schedule.Serialize(),
			Attempts: attempts,
			Model:    model,
		}
	}

	return Outcome{
		Failure:  FailureNoValidSchedule,
		Attempts: attempts,
		Result: models.ScheduleResult{
			Classes: []models.ScheduleClass{},
			Error:   string(FailureNoValidSchedule),
			Message: "no conflict-free schedule could be generated",
		},
	}
}

// QuotaState exposes the shared guard for status reporting.
func (a *Adapter) QuotaState() models.QuotaState {
	return a.guard.Snapshot()
}

func (a *Adapter) buildCatalog(req Request) (map[string]models.Section, map[string][]models.Section) {
	catalog := make(map[string]models.Section)
	candidates := make(map[string][]models.Section, len(req.Courses))
	for _, course := range req.Courses {
		code := course.Code()
		sections := engine.ParseSections(a.logger, engine.FilterRows(req.RowsByCourse[code]))
		candidates[code] = sections
		for _, sec := range sections {
			catalog[sec.CRN] = sec
		}
	}
	return catalog, candidates
}

// decodeAndValidate rebuilds the schedule from the catalog keyed by the CRNs
// the oracle chose, so a section always enters with all its time blocks, then
// applies the standard validation chain.
func (a *Adapter) decodeAndValidate(req Request, text string, catalog map[string]models.Section, candidates map[string][]models.Section) (*models.Schedule, bool) {
	var parsed oracleResponse
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		a.logger.Warn("malformed oracle response", zap.Error(err))
		return nil, false
	}
	if len(parsed.Classes) == 0 {
		return nil, false
	}

	schedule := models.NewSchedule()
	for _, class := range parsed.Classes {
		section, ok := catalog[class.CRN]
		if !ok {
			a.logger.Warn("oracle chose unknown CRN", zap.String("crn", class.CRN))
			return nil, false
		}
		code := models.NormalizeCourseCode(class.CourseNumber)
		if existing, seen := schedule.Sections[code]; seen && existing.CRN != section.CRN {
			a.logger.Warn("oracle chose two sections for one course", zap.String("course", code))
			return nil, false
		}
		schedule.Sections[code] = section
	}

	if v := engine.Validate(schedule, req.Courses, candidates); v != nil {
		a.logger.Info("oracle schedule failed validation",
			zap.String("kind", string(v.Kind)),
			zap.String("detail", v.Detail))
		return nil, false
	}
	return &schedule, true
}

func (a *Adapter) recordUsage(ctx context.Context, requestID, model string, in, out int, success bool) {
	if a.usage == nil {
		return
	}
	a.usage.RecordUsage(ctx, requestID, model, in, out, success)
}
