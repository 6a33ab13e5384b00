package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/hokieplan/schedule-api/internal/engine"
	"github.com/hokieplan/schedule-api/internal/models"
	"github.com/hokieplan/schedule-api/internal/oracle"
	appErrors "github.com/hokieplan/schedule-api/pkg/errors"
	"github.com/hokieplan/schedule-api/pkg/export"
	"github.com/hokieplan/schedule-api/pkg/jobs"
	"github.com/hokieplan/schedule-api/pkg/storage"
)

type requestRepository interface {
	Create(ctx context.Context, email, term string, courses, preferences types.JSONText) (*models.ScheduleRequest, error)
	FindByID(ctx context.Context, id string) (*models.ScheduleRequest, error)
	AttachSections(ctx context.Context, id string, sections types.JSONText) error
	MarkProcessing(ctx context.Context, id string) error
	Complete(ctx context.Context, id string, result types.JSONText) error
	Fail(ctx context.Context, id, errorCode string, result types.JSONText) error
	Requeue(ctx context.Context, id string) error
	NextCollected(ctx context.Context, limit int) ([]models.ScheduleRequest, error)
	ListByStages(ctx context.Context, stages []models.RequestStage, limit int) ([]models.ScheduleRequest, error)
	CountByStage(ctx context.Context) (map[models.RequestStage]int, error)
}

type localSolver interface {
	Solve(ctx context.Context, in engine.Input) (engine.Solution, error)
}

type scheduleOracle interface {
	Generate(ctx context.Context, req oracle.Request) oracle.Outcome
	QuotaState() models.QuotaState
}

type sectionCache interface {
	Get(ctx context.Context, term, courseCode string) ([]models.RawSectionRow, bool)
	Set(ctx context.Context, term, courseCode string, rows []models.RawSectionRow)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

// ProcessOutcome tells the worker what happened to a dequeued request.
type ProcessOutcome string

const (
	ProcessCompleted        ProcessOutcome = "completed"
	ProcessFailed           ProcessOutcome = "failed"
	ProcessCooldownRequeued ProcessOutcome = "cooldown_requeued"
)

// DownloadLink is a signed, expiring pointer to a rendered schedule PDF.
type DownloadLink struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SystemStatus summarises pipeline health for the admin endpoint.
type SystemStatus struct {
	Stages     map[models.RequestStage]int `json:"stages"`
	Quota      models.QuotaState           `json:"quota"`
	Waitlisted bool                        `json:"waitlisted"`
}

// ScheduleService orchestrates the request lifecycle: submission, section
// collection, local search, oracle escalation, and result delivery.
type ScheduleService struct {
	repo      requestRepository
	solver    localSolver
	oracle    scheduleOracle
	catalog   sectionCache
	metrics   *MetricsService
	pdf       pdfRenderer
	files     fileStorage
	signer    *storage.SignedURLSigner
	pdfQueue  *jobs.Queue
	events    *EventLog
	apiPrefix string
	logger    *zap.Logger
}

func NewScheduleService(
	repo requestRepository,
	solver localSolver,
	scheduleOracle scheduleOracle,
	catalog sectionCache,
	metrics *MetricsService,
	pdf pdfRenderer,
	files fileStorage,
	signer *storage.SignedURLSigner,
	events *EventLog,
	apiPrefix string,
	logger *zap.Logger,
) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	s := &ScheduleService{
		repo:      repo,
		solver:    solver,
		oracle:    scheduleOracle,
		catalog:   catalog,
		metrics:   metrics,
		pdf:       pdf,
		files:     files,
		signer:    signer,
		events:    events,
		apiPrefix: apiPrefix,
		logger:    logger,
	}
	s.pdfQueue = jobs.NewQueue("schedule-pdf", s.handlePDFJob, jobs.QueueConfig{
		Workers:    1,
		MaxRetries: 2,
		RetryDelay: 5 * time.Second,
		Logger:     logger,
	})
	return s
}

// StartJobs launches the background PDF render queue.
func (s *ScheduleService) StartJobs(ctx context.Context) {
	s.pdfQueue.Start(ctx)
}

// StopJobs drains the PDF queue.
func (s *ScheduleService) StopJobs() {
	s.pdfQueue.Stop()
}

// Submit registers a new scheduling request. When every requested course is
// already in the catalog cache, the collection step is skipped and the
// request lands directly in the worker's queue.
func (s *ScheduleService) Submit(ctx context.Context, email, term string, courses []models.CourseRequirement, hints map[string]string, freeText string) (*models.ScheduleRequest, error) {
	if len(courses) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one course is required")
	}

	coursesJSON, err := json.Marshal(courses)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "encode courses")
	}
	pref := models.ParsePreference(hints, freeText)
	prefJSON, err := json.Marshal(pref)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "encode preferences")
	}

	req, err := s.repo.Create(ctx, email, term, coursesJSON, prefJSON)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "create request")
	}
	s.events.Record("request_submitted", req.ID, fmt.Sprintf("%d courses for term %s", len(courses), term))

	if cached, ok := s.cachedRows(ctx, term, courses); ok {
		if err := s.attach(ctx, req.ID, cached); err != nil {
			s.logger.Warn("failed to attach cached sections", zap.String("requestId", req.ID), zap.Error(err))
			return req, nil
		}
		return s.Get(ctx, req.ID)
	}

	return req, nil
}

func (s *ScheduleService) cachedRows(ctx context.Context, term string, courses []models.CourseRequirement) (map[string][]models.RawSectionRow, bool) {
	if s.catalog == nil {
		return nil, false
	}
	rows := make(map[string][]models.RawSectionRow, len(courses))
	for _, course := range courses {
		code := course.Code()
		cached, ok := s.catalog.Get(ctx, term, code)
		s.metrics.RecordCacheLookup(ok)
		if !ok {
			return nil, false
		}
		rows[code] = cached
	}
	return rows, true
}

// AttachSections stores the rows the upstream collector gathered and primes
// the catalog cache for later requests in the same term.
func (s *ScheduleService) AttachSections(ctx context.Context, id string, rowsByCourse map[string][]models.RawSectionRow) (*models.ScheduleRequest, error) {
	req, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Stage != models.StageInitiated {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("request is in stage %s", req.Stage))
	}

	if err := s.attach(ctx, id, rowsByCourse); err != nil {
		return nil, err
	}
	s.events.Record("sections_attached", id, fmt.Sprintf("%d courses", len(rowsByCourse)))
	if s.catalog != nil {
		for code, rows := range rowsByCourse {
			s.catalog.Set(ctx, req.Term, code, rows)
		}
	}
	return s.Get(ctx, id)
}

func (s *ScheduleService) attach(ctx context.Context, id string, rowsByCourse map[string][]models.RawSectionRow) error {
	sectionsJSON, err := json.Marshal(rowsByCourse)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "encode sections")
	}
	if err := s.repo.AttachSections(ctx, id, sectionsJSON); err != nil {
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "attach sections")
	}
	return nil
}

// Get loads one request.
func (s *ScheduleService) Get(ctx context.Context, id string) (*models.ScheduleRequest, error) {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load request")
	}
	return req, nil
}

// NextCollected exposes the worker's poll query.
func (s *ScheduleService) NextCollected(ctx context.Context, limit int) ([]models.ScheduleRequest, error) {
	return s.repo.NextCollected(ctx, limit)
}

// OnCooldown reports whether the oracle guard currently blocks processing.
func (s *ScheduleService) OnCooldown() bool {
	state := s.oracle.QuotaState()
	s.metrics.SetCooldownActive(state.OnCooldown)
	return state.OnCooldown
}

// Process runs one collected request through the full pipeline. Called by
// the background worker, one request at a time.
func (s *ScheduleService) Process(ctx context.Context, req *models.ScheduleRequest) (ProcessOutcome, error) {
	var courses []models.CourseRequirement
	if err := json.Unmarshal(req.Courses, &courses); err != nil {
		return s.fail(ctx, req.ID, appErrors.ErrValidation.Code, "request has unreadable courses")
	}
	var pref models.Preference
	if len(req.Preferences) > 0 {
		if err := json.Unmarshal(req.Preferences, &pref); err != nil {
			s.logger.Warn("unreadable preferences, proceeding without", zap.String("requestId", req.ID))
		}
	}
	var rowsByCourse map[string][]models.RawSectionRow
	if err := json.Unmarshal(req.Sections, &rowsByCourse); err != nil {
		return s.fail(ctx, req.ID, appErrors.ErrValidation.Code, "request has unreadable sections")
	}

	if err := s.repo.MarkProcessing(ctx, req.ID); err != nil {
		return ProcessFailed, err
	}

	started := time.Now()
	solution, err := s.solver.Solve(ctx, engine.Input{
		Courses:      courses,
		RowsByCourse: rowsByCourse,
		Preference:   pref,
	})
	if err != nil {
		return ProcessFailed, err
	}

	if !solution.Escalate && len(solution.Ranked) > 0 {
		s.metrics.ObserveGeneration(string(solution.Strategy), "success", time.Since(started))
		return s.complete(ctx, req.ID, solution.Ranked[0].Schedule.Serialize())
	}

	s.metrics.ObserveGeneration(string(solution.Strategy), "escalated", time.Since(started))
	return s.escalate(ctx, req, courses, rowsByCourse, pref)
}

func (s *ScheduleService) escalate(ctx context.Context, req *models.ScheduleRequest, courses []models.CourseRequirement, rowsByCourse map[string][]models.RawSectionRow, pref models.Preference) (ProcessOutcome, error) {
	started := time.Now()
	outcome := s.oracle.Generate(ctx, oracle.Request{
		RequestID:    req.ID,
		Courses:      courses,
		RowsByCourse: rowsByCourse,
		Preference:   pref,
	})
	s.metrics.RecordOracleCall(outcome.Model, oracleResultLabel(outcome.Failure))

	switch outcome.Failure {
	case oracle.FailureNone:
		s.metrics.ObserveGeneration(string(engine.StrategyOracle), "success", time.Since(started))
		return s.complete(ctx, req.ID, outcome.Result)

	case oracle.FailureCooldownActive:
		s.metrics.SetCooldownActive(true)
		if err := s.repo.Requeue(ctx, req.ID); err != nil {
			return ProcessFailed, err
		}
		s.events.Record("cooldown_requeued", req.ID, "generation credentials cooling down")
		return ProcessCooldownRequeued, nil

	case oracle.FailureQuotaExhausted:
		s.metrics.RecordQuotaError()
		return s.failWithResult(ctx, req.ID, string(outcome.Failure), outcome.Result)

	default:
		s.metrics.ObserveGeneration(string(engine.StrategyOracle), "no_valid_schedule", time.Since(started))
		return s.failWithResult(ctx, req.ID, string(outcome.Failure), outcome.Result)
	}
}

func (s *ScheduleService) complete(ctx context.Context, id string, result models.ScheduleResult) (ProcessOutcome, error) {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return ProcessFailed, err
	}
	if err := s.repo.Complete(ctx, id, resultJSON); err != nil {
		return ProcessFailed, err
	}
	s.events.Record("request_completed", id, fmt.Sprintf("%d classes", len(result.Classes)))
	s.enqueuePDF(id)
	return ProcessCompleted, nil
}

func (s *ScheduleService) fail(ctx context.Context, id, code, message string) (ProcessOutcome, error) {
	return s.failWithResult(ctx, id, code, models.ScheduleResult{
		Classes: []models.ScheduleClass{},
		Error:   code,
		Message: message,
	})
}

func (s *ScheduleService) failWithResult(ctx context.Context, id, code string, result models.ScheduleResult) (ProcessOutcome, error) {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return ProcessFailed, err
	}
	if err := s.repo.Fail(ctx, id, code, resultJSON); err != nil {
		return ProcessFailed, err
	}
	s.events.Record("request_failed", id, code)
	return ProcessFailed, nil
}

// Waitlist lists requests stuck behind the cooldown.
func (s *ScheduleService) Waitlist(ctx context.Context) ([]models.ScheduleRequest, bool, error) {
	waitlisted := s.OnCooldown()
	requests, err := s.repo.ListByStages(ctx, []models.RequestStage{models.StageSectionsCollected}, 100)
	if err != nil {
		return nil, waitlisted, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list waitlist")
	}
	return requests, waitlisted, nil
}

// Status aggregates stage counts and quota state for the admin endpoint.
func (s *ScheduleService) Status(ctx context.Context) (*SystemStatus, error) {
	counts, err := s.repo.CountByStage(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "count requests")
	}
	quota := s.oracle.QuotaState()
	s.metrics.SetCooldownActive(quota.OnCooldown)
	return &SystemStatus{Stages: counts, Quota: quota, Waitlisted: quota.OnCooldown}, nil
}

// DownloadLink signs a URL for the rendered PDF of a completed request,
// rendering it on the spot if the background job has not yet.
func (s *ScheduleService) DownloadLink(ctx context.Context, id string) (*DownloadLink, error) {
	req, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Stage != models.StageDone {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "schedule is not ready")
	}

	relPath := pdfPath(id)
	if file, err := s.files.Open(relPath); err != nil {
		if err := s.renderAndStore(req); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render schedule pdf")
		}
	} else {
		file.Close()
	}

	token, expiresAt, err := s.signer.Generate(id, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "sign download url")
	}
	return &DownloadLink{
		Token:     token,
		URL:       fmt.Sprintf("%s/downloads?token=%s", s.apiPrefix, token),
		ExpiresAt: expiresAt,
	}, nil
}

// OpenDownload resolves a signed token to the stored file.
func (s *ScheduleService) OpenDownload(token string) (*os.File, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}
	file, err := s.files.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "download no longer available")
	}
	return file, nil
}

func (s *ScheduleService) enqueuePDF(id string) {
	if err := s.pdfQueue.Enqueue(jobs.Job{ID: id, Type: "render-pdf", Payload: id}); err != nil {
		s.logger.Warn("failed to enqueue pdf render", zap.String("requestId", id), zap.Error(err))
	}
}

func (s *ScheduleService) handlePDFJob(ctx context.Context, job jobs.Job) error {
	id, ok := job.Payload.(string)
	if !ok {
		return fmt.Errorf("unexpected pdf job payload %T", job.Payload)
	}
	req, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.renderAndStore(req)
}

func (s *ScheduleService) renderAndStore(req *models.ScheduleRequest) error {
	var result models.ScheduleResult
	if err := json.Unmarshal(req.Result, &result); err != nil {
		return fmt.Errorf("decode schedule result: %w", err)
	}

	dataset := export.Dataset{
		Headers: []string{"CRN", "Course", "Title", "Days", "Time", "Location"},
	}
	for _, class := range result.Classes {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"CRN":      class.CRN,
			"Course":   class.CourseNumber,
			"Title":    class.CourseName,
			"Days":     class.Days,
			"Time":     class.Time,
			"Location": class.Location,
		})
	}

	data, err := s.pdf.Render(dataset, fmt.Sprintf("Schedule %s", req.Term))
	if err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	if _, err := s.files.Save(pdfPath(req.ID), data); err != nil {
		return fmt.Errorf("store pdf: %w", err)
	}
	return nil
}

func pdfPath(id string) string {
	return fmt.Sprintf("schedules/%s.pdf", id)
}

func oracleResultLabel(failure oracle.FailureKind) string {
	if failure == oracle.FailureNone {
		return "success"
	}
	return string(failure)
}
