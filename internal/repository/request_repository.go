package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/hokieplan/schedule-api/internal/models"
)

// RequestRepository handles persistence for scheduling requests.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository instantiates a request repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

const requestColumns = "id, email, term, stage, courses, preferences, sections, result, error_code, created_at, updated_at"

// Create inserts a new request in the initiated stage.
func (r *RequestRepository) Create(ctx context.Context, email, term string, courses, preferences types.JSONText) (*models.ScheduleRequest, error) {
	now := time.Now().UTC()
	req := &models.ScheduleRequest{
		ID:          uuid.NewString(),
		Email:       email,
		Term:        term,
		Stage:       models.StageInitiated,
		Courses:     courses,
		Preferences: preferences,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	const query = `INSERT INTO schedule_requests (id, email, term, stage, courses, preferences, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(ctx, query, req.ID, req.Email, req.Term, req.Stage, req.Courses, req.Preferences, req.CreatedAt, req.UpdatedAt); err != nil {
		return nil, fmt.Errorf("create schedule request: %w", err)
	}
	return req, nil
}

// FindByID loads one request.
func (r *RequestRepository) FindByID(ctx context.Context, id string) (*models.ScheduleRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM schedule_requests WHERE id = $1", requestColumns)
	var req models.ScheduleRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// AttachSections stores the collected catalog rows and advances the stage.
func (r *RequestRepository) AttachSections(ctx context.Context, id string, sections types.JSONText) error {
	const query = `UPDATE schedule_requests
		SET sections = $2, stage = $3, updated_at = $4
		WHERE id = $1 AND stage = $5`
	res, err := r.db.ExecContext(ctx, query, id, sections, models.StageSectionsCollected, time.Now().UTC(), models.StageInitiated)
	if err != nil {
		return fmt.Errorf("attach sections: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("request %s not in initiated stage", id)
	}
	return nil
}

// MarkProcessing transitions a collected request into processing.
func (r *RequestRepository) MarkProcessing(ctx context.Context, id string) error {
	const query = `UPDATE schedule_requests SET stage = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.StageProcessing, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	return nil
}

// Complete stores the final result and marks the request done.
func (r *RequestRepository) Complete(ctx context.Context, id string, result types.JSONText) error {
	const query = `UPDATE schedule_requests SET stage = $2, result = $3, error_code = '', updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.StageDone, result, time.Now().UTC()); err != nil {
		return fmt.Errorf("complete request: %w", err)
	}
	return nil
}

// Fail stores a typed failure outcome.
func (r *RequestRepository) Fail(ctx context.Context, id, errorCode string, result types.JSONText) error {
	const query = `UPDATE schedule_requests SET stage = $2, result = $3, error_code = $4, updated_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.StageFailed, result, errorCode, time.Now().UTC()); err != nil {
		return fmt.Errorf("fail request: %w", err)
	}
	return nil
}

// Requeue moves a request back to sections_collected so the worker picks it
// up again once cooldown lifts.
func (r *RequestRepository) Requeue(ctx context.Context, id string) error {
	const query = `UPDATE schedule_requests SET stage = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.StageSectionsCollected, time.Now().UTC()); err != nil {
		return fmt.Errorf("requeue request: %w", err)
	}
	return nil
}

// NextCollected returns the oldest requests waiting for processing.
func (r *RequestRepository) NextCollected(ctx context.Context, limit int) ([]models.ScheduleRequest, error) {
	if limit <= 0 {
		limit = 10
	}
	query := fmt.Sprintf("SELECT %s FROM schedule_requests WHERE stage = $1 ORDER BY created_at ASC LIMIT %d", requestColumns, limit)
	var requests []models.ScheduleRequest
	if err := r.db.SelectContext(ctx, &requests, query, models.StageSectionsCollected); err != nil {
		return nil, fmt.Errorf("list collected requests: %w", err)
	}
	return requests, nil
}

// ListByStages returns requests in any of the given stages, newest first.
func (r *RequestRepository) ListByStages(ctx context.Context, stages []models.RequestStage, limit int) ([]models.ScheduleRequest, error) {
	if len(stages) == 0 {
		return nil, nil
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	placeholders := make([]string, len(stages))
	args := make([]interface{}, len(stages))
	for i, stage := range stages {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = stage
	}
	query := fmt.Sprintf("SELECT %s FROM schedule_requests WHERE stage IN (%s) ORDER BY created_at DESC LIMIT %d",
		requestColumns, strings.Join(placeholders, ", "), limit)

	var requests []models.ScheduleRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("list requests by stage: %w", err)
	}
	return requests, nil
}

// CountByStage aggregates request counts for the status endpoint.
func (r *RequestRepository) CountByStage(ctx context.Context) (map[models.RequestStage]int, error) {
	const query = `SELECT stage, COUNT(*) AS total FROM schedule_requests GROUP BY stage`
	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count requests by stage: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.RequestStage]int)
	for rows.Next() {
		var stage models.RequestStage
		var total int
		if err := rows.Scan(&stage, &total); err != nil {
			return nil, fmt.Errorf("scan stage count: %w", err)
		}
		counts[stage] = total
	}
	return counts, rows.Err()
}
