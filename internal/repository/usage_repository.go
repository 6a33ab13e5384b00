package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hokieplan/schedule-api/internal/models"
)

// UsageRepository persists the oracle cost ledger.
type UsageRepository struct {
	db *sqlx.DB
}

// NewUsageRepository instantiates a usage repository.
func NewUsageRepository(db *sqlx.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

// Insert appends one usage record.
func (r *UsageRepository) Insert(ctx context.Context, rec models.UsageRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO usage_records (id, request_id, model, input_tokens, output_tokens, cost, success, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(ctx, query, rec.ID, rec.RequestID, rec.Model, rec.InputTokens, rec.OutputTokens, rec.Cost, rec.Success, rec.CreatedAt); err != nil {
		return fmt.Errorf("insert usage record: %w", err)
	}
	return nil
}

// ListByRequest returns all usage rows for one scheduling request.
func (r *UsageRepository) ListByRequest(ctx context.Context, requestID string) ([]models.UsageRecord, error) {
	const query = `SELECT id, request_id, model, input_tokens, output_tokens, cost, success, created_at
		FROM usage_records WHERE request_id = $1 ORDER BY created_at ASC`
	var records []models.UsageRecord
	if err := r.db.SelectContext(ctx, &records, query, requestID); err != nil {
		return nil, fmt.Errorf("list usage records: %w", err)
	}
	return records, nil
}

// ListAll returns the full ledger, newest first.
func (r *UsageRepository) ListAll(ctx context.Context, limit int) ([]models.UsageRecord, error) {
	if limit <= 0 || limit > 10000 {
		limit = 1000
	}
	query := fmt.Sprintf(`SELECT id, request_id, model, input_tokens, output_tokens, cost, success, created_at
		FROM usage_records ORDER BY created_at DESC LIMIT %d`, limit)
	var records []models.UsageRecord
	if err := r.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("list usage records: %w", err)
	}
	return records, nil
}

// Summary aggregates token counts and spend across the whole ledger.
func (r *UsageRepository) Summary(ctx context.Context) (*models.CostSummary, error) {
	const query = `SELECT COUNT(*) AS total_requests,
		COALESCE(SUM(input_tokens), 0) AS total_input_tokens,
		COALESCE(SUM(output_tokens), 0) AS total_output_tokens,
		COALESCE(SUM(cost), 0) AS total_cost
		FROM usage_records`
	var summary models.CostSummary
	if err := r.db.GetContext(ctx, &summary, query); err != nil {
		return nil, fmt.Errorf("summarize usage: %w", err)
	}
	summary.GeneratedAt = time.Now().UTC()
	return &summary, nil
}
