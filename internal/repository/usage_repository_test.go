package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hokieplan/schedule-api/internal/models"
)

func TestUsageRepositoryInsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewUsageRepository(db)
	mock.ExpectExec("INSERT INTO usage_records").
		WithArgs(sqlmock.AnyArg(), "req-1", "gemini-2.5-pro", 1200, 300, 0.0045, true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Insert(context.Background(), models.UsageRecord{
		RequestID:    "req-1",
		Model:        "gemini-2.5-pro",
		InputTokens:  1200,
		OutputTokens: 300,
		Cost:         0.0045,
		Success:      true,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsageRepositorySummary(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewUsageRepository(db)
	rows := sqlmock.NewRows([]string{"total_requests", "total_input_tokens", "total_output_tokens", "total_cost"}).
		AddRow(42, 150000, 38000, 1.25)
	mock.ExpectQuery("SELECT COUNT").WillReturnRows(rows)

	summary, err := repo.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, summary.TotalRequests)
	assert.InDelta(t, 1.25, summary.TotalCost, 1e-9)
	assert.WithinDuration(t, time.Now(), summary.GeneratedAt, time.Minute)
}

func TestUsageRepositoryListAll(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewUsageRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "request_id", "model", "input_tokens", "output_tokens", "cost", "success", "created_at"}).
		AddRow("u-1", "req-1", "gemini-2.5-pro", 1000, 200, 0.003, true, now)
	mock.ExpectQuery("SELECT id, request_id, model").WillReturnRows(rows)

	records, err := repo.ListAll(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "req-1", records[0].RequestID)
}
