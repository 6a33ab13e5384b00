package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hokieplan/schedule-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestRequestRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectExec("INSERT INTO schedule_requests").
		WithArgs(sqlmock.AnyArg(), "student@vt.edu", "202509", models.StageInitiated,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	courses := types.JSONText(`[{"department":"CS","number":"2114"}]`)
	prefs := types.JSONText(`{"morning":true}`)
	req, err := repo.Create(context.Background(), "student@vt.edu", "202509", courses, prefs)
	require.NoError(t, err)
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, models.StageInitiated, req.Stage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryAttachSections(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectExec("UPDATE schedule_requests").
		WithArgs("req-1", sqlmock.AnyArg(), models.StageSectionsCollected, sqlmock.AnyArg(), models.StageInitiated).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.AttachSections(context.Background(), "req-1", types.JSONText(`{"CS2114":[]}`))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryAttachSectionsWrongStage(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectExec("UPDATE schedule_requests").
		WithArgs("req-1", sqlmock.AnyArg(), models.StageSectionsCollected, sqlmock.AnyArg(), models.StageInitiated).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.AttachSections(context.Background(), "req-1", types.JSONText(`{}`))
	assert.Error(t, err)
}

func TestRequestRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "email", "term", "stage", "courses", "preferences", "sections", "result", "error_code", "created_at", "updated_at"}).
		AddRow("req-1", "student@vt.edu", "202509", "done", []byte(`[]`), []byte(`{}`), []byte(`{}`), []byte(`{"classes":[]}`), "", now, now)
	mock.ExpectQuery("SELECT id, email, term, stage").
		WithArgs("req-1").
		WillReturnRows(rows)

	req, err := repo.FindByID(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, models.StageDone, req.Stage)
	assert.Equal(t, "student@vt.edu", req.Email)
}

func TestRequestRepositoryComplete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectExec("UPDATE schedule_requests").
		WithArgs("req-1", models.StageDone, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Complete(context.Background(), "req-1", types.JSONText(`{"classes":[]}`)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryNextCollected(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "email", "term", "stage", "courses", "preferences", "sections", "result", "error_code", "created_at", "updated_at"}).
		AddRow("req-1", "a@vt.edu", "202509", "sections_collected", []byte(`[]`), []byte(`{}`), []byte(`{}`), nil, "", now, now).
		AddRow("req-2", "b@vt.edu", "202509", "sections_collected", []byte(`[]`), []byte(`{}`), []byte(`{}`), nil, "", now, now)
	mock.ExpectQuery("SELECT id, email, term, stage").
		WithArgs(models.StageSectionsCollected).
		WillReturnRows(rows)

	requests, err := repo.NextCollected(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, requests, 2)
	assert.Equal(t, "req-1", requests[0].ID)
}

func TestRequestRepositoryCountByStage(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	rows := sqlmock.NewRows([]string{"stage", "total"}).
		AddRow("done", 12).
		AddRow("failed", 3)
	mock.ExpectQuery("SELECT stage, COUNT").WillReturnRows(rows)

	counts, err := repo.CountByStage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, counts[models.StageDone])
	assert.Equal(t, 3, counts[models.StageFailed])
}
