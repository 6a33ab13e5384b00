package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/hokieplan/schedule-api/internal/models"
	"github.com/hokieplan/schedule-api/internal/service"
	appErrors "github.com/hokieplan/schedule-api/pkg/errors"
)

type scheduleManagerMock struct {
	submitted      *models.ScheduleRequest
	submitErr      error
	capturedEmail  string
	capturedTerm   string
	capturedRows   map[string][]models.RawSectionRow
	capturedHints  map[string]string
	attachErr      error
	getResult      *models.ScheduleRequest
	getErr         error
	waitlisted     bool
	waitlistResult []models.ScheduleRequest
}

func (m *scheduleManagerMock) Submit(_ context.Context, email, term string, _ []models.CourseRequirement, hints map[string]string, _ string) (*models.ScheduleRequest, error) {
	m.capturedEmail = email
	m.capturedTerm = term
	m.capturedHints = hints
	return m.submitted, m.submitErr
}

func (m *scheduleManagerMock) AttachSections(_ context.Context, _ string, rowsByCourse map[string][]models.RawSectionRow) (*models.ScheduleRequest, error) {
	m.capturedRows = rowsByCourse
	if m.attachErr != nil {
		return nil, m.attachErr
	}
	return m.getResult, nil
}

func (m *scheduleManagerMock) Get(_ context.Context, _ string) (*models.ScheduleRequest, error) {
	return m.getResult, m.getErr
}

func (m *scheduleManagerMock) Waitlist(_ context.Context) ([]models.ScheduleRequest, bool, error) {
	return m.waitlistResult, m.waitlisted, nil
}

func (m *scheduleManagerMock) DownloadLink(_ context.Context, _ string) (*service.DownloadLink, error) {
	return &service.DownloadLink{Token: "tok", URL: "/api/v1/downloads?token=tok"}, nil
}

func (m *scheduleManagerMock) OpenDownload(_ string) (*os.File, error) {
	return nil, appErrors.ErrUnauthorized
}

func newScheduleTestHandler(mock *scheduleManagerMock) *ScheduleHandler {
	return &ScheduleHandler{service: mock, validate: validator.New()}
}

func validSubmitPayload() []byte {
	return []byte(`{
		"email": "student@example.edu",
		"term": "202508",
		"courses": [{"department": "CS", "number": "2114"}],
		"preferenceHints": {"morning": "true"},
		"preferenceText": "no Friday classes"
	}`)
}

func TestSubmitSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &scheduleManagerMock{
		submitted: &models.ScheduleRequest{ID: "req-1", Stage: models.StageInitiated},
	}
	h := newScheduleTestHandler(mock)

	req, _ := http.NewRequest(http.MethodPost, "/schedule-requests", bytes.NewReader(validSubmitPayload()))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	h.Submit(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, "student@example.edu", mock.capturedEmail)
	require.Equal(t, "202508", mock.capturedTerm)
	require.Equal(t, "true", mock.capturedHints["morning"])
}

func TestSubmitRejectsMissingCourses(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newScheduleTestHandler(&scheduleManagerMock{})

	payload := []byte(`{"email": "student@example.edu", "term": "202508", "courses": []}`)
	req, _ := http.NewRequest(http.MethodPost, "/schedule-requests", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	h.Submit(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitRejectsMalformedJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newScheduleTestHandler(&scheduleManagerMock{})

	req, _ := http.NewRequest(http.MethodPost, "/schedule-requests", bytes.NewReader([]byte(`{"email":`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	h.Submit(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAttachSectionsNormalizesCourseCodes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &scheduleManagerMock{
		getResult: &models.ScheduleRequest{ID: "req-1", Stage: models.StageSectionsCollected},
	}
	h := newScheduleTestHandler(mock)

	payload := []byte(`{
		"sections": {
			"cs-2114": [{
				"crn": "83488",
				"course": "CS-2114",
				"title": "Softw Des & Data Structures",
				"days": "M W",
				"beginTime": "9:05AM",
				"endTime": "9:55AM"
			}]
		}
	}`)
	req, _ := http.NewRequest(http.MethodPost, "/schedule-requests/req-1/sections", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}

	h.AttachSections(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, mock.capturedRows, "CS2114")
	require.Len(t, mock.capturedRows["CS2114"], 1)
	require.Equal(t, "83488", mock.capturedRows["CS2114"][0].CRN)
}

func TestAttachSectionsConflictPropagates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &scheduleManagerMock{attachErr: appErrors.ErrConflict}
	h := newScheduleTestHandler(mock)

	payload := []byte(`{"sections": {"CS2114": [{"crn": "83488", "course": "CS-2114"}]}}`)
	req, _ := http.NewRequest(http.MethodPost, "/schedule-requests/req-1/sections", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}

	h.AttachSections(c)

	require.Equal(t, http.StatusConflict, w.Code)
}

func TestGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &scheduleManagerMock{getErr: appErrors.ErrNotFound}
	h := newScheduleTestHandler(mock)

	req, _ := http.NewRequest(http.MethodGet, "/schedule-requests/missing", nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	h.Get(c)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestServeDownloadRequiresToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newScheduleTestHandler(&scheduleManagerMock{})

	req, _ := http.NewRequest(http.MethodGet, "/downloads", nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	h.ServeDownload(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWaitlistIncludesCooldownFlag(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &scheduleManagerMock{
		waitlisted:     true,
		waitlistResult: []models.ScheduleRequest{{ID: "req-1", Stage: models.StageSectionsCollected}},
	}
	h := newScheduleTestHandler(mock)

	req, _ := http.NewRequest(http.MethodGet, "/waitlist", nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	h.Waitlist(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"waitlisted":true`)
}
