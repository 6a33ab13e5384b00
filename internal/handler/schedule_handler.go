package handler

import (
	"context"
	"io"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/hokieplan/schedule-api/internal/dto"
	"github.com/hokieplan/schedule-api/internal/models"
	"github.com/hokieplan/schedule-api/internal/service"
	appErrors "github.com/hokieplan/schedule-api/pkg/errors"
	"github.com/hokieplan/schedule-api/pkg/response"
)

const maxSectionRows = 2000

type scheduleManager interface {
	Submit(ctx context.Context, email, term string, courses []models.CourseRequirement, hints map[string]string, freeText string) (*models.ScheduleRequest, error)
	AttachSections(ctx context.Context, id string, rowsByCourse map[string][]models.RawSectionRow) (*models.ScheduleRequest, error)
	Get(ctx context.Context, id string) (*models.ScheduleRequest, error)
	Waitlist(ctx context.Context) ([]models.ScheduleRequest, bool, error)
	DownloadLink(ctx context.Context, id string) (*service.DownloadLink, error)
	OpenDownload(token string) (*os.File, error)
}

// ScheduleHandler exposes the scheduling request lifecycle over HTTP.
type ScheduleHandler struct {
	service  scheduleManager
	validate *validator.Validate
}

// NewScheduleHandler constructs the handler.
func NewScheduleHandler(svc *service.ScheduleService, validate *validator.Validate) *ScheduleHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &ScheduleHandler{service: svc, validate: validate}
}

// Submit godoc
// @Summary Open a new scheduling request
// @Description Registers the student's required courses and preferences. When the catalog cache covers every course the request skips straight to the processing queue.
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.SubmitScheduleRequest true "Submit payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /schedule-requests [post]
func (h *ScheduleHandler) Submit(c *gin.Context) {
	var req dto.SubmitScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid submit payload"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid submit payload"))
		return
	}

	courses := make([]models.CourseRequirement, 0, len(req.Courses))
	for _, course := range req.Courses {
		courses = append(courses, models.CourseRequirement{
			Department: course.Department,
			Number:     course.Number,
		})
	}

	created, err := h.service.Submit(c.Request.Context(), req.Email, req.Term, courses, req.PreferenceHints, req.PreferenceText)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// AttachSections godoc
// @Summary Attach collected section rows to a request
// @Description Accepts the raw timetable rows gathered upstream, keyed by course code, and moves the request into the processing queue.
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.AttachSectionsRequest true "Sections payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedule-requests/{id}/sections [post]
func (h *ScheduleHandler) AttachSections(c *gin.Context) {
	var req dto.AttachSectionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid sections payload"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid sections payload"))
		return
	}

	total := 0
	rowsByCourse := make(map[string][]models.RawSectionRow, len(req.Sections))
	for course, rows := range req.Sections {
		code := models.NormalizeCourseCode(course)
		for _, row := range rows {
			rowsByCourse[code] = append(rowsByCourse[code], models.RawSectionRow{
				CRN:          row.CRN,
				Course:       row.Course,
				Title:        row.Title,
				ScheduleType: row.ScheduleType,
				Modality:     row.Modality,
				Instructor:   row.Instructor,
				Days:         row.Days,
				BeginTime:    row.BeginTime,
				EndTime:      row.EndTime,
				Location:     row.Location,
			})
		}
		total += len(rows)
	}
	if total > maxSectionRows {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "sections payload exceeds supported size"))
		return
	}

	updated, err := h.service.AttachSections(c.Request.Context(), c.Param("id"), rowsByCourse)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// Get godoc
// @Summary Get a scheduling request
// @Tags Schedules
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedule-requests/{id} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	req, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, req, nil)
}

// Download godoc
// @Summary Get a signed download link for the rendered schedule PDF
// @Tags Schedules
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /schedule-requests/{id}/download [get]
func (h *ScheduleHandler) Download(c *gin.Context) {
	link, err := h.service.DownloadLink(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// ServeDownload godoc
// @Summary Stream a schedule PDF by signed token
// @Tags Schedules
// @Produce application/pdf
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Router /downloads [get]
func (h *ScheduleHandler) ServeDownload(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}

	file, err := h.service.OpenDownload(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read download"))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="schedule.pdf"`)
	c.DataFromReader(http.StatusOK, info.Size(), "application/pdf", io.Reader(file), nil)
}

// Waitlist godoc
// @Summary List requests waiting behind the generation cooldown
// @Tags Schedules
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /waitlist [get]
func (h *ScheduleHandler) Waitlist(c *gin.Context) {
	requests, waitlisted, err := h.service.Waitlist(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil, map[string]interface{}{
		"waitlisted": waitlisted,
	})
}
