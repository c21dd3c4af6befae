package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campushub/college-admin-api/internal/models"
	"github.com/campushub/college-admin-api/internal/service"
	appErrors "github.com/campushub/college-admin-api/pkg/errors"
	"github.com/campushub/college-admin-api/pkg/response"
)

// TimetableHandler manages timetable endpoints.
type TimetableHandler struct {
	service *service.TimetableService
}

// NewTimetableHandler constructs handler.
func NewTimetableHandler(svc *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// respondError writes the error envelope. Conflict rejections carry
// the offending entries so clients can render them.
func respondError(c *gin.Context, err error) {
	var conflictErr *models.TimetableConflictError
	if errors.As(err, &conflictErr) {
		appErr := appErrors.FromError(err)
		c.Header("Cache-Control", "no-store")
		c.JSON(appErr.Status, response.Envelope{
			Error: appErr,
			Data: gin.H{
				"conflicts":   conflictErr.Conflicts,
				"remediation": conflictErr.Remediation,
			},
		})
		return
	}
	response.Error(c, err)
}

// List godoc
// @Summary List timetable entries
// @Tags Timetable
// @Produce json
// @Param class_group query string false "Filter by class group"
// @Param course_code query string false "Filter by course"
// @Param group query string false "Filter by group"
// @Param teacher_id query string false "Filter by teacher"
// @Param day query string false "Filter by day"
// @Param semester query string false "Filter by semester"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /timetable [get]
func (h *TimetableHandler) List(c *gin.Context) {
	var filter models.TimetableFilter
	filter.ClassGroup = c.Query("class_group")
	filter.CourseCode = c.Query("course_code")
	filter.Group = c.Query("group")
	filter.TeacherID = c.Query("teacher_id")
	filter.Day = c.Query("day")
	filter.Semester = c.Query("semester")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = limit
	}

	entries, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

// ListForStudent godoc
// @Summary Weekly timetable of the calling student's cohort
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable/student [get]
func (h *TimetableHandler) ListForStudent(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		respondError(c, appErrors.ErrUnauthorized)
		return
	}
	if claims.ClassGroup == "" {
		respondError(c, appErrors.Clone(appErrors.ErrValidation, "account has no class group assigned"))
		return
	}
	entries, err := h.service.ListByClassGroup(c.Request.Context(), claims.ClassGroup)
	if err != nil {
		respondError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// ListForTeacher godoc
// @Summary Weekly timetable of the calling teacher
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable/teacher [get]
func (h *TimetableHandler) ListForTeacher(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		respondError(c, appErrors.ErrUnauthorized)
		return
	}
	entries, err := h.service.ListByTeacher(c.Request.Context(), claims.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Create godoc
// @Summary Schedule a class
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body service.CreateTimetableRequest true "Timetable payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope "Teacher already booked in the slot"
// @Router /timetable [post]
func (h *TimetableHandler) Create(c *gin.Context) {
	var req service.CreateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	entry, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, entry)
}

// Reassign godoc
// @Summary Reassign a class to another teacher
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body service.ReassignRequest true "Reassign payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope "New teacher already booked; retry with merge_mode=merge to accept the double booking"
// @Router /timetable/reassign [post]
func (h *TimetableHandler) Reassign(c *gin.Context) {
	var req service.ReassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	entry, err := h.service.Reassign(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// CheckOverlap godoc
// @Summary Probe a slot for conflicts without mutating
// @Description Omitting teacher_id checks the calling user's own schedule.
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body service.CheckOverlapRequest true "Probe payload"
// @Success 200 {object} response.Envelope
// @Router /timetable/check-overlap [post]
func (h *TimetableHandler) CheckOverlap(c *gin.Context) {
	var req service.CheckOverlapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if req.TeacherID == "" {
		claims := claimsFromContext(c)
		if claims == nil {
			respondError(c, appErrors.ErrUnauthorized)
			return
		}
		req.TeacherID = claims.UserID
	}
	result, err := h.service.CheckOverlap(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Update godoc
// @Summary Update a timetable entry
// @Tags Timetable
// @Accept json
// @Produce json
// @Param id path string true "Timetable entry ID"
// @Param payload body service.UpdateTimetableRequest true "Timetable payload"
// @Success 200 {object} response.Envelope
// @Router /timetable/{id} [put]
func (h *TimetableHandler) Update(c *gin.Context) {
	var req service.UpdateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	entry, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Delete godoc
// @Summary Delete a timetable entry
// @Tags Timetable
// @Produce json
// @Param id path string true "Timetable entry ID"
// @Success 204
// @Router /timetable/{id} [delete]
func (h *TimetableHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Export a cohort's weekly timetable
// @Tags Timetable
// @Produce application/pdf
// @Param class_group query string true "Class group"
// @Param format query string false "pdf or csv" default(pdf)
// @Success 200 {file} binary
// @Router /timetable/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	classGroup := c.Query("class_group")
	format := c.DefaultQuery("format", "pdf")

	payload, contentType, err := h.service.Export(c.Request.Context(), classGroup, format)
	if err != nil {
		respondError(c, err)
		return
	}

	ext := "pdf"
	if contentType == "text/csv" {
		ext = "csv"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=timetable-%s.%s", classGroup, ext))
	c.Data(http.StatusOK, contentType, payload)
}
