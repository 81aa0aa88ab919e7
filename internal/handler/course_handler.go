package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wlc-ormoc/registrar-api/internal/middleware"
	"github.com/wlc-ormoc/registrar-api/internal/models"
	"github.com/wlc-ormoc/registrar-api/internal/service"
	appErrors "github.com/wlc-ormoc/registrar-api/pkg/errors"
	"github.com/wlc-ormoc/registrar-api/pkg/response"
)

// CourseHandler exposes curriculum course endpoints.
type CourseHandler struct {
	courses *service.CourseService
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(courses *service.CourseService) *CourseHandler {
	return &CourseHandler{courses: courses}
}

// List godoc
// @Summary List courses
// @Tags Courses
// @Produce json
// @Param programId query string false "Filter by program"
// @Param yearLevel query int false "Filter by year level"
// @Param semester query int false "Filter by semester"
// @Param status query string false "Filter by status"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	var filter models.CourseFilter
	filter.ProgramID = c.Query("programId")
	if yearLevel, err := strconv.Atoi(c.Query("yearLevel")); err == nil {
		filter.YearLevel = yearLevel
	}
	if semester, err := strconv.Atoi(c.Query("semester")); err == nil {
		filter.Semester = semester
	}
	filter.Status = models.CourseStatus(c.Query("status"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = size
	}

	courses, pagination, err := h.courses.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, pagination)
}

// Get godoc
// @Summary Get course detail
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.courses.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Create godoc
// @Summary Create course
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body models.CreateCourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	course, err := h.courses.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Update godoc
// @Summary Update course
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body models.UpdateCourseRequest true "Course payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id} [put]
func (h *CourseHandler) Update(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	course, err := h.courses.Update(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Remove godoc
// @Summary Remove course
// @Tags Courses
// @Param id path string true "Course ID"
// @Success 204
// @Security BearerAuth
// @Router /courses/{id} [delete]
func (h *CourseHandler) Remove(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.courses.Remove(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
