package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wlc-ormoc/registrar-api/internal/middleware"
	"github.com/wlc-ormoc/registrar-api/internal/models"
	"github.com/wlc-ormoc/registrar-api/internal/service"
	appErrors "github.com/wlc-ormoc/registrar-api/pkg/errors"
	"github.com/wlc-ormoc/registrar-api/pkg/response"
)

// EnrollmentHandler exposes enrollment billing endpoints.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
	students    *service.StudentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService, students *service.StudentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments, students: students}
}

// List godoc
// @Summary List enrollments
// @Tags Enrollments
// @Produce json
// @Param studentId query string false "Filter by student (admins only)"
// @Param academicYear query string false "Filter by academic year"
// @Param semester query int false "Filter by semester"
// @Param status query string false "Filter by status"
// @Param paymentStatus query string false "Filter by payment status"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	filter, err := h.buildFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	enrollments, pagination, err := h.enrollments.List(c.Request.Context(), *filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, pagination)
}

// Get godoc
// @Summary Get enrollment detail
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments/{id} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	enrollment, err := h.enrollments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.authorizeEnrollment(c, enrollment.StudentID); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// ListCourses godoc
// @Summary List the courses billed on an enrollment
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments/{id}/courses [get]
func (h *EnrollmentHandler) ListCourses(c *gin.Context) {
	enrollment, err := h.enrollments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.authorizeEnrollment(c, enrollment.StudentID); err != nil {
		response.Error(c, err)
		return
	}

	courses, err := h.enrollments.ListCourses(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

type setEnrollmentStatusRequest struct {
	Status models.EnrollmentStatus `json:"status" binding:"required"`
}

// SetStatus godoc
// @Summary Set enrollment status
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body setEnrollmentStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments/{id}/status [put]
func (h *EnrollmentHandler) SetStatus(c *gin.Context) {
	var req setEnrollmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	enrollment, err := h.enrollments.SetStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Export godoc
// @Summary Export enrollments as CSV
// @Tags Enrollments
// @Produce text/csv
// @Param academicYear query string false "Filter by academic year"
// @Param semester query int false "Filter by semester"
// @Param status query string false "Filter by status"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /enrollments/export [get]
func (h *EnrollmentHandler) Export(c *gin.Context) {
	filter, err := h.buildFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	data, err := h.enrollments.ExportCSV(c.Request.Context(), *filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("enrollments-%s.csv", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", data)
}

// buildFilter assembles the list filter, forcing students onto their own
// records regardless of query parameters.
func (h *EnrollmentHandler) buildFilter(c *gin.Context) (*models.EnrollmentFilter, error) {
	var filter models.EnrollmentFilter
	filter.AcademicYear = c.Query("academicYear")
	if semester, err := strconv.Atoi(c.Query("semester")); err == nil {
		filter.Semester = semester
	}
	filter.Status = models.EnrollmentStatus(c.Query("status"))
	filter.PaymentStatus = models.PaymentStatus(c.Query("paymentStatus"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		return nil, appErrors.ErrUnauthorized
	}
	if claims.Role == models.RoleStudent {
		student, err := h.students.GetByUserID(c.Request.Context(), claims.UserID)
		if err != nil {
			return nil, err
		}
		filter.StudentID = student.ID
	} else {
		filter.StudentID = c.Query("studentId")
	}
	return &filter, nil
}

// authorizeEnrollment rejects students reading enrollments they do not own.
func (h *EnrollmentHandler) authorizeEnrollment(c *gin.Context, studentID string) error {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		return appErrors.ErrUnauthorized
	}
	if claims.Role != models.RoleStudent {
		return nil
	}
	student, err := h.students.GetByUserID(c.Request.Context(), claims.UserID)
	if err != nil {
		return err
	}
	if student.ID != studentID {
		return appErrors.Clone(appErrors.ErrForbidden, "enrollment does not belong to this account")
	}
	return nil
}
