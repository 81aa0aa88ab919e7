package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/wlc-ormoc/registrar-api/internal/middleware"
	"github.com/wlc-ormoc/registrar-api/internal/models"
	"github.com/wlc-ormoc/registrar-api/internal/service"
	appErrors "github.com/wlc-ormoc/registrar-api/pkg/errors"
	"github.com/wlc-ormoc/registrar-api/pkg/response"
)

// RegistrationHandler exposes the public intake and admin review endpoints.
type RegistrationHandler struct {
	registrations *service.RegistrationService
	metrics       *service.MetricsService
}

// NewRegistrationHandler constructs RegistrationHandler. metrics may be nil.
func NewRegistrationHandler(registrations *service.RegistrationService, metrics *service.MetricsService) *RegistrationHandler {
	return &RegistrationHandler{registrations: registrations, metrics: metrics}
}

// Submit godoc
// @Summary Submit a registration application
// @Tags Registrations
// @Accept json
// @Produce json
// @Param payload body models.SubmitRegistrationRequest true "Application"
// @Success 201 {object} response.Envelope
// @Router /registrations [post]
func (h *RegistrationHandler) Submit(c *gin.Context) {
	var req models.SubmitRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	reg, err := h.registrations.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, reg)
}

// List godoc
// @Summary List registration applications
// @Tags Registrations
// @Produce json
// @Param status query string false "Filter by status"
// @Param programId query string false "Filter by program"
// @Param search query string false "Search by name or email"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /registrations [get]
func (h *RegistrationHandler) List(c *gin.Context) {
	var filter models.RegistrationFilter
	filter.Status = models.RegistrationStatus(c.Query("status"))
	filter.ProgramID = c.Query("programId")
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	registrations, pagination, err := h.registrations.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, registrations, pagination)
}

// Get godoc
// @Summary Get registration detail
// @Tags Registrations
// @Produce json
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /registrations/{id} [get]
func (h *RegistrationHandler) Get(c *gin.Context) {
	reg, err := h.registrations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reg, nil)
}

// Approve godoc
// @Summary Approve a pending registration
// @Tags Registrations
// @Produce json
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /registrations/{id}/approve [post]
func (h *RegistrationHandler) Approve(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	reg, err := h.registrations.Approve(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordRegistrationDecision("approved")
	response.JSON(c, http.StatusOK, reg, nil)
}

// Reject godoc
// @Summary Reject a pending registration
// @Tags Registrations
// @Produce json
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /registrations/{id}/reject [post]
func (h *RegistrationHandler) Reject(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	reg, err := h.registrations.Reject(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordRegistrationDecision("rejected")
	response.JSON(c, http.StatusOK, reg, nil)
}
