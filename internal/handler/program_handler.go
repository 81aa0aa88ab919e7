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

// ProgramHandler exposes program catalogue endpoints.
type ProgramHandler struct {
	programs *service.ProgramService
}

// NewProgramHandler constructs ProgramHandler.
func NewProgramHandler(programs *service.ProgramService) *ProgramHandler {
	return &ProgramHandler{programs: programs}
}

// List godoc
// @Summary List programs
// @Tags Programs
// @Produce json
// @Param status query string false "Filter by status"
// @Param search query string false "Search by code or name"
// @Success 200 {object} response.Envelope
// @Router /programs [get]
func (h *ProgramHandler) List(c *gin.Context) {
	var filter models.ProgramFilter
	filter.Status = models.ProgramStatus(c.Query("status"))
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	programs, pagination, err := h.programs.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, programs, pagination)
}

// Get godoc
// @Summary Get program detail
// @Tags Programs
// @Produce json
// @Param id path string true "Program ID"
// @Success 200 {object} response.Envelope
// @Router /programs/{id} [get]
func (h *ProgramHandler) Get(c *gin.Context) {
	program, err := h.programs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, program, nil)
}

// Create godoc
// @Summary Create program
// @Tags Programs
// @Accept json
// @Produce json
// @Param payload body models.CreateProgramRequest true "Program payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /programs [post]
func (h *ProgramHandler) Create(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CreateProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	program, err := h.programs.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, program)
}

// Update godoc
// @Summary Update program
// @Tags Programs
// @Accept json
// @Produce json
// @Param id path string true "Program ID"
// @Param payload body models.UpdateProgramRequest true "Program payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /programs/{id} [put]
func (h *ProgramHandler) Update(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.UpdateProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	program, err := h.programs.Update(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, program, nil)
}

// Delete godoc
// @Summary Delete program
// @Tags Programs
// @Param id path string true "Program ID"
// @Success 204
// @Security BearerAuth
// @Router /programs/{id} [delete]
func (h *ProgramHandler) Delete(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.programs.Delete(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
