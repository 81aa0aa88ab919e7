package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wlc-ormoc/registrar-api/internal/service"
	"github.com/wlc-ormoc/registrar-api/pkg/response"
)

// DashboardHandler exposes admin dashboard metrics.
type DashboardHandler struct {
	dashboard *service.DashboardService
}

// NewDashboardHandler constructs DashboardHandler.
func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Metrics godoc
// @Summary Portal-wide counts and revenue figures
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /dashboard [get]
func (h *DashboardHandler) Metrics(c *gin.Context) {
	metrics, err := h.dashboard.Metrics(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, metrics, nil)
}
