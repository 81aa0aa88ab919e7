package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wlc-ormoc/registrar-api/internal/middleware"
	"github.com/wlc-ormoc/registrar-api/internal/models"
	"github.com/wlc-ormoc/registrar-api/internal/service"
	appErrors "github.com/wlc-ormoc/registrar-api/pkg/errors"
	"github.com/wlc-ormoc/registrar-api/pkg/response"
)

// PaymentHandler exposes payment ledger endpoints.
type PaymentHandler struct {
	payments *service.PaymentService
	students *service.StudentService
	metrics  *service.MetricsService
}

// NewPaymentHandler constructs PaymentHandler. metrics may be nil.
func NewPaymentHandler(payments *service.PaymentService, students *service.StudentService, metrics *service.MetricsService) *PaymentHandler {
	return &PaymentHandler{payments: payments, students: students, metrics: metrics}
}

type recordPaymentRequest struct {
	Amount          float64 `json:"amount" binding:"required"`
	Method          string  `json:"method" binding:"required"`
	ReferenceNumber *string `json:"reference_number,omitempty"`
}

// Record godoc
// @Summary Record a payment against an enrollment
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body recordPaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments/{id}/payments [post]
func (h *PaymentHandler) Record(c *gin.Context) {
	var req recordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	receipt, err := h.payments.Record(c.Request.Context(), c.Param("id"), req.Amount, req.Method, req.ReferenceNumber)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordPayment(receipt.Payment.Amount)
	response.Created(c, receipt)
}

// ListByEnrollment godoc
// @Summary List an enrollment's payments
// @Tags Payments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments/{id}/payments [get]
func (h *PaymentHandler) ListByEnrollment(c *gin.Context) {
	payments, err := h.payments.ListByEnrollment(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, nil)
}

// MyPayments godoc
// @Summary List the authenticated student's payments
// @Tags Payments
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /payments/me [get]
func (h *PaymentHandler) MyPayments(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	student, err := h.students.GetByUserID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	payments, err := h.payments.ListByStudent(c.Request.Context(), student.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, nil)
}

// Receipt godoc
// @Summary Download a payment receipt PDF
// @Tags Payments
// @Produce application/pdf
// @Param id path string true "Payment ID"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /payments/{id}/receipt [get]
func (h *PaymentHandler) Receipt(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	// Students may only pull receipts for their own payments.
	if claims.Role == models.RoleStudent {
		student, err := h.students.GetByUserID(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, err)
			return
		}
		owned, err := h.payments.ListByStudent(c.Request.Context(), student.ID)
		if err != nil {
			response.Error(c, err)
			return
		}
		found := false
		for _, p := range owned {
			if p.ID == c.Param("id") {
				found = true
				break
			}
		}
		if !found {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "payment does not belong to this account"))
			return
		}
	}

	data, err := h.payments.ReceiptPDF(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "receipt-"+c.Param("id")+".pdf"))
	c.Data(http.StatusOK, "application/pdf", data)
}
