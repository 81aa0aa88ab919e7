package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wlc-ormoc/registrar-api/internal/models"
	"github.com/wlc-ormoc/registrar-api/internal/repository"
	appErrors "github.com/wlc-ormoc/registrar-api/pkg/errors"
)

type mockPaymentRepo struct {
	receipt     *models.PaymentReceipt
	recordErr   error
	recorded    []float64
	detail      *models.PaymentDetail
	detailErr   error
	byStudent   []models.PaymentDetail
	byEnrolment []models.Payment
}

func (m *mockPaymentRepo) Record(ctx context.Context, enrollmentID string, amount float64, method string, reference *string, now time.Time) (*models.PaymentReceipt, error) {
	if m.recordErr != nil {
		return nil, m.recordErr
	}
	m.recorded = append(m.recorded, amount)
	return m.receipt, nil
}

func (m *mockPaymentRepo) FindDetailByID(ctx context.Context, id string) (*models.PaymentDetail, error) {
	if m.detailErr != nil {
		return nil, m.detailErr
	}
	return m.detail, nil
}

func (m *mockPaymentRepo) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.Payment, error) {
	return m.byEnrolment, nil
}

func (m *mockPaymentRepo) ListByStudent(ctx context.Context, studentID string) ([]models.PaymentDetail, error) {
	return m.byStudent, nil
}

type mockPaymentEnrollments struct {
	detail *models.EnrollmentDetail
	err    error
}

func (m *mockPaymentEnrollments) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.detail, nil
}

type mockPaymentNotifier struct {
	received []string
}

func (m *mockPaymentNotifier) PaymentReceived(ctx context.Context, enrollmentID string, receipt *models.PaymentReceipt) {
	m.received = append(m.received, enrollmentID)
}

func TestPaymentServiceRecord(t *testing.T) {
	repo := &mockPaymentRepo{
		receipt: &models.PaymentReceipt{
			Payment:       models.Payment{ID: "pay-1", EnrollmentID: "enr-1", Amount: 2000, Method: "Cash"},
			ChangeDue:     500,
			AmountPaid:    10000,
			TotalAmount:   10000,
			PaymentStatus: models.PaymentStatusPaid,
		},
	}
	notifier := &mockPaymentNotifier{}
	svc := NewPaymentService(repo, &mockPaymentEnrollments{}, notifier, "West Leyte College", zap.NewNop())

	receipt, err := svc.Record(context.Background(), "enr-1", 2500, "Cash", nil)
	require.NoError(t, err)
	assert.Equal(t, 2000.0, receipt.Payment.Amount)
	assert.Equal(t, 500.0, receipt.ChangeDue)
	assert.Equal(t, []string{"enr-1"}, notifier.received)
}

func TestPaymentServiceRecordInvalidAmount(t *testing.T) {
	svc := NewPaymentService(&mockPaymentRepo{}, &mockPaymentEnrollments{}, nil, "West Leyte College", zap.NewNop())

	_, err := svc.Record(context.Background(), "enr-1", 0, "Cash", nil)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidAmount.Code, appErr.Code)

	_, err = svc.Record(context.Background(), "enr-1", -50, "Cash", nil)
	require.Error(t, err)
}

func TestPaymentServiceRecordRejectsPlaceholderMethod(t *testing.T) {
	svc := NewPaymentService(&mockPaymentRepo{}, &mockPaymentEnrollments{}, nil, "West Leyte College", zap.NewNop())

	_, err := svc.Record(context.Background(), "enr-1", 100, models.PaymentMethodPending, nil)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestPaymentServiceRecordSettledEnrollment(t *testing.T) {
	repo := &mockPaymentRepo{recordErr: repository.ErrNoOutstandingBalance}
	svc := NewPaymentService(repo, &mockPaymentEnrollments{}, nil, "West Leyte College", zap.NewNop())

	_, err := svc.Record(context.Background(), "enr-1", 100, "Cash", nil)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidAmount.Code, appErr.Code)
	assert.Equal(t, "enrollment is already settled", appErr.Message)
}

func TestPaymentServiceRecordUnknownEnrollment(t *testing.T) {
	repo := &mockPaymentRepo{recordErr: sql.ErrNoRows}
	svc := NewPaymentService(repo, &mockPaymentEnrollments{}, nil, "West Leyte College", zap.NewNop())

	_, err := svc.Record(context.Background(), "missing", 100, "Cash", nil)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestPaymentServiceReceiptPDF(t *testing.T) {
	ref := "OR-123"
	studentNumber := "STU-1"
	studentName := "Juan Dela Cruz"
	repo := &mockPaymentRepo{
		detail: &models.PaymentDetail{
			Payment: models.Payment{
				ID: "pay-1", EnrollmentID: "enr-1", Amount: 2000, Method: "GCash",
				ReferenceNumber: &ref, PaymentDate: time.Now(),
			},
			AcademicYear: "2025-2026",
			Semester:     1,
			StudentID:    "stu-1",
		},
	}
	enrollments := &mockPaymentEnrollments{
		detail: &models.EnrollmentDetail{
			Enrollment: models.Enrollment{
				ID: "enr-1", TotalAmount: 10000, AmountPaid: 2000,
				PaymentStatus: models.PaymentStatusPartial,
			},
			StudentNumber: &studentNumber,
			StudentName:   &studentName,
		},
	}
	svc := NewPaymentService(repo, enrollments, nil, "West Leyte College", zap.NewNop())

	data, err := svc.ReceiptPDF(context.Background(), "pay-1")
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestPaymentServiceReceiptPDFPlaceholder(t *testing.T) {
	repo := &mockPaymentRepo{
		detail: &models.PaymentDetail{
			Payment: models.Payment{ID: "pay-1", EnrollmentID: "enr-1", Method: models.PaymentMethodPending},
		},
	}
	svc := NewPaymentService(repo, &mockPaymentEnrollments{}, nil, "West Leyte College", zap.NewNop())

	_, err := svc.ReceiptPDF(context.Background(), "pay-1")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
