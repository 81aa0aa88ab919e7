package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/wlc-ormoc/registrar-api/internal/models"
	"github.com/wlc-ormoc/registrar-api/internal/repository"
	appErrors "github.com/wlc-ormoc/registrar-api/pkg/errors"
	"github.com/wlc-ormoc/registrar-api/pkg/export"
)

type paymentRepository interface {
	Record(ctx context.Context, enrollmentID string, amount float64, method string, reference *string, now time.Time) (*models.PaymentReceipt, error)
	FindDetailByID(ctx context.Context, id string) (*models.PaymentDetail, error)
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.Payment, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.PaymentDetail, error)
}

type paymentEnrollmentRepository interface {
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
}

type paymentNotifier interface {
	PaymentReceived(ctx context.Context, enrollmentID string, receipt *models.PaymentReceipt)
}

// PaymentService records payments against enrollments and renders receipts.
type PaymentService struct {
	repo        paymentRepository
	enrollments paymentEnrollmentRepository
	notifier    paymentNotifier
	pdf         *export.ReceiptPDFExporter
	schoolName  string
	logger      *zap.Logger
}

// NewPaymentService constructs a PaymentService. notifier may be nil.
func NewPaymentService(repo paymentRepository, enrollments paymentEnrollmentRepository, notifier paymentNotifier, schoolName string, logger *zap.Logger) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		repo:        repo,
		enrollments: enrollments,
		notifier:    notifier,
		pdf:         export.NewReceiptPDFExporter(),
		schoolName:  schoolName,
		logger:      logger,
	}
}

// Record applies one payment to an enrollment. The tendered amount is capped
// at the outstanding balance; the excess comes back as change due on the
// receipt. Zero or negative amounts and settled enrollments are rejected.
func (s *PaymentService) Record(ctx context.Context, enrollmentID string, amount float64, method string, reference *string) (*models.PaymentReceipt, error) {
	if amount <= 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidAmount, "payment amount must be greater than zero")
	}
	if method == "" || method == models.PaymentMethodPending {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a valid payment method is required")
	}

	receipt, err := s.repo.Record(ctx, enrollmentID, amount, method, reference, time.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		case errors.Is(err, repository.ErrNoOutstandingBalance):
			return nil, appErrors.Clone(appErrors.ErrInvalidAmount, "enrollment is already settled")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
		}
	}

	if s.notifier != nil {
		s.notifier.PaymentReceived(ctx, enrollmentID, receipt)
	}
	return receipt, nil
}

// ListByEnrollment returns an enrollment's payment history.
func (s *PaymentService) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.Payment, error) {
	payments, err := s.repo.ListByEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	return payments, nil
}

// ListByStudent returns a student's payments across all enrollments.
func (s *PaymentService) ListByStudent(ctx context.Context, studentID string) ([]models.PaymentDetail, error) {
	payments, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list student payments")
	}
	return payments, nil
}

// ReceiptPDF renders the official receipt for one recorded payment.
// Placeholder ledger rows have no receipt.
func (s *PaymentService) ReceiptPDF(ctx context.Context, paymentID string) ([]byte, error) {
	payment, err := s.repo.FindDetailByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	if payment.Method == models.PaymentMethodPending {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no receipt exists for a pending placeholder")
	}

	enrollment, err := s.enrollments.FindDetailByID(ctx, payment.EnrollmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment for receipt")
	}

	receipt := export.Receipt{
		ReceiptNumber: payment.ID,
		SchoolName:    s.schoolName,
		AcademicYear:  payment.AcademicYear,
		Semester:      payment.Semester,
		Amount:        payment.Amount,
		Method:        payment.Method,
		PaymentDate:   payment.PaymentDate,
		TotalAmount:   enrollment.TotalAmount,
		AmountPaid:    enrollment.AmountPaid,
		PaymentStatus: string(enrollment.PaymentStatus),
	}
	if payment.ReferenceNumber != nil {
		receipt.ReferenceNumber = *payment.ReferenceNumber
	}
	if enrollment.StudentNumber != nil {
		receipt.StudentNumber = *enrollment.StudentNumber
	}
	if enrollment.StudentName != nil {
		receipt.StudentName = *enrollment.StudentName
	}

	data, err := s.pdf.Render(receipt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt")
	}
	return data, nil
}
