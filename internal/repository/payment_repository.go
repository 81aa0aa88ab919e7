package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/wlc-ormoc/registrar-api/internal/models"
)

// PaymentRepository manages the append-only payment ledger.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs a PaymentRepository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Record applies one payment in a single transaction. The enrollment row is
// locked FOR UPDATE so concurrent payments serialize; the recorded amount is
// capped at the outstanding balance and the excess is reported as change due.
// Returns ErrNoOutstandingBalance when the enrollment is already settled.
func (r *PaymentRepository) Record(ctx context.Context, enrollmentID string, amount float64, method string, reference *string, now time.Time) (*models.PaymentReceipt, error) {
	receipt := &models.PaymentReceipt{}
	err := inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const lockQuery = `SELECT id, student_id, academic_year, semester, status, documents_submitted,
            payment_status, total_amount, amount_paid, created_at, updated_at
            FROM enrollments WHERE id = $1 FOR UPDATE`
		var enrollment models.Enrollment
		if err := tx.GetContext(ctx, &enrollment, lockQuery, enrollmentID); err != nil {
			return err
		}

		outstanding := enrollment.TotalAmount - enrollment.AmountPaid
		if outstanding <= 0 {
			return ErrNoOutstandingBalance
		}

		recorded := amount
		if recorded > outstanding {
			recorded = outstanding
		}

		payment := models.Payment{
			ID:              uuid.NewString(),
			EnrollmentID:    enrollmentID,
			Amount:          recorded,
			Method:          method,
			ReferenceNumber: reference,
			PaymentDate:     now,
			CreatedAt:       now,
		}
		const insertPayment = `INSERT INTO payments (id, enrollment_id, amount, method, reference_number, payment_date, created_at)
            VALUES (:id, :enrollment_id, :amount, :method, :reference_number, :payment_date, :created_at)`
		if _, err := tx.NamedExecContext(ctx, insertPayment, payment); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}

		amountPaid := enrollment.AmountPaid + recorded
		status := models.DerivePaymentStatus(amountPaid, enrollment.TotalAmount)
		const updateEnrollment = `UPDATE enrollments SET amount_paid = $2, payment_status = $3, updated_at = $4 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, updateEnrollment, enrollmentID, amountPaid, status, now); err != nil {
			return fmt.Errorf("update enrollment totals: %w", err)
		}

		receipt.Payment = payment
		receipt.ChangeDue = amount - recorded
		receipt.AmountPaid = amountPaid
		receipt.TotalAmount = enrollment.TotalAmount
		receipt.PaymentStatus = status
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// FindByID fetches a payment by ID.
func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	const query = `SELECT id, enrollment_id, amount, method, reference_number, payment_date, created_at
        FROM payments WHERE id = $1`
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, id); err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindDetailByID fetches a payment with its enrollment context.
func (r *PaymentRepository) FindDetailByID(ctx context.Context, id string) (*models.PaymentDetail, error) {
	const query = `SELECT pay.id, pay.enrollment_id, pay.amount, pay.method, pay.reference_number, pay.payment_date, pay.created_at,
        e.academic_year, e.semester, e.student_id
        FROM payments pay JOIN enrollments e ON e.id = pay.enrollment_id
        WHERE pay.id = $1`
	var detail models.PaymentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListByEnrollment returns an enrollment's ledger, newest first.
func (r *PaymentRepository) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.Payment, error) {
	const query = `SELECT id, enrollment_id, amount, method, reference_number, payment_date, created_at
        FROM payments WHERE enrollment_id = $1 ORDER BY payment_date DESC, created_at DESC`
	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, enrollmentID); err != nil {
		return nil, fmt.Errorf("list payments by enrollment: %w", err)
	}
	return payments, nil
}

// ListByStudent returns all of a student's payments across enrollments.
func (r *PaymentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.PaymentDetail, error) {
	const query = `SELECT pay.id, pay.enrollment_id, pay.amount, pay.method, pay.reference_number, pay.payment_date, pay.created_at,
        e.academic_year, e.semester, e.student_id
        FROM payments pay JOIN enrollments e ON e.id = pay.enrollment_id
        WHERE e.student_id = $1 ORDER BY pay.payment_date DESC, pay.created_at DESC`
	var payments []models.PaymentDetail
	if err := r.db.SelectContext(ctx, &payments, query, studentID); err != nil {
		return nil, fmt.Errorf("list payments by student: %w", err)
	}
	return payments, nil
}
