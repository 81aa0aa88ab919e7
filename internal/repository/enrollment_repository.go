package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/wlc-ormoc/registrar-api/internal/models"
)

// EnrollmentRepository manages persistence for enrollment billing records.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs an EnrollmentRepository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentDetailColumns = `e.id, e.student_id, e.academic_year, e.semester, e.status, e.documents_submitted,
    e.payment_status, e.total_amount, e.amount_paid, e.created_at, e.updated_at,
    s.student_number AS student_number, (s.first_name || ' ' || s.last_name) AS student_name,
    s.program_id AS program_id, s.year_level AS year_level`

func buildEnrollmentFilter(filter models.EnrollmentFilter) (string, []interface{}) {
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.AcademicYear != "" {
		conditions = append(conditions, fmt.Sprintf("e.academic_year = $%d", len(args)+1))
		args = append(args, filter.AcademicYear)
	}
	if filter.Semester > 0 {
		conditions = append(conditions, fmt.Sprintf("e.semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.PaymentStatus != "" {
		conditions = append(conditions, fmt.Sprintf("e.payment_status = $%d", len(args)+1))
		args = append(args, filter.PaymentStatus)
	}

	base := fmt.Sprintf("FROM enrollments e JOIN students s ON s.id = e.student_id WHERE %s", strings.Join(conditions, " AND "))
	return base, args
}

// List returns enrollments matching the provided filters with student context.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base, args := buildEnrollmentFilter(filter)

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"academic_year": "e.academic_year",
		"status":        "e.status",
		"total_amount":  "e.total_amount",
		"created_at":    "e.created_at",
	}
	if sortBy == "" {
		sortBy = "created_at"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "e.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		enrollmentDetailColumns, base, column, order, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// ListForExport returns all enrollments matching the filters without paging.
func (r *EnrollmentRepository) ListForExport(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error) {
	base, args := buildEnrollmentFilter(filter)
	query := fmt.Sprintf(`SELECT %s %s ORDER BY e.created_at DESC`, enrollmentDetailColumns, base)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, fmt.Errorf("export enrollments: %w", err)
	}
	return enrollments, nil
}

// FindByID fetches an enrollment by ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, academic_year, semester, status, documents_submitted,
        payment_status, total_amount, amount_paid, created_at, updated_at
        FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDetailByID fetches an enrollment with student context.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments e JOIN students s ON s.id = e.student_id WHERE e.id = $1`, enrollmentDetailColumns)
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindByStudentPeriod fetches a student's enrollment for one academic period.
func (r *EnrollmentRepository) FindByStudentPeriod(ctx context.Context, studentID, academicYear string, semester int) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, academic_year, semester, status, documents_submitted,
        payment_status, total_amount, amount_paid, created_at, updated_at
        FROM enrollments WHERE student_id = $1 AND academic_year = $2 AND semester = $3`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentID, academicYear, semester); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// Create persists a new enrollment.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	enrollment.CreatedAt = now
	enrollment.UpdatedAt = now
	const query = `INSERT INTO enrollments (id, student_id, academic_year, semester, status, documents_submitted,
        payment_status, total_amount, amount_paid, created_at, updated_at)
        VALUES (:id, :student_id, :academic_year, :semester, :status, :documents_submitted,
        :payment_status, :total_amount, :amount_paid, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// LinkCourses attaches courses to an enrollment, skipping links that exist.
func (r *EnrollmentRepository) LinkCourses(ctx context.Context, enrollmentID string, courseIDs []string) error {
	const query = `INSERT INTO enrollment_courses (id, enrollment_id, course_id, status, created_at)
        SELECT $1, $2, $3, $4, $5
        WHERE NOT EXISTS (SELECT 1 FROM enrollment_courses WHERE enrollment_id = $2 AND course_id = $3)`
	now := time.Now().UTC()
	for _, courseID := range courseIDs {
		if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), enrollmentID, courseID, models.EnrollmentCourseStatusEnrolled, now); err != nil {
			return fmt.Errorf("link course %s: %w", courseID, err)
		}
	}
	return nil
}

// ListCourses returns the courses linked to an enrollment.
func (r *EnrollmentRepository) ListCourses(ctx context.Context, enrollmentID string) ([]models.Course, error) {
	const query = `SELECT c.id, c.year_id, c.code, c.name, c.units, c.semester, c.status, c.created_at, c.updated_at
        FROM enrollment_courses ec JOIN courses c ON c.id = ec.course_id
        WHERE ec.enrollment_id = $1 ORDER BY c.code ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, enrollmentID); err != nil {
		return nil, fmt.Errorf("list enrollment courses: %w", err)
	}
	return courses, nil
}

// UpdateStatus changes the review status without touching billing totals.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error {
	const query = `UPDATE enrollments SET status = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetDocumentsSubmitted flags that the enrollment's paperwork arrived.
func (r *EnrollmentRepository) SetDocumentsSubmitted(ctx context.Context, id string, submitted bool) error {
	const query = `UPDATE enrollments SET documents_submitted = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, submitted, time.Now().UTC()); err != nil {
		return fmt.Errorf("set documents submitted: %w", err)
	}
	return nil
}

// ApplyApproval approves an enrollment in one transaction: locks the row,
// overwrites total_amount with the recomputed fees, resets amount_paid and
// payment_status, and replaces the method-"Pending" placeholder payment so
// exactly one exists with the new amount. Idempotent across repeated
// approvals.
func (r *EnrollmentRepository) ApplyApproval(ctx context.Context, id string, totalAmount float64, now time.Time) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	err := inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const lockQuery = `SELECT id, student_id, academic_year, semester, status, documents_submitted,
            payment_status, total_amount, amount_paid, created_at, updated_at
            FROM enrollments WHERE id = $1 FOR UPDATE`
		if err := tx.GetContext(ctx, &enrollment, lockQuery, id); err != nil {
			return err
		}

		const updateQuery = `UPDATE enrollments SET status = $2, total_amount = $3, amount_paid = 0,
            payment_status = $4, updated_at = $5 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, updateQuery, id, models.EnrollmentStatusApproved, totalAmount, models.PaymentStatusUnpaid, now); err != nil {
			return fmt.Errorf("apply enrollment approval: %w", err)
		}

		// Only the bookkeeping placeholder is replaced. Rows with a real
		// payment method stay untouched.
		if _, err := tx.ExecContext(ctx, `DELETE FROM payments WHERE enrollment_id = $1 AND method = $2`, id, models.PaymentMethodPending); err != nil {
			return fmt.Errorf("clear placeholder payment: %w", err)
		}
		const insertPlaceholder = `INSERT INTO payments (id, enrollment_id, amount, method, payment_date, created_at)
            VALUES ($1, $2, $3, $4, $5, $5)`
		if _, err := tx.ExecContext(ctx, insertPlaceholder, uuid.NewString(), id, totalAmount, models.PaymentMethodPending, now); err != nil {
			return fmt.Errorf("create placeholder payment: %w", err)
		}

		enrollment.Status = models.EnrollmentStatusApproved
		enrollment.TotalAmount = totalAmount
		enrollment.AmountPaid = 0
		enrollment.PaymentStatus = models.PaymentStatusUnpaid
		enrollment.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// CountByStatus returns enrollment counts grouped by review status.
func (r *EnrollmentRepository) CountByStatus(ctx context.Context) (map[models.EnrollmentStatus]int, error) {
	const query = `SELECT status, COUNT(*) AS count FROM enrollments GROUP BY status`
	rows := []struct {
		Status models.EnrollmentStatus `db:"status"`
		Count  int                     `db:"count"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count enrollments by status: %w", err)
	}
	counts := make(map[models.EnrollmentStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// CountByPaymentStatus returns enrollment counts grouped by payment status.
func (r *EnrollmentRepository) CountByPaymentStatus(ctx context.Context) (map[models.PaymentStatus]int, error) {
	const query = `SELECT payment_status, COUNT(*) AS count FROM enrollments GROUP BY payment_status`
	rows := []struct {
		Status models.PaymentStatus `db:"payment_status"`
		Count  int                  `db:"count"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count enrollments by payment status: %w", err)
	}
	counts := make(map[models.PaymentStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// RevenueTotals returns billed and collected totals across all enrollments.
func (r *EnrollmentRepository) RevenueTotals(ctx context.Context) (billed, collected float64, err error) {
	const query = `SELECT COALESCE(SUM(total_amount), 0) AS billed, COALESCE(SUM(amount_paid), 0) AS collected FROM enrollments`
	row := struct {
		Billed    float64 `db:"billed"`
		Collected float64 `db:"collected"`
	}{}
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		return 0, 0, fmt.Errorf("revenue totals: %w", err)
	}
	return row.Billed, row.Collected, nil
}
