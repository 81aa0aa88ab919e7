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

// RegistrationRepository manages persistence for registration applications.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// List returns registrations matching the provided filters with program context.
func (r *RegistrationRepository) List(ctx context.Context, filter models.RegistrationFilter) ([]models.RegistrationDetail, int, error) {
	base := "FROM registrations reg LEFT JOIN programs p ON p.id = reg.program_id"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("reg.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.ProgramID != "" {
		conditions = append(conditions, fmt.Sprintf("reg.program_id = $%d", len(args)+1))
		args = append(args, filter.ProgramID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(reg.first_name) LIKE $%d OR LOWER(reg.last_name) LIKE $%d OR LOWER(reg.email) LIKE $%d)",
			len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"last_name":  "reg.last_name",
		"email":      "reg.email",
		"status":     "reg.status",
		"created_at": "reg.created_at",
	}
	if sortBy == "" {
		sortBy = "created_at"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "reg.created_at"
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

	query := fmt.Sprintf(`SELECT reg.id, reg.first_name, reg.last_name, reg.middle_name, reg.email, reg.contact_number,
        reg.address, reg.program_id, reg.year_level, reg.is_returning_student, reg.status, reg.reviewed_by, reg.reviewed_at,
        reg.created_at, reg.updated_at, p.code AS program_code, p.name AS program_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, column, order, size, offset)

	var registrations []models.RegistrationDetail
	if err := r.db.SelectContext(ctx, &registrations, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list registrations: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count registrations: %w", err)
	}
	return registrations, total, nil
}

// FindByID fetches a registration by ID.
func (r *RegistrationRepository) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	const query = `SELECT id, first_name, last_name, middle_name, email, contact_number, address, program_id,
        year_level, is_returning_student, status, reviewed_by, reviewed_at, created_at, updated_at
        FROM registrations WHERE id = $1`
	var reg models.Registration
	if err := r.db.GetContext(ctx, &reg, query, id); err != nil {
		return nil, err
	}
	return &reg, nil
}

// FindDetailByID fetches a registration with program context.
func (r *RegistrationRepository) FindDetailByID(ctx context.Context, id string) (*models.RegistrationDetail, error) {
	const query = `SELECT reg.id, reg.first_name, reg.last_name, reg.middle_name, reg.email, reg.contact_number,
        reg.address, reg.program_id, reg.year_level, reg.is_returning_student, reg.status, reg.reviewed_by, reg.reviewed_at,
        reg.created_at, reg.updated_at, p.code AS program_code, p.name AS program_name
        FROM registrations reg LEFT JOIN programs p ON p.id = reg.program_id
        WHERE reg.id = $1`
	var detail models.RegistrationDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create persists a new registration application.
func (r *RegistrationRepository) Create(ctx context.Context, reg *models.Registration) error {
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	reg.Email = strings.ToLower(reg.Email)
	now := time.Now().UTC()
	reg.CreatedAt = now
	reg.UpdatedAt = now
	const query = `INSERT INTO registrations (id, first_name, last_name, middle_name, email, contact_number, address,
        program_id, year_level, is_returning_student, status, created_at, updated_at)
        VALUES (:id, :first_name, :last_name, :middle_name, :email, :contact_number, :address,
        :program_id, :year_level, :is_returning_student, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, reg); err != nil {
		return fmt.Errorf("create registration: %w", err)
	}
	return nil
}

// ExistsPendingByEmail reports whether a pending registration already exists for the email.
func (r *RegistrationRepository) ExistsPendingByEmail(ctx context.Context, email string) (bool, error) {
	const query = `SELECT 1 FROM registrations WHERE LOWER(email) = LOWER($1) AND status = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, email, models.RegistrationStatusPending); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check pending registration: %w", err)
	}
	return true, nil
}

// ApproveParams carries the precomputed inputs of a registration approval.
// The service resolves the identity, fees and period before the transaction
// so the transaction itself only moves rows.
type ApproveParams struct {
	RegistrationID string
	ReviewerID     string
	UserID         string
	StudentNumber  string
	AcademicYear   string
	Semester       int
	TotalAmount    float64
	Now            time.Time
}

// ApproveResult reports what the approval transaction changed.
type ApproveResult struct {
	Registration      models.Registration
	StudentID         string
	EnrollmentID      string
	StudentCreated    bool
	EnrollmentCreated bool
}

// ApproveTx runs the approval workflow in one transaction: locks the
// registration row, re-checks that it is still pending, creates the student
// and initial enrollment when no student exists for the email, and flips the
// registration to Approved. Returns ErrAlreadyProcessed when the registration
// left the pending state between the caller's check and the lock.
func (r *RegistrationRepository) ApproveTx(ctx context.Context, params ApproveParams) (*ApproveResult, error) {
	result := &ApproveResult{}
	err := inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const lockQuery = `SELECT id, first_name, last_name, middle_name, email, contact_number, address, program_id,
            year_level, is_returning_student, status, reviewed_by, reviewed_at, created_at, updated_at
            FROM registrations WHERE id = $1 FOR UPDATE`
		var reg models.Registration
		if err := tx.GetContext(ctx, &reg, lockQuery, params.RegistrationID); err != nil {
			return err
		}
		if reg.Status != models.RegistrationStatusPending {
			return ErrAlreadyProcessed
		}

		var studentID string
		err := tx.GetContext(ctx, &studentID, `SELECT id FROM students WHERE LOWER(email) = LOWER($1) LIMIT 1`, reg.Email)
		switch {
		case err == sql.ErrNoRows:
			studentID = uuid.NewString()
			const insertStudent = `INSERT INTO students (id, registration_id, user_id, student_number, first_name, last_name,
                middle_name, email, contact_number, address, program_id, year_level, is_returning_student, status, created_at, updated_at)
                VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)`
			if _, err := tx.ExecContext(ctx, insertStudent,
				studentID, reg.ID, params.UserID, params.StudentNumber,
				reg.FirstName, reg.LastName, reg.MiddleName, strings.ToLower(reg.Email),
				reg.ContactNumber, reg.Address, reg.ProgramID, reg.YearLevel,
				reg.IsReturningStudent, models.StudentStatusActive, params.Now); err != nil {
				return fmt.Errorf("create student: %w", err)
			}
			result.StudentCreated = true

			enrollmentID := uuid.NewString()
			const insertEnrollment = `INSERT INTO enrollments (id, student_id, academic_year, semester, status,
                documents_submitted, payment_status, total_amount, amount_paid, created_at, updated_at)
                VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7, 0, $8, $8)`
			if _, err := tx.ExecContext(ctx, insertEnrollment,
				enrollmentID, studentID, params.AcademicYear, params.Semester,
				models.EnrollmentStatusDraft, models.PaymentStatusUnpaid,
				params.TotalAmount, params.Now); err != nil {
				return fmt.Errorf("create initial enrollment: %w", err)
			}
			result.EnrollmentID = enrollmentID
			result.EnrollmentCreated = true
		case err != nil:
			return fmt.Errorf("find student by email: %w", err)
		}
		result.StudentID = studentID

		const updateReg = `UPDATE registrations SET status = $2, reviewed_by = $3, reviewed_at = $4, updated_at = $4 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, updateReg, reg.ID, models.RegistrationStatusApproved, params.ReviewerID, params.Now); err != nil {
			return fmt.Errorf("update registration: %w", err)
		}

		reg.Status = models.RegistrationStatusApproved
		reg.ReviewedBy = &params.ReviewerID
		reviewedAt := params.Now
		reg.ReviewedAt = &reviewedAt
		reg.UpdatedAt = params.Now
		result.Registration = reg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RejectTx marks a pending registration as rejected with reviewer fields.
// Returns ErrAlreadyProcessed when the registration is no longer pending.
func (r *RegistrationRepository) RejectTx(ctx context.Context, id, reviewerID string, now time.Time) (*models.Registration, error) {
	var reg models.Registration
	err := inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const lockQuery = `SELECT id, first_name, last_name, middle_name, email, contact_number, address, program_id,
            year_level, is_returning_student, status, reviewed_by, reviewed_at, created_at, updated_at
            FROM registrations WHERE id = $1 FOR UPDATE`
		if err := tx.GetContext(ctx, &reg, lockQuery, id); err != nil {
			return err
		}
		if reg.Status != models.RegistrationStatusPending {
			return ErrAlreadyProcessed
		}
		const updateReg = `UPDATE registrations SET status = $2, reviewed_by = $3, reviewed_at = $4, updated_at = $4 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, updateReg, id, models.RegistrationStatusRejected, reviewerID, now); err != nil {
			return fmt.Errorf("update registration: %w", err)
		}
		reg.Status = models.RegistrationStatusRejected
		reg.ReviewedBy = &reviewerID
		reviewedAt := now
		reg.ReviewedAt = &reviewedAt
		reg.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// CountByStatus returns registration counts grouped by status.
func (r *RegistrationRepository) CountByStatus(ctx context.Context) (map[models.RegistrationStatus]int, error) {
	const query = `SELECT status, COUNT(*) AS count FROM registrations GROUP BY status`
	rows := []struct {
		Status models.RegistrationStatus `db:"status"`
		Count  int                       `db:"count"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count registrations by status: %w", err)
	}
	counts := make(map[models.RegistrationStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
