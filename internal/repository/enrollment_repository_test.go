package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/wlc-ormoc/registrar-api/internal/models"
)

func newEnrollmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEnrollmentRepositoryApplyApproval(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)
	now := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

	locked := sqlmock.NewRows([]string{
		"id", "student_id", "academic_year", "semester", "status", "documents_submitted",
		"payment_status", "total_amount", "amount_paid", "created_at", "updated_at",
	}).AddRow("enr-1", "stu-1", "2025-2026", 1, models.EnrollmentStatusForReview, true,
		models.PaymentStatusPartial, 10000.0, 3000.0, now, now)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM enrollments WHERE id = \\$1 FOR UPDATE").
		WithArgs("enr-1").
		WillReturnRows(locked)
	mock.ExpectExec("UPDATE enrollments SET status = \\$2, total_amount = \\$3, amount_paid = 0").
		WithArgs("enr-1", models.EnrollmentStatusApproved, 12500.0, models.PaymentStatusUnpaid, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM payments WHERE enrollment_id = $1 AND method = $2")).
		WithArgs("enr-1", models.PaymentMethodPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO payments").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	enrollment, err := repo.ApplyApproval(context.Background(), "enr-1", 12500, now)
	require.NoError(t, err)
	require.Equal(t, models.EnrollmentStatusApproved, enrollment.Status)
	require.Equal(t, 12500.0, enrollment.TotalAmount)
	require.Equal(t, 0.0, enrollment.AmountPaid)
	require.Equal(t, models.PaymentStatusUnpaid, enrollment.PaymentStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryApplyApprovalNotFound(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM enrollments WHERE id = \\$1 FOR UPDATE").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.ApplyApproval(context.Background(), "missing", 12500, time.Now())
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryFindByStudentPeriod(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "student_id", "academic_year", "semester", "status", "documents_submitted",
		"payment_status", "total_amount", "amount_paid", "created_at", "updated_at",
	}).AddRow("enr-1", "stu-1", "2025-2026", 1, models.EnrollmentStatusDraft, false,
		models.PaymentStatusUnpaid, 12500.0, 0.0, now, now)
	mock.ExpectQuery("SELECT (.+) FROM enrollments WHERE student_id = \\$1 AND academic_year = \\$2 AND semester = \\$3").
		WithArgs("stu-1", "2025-2026", 1).
		WillReturnRows(rows)

	enrollment, err := repo.FindByStudentPeriod(context.Background(), "stu-1", "2025-2026", 1)
	require.NoError(t, err)
	require.Equal(t, "enr-1", enrollment.ID)
	require.Equal(t, models.EnrollmentStatusDraft, enrollment.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryLinkCoursesSkipsExisting(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("INSERT INTO enrollment_courses").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO enrollment_courses").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.LinkCourses(context.Background(), "enr-1", []string{"course-1", "course-2"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
