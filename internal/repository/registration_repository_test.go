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

func newRegistrationRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func registrationLockRows(status models.RegistrationStatus) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "first_name", "last_name", "middle_name", "email", "contact_number", "address",
		"program_id", "year_level", "is_returning_student", "status", "reviewed_by", "reviewed_at",
		"created_at", "updated_at",
	}).AddRow("reg-1", "Juan", "Dela Cruz", nil, "juan@example.com", "09170000001", "Ormoc City",
		"prog-1", 1, false, status, nil, nil, now, now)
}

func approveParams(now time.Time) ApproveParams {
	return ApproveParams{
		RegistrationID: "reg-1",
		ReviewerID:     "admin-1",
		UserID:         "user-1",
		StudentNumber:  "STU-1750000000000",
		AcademicYear:   "2025-2026",
		Semester:       1,
		TotalAmount:    12500,
		Now:            now,
	}
}

func TestRegistrationRepositoryApproveTxCreatesStudent(t *testing.T) {
	db, mock, cleanup := newRegistrationRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)
	now := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM registrations WHERE id = \\$1 FOR UPDATE").
		WithArgs("reg-1").
		WillReturnRows(registrationLockRows(models.RegistrationStatusPending))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM students WHERE LOWER(email) = LOWER($1) LIMIT 1")).
		WithArgs("juan@example.com").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO students").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO enrollments").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE registrations SET status = $2, reviewed_by = $3, reviewed_at = $4, updated_at = $4 WHERE id = $1")).
		WithArgs("reg-1", models.RegistrationStatusApproved, "admin-1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := repo.ApproveTx(context.Background(), approveParams(now))
	require.NoError(t, err)
	require.True(t, result.StudentCreated)
	require.True(t, result.EnrollmentCreated)
	require.NotEmpty(t, result.StudentID)
	require.NotEmpty(t, result.EnrollmentID)
	require.Equal(t, models.RegistrationStatusApproved, result.Registration.Status)
	require.NotNil(t, result.Registration.ReviewedBy)
	require.Equal(t, "admin-1", *result.Registration.ReviewedBy)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryApproveTxExistingStudent(t *testing.T) {
	db, mock, cleanup := newRegistrationRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)
	now := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM registrations WHERE id = \\$1 FOR UPDATE").
		WithArgs("reg-1").
		WillReturnRows(registrationLockRows(models.RegistrationStatusPending))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM students WHERE LOWER(email) = LOWER($1) LIMIT 1")).
		WithArgs("juan@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("stu-9"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE registrations SET status = $2, reviewed_by = $3, reviewed_at = $4, updated_at = $4 WHERE id = $1")).
		WithArgs("reg-1", models.RegistrationStatusApproved, "admin-1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := repo.ApproveTx(context.Background(), approveParams(now))
	require.NoError(t, err)
	require.False(t, result.StudentCreated)
	require.False(t, result.EnrollmentCreated)
	require.Equal(t, "stu-9", result.StudentID)
	require.Empty(t, result.EnrollmentID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryApproveTxAlreadyProcessed(t *testing.T) {
	db, mock, cleanup := newRegistrationRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM registrations WHERE id = \\$1 FOR UPDATE").
		WithArgs("reg-1").
		WillReturnRows(registrationLockRows(models.RegistrationStatusApproved))
	mock.ExpectRollback()

	_, err := repo.ApproveTx(context.Background(), approveParams(time.Now()))
	require.ErrorIs(t, err, ErrAlreadyProcessed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryRejectTx(t *testing.T) {
	db, mock, cleanup := newRegistrationRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)
	now := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM registrations WHERE id = \\$1 FOR UPDATE").
		WithArgs("reg-1").
		WillReturnRows(registrationLockRows(models.RegistrationStatusPending))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE registrations SET status = $2, reviewed_by = $3, reviewed_at = $4, updated_at = $4 WHERE id = $1")).
		WithArgs("reg-1", models.RegistrationStatusRejected, "admin-1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	reg, err := repo.RejectTx(context.Background(), "reg-1", "admin-1", now)
	require.NoError(t, err)
	require.Equal(t, models.RegistrationStatusRejected, reg.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}
