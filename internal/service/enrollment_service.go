package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/wlc-ormoc/registrar-api/internal/models"
	appErrors "github.com/wlc-ormoc/registrar-api/pkg/errors"
	"github.com/wlc-ormoc/registrar-api/pkg/export"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	ListForExport(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	FindByStudentPeriod(ctx context.Context, studentID, academicYear string, semester int) (*models.Enrollment, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	LinkCourses(ctx context.Context, enrollmentID string, courseIDs []string) error
	ListCourses(ctx context.Context, enrollmentID string) ([]models.Course, error)
	UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error
	ApplyApproval(ctx context.Context, id string, totalAmount float64, now time.Time) (*models.Enrollment, error)
}

type enrollmentStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

type feeCalculator interface {
	Calculate(ctx context.Context, programID string, yearLevel, semester int) models.FeeBreakdown
	CurrentPeriod() models.AcademicPeriod
}

// EnrollmentService manages enrollment billing records.
type EnrollmentService struct {
	repo     enrollmentRepository
	students enrollmentStudentRepository
	fees     feeCalculator
	csv      *export.CSVExporter
	logger   *zap.Logger
}

// NewEnrollmentService constructs an EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, students enrollmentStudentRepository, fees feeCalculator, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, students: students, fees: fees, csv: export.NewCSVExporter(), logger: logger}
}

// List returns enrollments matching the filter with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return enrollments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one enrollment with student context.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return detail, nil
}

// ListCourses returns the courses billed on an enrollment.
func (s *EnrollmentService) ListCourses(ctx context.Context, id string) ([]models.Course, error) {
	courses, err := s.repo.ListCourses(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollment courses")
	}
	return courses, nil
}

// CreateInitial creates the student's enrollment for the current academic
// period. No-op when one already exists for the period. Course links are
// best-effort; a failure there is logged and does not fail the enrollment.
func (s *EnrollmentService) CreateInitial(ctx context.Context, studentID, programID string, yearLevel int) (*models.Enrollment, error) {
	period := s.fees.CurrentPeriod()

	existing, err := s.repo.FindByStudentPeriod(ctx, studentID, period.AcademicYear, period.Semester)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing enrollment")
	}

	breakdown := s.fees.Calculate(ctx, programID, yearLevel, period.Semester)

	enrollment := &models.Enrollment{
		StudentID:     studentID,
		AcademicYear:  period.AcademicYear,
		Semester:      period.Semester,
		Status:        models.EnrollmentStatusDraft,
		PaymentStatus: models.PaymentStatusUnpaid,
		TotalAmount:   breakdown.TotalAmount,
		AmountPaid:    0,
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	s.linkBreakdownCourses(ctx, enrollment.ID, breakdown)
	return enrollment, nil
}

// SetStatus transitions an enrollment's review status. Approval recomputes
// the bill from the student's current curriculum, resets payments and leaves
// a single placeholder ledger row for the new amount; any previously
// collected amount is discarded and logged.
func (s *EnrollmentService) SetStatus(ctx context.Context, id string, status models.EnrollmentStatus) (*models.Enrollment, error) {
	if !models.ValidEnrollmentStatus(status) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown enrollment status %q", status))
	}

	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	if status != models.EnrollmentStatusApproved {
		if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment status")
		}
		enrollment.Status = status
		return enrollment, nil
	}

	student, err := s.students.FindByID(ctx, enrollment.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment student")
	}

	breakdown := s.fees.Calculate(ctx, student.ProgramID, student.YearLevel, enrollment.Semester)

	if enrollment.AmountPaid > 0 {
		s.logger.Warn("approval resets previously collected amount",
			zap.String("enrollment_id", id),
			zap.Float64("amount_paid", enrollment.AmountPaid))
	}

	approved, err := s.repo.ApplyApproval(ctx, id, breakdown.TotalAmount, time.Now().UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve enrollment")
	}

	s.linkBreakdownCourses(ctx, id, breakdown)
	return approved, nil
}

// ExportCSV renders the filtered enrollments as a CSV document.
func (s *EnrollmentService) ExportCSV(ctx context.Context, filter models.EnrollmentFilter) ([]byte, error) {
	enrollments, err := s.repo.ListForExport(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export enrollments")
	}

	dataset := export.Dataset{
		Headers: []string{"student_number", "student_name", "academic_year", "semester", "status", "payment_status", "total_amount", "amount_paid"},
	}
	for _, e := range enrollments {
		row := map[string]string{
			"academic_year":  e.AcademicYear,
			"semester":       strconv.Itoa(e.Semester),
			"status":         string(e.Status),
			"payment_status": string(e.PaymentStatus),
			"total_amount":   strconv.FormatFloat(e.TotalAmount, 'f', 2, 64),
			"amount_paid":    strconv.FormatFloat(e.AmountPaid, 'f', 2, 64),
		}
		if e.StudentNumber != nil {
			row["student_number"] = *e.StudentNumber
		}
		if e.StudentName != nil {
			row["student_name"] = *e.StudentName
		}
		dataset.Rows = append(dataset.Rows, row)
	}

	data, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return data, nil
}

func (s *EnrollmentService) linkBreakdownCourses(ctx context.Context, enrollmentID string, breakdown models.FeeBreakdown) {
	if len(breakdown.Courses) == 0 {
		return
	}
	courseIDs := make([]string, 0, len(breakdown.Courses))
	for _, course := range breakdown.Courses {
		courseIDs = append(courseIDs, course.ID)
	}
	if err := s.repo.LinkCourses(ctx, enrollmentID, courseIDs); err != nil {
		s.logger.Warn("failed to link enrollment courses", zap.String("enrollment_id", enrollmentID), zap.Error(err))
	}
}
