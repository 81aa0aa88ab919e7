package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wlc-ormoc/registrar-api/internal/models"
)

type mockEnrollmentRepo struct {
	items         map[string]*models.Enrollment
	byPeriod      map[string]*models.Enrollment
	created       []*models.Enrollment
	linked        map[string][]string
	statusUpdates map[string]models.EnrollmentStatus
	approved      map[string]float64
	exportRows    []models.EnrollmentDetail
}

func periodKey(studentID, academicYear string, semester int) string {
	return fmt.Sprintf("%s|%s|%d", studentID, academicYear, semester)
}

func (m *mockEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	return nil, 0, nil
}

func (m *mockEnrollmentRepo) ListForExport(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error) {
	return m.exportRows, nil
}

func (m *mockEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.items[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	if e, ok := m.items[id]; ok {
		return &models.EnrollmentDetail{Enrollment: *e}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) FindByStudentPeriod(ctx context.Context, studentID, academicYear string, semester int) (*models.Enrollment, error) {
	if e, ok := m.byPeriod[periodKey(studentID, academicYear, semester)]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = "enr-new"
	}
	cp := *enrollment
	m.created = append(m.created, &cp)
	return nil
}

func (m *mockEnrollmentRepo) LinkCourses(ctx context.Context, enrollmentID string, courseIDs []string) error {
	if m.linked == nil {
		m.linked = make(map[string][]string)
	}
	m.linked[enrollmentID] = append(m.linked[enrollmentID], courseIDs...)
	return nil
}

func (m *mockEnrollmentRepo) ListCourses(ctx context.Context, enrollmentID string) ([]models.Course, error) {
	return nil, nil
}

func (m *mockEnrollmentRepo) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error {
	if m.statusUpdates == nil {
		m.statusUpdates = make(map[string]models.EnrollmentStatus)
	}
	m.statusUpdates[id] = status
	return nil
}

func (m *mockEnrollmentRepo) ApplyApproval(ctx context.Context, id string, totalAmount float64, now time.Time) (*models.Enrollment, error) {
	e, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if m.approved == nil {
		m.approved = make(map[string]float64)
	}
	m.approved[id] = totalAmount
	cp := *e
	cp.Status = models.EnrollmentStatusApproved
	cp.TotalAmount = totalAmount
	cp.AmountPaid = 0
	cp.PaymentStatus = models.PaymentStatusUnpaid
	return &cp, nil
}

type mockEnrollmentStudents struct {
	items map[string]*models.StudentDetail
}

func (m *mockEnrollmentStudents) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if s, ok := m.items[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

type mockFeeCalculator struct {
	breakdown models.FeeBreakdown
	period    models.AcademicPeriod
	calls     int
}

func (m *mockFeeCalculator) Calculate(ctx context.Context, programID string, yearLevel, semester int) models.FeeBreakdown {
	m.calls++
	return m.breakdown
}

func (m *mockFeeCalculator) CurrentPeriod() models.AcademicPeriod {
	return m.period
}

func TestEnrollmentServiceCreateInitial(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	fees := &mockFeeCalculator{
		breakdown: models.FeeBreakdown{
			TotalAmount: 12500,
			Courses:     []models.Course{{ID: "c1"}, {ID: "c2"}},
		},
		period: models.AcademicPeriod{AcademicYear: "2025-2026", Semester: 1},
	}
	svc := NewEnrollmentService(repo, &mockEnrollmentStudents{}, fees, zap.NewNop())

	enrollment, err := svc.CreateInitial(context.Background(), "stu-1", "prog-1", 1)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusDraft, enrollment.Status)
	assert.Equal(t, models.PaymentStatusUnpaid, enrollment.PaymentStatus)
	assert.Equal(t, 12500.0, enrollment.TotalAmount)
	assert.Equal(t, "2025-2026", enrollment.AcademicYear)
	require.Len(t, repo.created, 1)
	assert.Equal(t, []string{"c1", "c2"}, repo.linked[enrollment.ID])
}

func TestEnrollmentServiceCreateInitialExisting(t *testing.T) {
	existing := &models.Enrollment{ID: "enr-1", StudentID: "stu-1", AcademicYear: "2025-2026", Semester: 1}
	repo := &mockEnrollmentRepo{
		byPeriod: map[string]*models.Enrollment{periodKey("stu-1", "2025-2026", 1): existing},
	}
	fees := &mockFeeCalculator{period: models.AcademicPeriod{AcademicYear: "2025-2026", Semester: 1}}
	svc := NewEnrollmentService(repo, &mockEnrollmentStudents{}, fees, zap.NewNop())

	enrollment, err := svc.CreateInitial(context.Background(), "stu-1", "prog-1", 1)
	require.NoError(t, err)
	assert.Equal(t, "enr-1", enrollment.ID)
	assert.Empty(t, repo.created)
	assert.Zero(t, fees.calls)
}

func TestEnrollmentServiceSetStatusPlain(t *testing.T) {
	repo := &mockEnrollmentRepo{
		items: map[string]*models.Enrollment{
			"enr-1": {ID: "enr-1", StudentID: "stu-1", Status: models.EnrollmentStatusDraft},
		},
	}
	svc := NewEnrollmentService(repo, &mockEnrollmentStudents{}, &mockFeeCalculator{}, zap.NewNop())

	enrollment, err := svc.SetStatus(context.Background(), "enr-1", models.EnrollmentStatusForReview)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusForReview, enrollment.Status)
	assert.Equal(t, models.EnrollmentStatusForReview, repo.statusUpdates["enr-1"])
	assert.Empty(t, repo.approved)
}

func TestEnrollmentServiceSetStatusApprovedRecomputes(t *testing.T) {
	repo := &mockEnrollmentRepo{
		items: map[string]*models.Enrollment{
			"enr-1": {
				ID: "enr-1", StudentID: "stu-1", Semester: 1,
				Status: models.EnrollmentStatusForReview, TotalAmount: 9000, AmountPaid: 4000,
			},
		},
	}
	students := &mockEnrollmentStudents{
		items: map[string]*models.StudentDetail{
			"stu-1": {Student: models.Student{ID: "stu-1", ProgramID: "prog-1", YearLevel: 2}},
		},
	}
	fees := &mockFeeCalculator{
		breakdown: models.FeeBreakdown{TotalAmount: 12500, Courses: []models.Course{{ID: "c1"}}},
	}
	svc := NewEnrollmentService(repo, students, fees, zap.NewNop())

	enrollment, err := svc.SetStatus(context.Background(), "enr-1", models.EnrollmentStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusApproved, enrollment.Status)
	assert.Equal(t, 12500.0, enrollment.TotalAmount)
	assert.Zero(t, enrollment.AmountPaid)
	assert.Equal(t, models.PaymentStatusUnpaid, enrollment.PaymentStatus)
	assert.Equal(t, 12500.0, repo.approved["enr-1"])
	assert.Equal(t, []string{"c1"}, repo.linked["enr-1"])
}

func TestEnrollmentServiceSetStatusUnknown(t *testing.T) {
	svc := NewEnrollmentService(&mockEnrollmentRepo{}, &mockEnrollmentStudents{}, &mockFeeCalculator{}, zap.NewNop())

	_, err := svc.SetStatus(context.Background(), "enr-1", models.EnrollmentStatus("Cancelled"))
	require.Error(t, err)
}

func TestEnrollmentServiceExportCSV(t *testing.T) {
	number := "STU-1"
	name := "Juan Dela Cruz"
	repo := &mockEnrollmentRepo{
		exportRows: []models.EnrollmentDetail{
			{
				Enrollment: models.Enrollment{
					AcademicYear: "2025-2026", Semester: 1,
					Status: models.EnrollmentStatusApproved, PaymentStatus: models.PaymentStatusPartial,
					TotalAmount: 12500, AmountPaid: 4000,
				},
				StudentNumber: &number,
				StudentName:   &name,
			},
		},
	}
	svc := NewEnrollmentService(repo, &mockEnrollmentStudents{}, &mockFeeCalculator{}, zap.NewNop())

	data, err := svc.ExportCSV(context.Background(), models.EnrollmentFilter{})
	require.NoError(t, err)

	text := string(data)
	lines := strings.Split(strings.TrimSpace(text), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "student_number,student_name,academic_year,semester,status,payment_status,total_amount,amount_paid", strings.TrimSpace(lines[0]))
	assert.Contains(t, lines[1], "STU-1")
	assert.Contains(t, lines[1], "12500.00")
	assert.Contains(t, lines[1], "4000.00")
}
