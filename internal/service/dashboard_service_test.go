package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wlc-ormoc/registrar-api/internal/models"
)

type mockDashboardRegistrations struct {
	counts map[models.RegistrationStatus]int
}

func (m *mockDashboardRegistrations) CountByStatus(ctx context.Context) (map[models.RegistrationStatus]int, error) {
	return m.counts, nil
}

type mockDashboardEnrollments struct {
	statusCounts  map[models.EnrollmentStatus]int
	paymentCounts map[models.PaymentStatus]int
	billed        float64
	collected     float64
}

func (m *mockDashboardEnrollments) CountByStatus(ctx context.Context) (map[models.EnrollmentStatus]int, error) {
	return m.statusCounts, nil
}

func (m *mockDashboardEnrollments) CountByPaymentStatus(ctx context.Context) (map[models.PaymentStatus]int, error) {
	return m.paymentCounts, nil
}

func (m *mockDashboardEnrollments) RevenueTotals(ctx context.Context) (float64, float64, error) {
	return m.billed, m.collected, nil
}

type mockDashboardStudents struct {
	total       int
	byProgram   map[string]int
	byYearLevel map[int]int
}

func (m *mockDashboardStudents) Count(ctx context.Context) (int, error) {
	return m.total, nil
}

func (m *mockDashboardStudents) CountByProgram(ctx context.Context) (map[string]int, error) {
	return m.byProgram, nil
}

func (m *mockDashboardStudents) CountByYearLevel(ctx context.Context) (map[int]int, error) {
	return m.byYearLevel, nil
}

type mockDashboardPrograms struct{ total int }

func (m *mockDashboardPrograms) Count(ctx context.Context) (int, error) {
	return m.total, nil
}

type mockDashboardCurriculum struct{ total int }

func (m *mockDashboardCurriculum) CountCourses(ctx context.Context) (int, error) {
	return m.total, nil
}

func TestDashboardServiceMetricsWithoutCache(t *testing.T) {
	svc := NewDashboardService(
		&mockDashboardRegistrations{counts: map[models.RegistrationStatus]int{
			models.RegistrationStatusPending:  3,
			models.RegistrationStatusApproved: 10,
			models.RegistrationStatusRejected: 2,
		}},
		&mockDashboardEnrollments{
			statusCounts: map[models.EnrollmentStatus]int{
				models.EnrollmentStatusDraft:    4,
				models.EnrollmentStatusApproved: 8,
			},
			paymentCounts: map[models.PaymentStatus]int{
				models.PaymentStatusPaid:    5,
				models.PaymentStatusPartial: 2,
				models.PaymentStatusUnpaid:  5,
			},
			billed:    150000,
			collected: 87500,
		},
		&mockDashboardStudents{
			total:       12,
			byProgram:   map[string]int{"BSIT": 7, "BSN": 5},
			byYearLevel: map[int]int{1: 6, 2: 6},
		},
		&mockDashboardPrograms{total: 2},
		&mockDashboardCurriculum{total: 24},
		nil,
		time.Minute,
		nil,
		zap.NewNop(),
	)

	metrics, err := svc.Metrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, metrics.PendingRegistrations)
	assert.Equal(t, 10, metrics.ApprovedRegistrations)
	assert.Equal(t, 4, metrics.DraftEnrollments)
	assert.Equal(t, 8, metrics.ApprovedEnrollments)
	assert.Equal(t, 5, metrics.PaidEnrollments)
	assert.Equal(t, 150000.0, metrics.ExpectedRevenue)
	assert.Equal(t, 87500.0, metrics.CollectedRevenue)
	assert.Equal(t, 12, metrics.TotalStudents)
	assert.Equal(t, 7, metrics.StudentsByProgram["BSIT"])
	assert.Equal(t, 6, metrics.StudentsByYearLevel[2])
	assert.Equal(t, 2, metrics.ProgramCount)
	assert.Equal(t, 24, metrics.CourseCount)
}
