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
	"github.com/wlc-ormoc/registrar-api/pkg/config"
)

type mockFeeCurriculum struct {
	year       *models.Year
	yearErr    error
	courses    []models.Course
	coursesErr error
}

func (m *mockFeeCurriculum) FindYear(ctx context.Context, programID string, yearLevel int) (*models.Year, error) {
	if m.yearErr != nil {
		return nil, m.yearErr
	}
	return m.year, nil
}

func (m *mockFeeCurriculum) ListActiveCourses(ctx context.Context, yearID string, semester int) ([]models.Course, error) {
	if m.coursesErr != nil {
		return nil, m.coursesErr
	}
	return m.courses, nil
}

func feeTestConfig() config.FeesConfig {
	return config.FeesConfig{
		PricePerUnit:     1000,
		MiscellaneousFee: 2500,
		ProgramFees:      map[string]float64{"prog-nursing": 5000},
	}
}

func TestFeeServiceCalculate(t *testing.T) {
	curriculum := &mockFeeCurriculum{
		year: &models.Year{ID: "year-1", ProgramID: "prog-1", YearLevel: 1},
		courses: []models.Course{
			{ID: "c1", Code: "GE101", Units: 3},
			{ID: "c2", Code: "CS101", Units: 5},
		},
	}
	svc := NewFeeService(curriculum, feeTestConfig(), zap.NewNop())

	breakdown := svc.Calculate(context.Background(), "prog-1", 1, 1)
	assert.Equal(t, 8, breakdown.TotalUnits)
	assert.Equal(t, 8000.0, breakdown.TuitionFee)
	assert.Equal(t, 2500.0, breakdown.MiscFee)
	assert.Equal(t, 0.0, breakdown.ProgramFee)
	assert.Equal(t, 10500.0, breakdown.TotalAmount)
	assert.Len(t, breakdown.Courses, 2)
}

func TestFeeServiceCalculateProgramSurcharge(t *testing.T) {
	curriculum := &mockFeeCurriculum{
		year:    &models.Year{ID: "year-1", ProgramID: "prog-nursing", YearLevel: 2},
		courses: []models.Course{{ID: "c1", Code: "NUR201", Units: 4}},
	}
	svc := NewFeeService(curriculum, feeTestConfig(), zap.NewNop())

	breakdown := svc.Calculate(context.Background(), "prog-nursing", 2, 1)
	assert.Equal(t, 5000.0, breakdown.ProgramFee)
	assert.Equal(t, 4000.0+2500.0+5000.0, breakdown.TotalAmount)
}

func TestFeeServiceCalculateNoCurriculumYear(t *testing.T) {
	curriculum := &mockFeeCurriculum{yearErr: sql.ErrNoRows}
	svc := NewFeeService(curriculum, feeTestConfig(), zap.NewNop())

	breakdown := svc.Calculate(context.Background(), "prog-1", 4, 2)
	assert.Equal(t, 2500.0, breakdown.TotalAmount)
	assert.Equal(t, 2500.0, breakdown.MiscFee)
	assert.Zero(t, breakdown.TuitionFee)
	assert.Empty(t, breakdown.Courses)
}

func TestFeeServiceCalculateCourseLookupFailure(t *testing.T) {
	curriculum := &mockFeeCurriculum{
		year:       &models.Year{ID: "year-1"},
		coursesErr: errors.New("connection reset"),
	}
	svc := NewFeeService(curriculum, feeTestConfig(), zap.NewNop())

	breakdown := svc.Calculate(context.Background(), "prog-1", 1, 1)
	assert.Equal(t, 2500.0, breakdown.TotalAmount)
	assert.Empty(t, breakdown.Courses)
}

func TestPeriodAt(t *testing.T) {
	cases := []struct {
		name     string
		at       time.Time
		year     string
		semester int
	}{
		{"june opens first semester", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), "2025-2026", 1},
		{"december still first semester", time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC), "2025-2026", 1},
		{"january is second semester of prior year", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "2025-2026", 2},
		{"may closes second semester", time.Date(2026, 5, 31, 12, 0, 0, 0, time.UTC), "2025-2026", 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			period := PeriodAt(tc.at)
			assert.Equal(t, tc.year, period.AcademicYear)
			assert.Equal(t, tc.semester, period.Semester)
		})
	}
}

func TestFeeServiceCurrentPeriodUsesClock(t *testing.T) {
	svc := NewFeeService(&mockFeeCurriculum{}, feeTestConfig(), zap.NewNop()).
		WithClock(func() time.Time { return time.Date(2025, 9, 15, 8, 0, 0, 0, time.UTC) })

	period := svc.CurrentPeriod()
	require.Equal(t, "2025-2026", period.AcademicYear)
	require.Equal(t, 1, period.Semester)
}
