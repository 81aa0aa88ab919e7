package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wlc-ormoc/registrar-api/internal/models"
	"github.com/wlc-ormoc/registrar-api/pkg/config"
)

type feeCurriculumRepository interface {
	FindYear(ctx context.Context, programID string, yearLevel int) (*models.Year, error)
	ListActiveCourses(ctx context.Context, yearID string, semester int) ([]models.Course, error)
}

// FeeService computes enrollment fees and owns the academic-period policy.
type FeeService struct {
	curriculum feeCurriculumRepository
	fees       config.FeesConfig
	logger     *zap.Logger
	now        func() time.Time
}

// NewFeeService constructs a FeeService. The clock defaults to time.Now.
func NewFeeService(curriculum feeCurriculumRepository, fees config.FeesConfig, logger *zap.Logger) *FeeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeeService{curriculum: curriculum, fees: fees, logger: logger, now: time.Now}
}

// WithClock overrides the service clock. Used by tests.
func (s *FeeService) WithClock(now func() time.Time) *FeeService {
	s.now = now
	return s
}

// Calculate computes the fee breakdown for a program, year level and
// semester. A program with no curriculum for the year level bills the
// miscellaneous minimum only; course lookup failures degrade the same way
// rather than failing the caller.
func (s *FeeService) Calculate(ctx context.Context, programID string, yearLevel, semester int) models.FeeBreakdown {
	fallback := models.FeeBreakdown{
		TotalAmount: s.fees.MiscellaneousFee,
		MiscFee:     s.fees.MiscellaneousFee,
		Courses:     []models.Course{},
	}

	year, err := s.curriculum.FindYear(ctx, programID, yearLevel)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("year lookup failed, billing miscellaneous minimum",
				zap.String("program_id", programID), zap.Int("year_level", yearLevel), zap.Error(err))
		}
		return fallback
	}

	courses, err := s.curriculum.ListActiveCourses(ctx, year.ID, semester)
	if err != nil {
		s.logger.Warn("course lookup failed, billing miscellaneous minimum",
			zap.String("year_id", year.ID), zap.Int("semester", semester), zap.Error(err))
		return fallback
	}

	totalUnits := 0
	for _, course := range courses {
		totalUnits += course.Units
	}

	tuition := s.fees.PricePerUnit * float64(totalUnits)
	programFee := s.fees.ProgramFees[programID]

	return models.FeeBreakdown{
		TotalAmount: tuition + s.fees.MiscellaneousFee + programFee,
		TuitionFee:  tuition,
		MiscFee:     s.fees.MiscellaneousFee,
		ProgramFee:  programFee,
		TotalUnits:  totalUnits,
		Courses:     courses,
	}
}

// CurrentPeriod resolves the academic period in effect right now. June
// through December is the first semester of the academic year starting that
// calendar year; January through May is the second semester of the academic
// year that started the previous calendar year.
func (s *FeeService) CurrentPeriod() models.AcademicPeriod {
	return PeriodAt(s.now())
}

// PeriodAt resolves the academic period in effect at the given time.
func PeriodAt(t time.Time) models.AcademicPeriod {
	year := t.Year()
	if t.Month() >= time.June {
		return models.AcademicPeriod{
			AcademicYear: fmt.Sprintf("%d-%d", year, year+1),
			Semester:     1,
		}
	}
	return models.AcademicPeriod{
		AcademicYear: fmt.Sprintf("%d-%d", year-1, year),
		Semester:     2,
	}
}
