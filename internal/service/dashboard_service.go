package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/wlc-ormoc/registrar-api/internal/models"
	appErrors "github.com/wlc-ormoc/registrar-api/pkg/errors"
)

const dashboardCacheKey = "dashboard:metrics"

type dashboardRegistrationRepository interface {
	CountByStatus(ctx context.Context) (map[models.RegistrationStatus]int, error)
}

type dashboardEnrollmentRepository interface {
	CountByStatus(ctx context.Context) (map[models.EnrollmentStatus]int, error)
	CountByPaymentStatus(ctx context.Context) (map[models.PaymentStatus]int, error)
	RevenueTotals(ctx context.Context) (billed, collected float64, err error)
}

type dashboardStudentRepository interface {
	Count(ctx context.Context) (int, error)
	CountByProgram(ctx context.Context) (map[string]int, error)
	CountByYearLevel(ctx context.Context) (map[int]int, error)
}

type dashboardProgramRepository interface {
	Count(ctx context.Context) (int, error)
}

type dashboardCurriculumRepository interface {
	CountCourses(ctx context.Context) (int, error)
}

// DashboardService aggregates admin metrics, cached in redis with a TTL.
// A nil redis client disables caching; cache failures fall through to the
// database.
type DashboardService struct {
	registrations dashboardRegistrationRepository
	enrollments   dashboardEnrollmentRepository
	students      dashboardStudentRepository
	programs      dashboardProgramRepository
	curriculum    dashboardCurriculumRepository
	cache         *redis.Client
	cacheTTL      time.Duration
	metrics       *MetricsService
	logger        *zap.Logger
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(
	registrations dashboardRegistrationRepository,
	enrollments dashboardEnrollmentRepository,
	students dashboardStudentRepository,
	programs dashboardProgramRepository,
	curriculum dashboardCurriculumRepository,
	cache *redis.Client,
	cacheTTL time.Duration,
	metrics *MetricsService,
	logger *zap.Logger,
) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &DashboardService{
		registrations: registrations,
		enrollments:   enrollments,
		students:      students,
		programs:      programs,
		curriculum:    curriculum,
		cache:         cache,
		cacheTTL:      cacheTTL,
		metrics:       metrics,
		logger:        logger,
	}
}

// Metrics returns the dashboard figures, serving from cache when fresh.
func (s *DashboardService) Metrics(ctx context.Context) (*models.DashboardMetrics, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, dashboardCacheKey).Bytes()
		if err == nil {
			var cached models.DashboardMetrics
			if err := json.Unmarshal(raw, &cached); err == nil {
				s.metrics.RecordDashboardCache(true)
				return &cached, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
		s.metrics.RecordDashboardCache(false)
	}

	metrics, err := s.collect(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(metrics); err == nil {
			if err := s.cache.Set(ctx, dashboardCacheKey, raw, s.cacheTTL).Err(); err != nil {
				s.logger.Warn("dashboard cache write failed", zap.Error(err))
			}
		}
	}
	return metrics, nil
}

// Invalidate drops the cached metrics so the next read recomputes.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, dashboardCacheKey).Err(); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

func (s *DashboardService) collect(ctx context.Context) (*models.DashboardMetrics, error) {
	metrics := &models.DashboardMetrics{}

	regCounts, err := s.registrations.CountByStatus(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count registrations")
	}
	metrics.PendingRegistrations = regCounts[models.RegistrationStatusPending]
	metrics.ApprovedRegistrations = regCounts[models.RegistrationStatusApproved]
	metrics.RejectedRegistrations = regCounts[models.RegistrationStatusRejected]

	enrollCounts, err := s.enrollments.CountByStatus(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
	}
	metrics.DraftEnrollments = enrollCounts[models.EnrollmentStatusDraft]
	metrics.ForReviewEnrollments = enrollCounts[models.EnrollmentStatusForReview]
	metrics.ApprovedEnrollments = enrollCounts[models.EnrollmentStatusApproved]
	metrics.RejectedEnrollments = enrollCounts[models.EnrollmentStatusRejected]

	payCounts, err := s.enrollments.CountByPaymentStatus(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count payment statuses")
	}
	metrics.PaidEnrollments = payCounts[models.PaymentStatusPaid]
	metrics.PartialEnrollments = payCounts[models.PaymentStatusPartial]
	metrics.UnpaidEnrollments = payCounts[models.PaymentStatusUnpaid]

	billed, collected, err := s.enrollments.RevenueTotals(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to total revenue")
	}
	metrics.ExpectedRevenue = billed
	metrics.CollectedRevenue = collected

	if metrics.TotalStudents, err = s.students.Count(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	if metrics.StudentsByProgram, err = s.students.CountByProgram(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students by program")
	}
	if metrics.StudentsByYearLevel, err = s.students.CountByYearLevel(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students by year level")
	}
	if metrics.ProgramCount, err = s.programs.Count(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count programs")
	}
	if metrics.CourseCount, err = s.curriculum.CountCourses(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count courses")
	}
	return metrics, nil
}
