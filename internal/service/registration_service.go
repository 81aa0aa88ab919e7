package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/wlc-ormoc/registrar-api/internal/models"
	"github.com/wlc-ormoc/registrar-api/internal/repository"
	appErrors "github.com/wlc-ormoc/registrar-api/pkg/errors"
)

type registrationRepository interface {
	List(ctx context.Context, filter models.RegistrationFilter) ([]models.RegistrationDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Registration, error)
	FindDetailByID(ctx context.Context, id string) (*models.RegistrationDetail, error)
	Create(ctx context.Context, reg *models.Registration) error
	ExistsPendingByEmail(ctx context.Context, email string) (bool, error)
	ApproveTx(ctx context.Context, params repository.ApproveParams) (*repository.ApproveResult, error)
	RejectTx(ctx context.Context, id, reviewerID string, now time.Time) (*models.Registration, error)
}

type registrationProgramRepository interface {
	FindByID(ctx context.Context, id string) (*models.Program, error)
}

type registrationEnrollmentLinker interface {
	LinkCourses(ctx context.Context, enrollmentID string, courseIDs []string) error
}

type identityProvisioner interface {
	EnsureIdentity(ctx context.Context, email, fullName, tempPassword string) (string, error)
}

type registrationNotifier interface {
	CredentialsIssued(ctx context.Context, email, fullName, tempPassword string)
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// RegistrationService handles the public intake and the admin review
// workflow that turns an application into a student with a login and an
// initial enrollment.
type RegistrationService struct {
	repo        registrationRepository
	programs    registrationProgramRepository
	enrollments registrationEnrollmentLinker
	identity    identityProvisioner
	fees        feeCalculator
	notifier    registrationNotifier
	audit       auditRecorder
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewRegistrationService constructs a RegistrationService. notifier and
// audit may be nil.
func NewRegistrationService(
	repo registrationRepository,
	programs registrationProgramRepository,
	enrollments registrationEnrollmentLinker,
	identity identityProvisioner,
	fees feeCalculator,
	notifier registrationNotifier,
	audit auditRecorder,
	validate *validator.Validate,
	logger *zap.Logger,
) *RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &RegistrationService{
		repo:        repo,
		programs:    programs,
		enrollments: enrollments,
		identity:    identity,
		fees:        fees,
		notifier:    notifier,
		audit:       audit,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// Submit accepts a public registration application. One pending application
// per email at a time; the program must exist and be active.
func (s *RegistrationService) Submit(ctx context.Context, req models.SubmitRegistrationRequest) (*models.Registration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	program, err := s.programs.FindByID(ctx, req.ProgramID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown program")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}
	if program.Status != models.ProgramStatusActive {
		return nil, appErrors.Clone(appErrors.ErrValidation, "program is not accepting registrations")
	}
	if req.YearLevel > program.YearsToComplete {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("year level exceeds program length of %d", program.YearsToComplete))
	}

	pending, err := s.repo.ExistsPendingByEmail(ctx, req.Email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pending registration")
	}
	if pending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a pending registration already exists for this email")
	}

	reg := &models.Registration{
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		MiddleName:         req.MiddleName,
		Email:              req.Email,
		ContactNumber:      req.ContactNumber,
		Address:            req.Address,
		ProgramID:          req.ProgramID,
		YearLevel:          req.YearLevel,
		IsReturningStudent: req.IsReturningStudent,
		Status:             models.RegistrationStatusPending,
	}
	if err := s.repo.Create(ctx, reg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create registration")
	}
	return reg, nil
}

// List returns registrations matching the filter with pagination metadata.
func (s *RegistrationService) List(ctx context.Context, filter models.RegistrationFilter) ([]models.RegistrationDetail, *models.Pagination, error) {
	registrations, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list registrations")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return registrations, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one registration with program context.
func (s *RegistrationService) Get(ctx context.Context, id string) (*models.RegistrationDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}
	return detail, nil
}

// Approve admits a pending registration: provisions a login, creates the
// student and initial enrollment when the email is new, and emails the
// temporary credentials. Identity provisioning happens before the
// transaction; a retry after a partial failure reuses the identity through
// the existing-email path.
func (s *RegistrationService) Approve(ctx context.Context, registrationID, adminID string) (*models.Registration, error) {
	reg, err := s.repo.FindByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}
	if reg.Status != models.RegistrationStatusPending {
		return nil, appErrors.Clone(appErrors.ErrAlreadyProcessed, "registration has already been reviewed")
	}

	tempPassword, err := GenerateTempPassword()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate temporary password")
	}

	userID, err := s.identity.EnsureIdentity(ctx, reg.Email, reg.FullName(), tempPassword)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	period := s.fees.CurrentPeriod()
	breakdown := s.fees.Calculate(ctx, reg.ProgramID, reg.YearLevel, period.Semester)

	result, err := s.repo.ApproveTx(ctx, repository.ApproveParams{
		RegistrationID: registrationID,
		ReviewerID:     adminID,
		UserID:         userID,
		StudentNumber:  fmt.Sprintf("STU-%d", now.UnixMilli()),
		AcademicYear:   period.AcademicYear,
		Semester:       period.Semester,
		TotalAmount:    breakdown.TotalAmount,
		Now:            now,
	})
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		case errors.Is(err, repository.ErrAlreadyProcessed):
			return nil, appErrors.Clone(appErrors.ErrAlreadyProcessed, "registration has already been reviewed")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve registration")
		}
	}

	if result.EnrollmentCreated && len(breakdown.Courses) > 0 {
		courseIDs := make([]string, 0, len(breakdown.Courses))
		for _, course := range breakdown.Courses {
			courseIDs = append(courseIDs, course.ID)
		}
		if err := s.enrollments.LinkCourses(ctx, result.EnrollmentID, courseIDs); err != nil {
			s.logger.Warn("failed to link initial enrollment courses",
				zap.String("enrollment_id", result.EnrollmentID), zap.Error(err))
		}
	}

	s.recordDecisionAudit(ctx, adminID, registrationID, models.AuditActionRegistrationApprove, map[string]interface{}{
		"student_id":      result.StudentID,
		"student_created": result.StudentCreated,
		"enrollment_id":   result.EnrollmentID,
	})

	if s.notifier != nil {
		s.notifier.CredentialsIssued(ctx, reg.Email, reg.FullName(), tempPassword)
	}

	approved := result.Registration
	return &approved, nil
}

// Reject declines a pending registration. No student, login or enrollment
// side effects.
func (s *RegistrationService) Reject(ctx context.Context, registrationID, adminID string) (*models.Registration, error) {
	reg, err := s.repo.RejectTx(ctx, registrationID, adminID, s.now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		case errors.Is(err, repository.ErrAlreadyProcessed):
			return nil, appErrors.Clone(appErrors.ErrAlreadyProcessed, "registration has already been reviewed")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject registration")
		}
	}

	s.recordDecisionAudit(ctx, adminID, registrationID, models.AuditActionRegistrationReject, nil)
	return reg, nil
}

func (s *RegistrationService) recordDecisionAudit(ctx context.Context, adminID, registrationID, action string, details map[string]interface{}) {
	if s.audit == nil {
		return
	}
	var payload []byte
	if details != nil {
		payload, _ = json.Marshal(details)
	}
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &adminID,
		Action:     action,
		Resource:   "registrations",
		ResourceID: &registrationID,
		NewValues:  payload,
	}); err != nil {
		s.logger.Warn("failed to record registration audit log", zap.Error(err))
	}
}
