package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/wlc-ormoc/registrar-api/internal/models"
	appErrors "github.com/wlc-ormoc/registrar-api/pkg/errors"
)

type curriculumRepository interface {
	EnsureYear(ctx context.Context, programID string, yearLevel int) (*models.Year, error)
	ListCourses(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindCourseByID(ctx context.Context, id string) (*models.Course, error)
	CreateCourse(ctx context.Context, course *models.Course) error
	UpdateCourse(ctx context.Context, course *models.Course) error
	RemoveCourse(ctx context.Context, id string) error
}

// CourseService manages curriculum courses. Only Active courses enter fee
// calculation; removal is a soft delete so old enrollments keep their links.
type CourseService struct {
	repo      curriculumRepository
	programs  registrationProgramRepository
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs a CourseService. audit may be nil.
func NewCourseService(repo curriculumRepository, programs registrationProgramRepository, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CourseService{repo: repo, programs: programs, audit: audit, validator: validate, logger: logger}
}

// List returns courses matching the filter with pagination metadata.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	courses, total, err := s.repo.ListCourses(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 50
	}
	return courses, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one course.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindCourseByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Create adds a course to a program's year level, creating the year row when
// it does not exist yet.
func (s *CourseService) Create(ctx context.Context, adminID string, req models.CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	program, err := s.programs.FindByID(ctx, req.ProgramID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown program")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}
	if req.YearLevel > program.YearsToComplete {
		return nil, appErrors.Clone(appErrors.ErrValidation, "year level exceeds program length")
	}

	year, err := s.repo.EnsureYear(ctx, req.ProgramID, req.YearLevel)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve curriculum year")
	}

	course := &models.Course{
		YearID:   year.ID,
		Code:     req.Code,
		Name:     req.Name,
		Units:    req.Units,
		Semester: req.Semester,
		Status:   models.CourseStatusActive,
	}
	if err := s.repo.CreateCourse(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}

	s.recordAudit(ctx, adminID, course.ID, map[string]interface{}{"action": "create", "code": course.Code})
	return course, nil
}

// Update edits a course's fields.
func (s *CourseService) Update(ctx context.Context, adminID, id string, req models.UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	course, err := s.repo.FindCourseByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.Status == models.CourseStatusRemoved {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course has been removed")
	}

	course.Code = req.Code
	course.Name = req.Name
	course.Units = req.Units
	course.Semester = req.Semester
	course.Status = req.Status
	if err := s.repo.UpdateCourse(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}

	s.recordAudit(ctx, adminID, id, map[string]interface{}{"action": "update", "code": course.Code})
	return course, nil
}

// Remove soft-deletes a course.
func (s *CourseService) Remove(ctx context.Context, adminID, id string) error {
	if err := s.repo.RemoveCourse(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove course")
	}
	s.recordAudit(ctx, adminID, id, map[string]interface{}{"action": "remove"})
	return nil
}

func (s *CourseService) recordAudit(ctx context.Context, adminID, courseID string, details map[string]interface{}) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(details)
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &adminID,
		Action:     models.AuditActionCourseChange,
		Resource:   "courses",
		ResourceID: &courseID,
		NewValues:  payload,
	}); err != nil {
		s.logger.Warn("failed to record course audit log", zap.Error(err))
	}
}
