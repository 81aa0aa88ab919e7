package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/wlc-ormoc/registrar-api/internal/models"
	"github.com/wlc-ormoc/registrar-api/internal/repository"
	appErrors "github.com/wlc-ormoc/registrar-api/pkg/errors"
)

type programRepository interface {
	List(ctx context.Context, filter models.ProgramFilter) ([]models.Program, int, error)
	FindByID(ctx context.Context, id string) (*models.Program, error)
	ExistsByCode(ctx context.Context, code, excludeID string) (bool, error)
	Create(ctx context.Context, program *models.Program) error
	Update(ctx context.Context, program *models.Program) error
	Delete(ctx context.Context, id string) error
}

// ProgramService manages the program catalogue.
type ProgramService struct {
	repo      programRepository
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProgramService constructs a ProgramService. audit may be nil.
func NewProgramService(repo programRepository, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *ProgramService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ProgramService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// List returns programs matching the filter with pagination metadata.
func (s *ProgramService) List(ctx context.Context, filter models.ProgramFilter) ([]models.Program, *models.Pagination, error) {
	programs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list programs")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return programs, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one program.
func (s *ProgramService) Get(ctx context.Context, id string) (*models.Program, error) {
	program, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}
	return program, nil
}

// Create adds a program to the catalogue.
func (s *ProgramService) Create(ctx context.Context, adminID string, req models.CreateProgramRequest) (*models.Program, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid program payload")
	}

	exists, err := s.repo.ExistsByCode(ctx, req.Code, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check program code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a program with this code already exists")
	}

	program := &models.Program{
		Code:            req.Code,
		Name:            req.Name,
		TotalUnits:      req.TotalUnits,
		YearsToComplete: req.YearsToComplete,
		Status:          models.ProgramStatusActive,
	}
	if err := s.repo.Create(ctx, program); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create program")
	}

	s.recordAudit(ctx, adminID, program.ID, map[string]interface{}{"action": "create", "code": program.Code})
	return program, nil
}

// Update edits a program's fields.
func (s *ProgramService) Update(ctx context.Context, adminID, id string, req models.UpdateProgramRequest) (*models.Program, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid program payload")
	}

	program, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}

	exists, err := s.repo.ExistsByCode(ctx, req.Code, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check program code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a program with this code already exists")
	}

	program.Code = req.Code
	program.Name = req.Name
	program.TotalUnits = req.TotalUnits
	program.YearsToComplete = req.YearsToComplete
	program.Status = req.Status
	if err := s.repo.Update(ctx, program); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update program")
	}

	s.recordAudit(ctx, adminID, id, map[string]interface{}{"action": "update", "code": program.Code})
	return program, nil
}

// Delete removes a program. Rejected while students or registrations still
// reference it.
func (s *ProgramService) Delete(ctx context.Context, adminID, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return appErrors.Clone(appErrors.ErrNotFound, "program not found")
		case errors.Is(err, repository.ErrProgramReferenced):
			return appErrors.Clone(appErrors.ErrConflict, "program is referenced by students or registrations")
		default:
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete program")
		}
	}
	s.recordAudit(ctx, adminID, id, map[string]interface{}{"action": "delete"})
	return nil
}

func (s *ProgramService) recordAudit(ctx context.Context, adminID, programID string, details map[string]interface{}) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(details)
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &adminID,
		Action:     models.AuditActionProgramChange,
		Resource:   "programs",
		ResourceID: &programID,
		NewValues:  payload,
	}); err != nil {
		s.logger.Warn("failed to record program audit log", zap.Error(err))
	}
}
