package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wlc-ormoc/registrar-api/internal/models"
	"github.com/wlc-ormoc/registrar-api/internal/repository"
	appErrors "github.com/wlc-ormoc/registrar-api/pkg/errors"
)

type mockProgramCatalogueRepo struct {
	items     map[string]*models.Program
	codeIndex map[string]string
	created   []*models.Program
	updated   []*models.Program
	deleteErr error
	deleted   []string
}

func (m *mockProgramCatalogueRepo) List(ctx context.Context, filter models.ProgramFilter) ([]models.Program, int, error) {
	return nil, 0, nil
}

func (m *mockProgramCatalogueRepo) FindByID(ctx context.Context, id string) (*models.Program, error) {
	if p, ok := m.items[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockProgramCatalogueRepo) ExistsByCode(ctx context.Context, code, excludeID string) (bool, error) {
	if owner, ok := m.codeIndex[code]; ok {
		if excludeID == "" || owner != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockProgramCatalogueRepo) Create(ctx context.Context, program *models.Program) error {
	if program.ID == "" {
		program.ID = "prog-new"
	}
	cp := *program
	m.created = append(m.created, &cp)
	return nil
}

func (m *mockProgramCatalogueRepo) Update(ctx context.Context, program *models.Program) error {
	cp := *program
	m.updated = append(m.updated, &cp)
	return nil
}

func (m *mockProgramCatalogueRepo) Delete(ctx context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, id)
	return nil
}

func TestProgramServiceCreate(t *testing.T) {
	repo := &mockProgramCatalogueRepo{}
	audit := &mockAuditRecorder{}
	svc := NewProgramService(repo, audit, validator.New(), zap.NewNop())

	program, err := svc.Create(context.Background(), "admin-1", models.CreateProgramRequest{
		Code:            "BSIT",
		Name:            "BS Information Technology",
		YearsToComplete: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ProgramStatusActive, program.Status)
	require.Len(t, repo.created, 1)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionProgramChange, audit.logs[0].Action)
}

func TestProgramServiceCreateDuplicateCode(t *testing.T) {
	repo := &mockProgramCatalogueRepo{codeIndex: map[string]string{"BSIT": "prog-1"}}
	svc := NewProgramService(repo, nil, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), "admin-1", models.CreateProgramRequest{
		Code:            "BSIT",
		Name:            "BS Information Technology",
		YearsToComplete: 4,
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Empty(t, repo.created)
}

func TestProgramServiceUpdateKeepsOwnCode(t *testing.T) {
	repo := &mockProgramCatalogueRepo{
		items: map[string]*models.Program{
			"prog-1": {ID: "prog-1", Code: "BSIT", Name: "BS Information Technology", YearsToComplete: 4, Status: models.ProgramStatusActive},
		},
		codeIndex: map[string]string{"BSIT": "prog-1"},
	}
	svc := NewProgramService(repo, nil, validator.New(), zap.NewNop())

	program, err := svc.Update(context.Background(), "admin-1", "prog-1", models.UpdateProgramRequest{
		Code:            "BSIT",
		Name:            "BS in Information Technology",
		YearsToComplete: 4,
		Status:          models.ProgramStatusInactive,
	})
	require.NoError(t, err)
	assert.Equal(t, "BS in Information Technology", program.Name)
	assert.Equal(t, models.ProgramStatusInactive, program.Status)
	require.Len(t, repo.updated, 1)
}

func TestProgramServiceDeleteReferenced(t *testing.T) {
	repo := &mockProgramCatalogueRepo{deleteErr: repository.ErrProgramReferenced}
	svc := NewProgramService(repo, nil, validator.New(), zap.NewNop())

	err := svc.Delete(context.Background(), "admin-1", "prog-1")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestProgramServiceDelete(t *testing.T) {
	repo := &mockProgramCatalogueRepo{}
	svc := NewProgramService(repo, nil, validator.New(), zap.NewNop())

	err := svc.Delete(context.Background(), "admin-1", "prog-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"prog-1"}, repo.deleted)
}
