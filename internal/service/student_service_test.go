package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wlc-ormoc/registrar-api/internal/models"
	appErrors "github.com/wlc-ormoc/registrar-api/pkg/errors"
)

type mockStudentRepo struct {
	items         map[string]*models.StudentDetail
	byUserID      map[string]*models.Student
	statusUpdates map[string]models.StudentStatus
	updateErr     error
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	out := make([]models.StudentDetail, 0, len(m.items))
	for _, s := range m.items {
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if s, ok := m.items[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	if s, ok := m.byUserID[userID]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) UpdateStatus(ctx context.Context, id string, status models.StudentStatus) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if m.statusUpdates == nil {
		m.statusUpdates = make(map[string]models.StudentStatus)
	}
	m.statusUpdates[id] = status
	return nil
}

func studentDetailFixture() *models.StudentDetail {
	code := "BSIT"
	return &models.StudentDetail{
		Student: models.Student{
			ID:            "stu-1",
			StudentNumber: "STU-1700000000000",
			FirstName:     "Juan",
			LastName:      "Dela Cruz",
			Email:         "juan@example.com",
			ProgramID:     "prog-1",
			YearLevel:     1,
			Status:        models.StudentStatusActive,
		},
		ProgramCode: &code,
	}
}

func TestStudentServiceGet(t *testing.T) {
	repo := &mockStudentRepo{items: map[string]*models.StudentDetail{"stu-1": studentDetailFixture()}}
	svc := NewStudentService(repo, zap.NewNop())

	student, err := svc.Get(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, "STU-1700000000000", student.StudentNumber)
	require.NotNil(t, student.ProgramCode)
	assert.Equal(t, "BSIT", *student.ProgramCode)
}

func TestStudentServiceGetNotFound(t *testing.T) {
	svc := NewStudentService(&mockStudentRepo{}, zap.NewNop())

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestStudentServiceGetByUserID(t *testing.T) {
	detail := studentDetailFixture()
	repo := &mockStudentRepo{byUserID: map[string]*models.Student{"user-1": &detail.Student}}
	svc := NewStudentService(repo, zap.NewNop())

	student, err := svc.GetByUserID(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "stu-1", student.ID)

	_, err = svc.GetByUserID(context.Background(), "user-2")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestStudentServiceSetStatus(t *testing.T) {
	repo := &mockStudentRepo{}
	svc := NewStudentService(repo, zap.NewNop())

	require.NoError(t, svc.SetStatus(context.Background(), "stu-1", models.StudentStatusInactive))
	assert.Equal(t, models.StudentStatusInactive, repo.statusUpdates["stu-1"])
}

func TestStudentServiceSetStatusRejectsUnknown(t *testing.T) {
	repo := &mockStudentRepo{}
	svc := NewStudentService(repo, zap.NewNop())

	err := svc.SetStatus(context.Background(), "stu-1", models.StudentStatus("Expelled"))
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Empty(t, repo.statusUpdates)
}

func TestStudentServiceList(t *testing.T) {
	repo := &mockStudentRepo{items: map[string]*models.StudentDetail{"stu-1": studentDetailFixture()}}
	svc := NewStudentService(repo, zap.NewNop())

	students, pagination, err := svc.List(context.Background(), models.StudentFilter{})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 1, pagination.TotalCount)
}
