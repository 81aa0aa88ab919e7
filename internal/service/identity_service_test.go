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
	"golang.org/x/crypto/bcrypt"

	"github.com/wlc-ormoc/registrar-api/internal/models"
	appErrors "github.com/wlc-ormoc/registrar-api/pkg/errors"
)

type mockIdentityUserRepo struct {
	byEmail     map[string]*models.User
	findErr     error
	created     []*models.User
	createErr   error
	resetHashes map[string]string
	resetErr    error
}

func (m *mockIdentityUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if user, ok := m.byEmail[email]; ok {
		cp := *user
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockIdentityUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	if user.ID == "" {
		user.ID = "user-new"
	}
	m.created = append(m.created, user)
	return nil
}

func (m *mockIdentityUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if m.resetErr != nil {
		return m.resetErr
	}
	if m.resetHashes == nil {
		m.resetHashes = make(map[string]string)
	}
	m.resetHashes[id] = passwordHash
	return nil
}

func TestIdentityServiceEnsureIdentityCreates(t *testing.T) {
	repo := &mockIdentityUserRepo{}
	svc := NewIdentityService(repo, zap.NewNop())

	userID, err := svc.EnsureIdentity(context.Background(), "juan@example.com", "Juan Dela Cruz", "tmp-pass-123")
	require.NoError(t, err)
	assert.Equal(t, "user-new", userID)
	require.Len(t, repo.created, 1)

	created := repo.created[0]
	assert.Equal(t, models.RoleStudent, created.Role)
	assert.True(t, created.Active)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("tmp-pass-123")))
}

func TestIdentityServiceEnsureIdentityResetsExisting(t *testing.T) {
	repo := &mockIdentityUserRepo{
		byEmail: map[string]*models.User{
			"juan@example.com": {ID: "user-1", Email: "juan@example.com", Role: models.RoleStudent},
		},
	}
	svc := NewIdentityService(repo, zap.NewNop())

	userID, err := svc.EnsureIdentity(context.Background(), "juan@example.com", "Juan Dela Cruz", "tmp-pass-456")
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
	assert.Empty(t, repo.created)

	hash, ok := repo.resetHashes["user-1"]
	require.True(t, ok)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("tmp-pass-456")))
}

func TestIdentityServiceEnsureIdentityLookupFailure(t *testing.T) {
	repo := &mockIdentityUserRepo{findErr: errors.New("connection refused")}
	svc := NewIdentityService(repo, zap.NewNop())

	_, err := svc.EnsureIdentity(context.Background(), "juan@example.com", "Juan Dela Cruz", "tmp")
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrIdentityProvision.Code, appErr.Code)
}

func TestGenerateTempPassword(t *testing.T) {
	first, err := GenerateTempPassword()
	require.NoError(t, err)
	assert.Len(t, first, 16)

	second, err := GenerateTempPassword()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}
