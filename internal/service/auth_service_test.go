package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/wlc-ormoc/registrar-api/internal/models"
	appErrors "github.com/wlc-ormoc/registrar-api/pkg/errors"
)

type mockAuthUserRepo struct {
	byEmail       map[string]*models.User
	byID          map[string]*models.User
	refreshTokens map[string]*models.RefreshToken
	revokedIDs    []string
	passwordSets  map[string]string
	auditLogs     []*models.AuditLog
}

func (m *mockAuthUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := m.byEmail[email]; ok {
		cp := *user
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.byID[id]; ok {
		cp := *user
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUserRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func (m *mockAuthUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if m.passwordSets == nil {
		m.passwordSets = make(map[string]string)
	}
	m.passwordSets[id] = passwordHash
	return nil
}

func (m *mockAuthUserRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	return nil
}

func (m *mockAuthUserRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.refreshTokens == nil {
		m.refreshTokens = make(map[string]*models.RefreshToken)
	}
	cp := *token
	m.refreshTokens[token.Token] = &cp
	return nil
}

func (m *mockAuthUserRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if stored, ok := m.refreshTokens[token]; ok {
		cp := *stored
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUserRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	m.revokedIDs = append(m.revokedIDs, id)
	return nil
}

func (m *mockAuthUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func authTestConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "registrar-api",
	}
}

func activeUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           "user-1",
		Email:        "admin@example.com",
		PasswordHash: string(hash),
		FullName:     "Admin One",
		Role:         models.RoleAdmin,
		Active:       true,
	}
}

func TestAuthServiceLogin(t *testing.T) {
	user := activeUser(t, "secret123")
	repo := &mockAuthUserRepo{byEmail: map[string]*models.User{user.Email: user}}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), authTestConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, user.ID, resp.User.ID)
	assert.Len(t, repo.refreshTokens, 1)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	user := activeUser(t, "secret123")
	repo := &mockAuthUserRepo{byEmail: map[string]*models.User{user.Email: user}}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), authTestConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "wrong"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	user := activeUser(t, "secret123")
	user.Active = false
	repo := &mockAuthUserRepo{byEmail: map[string]*models.User{user.Email: user}}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), authTestConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "secret123"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErr.Code)
}

func TestAuthServiceRefreshTokenRotates(t *testing.T) {
	user := activeUser(t, "secret123")
	repo := &mockAuthUserRepo{
		byID: map[string]*models.User{user.ID: user},
		refreshTokens: map[string]*models.RefreshToken{
			"old-token": {
				ID:        "rt-1",
				UserID:    user.ID,
				Token:     "old-token",
				ExpiresAt: time.Now().UTC().Add(time.Hour),
			},
		},
	}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), authTestConfig())

	resp, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old-token"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEqual(t, "old-token", resp.RefreshToken)
	assert.Contains(t, repo.revokedIDs, "rt-1")
}

func TestAuthServiceRefreshTokenExpired(t *testing.T) {
	user := activeUser(t, "secret123")
	repo := &mockAuthUserRepo{
		byID: map[string]*models.User{user.ID: user},
		refreshTokens: map[string]*models.RefreshToken{
			"stale": {
				ID:        "rt-1",
				UserID:    user.ID,
				Token:     "stale",
				ExpiresAt: time.Now().UTC().Add(-time.Minute),
			},
		},
	}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), authTestConfig())

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "stale"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestAuthServiceChangePassword(t *testing.T) {
	user := activeUser(t, "old-pass-1")
	repo := &mockAuthUserRepo{byID: map[string]*models.User{user.ID: user}}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), authTestConfig())

	err := svc.ChangePassword(context.Background(), user.ID, models.ChangePasswordRequest{
		OldPassword: "old-pass-1",
		NewPassword: "new-pass-22",
	})
	require.NoError(t, err)

	hash, ok := repo.passwordSets[user.ID]
	require.True(t, ok)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("new-pass-22")))
}

func TestAuthServiceChangePasswordWrongOld(t *testing.T) {
	user := activeUser(t, "old-pass-1")
	repo := &mockAuthUserRepo{byID: map[string]*models.User{user.ID: user}}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), authTestConfig())

	err := svc.ChangePassword(context.Background(), user.ID, models.ChangePasswordRequest{
		OldPassword: "not-the-old-one",
		NewPassword: "new-pass-22",
	})
	require.Error(t, err)
	assert.Empty(t, repo.passwordSets)
}

func TestAuthServiceValidateTokenRejectsTampered(t *testing.T) {
	user := activeUser(t, "secret123")
	repo := &mockAuthUserRepo{byEmail: map[string]*models.User{user.Email: user}}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), authTestConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "secret123"})
	require.NoError(t, err)

	other := NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret: "different-secret",
		AccessTokenExpiry: time.Hour,
	})
	_, err = other.ValidateToken(resp.AccessToken)
	require.Error(t, err)
}
