package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/wlc-ormoc/registrar-api/internal/models"
	appErrors "github.com/wlc-ormoc/registrar-api/pkg/errors"
)

type identityUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
}

// IdentityService provisions portal logins for approved students.
type IdentityService struct {
	repo   identityUserRepository
	logger *zap.Logger
}

// NewIdentityService constructs an IdentityService.
func NewIdentityService(repo identityUserRepository, logger *zap.Logger) *IdentityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityService{repo: repo, logger: logger}
}

// EnsureIdentity creates a student login for the email with the temporary
// password, or resets the password when the email is already taken. Either
// way the identity can sign in with tempPassword afterwards.
func (s *IdentityService) EnsureIdentity(ctx context.Context, email, fullName, tempPassword string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrIdentityProvision.Code, appErrors.ErrIdentityProvision.Status, "failed to hash temporary password")
	}

	existing, err := s.repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if err := s.repo.UpdatePassword(ctx, existing.ID, string(hash), time.Now().UTC()); err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrIdentityProvision.Code, appErrors.ErrIdentityProvision.Status, "failed to reset existing identity password")
		}
		s.logger.Info("reused existing identity", zap.String("user_id", existing.ID))
		return existing.ID, nil
	case errors.Is(err, sql.ErrNoRows):
		user := &models.User{
			Email:    email,
			FullName: fullName,
			Role:     models.RoleStudent,
			Active:   true,
		}
		user.PasswordHash = string(hash)
		if err := s.repo.Create(ctx, user); err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrIdentityProvision.Code, appErrors.ErrIdentityProvision.Status, "failed to create identity")
		}
		return user.ID, nil
	default:
		return "", appErrors.Wrap(err, appErrors.ErrIdentityProvision.Code, appErrors.ErrIdentityProvision.Status, "failed to look up identity")
	}
}

// GenerateTempPassword returns a random 16-hex-char temporary password.
func GenerateTempPassword() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
