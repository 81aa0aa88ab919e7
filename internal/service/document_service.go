package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wlc-ormoc/registrar-api/internal/models"
	appErrors "github.com/wlc-ormoc/registrar-api/pkg/errors"
	"github.com/wlc-ormoc/registrar-api/pkg/storage"
)

var allowedDocumentExtensions = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

type documentRepository interface {
	Create(ctx context.Context, doc *models.EnrollmentDocument) error
	FindByID(ctx context.Context, id string) (*models.EnrollmentDocument, error)
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.EnrollmentDocument, error)
	UpdateStatus(ctx context.Context, id string, status models.DocumentStatus) error
}

type documentEnrollmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	SetDocumentsSubmitted(ctx context.Context, id string, submitted bool) error
}

type documentStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

// SignedDownload carries a time-limited download token for a document.
type SignedDownload struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DocumentService manages enrollment document uploads, admin review and
// signed downloads.
type DocumentService struct {
	repo        documentRepository
	enrollments documentEnrollmentRepository
	students    documentStudentRepository
	store       *storage.LocalStorage
	signer      *storage.SignedURLSigner
	audit       auditRecorder
	maxSize     int64
	logger      *zap.Logger
}

// NewDocumentService constructs a DocumentService. audit may be nil.
func NewDocumentService(
	repo documentRepository,
	enrollments documentEnrollmentRepository,
	students documentStudentRepository,
	store *storage.LocalStorage,
	signer *storage.SignedURLSigner,
	audit auditRecorder,
	maxSize int64,
	logger *zap.Logger,
) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{
		repo:        repo,
		enrollments: enrollments,
		students:    students,
		store:       store,
		signer:      signer,
		audit:       audit,
		maxSize:     maxSize,
		logger:      logger,
	}
}

// Upload stores a document for an enrollment owned by the calling student.
// Admins may upload on any enrollment by passing an empty userID.
func (s *DocumentService) Upload(ctx context.Context, userID, enrollmentID, documentType, filename string, size int64, r io.Reader) (*models.EnrollmentDocument, error) {
	if documentType == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "document type is required")
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedDocumentExtensions[ext] {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported file type")
	}
	if s.maxSize > 0 && size > s.maxSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file exceeds the maximum allowed size")
	}

	enrollment, err := s.enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	if userID != "" {
		if err := s.authorizeOwner(ctx, userID, enrollment.StudentID); err != nil {
			return nil, err
		}
	}

	relPath := fmt.Sprintf("enrollment/%s/%s%s", enrollmentID, uuid.NewString(), ext)
	if _, err := s.store.SaveStream(relPath, r); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store document")
	}

	doc := &models.EnrollmentDocument{
		EnrollmentID: enrollmentID,
		DocumentType: documentType,
		Status:       models.DocumentStatusPending,
		FilePath:     relPath,
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		if delErr := s.store.Delete(relPath); delErr != nil {
			s.logger.Warn("failed to remove orphaned document file", zap.String("path", relPath), zap.Error(delErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record document")
	}

	if err := s.enrollments.SetDocumentsSubmitted(ctx, enrollmentID, true); err != nil {
		s.logger.Warn("failed to flag documents submitted", zap.String("enrollment_id", enrollmentID), zap.Error(err))
	}
	return doc, nil
}

// List returns an enrollment's documents. Students only see their own.
func (s *DocumentService) List(ctx context.Context, userID, enrollmentID string) ([]models.EnrollmentDocument, error) {
	enrollment, err := s.enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if userID != "" {
		if err := s.authorizeOwner(ctx, userID, enrollment.StudentID); err != nil {
			return nil, err
		}
	}

	docs, err := s.repo.ListByEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list documents")
	}
	return docs, nil
}

// Review records the admin's verification decision on a document.
func (s *DocumentService) Review(ctx context.Context, adminID, documentID string, status models.DocumentStatus) error {
	if status != models.DocumentStatusVerified && status != models.DocumentStatusRejected {
		return appErrors.Clone(appErrors.ErrValidation, "review status must be Verified or Rejected")
	}
	if err := s.repo.UpdateStatus(ctx, documentID, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update document status")
	}

	if s.audit != nil {
		payload := []byte(fmt.Sprintf(`{"status":%q}`, status))
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &adminID,
			Action:     models.AuditActionDocumentReview,
			Resource:   "enrollment_documents",
			ResourceID: &documentID,
			NewValues:  payload,
		}); err != nil {
			s.logger.Warn("failed to record document audit log", zap.Error(err))
		}
	}
	return nil
}

// SignedURL issues a time-limited download token for a document.
func (s *DocumentService) SignedURL(ctx context.Context, userID, documentID string) (*SignedDownload, error) {
	doc, err := s.repo.FindByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}

	if userID != "" {
		enrollment, err := s.enrollments.FindByID(ctx, doc.EnrollmentID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
		}
		if err := s.authorizeOwner(ctx, userID, enrollment.StudentID); err != nil {
			return nil, err
		}
	}

	token, expiresAt, err := s.signer.Generate(doc.ID, doc.FilePath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}
	return &SignedDownload{URL: token, ExpiresAt: expiresAt}, nil
}

// ResolveToken validates a signed token and returns the document plus the
// absolute path of the stored file.
func (s *DocumentService) ResolveToken(ctx context.Context, token string) (*models.EnrollmentDocument, string, error) {
	documentID, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired download token")
	}

	doc, err := s.repo.FindByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	if doc.FilePath != relPath {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "download token does not match the document")
	}
	return doc, s.store.Path(doc.FilePath), nil
}

func (s *DocumentService) authorizeOwner(ctx context.Context, userID, studentID string) error {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.UserID == nil || *student.UserID != userID {
		return appErrors.Clone(appErrors.ErrForbidden, "enrollment does not belong to this account")
	}
	return nil
}
