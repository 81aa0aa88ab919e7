package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wlc-ormoc/registrar-api/internal/models"
	appErrors "github.com/wlc-ormoc/registrar-api/pkg/errors"
	"github.com/wlc-ormoc/registrar-api/pkg/storage"
)

type mockDocumentRepo struct {
	items         map[string]*models.EnrollmentDocument
	created       []*models.EnrollmentDocument
	createErr     error
	statusUpdates map[string]models.DocumentStatus
}

func (m *mockDocumentRepo) Create(ctx context.Context, doc *models.EnrollmentDocument) error {
	if m.createErr != nil {
		return m.createErr
	}
	if doc.ID == "" {
		doc.ID = "doc-new"
	}
	cp := *doc
	m.created = append(m.created, &cp)
	return nil
}

func (m *mockDocumentRepo) FindByID(ctx context.Context, id string) (*models.EnrollmentDocument, error) {
	if doc, ok := m.items[id]; ok {
		cp := *doc
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockDocumentRepo) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.EnrollmentDocument, error) {
	var docs []models.EnrollmentDocument
	for _, doc := range m.items {
		if doc.EnrollmentID == enrollmentID {
			docs = append(docs, *doc)
		}
	}
	return docs, nil
}

func (m *mockDocumentRepo) UpdateStatus(ctx context.Context, id string, status models.DocumentStatus) error {
	if _, ok := m.items[id]; !ok {
		return sql.ErrNoRows
	}
	if m.statusUpdates == nil {
		m.statusUpdates = make(map[string]models.DocumentStatus)
	}
	m.statusUpdates[id] = status
	return nil
}

type mockDocumentEnrollments struct {
	items     map[string]*models.Enrollment
	submitted map[string]bool
}

func (m *mockDocumentEnrollments) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.items[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockDocumentEnrollments) SetDocumentsSubmitted(ctx context.Context, id string, submitted bool) error {
	if m.submitted == nil {
		m.submitted = make(map[string]bool)
	}
	m.submitted[id] = submitted
	return nil
}

type mockDocumentStudents struct {
	items map[string]*models.StudentDetail
}

func (m *mockDocumentStudents) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if s, ok := m.items[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func newDocumentServiceForTest(t *testing.T, repo *mockDocumentRepo, enrollments *mockDocumentEnrollments, students *mockDocumentStudents) *DocumentService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Minute)
	return NewDocumentService(repo, enrollments, students, store, signer, nil, 1024, zap.NewNop())
}

func ownedEnrollment() (*mockDocumentEnrollments, *mockDocumentStudents) {
	userID := "user-1"
	enrollments := &mockDocumentEnrollments{
		items: map[string]*models.Enrollment{
			"enr-1": {ID: "enr-1", StudentID: "stu-1"},
		},
	}
	students := &mockDocumentStudents{
		items: map[string]*models.StudentDetail{
			"stu-1": {Student: models.Student{ID: "stu-1", UserID: &userID}},
		},
	}
	return enrollments, students
}

func TestDocumentServiceUpload(t *testing.T) {
	repo := &mockDocumentRepo{}
	enrollments, students := ownedEnrollment()
	svc := newDocumentServiceForTest(t, repo, enrollments, students)

	doc, err := svc.Upload(context.Background(), "user-1", "enr-1", "Form 138", "form138.pdf", 100, strings.NewReader("pdf bytes"))
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusPending, doc.Status)
	assert.True(t, strings.HasPrefix(doc.FilePath, "enrollment/enr-1/"))
	assert.True(t, strings.HasSuffix(doc.FilePath, ".pdf"))
	require.Len(t, repo.created, 1)
	assert.True(t, enrollments.submitted["enr-1"])
}

func TestDocumentServiceUploadRejectsExtension(t *testing.T) {
	enrollments, students := ownedEnrollment()
	svc := newDocumentServiceForTest(t, &mockDocumentRepo{}, enrollments, students)

	_, err := svc.Upload(context.Background(), "user-1", "enr-1", "Form 138", "malware.exe", 100, strings.NewReader("x"))
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestDocumentServiceUploadRejectsOversize(t *testing.T) {
	enrollments, students := ownedEnrollment()
	svc := newDocumentServiceForTest(t, &mockDocumentRepo{}, enrollments, students)

	_, err := svc.Upload(context.Background(), "user-1", "enr-1", "Form 138", "big.pdf", 4096, strings.NewReader("x"))
	require.Error(t, err)
}

func TestDocumentServiceUploadForbiddenForOtherStudent(t *testing.T) {
	enrollments, students := ownedEnrollment()
	svc := newDocumentServiceForTest(t, &mockDocumentRepo{}, enrollments, students)

	_, err := svc.Upload(context.Background(), "user-intruder", "enr-1", "Form 138", "form.pdf", 100, strings.NewReader("x"))
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestDocumentServiceUploadAdminBypassesOwnership(t *testing.T) {
	repo := &mockDocumentRepo{}
	enrollments, students := ownedEnrollment()
	svc := newDocumentServiceForTest(t, repo, enrollments, students)

	_, err := svc.Upload(context.Background(), "", "enr-1", "Form 138", "form.pdf", 100, strings.NewReader("x"))
	require.NoError(t, err)
	require.Len(t, repo.created, 1)
}

func TestDocumentServiceReview(t *testing.T) {
	repo := &mockDocumentRepo{
		items: map[string]*models.EnrollmentDocument{
			"doc-1": {ID: "doc-1", EnrollmentID: "enr-1", Status: models.DocumentStatusPending},
		},
	}
	enrollments, students := ownedEnrollment()
	svc := newDocumentServiceForTest(t, repo, enrollments, students)

	err := svc.Review(context.Background(), "admin-1", "doc-1", models.DocumentStatusVerified)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusVerified, repo.statusUpdates["doc-1"])

	err = svc.Review(context.Background(), "admin-1", "doc-1", models.DocumentStatusPending)
	require.Error(t, err)
}

func TestDocumentServiceSignedURLRoundTrip(t *testing.T) {
	repo := &mockDocumentRepo{
		items: map[string]*models.EnrollmentDocument{
			"doc-1": {ID: "doc-1", EnrollmentID: "enr-1", FilePath: "enrollment/enr-1/a.pdf"},
		},
	}
	enrollments, students := ownedEnrollment()
	svc := newDocumentServiceForTest(t, repo, enrollments, students)

	signed, err := svc.SignedURL(context.Background(), "user-1", "doc-1")
	require.NoError(t, err)
	assert.True(t, signed.ExpiresAt.After(time.Now()))

	doc, path, err := svc.ResolveToken(context.Background(), signed.URL)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", doc.ID)
	assert.True(t, strings.HasSuffix(path, "a.pdf"))
}

func TestDocumentServiceResolveTokenRejectsGarbage(t *testing.T) {
	enrollments, students := ownedEnrollment()
	svc := newDocumentServiceForTest(t, &mockDocumentRepo{}, enrollments, students)

	_, _, err := svc.ResolveToken(context.Background(), "not-a-token")
	require.Error(t, err)
}
