package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/wlc-ormoc/registrar-api/internal/models"
)

// DocumentRepository manages persistence for uploaded enrollment documents.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs a DocumentRepository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create persists a new document record.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.EnrollmentDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	const query = `INSERT INTO enrollment_documents (id, enrollment_id, document_type, status, file_path, created_at, updated_at)
        VALUES (:id, :enrollment_id, :document_type, :status, :file_path, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// FindByID fetches a document by ID.
func (r *DocumentRepository) FindByID(ctx context.Context, id string) (*models.EnrollmentDocument, error) {
	const query = `SELECT id, enrollment_id, document_type, status, file_path, created_at, updated_at
        FROM enrollment_documents WHERE id = $1`
	var doc models.EnrollmentDocument
	if err := r.db.GetContext(ctx, &doc, query, id); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListByEnrollment returns an enrollment's documents, newest first.
func (r *DocumentRepository) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.EnrollmentDocument, error) {
	const query = `SELECT id, enrollment_id, document_type, status, file_path, created_at, updated_at
        FROM enrollment_documents WHERE enrollment_id = $1 ORDER BY created_at DESC`
	var docs []models.EnrollmentDocument
	if err := r.db.SelectContext(ctx, &docs, query, enrollmentID); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// UpdateStatus records the admin's verification decision.
func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status models.DocumentStatus) error {
	const query = `UPDATE enrollment_documents SET status = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
