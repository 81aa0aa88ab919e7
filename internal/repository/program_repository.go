package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/wlc-ormoc/registrar-api/internal/models"
)

// ErrProgramReferenced is returned when a program deletion would orphan
// students or registrations.
var ErrProgramReferenced = fmt.Errorf("program is referenced by students or registrations")

// ProgramRepository manages persistence for academic programs.
type ProgramRepository struct {
	db *sqlx.DB
}

// NewProgramRepository constructs a ProgramRepository.
func NewProgramRepository(db *sqlx.DB) *ProgramRepository {
	return &ProgramRepository{db: db}
}

// List returns programs matching the provided filters.
func (r *ProgramRepository) List(ctx context.Context, filter models.ProgramFilter) ([]models.Program, int, error) {
	base := "FROM programs"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(code) LIKE $%d OR LOWER(name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"code":       "code",
		"name":       "name",
		"created_at": "created_at",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "code"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, code, name, total_units, years_to_complete, status, created_at, updated_at
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, column, order, size, offset)

	var programs []models.Program
	if err := r.db.SelectContext(ctx, &programs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list programs: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count programs: %w", err)
	}
	return programs, total, nil
}

// FindByID fetches a program by ID.
func (r *ProgramRepository) FindByID(ctx context.Context, id string) (*models.Program, error) {
	const query = `SELECT id, code, name, total_units, years_to_complete, status, created_at, updated_at
        FROM programs WHERE id = $1`
	var program models.Program
	if err := r.db.GetContext(ctx, &program, query, id); err != nil {
		return nil, err
	}
	return &program, nil
}

// ExistsByCode checks whether a program with the code exists, optionally excluding an ID.
func (r *ProgramRepository) ExistsByCode(ctx context.Context, code, excludeID string) (bool, error) {
	query := "SELECT 1 FROM programs WHERE LOWER(code) = LOWER($1)"
	args := []interface{}{code}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check program code: %w", err)
	}
	return true, nil
}

// Create persists a new program.
func (r *ProgramRepository) Create(ctx context.Context, program *models.Program) error {
	if program.ID == "" {
		program.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	program.CreatedAt = now
	program.UpdatedAt = now
	const query = `INSERT INTO programs (id, code, name, total_units, years_to_complete, status, created_at, updated_at)
        VALUES (:id, :code, :name, :total_units, :years_to_complete, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, program); err != nil {
		return fmt.Errorf("create program: %w", err)
	}
	return nil
}

// Update overwrites a program's mutable fields.
func (r *ProgramRepository) Update(ctx context.Context, program *models.Program) error {
	program.UpdatedAt = time.Now().UTC()
	const query = `UPDATE programs SET code = :code, name = :name, total_units = :total_units,
        years_to_complete = :years_to_complete, status = :status, updated_at = :updated_at
        WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, program)
	if err != nil {
		return fmt.Errorf("update program: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Count returns the number of programs.
func (r *ProgramRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM programs`); err != nil {
		return 0, fmt.Errorf("count programs: %w", err)
	}
	return total, nil
}

// Delete removes a program unless students or registrations still reference it.
func (r *ProgramRepository) Delete(ctx context.Context, id string) error {
	return inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var refs int
		const refQuery = `SELECT (SELECT COUNT(*) FROM students WHERE program_id = $1)
            + (SELECT COUNT(*) FROM registrations WHERE program_id = $1)`
		if err := tx.GetContext(ctx, &refs, refQuery, id); err != nil {
			return fmt.Errorf("check program references: %w", err)
		}
		if refs > 0 {
			return ErrProgramReferenced
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM programs WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete program: %w", err)
		}
		if affected, err := res.RowsAffected(); err == nil && affected == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}
