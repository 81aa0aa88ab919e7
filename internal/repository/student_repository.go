package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/wlc-ormoc/registrar-api/internal/models"
)

// StudentRepository manages persistence for admitted students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters with program context.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base := "FROM students s LEFT JOIN programs p ON p.id = s.program_id"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.ProgramID != "" {
		conditions = append(conditions, fmt.Sprintf("s.program_id = $%d", len(args)+1))
		args = append(args, filter.ProgramID)
	}
	if filter.YearLevel > 0 {
		conditions = append(conditions, fmt.Sprintf("s.year_level = $%d", len(args)+1))
		args = append(args, filter.YearLevel)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("s.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.first_name) LIKE $%d OR LOWER(s.last_name) LIKE $%d OR LOWER(s.email) LIKE $%d OR LOWER(s.student_number) LIKE $%d)",
			len(args)+1, len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"last_name":      "s.last_name",
		"student_number": "s.student_number",
		"year_level":     "s.year_level",
		"created_at":     "s.created_at",
	}
	if sortBy == "" {
		sortBy = "created_at"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "s.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
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

	query := fmt.Sprintf(`SELECT s.id, s.registration_id, s.user_id, s.student_number, s.first_name, s.last_name, s.middle_name,
        s.email, s.contact_number, s.address, s.program_id, s.year_level, s.is_returning_student, s.status,
        s.created_at, s.updated_at, p.code AS program_code, p.name AS program_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, column, order, size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student with program context.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	const query = `SELECT s.id, s.registration_id, s.user_id, s.student_number, s.first_name, s.last_name, s.middle_name,
        s.email, s.contact_number, s.address, s.program_id, s.year_level, s.is_returning_student, s.status,
        s.created_at, s.updated_at, p.code AS program_code, p.name AS program_name
        FROM students s LEFT JOIN programs p ON p.id = s.program_id
        WHERE s.id = $1`
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindByUserID fetches the student linked to a portal login.
func (r *StudentRepository) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	const query = `SELECT id, registration_id, user_id, student_number, first_name, last_name, middle_name,
        email, contact_number, address, program_id, year_level, is_returning_student, status, created_at, updated_at
        FROM students WHERE user_id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, userID); err != nil {
		return nil, err
	}
	return &student, nil
}

// ExistsByEmail reports whether a student exists for the email.
func (r *StudentRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	const query = `SELECT 1 FROM students WHERE LOWER(email) = LOWER($1) LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check student email: %w", err)
	}
	return true, nil
}

// UpdateStatus flips a student's active state.
func (r *StudentRepository) UpdateStatus(ctx context.Context, id string, status models.StudentStatus) error {
	const query = `UPDATE students SET status = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update student status: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Count returns the number of students.
func (r *StudentRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM students`); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return total, nil
}

// CountByProgram returns the number of students per program code.
func (r *StudentRepository) CountByProgram(ctx context.Context) (map[string]int, error) {
	const query = `SELECT p.code AS code, COUNT(s.id) AS count
        FROM students s JOIN programs p ON p.id = s.program_id
        GROUP BY p.code`
	rows := []struct {
		Code  string `db:"code"`
		Count int    `db:"count"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count students by program: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Code] = row.Count
	}
	return counts, nil
}

// CountByYearLevel returns the number of students per year level.
func (r *StudentRepository) CountByYearLevel(ctx context.Context) (map[int]int, error) {
	const query = `SELECT year_level, COUNT(*) AS count FROM students GROUP BY year_level`
	rows := []struct {
		YearLevel int `db:"year_level"`
		Count     int `db:"count"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count students by year level: %w", err)
	}
	counts := make(map[int]int, len(rows))
	for _, row := range rows {
		counts[row.YearLevel] = row.Count
	}
	return counts, nil
}
