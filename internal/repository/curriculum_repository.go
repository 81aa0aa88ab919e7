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

// CurriculumRepository manages years and the courses attached to them.
// Fee calculation reads through here.
type CurriculumRepository struct {
	db *sqlx.DB
}

// NewCurriculumRepository constructs a CurriculumRepository.
func NewCurriculumRepository(db *sqlx.DB) *CurriculumRepository {
	return &CurriculumRepository{db: db}
}

// FindYear resolves the years row for a program and year level.
func (r *CurriculumRepository) FindYear(ctx context.Context, programID string, yearLevel int) (*models.Year, error) {
	const query = `SELECT id, program_id, year_level, created_at FROM years WHERE program_id = $1 AND year_level = $2`
	var year models.Year
	if err := r.db.GetContext(ctx, &year, query, programID, yearLevel); err != nil {
		return nil, err
	}
	return &year, nil
}

// EnsureYear returns the years row for (program, year level), creating it
// when absent. ON CONFLICT keeps concurrent callers from racing.
func (r *CurriculumRepository) EnsureYear(ctx context.Context, programID string, yearLevel int) (*models.Year, error) {
	year, err := r.FindYear(ctx, programID, yearLevel)
	if err == nil {
		return year, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("find year: %w", err)
	}
	const insert = `INSERT INTO years (id, program_id, year_level, created_at) VALUES ($1, $2, $3, $4)
        ON CONFLICT (program_id, year_level) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, insert, uuid.NewString(), programID, yearLevel, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("create year: %w", err)
	}
	return r.FindYear(ctx, programID, yearLevel)
}

// ListActiveCourses returns the active courses of a year in a semester.
func (r *CurriculumRepository) ListActiveCourses(ctx context.Context, yearID string, semester int) ([]models.Course, error) {
	const query = `SELECT id, year_id, code, name, units, semester, status, created_at, updated_at
        FROM courses WHERE year_id = $1 AND semester = $2 AND status = $3
        ORDER BY code ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, yearID, semester, models.CourseStatusActive); err != nil {
		return nil, fmt.Errorf("list active courses: %w", err)
	}
	return courses, nil
}

// ListCourses returns courses matching the provided filters with their
// program and year-level context resolved through years.
func (r *CurriculumRepository) ListCourses(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	base := "FROM courses c JOIN years y ON y.id = c.year_id"
	args := []interface{}{}
	conditions := []string{"c.status <> $1"}
	args = append(args, models.CourseStatusRemoved)

	if filter.ProgramID != "" {
		conditions = append(conditions, fmt.Sprintf("y.program_id = $%d", len(args)+1))
		args = append(args, filter.ProgramID)
	}
	if filter.YearLevel > 0 {
		conditions = append(conditions, fmt.Sprintf("y.year_level = $%d", len(args)+1))
		args = append(args, filter.YearLevel)
	}
	if filter.Semester > 0 {
		conditions = append(conditions, fmt.Sprintf("c.semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("c.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT c.id, c.year_id, c.code, c.name, c.units, c.semester, c.status, c.created_at, c.updated_at
        %s ORDER BY c.code ASC LIMIT %d OFFSET %d`, base, size, offset)

	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// CountCourses returns the number of courses that have not been removed.
func (r *CurriculumRepository) CountCourses(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM courses WHERE status <> $1`, models.CourseStatusRemoved); err != nil {
		return 0, fmt.Errorf("count courses: %w", err)
	}
	return total, nil
}

// FindCourseByID fetches a course by ID.
func (r *CurriculumRepository) FindCourseByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, year_id, code, name, units, semester, status, created_at, updated_at
        FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// CreateCourse persists a new course under its year.
func (r *CurriculumRepository) CreateCourse(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, year_id, code, name, units, semester, status, created_at, updated_at)
        VALUES (:id, :year_id, :code, :name, :units, :semester, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// UpdateCourse overwrites a course's mutable fields.
func (r *CurriculumRepository) UpdateCourse(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET code = :code, name = :name, units = :units, semester = :semester,
        status = :status, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, course)
	if err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// RemoveCourse soft-deletes a course so historical enrollments keep their link.
func (r *CurriculumRepository) RemoveCourse(ctx context.Context, id string) error {
	const query = `UPDATE courses SET status = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, models.CourseStatusRemoved, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("remove course: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
