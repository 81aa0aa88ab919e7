package models

import "time"

// ProgramStatus tracks curriculum availability.
type ProgramStatus string

const (
	ProgramStatusActive   ProgramStatus = "Active"
	ProgramStatusInactive ProgramStatus = "Inactive"
)

// Program represents a curriculum offered by the school.
type Program struct {
	ID              string        `db:"id" json:"id"`
	Code            string        `db:"code" json:"code"`
	Name            string        `db:"name" json:"name"`
	TotalUnits      int           `db:"total_units" json:"total_units"`
	YearsToComplete int           `db:"years_to_complete" json:"years_to_complete"`
	Status          ProgramStatus `db:"status" json:"status"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// Year pairs a program with a year level and scopes course lookups.
// At most one row exists per (program_id, year_level).
type Year struct {
	ID        string    `db:"id" json:"id"`
	ProgramID string    `db:"program_id" json:"program_id"`
	YearLevel int       `db:"year_level" json:"year_level"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CourseStatus describes whether a course counts toward enrollment fees.
// Only Active courses are billed.
type CourseStatus string

const (
	CourseStatusActive   CourseStatus = "Active"
	CourseStatusInactive CourseStatus = "Inactive"
	CourseStatusRemoved  CourseStatus = "Removed"
)

// Course belongs to a Year and is offered in a specific semester.
type Course struct {
	ID        string       `db:"id" json:"id"`
	YearID    string       `db:"year_id" json:"year_id"`
	Code      string       `db:"code" json:"code"`
	Name      string       `db:"name" json:"name"`
	Units     int          `db:"units" json:"units"`
	Semester  int          `db:"semester" json:"semester"`
	Status    CourseStatus `db:"status" json:"status"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}

// CreateProgramRequest is the admin payload for adding a program.
type CreateProgramRequest struct {
	Code            string `json:"code" validate:"required,max=20"`
	Name            string `json:"name" validate:"required,max=150"`
	TotalUnits      int    `json:"total_units" validate:"min=0"`
	YearsToComplete int    `json:"years_to_complete" validate:"required,min=1,max=6"`
}

// UpdateProgramRequest is the admin payload for editing a program.
type UpdateProgramRequest struct {
	Code            string        `json:"code" validate:"required,max=20"`
	Name            string        `json:"name" validate:"required,max=150"`
	TotalUnits      int           `json:"total_units" validate:"min=0"`
	YearsToComplete int           `json:"years_to_complete" validate:"required,min=1,max=6"`
	Status          ProgramStatus `json:"status" validate:"required,oneof=Active Inactive"`
}

// CreateCourseRequest attaches a course to a program's year level.
type CreateCourseRequest struct {
	ProgramID string `json:"program_id" validate:"required,uuid"`
	YearLevel int    `json:"year_level" validate:"required,min=1,max=6"`
	Code      string `json:"code" validate:"required,max=20"`
	Name      string `json:"name" validate:"required,max=150"`
	Units     int    `json:"units" validate:"required,min=1,max=12"`
	Semester  int    `json:"semester" validate:"required,oneof=1 2"`
}

// UpdateCourseRequest edits an existing course.
type UpdateCourseRequest struct {
	Code     string       `json:"code" validate:"required,max=20"`
	Name     string       `json:"name" validate:"required,max=150"`
	Units    int          `json:"units" validate:"required,min=1,max=12"`
	Semester int          `json:"semester" validate:"required,oneof=1 2"`
	Status   CourseStatus `json:"status" validate:"required,oneof=Active Inactive"`
}

// ProgramFilter captures list criteria for programs.
type ProgramFilter struct {
	Status    ProgramStatus
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// CourseFilter captures list criteria for courses.
type CourseFilter struct {
	ProgramID string
	YearLevel int
	Semester  int
	Status    CourseStatus
	Page      int
	PageSize  int
}
