package models

import "time"

// StudentStatus tracks whether a student may enroll.
type StudentStatus string

const (
	StudentStatusActive   StudentStatus = "Active"
	StudentStatusInactive StudentStatus = "Inactive"
)

// Student represents an admitted person. Created exactly once per email by
// registration approval; never deleted.
type Student struct {
	ID                 string        `db:"id" json:"id"`
	RegistrationID     *string       `db:"registration_id" json:"registration_id,omitempty"`
	UserID             *string       `db:"user_id" json:"user_id,omitempty"`
	StudentNumber      string        `db:"student_number" json:"student_number"`
	FirstName          string        `db:"first_name" json:"first_name"`
	LastName           string        `db:"last_name" json:"last_name"`
	MiddleName         *string       `db:"middle_name" json:"middle_name,omitempty"`
	Email              string        `db:"email" json:"email"`
	ContactNumber      string        `db:"contact_number" json:"contact_number"`
	Address            string        `db:"address" json:"address"`
	ProgramID          string        `db:"program_id" json:"program_id"`
	YearLevel          int           `db:"year_level" json:"year_level"`
	IsReturningStudent bool          `db:"is_returning_student" json:"is_returning_student"`
	Status             StudentStatus `db:"status" json:"status"`
	CreatedAt          time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time     `db:"updated_at" json:"updated_at"`
}

// FullName joins the student's name parts.
func (s Student) FullName() string {
	if s.MiddleName != nil && *s.MiddleName != "" {
		return s.FirstName + " " + *s.MiddleName + " " + s.LastName
	}
	return s.FirstName + " " + s.LastName
}

// StudentDetail contains student information with program context.
type StudentDetail struct {
	Student
	ProgramCode *string `db:"program_code" json:"program_code,omitempty"`
	ProgramName *string `db:"program_name" json:"program_name,omitempty"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	ProgramID string
	YearLevel int
	Status    StudentStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
