package models

import "time"

// RegistrationStatus tracks the review state of an application.
// Approved and Rejected are terminal.
type RegistrationStatus string

const (
	RegistrationStatusPending  RegistrationStatus = "Pending"
	RegistrationStatusApproved RegistrationStatus = "Approved"
	RegistrationStatusRejected RegistrationStatus = "Rejected"
)

// Registration represents a prospective student's application.
type Registration struct {
	ID                 string             `db:"id" json:"id"`
	FirstName          string             `db:"first_name" json:"first_name"`
	LastName           string             `db:"last_name" json:"last_name"`
	MiddleName         *string            `db:"middle_name" json:"middle_name,omitempty"`
	Email              string             `db:"email" json:"email"`
	ContactNumber      string             `db:"contact_number" json:"contact_number"`
	Address            string             `db:"address" json:"address"`
	ProgramID          string             `db:"program_id" json:"program_id"`
	YearLevel          int                `db:"year_level" json:"year_level"`
	IsReturningStudent bool               `db:"is_returning_student" json:"is_returning_student"`
	Status             RegistrationStatus `db:"status" json:"status"`
	ReviewedBy         *string            `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt         *time.Time         `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt          time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `db:"updated_at" json:"updated_at"`
}

// FullName joins the applicant's name parts for display and notifications.
func (r Registration) FullName() string {
	if r.MiddleName != nil && *r.MiddleName != "" {
		return r.FirstName + " " + *r.MiddleName + " " + r.LastName
	}
	return r.FirstName + " " + r.LastName
}

// RegistrationDetail includes program context for admin review screens.
type RegistrationDetail struct {
	Registration
	ProgramCode *string `db:"program_code" json:"program_code,omitempty"`
	ProgramName *string `db:"program_name" json:"program_name,omitempty"`
}

// SubmitRegistrationRequest is the public intake payload.
type SubmitRegistrationRequest struct {
	FirstName          string  `json:"first_name" validate:"required,max=100"`
	LastName           string  `json:"last_name" validate:"required,max=100"`
	MiddleName         *string `json:"middle_name,omitempty" validate:"omitempty,max=100"`
	Email              string  `json:"email" validate:"required,email"`
	ContactNumber      string  `json:"contact_number" validate:"required,max=30"`
	Address            string  `json:"address" validate:"required,max=300"`
	ProgramID          string  `json:"program_id" validate:"required,uuid"`
	YearLevel          int     `json:"year_level" validate:"required,min=1,max=6"`
	IsReturningStudent bool    `json:"is_returning_student"`
}

// RegistrationFilter captures list criteria for registrations.
type RegistrationFilter struct {
	Status    RegistrationStatus
	ProgramID string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
