package models

import "time"

// EnrollmentStatus tracks the review state of an enrollment.
type EnrollmentStatus string

const (
	EnrollmentStatusDraft     EnrollmentStatus = "Draft"
	EnrollmentStatusForReview EnrollmentStatus = "For Review"
	EnrollmentStatusApproved  EnrollmentStatus = "Approved"
	EnrollmentStatusRejected  EnrollmentStatus = "Rejected"
)

// ValidEnrollmentStatus reports whether s is a known enrollment status.
func ValidEnrollmentStatus(s EnrollmentStatus) bool {
	switch s {
	case EnrollmentStatusDraft, EnrollmentStatusForReview, EnrollmentStatusApproved, EnrollmentStatusRejected:
		return true
	}
	return false
}

// PaymentStatus is derived from amount_paid against total_amount.
type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "Unpaid"
	PaymentStatusPartial PaymentStatus = "Partial"
	PaymentStatusPaid    PaymentStatus = "Paid"
)

// DerivePaymentStatus computes the payment status for the given totals.
func DerivePaymentStatus(amountPaid, totalAmount float64) PaymentStatus {
	if amountPaid >= totalAmount && totalAmount > 0 {
		return PaymentStatusPaid
	}
	if amountPaid > 0 {
		return PaymentStatusPartial
	}
	return PaymentStatusUnpaid
}

// Enrollment represents a student's billing record for one academic period.
// At most one exists per (student_id, academic_year, semester). AmountPaid
// mirrors the sum of the enrollment's payments and is maintained in the same
// transaction as every ledger write.
type Enrollment struct {
	ID                 string           `db:"id" json:"id"`
	StudentID          string           `db:"student_id" json:"student_id"`
	AcademicYear       string           `db:"academic_year" json:"academic_year"`
	Semester           int              `db:"semester" json:"semester"`
	Status             EnrollmentStatus `db:"status" json:"status"`
	DocumentsSubmitted bool             `db:"documents_submitted" json:"documents_submitted"`
	PaymentStatus      PaymentStatus    `db:"payment_status" json:"payment_status"`
	TotalAmount        float64          `db:"total_amount" json:"total_amount"`
	AmountPaid         float64          `db:"amount_paid" json:"amount_paid"`
	CreatedAt          time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time        `db:"updated_at" json:"updated_at"`
}

// Outstanding returns the unpaid balance.
func (e Enrollment) Outstanding() float64 {
	return e.TotalAmount - e.AmountPaid
}

// EnrollmentDetail includes student context for admin screens.
type EnrollmentDetail struct {
	Enrollment
	StudentNumber *string `db:"student_number" json:"student_number,omitempty"`
	StudentName   *string `db:"student_name" json:"student_name,omitempty"`
	ProgramID     *string `db:"program_id" json:"program_id,omitempty"`
	YearLevel     *int    `db:"year_level" json:"year_level,omitempty"`
}

// EnrollmentCourse links an enrollment to one billed course.
type EnrollmentCourse struct {
	ID           string    `db:"id" json:"id"`
	EnrollmentID string    `db:"enrollment_id" json:"enrollment_id"`
	CourseID     string    `db:"course_id" json:"course_id"`
	Status       string    `db:"status" json:"status"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// EnrollmentCourseStatusEnrolled is the initial course-link status.
const EnrollmentCourseStatusEnrolled = "Enrolled"

// DocumentStatus tracks admin verification of an uploaded document.
type DocumentStatus string

const (
	DocumentStatusPending  DocumentStatus = "Pending"
	DocumentStatusVerified DocumentStatus = "Verified"
	DocumentStatusRejected DocumentStatus = "Rejected"
)

// EnrollmentDocument is a file uploaded by the student for an enrollment.
type EnrollmentDocument struct {
	ID           string         `db:"id" json:"id"`
	EnrollmentID string         `db:"enrollment_id" json:"enrollment_id"`
	DocumentType string         `db:"document_type" json:"document_type"`
	Status       DocumentStatus `db:"status" json:"status"`
	FilePath     string         `db:"file_path" json:"file_path"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// EnrollmentFilter captures list criteria for enrollments.
type EnrollmentFilter struct {
	StudentID     string
	AcademicYear  string
	Semester      int
	Status        EnrollmentStatus
	PaymentStatus PaymentStatus
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}
