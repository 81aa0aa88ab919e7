package models

import "time"

// PaymentMethodPending marks the placeholder ledger row created when an
// enrollment is approved, before any real payment arrives.
const PaymentMethodPending = "Pending"

// Payment is one append-only ledger entry against an enrollment. Real
// payment rows are never updated or deleted; only the method-"Pending"
// placeholder is replaced when an enrollment is re-approved.
type Payment struct {
	ID              string    `db:"id" json:"id"`
	EnrollmentID    string    `db:"enrollment_id" json:"enrollment_id"`
	Amount          float64   `db:"amount" json:"amount"`
	Method          string    `db:"method" json:"method"`
	ReferenceNumber *string   `db:"reference_number" json:"reference_number,omitempty"`
	PaymentDate     time.Time `db:"payment_date" json:"payment_date"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// PaymentReceipt is the result of recording a payment. ChangeDue carries the
// portion of the tendered amount above the outstanding balance; it is returned
// to the payer in cash and never enters the ledger.
type PaymentReceipt struct {
	Payment       Payment       `json:"payment"`
	ChangeDue     float64       `json:"change_due"`
	AmountPaid    float64       `json:"amount_paid"`
	TotalAmount   float64       `json:"total_amount"`
	PaymentStatus PaymentStatus `json:"payment_status"`
}

// PaymentDetail includes enrollment context for payment history screens.
type PaymentDetail struct {
	Payment
	AcademicYear string `db:"academic_year" json:"academic_year"`
	Semester     int    `db:"semester" json:"semester"`
	StudentID    string `db:"student_id" json:"student_id"`
}
