package models

// DashboardMetrics aggregates portal-wide counts and revenue figures for the
// admin dashboard.
type DashboardMetrics struct {
	TotalStudents int `json:"total_students"`
	ProgramCount  int `json:"program_count"`
	CourseCount   int `json:"course_count"`

	PendingRegistrations  int `json:"pending_registrations"`
	ApprovedRegistrations int `json:"approved_registrations"`
	RejectedRegistrations int `json:"rejected_registrations"`

	DraftEnrollments     int `json:"draft_enrollments"`
	ForReviewEnrollments int `json:"for_review_enrollments"`
	ApprovedEnrollments  int `json:"approved_enrollments"`
	RejectedEnrollments  int `json:"rejected_enrollments"`

	PaidEnrollments    int `json:"paid_enrollments"`
	PartialEnrollments int `json:"partial_enrollments"`
	UnpaidEnrollments  int `json:"unpaid_enrollments"`

	CollectedRevenue float64 `json:"collected_revenue"`
	ExpectedRevenue  float64 `json:"expected_revenue"`

	StudentsByProgram   map[string]int `json:"students_by_program"`
	StudentsByYearLevel map[int]int    `json:"students_by_year_level"`
}
