package models

// AcademicPeriod identifies one billing period.
type AcademicPeriod struct {
	AcademicYear string `json:"academic_year"`
	Semester     int    `json:"semester"`
}

// FeeBreakdown is the result of a fee calculation. Courses lists the active
// courses that produced the tuition portion; it is empty when the program has
// no curriculum defined for the requested year, in which case TotalAmount is
// the miscellaneous minimum.
type FeeBreakdown struct {
	TotalAmount float64  `json:"total_amount"`
	TuitionFee  float64  `json:"tuition_fee"`
	MiscFee     float64  `json:"misc_fee"`
	ProgramFee  float64  `json:"program_fee"`
	TotalUnits  int      `json:"total_units"`
	Courses     []Course `json:"courses"`
}
