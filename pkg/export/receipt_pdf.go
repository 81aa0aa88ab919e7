package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Receipt holds the details rendered onto a payment receipt.
type Receipt struct {
	ReceiptNumber   string
	SchoolName      string
	StudentNumber   string
	StudentName     string
	AcademicYear    string
	Semester        int
	Amount          float64
	Method          string
	ReferenceNumber string
	PaymentDate     time.Time
	TotalAmount     float64
	AmountPaid      float64
	PaymentStatus   string
}

// ReceiptPDFExporter renders payment receipts as PDF documents.
type ReceiptPDFExporter struct{}

// NewReceiptPDFExporter builds a receipt exporter.
func NewReceiptPDFExporter() *ReceiptPDFExporter {
	return &ReceiptPDFExporter{}
}

// Render produces a single-page receipt PDF.
func (e *ReceiptPDFExporter) Render(r Receipt) ([]byte, error) {
	if r.ReceiptNumber == "" {
		return nil, fmt.Errorf("receipt number required")
	}

	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(12, 14, 12)
	pdf.AddPage()

	if r.SchoolName != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 8, r.SchoolName, "", 1, "C", false, 0, "")
	}
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, "OFFICIAL PAYMENT RECEIPT", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	line := func(label, value string) {
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(40, 6, label, "", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, 6, value, "", 1, "", false, 0, "")
	}

	line("Receipt No.", r.ReceiptNumber)
	line("Date", r.PaymentDate.Format("2006-01-02 15:04"))
	line("Student No.", r.StudentNumber)
	line("Student", r.StudentName)
	line("Period", fmt.Sprintf("%s, Semester %d", r.AcademicYear, r.Semester))
	pdf.Ln(3)

	line("Amount Paid", fmt.Sprintf("PHP %.2f", r.Amount))
	line("Method", r.Method)
	if r.ReferenceNumber != "" {
		line("Reference No.", r.ReferenceNumber)
	}
	pdf.Ln(3)

	line("Assessment Total", fmt.Sprintf("PHP %.2f", r.TotalAmount))
	line("Total Paid to Date", fmt.Sprintf("PHP %.2f", r.AmountPaid))
	line("Balance", fmt.Sprintf("PHP %.2f", r.TotalAmount-r.AmountPaid))
	line("Payment Status", r.PaymentStatus)

	pdf.Ln(6)
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(0, 5, "This is a system generated receipt.", "", 1, "C", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render receipt pdf: %w", err)
	}
	return buf.Bytes(), nil
}
