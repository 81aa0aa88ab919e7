package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wlc-ormoc/registrar-api/internal/models"
	"github.com/wlc-ormoc/registrar-api/pkg/jobs"
	"github.com/wlc-ormoc/registrar-api/pkg/mailer"
)

const (
	jobTypeCredentials = "credentials_email"
	jobTypeReceipt     = "receipt_email"
)

type credentialsPayload struct {
	Email        string
	FullName     string
	TempPassword string
}

type receiptPayload struct {
	Email        string
	FullName     string
	EnrollmentID string
	Amount       float64
	AmountPaid   float64
	TotalAmount  float64
	Status       string
}

type notificationStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

type notificationEnrollmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
}

// NotificationService sends student-facing email through a background queue
// so request handlers never block on the mail provider. Every notification
// is best-effort; an enqueue or delivery failure is logged, never surfaced.
type NotificationService struct {
	mail        mailer.Mailer
	queue       *jobs.Queue
	students    notificationStudentRepository
	enrollments notificationEnrollmentRepository
	fromName    string
	logger      *zap.Logger
}

// NewNotificationService constructs a NotificationService and its queue.
// Call Start before use and Stop on shutdown.
func NewNotificationService(mail mailer.Mailer, students notificationStudentRepository, enrollments notificationEnrollmentRepository, cfg jobs.QueueConfig, fromName string, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{
		mail:        mail,
		students:    students,
		enrollments: enrollments,
		fromName:    fromName,
		logger:      logger,
	}
	cfg.Logger = logger
	s.queue = jobs.NewQueue("notifications", s.handle, cfg)
	return s
}

// Start launches the dispatch workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the queue and stops the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// CredentialsIssued queues the email carrying a newly approved student's
// temporary login credentials.
func (s *NotificationService) CredentialsIssued(ctx context.Context, email, fullName, tempPassword string) {
	s.enqueue(jobs.Job{
		ID:   uuid.NewString(),
		Type: jobTypeCredentials,
		Payload: credentialsPayload{
			Email:        email,
			FullName:     fullName,
			TempPassword: tempPassword,
		},
	})
}

// PaymentReceived queues a payment confirmation for the enrollment's student.
func (s *NotificationService) PaymentReceived(ctx context.Context, enrollmentID string, receipt *models.PaymentReceipt) {
	enrollment, err := s.enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		s.logger.Warn("skipping payment notification, enrollment lookup failed",
			zap.String("enrollment_id", enrollmentID), zap.Error(err))
		return
	}
	student, err := s.students.FindByID(ctx, enrollment.StudentID)
	if err != nil {
		s.logger.Warn("skipping payment notification, student lookup failed",
			zap.String("student_id", enrollment.StudentID), zap.Error(err))
		return
	}
	s.enqueue(jobs.Job{
		ID:   uuid.NewString(),
		Type: jobTypeReceipt,
		Payload: receiptPayload{
			Email:        student.Email,
			FullName:     student.FullName(),
			EnrollmentID: enrollmentID,
			Amount:       receipt.Payment.Amount,
			AmountPaid:   receipt.AmountPaid,
			TotalAmount:  receipt.TotalAmount,
			Status:       string(receipt.PaymentStatus),
		},
	})
}

func (s *NotificationService) enqueue(job jobs.Job) {
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue notification", zap.String("type", job.Type), zap.Error(err))
	}
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	switch payload := job.Payload.(type) {
	case credentialsPayload:
		return s.mail.Send(ctx, mailer.Message{
			ToEmail: payload.Email,
			ToName:  payload.FullName,
			Subject: "Your student portal account",
			TextBody: fmt.Sprintf(
				"Dear %s,\n\nYour registration has been approved. Sign in to the student portal with:\n\nEmail: %s\nTemporary password: %s\n\nPlease change your password after your first login.\n\n%s",
				payload.FullName, payload.Email, payload.TempPassword, s.fromName),
		})
	case receiptPayload:
		return s.mail.Send(ctx, mailer.Message{
			ToEmail: payload.Email,
			ToName:  payload.FullName,
			Subject: "Payment received",
			TextBody: fmt.Sprintf(
				"Dear %s,\n\nWe received your payment of PHP %.2f.\n\nTotal paid to date: PHP %.2f of PHP %.2f (%s).\n\n%s",
				payload.FullName, payload.Amount, payload.AmountPaid, payload.TotalAmount, payload.Status, s.fromName),
		})
	default:
		return fmt.Errorf("unknown notification job type %q", job.Type)
	}
}
