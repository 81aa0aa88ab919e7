package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wlc-ormoc/registrar-api/internal/models"
	"github.com/wlc-ormoc/registrar-api/pkg/jobs"
	"github.com/wlc-ormoc/registrar-api/pkg/mailer"
)

type capturingMailer struct {
	mu       sync.Mutex
	messages []mailer.Message
	received chan struct{}
}

func newCapturingMailer() *capturingMailer {
	return &capturingMailer{received: make(chan struct{}, 8)}
}

func (m *capturingMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	m.messages = append(m.messages, msg)
	m.mu.Unlock()
	m.received <- struct{}{}
	return nil
}

func (m *capturingMailer) sent() []mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mailer.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

type mockNotificationStudents struct {
	items map[string]*models.StudentDetail
}

func (m *mockNotificationStudents) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if s, ok := m.items[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

type mockNotificationEnrollments struct {
	items map[string]*models.Enrollment
}

func (m *mockNotificationEnrollments) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.items[id]; ok {
		return e, nil
	}
	return nil, sql.ErrNoRows
}

func waitForMail(t *testing.T, mail *capturingMailer) {
	t.Helper()
	select {
	case <-mail.received:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for mail delivery")
	}
}

func TestNotificationServiceCredentialsIssued(t *testing.T) {
	mail := newCapturingMailer()
	svc := NewNotificationService(mail, &mockNotificationStudents{}, &mockNotificationEnrollments{},
		jobs.QueueConfig{Workers: 1}, "WLC Ormoc Registrar", zap.NewNop())
	svc.Start(context.Background())
	defer svc.Stop()

	svc.CredentialsIssued(context.Background(), "juan@example.com", "Juan Dela Cruz", "a1b2c3d4e5f60718")
	waitForMail(t, mail)

	messages := mail.sent()
	require.Len(t, messages, 1)
	assert.Equal(t, "juan@example.com", messages[0].ToEmail)
	assert.Equal(t, "Your student portal account", messages[0].Subject)
	assert.Contains(t, messages[0].TextBody, "Temporary password: a1b2c3d4e5f60718")
}

func TestNotificationServicePaymentReceived(t *testing.T) {
	mail := newCapturingMailer()
	students := &mockNotificationStudents{items: map[string]*models.StudentDetail{
		"stu-1": {Student: models.Student{ID: "stu-1", FirstName: "Juan", LastName: "Dela Cruz", Email: "juan@example.com"}},
	}}
	enrollments := &mockNotificationEnrollments{items: map[string]*models.Enrollment{
		"enr-1": {ID: "enr-1", StudentID: "stu-1"},
	}}
	svc := NewNotificationService(mail, students, enrollments,
		jobs.QueueConfig{Workers: 1}, "WLC Ormoc Registrar", zap.NewNop())
	svc.Start(context.Background())
	defer svc.Stop()

	svc.PaymentReceived(context.Background(), "enr-1", &models.PaymentReceipt{
		Payment:       models.Payment{Amount: 4000},
		AmountPaid:    4000,
		TotalAmount:   10500,
		PaymentStatus: models.PaymentStatusPartial,
	})
	waitForMail(t, mail)

	messages := mail.sent()
	require.Len(t, messages, 1)
	assert.Equal(t, "juan@example.com", messages[0].ToEmail)
	assert.Contains(t, messages[0].TextBody, "PHP 4000.00")
	assert.Contains(t, messages[0].TextBody, "PHP 10500.00")
}

func TestNotificationServicePaymentReceivedUnknownEnrollment(t *testing.T) {
	mail := newCapturingMailer()
	svc := NewNotificationService(mail, &mockNotificationStudents{}, &mockNotificationEnrollments{},
		jobs.QueueConfig{Workers: 1}, "WLC Ormoc Registrar", zap.NewNop())
	svc.Start(context.Background())
	defer svc.Stop()

	svc.PaymentReceived(context.Background(), "missing", &models.PaymentReceipt{})

	select {
	case <-mail.received:
		t.Fatal("no mail should be sent for an unknown enrollment")
	case <-time.After(100 * time.Millisecond):
	}
}
