package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/wlc-ormoc/registrar-api/internal/middleware"
	"github.com/wlc-ormoc/registrar-api/internal/models"
	"github.com/wlc-ormoc/registrar-api/internal/repository"
	"github.com/wlc-ormoc/registrar-api/internal/service"
)

// Handlers bundles every route handler for registration.
type Handlers struct {
	Auth          *AuthHandler
	Registrations *RegistrationHandler
	Programs      *ProgramHandler
	Courses       *CourseHandler
	Students      *StudentHandler
	Enrollments   *EnrollmentHandler
	Documents     *DocumentHandler
	Payments      *PaymentHandler
	Dashboard     *DashboardHandler
}

// RegisterRoutes wires all endpoints under the API prefix. Public routes
// carry no middleware; everything else sits behind JWT, with admin-only
// groups enforcing the ADMIN role.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers, auth *service.AuthService, users *repository.UserRepository) {
	api := r.Group(prefix)

	// Public surface: intake, catalogue browsing and signed downloads.
	api.POST("/registrations", h.Registrations.Submit)
	api.GET("/programs", h.Programs.List)
	api.GET("/programs/:id", h.Programs.Get)
	api.GET("/courses", h.Courses.List)
	api.GET("/courses/:id", h.Courses.Get)
	api.GET("/documents/download", h.Documents.Download)

	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/refresh", h.Auth.Refresh)

	secured := api.Group("")
	secured.Use(middleware.JWT(auth))

	secured.GET("/auth/me", h.Auth.Me)
	secured.POST("/auth/logout", h.Auth.Logout)
	secured.PUT("/auth/password", h.Auth.ChangePassword)

	secured.GET("/students/me", h.Students.Me)
	secured.GET("/payments/me", h.Payments.MyPayments)
	secured.GET("/payments/:id/receipt", h.Payments.Receipt)

	secured.GET("/enrollments", h.Enrollments.List)
	secured.GET("/enrollments/:id", h.Enrollments.Get)
	secured.GET("/enrollments/:id/courses", h.Enrollments.ListCourses)
	secured.GET("/enrollments/:id/documents", h.Documents.List)
	secured.POST("/enrollments/:id/documents", h.Documents.Upload)
	secured.GET("/documents/:id/url", h.Documents.SignedURL)

	admin := secured.Group("")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))

	admin.GET("/registrations", h.Registrations.List)
	admin.GET("/registrations/:id", h.Registrations.Get)
	admin.POST("/registrations/:id/approve",
		middleware.Audit(users, models.AuditActionRegistrationApprove, "registrations"), h.Registrations.Approve)
	admin.POST("/registrations/:id/reject",
		middleware.Audit(users, models.AuditActionRegistrationReject, "registrations"), h.Registrations.Reject)

	admin.POST("/programs", h.Programs.Create)
	admin.PUT("/programs/:id", h.Programs.Update)
	admin.DELETE("/programs/:id", h.Programs.Delete)

	admin.POST("/courses", h.Courses.Create)
	admin.PUT("/courses/:id", h.Courses.Update)
	admin.DELETE("/courses/:id", h.Courses.Remove)

	admin.GET("/students", h.Students.List)
	admin.GET("/students/:id", h.Students.Get)
	admin.PUT("/students/:id/status", h.Students.SetStatus)

	admin.PUT("/enrollments/:id/status", h.Enrollments.SetStatus)
	admin.GET("/enrollments/export", h.Enrollments.Export)
	admin.GET("/enrollments/:id/payments", h.Payments.ListByEnrollment)
	admin.POST("/enrollments/:id/payments",
		middleware.Audit(users, models.AuditActionPaymentRecord, "payments"), h.Payments.Record)

	admin.PUT("/documents/:id/review", h.Documents.Review)

	admin.GET("/dashboard", h.Dashboard.Metrics)
}
