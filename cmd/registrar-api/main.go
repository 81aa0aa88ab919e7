package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/wlc-ormoc/registrar-api/api/swagger"
	"github.com/wlc-ormoc/registrar-api/internal/handler"
	"github.com/wlc-ormoc/registrar-api/internal/middleware"
	"github.com/wlc-ormoc/registrar-api/internal/repository"
	"github.com/wlc-ormoc/registrar-api/internal/service"
	"github.com/wlc-ormoc/registrar-api/pkg/cache"
	"github.com/wlc-ormoc/registrar-api/pkg/config"
	"github.com/wlc-ormoc/registrar-api/pkg/database"
	"github.com/wlc-ormoc/registrar-api/pkg/jobs"
	"github.com/wlc-ormoc/registrar-api/pkg/logger"
	"github.com/wlc-ormoc/registrar-api/pkg/mailer"
	corsmiddleware "github.com/wlc-ormoc/registrar-api/pkg/middleware/cors"
	reqidmiddleware "github.com/wlc-ormoc/registrar-api/pkg/middleware/requestid"
	"github.com/wlc-ormoc/registrar-api/pkg/storage"
)

// @title WLC Ormoc Registrar API
// @version 1.0.0
// @description Registration, enrollment and payment services for the registrar portal
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, dashboard caching disabled", "error", err)
		redisClient = nil
	}

	store, err := storage.NewLocalStorage(cfg.Storage.DocumentsDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init document storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)

	userRepo := repository.NewUserRepository(db)
	registrationRepo := repository.NewRegistrationRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	programRepo := repository.NewProgramRepository(db)
	curriculumRepo := repository.NewCurriculumRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	documentRepo := repository.NewDocumentRepository(db)

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	var mail mailer.Mailer
	if cfg.Mail.Enabled && cfg.Mail.SendgridKey != "" {
		mail = mailer.NewSendgridMailer(cfg.Mail.SendgridKey, cfg.Mail.FromName, cfg.Mail.FromEmail)
	} else {
		mail = mailer.NewDummyMailer()
		logr.Info("mail delivery disabled, using dummy mailer")
	}

	notificationSvc := service.NewNotificationService(mail, studentRepo, enrollmentRepo, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	}, cfg.Mail.FromName, logr)
	notificationSvc.Start(context.Background())
	defer notificationSvc.Stop()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "registrar-api",
	})
	identitySvc := service.NewIdentityService(userRepo, logr)
	feeSvc := service.NewFeeService(curriculumRepo, cfg.Fees, logr)
	registrationSvc := service.NewRegistrationService(
		registrationRepo, programRepo, enrollmentRepo, identitySvc, feeSvc,
		notificationSvc, userRepo, validate, logr,
	)
	programSvc := service.NewProgramService(programRepo, userRepo, validate, logr)
	courseSvc := service.NewCourseService(curriculumRepo, programRepo, userRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, studentRepo, feeSvc, logr)
	paymentSvc := service.NewPaymentService(paymentRepo, enrollmentRepo, notificationSvc, cfg.Mail.FromName, logr)
	documentSvc := service.NewDocumentService(
		documentRepo, enrollmentRepo, studentRepo, store, signer, userRepo,
		cfg.Storage.MaxFileSizeBytes, logr,
	)
	dashboardSvc := service.NewDashboardService(
		registrationRepo, enrollmentRepo, studentRepo, programRepo, curriculumRepo,
		redisClient, cfg.Dashboard.CacheTTL, metricsSvc, logr,
	)

	handlers := handler.Handlers{
		Auth:          handler.NewAuthHandler(authSvc),
		Registrations: handler.NewRegistrationHandler(registrationSvc, metricsSvc),
		Programs:      handler.NewProgramHandler(programSvc),
		Courses:       handler.NewCourseHandler(courseSvc),
		Students:      handler.NewStudentHandler(studentSvc),
		Enrollments:   handler.NewEnrollmentHandler(enrollmentSvc, studentSvc),
		Documents:     handler.NewDocumentHandler(documentSvc),
		Payments:      handler.NewPaymentHandler(paymentSvc, studentSvc, metricsSvc),
		Dashboard:     handler.NewDashboardHandler(dashboardSvc),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r, cfg.APIPrefix, handlers, authSvc, userRepo)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
