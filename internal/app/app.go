package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"metallvector_backend/internal/auth"
	"metallvector_backend/internal/config"
	"metallvector_backend/internal/email"
	"metallvector_backend/internal/gemini"
	"metallvector_backend/internal/handlers"
	"metallvector_backend/internal/logger"
	"metallvector_backend/internal/middleware"
	"metallvector_backend/internal/models"
	"metallvector_backend/internal/payments"
	"metallvector_backend/internal/repositories"
	"metallvector_backend/internal/routes"
	"metallvector_backend/internal/scraper"
	"metallvector_backend/internal/services"
	"metallvector_backend/internal/validator"
	"metallvector_backend/internal/workers"
)

func Run() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	logger.Info("Connecting to database...")
	gormDB, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to GORM", "error", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatal("Failed to get *sql.DB from GORM", "error", err)
	}
	if err = sqlDB.Ping(); err != nil {
		logger.Fatal("Database unavailable", "error", err)
	}
	logger.Info("Database connected")

	if err := Migrate(gormDB); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	if err := seedFirstAdmin(gormDB, cfg); err != nil {
		logger.Fatal("Failed to seed first admin user", "error", err)
	}

	rateLimiter := middleware.NewRateLimiter(
		cfg.RateLimit.Requests,
		time.Duration(cfg.RateLimit.WindowSeconds)*time.Second,
	)

	serviceContainer := initializeServices(cfg, gormDB)
	ginRouter := SetupRouter(cfg, gormDB, serviceContainer, rateLimiter)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	jobWorker := workers.NewJobWorker(gormDB, repositories.NewJobRepository(), serviceContainer.AnalysisService)
	jobWorker.Start(workerCtx)

	maintenance := workers.NewMaintenanceWorker(gormDB, repositories.NewUserRepository(), rateLimiter)
	if err := maintenance.Start(); err != nil {
		logger.Fatal("Failed to start maintenance worker", "error", err)
	}
	defer maintenance.Stop()

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("Server starting", "address", address)
	if err := ginRouter.Run(address); err != nil {
		logger.Fatal("Server startup error", "error", err)
	}
}

// Migrate приводит схему к актуальному состоянию
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Analysis{},
		&models.Payment{},
		&models.PaymentCredit{},
		&models.Job{},
	)
}

func SetupRouter(cfg *config.Config, gormDB *gorm.DB, serviceContainer *services.ServiceContainer, rateLimiter *middleware.RateLimiter) *gin.Engine {
	appHandlers := initializeHandlers(serviceContainer)
	ginRouter := initializeGinRouter(cfg, gormDB)
	routes.RegisterRoutes(ginRouter, appHandlers, repositories.NewUserRepository(), rateLimiter)
	return ginRouter
}

func initializeServices(cfg *config.Config, gormDB *gorm.DB) *services.ServiceContainer {
	userRepo := repositories.NewUserRepository()
	analysisRepo := repositories.NewAnalysisRepository()
	paymentRepo := repositories.NewPaymentRepository()
	jobRepo := repositories.NewJobRepository()

	mailer := email.NewSMTPSender(cfg)
	fetcher := scraper.NewHTTPFetcher()
	aiClient := gemini.NewClient(cfg.Gemini.APIKey, cfg.Gemini.Model)
	paymentProvider := payments.NewYooKassaClient(cfg.YooKassa.ShopID, cfg.YooKassa.SecretKey)

	analysisService := services.NewAnalysisService(userRepo, analysisRepo, fetcher, aiClient)

	return &services.ServiceContainer{
		AuthService:     services.NewAuthService(userRepo, mailer),
		AnalysisService: analysisService,
		PaymentService:  services.NewPaymentService(paymentRepo, userRepo, paymentProvider, mailer, cfg.YooKassa.ReturnURL),
		AdminService:    services.NewAdminService(userRepo, analysisRepo, paymentRepo),
		JobService:      services.NewJobService(jobRepo, userRepo),
	}
}

func initializeHandlers(serviceContainer *services.ServiceContainer) *handlers.AppHandlers {
	customValidator := validator.New()
	baseHandler := handlers.NewBaseHandler(customValidator)

	return &handlers.AppHandlers{
		AuthHandler:     handlers.NewAuthHandler(baseHandler, serviceContainer.AuthService),
		AnalysisHandler: handlers.NewAnalysisHandler(baseHandler, serviceContainer.AnalysisService),
		PaymentHandler:  handlers.NewPaymentHandler(baseHandler, serviceContainer.PaymentService),
		AdminHandler:    handlers.NewAdminHandler(baseHandler, serviceContainer.AdminService),
		JobHandler:      handlers.NewJobHandler(baseHandler, serviceContainer.JobService),
	}
}

func initializeGinRouter(cfg *config.Config, db *gorm.DB) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware(cfg))
	router.Use(middleware.SecurityHeadersMiddleware(cfg))
	router.Use(middleware.DBMiddleware(db))
	return router
}

func seedFirstAdmin(db *gorm.DB, cfg *config.Config) error {
	adminEmail := cfg.FirstAdminEmail
	adminPassword := cfg.FirstAdminPassword

	if adminEmail == "" || adminPassword == "" {
		logger.Warn("FIRST_ADMIN_EMAIL or FIRST_ADMIN_PASSWORD is not set. Skipping admin seeding.")
		return nil
	}

	var adminUser models.User
	result := db.Where("email = ?", adminEmail).First(&adminUser)
	if result.Error == nil {
		logger.Info("Admin user already exists. Skipping creation.", "email", adminEmail)
		return nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check for admin user: %w", result.Error)
	}

	logger.Warn("No admin user found with specified email. Creating first admin...", "email", adminEmail)

	hashedPassword, err := auth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	newAdmin := &models.User{
		Email:        adminEmail,
		PasswordHash: hashedPassword,
		Name:         "Администратор",
		Role:         models.RoleAdmin,
		Plan:         models.PlanTrial,
		IsVerified:   true,
	}
	if err := db.Create(newAdmin).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Info("First admin created", "email", adminEmail)
	return nil
}
