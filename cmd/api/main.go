package main

import (
	"context"
	"log"
	"os"

	gcs "cloud.google.com/go/storage"
	"github.com/gin-gonic/gin"
	"github.com/twilio/twilio-go"

	"github.com/biishnuthapa/easyreceipt/internal/application/service"
	"github.com/biishnuthapa/easyreceipt/internal/config"
	"github.com/biishnuthapa/easyreceipt/internal/infrastructure/database"
	"github.com/biishnuthapa/easyreceipt/internal/infrastructure/repository"
	"github.com/biishnuthapa/easyreceipt/internal/presentation/http/handler"
	"github.com/biishnuthapa/easyreceipt/internal/presentation/http/routes"
	"github.com/biishnuthapa/easyreceipt/pkg/mailer"
	"github.com/biishnuthapa/easyreceipt/pkg/oauth"
	"github.com/biishnuthapa/easyreceipt/pkg/storage"
	"github.com/biishnuthapa/easyreceipt/pkg/utils"
	"github.com/biishnuthapa/easyreceipt/pkg/whatsapp"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize JWT manager
	jwtManager := utils.NewJWTManager(
		cfg.JWT.Secret,
		cfg.JWT.ExpiryHours,
		cfg.JWT.RefreshExpiryHours,
	)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	receiptRepo := repository.NewReceiptRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)
	passwordResetRepo := repository.NewPasswordResetTokenRepository(db)

	// Initialize SendGrid mailer
	mailerService := mailer.New(mailer.Config{
		APIKey:    cfg.SendGrid.APIKey,
		FromEmail: cfg.SendGrid.FromEmail,
	})

	// Initialize object storage for WhatsApp media. A missing client is not
	// fatal: WhatsApp delivery degrades to text-only messages.
	var uploader whatsapp.Uploader
	gcsClient, err := gcs.NewClient(context.Background())
	if err != nil {
		log.Printf("Warning: Failed to initialize object storage, WhatsApp receipts will be sent without PDFs: %v", err)
	} else {
		uploader = storage.New(gcsClient, cfg.Storage.Bucket, cfg.Storage.Prefix)
	}

	// Initialize Twilio WhatsApp sender
	twilioClient := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.Twilio.AccountSID,
		Password: cfg.Twilio.AuthToken,
	})
	whatsAppService := whatsapp.New(twilioClient.Api, uploader, cfg.Twilio.WhatsAppFrom)

	// Initialize Google OAuth service
	googleOAuthService := oauth.NewGoogleOAuthService(oauth.GoogleOAuthConfig{
		ClientID:           cfg.OAuth.GoogleClientID,
		ClientSecret:       cfg.OAuth.GoogleClientSecret,
		RedirectURL:        cfg.OAuth.GoogleRedirectURL,
		FrontendSuccessURL: cfg.Frontend.URL + "/auth/callback",
		FrontendErrorURL:   cfg.Frontend.URL + "/login",
	})

	// Initialize services
	authService := service.NewAuthService(userRepo, passwordResetRepo, jwtManager, mailerService, cfg.Frontend.URL)
	receiptService := service.NewReceiptService(receiptRepo, userRepo, mailerService, whatsAppService)
	dashboardService := service.NewDashboardService(receiptRepo, analyticsRepo)

	// Initialize handlers
	handlers := &routes.Handlers{
		Auth:      handler.NewAuthHandler(authService, googleOAuthService),
		Receipt:   handler.NewReceiptHandler(receiptService),
		Dashboard: handler.NewDashboardHandler(dashboardService),
	}

	// Setup routes
	router := routes.Setup(handlers, &routes.Deps{
		JWTManager:      jwtManager,
		Cfg:             cfg,
		IdempotencyRepo: idempotencyRepo,
	})

	// Get port from environment or use default
	port := cfg.App.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting %s server on port %s...", cfg.App.Name, port)
	log.Printf("Environment: %s", cfg.App.Env)

	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
		os.Exit(1)
	}
}
