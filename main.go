package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"earn-marketplace-system/handlers"
	"earn-marketplace-system/middleware"
	"earn-marketplace-system/models"
	"earn-marketplace-system/services"
	"earn-marketplace-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New()

	// 🔐 GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-User-Roles, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Organization{},
		&models.Member{},
		&models.Curator{},
		&models.MarketplaceUser{},
		&models.Bounty{},
		&models.Submission{},
		&models.Grant{},
		&models.Rfp{},
		&models.GrantApplication{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	// --- Notification service (external email dispatch) ---
	notifyServiceURL := os.Getenv("NOTIFY_SERVICE_URL")
	if notifyServiceURL == "" {
		log.Fatal("NOTIFY_SERVICE_URL environment variable not set")
	}
	earnServiceToken := os.Getenv("EARN_SERVICE_TOKEN")
	if earnServiceToken == "" {
		log.Fatal("EARN_SERVICE_TOKEN environment variable not set")
	}
	notifier := services.NewNotificationClient(notifyServiceURL, earnServiceToken)

	bountyService := services.NewBountyService(db, notifier)
	grantService := services.NewGrantService(db, notifier)
	sweepService := services.NewSweepService(db, notifier)

	// --- Profile sync worker (curator contact snapshots) ---
	profileSyncURL := os.Getenv("PROFILE_SYNC_URL")
	if profileSyncURL == "" {
		log.Fatal("PROFILE_SYNC_URL environment variable not set")
	}

	syncWorker := workers.NewMemberSyncWorker(db, profileSyncURL, "/api/v1/public/profiles", earnServiceToken)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	syncWorker.Start(ctx)

	sweepService.StartDeadlineScheduler()

	// ✅ Setup routes — enforced Gateway auth everywhere
	handlers.SetupBountyRoutes(app, bountyService)
	handlers.SetupGrantRoutes(app, grantService)
	handlers.SetupSweepRoutes(app, sweepService)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Println("✅ Member Sync Worker running")
	log.Println("✅ Deadline sweep scheduled (every minute)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
