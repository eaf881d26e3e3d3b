package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"elevation-league-system/handlers"
	"elevation-league-system/middleware"
	"elevation-league-system/models"
	"elevation-league-system/services"
	"elevation-league-system/utils"
	"elevation-league-system/workers"

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

	app := fiber.New(fiber.Config{})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	// Load allowed origins from environment variable
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
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-Service-Token, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.League{},
		&models.Participant{},
		&models.RoundTotal{},
		&models.BonusStock{},
		&models.BonusUsage{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	catalog := services.DefaultBonusCatalog()
	bonusService := services.NewBonusService(db, catalog)
	rankingService := services.NewRankingService(db, catalog, bonusService)
	leagueService := services.NewLeagueService(db)

	// --- CONFIGURE Sync Service Details for Participants ---
	activityServiceURL := os.Getenv("ACTIVITY_SERVICE_URL")
	if activityServiceURL == "" {
		log.Fatal("ACTIVITY_SERVICE_URL environment variable not set")
	}
	leagueServiceToken := os.Getenv("LEAGUE_SERVICE_TOKEN")
	if leagueServiceToken == "" {
		log.Fatal("LEAGUE_SERVICE_TOKEN environment variable not set")
	}
	// --- END CONFIG ---

	syncWorker := workers.NewParticipantSyncWorker(db, activityServiceURL, "/api/v1/public/athletes", leagueServiceToken)

	elevationClient := workers.NewElevationSyncClient(db)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go workers.PollElevations(ctx, elevationClient, 30*time.Second)

	go func() {
		log.Println("Starting Participant Sync Worker...")
		syncWorker.Start(ctx)
	}()

	bonusService.StartBackupScheduler(15 * time.Minute)

	// ✅ Setup routes — enforced Gateway auth + per-group role checks
	handlers.SetupBonusRoutes(app, bonusService, rankingService)
	handlers.SetupLeagueRoutes(app, leagueService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Participant Sync Worker running")
	log.Println("✅ Elevation polling running (every 30s)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
