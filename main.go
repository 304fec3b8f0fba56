package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dedestem/opdevlucht-backend/handlers"
	"github.com/dedestem/opdevlucht-backend/models"
	"github.com/dedestem/opdevlucht-backend/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New()
	app.Use(recover.New())

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	// The store may still be coming up alongside us; retry only here, never
	// mid-request.
	db, err := connectWithRetry(dsn, 20, 2*time.Second)
	if err != nil {
		log.Fatal("failed to connect to database: ", err)
	}

	if err := db.AutoMigrate(
		&models.Match{},
		&models.Session{},
		&models.Location{},
	); err != nil {
		log.Fatal("failed to migrate database: ", err)
	}

	matchService := services.NewMatchService(db)
	sessionService := services.NewSessionService(db)
	locationService := services.NewLocationService(db)

	// Policy knobs; unset or invalid values keep the defaults.
	if n := envInt("START_COUNTDOWN_SECONDS"); n > 0 {
		matchService.StartCountdown = time.Duration(n) * time.Second
	}
	if n := envInt("MATCH_EXPIRY_GRACE_MINUTES"); n > 0 {
		matchService.ExpiryGrace = time.Duration(n) * time.Minute
	}
	if n := envInt("LAG_ITERATIONS_BEHIND"); n > 0 {
		locationService.LagThreshold = n
	}
	cleanupInterval := 30 * time.Minute
	if n := envInt("CLEANUP_INTERVAL_MINUTES"); n > 0 {
		cleanupInterval = time.Duration(n) * time.Minute
	}

	matchService.StartCleanupScheduler(cleanupInterval)

	handlers.SetupHealthRoutes(app)
	handlers.SetupMatchRoutes(app, matchService)
	handlers.SetupSessionRoutes(app, sessionService)
	handlers.SetupLocationRoutes(app, locationService)

	port := os.Getenv("PORT")
	if port == "" {
		port = "4500"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Printf("✅ Match cleanup running (every %s)", cleanupInterval)

	<-ctx.Done()
	log.Println("Shutting down server...")
	_ = app.Shutdown()
}

func connectWithRetry(dsn string, retries int, delay time.Duration) (*gorm.DB, error) {
	var lastErr error
	for i := 0; i < retries; i++ {
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err == nil {
			sqlDB, derr := db.DB()
			if derr == nil {
				if derr = sqlDB.Ping(); derr == nil {
					log.Println("DB is ready!")
					return db, nil
				}
			}
			err = derr
		}
		lastErr = err
		log.Printf("DB not ready yet, retrying in %s... Error: %v", delay, err)
		time.Sleep(delay)
	}
	return nil, fmt.Errorf("DB connection failed after %d attempts: %w", retries, lastErr)
}

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("⚠️  Ignoring invalid %s=%q", key, v)
		return 0
	}
	return n
}
