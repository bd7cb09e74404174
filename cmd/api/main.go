// cmd/api/main.go
// Main entry point for the matching service
// This file bootstraps all components and starts the server

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/playdatehub/playdate-backend/internal/auth"
	"github.com/playdatehub/playdate-backend/internal/common/database"
	"github.com/playdatehub/playdate-backend/internal/config"
	"github.com/playdatehub/playdate-backend/internal/geo"
	"github.com/playdatehub/playdate-backend/internal/matching"
	"github.com/playdatehub/playdate-backend/internal/notification"
	"github.com/playdatehub/playdate-backend/internal/profile"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	log.Println("========================================")
	log.Println("🚀 Starting PlaydateHub Matching API")
	log.Println("========================================")

	// 1. Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found (%v), using environment variables", err)
	}

	// 2. Load and validate configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal("❌ Configuration validation failed: ", err)
	}
	log.Println("✅ Configuration loaded")

	// 3. Connect to PostgreSQL
	db, err := database.NewPostgresDBFromURL(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("❌ Failed to connect to PostgreSQL: ", err)
	}
	defer db.Close()
	log.Println("✅ Connected to PostgreSQL")

	// 4. Connect to Redis (optional; the cooldown throttle degrades without it)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClientFromURL(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️  Redis unavailable (%v), continuing without notification cooldown", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
			log.Println("✅ Connected to Redis")
		}
	}

	// 5. Run database migrations
	if err := runMigrations(db); err != nil {
		log.Fatal("❌ Failed to run migrations: ", err)
	}
	log.Println("✅ Database migrations completed")

	// 6. Build the notification stack
	var emailService notification.EmailService
	switch cfg.EmailProvider {
	case "sendgrid":
		emailService, err = notification.NewSendGridEmailService(cfg.SendGridAPIKey, cfg.EmailFrom, cfg.EmailFromName)
		if err != nil {
			log.Fatal("❌ Failed to init SendGrid: ", err)
		}
		log.Println("   ✅ Using SendGrid for emails")
	case "smtp":
		emailService, err = notification.NewSMTPEmailService(notification.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.EmailFrom,
			FromName: cfg.EmailFromName,
		})
		if err != nil {
			log.Fatal("❌ Failed to init SMTP: ", err)
		}
		log.Println("   ✅ Using SMTP for emails")
	default:
		emailService = notification.NewMockEmailService()
		log.Println("   ⚠️  Using mock email provider (development mode)")
	}

	var pushService notification.PushService
	switch cfg.PushProvider {
	case "fcm":
		pushService, err = notification.NewFCMPushService(
			context.Background(), cfg.FirebaseCredentialsPath, os.Getenv("FIREBASE_CREDENTIALS_JSON"))
		if err != nil {
			log.Fatal("❌ Failed to init FCM: ", err)
		}
		log.Println("   ✅ Using FCM for push notifications")
	default:
		pushService = notification.NewMockPushService()
		log.Println("   ⚠️  Using mock push provider (development mode)")
	}

	hub := notification.NewHub()
	go hub.Run()

	profileRepo := profile.NewPostgresRepository(db)
	tokenRepo := notification.NewPostgresTokenRepository(db)
	gateway := notification.NewGateway(
		profileRepo,
		emailService,
		pushService,
		tokenRepo,
		hub,
		cfg.EnableEmailNotifications,
		cfg.EnablePushNotifications,
	)
	log.Println("✅ Notification stack initialized")

	// 7. Build the matching core
	matchingRepo := matching.NewPostgresRepository(db)
	resolver := geo.NewStaticResolver()

	defaults := matching.MatchPreference{
		MaxDistanceKm:       cfg.DefaultMaxDistanceKm,
		AgeFlexibilityYears: cfg.DefaultAgeFlexibilityYears,
		Enabled:             true,
	}

	scheduleFinder := matching.NewScheduleCandidateFinder(matchingRepo, profileRepo, resolver, defaults)
	profileFinder := matching.NewProfileCandidateFinder(matchingRepo, profileRepo, resolver, defaults)
	scheduleReconciler := matching.NewScheduleReconciler(matchingRepo)
	profileReconciler := matching.NewProfileReconciler(matchingRepo)
	throttle := matching.NewNotificationThrottle(redisClient, cfg.NotificationCooldown)

	orchestrator := matching.NewOrchestrator(
		matchingRepo,
		profileRepo,
		scheduleFinder,
		profileFinder,
		scheduleReconciler,
		profileReconciler,
		gateway,
		throttle,
		cfg.SweepBatchPause,
	)

	matchingService := matching.NewService(matchingRepo, profileRepo, orchestrator, defaults)
	log.Println("✅ Matching core initialized")

	// 8. Start background jobs
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.EnableScheduledSweeps {
		scheduler := matching.NewScheduler(orchestrator, matching.SchedulerConfig{
			ScheduleSweepHour: cfg.ScheduleSweepHour,
			ProfileSweepHour:  cfg.ProfileSweepHour,
			DigestWeekday:     cfg.DigestWeekday,
			DigestHour:        cfg.DigestHour,
			ReminderHour:      cfg.ReminderHour,
		})
		scheduler.Start(ctx)
		log.Println("✅ Background sweeps scheduled")
	}

	// 9. Wire up routes
	router := mux.NewRouter()
	authMiddleware := auth.NewMiddleware(cfg.JWTSecret)

	matching.RegisterRoutes(router, matching.NewHandlers(matchingService), authMiddleware)
	notification.RegisterRoutes(router, notification.NewHandlers(tokenRepo, hub), authMiddleware)

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// 10. Start the server with graceful shutdown
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🌐 Server listening on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("❌ Server failed: ", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal("❌ Server forced to shutdown: ", err)
	}

	log.Println("✅ Server exited")
}

// runMigrations creates the schema if it does not exist yet.
func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS profiles (
            id BIGSERIAL PRIMARY KEY,
            display_name VARCHAR(100) NOT NULL,
            email VARCHAR(255) UNIQUE NOT NULL,
            city VARCHAR(100) NOT NULL,
            is_enabled BOOLEAN DEFAULT TRUE,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE TABLE IF NOT EXISTS dependents (
            id BIGSERIAL PRIMARY KEY,
            profile_id BIGINT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
            name VARCHAR(100) NOT NULL,
            age INT NOT NULL CHECK (age >= 0)
        )`,

		`CREATE TABLE IF NOT EXISTS availability_slots (
            id BIGSERIAL PRIMARY KEY,
            owner_id BIGINT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
            day_of_week INT NOT NULL CHECK (day_of_week BETWEEN 0 AND 6),
            time_band VARCHAR(20) NOT NULL,
            is_active BOOLEAN DEFAULT TRUE,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            UNIQUE(owner_id, day_of_week, time_band)
        )`,

		`CREATE TABLE IF NOT EXISTS match_preferences (
            owner_id BIGINT PRIMARY KEY REFERENCES profiles(id) ON DELETE CASCADE,
            max_distance_km DOUBLE PRECISION NOT NULL,
            age_flexibility_years INT NOT NULL,
            enabled BOOLEAN DEFAULT TRUE,
            last_run_at TIMESTAMP,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE TABLE IF NOT EXISTS schedule_matches (
            id BIGSERIAL PRIMARY KEY,
            owner_id BIGINT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
            peer_id BIGINT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
            shared_slots JSONB NOT NULL,
            score INT NOT NULL,
            distance_km DOUBLE PRECISION NOT NULL,
            computed_at TIMESTAMP NOT NULL,
            UNIQUE(owner_id, peer_id)
        )`,

		`CREATE TABLE IF NOT EXISTS profile_matches (
            id BIGSERIAL PRIMARY KEY,
            user1_id BIGINT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
            user2_id BIGINT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
            score INT NOT NULL,
            distance_km DOUBLE PRECISION NOT NULL,
            common_age_ranges JSONB NOT NULL,
            status VARCHAR(20) NOT NULL DEFAULT 'pending',
            notified_at TIMESTAMP,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            expires_at TIMESTAMP NOT NULL,
            CHECK (user1_id < user2_id)
        )`,

		`CREATE TABLE IF NOT EXISTS device_tokens (
            id BIGSERIAL PRIMARY KEY,
            user_id BIGINT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
            token VARCHAR(255) UNIQUE NOT NULL,
            platform VARCHAR(20) NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE INDEX IF NOT EXISTS idx_slots_day_band ON availability_slots(day_of_week, time_band) WHERE is_active = TRUE`,
		`CREATE INDEX IF NOT EXISTS idx_schedule_matches_owner ON schedule_matches(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_profile_matches_users ON profile_matches(user1_id, user2_id)`,
		`CREATE INDEX IF NOT EXISTS idx_profile_matches_expiry ON profile_matches(expires_at)`,
		`CREATE INDEX IF NOT EXISTS idx_dependents_profile ON dependents(profile_id)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return err
		}
	}
	return nil
}
