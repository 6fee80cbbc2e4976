package main

import (
	"alcyxob/coach-scheduler/internal/api" // Import API package
	"alcyxob/coach-scheduler/internal/config"
	"alcyxob/coach-scheduler/internal/repository"
	"alcyxob/coach-scheduler/internal/repository/mongo"
	"alcyxob/coach-scheduler/internal/repository/sqlite"
	"alcyxob/coach-scheduler/internal/service"
	"alcyxob/coach-scheduler/internal/storage"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

// repositories is the set of stores the services are built on.
type repositories struct {
	coaches      repository.CoachRepository
	clients      repository.ClientRepository
	sessions     repository.SessionRepository
	availability repository.AvailabilityRepository
	holidays     repository.HolidayRepository
	progress     repository.ProgressRepository
	workouts     repository.WorkoutRepository
	slots        repository.TimeSlotRepository
	grades       repository.GradeRepository
}

// @title Coach Scheduler API
// @version 1.0
// @description Session scheduling, lifecycle and consistency analytics for coaches.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	log.Println("Starting Coach Scheduler Server...")

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}
	loc, err := cfg.Scheduling.Location()
	if err != nil {
		log.Fatalf("FATAL: Invalid scheduling.timezone %q: %v", cfg.Scheduling.Timezone, err)
	}
	log.Printf("Configuration loaded (database driver %s, timezone %s).", cfg.Database.Driver, loc)

	// --- Database Connection ---
	repos, closeDB, err := openRepositories(cfg.Database)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	defer closeDB()

	// --- Initialize Storage ---
	var fileStorage storage.FileStorage
	if cfg.S3.BucketName == "" {
		log.Println("WARN: s3.bucket_name is empty; progress attachments are disabled.")
	} else {
		log.Println("Initializing file storage service...")
		fileStorage, err = storage.NewS3Storage(cfg.S3)
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize S3 storage: %v", err)
		}
	}

	// --- Initialize Services ---
	log.Println("Initializing services...")
	scopeResolver := service.NewScopeResolver(repos.coaches)
	authService := service.NewAuthService(repos.coaches, cfg.JWT.Secret, cfg.JWT.Expiration)
	availabilityService := service.NewAvailabilityService(repos.availability, repos.holidays, service.SystemClock)
	scheduleService := service.NewScheduleService(repos.sessions, repos.clients, availabilityService, service.ScheduleOptions{
		Location:           loc,
		MaxRecurrenceCount: cfg.Scheduling.MaxRecurrenceCount,
	})
	lifecycleService := service.NewLifecycleService(repos.sessions, repos.workouts, service.SystemClock)
	clientService := service.NewClientService(repos.clients, repos.progress, fileStorage, service.SystemClock)
	analyticsService := service.NewAnalyticsService(repos.clients, repos.sessions, repos.progress, cfg.Scheduling.DefaultWindowDays, service.SystemClock)
	slotService := service.NewSlotService(repos.slots, scheduleService, service.SystemClock)
	gradingService := service.NewGradingService(repos.grades, repos.sessions, repos.clients)

	// --- Initialize Gin Engine ---
	gin.SetMode(cfg.Server.Mode)
	router := gin.Default() // Includes Logger and Recovery middleware

	// --- Setup Routes ---
	log.Println("Setting up API routes...")
	api.SetupRoutes(router, cfg.JWT.Secret, scopeResolver, authService,
		scheduleService, lifecycleService, availabilityService, clientService, analyticsService,
		slotService, gradingService)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Server starting on %s", cfg.Server.Address)

	// --- Graceful Shutdown ---
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: ListenAndServe Error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Printf("ERROR: Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}

// openRepositories connects the configured backend. The returned func closes it.
func openRepositories(cfg config.DatabaseConfig) (*repositories, func(), error) {
	switch cfg.Driver {
	case "sqlite":
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("could not open SQLite database: %w", err)
		}
		log.Printf("SQLite database opened at %s.", cfg.SQLitePath)
		repos := &repositories{
			coaches:      sqlite.NewCoachStore(db),
			clients:      sqlite.NewClientStore(db),
			sessions:     sqlite.NewSessionStore(db),
			availability: sqlite.NewAvailabilityStore(db),
			holidays:     sqlite.NewHolidayStore(db),
			progress:     sqlite.NewProgressStore(db),
			workouts:     sqlite.NewWorkoutStore(db),
			slots:        sqlite.NewTimeSlotStore(db),
			grades:       sqlite.NewGradeStore(db),
		}
		closeDB := func() {
			if err := db.Close(); err != nil {
				log.Printf("ERROR: Failed to close SQLite database: %v", err)
			}
		}
		return repos, closeDB, nil

	case "mongo", "":
		dbClient, err := mongo.ConnectDB(cfg.URI)
		if err != nil {
			return nil, nil, fmt.Errorf("could not connect to MongoDB: %w", err)
		}
		appDB := dbClient.Database(cfg.Name)
		log.Println("Database connection established.")

		// --- Ensure Indexes ---
		go func() { // Run index creation in background
			ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
			defer cancel()
			if err := mongo.EnsureIndexes(ctx, appDB); err != nil {
				// Without the batch index, replayed recurring requests can duplicate sessions.
				log.Printf("ERROR: Index creation incomplete: %v", err)
				return
			}
			log.Println("Index creation process completed.")
		}()

		repos := &repositories{
			coaches:      mongo.NewMongoCoachRepository(appDB),
			clients:      mongo.NewMongoClientRepository(appDB),
			sessions:     mongo.NewMongoSessionRepository(appDB),
			availability: mongo.NewMongoAvailabilityRepository(appDB),
			holidays:     mongo.NewMongoHolidayRepository(appDB),
			progress:     mongo.NewMongoProgressRepository(appDB),
			workouts:     mongo.NewMongoWorkoutRepository(appDB),
			slots:        mongo.NewMongoTimeSlotRepository(appDB),
			grades:       mongo.NewMongoGradeRepository(appDB),
		}
		closeDB := func() {
			log.Println("Disconnecting MongoDB...")
			if err := mongo.DisconnectDB(dbClient); err != nil {
				log.Printf("ERROR: Failed to disconnect MongoDB: %v", err)
			}
		}
		return repos, closeDB, nil

	default:
		return nil, nil, fmt.Errorf("unknown database.driver %q (want mongo or sqlite)", cfg.Driver)
	}
}
