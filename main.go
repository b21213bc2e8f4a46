package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"

	"techsymposium/internal/auth"
	"techsymposium/internal/config"
	"techsymposium/internal/database"
	"techsymposium/internal/imagestore"
	"techsymposium/internal/imagestore/upload_api"
	"techsymposium/internal/kafka"
	"techsymposium/internal/lock"
	"techsymposium/internal/logger"
	"techsymposium/internal/metrics"
	"techsymposium/internal/pass"
	"techsymposium/internal/query"
	"techsymposium/internal/query/query_api"
	"techsymposium/internal/registration"
	"techsymposium/internal/registration/db"
	"techsymposium/internal/registration/registration_api"
	"techsymposium/internal/utils"
	"techsymposium/internal/wizard"
	"techsymposium/internal/wizard/wizard_api"
)

func verifyConnections(ctx context.Context, cfg *config.Config, log *logger.Logger) (*bun.DB, *redis.Client) {
	bunDB, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Database connection error: %v", err))
	}
	log.Info("DATABASE", fmt.Sprintf("✅ %s connection successful", cfg.Database.Driver))

	redisClient, err := lock.Connect(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}
	log.Info("DATABASE", fmt.Sprintf("✅ Redis connection successful to %s (DB: %d)", cfg.Redis.Addr, cfg.Redis.DB))
	return bunDB, redisClient
}

// newImageStore prefers Cloudinary and falls back to the local upload dir.
func newImageStore(cfg *config.Config, log *logger.Logger) (imagestore.Store, bool) {
	if cfg.Cloudinary.Enabled() {
		store, err := imagestore.NewCloudinaryStore(cfg.Cloudinary)
		if err == nil {
			log.Info("UPLOAD", fmt.Sprintf("Using Cloudinary folder %q", cfg.Cloudinary.Folder))
			return store, false
		}
		log.Error("UPLOAD", fmt.Sprintf("Cloudinary unavailable, using local disk: %v", err))
	}
	store, err := imagestore.NewDiskStore(cfg.Uploads.Dir, cfg.Uploads.BaseURL)
	if err != nil {
		log.Fatal("UPLOAD", fmt.Sprintf("Failed to prepare upload dir %s: %v", cfg.Uploads.Dir, err))
	}
	log.Info("UPLOAD", fmt.Sprintf("Using local upload dir %s", cfg.Uploads.Dir))
	return store, true
}

func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log.LogAPI(r.Method, r.URL.Path, strconv.Itoa(status), time.Since(start).String())
		})
	}
}

func healthHandler(bunDB *bun.DB, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{"database": "ok", "redis": "ok"}
		healthy := true
		if err := bunDB.PingContext(ctx); err != nil {
			checks["database"] = err.Error()
			healthy = false
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		}
		if !healthy {
			utils.WriteJSON(w, http.StatusServiceUnavailable, utils.APIResponse{
				Success:   false,
				Message:   "Service degraded",
				Data:      checks,
				Error:     "unhealthy",
				Timestamp: time.Now().UTC(),
			})
			return
		}
		utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Service healthy", checks))
	}
}

func main() {
	logger := logger.NewLogger("techsymposium")
	defer logger.Close()

	logger.Info("APP", "Starting Tech Symposium registration service")

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		logger.Info("CONFIG", "Loaded environment variables from .env file")
	}
	cfg := config.Load()
	ctx := context.Background()

	logger.Info("APP", "Verifying database connections")
	bunDB, redisClient := verifyConnections(ctx, cfg, logger)
	defer bunDB.Close()
	defer redisClient.Close()

	if err := prepareSchema(ctx, bunDB, cfg.Database, logger); err != nil {
		logger.Fatal("MIGRATE", fmt.Sprintf("Failed to prepare schema: %v", err))
	}

	collector := metrics.NewCollector()
	store := &db.DB{Bun: bunDB}
	locker := lock.NewRedis(redisClient, logger)
	validator := registration.NewValidator()
	fees := registration.NewFeeCalculator(cfg.Registration.FeePerParticipant)

	registrationService := registration.NewService(store, validator, fees, logger)
	registrationService.Locker = locker
	registrationService.Metrics = collector
	registrationService.LockTTL = cfg.Registration.SubmissionLockTTL

	if cfg.Kafka.Enabled {
		logger.Info("KAFKA", fmt.Sprintf("Using Kafka brokers: %s", strings.Join(cfg.Kafka.Brokers, ",")))
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics, logger)
		defer producer.Close()
		logger.Info("KAFKA", "Kafka producer initialized successfully")

		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, []string{cfg.Kafka.Topics.RegistrationCreated}, logger); err != nil {
			logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			logger.Info("KAFKA", "Required topics ensured successfully")
		}
		registrationService.Publisher = producer
	} else {
		logger.Warn("KAFKA", "Kafka disabled, registration events will not be published")
	}

	imageStore, onDisk := newImageStore(cfg, logger)
	uploader := imagestore.NewUploader(imageStore, collector, logger)

	wizardService := wizard.NewService(
		wizard.NewRedisDraftStore(redisClient, cfg.Registration.DraftTTL),
		validator,
		fees,
		registrationService,
		uploader,
		locker,
		logger,
	)
	wizardService.Events = store
	wizardService.Metrics = collector

	if cfg.Pass.UsesDefaultSecret() {
		logger.LogSecurity("PASS", "PASS_SECRET is the development default; entry passes can be forged")
	}
	passes, err := pass.NewGenerator(cfg.Pass.Secret)
	if err != nil {
		logger.Fatal("CONFIG", fmt.Sprintf("Invalid pass secret: %v", err))
	}

	verifier, err := auth.NewVerifier(ctx, cfg.Auth)
	if err != nil {
		logger.Fatal("AUTH", fmt.Sprintf("Failed to initialise token verifier: %v", err))
	}

	queryService := query.NewService(bunDB)
	registrationHandler := registration_api.NewHandler(registrationService, store, passes, logger)
	wizardHandler := wizard_api.NewHandler(wizardService, cfg.Uploads.MaxBytes, logger)
	uploadHandler := upload_api.NewHandler(uploader, cfg.Uploads.MaxBytes, logger)
	queryHandler := query_api.NewHandler(queryService, logger)

	logger.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(collector.Middleware)
	r.Use(requestLogger(logger))

	// --- Public Routes ---
	r.Get("/health", healthHandler(bunDB, redisClient))
	r.Handle("/metrics", collector.Handler())

	queryHandler.RegisterRoutes(r)
	logger.Info("ROUTER", "Event routes registered under /api/events")
	registrationHandler.RegisterRoutes(r)
	logger.Info("ROUTER", "Registration routes registered under /api/register")
	wizardHandler.RegisterRoutes(r)
	logger.Info("ROUTER", "Wizard routes registered under /api/wizard")
	uploadHandler.RegisterRoutes(r)
	logger.Info("ROUTER", "Upload route registered at /api/uploads")

	if onDisk {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.Uploads.Dir))))
		logger.Info("ROUTER", fmt.Sprintf("Serving uploaded files from %s", cfg.Uploads.Dir))
	}

	// --- Admin Routes ---
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAdmin(verifier, logger))
		logger.Info("AUTH", "Admin middleware applied to dashboard routes")

		queryHandler.RegisterAdminRoutes(r)
		registrationHandler.RegisterAdminRoutes(r)
		logger.Info("ROUTER", "Admin routes registered under /api/admin")
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("HTTP", fmt.Sprintf("🚀 Registration service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		logger.Info("HTTP", "✅ Registration service shutdown complete")
	}
}
