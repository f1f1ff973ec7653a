package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"eventdesk/internal/assets"
	"eventdesk/internal/attendance"
	"eventdesk/internal/auth"
	"eventdesk/internal/certificate"
	"eventdesk/internal/config"
	"eventdesk/internal/device"
	"eventdesk/internal/httpapi"
	"eventdesk/internal/httpmiddleware"
	"eventdesk/internal/i18n"
	"eventdesk/internal/jobs"
	"eventdesk/internal/logging"
	"eventdesk/internal/mailer"
	"eventdesk/internal/metrics"
	"eventdesk/internal/observability"
	"eventdesk/internal/participant"
	"eventdesk/internal/program"
	"eventdesk/internal/queue"
	"eventdesk/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	logg, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logg.Closer()

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, "eventdesk-api")
	if err != nil {
		logg.Base.Warn("sentry init failed", zap.Error(err))
	}
	defer flush()

	if err := runHTTP(cfg, logg.Base); err != nil {
		logg.Base.Fatal("http server failed", zap.Error(err))
	}
}

func runHTTP(cfg config.App, logger *zap.Logger) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := store.Migrate(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		return err
	}

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "eventdesk:deliveries")
	}

	post := mailer.New(cfg.MailerBaseURL, cfg.MailerSkip)
	if cfg.MailerSkip {
		logger.Info("mailer in skip mode, deliveries are no-ops")
	} else if err := post.Health(context.Background()); err != nil {
		logger.Warn("mailer not reachable at startup", zap.Error(err))
	}

	var cdnClient *assets.Client
	if cfg.CloudinaryCloudName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		cdnClient = assets.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		logger.Info("cloudinary configured", zap.String("cloud", cfg.CloudinaryCloudName))
	} else {
		logger.Info("cloudinary not configured, asset uploads disabled")
	}

	participantRepo := participant.NewRepository(db.Client)
	attendanceRepo := attendance.NewRepository(db.Client)
	certificateRepo := certificate.NewRepository(db.Client)
	programRepo := program.NewRepository(db.Client)
	deviceRepo := device.NewRepository(db.Client)
	admins := auth.NewAdmins(db.Client)
	feed := device.NewRedisFeed(redisClient.Client)

	participants := participant.NewService(participantRepo, q, logger)
	attendanceSvc := attendance.NewService(attendanceRepo, participantRepo, logger)
	certificates := certificate.NewService(certificateRepo, participantRepo, programRepo, post, logger)
	devices := device.NewService(deviceRepo, feed, logger)

	h := httpapi.New(httpapi.Deps{
		Participants: participants,
		Attendance:   attendanceSvc,
		AttExports:   attendanceRepo,
		Certificates: certificates,
		Programs:     programRepo,
		Devices:      devices,
		Feed:         feed,
		Admins:       admins,
		Assets:       cdnClient,
		Translator:   i18n.NewTranslator(cfg.DefaultLocale),
		Log:          logger,
		JWTIssuer:    cfg.JWTIssuer,
		JWTKey:       cfg.JWTSigningKey,
		AccessTTL:    cfg.AccessTTL,
		RefreshTTL:   cfg.RefreshTTL,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Client.PingContext(c.Request.Context()) == nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	h.Routes(r)

	jobCtx, stopJobs := context.WithCancel(context.Background())
	defer stopJobs()
	runner := jobs.New(jobCtx)
	runner.Every(cfg.DevicePruneEvery, "device_prune", func(ctx context.Context) error {
		return devices.PruneStale(ctx, cfg.DeviceTTL)
	})
	runner.Every(30*time.Second, "db_ping", func(ctx context.Context) error {
		start := time.Now()
		err := db.Client.PingContext(ctx)
		metrics.ObserveDBPing(time.Since(start))
		return err
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")
	stopJobs()

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server forced shutdown", zap.Error(err))
	}

	logger.Info("server exited")
	return nil
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, Accept-Language")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only add HSTS in production
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
