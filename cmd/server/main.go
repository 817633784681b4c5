package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"adventure-server/internal/config"
	"adventure-server/internal/handler"
	"adventure-server/internal/service"
	"adventure-server/pkg/migration"
	"adventure-server/pkg/storygraph"
	"adventure-server/shared/authutils"
	"adventure-server/shared/database"
	"adventure-server/shared/database/migrations"
	"adventure-server/shared/interfaces"
	sharedLogger "adventure-server/shared/logger"
	"adventure-server/shared/messaging"
	sharedMiddleware "adventure-server/shared/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

func main() {
	// .env нужен только для локального запуска.
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, relying on environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := sharedLogger.New(sharedLogger.Config{
		Level:       cfg.LogLevel,
		Encoding:    cfg.LogEncoding,
		ServiceName: "adventure-server",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)
	logger.Info("Configuration loaded", cfg.LogFields()...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- PostgreSQL ---
	pool, err := database.NewPool(ctx, database.PoolConfig{
		DSN:         cfg.GetDSN(),
		MaxConns:    cfg.DBMaxConns,
		IdleTimeout: cfg.DBIdleTimeout,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pool.Close()

	if cfg.AutoMigrate {
		migLog := zerolog.New(os.Stdout).With().Timestamp().Str("service", "adventure-server").Logger()
		if err := migration.NewMigrator(migration.Config{FS: migrations.FS}, pool, migLog).Up(); err != nil {
			logger.Fatal("Failed to apply database migrations", zap.Error(err))
		}
	}

	// --- Redis (необязателен) ---
	var redisClient *redis.Client
	var statsCache interfaces.EndingStatsCache = database.NoopStatsCache{}
	if cfg.RedisAddr != "" {
		redisClient, err = database.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		statsCache = database.NewRedisStatsCache(redisClient, cfg.StatsCacheTTL, logger)
	} else {
		logger.Info("REDIS_ADDR not set, ending stats are not cached")
	}

	// --- RabbitMQ (необязателен) ---
	var publisher interfaces.PlayEventPublisher = messaging.NoopPlayEventPublisher{}
	if cfg.RabbitMQURL != "" {
		var mqConn *amqp.Connection
		mqConn, err = messaging.Connect(ctx, cfg.RabbitMQURL, 10, 3*time.Second, logger)
		if err != nil {
			logger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer mqConn.Close()
		playPublisher, err := messaging.NewRabbitMQPlayEventPublisher(mqConn, cfg.PlayEventsExchange, logger)
		if err != nil {
			logger.Fatal("Failed to create play event publisher", zap.Error(err))
		}
		defer playPublisher.Close()
		publisher = playPublisher
	} else {
		logger.Info("RABBITMQ_URL not set, play events are not published")
	}

	// --- Auth ---
	verifier, err := authutils.NewJWTVerifier(cfg.JWTSecret, logger)
	if err != nil {
		logger.Fatal("Failed to create JWT verifier", zap.Error(err))
	}
	var apiKeys sharedMiddleware.APIKeyVerifier
	if cfg.ContentAPIKeyHash != "" {
		checker, err := authutils.NewAPIKeyChecker(cfg.ContentAPIKeyHash)
		if err != nil {
			logger.Fatal("Invalid content API key hash", zap.Error(err))
		}
		apiKeys = checker
	}

	// --- Dependency Injection ---
	txHelper := database.NewTransactionHelper(pool, logger)
	storyRepo := database.NewPgStoryRepository(logger)
	pageRepo := database.NewPgPageRepository(logger)
	choiceRepo := database.NewPgChoiceRepository(logger)
	sessionRepo := database.NewPgPlaySessionRepository(logger)
	playRepo := database.NewPgPlayRepository(logger)

	storyService := service.NewStoryService(pool, txHelper, storyRepo, pageRepo, choiceRepo, statsCache, logger)
	sessionManager := service.NewSessionManager(pool, sessionRepo, storyRepo, logger)
	pathRecorder := service.NewPathRecorder(sessionRepo, playRepo, sessionManager, logger)
	gameplayService := service.NewGameplayService(pool, txHelper, storyRepo, pageRepo, sessionManager, pathRecorder,
		statsCache, publisher, storygraph.RandomRoller{}, logger)
	analyticsService := service.NewAnalyticsService(pool, storyRepo, pageRepo, playRepo, statsCache, logger)

	h := handler.NewHandler(storyService, gameplayService, analyticsService, cfg.TopStoriesLimit, logger)

	// --- HTTP Server Setup (Gin) ---
	gin.SetMode(gin.ReleaseMode)
	if !cfg.IsProduction() {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.Use(sharedMiddleware.GinZapLogger(logger))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization",
		sharedMiddleware.SessionKeyHeader, sharedMiddleware.APIKeyHeader, sharedMiddleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{sharedMiddleware.RequestIDHeader}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Prometheus до регистрации роутов: gin не применяет middleware к уже добавленным маршрутам.
	p := ginprometheus.NewPrometheus("gin")
	p.Use(router)

	healthHandler := func(c *gin.Context) {
		if err := pool.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)

	var playMiddleware []gin.HandlerFunc
	if cfg.PlayRateLimit > 0 {
		playMiddleware = append(playMiddleware, sharedMiddleware.PlayRateLimiter(redisClient, cfg.PlayRateLimit, time.Minute, logger))
	}
	api := router.Group("", sharedMiddleware.ResolvePrincipal(verifier, apiKeys, logger))
	h.RegisterRoutes(api, playMiddleware...)

	// --- Фоновая очистка брошенных сессий ---
	if cfg.SessionSweepInterval > 0 {
		go runSessionSweeper(ctx, sessionManager, cfg.SessionTTL, cfg.SessionSweepInterval, logger)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server listen error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server forced to shutdown", zap.Error(err))
	}
	logger.Info("Server exiting")
}

// runSessionSweeper periodically removes sessions untouched for ttl.
func runSessionSweeper(ctx context.Context, sessions service.SessionManager, ttl, interval time.Duration, logger *zap.Logger) {
	log := logger.Named("SessionSweeper")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := sessions.SweepStale(ctx, ttl)
			if err != nil {
				log.Error("Session sweep failed", zap.Error(err))
				continue
			}
			log.Debug("Session sweep finished", zap.Int64("removed", removed))
		}
	}
}
