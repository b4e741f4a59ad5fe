package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	challengecontroller "skillforge/internal/challenge/controller"
	challengerepo "skillforge/internal/challenge/repository"
	challengeservice "skillforge/internal/challenge/service"
	"skillforge/internal/common/cache"
	"skillforge/internal/common/db"
	"skillforge/internal/common/http/middleware"
	"skillforge/internal/common/mq"
	"skillforge/internal/common/storage"
	identityrepo "skillforge/internal/identity/repository"
	identityservice "skillforge/internal/identity/service"
	solutioncontroller "skillforge/internal/solution/controller"
	solutionrepo "skillforge/internal/solution/repository"
	solutionservice "skillforge/internal/solution/service"
	"skillforge/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Fatal(context.Background(), "service exited", zap.Error(err))
	}
}

func run(cfg *AppConfig) error {
	ctx := context.Background()

	database, err := db.NewMySQLWithConfig(&cfg.MySQL)
	if err != nil {
		return fmt.Errorf("connect mysql: %w", err)
	}
	defer database.Close()
	dbProvider := db.NewStaticProvider(database)

	redisCache, err := cache.NewRedisCacheWithConfig(&cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisCache.Close()

	var producer mq.Producer
	if cfg.Events.Enabled {
		kafkaProducer, err := mq.NewKafkaProducer(cfg.Events.Kafka)
		if err != nil {
			return fmt.Errorf("create kafka producer: %w", err)
		}
		defer kafkaProducer.Close()
		producer = kafkaProducer
	}

	var objectStorage storage.ObjectStorage
	if cfg.Archive.Enabled {
		minioStorage, err := storage.NewMinIOStorage(cfg.Archive.MinIO)
		if err != nil {
			return fmt.Errorf("create minio client: %w", err)
		}
		objectStorage = minioStorage
	}

	profileRepo := identityrepo.NewProfileRepository(dbProvider, redisCache)
	challengeRepo := challengerepo.NewChallengeRepository(dbProvider, redisCache)
	solutionRepo := solutionrepo.NewSolutionRepository(dbProvider, redisCache)

	identitySvc, err := identityservice.NewIdentityService(identityservice.Config{
		Profiles:  profileRepo,
		JWTSecret: cfg.Auth.JWTSecret,
		JWTIssuer: cfg.Auth.JWTIssuer,
	})
	if err != nil {
		return fmt.Errorf("create identity service: %w", err)
	}

	challengeSvc := challengeservice.NewChallengeService(challengeRepo)

	solutionSvc, err := solutionservice.NewSolutionService(solutionservice.Config{
		DB:            dbProvider,
		Solutions:     solutionRepo,
		Challenges:    challengeRepo,
		Cache:         redisCache,
		Producer:      producer,
		EventTopic:    cfg.Events.Topic,
		Storage:       objectStorage,
		ArchiveBucket: cfg.Archive.MinIO.Bucket,
		ArchiveTTL:    cfg.Archive.MinIO.PresignTTL.Std(),
		SubmitLimit:   cfg.Submit.Limit,
		SubmitWindow:  cfg.Submit.Window.Std(),
	})
	if err != nil {
		return fmt.Errorf("create solution service: %w", err)
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.TraceContextMiddleware())

	router.GET("/health", func(c *gin.Context) {
		if err := database.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "up"})
	})

	api := router.Group("/api")
	solutioncontroller.NewSolutionController(solutionSvc, identitySvc).RegisterRoutes(api, identitySvc)
	challengecontroller.NewChallengeController(challengeSvc, identitySvc).RegisterRoutes(api, identitySvc)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "http server listening", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-quit:
		logger.Info(ctx, "shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout.Std())
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
