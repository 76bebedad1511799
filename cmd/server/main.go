// Package main is the entry point for the incident reporting server.
// It serves a REST API for submitting incident reports, an anonymized public
// feed with voting and comments, author-initiated escalation to authorities,
// and model-backed helpers that rewrite, classify and transcribe reports.
//
// Architecture:
//   - Sensitive report and comment fields are AES-256-GCM encrypted at rest
//   - The public feed replaces authorship with per-author pseudonyms
//   - Escalation only commits after the notification broker confirms
//   - Client IP headers are stripped before any handler or log sees them
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aawaaz/incident-server/internal/ai"
	"github.com/aawaaz/incident-server/internal/config"
	"github.com/aawaaz/incident-server/internal/database"
	"github.com/aawaaz/incident-server/internal/fieldcrypt"
	"github.com/aawaaz/incident-server/internal/handlers"
	"github.com/aawaaz/incident-server/internal/media"
	"github.com/aawaaz/incident-server/internal/metrics"
	"github.com/aawaaz/incident-server/internal/notify"
	"github.com/aawaaz/incident-server/internal/services"
	"github.com/aawaaz/incident-server/internal/store"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from environment
	cfg, cfgErr := config.Load()

	// Initialize structured logger
	logger := newLogger(cfg)
	defer logger.Sync()
	sugar := logger.Sugar()

	if cfgErr != nil {
		sugar.Fatalf("Failed to load config: %v", cfgErr)
	}

	sugar.Infow("Starting incident server",
		"port", cfg.Port,
		"env", cfg.Environment,
		"storage", cfg.StorageDriver,
		"model", cfg.GeminiModel,
	)

	metrics.Register()

	codec, err := fieldcrypt.NewCodec(cfg.EncryptionKey, sugar)
	if err != nil {
		sugar.Fatalf("Failed to initialize field encryption: %v", err)
	}

	st, err := openStore(cfg, codec, sugar)
	if err != nil {
		sugar.Fatalf("Failed to open %s store: %v", cfg.StorageDriver, err)
	}
	defer st.Close(context.Background())

	// Optional Redis backing for pseudonyms
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = database.NewRedis(cfg.RedisURL)
		if err != nil {
			sugar.Fatalf("Failed to connect to redis: %v", err)
		}
		defer rdb.Close()
	}

	// Authority notifier
	var notifier services.Notifier
	if cfg.AMQPURL != "" {
		amqpNotifier, err := notify.DialAMQP(cfg.AMQPURL, cfg.NotifyQueue, sugar)
		if err != nil {
			sugar.Fatalf("Failed to connect to notification broker: %v", err)
		}
		defer amqpNotifier.Close()
		notifier = amqpNotifier
	} else {
		sugar.Warn("AMQP_URL not set; escalation notifications are only logged")
		notifier = notify.NewLogNotifier(sugar)
	}

	// Media verification
	var verifier services.MediaVerifier = media.NopVerifier{}
	if cfg.MinioEndpoint != "" {
		verifier, err = media.NewMinioVerifier(media.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		}, sugar)
		if err != nil {
			sugar.Fatalf("Failed to initialize media verifier: %v", err)
		}
	}

	// Generative model pipeline
	pipeline := ai.NewService(
		ai.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiBaseURL),
		cfg.ModelTimeout,
		sugar,
	)
	var relevance services.RelevanceAssessor = pipeline
	if cfg.GeminiAPIKey == "" {
		sugar.Warn("GEMINI_API_KEY not set; the relevance gate is disabled")
		relevance = nil
	}

	// Initialize services
	receipts := services.NewTranscriptReceipts(cfg.JWTSecret, 30*time.Minute)
	activitySvc := services.NewActivityLogService(st, sugar)
	pseudonyms := services.NewPseudonyms(rdb, sugar)
	reportSvc := services.NewReportService(services.ReportDeps{
		Store:     st,
		Relevance: relevance,
		Media:     verifier,
		Notifier:  notifier,
		Receipts:  receipts,
		Activity:  activitySvc,
		Authority: cfg.AuthorityEmail,
	}, sugar)
	feedSvc := services.NewFeedService(st, pseudonyms, sugar)
	commentSvc := services.NewCommentService(st, pseudonyms, activitySvc, sugar)

	// Build router
	router := handlers.NewRouter(handlers.RouterConfig{
		Logger:         logger,
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimitRPM:   cfg.RateLimitRPM,
		JWTSecret:      cfg.JWTSecret,
		Health:         handlers.NewHealthHandler(st, cfg.StorageDriver, sugar),
		Feed:           handlers.NewFeedHandler(feedSvc, sugar),
		Reports:        handlers.NewReportHandler(reportSvc, sugar),
		Comments:       handlers.NewCommentHandler(commentSvc, sugar),
		Activity:       handlers.NewActivityHandler(reportSvc, sugar),
		AI:             handlers.NewAIHandler(pipeline, receipts, cfg.MaxAudioBytes, sugar),
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sugar.Infof("Server listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	sugar.Info("Shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		sugar.Fatalf("Forced shutdown: %v", err)
	}

	sugar.Info("Server stopped")
}

func newLogger(cfg *config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg != nil && cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewExample()
	}
	return logger
}

// openStore connects the configured backend and prepares its schema.
func openStore(cfg *config.Config, codec *fieldcrypt.Codec, logger *zap.SugaredLogger) (store.Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch cfg.StorageDriver {
	case config.DriverPostgres:
		pool, err := database.NewPool(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return store.NewPostgres(pool, codec), nil

	case config.DriverMongo:
		client, err := database.ConnectMongo(cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		st := store.NewMongo(client, cfg.MongoDatabase, codec)
		if err := st.EnsureIndexes(ctx); err != nil {
			_ = st.Close(context.Background())
			return nil, err
		}
		return st, nil

	default:
		logger.Warn("Using the in-memory store; reports are lost on restart")
		return store.NewMemory(codec), nil
	}
}
