package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/dreamreel/dreamreel-api/internal/billing"
	"github.com/dreamreel/dreamreel-api/internal/config"
	"github.com/dreamreel/dreamreel-api/internal/db"
	"github.com/dreamreel/dreamreel-api/internal/entitlement"
	"github.com/dreamreel/dreamreel-api/internal/generation"
	internalhttp "github.com/dreamreel/dreamreel-api/internal/http"
	"github.com/dreamreel/dreamreel-api/internal/identity"
	"github.com/dreamreel/dreamreel-api/internal/ledger"
	"github.com/dreamreel/dreamreel-api/internal/limits"
	"github.com/dreamreel/dreamreel-api/internal/logging"
	"github.com/dreamreel/dreamreel-api/internal/payments"
	"github.com/dreamreel/dreamreel-api/internal/storage"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	flag.Parse()

	cfg, errLoad := config.Load(*configPath)
	if errLoad != nil {
		log.Fatalf("config: %v", errLoad)
	}
	logging.Setup(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		log.Fatalf("database open: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		log.Fatalf("database migrate: %v", errMigrate)
	}

	var resolver identity.Resolver
	if cfg.Identity.JWTSecret != "" {
		resolver = identity.NewJWTResolver(cfg.Identity.JWTSecret)
	} else {
		resolver = identity.NewProviderResolver(cfg.Identity.ProviderURL, cfg.Identity.AnonKey)
	}

	var uploader storage.Mirrorer
	if cfg.Storage.Bucket != "" {
		s3Uploader, errUploader := storage.NewUploader(storage.Config{
			Endpoint:      cfg.Storage.Endpoint,
			Region:        cfg.Storage.Region,
			AccessKey:     cfg.Storage.AccessKey,
			SecretKey:     cfg.Storage.SecretKey,
			Bucket:        cfg.Storage.Bucket,
			PublicBaseURL: cfg.Storage.PublicBaseURL,
			UsePathStyle:  cfg.Storage.UsePathStyle,
		})
		if errUploader != nil {
			log.Fatalf("storage uploader: %v", errUploader)
		}
		uploader = s3Uploader
	}

	var dedup billing.Deduper
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if errPing := redisClient.Ping(ctx).Err(); errPing != nil {
			log.Fatalf("redis ping: %v", errPing)
		}
		dedup = billing.NewRedisDeduper(redisClient)
	}

	entitlements := entitlement.NewStore(conn)
	usage := ledger.NewLedger(conn)
	table := cfg.TierTable()
	paymentsClient := payments.NewClient(cfg.Payments.SecretKey, cfg.Payments.BaseURL)
	media := storage.NewMediaStore(conn, uploader)

	router := internalhttp.NewRouter(internalhttp.Options{
		Resolver:     resolver,
		Enforcer:     limits.NewEnforcer(entitlements, usage, table),
		Entitlements: entitlements,
		Usage:        usage,
		Tiers:        table,
		Payments:     paymentsClient,
		PaymentsCfg:  cfg.Payments,
		Sync:         billing.NewSynchronizer(entitlements, paymentsClient, cfg.PriceToTier(), dedup, conn),
		Videos:       generation.NewVideoClient(cfg.Generation.VideoAPIKey, cfg.Generation.VideoBaseURL),
		Images:       generation.NewImageClient(cfg.Generation.ImageAPIKey, cfg.Generation.ImageBaseURL),
		Media:        media,
	})

	billing.NewRetentionCleaner(conn, cfg.WebhookRetentionDays).Start(ctx)

	server := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
			log.Errorf("server shutdown: %v", errShutdown)
		}
	}()

	log.Infof("listening on %s", cfg.Server.Listen)
	if errServe := server.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
		log.Fatalf("server: %v", errServe)
	}
}
