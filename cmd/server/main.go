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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/feedback-app/internal/activity"
	"github.com/ayush/feedback-app/internal/auth"
	"github.com/ayush/feedback-app/internal/config"
	"github.com/ayush/feedback-app/internal/form"
	"github.com/ayush/feedback-app/internal/server"
	"github.com/ayush/feedback-app/internal/store"
	"github.com/ayush/feedback-app/internal/web"
)

func main() {
	envFile := flag.String("env-file", ".env", "optional dotenv file loaded before the environment")
	port := flag.String("port", "", "listen port, overrides PORT")
	migrateOnly := flag.Bool("migrate-only", false, "apply database migrations and exit")
	flag.Parse()

	cfg := config.Load(*envFile)
	if *port != "" {
		cfg.Port = *port
	}

	log := newLogger(cfg)
	if err := run(cfg, *migrateOnly, log); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}

// run owns every connection it opens; returning closes them.
func run(cfg *config.Config, migrateOnly bool, log *logrus.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	ctx := context.Background()

	// ── PostgreSQL ────────────────────────────────────────────
	pgPool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("postgres connect: %w", err)
	}
	defer pgPool.Close()
	pgStore := store.NewPostgresStore(pgPool)
	if err := pgStore.Migrate(ctx); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	if migrateOnly {
		log.Info("migrations applied")
		return nil
	}

	// ── Redis ────────────────────────────────────────────────
	rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return fmt.Errorf("redis connect: %w", err)
	}
	defer rdb.Close()
	sessions := auth.NewSessions(auth.NewSessionStore(rdb, cfg.SessionTTL), cfg.SessionSecret, cfg.SessionTTL, cfg.CookieSecure)

	// ── MongoDB (activity log, optional) ─────────────────────
	var activityStore activity.Store = store.NopActivityStore{}
	if cfg.MongoURI != "" {
		mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return fmt.Errorf("mongo connect: %w", err)
		}
		defer mongoClient.Disconnect(context.Background())
		mongoStore := store.NewActivityStore(mongoClient.Database(cfg.MongoDB))
		if err := mongoStore.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("mongo indexes: %w", err)
		}
		activityStore = mongoStore
	} else {
		log.Info("MONGO_URI not set, activity log disabled")
	}

	app := &server.App{
		Store:          pgStore,
		Sessions:       sessions,
		Activity:       activity.NewLog(activityStore, log),
		Forms:          form.New(),
		Log:            log,
		AllowedOrigins: cfg.AllowedOrigins,
	}

	// ── MinIO (exports, optional) ────────────────────────────
	if cfg.MinioEndpoint != "" {
		exports, err := store.NewExportStore(
			ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
			cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL,
		)
		if err != nil {
			return fmt.Errorf("minio connect: %w", err)
		}
		app.Exports = exports
	} else {
		log.Info("MINIO_ENDPOINT not set, exports disabled")
	}

	// ── Views ────────────────────────────────────────────────
	app.Views, err = web.NewViews(log)
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.NewRouter(app),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Port).Info("feedback app listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}

	log.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	if cfg.Production() {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("unknown LOG_LEVEL, using info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}
