package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cmlabs-hris/hris-memorandum-go/internal/config"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/memorandum"
	appHTTP "github.com/cmlabs-hris/hris-memorandum-go/internal/handler/http"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/pkg/broker"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/pkg/cache"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/pkg/clock"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/pkg/cron"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/pkg/database"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/pkg/sse"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/repository/postgresql"
	memorandumService "github.com/cmlabs-hris/hris-memorandum-go/internal/service/memorandum"
	referenceService "github.com/cmlabs-hris/hris-memorandum-go/internal/service/reference"
	"github.com/go-chi/httplog/v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Error loading config: ", err)
	}

	logger := newLogger(cfg.App)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDBContext(ctx, cfg.DatabaseURL())
	if err != nil {
		log.Fatal("Error connecting to database: ", err)
	}
	defer db.Close()

	if err := postgresql.EnsureSchema(ctx, db); err != nil {
		log.Fatal("Failed to apply schema: ", err)
	}

	memorandumRepo := postgresql.NewMemorandumRepository(db)
	eventRepo := postgresql.NewMemorandumEventRepository(db)
	attendanceRepo := postgresql.NewAttendanceRepository(db)
	referenceRepo := postgresql.NewReferenceRepository(db)
	transactor := postgresql.NewTransactor(db)

	var referenceCache cache.Cache = cache.NewMemory()
	if cfg.Redis.Addr != "" {
		redisCache, err := cache.NewRedisCache(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, "hris-memorandum:reference:")
		if err != nil {
			slog.Warn("Redis unavailable, using in-process reference cache", "addr", cfg.Redis.Addr, "error", err)
		} else {
			defer redisCache.Close()
			referenceCache = redisCache
		}
	}

	var publisher broker.Publisher = broker.Noop{}
	if cfg.NATS.URL != "" {
		natsPublisher, err := broker.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			slog.Warn("NATS unavailable, transition events stay local", "url", cfg.NATS.URL, "error", err)
		} else {
			publisher = natsPublisher
		}
	}
	defer publisher.Close()

	systemClock := clock.Real()
	policy := memorandum.NewPolicy(memorandum.NewDeadlineCalculator(systemClock, cfg.Memorandum.Location()))
	hub := sse.NewHub()
	m := metrics.New()

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)

	memorandumSvc := memorandumService.NewMemorandumService(
		memorandumRepo,
		eventRepo,
		attendanceRepo,
		transactor,
		policy,
		publisher,
		hub,
		m,
		cfg.Memorandum,
	)
	referenceSvc := referenceService.NewReferenceService(referenceRepo, referenceCache, cfg.Memorandum.ReferenceCacheTTL)

	memorandumHandler := appHTTP.NewMemorandumHandler(memorandumSvc)
	referenceHandler := appHTTP.NewReferenceHandler(referenceSvc)
	streamHandler := appHTTP.NewStreamHandler(JWTService, hub)

	router := appHTTP.NewRouter(
		appHTTP.RouterConfig{
			Logger:         logger,
			AllowedOrigins: cfg.App.AllowedOrigins,
			Metrics:        m.Handler(),
		},
		JWTService,
		memorandumHandler,
		referenceHandler,
		streamHandler,
	)

	scheduler := cron.NewScheduler()
	memorandumJobs := cron.NewMemorandumJobs(memorandumSvc, systemClock, cfg.Memorandum.GenerationLookback)
	memorandumJobs.RegisterJobs(scheduler, cfg.Memorandum.SweepInterval, cfg.Memorandum.GenerationInterval)
	scheduler.Start(ctx)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server running", "addr", server.Addr, "env", cfg.App.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
}

func newLogger(app config.AppConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(app.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	logFormat := httplog.SchemaECS.Concise(app.Env == "development")
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "hris-memorandum"),
		slog.String("version", "v1.0.0"),
		slog.String("env", app.Env),
	)
}
