package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vendtrustd/internal/config"
	"vendtrustd/internal/domain"
	"vendtrustd/internal/infra/auth"
	"vendtrustd/internal/infra/db"
	"vendtrustd/internal/infra/hmacsig"
	httpinfra "vendtrustd/internal/infra/http"
	"vendtrustd/internal/infra/memstore"
	"vendtrustd/internal/infra/ratelimit"
	"vendtrustd/internal/infra/replaycache"
	"vendtrustd/internal/usecase"

	"gorm.io/gorm"
)

func main() {
	configPath := os.Getenv("VENDTRUSTD_CONFIG")
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	if cfg.Env == "development" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		identityStore usecase.IdentityStore
		sessionStore  usecase.SessionStore
		rotationStore usecase.RotationStore
		eventStore    usecase.EventStore
		auditStore    usecase.AuditStore
		dbPing        func(ctx context.Context) error
	)

	if cfg.DatabaseDSN == "memory" {
		// Dev mode: everything in process, nothing survives a restart.
		store := memstore.New()
		identityStore = store
		sessionStore = store.Sessions()
		rotationStore = store.Rotations()
		eventStore = memstore.NewEventLog()
		auditStore = memstore.NewAuditLog()
		logger.Warn("running on in-memory storage")
	} else {
		conn, err := db.Open(cfg.DatabaseDSN)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		if err := db.Migrate(conn); err != nil {
			logger.Error("migration failed", "error", err)
			os.Exit(1)
		}
		identityStore = db.NewIdentityRepository(conn)
		sessionStore = db.NewSessionRepository(conn)
		rotationStore = db.NewRotationRepository(conn)
		eventStore = db.NewEventRepository(conn)
		auditStore = db.NewAuditRepository(conn)
		dbPing = gormPing(conn)
	}

	var (
		limiter domain.RateLimiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{})
		replay  domain.ReplayCache = replaycache.NewMemoryCache(replaycache.MemoryCacheConfig{})
	)
	if cfg.RedisAddr != "" {
		if redisLimiter, err := ratelimit.NewRedisLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, nil); err == nil {
			limiter = redisLimiter
		} else {
			logger.Warn("redis limiter unavailable, using in-memory", "error", err)
		}
		if redisReplay, err := replaycache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB); err == nil {
			replay = redisReplay
		} else {
			logger.Warn("redis replay cache unavailable, using in-memory", "error", err)
		}
	}

	suite := hmacsig.Suite{}
	locks := usecase.NewKeyMutex()
	keys := usecase.NewKeyStore(identityStore)
	events := usecase.NewEventRecorder(eventStore, nil)
	audit := usecase.NewAuditTrail(auditStore, cfg.AuditBufferSize, nil, logger)
	defer audit.Close()

	registry := &usecase.Registry{
		Identities: identityStore,
		Rotations:  rotationStore,
		Keys:       keys,
		Events:     events,
		Suite:      suite,
		Locks:      locks,
	}
	rotator := &usecase.Rotator{
		Identities: identityStore,
		Rotations:  rotationStore,
		Keys:       keys,
		Events:     events,
		Suite:      suite,
		Locks:      locks,
	}
	sessions := &usecase.SessionManager{
		Store:        sessionStore,
		Identities:   identityStore,
		Events:       events,
		TTL:          cfg.SessionTTL,
		Sliding:      cfg.SessionSliding,
		SingleActive: cfg.SessionSingleActive,
		Logger:       logger,
	}
	go sessions.RunReaper(ctx, cfg.SessionReapInterval, cfg.SessionRetain)

	srv := httpinfra.NewServer(*cfg, httpinfra.ServerDeps{
		Registry:    registry,
		Rotator:     rotator,
		Sessions:    sessions,
		Events:      events,
		Audit:       audit,
		Replay:      replay,
		RateLimiter: limiter,
		Validator:   auth.NewValidator(cfg.AdminJWTSecret),
		Logger:      logger,
		DBPing:      dbPing,
	})

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Handler(),
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.ListenAddr, "env", cfg.Env)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server exited", "error", err)
			os.Exit(1)
		}
	}
}

func gormPing(conn *gorm.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
