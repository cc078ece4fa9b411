package main

import (
	"context"
	"crypto/rand"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"recruitflow/internal/app"
	"recruitflow/internal/comms"
	"recruitflow/internal/config"
	"recruitflow/internal/logger"
	"recruitflow/internal/pipeline"
	"recruitflow/internal/preferences"
	"recruitflow/internal/realtime"
	"recruitflow/internal/relay"
	"recruitflow/internal/server"
	"recruitflow/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("failed to load config", zap.Error(err))
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return err
	}
	if cfg.Database.MaxConns > 0 {
		poolCfg.MaxConns = cfg.Database.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	db := store.New(pool)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = db.Ping(pingCtx)
	cancel()
	if err != nil {
		return err
	}
	if cfg.Database.Migrations != "" {
		if err := db.MigrateFile(ctx, cfg.Database.Migrations); err != nil {
			return err
		}
		log.Info("migrations applied", zap.String("file", cfg.Database.Migrations))
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	prefs := preferences.NewRedisStore(rdb)
	if err := prefs.Ping(ctx); err != nil {
		// preferences fall back to defaults while redis is away
		log.Warn("redis unavailable", zap.String("address", cfg.Redis.Address), zap.Error(err))
	}

	hub := realtime.NewHub(log.Named("realtime"))
	reconciler := pipeline.NewReconciler(db, db, log.Named("pipeline"))
	// attached, not subscribed: candidate events must never be dropped
	detach := hub.Attach(realtime.Filter{Tables: []string{pipeline.Table}}, reconciler.Handle)
	defer detach()

	listener := realtime.NewListener(pool, hub, log.Named("realtime"))
	go func() {
		if err := listener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("change listener stopped", zap.Error(err))
		}
	}()
	if err := reconciler.Load(ctx); err != nil {
		// the list stays empty until a reload or the next change event
		log.Error("initial candidate load failed", zap.Error(err))
	}

	relays := relay.New(cfg.RelaySettings(), prefs)
	dispatcher := comms.NewDispatcher(db, prefs, relays.Twilio, relays.Gmail, relays.Tasks, relays.Calendar, log.Named("comms"))

	a := &app.App{
		Store:       db,
		Reconciler:  reconciler,
		Hub:         hub,
		Comms:       dispatcher,
		Prefs:       prefs,
		Voice:       relays.Twilio,
		Mail:        relays.Gmail,
		Tasks:       relays.Tasks,
		Calendar:    relays.Calendar,
		Google:      relays.Tokens,
		StateSecret: stateSecret(cfg.Auth.JWTSecret),
		FeedBuffer:  cfg.Realtime.Buffer,
		Log:         log,
	}

	limiter := app.NewRateLimiter(cfg.Relay.RatePerSecond, cfg.Relay.Burst)
	go limiter.Sweep(ctx, time.Minute, 10*time.Minute)

	router := app.NewRouter(a, app.RouterConfig{
		Mode:         cfg.Server.Mode,
		JWTSecret:    cfg.Auth.JWTSecret,
		StaticTokens: cfg.Auth.StaticTokens,
		Limiter:      limiter,
	})
	return server.Run(ctx, router, cfg.Addr(), cfg.Server.ShutdownTimeout, log)
}

// stateSecret reuses the session secret; static-token deployments get a
// per-process key, so pending consent links die with a restart.
func stateSecret(jwtSecret string) []byte {
	if jwtSecret != "" {
		return []byte(jwtSecret)
	}
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return b
}
