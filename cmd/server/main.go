package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/glowspace/glowspace-backend/internal/config"
	"github.com/glowspace/glowspace-backend/internal/database"
	"github.com/glowspace/glowspace-backend/internal/handlers"
	"github.com/glowspace/glowspace-backend/internal/middleware"
	"github.com/glowspace/glowspace-backend/internal/realtime"
	"github.com/glowspace/glowspace-backend/internal/routes"
	"github.com/glowspace/glowspace-backend/internal/services"
)

const shutdownTimeout = 15 * time.Second

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()

	logger := newLogger(cfg)
	defer func() { _ = logger.Sync() }()

	if envErr != nil {
		logger.Info("no .env file found, using process environment")
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.IsProduction() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger.With(zap.String("service", "glowspace-backend"))
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("connecting to MongoDB", zap.String("database", database.DatabaseName(cfg.MongoURI)))
	if err := database.Connect(cfg.MongoURI); err != nil {
		return err
	}
	defer func() {
		if err := database.CloseAll(); err != nil {
			logger.Warn("closing stores", zap.Error(err))
		}
	}()

	logger.Info("connecting to PostgreSQL")
	if err := database.ConnectPostgres(cfg.PostgresURI); err != nil {
		return err
	}

	logger.Info("connecting to Redis")
	if err := database.ConnectRedis(cfg.RedisURI); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	users := services.NewUserStore(database.DB)
	messages := services.NewMessageStore(database.DB)
	if err := users.EnsureIndexes(ctx); err != nil {
		logger.Warn("failed to ensure user indexes", zap.Error(err))
	}
	if err := messages.EnsureIndexes(ctx); err != nil {
		logger.Warn("failed to ensure message indexes", zap.Error(err))
	}
	cancel()

	tokens := services.NewTokenService(services.TokenConfig{
		Secret: cfg.JWTSecret,
		Issuer: cfg.JWTIssuer,
		TTL:    cfg.JWTTTL,
	})
	// Handshakes always read the store so a deactivated account is refused at once;
	// the cache only serves display names for community posts.
	identities := services.NewCachedUserFinder(users, cfg.IdentityCacheTTL)

	lastSeen := services.NewLastSeenWorker(users, logger.Named("last_seen"), cfg.LastSeenQueueSize)
	lastSeen.Start()
	defer lastSeen.Stop()

	presence, err := newPresenceStore(cfg, logger)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := realtime.NewMetrics()
	metrics.Register(registry)

	hub := realtime.NewHub(realtime.HubConfig{
		EventRate:  cfg.EventRate,
		EventBurst: cfg.EventBurst,
	}, presence, lastSeen, metrics, logger.Named("hub"))
	go hub.Run()

	socket := realtime.NewHandler(hub, realtime.NewAuthenticator(tokens, users), realtime.HandlerConfig{
		AllowedOrigins:   cfg.AllowedOrigins,
		HandshakeTimeout: cfg.HandshakeTimeout,
	}, logger.Named("gateway"))

	chat := services.NewChatService(messages, services.NewRecentCache(database.RedisClient, logger.Named("chat_cache")))
	communities := services.NewCommunityStore(database.PostgresDB)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity(cfg.AllowedHost) {
			r.Use(mw)
		}
		logger.Info("production security enabled", zap.String("allowed_host", cfg.AllowedHost))
	} else {
		r.Use(middleware.RedisRateLimit(database.RedisClient, logger.Named("ratelimit")))
	}

	routes.SetupRoutes(r, routes.Deps{
		Tokens:    tokens,
		Auth:      handlers.NewAuthHandler(users, tokens, logger.Named("auth")),
		Chat:      handlers.NewChatHandler(chat, logger.Named("chat")),
		Community: handlers.NewCommunityHandler(communities, identities, logger.Named("community")),
		Presence:  handlers.NewPresenceHandler(hub.Presence(), logger.Named("presence")),
		Socket:    socket,
		Metrics:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry, EnableOpenMetrics: true}),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("glowspace backend listening",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Environment),
			zap.String("presence_backend", cfg.PresenceBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err, ok := <-errCh:
		if ok {
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if s, err := hub.Stats(shutdownCtx); err == nil {
		logger.Info("closing sockets",
			zap.Int("sockets", s.Sockets),
			zap.Int("users", s.Users),
			zap.Int("room_members", s.RoomMembers))
	}

	// Hijacked sockets are not tracked by http.Server, so the hub closes them.
	if err := hub.Shutdown(shutdownTimeout / 2); err != nil {
		logger.Warn("hub shutdown", zap.Error(err))
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	return nil
}

// newPresenceStore picks the registry backend. The Redis store is wiped on
// boot because sessions from a previous process can no longer be reached.
func newPresenceStore(cfg *config.Config, logger *zap.Logger) (realtime.PresenceStore, error) {
	if cfg.PresenceBackend != "redis" {
		return realtime.NewMemoryPresenceStore(), nil
	}
	store := realtime.NewRedisPresenceStore(database.RedisClient, "presence:")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Reset(ctx); err != nil {
		return nil, err
	}
	logger.Info("presence registry backed by Redis")
	return store, nil
}
