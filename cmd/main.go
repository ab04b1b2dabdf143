package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/jethalalgada06/alfaaz-verse-unveiled/config"
	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/adapters/primary/events"
	grpc_adapter "github.com/jethalalgada06/alfaaz-verse-unveiled/internal/adapters/primary/grpc"
	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/adapters/primary/rest"
	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/adapters/secondary/cache"
	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/adapters/secondary/eventbroker"
	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/adapters/secondary/graph"
	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/adapters/secondary/memory"
	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/adapters/secondary/repository"
	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/adapters/secondary/resilience"
	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/adapters/secondary/security"
	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/adapters/secondary/supabase"
	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/ports"
	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/services"
	"github.com/jethalalgada06/alfaaz-verse-unveiled/pkg/logger"
	"github.com/jethalalgada06/alfaaz-verse-unveiled/pkg/metrics"
	"github.com/jethalalgada06/alfaaz-verse-unveiled/pkg/telemetry"
)

// devJWTSecret : secret des tokens locaux quand SUPABASE_JWT_SECRET est vide (driver memory).
const devJWTSecret = "alfaaz-local-development-secret"

// closer : ressources à libérer à l'arrêt, dans l'ordre inverse.
type closer []func()

func (c *closer) add(fn func()) { *c = append(*c, fn) }

func (c closer) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

func main() {
	// 1. Charger la Config
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 2. Logger (zap derrière slog)
	syncLogs := logger.Init(cfg.Env, cfg.ServiceName)
	defer syncLogs()
	slog.Info("🚀 Starting Alfaaz", "env", cfg.Env, "driver", cfg.GatewayDriver, "follow_store", cfg.FollowStore)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Tracing
	otel.SetTextMapPropagator(telemetry.Propagator())
	if cfg.OtelEndpoint != "" {
		tp, err := telemetry.InitTracer(ctx, cfg.OtelEndpoint, cfg.ServiceName, cfg.Version, cfg.Env)
		if err != nil {
			slog.Error("Failed to init tracer", "error", err)
		} else {
			defer func() {
				if err := tp.Shutdown(context.Background()); err != nil {
					slog.Error("Error shutting down tracer", "error", err)
				}
			}()
		}
	}

	collector := metrics.NewCollector("alfaaz")
	var cleanup closer
	defer cleanup.run()

	// 4. Backend + sessions
	gw, sessions, verifier, err := buildBackend(ctx, cfg, &cleanup)
	if err != nil {
		slog.Error("Failed to init backend", "error", err)
		os.Exit(1)
	}
	breaker := resilience.DefaultConfig(cfg.GatewayDriver)
	breaker.Timeout = cfg.BreakerTimeout
	gw = resilience.NewGateway(gw, breaker, collector)

	// 5. Cache des followees (optionnel)
	var followeeCache ports.FolloweeCache
	if cfg.RedisAddr != "" {
		rdb, err := cache.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		cleanup.add(func() { closeRedis(rdb) })
		followeeCache = cache.NewRedisFolloweeCache(rdb, cfg.FolloweeTTL, collector)
		slog.Info("✅ Redis connected")
	}

	// 6. Événements (optionnel)
	var publisher ports.EventPublisher
	var broker *eventbroker.NatsBroker
	if cfg.NatsUrl != "" {
		broker, err = eventbroker.NewNatsBroker(cfg.NatsUrl)
		if err != nil {
			slog.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		cleanup.add(broker.Close)
		publisher = broker
		slog.Info("✅ NATS JetStream connected")
	}

	// 7. Wiring du cœur
	views, err := services.NewViewRegistry(cfg.ViewCacheSize)
	if err != nil {
		slog.Error("Failed to init view registry", "error", err)
		os.Exit(1)
	}
	followees := services.NewFolloweeDirectory(gw, followeeCache)
	reconciler := services.NewReconciler(gw, publisher, followees)

	handler := rest.NewHandler(rest.Services{
		Auth:     services.NewAuthService(sessions, verifier, gw),
		Feed:     services.NewFeedService(gw, views, time.Now),
		Search:   services.NewSearchService(gw, reconciler, views),
		Poems:    services.NewPoemService(gw, publisher, time.Now),
		Profiles: services.NewProfileService(gw, followees, views, time.Now),
	}, gw, collector)

	if broker != nil {
		sub, err := events.NewEventHandler(followees).Register(broker.Conn())
		if err != nil {
			slog.Error("Failed to subscribe to follow events", "error", err)
			os.Exit(1)
		}
		slog.Info("🎧 Listening for follow events", "subject", sub.Subject)
	}

	// 8. Serveurs
	srvHTTP := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           rest.Wrap(handler.Router(), cfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("📡 HTTP API listening", "port", cfg.HTTPPort)
		if err := srvHTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		slog.Error("Failed to listen", "port", cfg.GRPCPort, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc_adapter.NewServer(cfg.ServiceName, gw, cfg.Env != "prod")
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			slog.Error("Failed to serve", "error", err)
			os.Exit(1)
		}
	}()
	go grpcServer.Watch(ctx, cfg.HealthInterval)

	// 9. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	sig := <-quit
	slog.Info("⚠️  Signal received, shutting down...", "signal", sig)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srvHTTP.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	grpcServer.Stop(shutdownCtx)
	reconciler.Wait()

	slog.Info("👋 Service stopped")
}

// buildBackend choisit le Gateway selon GATEWAY_DRIVER et le fournisseur de sessions associé.
func buildBackend(ctx context.Context, cfg *config.Config, cleanup *closer) (ports.Gateway, ports.SessionProvider, ports.TokenVerifier, error) {
	var (
		gw       ports.Gateway
		sessions ports.SessionProvider
		verifier ports.TokenVerifier
	)

	switch cfg.GatewayDriver {
	case config.DriverMemory:
		secret := cfg.SupabaseJWTSecret
		if secret == "" {
			secret = devJWTSecret
		}
		tokens, err := security.NewJWTVerifier(secret)
		if err != nil {
			return nil, nil, nil, err
		}
		// Pas de verifier : Lookup passe par LocalSessions pour honorer les déconnexions
		sessions = security.NewLocalSessions(tokens, security.NewPasswordHasher(security.DevParams), 24*time.Hour)
		gw = memory.NewGateway()
		slog.Warn("🧪 In-memory backend, data is lost on restart")

	case config.DriverSupabase, config.DriverPostgres:
		client, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseSchema)
		if err != nil {
			return nil, nil, nil, err
		}
		sessions = supabase.NewSessions(client.Auth)

		if cfg.GatewayDriver == config.DriverSupabase {
			gw = supabase.NewGateway(client, supabase.Tables{Users: cfg.UsersTable, Poems: cfg.PoemsTable, Follows: cfg.FollowsTable})
			slog.Info("✅ Supabase gateway ready", "url", cfg.SupabaseURL)
		} else {
			pool, err := repository.NewPool(ctx, cfg.DBUrl)
			if err != nil {
				return nil, nil, nil, err
			}
			cleanup.add(pool.Close)
			gw = repository.NewPostgresRepo(pool, repository.Tables{Users: cfg.UsersTable, Poems: cfg.PoemsTable, Follows: cfg.FollowsTable})
			slog.Info("✅ Database connected")
		}
	}

	if cfg.SupabaseJWTSecret != "" && cfg.GatewayDriver != config.DriverMemory {
		v, err := security.NewJWTVerifier(cfg.SupabaseJWTSecret)
		if err != nil {
			return nil, nil, nil, err
		}
		verifier = v
	}

	if cfg.FollowStore == config.FollowStoreNeo4j {
		driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURI, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("neo4j driver: %w", err)
		}
		cleanup.add(func() { _ = driver.Close(context.Background()) })

		follows := graph.NewNeo4jRepo(driver)
		if err := follows.Ping(ctx); err != nil {
			return nil, nil, nil, fmt.Errorf("neo4j unreachable: %w", err)
		}
		if err := follows.EnsureSchema(ctx); err != nil {
			return nil, nil, nil, err
		}
		gw = graph.NewOverlay(gw, follows)
		slog.Info("✅ Neo4j follow store connected")
	}

	return gw, sessions, verifier, nil
}

func closeRedis(rdb *redis.Client) {
	if err := rdb.Close(); err != nil {
		slog.Warn("Redis close failed", "error", err)
	}
}
