package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/api/views"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/messages"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/realtime"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/instance"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
	"github.com/angelmondragon/storefront-backend/pkg/storage"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []func() error
	closeAll := func() {
		var errs error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = multierr.Append(errs, closers[i]())
		}
		if errs != nil {
			logg.Error(context.Background(), "error releasing resources", errs)
		}
	}
	fail := func(msg string, err error) {
		logg.Error(context.Background(), msg, err)
		closeAll()
		os.Exit(1)
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		fail("failed to bootstrap database", err)
	}
	closers = append(closers, dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		fail("failed to prepare schema", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		fail("failed to bootstrap redis", err)
	}
	closers = append(closers, redisClient.Close)

	sessionManager, err := session.NewManager(redisClient, cfg.Session)
	if err != nil {
		fail("failed to create session manager", err)
	}

	productRepo := product.NewRepository(dbClient.DB())
	cartService, err := cart.NewService(cart.ServiceParams{
		Repo:        cart.NewRepository(dbClient.DB()),
		Products:    productRepo,
		Logger:      logg,
		MaxAttempts: cfg.Cart.MaxAttempts,
	})
	if err != nil {
		fail("failed to create cart service", err)
	}
	productService, err := product.NewService(productRepo, dbClient, cartService, cfg.Cart.DanglingPolicy)
	if err != nil {
		fail("failed to create product service", err)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(dbClient.DB()),
		AdminConfig:    cfg.Admin,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		fail("failed to create auth service", err)
	}

	var oauthProvider auth.OAuthProvider
	if cfg.GitHub.Enabled() {
		provider, err := auth.NewGitHubProvider(cfg.GitHub)
		if err != nil {
			fail("failed to create github provider", err)
		}
		oauthProvider = provider
	} else {
		logg.Warn(ctx, "github oauth disabled: client id or secret missing")
	}

	messageService, err := messages.NewService(messages.NewRepository(dbClient.DB()))
	if err != nil {
		fail("failed to create message service", err)
	}

	var uploads storage.Store
	switch cfg.Uploads.Backend {
	case config.UploadBackendGCS:
		gcs, err := storage.NewGCS(ctx, cfg.Uploads.GCSBucket, cfg.Uploads.GCSCredsFile, logg)
		if err != nil {
			fail("failed to create gcs upload store", err)
		}
		closers = append(closers, gcs.Close)
		uploads = gcs
	default:
		disk, err := storage.NewDisk(cfg.Uploads.Dir, cfg.Uploads.PublicPath)
		if err != nil {
			fail("failed to create disk upload store", err)
		}
		uploads = disk
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	var (
		httpMetrics    *metrics.HTTPMetrics
		rtMetrics      *metrics.RealtimeMetrics
		metricsHandler http.Handler
	)
	if cfg.Metrics.Enabled {
		httpMetrics = metrics.NewHTTPMetrics(registry)
		rtMetrics = metrics.NewRealtimeMetrics(registry)
		metricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	}

	hub := realtime.NewHub(cfg.Realtime.ClientBuffer, logg, rtMetrics)

	var relay realtime.Relay
	switch cfg.Realtime.Relay {
	case config.RelayRedis:
		redisRelay, err := realtime.NewRedisRelay(redisClient, redisClient.Channel(cfg.Realtime.Channel), hub, logg)
		if err != nil {
			fail("failed to create redis relay", err)
		}
		go func() {
			if err := redisRelay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logg.Error(ctx, "realtime relay stopped", err)
			}
		}()
		relay = redisRelay
	default:
		relay = realtime.NewLocalRelay(hub)
	}

	feed, err := realtime.NewProductFeed(productService, relay, cfg.Realtime.PageSize, logg)
	if err != nil {
		fail("failed to create product feed", err)
	}
	chat, err := realtime.NewChat(messageService, relay, logg)
	if err != nil {
		fail("failed to create chat", err)
	}

	renderer, err := views.New()
	if err != nil {
		fail("failed to parse templates", err)
	}

	handler := routes.NewRouter(routes.Deps{
		Config: cfg,
		Logger: logg,
		Pingers: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
		},
		Limiter:        redisClient,
		Sessions:       sessionManager,
		Auth:           authService,
		OAuth:          oauthProvider,
		Products:       productService,
		Carts:          cartService,
		Feed:           feed,
		Hub:            hub,
		Chat:           chat,
		Uploads:        uploads,
		Renderer:       renderer,
		HTTPMetrics:    httpMetrics,
		MetricsHandler: metricsHandler,
	})

	addr := ":" + cfg.App.Port
	serverCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.ID(),
		"relay":    cfg.Realtime.Relay,
		"uploads":  cfg.Uploads.Backend,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Open SSE streams only end when their channel closes.
	server.RegisterOnShutdown(hub.Close)

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(serverCtx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fail("api server stopped unexpectedly", err)
		}
	case <-ctx.Done():
		logg.Info(serverCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(serverCtx, "graceful shutdown failed", err)
		}
	}

	closeAll()
	logg.Info(serverCtx, "api server stopped")
}
