package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"farmlok/internal/auth"
	"farmlok/internal/cache"
	"farmlok/internal/catalog"
	cataloghttp "farmlok/internal/catalog/http"
	"farmlok/internal/catalog/messaging"
	"farmlok/internal/catalog/repository"
	"farmlok/internal/catalog/service"
	"farmlok/internal/config"
	"farmlok/internal/ratelimit"
	"farmlok/internal/weather"

	_ "farmlok/docs"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	metricCreatedTotal = "products_created_total"
	metricUpdatedTotal = "products_updated_total"
	metricDeletedTotal = "products_deleted_total"
)

// @title        Farmlok API
// @version      1.0
// @description  Produce marketplace backend with OAuth authentication, weather lookups and a cached product catalog.
// @host         localhost:8080
// @BasePath     /
func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Error("connect mongo", "error", err)
		os.Exit(1)
	}
	defer func() { _ = mongoClient.Disconnect(ctx) }()

	pingCtx, pingCancel := context.WithTimeout(ctx, cfg.MongoPingTimeout)
	defer pingCancel()
	if err := mongoClient.Ping(pingCtx, readpref.Primary()); err != nil {
		logger.Error("ping mongo", "error", err)
		os.Exit(1)
	}

	db := mongoClient.Database(cfg.DBName)

	repo := repository.NewMongo(db)
	if err := repo.EnsureIndexes(ctx); err != nil {
		logger.Warn("product index bootstrap", "error", err)
	}

	users := auth.NewStore(db)
	if err := users.EnsureIndexes(ctx); err != nil {
		logger.Warn("user index bootstrap", "error", err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Error("parse redis url", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	store := cache.New(redisClient, logger)
	if err := store.Health(); err != nil {
		// Degraded but serviceable: every cache read becomes a miss.
		logger.Warn("redis unavailable at startup", "error", err)
	}

	var publisher service.Publisher = messaging.NopPublisher{}
	if cfg.RabbitMQURL != "" {
		rabbitConn, err := amqp.Dial(cfg.RabbitMQURL)
		if err != nil {
			logger.Error("connect rabbitmq", "error", err)
			os.Exit(1)
		}
		defer rabbitConn.Close()

		rabbitPublisher, err := messaging.NewRabbitPublisher(rabbitConn, catalog.EventsQueue)
		if err != nil {
			logger.Error("init publisher", "error", err)
			os.Exit(1)
		}
		defer rabbitPublisher.Close()
		publisher = rabbitPublisher
	}

	counters := service.Counters{
		Created: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricCreatedTotal,
			Help: "Total number of products created",
		}),
		Updated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricUpdatedTotal,
			Help: "Total number of products updated",
		}),
		Deleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricDeletedTotal,
			Help: "Total number of products deleted",
		}),
	}
	prometheus.MustRegister(counters.Created, counters.Updated, counters.Deleted)

	svc := service.New(repo, store, publisher, logger, counters)

	authHandler := auth.NewHandler(auth.GoogleConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	}, users, cfg.JWTSecret, cfg.TokenTTL, logger)

	weatherHandler := weather.NewHandler(weather.NewClient(cfg.WeatherAPIKey), logger)

	limiter := ratelimit.New(cfg.RateLimitRequests, cfg.RateLimitWindow)
	defer limiter.Close()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cataloghttp.RequestIDMiddleware())
	router.Use(cataloghttp.AccessLogMiddleware(logger))

	cataloghttp.RegisterRoutes(router, cataloghttp.Deps{
		Products:        cataloghttp.NewHandler(svc, logger),
		Auth:            authHandler,
		Users:           users,
		Weather:         weatherHandler,
		Cache:           store,
		Limiter:         limiter,
		Storage:         repo,
		JWTSecret:       cfg.JWTSecret,
		ProductCacheTTL: cfg.ProductCacheTTL,
		WeatherCacheTTL: cfg.WeatherCacheTTL,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("farmlok api started", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-runCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("http server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("farmlok api stopped")
}
