// Package app wires repositories, caches and services into the HTTP handler.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/ShashankAtmakur/survey-management-system/internal/cache"
	"github.com/ShashankAtmakur/survey-management-system/internal/config"
	"github.com/ShashankAtmakur/survey-management-system/internal/monitoring"
	"github.com/ShashankAtmakur/survey-management-system/internal/repository"
	"github.com/ShashankAtmakur/survey-management-system/internal/service"
	"github.com/ShashankAtmakur/survey-management-system/internal/transport/rest"
	"github.com/ShashankAtmakur/survey-management-system/internal/transport/rest/middleware"
	"github.com/ShashankAtmakur/survey-management-system/internal/transport/ws"
)

// App holds the running service dependencies
type App struct {
	SurveyRepo   repository.SurveyRepo
	ResponseRepo repository.ResponseRepo
	Handler      http.Handler
	Hub          *ws.Hub

	log     *zap.Logger
	closers []func(context.Context) error
}

// New connects the configured backends and builds the router. Background
// workers stop when ctx is cancelled. Redis, MinIO and Gemini are optional;
// MongoDB is required unless the in-memory store is selected.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	a := &App{log: log}
	if err := a.openStore(ctx, cfg); err != nil {
		a.Close(context.Background())
		return nil, err
	}

	metrics := monitoring.New()

	surveySvc := service.NewSurveyService(a.SurveyRepo, a.ResponseRepo, log)
	responseSvc := service.NewResponseService(a.SurveyRepo, a.ResponseRepo, log)
	analyticsSvc := service.NewAnalyticsService(a.SurveyRepo, a.ResponseRepo, log)
	analyticsSvc.SetMetrics(metrics)
	responseSvc.SetAnalyticsService(analyticsSvc)
	responseSvc.SetMetrics(metrics)

	var generationCache cache.GenerationCache
	if rdb := a.openRedis(ctx, cfg.Redis); rdb != nil {
		analyticsCache := cache.NewAnalyticsCache(rdb, cfg.Redis.AnalyticsTTL)
		analyticsSvc.SetCache(analyticsCache)
		surveySvc.SetAnalyticsCache(analyticsCache)
		generationCache = cache.NewGenerationCache(rdb, cfg.Redis.GenerateTTL)
	}

	if cfg.Storage.Enabled {
		store, err := service.NewMinioAudioStore(ctx, cfg.Storage)
		if err != nil {
			log.Warn("audio archive disabled", zap.String("endpoint", cfg.Storage.Endpoint), zap.Error(err))
		} else {
			responseSvc.SetAudioStore(store)
			log.Info("audio archive enabled", zap.String("bucket", cfg.Storage.Bucket))
		}
	}

	var modelClient service.ModelClient
	if cfg.AI.IsEnabled() {
		gemini, err := service.NewGeminiClient(ctx, cfg.AI.APIKey)
		if err != nil {
			log.Warn("question generation disabled", zap.Error(err))
		} else {
			modelClient = gemini
			log.Info("question generation enabled", zap.Strings("models", cfg.AI.Models()))
		}
	} else {
		log.Info("question generation not configured, serving placeholders")
	}
	generatorSvc := service.NewGeneratorService(&cfg.AI, modelClient, log)
	if generationCache != nil {
		generatorSvc.SetCache(generationCache)
	}

	a.Hub = ws.NewHub(log)
	go a.Hub.Run(ctx)
	surveySvc.SetBroadcaster(a.Hub)
	responseSvc.SetBroadcaster(a.Hub)

	proxies, err := middleware.NewTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		return nil, err
	}

	a.Handler = rest.NewRouter(&rest.Container{
		AuthService:      service.NewAuthService(cfg.Auth),
		SurveyService:    surveySvc,
		ResponseService:  responseSvc,
		AnalyticsService: analyticsSvc,
		GeneratorService: generatorSvc,
		WSHub:            a.Hub,
		Metrics:          metrics,
		SubmitLimiter:    middleware.NewRateLimiter(ctx, cfg.Server.SubmitPerMinute),
		TrustedProxies:   proxies,
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		Log:              log,
	})
	return a, nil
}

func (a *App) openStore(ctx context.Context, cfg *config.Config) error {
	if cfg.Mongo.InMemory() {
		a.SurveyRepo = repository.NewMemorySurveyRepo()
		a.ResponseRepo = repository.NewMemoryResponseRepo()
		a.log.Warn("using in-memory storage; data is lost on restart")
		return nil
	}

	db, err := ConnectMongo(ctx, cfg.Mongo)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, db.Client().Disconnect)
	a.log.Info("connected to MongoDB", zap.String("database", cfg.Mongo.Database))

	if err := repository.EnsureResponseIndexes(ctx, db); err != nil {
		a.log.Warn("create response indexes", zap.Error(err))
	}
	a.SurveyRepo = repository.NewSurveyRepo(db)
	a.ResponseRepo = repository.NewResponseRepo(db)
	return nil
}

// openRedis returns nil when caching is disabled or Redis is unreachable.
func (a *App) openRedis(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	if cfg.Addr == "" {
		a.log.Info("redis not configured, analytics cache disabled")
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		a.log.Warn("redis unreachable, analytics cache disabled", zap.String("addr", cfg.Addr), zap.Error(err))
		rdb.Close()
		return nil
	}
	a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })
	a.log.Info("connected to Redis", zap.String("addr", cfg.Addr))
	return rdb
}

// ConnectMongo connects and pings MongoDB
func ConnectMongo(ctx context.Context, cfg config.MongoConfig) (*mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}
	return client.Database(cfg.Database), nil
}

// Close releases backend connections in reverse order of opening
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	a.closers = nil
	return errors.Join(errs...)
}
