package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/ecochamps/ecochamps-service/internal/account"
	"github.com/ecochamps/ecochamps-service/internal/catalog"
	"github.com/ecochamps/ecochamps-service/internal/config"
	"github.com/ecochamps/ecochamps-service/internal/httpapi"
	"github.com/ecochamps/ecochamps-service/internal/kv"
	"github.com/ecochamps/ecochamps-service/internal/learn"
	"github.com/ecochamps/ecochamps-service/internal/platform/auth"
	"github.com/ecochamps/ecochamps-service/internal/platform/logging"
	"github.com/ecochamps/ecochamps-service/internal/platform/metrics"
	"github.com/ecochamps/ecochamps-service/internal/platform/server"
)

const serviceName = "ecochamps-service"

func main() {
	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Errorf("config error: %w", err))
	}

	logger := logging.NewLogger(serviceName)

	store, closeStore, err := openStore(ctx, cfg.Storage, logger)
	if err != nil {
		panic(fmt.Errorf("storage: %w", err))
	}
	defer closeStore()

	cat := catalog.Default()
	if cfg.Catalog.Path != "" {
		cat, err = catalog.Load(cfg.Catalog.Path)
		if err != nil {
			panic(fmt.Errorf("catalog: %w", err))
		}
	}

	hasher, err := account.SecretHasherFor(cfg.Account.SecretHashing)
	if err != nil {
		panic(fmt.Errorf("secret hashing: %w", err))
	}
	accounts, err := account.NewStore(ctx, store, cat,
		account.WithSecretHasher(hasher),
		account.WithLogger(logger),
		account.WithBadgesOnCredit(cfg.Account.BadgesOnCredit),
	)
	if err != nil {
		panic(fmt.Errorf("account store: %w", err))
	}

	tokens, err := auth.NewTokenService(auth.Config{
		Mode:     cfg.Auth.Mode,
		Secret:   cfg.Auth.Secret,
		TokenTTL: cfg.Auth.TokenTTL,
	})
	if err != nil {
		panic(fmt.Errorf("auth token service error: %w", err))
	}

	var generator learn.Generator = learn.UnavailableGenerator{}
	if cfg.Learn.Enabled() {
		gemini, err := learn.NewGeminiGenerator(ctx, learn.GeminiConfig{
			APIKey:          cfg.Learn.APIKey,
			Model:           cfg.Learn.Model,
			MaxOutputTokens: cfg.Learn.MaxOutputTokens,
			UseVertex:       cfg.Learn.UseVertex,
			Project:         cfg.Storage.GCPProjectID,
			Location:        cfg.Learn.Location,
			Audience:        cfg.Learn.Audience,
		})
		if err != nil {
			logger.Warn("gemini unavailable, lessons disabled", slog.Any("error", err))
		} else {
			generator = gemini
		}
	} else {
		logger.Info("no gemini credentials configured, lessons disabled")
	}

	lessons, err := learn.NewService(generator, cat, accounts,
		learn.WithCacheSize(cfg.Learn.CacheSize),
		learn.WithLessonTTL(cfg.Learn.LessonTTL),
		learn.WithLogger(logger),
	)
	if err != nil {
		panic(fmt.Errorf("learn service: %w", err))
	}

	router := server.NewRouter(serviceName, func(r chi.Router) {
		httpapi.RegisterRoutes(r, httpapi.Dependencies{
			Accounts: accounts,
			Catalog:  cat,
			Lessons:  lessons,
			Tokens:   tokens,
			Metrics:  metrics.NewMetrics("api"),
			Logger:   logger,
		})
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	if err := server.Run(ctx, srv, logger); err != nil && !errors.Is(err, http.ErrServerClosed) {
		panic(err)
	}
}

// openStore builds the configured key-value backend and its cleanup.
func openStore(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (kv.Store, func(), error) {
	switch cfg.Backend {
	case kv.BackendFirestore:
		client, err := firestore.NewClient(ctx, cfg.GCPProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("firestore client: %w", err)
		}
		logger.Info("using firestore storage", slog.String("collection", cfg.FirestoreCollection))
		return kv.NewFirestoreStore(client, cfg.FirestoreCollection), func() { _ = client.Close() }, nil
	case kv.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		logger.Info("using redis storage", slog.String("addr", cfg.RedisAddr))
		return kv.NewRedisStore(client, cfg.RedisPrefix), func() { _ = client.Close() }, nil
	case kv.BackendFile:
		store, err := kv.OpenFile(cfg.FilePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using file storage", slog.String("path", cfg.FilePath))
		return store, func() {}, nil
	default:
		logger.Warn("using in-memory storage, data is lost on restart")
		return kv.NewMemoryStore(), func() {}, nil
	}
}
