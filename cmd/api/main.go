package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"dev-event/internal/config"
	"dev-event/internal/db"
	apihttp "dev-event/internal/http"
	"dev-event/internal/repository"
	"dev-event/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	if cfg.IsDevelopment() {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	handle := db.NewHandle(cfg)
	defer handle.Close()

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, handle); err != nil {
			logger.Fatal("db migrate", zap.Error(err))
		}
	}

	userRepo := repository.NewPgUserRepository(handle)

	var (
		revoked     service.RevocationList
		limiter     service.AttemptLimiter
		redisClient *redis.Client
	)
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			revoked = service.NewRedisRevocationList(redisClient)
			limiter = service.NewRedisAttemptLimiter(redisClient, cfg.SignInWindow, cfg.SignInMaxAttempts)
		}
		cancel()
		defer redisClient.Close()
	}
	if revoked == nil {
		revoked = service.NewMemoryRevocationList()
	}
	if limiter == nil {
		limiter = service.NewMemoryAttemptLimiter(cfg.SignInWindow, cfg.SignInMaxAttempts)
	}

	codec, err := service.NewTokenCodec(cfg.JWTSecret,
		service.WithIssuer(cfg.JWTIssuer),
		service.WithRefreshThreshold(cfg.RefreshThreshold),
		service.WithClockSkew(cfg.ClockSkew),
	)
	if err != nil {
		logger.Fatal("token codec", zap.Error(err))
	}

	sessions := service.NewSessionService(
		logger,
		userRepo,
		service.NewBcryptHasher(cfg.BcryptCost),
		codec,
		revoked,
		limiter,
		service.SessionOptions{
			TokenTTL:     cfg.TokenTTL,
			StoreTimeout: cfg.StoreTimeout,
			MinDuration:  cfg.AuthMinDuration,
			ExposeErrors: cfg.IsDevelopment(),
		},
	)

	authHandler := apihttp.NewAuthHandler(logger, sessions, apihttp.CookieConfig{
		Name:   cfg.CookieName,
		Secure: cfg.IsProduction(),
	})
	healthHandler := apihttp.NewHealthHandler(logger, handle)
	router := apihttp.NewRouter(logger, authHandler, healthHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort), zap.String("env", cfg.AppEnv))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
