package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"careassist/internal/app"
	"careassist/internal/config"
	"careassist/internal/ratelimit"
	"careassist/internal/server"
	"careassist/internal/util"
	"careassist/pkg/ai"
	"careassist/pkg/auth"
	"careassist/pkg/storage"
	"careassist/pkg/store"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := util.InitLogger(cfg.LogLevel)

	st, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		fatal(logger, "failed to open database", err)
	}

	images, err := storage.NewMinioStore(
		cfg.MinioEndpoint,
		cfg.MinioAccessKey,
		cfg.MinioSecretKey,
		cfg.MinioBucket,
		cfg.MinioPublicBaseURL,
		cfg.MinioUseSSL,
	)
	if err != nil {
		fatal(logger, "failed to init image storage", err)
	}

	completer, err := ai.NewGeminiClient(cfg.GeminiAPIKey)
	if err != nil {
		fatal(logger, "failed to init gemini client", err)
	}

	tokenTTL, err := config.ParseDuration(cfg.TokenTTL, 24*time.Hour)
	if err != nil {
		fatal(logger, "failed to parse token ttl", err)
	}
	tokens, err := auth.NewTokenManager(cfg.JWTSecret, tokenTTL)
	if err != nil {
		fatal(logger, "failed to init token manager", err)
	}

	assistantTimeout, err := config.ParseDuration(cfg.AssistantTimeout, 30*time.Second)
	if err != nil {
		fatal(logger, "failed to parse assistant timeout", err)
	}

	location, err := cfg.Location()
	if err != nil {
		fatal(logger, "failed to resolve timezone", err)
	}

	appCore, err := app.New(app.Config{
		Store:            st,
		Images:           images,
		Completer:        completer,
		Tokens:           tokens,
		GenerationModel:  cfg.GenerationModel,
		AssistantTimeout: assistantTimeout,
		Location:         location,
	})
	if err != nil {
		fatal(logger, "failed to init app", err)
	}

	trustedProxies, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		fatal(logger, "failed to parse trusted proxy cidrs", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	signupLimiter := newLimiter(logger, rdb, "signup", cfg.SignupRateLimitPerMinute)
	loginLimiter := newLimiter(logger, rdb, "login", cfg.LoginRateLimitPerMinute)
	assistantLimiter := newLimiter(logger, rdb, "assistant", cfg.AssistantRateLimitPerMinute)

	httpServer := server.New(server.Config{
		App:              appCore,
		TokenVerifier:    tokens,
		SignupLimiter:    signupLimiter,
		LoginLimiter:     loginLimiter,
		AssistantLimiter: assistantLimiter,
		TrustedProxies:   trustedProxies,
		MaxUploadBytes:   cfg.MaxUploadBytes,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("careassist server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}

// newLimiter builds a per-minute limiter; a zero limit disables that class.
func newLimiter(logger *slog.Logger, rdb *redis.Client, class string, perMinute int) *ratelimit.FixedWindowLimiter {
	if perMinute <= 0 {
		return nil
	}
	limiter, err := ratelimit.NewFixedWindowLimiter(rdb, "careassist:ratelimit:"+class, perMinute, time.Minute)
	if err != nil {
		fatal(logger, "failed to init rate limiter", err)
	}
	return limiter
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "err", err)
	os.Exit(1)
}
