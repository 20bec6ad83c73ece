package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Chu-rill/Huddle/internal/auth"
	"github.com/Chu-rill/Huddle/internal/config"
	"github.com/Chu-rill/Huddle/internal/http_server/handlers/login"
	"github.com/Chu-rill/Huddle/internal/http_server/handlers/oauth"
	"github.com/Chu-rill/Huddle/internal/http_server/handlers/refresh"
	"github.com/Chu-rill/Huddle/internal/http_server/handlers/register"
	resendOTP "github.com/Chu-rill/Huddle/internal/http_server/handlers/resend_otp"
	"github.com/Chu-rill/Huddle/internal/http_server/handlers/revoke"
	"github.com/Chu-rill/Huddle/internal/http_server/handlers/user"
	validateOTP "github.com/Chu-rill/Huddle/internal/http_server/handlers/validate_otp"
	"github.com/Chu-rill/Huddle/internal/http_server/middleware/authmw"
	"github.com/Chu-rill/Huddle/internal/otp"
	"github.com/Chu-rill/Huddle/internal/rabbitmq"
	"github.com/Chu-rill/Huddle/internal/storage/postgres"
	"github.com/Chu-rill/Huddle/internal/storage/redis"
	"github.com/Chu-rill/Huddle/internal/tokens"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad("./config/config.yaml")

	log := setupLogger(cfg.Env)

	log.Info("starting huddle auth service", slog.String("env", cfg.Env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("Shutdown signal received")
		cancel()
	}()

	storage, err := postgres.New(ctx, cfg)
	if err != nil {
		log.Error("failed to connect postgres", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer storage.Close()

	otpStore, err := redis.New(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Error("failed to connect redis", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer otpStore.Close()

	msgBroker, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	if err != nil {
		log.Error("failed to connect rabbitmq", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer msgBroker.Close()

	otpService := otp.New(log, otpStore, cfg.OTP.TTL)

	minter := tokens.New(
		log,
		storage,
		storage,
		cfg.Tokens.AccessSecret,
		cfg.Tokens.AccessTokenTTL,
		cfg.Tokens.RefreshTokenTTL,
		cfg.Tokens.SessionLimit,
	)

	authService := auth.New(log, storage, storage, otpService, minter, msgBroker)

	router := setupRouter(log, authService, minter, storage, cfg.Tokens.AccessSecret)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server is running")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed", slog.String("err", err.Error()))
			cancel()
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", slog.String("err", err.Error()))
	} else {
		log.Info("Server stopped gracefully")
	}

	log.Info("Main service stopped")
}

func setupRouter(
	log *slog.Logger,
	authService *auth.Auth,
	minter *tokens.Minter,
	storage *postgres.PostgresRepo,
	accessSecret string,
) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	validate := validator.New()

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth/email-password", func(r chi.Router) {
			r.Post("/register", register.New(log, validate, authService))
			r.Post("/login", login.New(log, validate, authService))
			r.Post("/validateOTP", validateOTP.New(log, validate, authService))
			r.Post("/resendOTP", resendOTP.New(log, validate, authService))
			r.Post("/refresh", refresh.New(log, validate, minter))
			r.Post("/revoke", revoke.New(log, validate, minter))
		})

		r.Post("/oauth/google/callback", oauth.New(log, validate, authService))

		r.Group(func(r chi.Router) {
			r.Use(authmw.New(accessSecret))
			r.Get("/users/{id}", user.New(log, storage))
		})
	})

	return r
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
