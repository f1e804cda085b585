package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/silicity/silicity-server/internal/chat"
	"github.com/silicity/silicity-server/internal/http/handlers"
	mw "github.com/silicity/silicity-server/internal/http/middleware"
	"github.com/silicity/silicity-server/internal/mailer"
	"github.com/silicity/silicity-server/internal/repository"
	"github.com/silicity/silicity-server/internal/service"
	"github.com/silicity/silicity-server/pkg/config"
	"github.com/silicity/silicity-server/pkg/database"
	"github.com/silicity/silicity-server/pkg/events"
	"github.com/silicity/silicity-server/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file loaded", "error", err)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	// Admin alerts also surface in this binary's logs; the mail fan-out for
	// operators runs as a separate consumer.
	if err := eventBus.Subscribe(events.AdminAlert, func(msg *events.Message) {
		alert, err := events.DecodeAdminAlert(msg)
		if err != nil {
			logger.Warn("Dropping malformed admin alert", "error", err)
			return
		}
		logger.Info("Admin alert", "title", alert.Title, "body", alert.Body, "details", alert.Details)
	}); err != nil {
		logger.Warn("Failed to subscribe to admin alerts", "error", err)
	}

	// Rate limit counters live in Redis so multiple replicas share windows.
	// If Redis is down the limiter fails open; the API stays up.
	counters := newCounterStore(cfg)

	mailSvc := newMailer(cfg)

	userRepo := repository.NewUserRepository(pool)
	groupRepo := repository.NewGroupRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)

	authService := service.NewAuthService(userRepo, mailSvc, eventBus, cfg)
	groupService := service.NewGroupService(groupRepo, messageRepo, userRepo, eventBus)

	h := handlers.New(authService, groupService, cfg)
	gate := mw.NewGate(userRepo, cfg.Auth.AccessSecret)
	authLimiter := mw.NewRateLimiter(counters, cfg.Auth.RateLimitRequests, cfg.Auth.RateLimitWindow)

	hub := chat.NewHub(cfg, groupRepo, messageRepo, userRepo, eventBus)
	defer hub.Close()

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.Logging)
	r.Use(mw.Recoverer)
	r.Use(mw.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.ClientURL},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/auth", func(r chi.Router) {
		r.Use(authLimiter.Middleware())
		r.Post("/register", h.Register)
		r.Post("/verify", h.Verify)
		r.Post("/resend-code", h.ResendCode)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)
		r.Post("/forgot-password", h.ForgotPassword)
		r.Post("/reset-password", h.ResetPassword)
	})

	r.Route("/groups", func(r chi.Router) {
		r.Use(gate.RequireAuth)
		r.Post("/", h.CreateGroup)
		r.Get("/", h.ListOpenGroups)
		r.Post("/{id}/join", h.JoinGroup)
		r.Post("/{id}/leave", h.LeaveGroup)
		r.Get("/{id}/messages", h.GroupMessages)
		r.Patch("/{id}/graduate", h.GraduateGroup)
	})

	// The socket authenticates inside the handshake, before the upgrade.
	r.Get("/ws", hub.ServeWS())

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	}()

	logger.Info("Starting server", "port", cfg.Server.Port, "env", cfg.Env)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}

func newCounterStore(cfg *config.Config) mw.CounterStore {
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Warn("Invalid Redis URL, rate limiting in memory", "error", err)
		return mw.NewMemoryCounterStore()
	}
	return mw.NewRedisCounterStore(redis.NewClient(opts))
}

func newMailer(cfg *config.Config) mailer.Service {
	switch {
	case cfg.Email.DevMode:
		logger.Info("Using dev mailer, emails go to logs")
		return mailer.NewDevMailer()
	case cfg.Email.MailerSendKey != "":
		return mailer.NewMailerSend(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.SMTPFrom)
	default:
		return mailer.NewSMTPMailer(
			cfg.Email.SMTPHost,
			cfg.Email.SMTPPort,
			cfg.Email.SMTPFrom,
			cfg.Email.SMTPUser,
			cfg.Email.SMTPPass,
			cfg.Email.SMTPUseTLS,
		)
	}
}
