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

	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/database"
	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/http/handlers"
	mw "github.com/minhhungle-offical/chua-dieu-phap-server/internal/http/middleware"
	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/notify"
	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/platform/auth"
	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/platform/mailer"
	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/platform/storage"
	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/ratelimit"
	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/repo/postgres"
	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/service"
	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/sweeper"
	"github.com/minhhungle-offical/chua-dieu-phap-server/pkg/config"
	"github.com/minhhungle-offical/chua-dieu-phap-server/pkg/events"
	"github.com/minhhungle-offical/chua-dieu-phap-server/pkg/logger"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	var bus events.Publisher
	if natsBus, err := events.NewNATSEventBus(cfg.NATS.URL); err != nil {
		logger.Warn("NATS unavailable, domain events disabled", "error", err)
	} else {
		bus = natsBus
		defer natsBus.Close()
	}

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Error("invalid REDIS_URL", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()
	limiter := ratelimit.New(redisClient, cfg.RateLimit.Requests, cfg.RateLimit.Window)

	mail := pickMailer(cfg.Email)
	store, err := storage.NewCloudinary(cfg.Cloudinary.URL, cfg.Cloudinary.Folder)
	if err != nil {
		logger.Error("failed to init image storage", "error", err)
		os.Exit(1)
	}

	signer := auth.NewSigner(cfg.Auth.JWTSecret, cfg.Auth.JWTRefreshSecret,
		cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)

	participantRepo := postgres.NewParticipantRepo(pool)
	eventRepo := postgres.NewEventRepo(pool)
	userRepo := postgres.NewUserRepo(pool)
	postRepo := postgres.NewPostRepo(pool)
	categoryRepo := postgres.NewPostCategoryRepo(pool)
	outboxRepo := postgres.NewOutboxRepo(pool)

	registrations := service.NewRegistrationService(participantRepo, eventRepo, outboxRepo, bus, cfg.Auth.ParticipantOTPTTL)
	eventsSvc := service.NewEventService(eventRepo, store)
	authSvc := service.NewAuthService(userRepo, outboxRepo, signer, bus, cfg.Auth.AccountOTPTTL, cfg.Auth.ResetOTPTTL)
	usersSvc := service.NewUserService(userRepo)
	postsSvc := service.NewPostService(postRepo, categoryRepo, store)

	dispatcher := notify.NewDispatcher(outboxRepo, mail,
		cfg.Outbox.PollInterval, cfg.Outbox.BatchSize, cfg.Outbox.MaxAttempts)
	go dispatcher.Run(ctx)

	sw := sweeper.New(eventRepo, bus, cfg.Sweeper.Interval)
	go sw.Run(ctx)

	participantsH := handlers.NewParticipantsHandler(registrations)
	eventsH := handlers.NewEventsHandler(eventsSvc)
	authH := handlers.NewAuthHandler(authSvc)
	usersH := handlers.NewUsersHandler(usersSvc)
	postsH := handlers.NewPostsHandler(postsSvc)
	uploadH := handlers.NewUploadHandler(store)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		// Public surface, rate limited by client IP.
		r.Group(func(r chi.Router) {
			r.Use(mw.RateLimit(limiter))
			r.Mount("/auth", authH.Routes())
			r.Mount("/participants", participantsH.PublicRoutes())
			r.Mount("/events", eventsH.PublicRoutes())
			r.Mount("/posts", postsH.PublicRoutes())
			r.Mount("/post-categories", postsH.PublicCategoryRoutes())
		})

		// Authenticated surface.
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireJWT(signer))
			r.Mount("/users", usersH.Routes())

			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole("admin", "staff"))
				r.Mount("/admin/participants", participantsH.StaffRoutes())
				r.Mount("/admin/events", eventsH.StaffRoutes())
				r.Mount("/admin/posts", postsH.StaffRoutes())
				r.Mount("/admin/post-categories", postsH.StaffCategoryRoutes())
				r.Mount("/admin/upload", uploadH.Routes())
			})
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
	}()

	logger.Info("starting server", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// pickMailer selects the outbound email transport: MailerSend when an
// API key is configured, SMTP when a host is, dev logging otherwise.
func pickMailer(cfg config.EmailConfig) mailer.Service {
	if cfg.DevMode {
		return mailer.NewDevMailer()
	}
	if cfg.MailerSendKey != "" {
		return mailer.NewMailerSend(cfg.MailerSendKey, cfg.FromName, cfg.FromAddress)
	}
	return mailer.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.FromAddress, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPUseTLS)
}
