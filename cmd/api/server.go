package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anjiri1684/training_academy/database"
	"github.com/anjiri1684/training_academy/handlers"
	"github.com/anjiri1684/training_academy/jobs"
	"github.com/anjiri1684/training_academy/metrics"
	"github.com/anjiri1684/training_academy/middleware"
	"github.com/anjiri1684/training_academy/notifications"
	"github.com/anjiri1684/training_academy/payments"
	"github.com/anjiri1684/training_academy/routes"
	"github.com/anjiri1684/training_academy/services"
	"github.com/anjiri1684/training_academy/utils"
	"github.com/anjiri1684/training_academy/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 15 * time.Second

func serve(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer e.close()
	cfg, log := e.cfg, e.log

	mailer := notifications.NewMailer(cfg.Email, log)
	publisher, err := notifications.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, log)
	if err != nil {
		return err
	}
	defer publisher.Close()

	// An untyped nil keeps the rate limiter in pass-through mode.
	var limiterStore redis.Scripter
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.WithError(err).Warn("⚠️ Redis unreachable, rate limiting disabled")
			_ = rdb.Close()
		} else {
			defer rdb.Close()
			limiterStore = rdb
		}
		cancel()
	}

	var images services.ImageStore
	if store, err := services.NewCloudinaryStore(cfg.Cloudinary.URL, cfg.Cloudinary.Folder); err != nil {
		return err
	} else if store != nil {
		images = store
	}

	clock := utils.SystemClock{}
	hub := websocket.NewHub(log)
	go hub.Run(ctx)

	deps := services.Deps{
		DB:       e.db,
		Clock:    clock,
		Policy:   database.SerializablePolicy(cfg.Retry),
		Settings: e.settings,
		Events:   services.NewEventDispatcher(e.db, mailer, publisher, hub, e.settings, clock, log),
		Audit:    services.NewAuditService(clock),
		Log:      log,
		Currency: cfg.Currency,
	}

	pf := payments.NewPayFastService(cfg.PayFast)
	h := &handlers.Handler{
		Config:       cfg,
		DB:           e.db,
		Clock:        clock,
		Log:          log,
		Reservations: services.NewReservationService(deps),
		Reconciler:   services.NewReconciliationService(deps, payments.NewITNVerifier(cfg.PayFast, pf.ValidateURL())),
		Schedule:     services.NewScheduleService(e.db, clock),
		Admin:        services.NewAdminService(deps, mailer),
		Contact:      services.NewContactService(e.db, clock, mailer, e.settings, log),
		Settings:     e.settings,
		PayFast:      pf,
		Images:       images,
		Hub:          hub,
	}

	scheduler := jobs.NewScheduler(log)
	for _, s := range []struct {
		every time.Duration
		job   jobs.Job
	}{
		{cfg.Jobs.SweepInterval, jobs.NewPendingCleanupJob(deps, cfg.Jobs.SweepSafety)},
		{cfg.Jobs.ReminderInterval, jobs.NewReminderJob(e.db, clock, e.settings, mailer, log)},
		{cfg.Jobs.CompleteInterval, jobs.NewCompletionJob(e.db, clock, deps.Policy, log)},
	} {
		if err := scheduler.Every(s.every, s.job); err != nil {
			return err
		}
	}
	scheduler.Start()
	log.Info("✅ Background jobs scheduled")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(reg)

	app := fiber.New(fiber.Config{
		AppName:       "Training Academy",
		CaseSensitive: true,
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  15 * time.Second,
		IdleTimeout:   60 * time.Second,
		ErrorHandler:  handlers.ErrorHandler(log),
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods: "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		MaxAge:       86400,
	}))
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   e.settings.Current().TimeZone,
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	routes.Setup(app, h, routes.Options{
		JWTSecret: cfg.JWTSecret,
		RateLimit: middleware.RateLimit(cfg.Redis, limiterStore, log),
		Metrics:   adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
	})

	listenErr := make(chan error, 1)
	go func() {
		log.Infof("✅ Server is running on %s", cfg.HTTPAddr)
		listenErr <- app.Listen(cfg.HTTPAddr)
	}()

	select {
	case err = <-listenErr:
	case <-ctx.Done():
		log.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Join(
		err,
		app.ShutdownWithContext(shutdownCtx),
		scheduler.Stop(shutdownCtx),
	)
}
