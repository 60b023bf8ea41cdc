package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"brhygiene/internal/auth"
	"brhygiene/internal/catalog"
	"brhygiene/internal/config"
	"brhygiene/internal/database"
	"brhygiene/internal/domain"
	"brhygiene/internal/logging"
	"brhygiene/internal/notify"
	"brhygiene/internal/server"
	"brhygiene/internal/services"
	"brhygiene/internal/store"
	"brhygiene/internal/validation"
)

const (
	shutdownTimeout = 30 * time.Second
	readTimeout     = 15 * time.Second
	writeTimeout    = 15 * time.Second
	idleTimeout     = 60 * time.Second
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	logging.Init(cfg.App.Debug, cfg.App.LogFormat)
	log := logging.For("api")

	log.WithFields(logrus.Fields{
		"version": cfg.App.Version,
		"debug":   cfg.App.Debug,
		"port":    cfg.App.Port,
		"host":    cfg.App.Host,
	}).Infof("Starting %s", cfg.App.Name)

	// Initialize database
	db, err := database.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		log.Info("Closing database connections...")
		if err := database.Close(db); err != nil {
			log.WithError(err).Error("Error closing database")
		}
	}()

	// Notification pipeline
	mailer, err := notify.NewMailer(&cfg.Email)
	if err != nil {
		log.Fatalf("Failed to initialize mailer: %v", err)
	}
	templates, err := notify.NewTemplates(notify.Branding{
		Name:         cfg.Business.Name,
		Phone:        cfg.Business.Phone,
		Email:        cfg.Business.Email,
		Address:      cfg.Business.Address,
		ResponseTime: cfg.Business.ResponseTime,
	})
	if err != nil {
		log.Fatalf("Failed to load email templates: %v", err)
	}
	notifier := notify.NewNotifier(templates, mailer, cfg.Notify.OperatorEmail, cfg.Notify.SendAcknowledgement)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	var outbox *notify.Outbox
	workerDone := make(chan struct{})
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatalf("Invalid REDIS_URL: %v", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.WithError(err).Warn("Redis unreachable, notification retries disabled")
			close(workerDone)
		} else {
			outbox = notify.NewOutbox(rdb, cfg.Notify.QueueKey)
			worker := notify.NewRetryWorker(outbox, notifier, cfg.Notify.RetryInterval, cfg.Email.Timeout, cfg.Notify.RetryMaxAttempts)
			go func() {
				defer close(workerDone)
				_ = worker.Run(ctx)
			}()
			log.WithField("queue", cfg.Notify.QueueKey).Info("Notification outbox enabled")
		}
	} else {
		close(workerDone)
	}

	dispatcher := notify.NewDispatcher(notifier, outbox, notify.DispatcherOptions{
		Async:      cfg.Notify.Async,
		Timeout:    cfg.Email.Timeout,
		RetryDelay: cfg.Notify.RetryInterval,
	})

	// Product catalog
	var fallback []domain.Product
	if cfg.Catalog.File != "" {
		fallback, err = catalog.LoadFile(cfg.Catalog.File)
		if err != nil {
			log.Fatalf("Failed to load catalog: %v", err)
		}
	}

	// Create service instances
	log.Info("Initializing services...")
	contactSvc := services.NewContactService(
		validation.New(),
		store.NewInquiryStore(db, cfg.Database.StoreTimeout),
		dispatcher,
		&cfg.Business,
		cfg.Notify.SendAcknowledgement,
	)
	catalogSvc := services.NewCatalogService(catalog.New(db, fallback, cfg.Database.StoreTimeout))
	healthSvc := services.NewHealthService(db, cfg.App.Name, cfg.App.Version)

	var issuer *auth.TokenIssuer
	if cfg.Auth.SecretKey != "" {
		issuer = auth.NewTokenIssuer(cfg.Auth.SecretKey, cfg.Auth.TokenTTL)
	} else {
		log.Warn("SECRET_KEY not set, /metrics is unauthenticated")
	}

	handler := server.NewHandler(server.NewEndpoints(contactSvc, catalogSvc, healthSvc), server.Options{
		Debug:    cfg.App.Debug,
		CORS:     cfg.CORS,
		Business: &cfg.Business,
		Issuer:   issuer,
	})

	// Create HTTP server with timeouts
	addr := fmt.Sprintf("%s:%s", cfg.App.Host, cfg.App.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		log.Infof("Server listening on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- fmt.Errorf("server error: %w", err)
		}
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Fatalf("Server failed to start: %v", err)
	case sig := <-shutdown:
		log.Infof("Received signal: %v. Starting graceful shutdown...", sig)
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error during graceful shutdown")
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn("Shutdown timeout exceeded, forcing close...")
			_ = httpServer.Close()
		}
	}

	// Notifications for inquiries stored before shutdown still go out.
	if err := dispatcher.Wait(shutdownCtx); err != nil {
		log.WithError(err).Warn("Pending notifications abandoned")
	}
	stop()
	<-workerDone

	log.Info("Server shutdown complete")
}
