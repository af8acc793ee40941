package http

import (
	"context"
	"fmt"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pawmeds/internal/cache"
	"pawmeds/internal/config"
	"pawmeds/internal/database"
	"pawmeds/internal/dose"
	"pawmeds/internal/handler"
	"pawmeds/internal/push"
	"pawmeds/internal/queue"
	rediswrap "pawmeds/internal/redis"
	"pawmeds/internal/repository"
	"pawmeds/internal/scheduler"
	"pawmeds/internal/worker"
)

const shutdownTimeout = 15 * time.Second

func Run() error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Connect to Database
	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// 3. Connect to Redis
	redisClient, err := rediswrap.NewClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisClient.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx); err != nil {
		cancelPing()
		return fmt.Errorf("redis ping failed: %w", err)
	}
	cancelPing()

	// 4. Repositories
	regimenRepo := repository.NewRegimenRepository(db)
	adminRepo := repository.NewAdministrationRepository(db)
	ledgerRepo := repository.NewNotificationQueueRepository(db)
	subRepo := repository.NewPushSubscriptionRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	householdRepo := repository.NewHouseholdRepository(db)

	// 5. Dose calculator and push dispatcher
	calculator := dose.NewCalculator(regimenRepo, adminRepo)

	// NewClient returns nil when VAPID keys are missing: the dispatcher
	// then runs in disabled mode. Assign through a concrete check so the
	// interface stays nil rather than wrapping a nil pointer.
	var deliverer push.Deliverer
	if client := push.NewClient(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubject); client != nil {
		deliverer = client
	}
	dispatcher := push.NewDispatcher(subRepo, deliverer)

	// 6. Notification scheduler
	sched := scheduler.New(calculator, dispatcher, ledgerRepo, inventoryRepo)
	if cfg.SchedulerEnabled {
		if err := sched.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer sched.Stop()
	} else {
		log.Println("Scheduler disabled by configuration")
	}

	// 7. Event pipeline: publisher, consumer, worker pool
	publisher := queue.NewPublisher(redisClient.Client)
	consumer := queue.NewConsumer(redisClient.Client)
	eventHandler := worker.NewHandler(householdRepo, dispatcher)
	managerCfg := worker.DefaultManagerConfig()
	managerCfg.WorkerCount = cfg.WorkerCount
	manager := worker.NewManager(consumer, eventHandler, managerCfg)
	if err := manager.Start(context.Background()); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	defer manager.Stop()

	// 8. HTTP handlers and router
	summaryCache := cache.NewSummaryCache(redisClient.Client)
	router := NewRouter(RouterConfig{
		SubscriptionHandler:   handler.NewSubscriptionHandler(subRepo, cfg.VAPIDPublicKey),
		NotificationHandler:   handler.NewNotificationHandler(calculator, summaryCache),
		AdministrationHandler: handler.NewAdministrationHandler(regimenRepo, adminRepo, householdRepo, publisher, summaryCache),
		SchedulerHandler:      handler.NewSchedulerHandler(sched),
		JWTSecret:             cfg.JWTSecret,
	})

	srv := &stdhttp.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	// 9. Serve until interrupted, then drain
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on :%s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
