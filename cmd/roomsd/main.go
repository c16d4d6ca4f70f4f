package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"room-status-backend/config"
	"room-status-backend/internal/access"
	"room-status-backend/internal/alloc"
	"room-status-backend/internal/api"
	"room-status-backend/internal/db"
	"room-status-backend/internal/notification"
	"room-status-backend/internal/occupancy"
	"room-status-backend/internal/store"
	"room-status-backend/internal/ws"
)

func main() {
	logger := log.New(os.Stdout, "roomsd ", log.LstdFlags)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	var webpushOptions *webpush.Options
	if cfg.Push.Enabled {
		if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
			logger.Fatalf("push is enabled but VAPID keys are not configured")
		}
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	logger.Println("data store initialized")

	hub := ws.NewHub()

	var workerPool *notification.WorkerPool
	if webpushOptions != nil {
		workerPool = notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions)
		workerPool.Start(ctx)
	}

	tracker := occupancy.NewTracker(appStore, occupancy.Options{
		TickInterval: cfg.Tracker.TickInterval,
		OnSnapshot: func(views []occupancy.RoomView) {
			if payload := api.SnapshotPayload(views); payload != nil {
				hub.Broadcast(payload)
			}
		},
		OnTransition: func(roomNumber string, from, to occupancy.State) {
			if workerPool == nil {
				return
			}
			switch to {
			case occupancy.StateFree:
				workerPool.Dispatch(notification.Job{RoomNumber: roomNumber, Free: true})
			case occupancy.StateKickable:
				workerPool.Dispatch(notification.Job{RoomNumber: roomNumber})
			}
		},
	})
	tracker.Start(ctx)
	defer tracker.Stop()
	logger.Println("occupancy tracker started")

	evaluator := access.NewEvaluator(appStore)
	allocSvc := alloc.NewService(appStore, evaluator, cfg.Allocation, nil)

	router := api.NewRouter(cfg, appStore, tracker, allocSvc, hub, webpushOptions)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
