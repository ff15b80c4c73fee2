package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ticket-booking/config"
	"ticket-booking/internal/cache"
	"ticket-booking/internal/codegen"
	"ticket-booking/internal/database"
	"ticket-booking/internal/handler"
	"ticket-booking/internal/inventory"
	"ticket-booking/internal/model"
	"ticket-booking/internal/notify"
	"ticket-booking/internal/queue"
	"ticket-booking/internal/repository"
	"ticket-booking/internal/repository/memory"
	"ticket-booking/internal/scheduler"
	"ticket-booking/internal/service"
	"ticket-booking/internal/worker"
	"ticket-booking/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type storage struct {
	tx          repository.TxManager
	events      repository.EventRepository
	ticketTypes repository.TicketTypeRepository
	bookings    repository.BookingRepository
	actors      repository.ActorRepository
	close       func()
}

func main() {
	cfg := config.LoadConfig()
	logger.SetLevel(cfg.Server.LogLevel)
	gin.SetMode(cfg.Server.GinMode)
	log := logger.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer store.close()

	// memory + memory 模式下 Redis 可有可無
	needRedis := cfg.Storage.Driver == config.StorageDriverPostgres || cfg.Queue.Driver == "redis"
	rdb, err := database.InitRedis(ctx, &cfg.Redis)
	if err != nil {
		if needRedis {
			log.Fatal("Failed to initialize redis", zap.Error(err))
		}
		log.Warn("Redis unavailable, running without inventory cache", zap.Error(err))
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}

	var inventoryCache cache.InventoryCache
	if rdb != nil {
		inventoryCache = cache.NewRedisInventoryCache(rdb)
	}

	payments, notifications, err := openQueues(cfg, rdb)
	if err != nil {
		log.Fatal("Failed to initialize queues", zap.Error(err))
	}

	issuer, err := codegen.NewIssuer(cfg.Booking.CodeSecret)
	if err != nil {
		log.Fatal("Failed to initialize code issuer", zap.Error(err))
	}

	opts := service.DefaultBookingOptions()
	opts.Pricing = service.Pricing{
		ServiceFeePercent: cfg.Booking.ServiceFeePercent,
		TaxPercent:        cfg.Booking.TaxPercent,
	}
	opts.MaxQuantity = cfg.Booking.MaxQuantity
	opts.CancellationCutoff = cfg.Booking.CancellationCutoff
	opts.MaxCodeAttempts = cfg.Booking.MaxCodeAttempts

	bookingService := service.NewBookingService(service.BookingDeps{
		Tx:            store.tx,
		Bookings:      store.bookings,
		Events:        store.events,
		TicketTypes:   store.ticketTypes,
		Actors:        store.actors,
		Ledger:        inventory.NewLedger(store.ticketTypes),
		Issuer:        issuer,
		Notifications: notifications,
		Inventory:     inventoryCache,
	}, opts)
	eventService := service.NewEventService(store.tx, store.events, store.ticketTypes, store.actors, inventoryCache)
	confirmationService := service.NewConfirmationService(bookingService, payments)
	redemptionService := service.NewRedemptionService(store.actors, store.events, store.bookings, bookingService)

	if written, err := eventService.WarmUp(ctx); err != nil {
		log.Warn("Inventory warm-up failed", zap.Error(err))
	} else {
		log.Info("Inventory cache warmed", zap.Int("written", written))
	}

	router := handler.NewRouter(
		handler.NewEventHandler(eventService),
		handler.NewBookingHandler(bookingService, confirmationService),
		handler.NewPaymentHandler(confirmationService),
		handler.NewCheckinHandler(redemptionService),
	)
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	workers := []worker.Worker{
		worker.NewPaymentWorker(confirmationService, payments),
		worker.NewNotificationWorker(notify.NewLogNotifier(), notifications),
	}
	for _, w := range workers {
		w := w
		if err := w.Start(gctx); err != nil {
			log.Fatal("Failed to start worker", zap.Error(err))
		}
		g.Go(func() error {
			w.Wait()
			return nil
		})
	}

	if inventoryCache != nil {
		sched, err := scheduler.New(eventService, cfg.Scheduler.InventorySyncInterval)
		if err != nil {
			log.Fatal("Failed to create scheduler", zap.Error(err))
		}
		if err := sched.Start(gctx); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		g.Go(func() error {
			<-gctx.Done()
			return sched.Shutdown()
		})
	}

	g.Go(func() error {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("Server stopped with error", zap.Error(err))
		return
	}
	log.Info("Server stopped")
}

func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		s := memory.NewStore()
		return &storage{
			tx:          s,
			events:      s.Events(),
			ticketTypes: s.TicketTypes(),
			bookings:    s.Bookings(),
			actors:      s.Actors(),
			close:       func() {},
		}, nil
	default:
		pool, err := database.InitDatabase(ctx, &cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return &storage{
			tx:          repository.NewTxManager(pool),
			events:      repository.NewEventRepository(pool),
			ticketTypes: repository.NewTicketTypeRepository(pool),
			bookings:    repository.NewBookingRepository(pool),
			actors:      repository.NewActorRepository(pool),
			close:       pool.Close,
		}, nil
	}
}

func openQueues(cfg *config.Config, rdb *redis.Client) (queue.Queue[model.PaymentResult], queue.Queue[model.Notification], error) {
	if cfg.Queue.Driver != "redis" || rdb == nil {
		return queue.NewMemoryQueue[model.PaymentResult](cfg.Queue.BufferSize),
			queue.NewMemoryQueue[model.Notification](cfg.Queue.BufferSize), nil
	}

	consumerID := cfg.Queue.ConsumerID
	if consumerID == "" {
		if host, err := os.Hostname(); err == nil {
			consumerID = host
		}
	}
	streamCfg := &queue.RedisStreamConfig{
		ClaimMinIdleTime:   cfg.Queue.ClaimMinIdleTime,
		MaxRetryCount:      cfg.Queue.MaxRetryCount,
		ReadGroupBlockTime: cfg.Queue.ReadGroupBlockTime,
	}

	payments, err := queue.NewRedisStreamQueue[model.PaymentResult](rdb, queue.PaymentStream, queue.PaymentGroup, consumerID, streamCfg)
	if err != nil {
		return nil, nil, err
	}
	notifications, err := queue.NewRedisStreamQueue[model.Notification](rdb, queue.NotificationStream, queue.NotificationGroup, consumerID, streamCfg)
	if err != nil {
		return nil, nil, err
	}
	return payments, notifications, nil
}
