package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smartpark/occupancy-service/internal/api"
	"github.com/smartpark/occupancy-service/internal/config"
	"github.com/smartpark/occupancy-service/internal/db"
	"github.com/smartpark/occupancy-service/internal/fullness"
	"github.com/smartpark/occupancy-service/internal/mq"
	"github.com/smartpark/occupancy-service/internal/occupancy"
	"github.com/smartpark/occupancy-service/internal/realtime"
	"github.com/smartpark/occupancy-service/internal/repository"
	"github.com/smartpark/occupancy-service/internal/scheduler"
	"github.com/smartpark/occupancy-service/internal/store"
	"github.com/smartpark/occupancy-service/internal/viewer"
)

// ProvideDBPool creates the PostgreSQL pool.
func ProvideDBPool(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*db.Pool, error) {
	return db.NewPool(lc, logger, cfg.Database.URL)
}

// ProvideRepository creates the pgx-backed repository.
func ProvideRepository(pool *db.Pool) *repository.Repository {
	return repository.NewRepository(pool)
}

// ProvideStores exposes the repository through the store ports.
func ProvideStores(repo *repository.Repository) (store.LotStore, store.SpotStore, store.LeaseStore) {
	return repo, repo, repo
}

// ProvideHub creates the in-process realtime hub.
func ProvideHub(logger *zap.Logger) *realtime.Hub {
	return realtime.NewHub(logger)
}

// ProvideBroadcaster exposes the hub through the Broadcaster port.
func ProvideBroadcaster(hub *realtime.Hub) realtime.Broadcaster {
	return hub
}

// ProvideWSHandler creates the websocket relay for the lot-spots topic.
func ProvideWSHandler(hub *realtime.Hub, logger *zap.Logger) *realtime.WSHandler {
	return realtime.NewWSHandler(hub, realtime.TopicLotSpots, logger)
}

// ProvideOccupancyService creates the ingestion service.
func ProvideOccupancyService(spots store.SpotStore, broadcaster realtime.Broadcaster, logger *zap.Logger) *occupancy.Service {
	return occupancy.NewService(spots, broadcaster, logger)
}

// ProvideTracker creates the viewer interest tracker.
func ProvideTracker(leases store.LeaseStore, logger *zap.Logger) *viewer.Tracker {
	return viewer.NewTracker(leases, logger)
}

// ProvideMQConnection creates the RabbitMQ connection.
func ProvideMQConnection(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*mq.Connection, error) {
	return mq.NewConnection(lc, logger, cfg.RabbitMQ.URL)
}

// ProvidePublisher creates the lot-full notification publisher.
func ProvidePublisher(conn *mq.Connection, cfg *config.Config, logger *zap.Logger) (*mq.Publisher, error) {
	return mq.NewPublisher(conn, cfg.RabbitMQ.NotifyExchange, cfg.RabbitMQ.NotifyRoutingKey, logger)
}

// ProvideNotificationPublisher exposes the publisher through the port.
func ProvideNotificationPublisher(publisher *mq.Publisher) fullness.NotificationPublisher {
	return publisher
}

// ProvideDispatcher creates the full-detection dispatcher.
func ProvideDispatcher(
	lots store.LotStore,
	spots store.SpotStore,
	tracker *viewer.Tracker,
	publisher fullness.NotificationPublisher,
	logger *zap.Logger,
) *fullness.Dispatcher {
	return fullness.NewDispatcher(lots, spots, tracker, publisher, logger)
}

// ProvideClock supplies the wall clock.
func ProvideClock() scheduler.Clock {
	return scheduler.SystemClock{}
}

// ProvideHandlers creates the HTTP handler set.
func ProvideHandlers(
	occupancySvc *occupancy.Service,
	tracker *viewer.Tracker,
	lots store.LotStore,
	spots store.SpotStore,
	clock scheduler.Clock,
	logger *zap.Logger,
) *api.Handlers {
	return api.NewHandlers(occupancySvc, tracker, lots, spots, clock, logger)
}

// ProvideRouter builds the chi router.
func ProvideRouter(handlers *api.Handlers, ws *realtime.WSHandler, cfg *config.Config) *chi.Mux {
	return api.NewRouter(handlers, ws, cfg)
}

func startHTTPServer(lc fx.Lifecycle, cfg *config.Config, router *chi.Mux, logger *zap.Logger) {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("starting HTTP server", zap.Int("port", cfg.HTTPPort))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down HTTP server")
			return srv.Shutdown(ctx)
		},
	})
}

func startSensorConsumer(
	lc fx.Lifecycle,
	conn *mq.Connection,
	cfg *config.Config,
	logger *zap.Logger,
	svc *occupancy.Service,
) (*mq.Consumer, error) {
	ctx, cancel := context.WithCancel(context.Background())

	consumer, err := mq.NewConsumer(mq.ConsumerConfig{
		Connection:    conn,
		Queue:         cfg.RabbitMQ.SensorQueue,
		DLQQueue:      cfg.RabbitMQ.SensorDLQQueue,
		Exchange:      cfg.RabbitMQ.SensorExchange,
		RoutingKey:    cfg.RabbitMQ.SensorRoutingKey,
		PrefetchCount: cfg.RabbitMQ.PrefetchCount,
		Logger:        logger,
		Handler: func(ctx context.Context, body []byte) error {
			if ok := svc.ApplyRaw(ctx, string(body)); !ok {
				return fmt.Errorf("sensor reading rejected")
			}
			return nil
		},
	})
	if err != nil {
		cancel()
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			logger.Info("starting sensor consumer",
				zap.String("queue", cfg.RabbitMQ.SensorQueue))
			return consumer.Start(ctx)
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			if err := consumer.Close(); err != nil {
				logger.Error("failed to close consumer", zap.Error(err))
				return err
			}
			return nil
		},
	})

	return consumer, nil
}

func startSchedulers(
	lc fx.Lifecycle,
	tracker *viewer.Tracker,
	dispatcher *fullness.Dispatcher,
	clock scheduler.Clock,
	logger *zap.Logger,
) {
	sweep := scheduler.New("lease-expiry-sweep", viewer.SweepInterval, clock,
		tracker.SweepExpired, logger)
	check := scheduler.New("lot-fullness-check", fullness.CheckInterval, clock,
		dispatcher.RunAll, logger)

	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			go sweep.Run(ctx)
			go check.Run(ctx)
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			return nil
		},
	})
}
