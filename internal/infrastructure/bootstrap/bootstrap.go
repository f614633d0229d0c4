package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"flightsync-service/internal/domain/entity"
	"flightsync-service/internal/domain/repository"
	"flightsync-service/internal/infrastructure/cache"
	"flightsync-service/internal/infrastructure/config"
	"flightsync-service/internal/infrastructure/oauth"
	"flightsync-service/internal/infrastructure/persistence"
	"flightsync-service/internal/infrastructure/queue"
	"flightsync-service/internal/infrastructure/router"
	"flightsync-service/internal/interface/provider/nira"
	"flightsync-service/internal/interface/provider/sepehr"
	repo "flightsync-service/internal/interface/repository"
	"flightsync-service/internal/usecase"
	"flightsync-service/pkg/logger"
	"flightsync-service/pkg/metrics"
	"flightsync-service/pkg/utils"

	"github.com/nats-io/nats.go"
	goredis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// App holds the wired sync engine and the connections behind it
type App struct {
	DB           *gorm.DB
	Router       *router.ProviderRouter
	Orchestrator *usecase.SyncOrchestrator
	Fares        *usecase.FareDetailService
	// Queue is nil when NATS is unreachable
	Queue *queue.NatsQueue

	nc    *nats.Conn
	rdb   *goredis.Client
	mongo *mongo.Client
	log   logger.Logger
}

// New connects the stores and wires every enabled provider. Postgres is
// required; Redis, NATS and MongoDB are optional and only degrade the fare
// cache, fare fan-out and dead letters when they are down.
func New(ctx context.Context, cfg *config.Config, m *metrics.Metrics, log logger.Logger) (*App, error) {
	db, err := persistence.NewPostgres(cfg.PostgresURI, log)
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := db.AutoMigrate(repo.Models()...); err != nil {
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
	}

	app := &App{DB: db, log: log}

	var fareCache repository.FareCache
	if rdb, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB); err != nil {
		log.Warn("Redis unavailable, fare cache disabled", "error", err)
	} else {
		app.rdb = rdb
		fareCache = cache.NewRedisFareCache(rdb, log)
	}

	var taskQueue repository.TaskQueue
	if nc, err := queue.Connect(cfg.NatsURL, log); err != nil {
		log.Warn("NATS unavailable, fare tasks disabled", "error", err)
	} else {
		app.nc = nc
		app.Queue = queue.NewNatsQueue(nc, cfg.FareTaskSubject, log)
		taskQueue = app.Queue
	}

	var deadLetters repository.DeadLetterRepository
	if client, mdb, err := persistence.NewMongoClient(ctx, cfg.MongoURI, cfg.MongoDB, cfg.MongoUser, cfg.MongoPassword); err != nil {
		log.Warn("MongoDB unavailable, dead letters are only logged", "error", err)
	} else {
		app.mongo = client
		deadLetters = repo.NewMongoDeadLetterRepository(mdb)
	}

	interfaceRepo := repo.NewGormInterfaceRepository(db)
	routeRepo := repo.NewGormRouteRepository(db, cfg.BulkBatchSize)
	flightRepo := repo.NewGormFlightRepository(db, cfg.BulkBatchSize)
	zones := utils.NewZoneResolver(repo.NewGormTimezoneRepository(db), cfg.Location(), log)

	app.Router = router.NewProviderRouter(log)
	for _, name := range cfg.EnabledProviders {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case entity.ProviderNira:
			adapter := nira.NewAdapter(nira.Options{
				AvailabilityTimeout: cfg.NiraAvailabilityTimeout,
				FareTimeout:         cfg.NiraFareTimeout,
				ScheduleTimeout:     cfg.NiraScheduleTimeout,
				FareCacheTTL:        cfg.FareCacheTTL,
			}, fareCache, zones, m, log)
			app.Router.Register(&usecase.ProviderHandler{
				Adapter:  adapter,
				Analyzer: nira.NewAnalyzer(zones),
				Updater: usecase.NewNiraUpdater(adapter, routeRepo, flightRepo, taskQueue, zones,
					usecase.NiraOptions{PoolSize: cfg.FetchPoolSize, Pause: cfg.FetchBatchPause}, m, log),
			})
		case entity.ProviderSepehr:
			adapter := sepehr.NewAdapter(oauth.NewClientCredentials(cfg.TokenTimeout, log), cfg.SepehrTimeout, zones, m, log)
			app.Router.Register(&usecase.ProviderHandler{
				Adapter:  adapter,
				Analyzer: sepehr.NewAnalyzer(zones),
				Updater:  usecase.NewSepehrUpdater(adapter, routeRepo, flightRepo, taskQueue, zones, m, log),
			})
		default:
			log.Warn("Ignoring unknown provider", "provider", name)
		}
	}

	app.Fares = usecase.NewFareDetailService(app.Router, interfaceRepo, flightRepo, taskQueue, deadLetters,
		usecase.FareOptions{
			MaxAttempts: cfg.FareMaxAttempts,
			Backoff:     cfg.FareRetryBackoff,
			BatchSize:   cfg.FareFillBatchSize,
		}, m, log)

	app.Orchestrator = usecase.NewSyncOrchestrator(interfaceRepo, app.Router,
		usecase.NewRouteSyncService(app.Router, routeRepo, zones, m, log),
		usecase.NewStatusSyncService(app.Router, flightRepo, zones, m, log),
		usecase.NewCleanupService(app.Router, flightRepo, zones, cfg.FetchPoolSize, m, log),
		app.Fares,
		log)

	return app, nil
}

// Close drains the queue connection and disconnects every store
func (a *App) Close(ctx context.Context) {
	if a.nc != nil {
		if err := a.nc.Drain(); err != nil {
			a.log.Error("NATS drain error", "error", err)
		}
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.log.Error("Redis close error", "error", err)
		}
	}
	if a.mongo != nil {
		if err := a.mongo.Disconnect(ctx); err != nil {
			a.log.Error("MongoDB disconnect error", "error", err)
		}
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			a.log.Error("PostgreSQL close error", "error", err)
		}
	}
}
