package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/workoutlog/workoutlog/backend/go-services/internal/config"
	"github.com/workoutlog/workoutlog/backend/go-services/internal/database"
	"github.com/workoutlog/workoutlog/backend/go-services/internal/sessions"
	"github.com/workoutlog/workoutlog/backend/go-services/internal/storage"
	"github.com/workoutlog/workoutlog/backend/go-services/internal/users"
	"github.com/workoutlog/workoutlog/backend/go-services/internal/workout/repository"
	"github.com/workoutlog/workoutlog/backend/go-services/internal/workout/service"
	"github.com/workoutlog/workoutlog/backend/go-services/pkg/logger"
)

const mongoConnectAttempts = 5

// backend bundles the services built from the configured stores.
type backend struct {
	users    *users.Service
	sessions *sessions.Service
	workouts *service.Service
	redis    *redis.Client
	// purger is set when the session store needs periodic cleanup.
	purger sessions.Purger
	// checks back /ready, keyed by dependency name.
	checks  map[string]func(context.Context) error
	closers []func(context.Context) error
}

func (b *backend) Close(ctx context.Context) {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](ctx); err != nil {
			logger.Warnf("shutdown: %v", err)
		}
	}
}

// openBackend connects the configured database, Redis and object storage.
// Redis and MinIO are optional: failures there are logged and the feature is disabled.
func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	b := &backend{checks: map[string]func(context.Context) error{}}

	var (
		userRepo    users.UserRepository
		sessionRepo sessions.Repository
		workoutRepo repository.Repository
	)

	switch cfg.Database.Driver {
	case config.DriverSQLite:
		db, err := database.OpenSQLite(cfg.Database.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(db); err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		b.checks["database"] = sqlDB.PingContext
		b.closers = append(b.closers, func(context.Context) error { return sqlDB.Close() })
		userRepo = users.NewGormUserRepository(db)
		sessionRepo = sessions.NewGormRepository(db)
		workoutRepo = repository.NewGormRepo(db)
		logger.Infof("using sqlite database at %s", cfg.Database.SQLitePath)

	case config.DriverMongo:
		client, err := database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, mongoConnectAttempts, func(attempt int, err error) {
			logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, mongoConnectAttempts, err)
		})
		if err != nil {
			return nil, err
		}
		b.checks["database"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }
		b.closers = append(b.closers, client.Disconnect)
		db := client.Database(cfg.MongoDB.Database)
		if userRepo, err = users.NewMongoUserRepository(ctx, db.Collection("users"), db.Collection(database.CountersCollection)); err != nil {
			return nil, err
		}
		if sessionRepo, err = sessions.NewMongoRepository(ctx, db.Collection("sessions")); err != nil {
			return nil, err
		}
		if workoutRepo, err = repository.NewMongoRepo(ctx, db); err != nil {
			return nil, err
		}
		logger.Infof("using MongoDB database %s", cfg.MongoDB.Database)

	case config.DriverMemory:
		userRepo = users.NewMemoryUserRepository()
		sessionRepo = sessions.NewMemoryRepository()
		workoutRepo = repository.NewMemoryRepo()
		logger.Warn("using in-memory storage; data is lost on restart")

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	if cfg.Redis.Host != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			_ = client.Close()
		} else {
			b.redis = client
			sessions.SetBlacklistClient(client)
			sessionRepo = sessions.NewRedisRepository(client, "")
			b.checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
			b.closers = append(b.closers, func(context.Context) error { return client.Close() })
			logger.Infof("using Redis for sessions and token revocation: %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
	}
	if p, ok := sessionRepo.(sessions.Purger); ok {
		b.purger = p
	}

	var store service.ObjectStore
	if cfg.MinIO.Endpoint != "" {
		s, err := storage.NewMinIOStorage(ctx, cfg.MinIO)
		if err != nil {
			logger.Warnf("exports disabled: %v", err)
		} else {
			store = s
			b.checks["storage"] = s.Ping
			logger.Infof("exports go to MinIO bucket %s", cfg.MinIO.Bucket)
		}
	}

	b.users = users.NewService(userRepo)
	b.sessions = sessions.NewService(sessionRepo)
	b.workouts = service.NewService(workoutRepo, store)
	return b, nil
}
