// Command migrate prepares the configured database: tables for sqlite,
// indexes for MongoDB. It exits without serving.
package main

import (
	"context"
	"os"
	"time"

	"github.com/workoutlog/workoutlog/backend/go-services/internal/config"
	"github.com/workoutlog/workoutlog/backend/go-services/internal/database"
	"github.com/workoutlog/workoutlog/backend/go-services/internal/sessions"
	"github.com/workoutlog/workoutlog/backend/go-services/internal/users"
	"github.com/workoutlog/workoutlog/backend/go-services/internal/workout/repository"
	"github.com/workoutlog/workoutlog/backend/go-services/pkg/logger"
)

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := migrate(ctx, cfg); err != nil {
		logger.Fatalf("migrate: %v", err)
	}
	logger.Infof("migration complete (driver=%s)", cfg.Database.Driver)
}

func migrate(ctx context.Context, cfg *config.Config) error {
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		db, err := database.OpenSQLite(cfg.Database.SQLitePath)
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		defer sqlDB.Close()
		return database.Migrate(db)

	case config.DriverMongo:
		client, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
		if err != nil {
			return err
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
		db := client.Database(cfg.MongoDB.Database)
		// the constructors create their indexes
		if _, err := users.NewMongoUserRepository(ctx, db.Collection("users"), db.Collection(database.CountersCollection)); err != nil {
			return err
		}
		if _, err := sessions.NewMongoRepository(ctx, db.Collection("sessions")); err != nil {
			return err
		}
		_, err = repository.NewMongoRepo(ctx, db)
		return err

	default:
		logger.Infof("driver %q needs no migration", cfg.Database.Driver)
		return nil
	}
}
