package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/workoutlog/workoutlog/backend/go-services/internal/models"
	"github.com/workoutlog/workoutlog/backend/go-services/internal/sessions"
	"github.com/workoutlog/workoutlog/backend/go-services/internal/workout"
	"github.com/workoutlog/workoutlog/backend/go-services/pkg/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// OpenSQLite opens the sqlite database at path through gorm.
// sqlite allows a single writer, so the pool is capped at one connection.
func OpenSQLite(path string) (*gorm.DB, error) {
	dsn := path
	if dsn == "" || dsn == ":memory:" {
		dsn = "file::memory:"
	}
	db, err := gorm.Open(sqlite.Open(dsn+sqliteParams(dsn)), &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(gormLogWriter{}, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func sqliteParams(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return sep + "_foreign_keys=on&_busy_timeout=5000"
}

// Migrate creates or updates every table the API uses.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&sessions.Session{},
		&workout.Workout{},
		&workout.Routine{},
		&workout.WorkoutRoutine{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// gormLogWriter routes gorm's warnings into the process logger.
type gormLogWriter struct{}

func (gormLogWriter) Printf(format string, v ...interface{}) {
	logger.Warnf("gorm: "+format, v...)
}
