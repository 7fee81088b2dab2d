package database

import (
	"context"
	"fmt"
	"time"

	"eduadmin_go/config"
	"eduadmin_go/models"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB holds the audit trail. The dashboard keeps serving without it.
var DB *gorm.DB
var RedisClient *redis.Client

const connectAttempts = 4

// Connect initializes the database and Redis connections. Either may be left
// nil when unreachable.
func Connect(cfg *config.Config) {
	if err := connectDatabase(cfg); err != nil {
		logrus.WithError(err).Warn("Continuing without database - activity logs stay in Redis or are dropped")
	}
	connectRedis(cfg)
}

func connectDatabase(cfg *config.Config) error {
	gormLogger := logger.Default.LogMode(logger.Silent)
	if cfg.AppEnv == "development" {
		gormLogger = logger.Default.LogMode(logger.Warn)
	}

	var db *gorm.DB
	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		db, err = gorm.Open(mysql.Open(cfg.GetDSN()), &gorm.Config{Logger: gormLogger})
		if err == nil {
			break
		}
		logrus.WithField("attempt", attempt).WithError(err).Warn("Database connect attempt failed")
		time.Sleep(time.Duration(attempt*attempt) * 300 * time.Millisecond)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to database after %d attempts: %w", connectAttempts, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(55 * time.Minute)

	if !cfg.SkipMigrate {
		if err := AutoMigrate(db); err != nil {
			return err
		}
	}

	DB = db
	logrus.Info("Database connected successfully")
	return nil
}

// AutoMigrate creates the audit tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.ActivityLog{}, &models.LogArchive{}); err != nil {
		return fmt.Errorf("auto migration failed: %w", err)
	}
	logrus.Info("Database migration completed successfully")
	return nil
}

func connectRedis(cfg *config.Config) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logrus.WithError(err).Warn("Redis connection failed - submit locks are process-local and logs go straight to the database")
		_ = client.Close()
		return
	}

	RedisClient = client
	logrus.Info("Redis connected successfully")
}

// GetRedisClient returns the Redis client instance, or nil.
func GetRedisClient() *redis.Client {
	return RedisClient
}

// GetDB returns the database instance, or nil.
func GetDB() *gorm.DB {
	return DB
}

// Close closes both connections.
func Close() {
	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			logrus.WithError(err).Warn("Error closing Redis connection")
		}
	}
	if DB == nil {
		return
	}
	sqlDB, err := DB.DB()
	if err != nil {
		logrus.WithError(err).Warn("Error getting database instance")
		return
	}
	if err := sqlDB.Close(); err != nil {
		logrus.WithError(err).Warn("Error closing database connection")
		return
	}
	logrus.Info("Database connection closed")
}
