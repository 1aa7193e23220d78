package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/emojiforge/emojiforge/backend/go-services/internal/models"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to the relational store named by url. postgres:// and
// postgresql:// URLs use the Postgres driver; sqlite:<path> (including
// sqlite::memory:) uses the pure-Go SQLite driver for local runs and tests.
func Open(ctx context.Context, url string, maxConns int) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	}

	var (
		db       *gorm.DB
		err      error
		isSQLite bool
	)
	switch {
	case strings.HasPrefix(url, "sqlite:"):
		isSQLite = true
		db, err = gorm.Open(sqliteDialector(strings.TrimPrefix(strings.TrimPrefix(url, "sqlite:"), "//")), gcfg)
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"), strings.Contains(url, "host="):
		gcfg.PrepareStmt = true
		db, err = gorm.Open(postgres.Open(url), gcfg)
	default:
		return nil, fmt.Errorf("unsupported database url scheme")
	}
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}
	if isSQLite {
		// one connection: an in-memory database lives and dies with it
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
		sqlDB.SetConnMaxIdleTime(0)
	} else {
		if maxConns > 0 {
			sqlDB.SetMaxOpenConns(maxConns)
			sqlDB.SetMaxIdleConns(maxConns / 2)
		}
		sqlDB.SetConnMaxIdleTime(15 * time.Minute)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func sqliteDialector(path string) gorm.Dialector {
	if path == "" {
		path = ":memory:"
	}
	return sqlite.Open(path)
}

// Migrate creates or updates the tables owned by this service.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(
		&models.Profile{},
		&models.ShadowUser{},
		&models.Emoji{},
		&models.EmojiLike{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// Ping checks the underlying connection; used by the readiness probe.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
