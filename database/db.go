package database

import (
	"fmt"
	"log"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"taskboard-app/taskboard/config"
)

type Database struct {
	DB *gorm.DB
}

// Open connects to the SQLite store at dbPath with the pragmas the sync
// workload needs: WAL so readers are never blocked by the writer, relaxed
// fsync, foreign keys on, and a busy timeout instead of immediate
// SQLITE_BUSY failures. It does not touch the schema.
//
// The driver is the pure-Go modernc engine, which ships with the fts5
// module compiled in; the schema depends on it, so a build-tag-gated FTS
// build is not an option here.
func Open(dbPath string) (*Database, error) {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		dbPath,
	)

	gormConfig := &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Warn),
		SkipDefaultTransaction: true,
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Database{DB: db}, nil
}

// Setup opens the store and brings the schema up to date. The migration runs
// to completion before any caller gets a handle, so store traffic never
// races the migration engine. A migration failure means the process must not
// serve traffic.
func Setup(cfg config.Config) (*Database, error) {
	d, err := Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	sqlDB, err := d.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)

	log.Println("Running database migrations...")
	migrator := NewMigrator(d.DB, Migrations)
	if err := migrator.MigrateToLatest(); err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Println("Database migrations completed successfully")

	return d, nil
}

func (d *Database) Close() {
	if d.DB == nil {
		log.Println("Database connection is nil, nothing to close.")
		return
	}
	sqlDB, err := d.DB.DB()
	if err != nil {
		log.Printf("Failed to get database connection: %v", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Printf("Failed to close database connection: %v", err)
	}
}
