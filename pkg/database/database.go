package database

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"time"

	"github.com/alimgiray/devfolio/pkg/logger"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrations embed.FS

var DB *sql.DB

// Init opens the database at path and stores it in DB
func Init(dbPath string) error {
	db, err := Open(dbPath)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// Open opens a SQLite database, applies pragmas and runs migrations.
// Use ":memory:" for a throwaway database.
func Open(dbPath string) (*sql.DB, error) {
	dsn := dbPath + "?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=ON&_busy_timeout=30000"
	if dbPath == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		dsn = "file::memory:?cache=shared&_busy_timeout=30000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)
	if dbPath == ":memory:" {
		db.SetConnMaxLifetime(0)
	}

	// Test the connection
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if err = optimizeDatabase(db); err != nil {
		db.Close()
		return nil, err
	}

	if err = RunSQLScripts(db); err != nil {
		db.Close()
		return nil, err
	}

	logger.WithField("path", dbPath).Info("Database connected")
	return db, nil
}

// optimizeDatabase configures SQLite for concurrent readers
func optimizeDatabase(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA busy_timeout=30000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// Close closes the database connection
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}

// RunSQLScripts executes the embedded migrations in file name order
func RunSQLScripts(db *sql.DB) error {
	files, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(files)

	for _, file := range files {
		sqlContent, err := migrations.ReadFile(file)
		if err != nil {
			return err
		}

		if _, err = db.Exec(string(sqlContent)); err != nil {
			return fmt.Errorf("migration %s: %w", path.Base(file), err)
		}

		logger.Debugf("Executed SQL script: %s", path.Base(file))
	}

	return nil
}
