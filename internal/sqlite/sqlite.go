package sqlite

import (
	"context"
	"fmt"
	"github.com/jmoiron/sqlx"
	"github.com/myrjola/resqlink/internal/errors"
	"github.com/myrjola/resqlink/internal/random"
	"log/slog"
	"strings"
	"time"

	_ "embed"
	_ "github.com/mattn/go-sqlite3" // Enable sqlite3 driver
)

//go:embed schema.sql
var schemaDefinition string

//go:embed fixtures.sql
var fixtures string

type Database struct {
	ReadWrite *sqlx.DB
	ReadOnly  *sqlx.DB
	logger    *slog.Logger
}

// NewDatabase connects to the database, creates the schema and applies the seed fixtures.
//
// The url parameter is the path to the SQLite database file or ":memory:" for an in-memory database. A file database
// gets a separate read-only connection pool. An in-memory database shares a single connection between readers and
// the writer because shared-cache connections fail with SQLITE_LOCKED instead of waiting for each other.
func NewDatabase(ctx context.Context, url string, logger *slog.Logger) (*Database, error) {
	var (
		err         error
		readWriteDB *sqlx.DB
		readDB      *sqlx.DB
	)

	commonConfig := strings.Join([]string{
		// Avoids SQLITE_BUSY errors when database is under load.
		"_busy_timeout=5000",
		// Enables foreign key constraints.
		"_foreign_keys=on",
		// Performance enhancement by storing temporary tables indices in memory instead of files.
		"_temp_store=memory",
	}, "&")

	// The options prefixed with underscore '_' are SQLite pragmas documented at https://www.sqlite.org/pragma.html.
	// The options without leading underscore are SQLite URI parameters documented at https://www.sqlite.org/uri.html.
	if strings.Contains(url, ":memory:") {
		var (
			randomID     string
			dbNameLength uint = 20
		)
		// Every in-memory database gets its own name so that parallel tests don't share data.
		if randomID, err = random.Letters(dbNameLength); err != nil {
			return nil, errors.Wrap(err, "generate random ID")
		}
		config := fmt.Sprintf("file:%s?mode=memory&cache=shared&_txlock=immediate&%s", randomID, commonConfig)
		if readWriteDB, err = sqlx.ConnectContext(ctx, "sqlite3", config); err != nil {
			return nil, errors.Wrap(err, "open in-memory database")
		}
		// The database lives as long as its last connection.
		readWriteDB.SetMaxOpenConns(1)
		readWriteDB.SetMaxIdleConns(1)
		readWriteDB.SetConnMaxLifetime(0)
		readWriteDB.SetConnMaxIdleTime(0)
		readDB = readWriteDB
	} else {
		fileConfig := commonConfig + "&_journal_mode=wal&_synchronous=normal"
		readWriteConfig := fmt.Sprintf("file:%s?mode=rwc&_txlock=immediate&%s", url, fileConfig)
		if readWriteDB, err = sqlx.ConnectContext(ctx, "sqlite3", readWriteConfig); err != nil {
			return nil, errors.Wrap(err, "open read-write database")
		}
		readWriteDB.SetMaxOpenConns(1)
		readWriteDB.SetMaxIdleConns(1)
		readWriteDB.SetConnMaxLifetime(time.Hour)
		readWriteDB.SetConnMaxIdleTime(time.Hour)

		readConfig := fmt.Sprintf("file:%s?mode=ro&_txlock=deferred&_query_only=true&%s", url, fileConfig)
		if readDB, err = sqlx.ConnectContext(ctx, "sqlite3", readConfig); err != nil {
			return nil, errors.Wrap(err, "open read database")
		}
		maxReadConns := 10
		readDB.SetMaxOpenConns(maxReadConns)
		readDB.SetMaxIdleConns(maxReadConns)
		readDB.SetConnMaxLifetime(time.Hour)
		readDB.SetConnMaxIdleTime(time.Hour)
	}

	db := Database{
		ReadWrite: readWriteDB,
		ReadOnly:  readDB,
		logger:    logger.With("source", "Database"),
	}

	if err = db.initialize(ctx); err != nil {
		return nil, errors.Wrap(err, "initialize database")
	}

	return &db, nil
}

// initialize creates the schema and seeds an empty database. An already populated file database is left untouched.
func (db *Database) initialize(ctx context.Context) error {
	var tables int
	if err := db.ReadWrite.GetContext(ctx, &tables,
		`SELECT count(*) FROM sqlite_schema WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`); err != nil {
		return errors.Wrap(err, "count tables")
	}
	if tables > 0 {
		db.logger.LogAttrs(ctx, slog.LevelInfo, "database already initialized", slog.Int("tables", tables))
		return nil
	}

	tx, err := db.ReadWrite.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "start transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if _, err = tx.ExecContext(ctx, schemaDefinition); err != nil {
		return errors.Wrap(err, "create schema")
	}
	if _, err = tx.ExecContext(ctx, fixtures); err != nil {
		return errors.Wrap(err, "apply fixtures")
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	db.logger.LogAttrs(ctx, slog.LevelInfo, "database initialized")
	return nil
}

func (db *Database) Close() error {
	var errs []error
	if db.ReadOnly != db.ReadWrite {
		if err := db.ReadOnly.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, "close read database"))
		}
	}
	if err := db.ReadWrite.Close(); err != nil {
		errs = append(errs, errors.Wrap(err, "close read-write database"))
	}
	return errors.Join(errs...)
}
