// Copyright (c) 2022 Netskope, Inc. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/netSkope/dump-migration-tool/internal/mapping"
	"github.com/netSkope/dump-migration-tool/internal/sqlgen"
)

const (
	DefaultDBName = "crm"
	dbPoolSize    = 10
	dbConnLife    = 30 * time.Minute
	dbTimeout     = 5
)

// Database types accepted by NewSQLClient.
const (
	DBTypeMariaDB  = "mp-mariadb"
	DBTypeAurora   = "aws-aurora"
	DBTypePostgres = "postgres"
	DBTypeSQLite   = "sqlite"
)

var ErrBadHostname = fmt.Errorf("hostname is required")

// SQLClient is a load destination backed by database/sql.
type SQLClient struct {
	db      *sql.DB
	dialect sqlgen.Dialect
	timeout time.Duration
	name    string
}

func (sc *SQLClient) Name() string {
	if sc == nil {
		return ""
	}
	return sc.name
}

func (sc *SQLClient) Dialect() sqlgen.Dialect {
	return sc.dialect
}

func (sc *SQLClient) context(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, sc.timeout)
}

func (sc *SQLClient) Close() error {
	if sc.db != nil {
		err := sc.db.Close()
		sc.db = nil
		return err
	}
	return nil
}

func (sc *SQLClient) Ping() error {
	ctx, cancel := sc.context(context.Background())
	defer cancel()
	return sc.db.PingContext(ctx)
}

// PingWithRetry pings up to attempts times with exponential backoff.
func (sc *SQLClient) PingWithRetry(ctx context.Context, attempts int, delay time.Duration, logger *zap.Logger) error {
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if lastErr = sc.Ping(); lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		logger.Warn("database ping failed, retrying",
			zap.String("db", sc.name),
			zap.Int("attempt", attempt),
			zap.Error(lastErr))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return fmt.Errorf("failed to connect to %s after %d attempts: %w", sc.name, attempts, lastErr)
}

// Clear deletes every row of table.
func (sc *SQLClient) Clear(ctx context.Context, table string) error {
	ctx, cancel := sc.context(ctx)
	defer cancel()
	if _, err := sc.db.ExecContext(ctx, sc.dialect.ClearSQL(table)); err != nil {
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}
	return nil
}

// Insert writes one record. Each insert stands alone so one failure does not
// affect the rows around it.
func (sc *SQLClient) Insert(ctx context.Context, table string, rec mapping.Record) error {
	ctx, cancel := sc.context(ctx)
	defer cancel()
	if _, err := sc.db.ExecContext(ctx, sc.dialect.InsertSQL(table, rec.Columns()), rec.Values()...); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return nil
}

func (sc *SQLClient) Count(ctx context.Context, table string) (int64, error) {
	ctx, cancel := sc.context(ctx)
	defer cancel()
	var n int64
	if err := sc.db.QueryRowContext(ctx, sc.dialect.CountSQL(table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

// EnsureTable creates the destination table for schema if it is missing.
func (sc *SQLClient) EnsureTable(ctx context.Context, schema *mapping.Schema) error {
	ctx, cancel := sc.context(ctx)
	defer cancel()
	if _, err := sc.db.ExecContext(ctx, sc.dialect.CreateTableSQL(schema)); err != nil {
		return fmt.Errorf("failed to create %s: %w", schema.DestTable, err)
	}
	return nil
}

// Bucket is one group of a value distribution. NULL values have an empty
// Value and Null set.
type Bucket struct {
	Value string
	Null  bool
	Count int64
}

// Distribution counts the rows of table per value of column.
func (sc *SQLClient) Distribution(ctx context.Context, table, column string) ([]Bucket, error) {
	ctx, cancel := sc.context(ctx)
	defer cancel()

	rows, err := sc.db.QueryContext(ctx, sc.dialect.DistributionSQL(table, column))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s.%s distribution: %w", table, column, err)
	}
	defer rows.Close()

	var buckets []Bucket
	for rows.Next() {
		var v sql.NullString
		var b Bucket
		if err := rows.Scan(&v, &b.Count); err != nil {
			return nil, fmt.Errorf("failed to scan %s.%s distribution: %w", table, column, err)
		}
		b.Value, b.Null = v.String, !v.Valid
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s.%s distribution: %w", table, column, err)
	}
	return buckets, nil
}

// WrapDB adapts an open handle, e.g. a sqlmock connection.
func WrapDB(db *sql.DB, dialect sqlgen.Dialect, timeout time.Duration, name string) *SQLClient {
	if timeout <= 0 {
		timeout = dbTimeout * time.Second
	}
	return &SQLClient{db: db, dialect: dialect, timeout: timeout, name: name}
}

// NewSQLClient opens a pooled connection and pings it once. For
// DBTypeSQLite, dbName is the database file path and hostname is ignored.
func NewSQLClient(hostname, user, pwd string, timeout int, dbType, dbName string) (*SQLClient, error) {
	sc, err := OpenSQLClient(hostname, user, pwd, timeout, dbType, dbName)
	if err != nil {
		return nil, err
	}
	if err = sc.Ping(); err != nil {
		_ = sc.Close()
		return nil, err
	}
	return sc, nil
}

// OpenSQLClient is NewSQLClient without the ping. Callers check reachability
// with PingWithRetry.
func OpenSQLClient(hostname, user, pwd string, timeout int, dbType, dbName string) (*SQLClient, error) {
	if dbType == "" {
		dbType = DBTypeMariaDB
	}
	if hostname == "" && dbType != DBTypeSQLite {
		return nil, ErrBadHostname
	}

	if dbName == "" {
		dbName = DefaultDBName
	}

	var driver, dsn string
	switch dbType {
	case DBTypeAurora:
		if user == "" {
			user = "root"
		}
		driver = "mysql"
		if pwd != "" {
			dsn = fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true", user, pwd, hostname, dbName)
		} else {
			dsn = fmt.Sprintf("%s@tcp(%s)/%s?parseTime=true", user, hostname, dbName)
		}
	case DBTypeMariaDB:
		driver = "mysql"
		dsn = fmt.Sprintf("tcp(%s)/%s?parseTime=true", hostname, dbName)
		if user != "" {
			if pwd != "" {
				user += ":" + pwd
			}
			dsn = user + "@" + dsn
		}
	case DBTypePostgres:
		driver = "postgres"
		dsn = postgresDSN(hostname, user, pwd, dbName)
	case DBTypeSQLite:
		driver = "sqlite"
		dsn = dbName
	default:
		return nil, fmt.Errorf("unsupported database type: %s (must be %s, %s, %s or %s)",
			dbType, DBTypeMariaDB, DBTypeAurora, DBTypePostgres, DBTypeSQLite)
	}

	dialect, err := sqlgen.DialectFor(dbType)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	if dbType == DBTypeSQLite {
		// One long-lived connection keeps an in-memory database alive.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetConnMaxLifetime(dbConnLife)
		db.SetMaxOpenConns(dbPoolSize)
		db.SetMaxIdleConns(dbPoolSize)
	}

	if timeout < 1 {
		timeout = dbTimeout
	}

	sc := &SQLClient{
		db:      db,
		dialect: dialect,
		timeout: time.Duration(timeout) * time.Second,
		name:    dbType,
	}
	return sc, nil
}

func postgresDSN(hostname, user, pwd, dbName string) string {
	u := url.URL{
		Scheme:   "postgres",
		Host:     hostname,
		Path:     "/" + dbName,
		RawQuery: "sslmode=disable",
	}
	switch {
	case user != "" && pwd != "":
		u.User = url.UserPassword(user, pwd)
	case user != "":
		u.User = url.User(user)
	}
	return u.String()
}
