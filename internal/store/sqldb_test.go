// Copyright (c) 2024 Netskope, Inc. All rights reserved.

package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/netSkope/dump-migration-tool/internal/mapping"
	"github.com/netSkope/dump-migration-tool/internal/sqlgen"
)

func newMockClient(t *testing.T, dialect sqlgen.Dialect) (*SQLClient, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return WrapDB(db, dialect, time.Second, dialect.Name()), mock
}

func TestSQLClient_Insert(t *testing.T) {
	sc, mock := newMockClient(t, sqlgen.MySQL)
	ts := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	rec := mapping.NewRecord(
		[]string{"id", "name", "date_created", "assigned_to", "deposit_paid"},
		[]any{"id-1", "Ann", ts, nil, true},
	)

	mock.ExpectExec("INSERT INTO `leads` (`id`, `name`, `date_created`, `assigned_to`, `deposit_paid`) VALUES (?, ?, ?, ?, ?)").
		WithArgs("id-1", "Ann", ts, nil, true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, sc.Insert(context.Background(), "leads", rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLClient_InsertError(t *testing.T) {
	sc, mock := newMockClient(t, sqlgen.Postgres)
	rec := mapping.NewRecord([]string{"id", "name"}, []any{"id-1", "Ann"})
	dbErr := errors.New("value too long for type character varying(20)")

	mock.ExpectExec(`INSERT INTO "leads" ("id", "name") VALUES ($1, $2)`).
		WithArgs("id-1", "Ann").
		WillReturnError(dbErr)

	err := sc.Insert(context.Background(), "leads", rec)
	require.Error(t, err)
	assert.ErrorIs(t, err, dbErr)
	assert.Contains(t, err.Error(), "leads")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLClient_ClearAndCount(t *testing.T) {
	sc, mock := newMockClient(t, sqlgen.MySQL)

	mock.ExpectExec("DELETE FROM `leads`").WillReturnResult(sqlmock.NewResult(0, 7))
	mock.ExpectQuery("SELECT COUNT(*) FROM `leads`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	ctx := context.Background()
	require.NoError(t, sc.Clear(ctx, "leads"))
	n, err := sc.Count(ctx, "leads")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLClient_Distribution(t *testing.T) {
	sc, mock := newMockClient(t, sqlgen.MySQL)

	mock.ExpectQuery("SELECT `remarks`, COUNT(*) FROM `leads` GROUP BY `remarks` ORDER BY COUNT(*) DESC, `remarks`").
		WillReturnRows(sqlmock.NewRows([]string{"remarks", "count"}).
			AddRow("new", 10).
			AddRow(nil, 3).
			AddRow("sold", 2))

	got, err := sc.Distribution(context.Background(), "leads", "remarks")
	require.NoError(t, err)
	assert.Equal(t, []Bucket{
		{Value: "new", Count: 10},
		{Null: true, Count: 3},
		{Value: "sold", Count: 2},
	}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLClient_PingWithRetry(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	sc := WrapDB(db, sqlgen.MySQL, time.Second, "mysql")

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectPing()

	require.NoError(t, sc.PingWithRetry(context.Background(), 3, time.Millisecond, zaptest.NewLogger(t)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLClient_PingWithRetry_GivesUp(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	sc := WrapDB(db, sqlgen.MySQL, time.Second, "mysql")

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	err = sc.PingWithRetry(context.Background(), 2, time.Millisecond, zaptest.NewLogger(t))
	assert.ErrorContains(t, err, "after 2 attempts")
	assert.ErrorContains(t, err, "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenSQLClient_DefersPing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "crm.db")

	sc, err := OpenSQLClient("", "", "", 1, DBTypeSQLite, path)
	require.NoError(t, err)
	defer sc.Close()

	assert.Error(t, sc.PingWithRetry(context.Background(), 2, time.Millisecond, zaptest.NewLogger(t)))

	_, err = NewSQLClient("", "", "", 1, DBTypeSQLite, path)
	assert.Error(t, err)
}

func TestNewSQLClient_Validation(t *testing.T) {
	_, err := NewSQLClient("", "user", "pwd", 1, DBTypeMariaDB, "crm")
	assert.ErrorIs(t, err, ErrBadHostname)

	_, err = NewSQLClient("localhost", "", "", 1, "oracle", "crm")
	assert.ErrorContains(t, err, "unsupported database type")
}

func TestPostgresDSN(t *testing.T) {
	assert.Equal(t, "postgres://db:5432/crm?sslmode=disable", postgresDSN("db:5432", "", "", "crm"))
	assert.Equal(t, "postgres://app:p%40ss@db/crm?sslmode=disable", postgresDSN("db", "app", "p@ss", "crm"))
}

func newSQLiteClient(t *testing.T) *SQLClient {
	t.Helper()
	sc, err := NewSQLClient("", "", "", 5, DBTypeSQLite, filepath.Join(t.TempDir(), "crm.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Close() })
	return sc
}

func TestSQLClient_SQLite(t *testing.T) {
	sc := newSQLiteClient(t)
	ctx := context.Background()

	require.NoError(t, sc.EnsureTable(ctx, mapping.SampleBooklets))
	// Creating an existing table is a no-op.
	require.NoError(t, sc.EnsureTable(ctx, mapping.SampleBooklets))

	cols := mapping.SampleBooklets.Columns()
	shipped := time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC)
	for i, status := range []string{"pending", "shipped", "shipped"} {
		values := []any{
			"id-" + status + string(rune('a'+i)), "SB-1", "Ann", "1 Main St", "ann@example.com", "555",
			"trial_kit", nil, status, shipped, nil, "",
		}
		require.NoError(t, sc.Insert(ctx, "sample_booklets", mapping.NewRecord(cols, values)))
	}

	n, err := sc.Count(ctx, "sample_booklets")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	dist, err := sc.Distribution(ctx, "sample_booklets", "status")
	require.NoError(t, err)
	assert.Equal(t, []Bucket{{Value: "shipped", Count: 2}, {Value: "pending", Count: 1}}, dist)

	dup := mapping.NewRecord(cols, []any{"id-pendinga", "SB-2", "Bob", "", "", "", "trial_kit", nil, "pending", shipped, nil, ""})
	assert.Error(t, sc.Insert(ctx, "sample_booklets", dup), "duplicate primary key must fail")

	require.NoError(t, sc.Clear(ctx, "sample_booklets"))
	n, err = sc.Count(ctx, "sample_booklets")
	require.NoError(t, err)
	assert.Zero(t, n)
}
