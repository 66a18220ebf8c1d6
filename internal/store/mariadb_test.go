// Copyright (c) 2024 Netskope, Inc. All rights reserved.

package store

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mariadb"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/netSkope/dump-migration-tool/internal/mapping"
)

// detectReaperIssue reports whether the testcontainers reaper should be
// disabled, e.g. under Rancher Desktop.
func detectReaperIssue() bool {
	if v := os.Getenv("TESTCONTAINERS_RYUK_DISABLED"); v != "" {
		return v == "true"
	}

	dockerHost := os.Getenv("DOCKER_HOST")
	if strings.Contains(dockerHost, ".rd/docker.sock") {
		return true
	}
	if home, err := os.UserHomeDir(); err == nil && dockerHost == "" {
		if _, err := os.Stat(home + "/.rd/docker.sock"); err == nil {
			return true
		}
	}
	return os.Getenv("DOCKER_CONTEXT") == "rancher-desktop"
}

// setupMariaDB starts a MariaDB container and connects a client to it.
func setupMariaDB(t *testing.T) *SQLClient {
	t.Helper()
	if os.Getenv("SKIP_DOCKER_TESTS") == "true" {
		t.Skip("Skipping Docker-based tests (SKIP_DOCKER_TESTS=true)")
	}
	if testing.Short() {
		t.Skip("Skipping Docker-based tests in short mode")
	}

	if detectReaperIssue() {
		t.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")
	}

	ctx := context.Background()

	defer func() {
		if r := recover(); r != nil {
			if msg, ok := r.(string); ok && (strings.Contains(msg, "Docker not found") || strings.Contains(msg, "rootless Docker")) {
				t.Skipf("Skipping test: Docker not available: %v", r)
			}
			panic(r)
		}
	}()

	container, err := mariadb.Run(ctx, "mariadb:10.11",
		mariadb.WithDatabase("crm"),
		mariadb.WithUsername("root"),
		mariadb.WithPassword("testpassword"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("ready for connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		if strings.Contains(err.Error(), "Docker not found") || strings.Contains(err.Error(), "rootless Docker") {
			t.Skipf("Skipping test: Docker not available: %v", err)
		}
		t.Fatalf("Failed to start MariaDB container: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	var sc *SQLClient
	for attempt := 1; attempt <= 10; attempt++ {
		sc, err = NewSQLClient(endpoint, "root", "testpassword", 10, DBTypeMariaDB, "crm")
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	require.NoError(t, err, "failed to connect to MariaDB")
	t.Cleanup(func() { _ = sc.Close() })
	return sc
}

func TestSQLClient_MariaDB(t *testing.T) {
	sc := setupMariaDB(t)
	ctx := context.Background()

	require.NoError(t, sc.EnsureTable(ctx, mapping.Leads))

	cols := mapping.Leads.Columns()
	created := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)
	values := []any{
		"0b5c1f0e-6c1c-4c39-9f56-6d1b1a0c3b11", "O'Brien, Inc.", "555-123-4567", "ob@example.com",
		"trade-show", created, nil, "sold", "kim", 12500.5, "call back", "", true, false, nil, nil,
	}
	require.NoError(t, sc.Insert(ctx, "leads", mapping.NewRecord(cols, values)))

	tooLong := append([]any(nil), values...)
	tooLong[0] = "c1b0c5a4-0000-4000-8000-000000000001"
	tooLong[2] = strings.Repeat("5", 40)
	assert.Error(t, sc.Insert(ctx, "leads", mapping.NewRecord(cols, tooLong)), "strict mode rejects over-long phone")

	n, err := sc.Count(ctx, "leads")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	dist, err := sc.Distribution(ctx, "leads", "assigned_installer")
	require.NoError(t, err)
	assert.Equal(t, []Bucket{{Null: true, Count: 1}}, dist)

	require.NoError(t, sc.Clear(ctx, "leads"))
	n, err = sc.Count(ctx, "leads")
	require.NoError(t, err)
	assert.Zero(t, n)
}
