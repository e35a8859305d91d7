//go:build integration

package main

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run with: OPAS_TEST_DB_URL=postgres://... go test -tags integration ./cmd/
func newIntegrationStore(t *testing.T) *relationalStore {
	t.Helper()

	dbURL := os.Getenv("OPAS_TEST_DB_URL")
	if dbURL == "" {
		t.Skip("OPAS_TEST_DB_URL not set")
	}

	ctx := context.Background()
	logger := zerolog.Nop()

	store, pool, err := openStore(ctx, serviceConfigDatabase{URL: dbURL, Timeout: "5"}, logger)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, store.Ping(ctx))
	require.NoError(t, runMigrations(pool, "../migrations", logger))

	return store
}

func TestIntegrationSessionLifecycle(t *testing.T) {
	store := newIntegrationStore(t)
	ctx := context.Background()

	start := time.Now().UTC().Truncate(time.Second)
	session := &sessionInfo{
		SessionID:      uuid.New().String(),
		Username:       anonymousUsername,
		UserIP:         "10.0.0.1",
		SessionStart:   start,
		SessionExpires: start.Add(time.Hour),
	}

	require.NoError(t, store.SaveSession(ctx, session))

	session.Authenticated = true
	session.Username = "reader1"
	require.NoError(t, store.SaveSession(ctx, session))

	got, err := store.GetSession(ctx, session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "reader1", got.Username)
	assert.True(t, got.Authenticated)
	assert.WithinDuration(t, session.SessionExpires, got.SessionExpires, time.Second)

	require.NoError(t, store.RecordSessionEndpoint(ctx, sessionEndpoint{
		SessionID:  session.SessionID,
		EndpointID: endpointDatabaseSearch,
		Params:     "/v1/Database/Search/?fulltext1=dream",
		StatusCode: 200,
	}))

	require.NoError(t, store.EndSession(ctx, session.SessionID, time.Now().UTC()))

	_, err = store.GetSession(ctx, session.SessionID)
	assert.ErrorIs(t, err, errNotFound)
}

func TestIntegrationSources(t *testing.T) {
	store := newIntegrationStore(t)
	ctx := context.Background()

	_, err := store.GetAllSources(ctx)
	require.NoError(t, err)

	count, rows, err := store.GetSources(ctx, "journal", "", 5, 0)
	require.NoError(t, err)
	assert.True(t, len(rows) <= 5)
	assert.True(t, count >= len(rows))
}

func TestIntegrationMostDownloaded(t *testing.T) {
	store := newIntegrationStore(t)

	_, rows, err := store.GetMostDownloaded(context.Background(), mostDownloadedFilter{column: "last12months"}, 5, 0)
	require.NoError(t, err)
	assert.True(t, len(rows) <= 5)
}
