//go:build integration_test || all_tests

package schedule

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/2beens/gymrunner/internal/db"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepo_SetCompleted(t *testing.T) {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		host = "localhost"
	}

	dbPool, err := db.NewDBPool(timeoutCtx, db.NewDBPoolParams{
		DBHost: host,
		DBPort: "5432",
		DBName: "gymrunner",
	})
	require.NoError(t, err)
	defer dbPool.Close()

	repo := NewRepo(dbPool)
	ctx := context.Background()
	workoutKey := gofakeit.UUID()

	done, err := repo.IsCompleted(ctx, workoutKey)
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, repo.SetCompleted(ctx, workoutKey, true, time.Now()))
	done, err = repo.IsCompleted(ctx, workoutKey)
	require.NoError(t, err)
	assert.True(t, done)

	require.NoError(t, repo.SetCompleted(ctx, workoutKey, false, time.Now()))
	done, err = repo.IsCompleted(ctx, workoutKey)
	require.NoError(t, err)
	assert.False(t, done)
}
