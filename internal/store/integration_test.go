//go:build integration

package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/akave-ai/hooklog/internal/database"
	"github.com/akave-ai/hooklog/internal/model"
)

func TestPostgresStore(t *testing.T) {
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("hooklog"),
		tcpostgres.WithUsername("hooklog"),
		tcpostgres.WithPassword("hooklog"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(ctx, dsn, zerolog.Nop()))

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	newStore := func(limit int) func(t *testing.T) Store {
		return func(t *testing.T) Store {
			_, err := pool.Exec(ctx, `TRUNCATE webhook_logs`)
			require.NoError(t, err)
			return NewPostgres(pool, limit)
		}
	}

	runStoreSuite(t, newStore(0))

	t.Run("bounded keeps newest", func(t *testing.T) {
		s := newStore(3)(t)
		appended := appendN(t, s, 6)
		page, err := s.List(ctx, model.ListQuery{})
		require.NoError(t, err)
		assertSameEntries(t, appended[3:], page.Entries)
	})
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()

	ctr, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	url, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)

	newStore := func(limit int) func(t *testing.T) Store {
		return func(t *testing.T) Store {
			s, err := NewRedis(url, "hooklog:test:"+uuid.NewString(), limit)
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		}
	}

	runStoreSuite(t, newStore(0))

	t.Run("bounded keeps newest", func(t *testing.T) {
		s := newStore(3)(t)
		appended := appendN(t, s, 6)
		page, err := s.List(ctx, model.ListQuery{})
		require.NoError(t, err)
		assertSameEntries(t, appended[3:], page.Entries)
	})
}
