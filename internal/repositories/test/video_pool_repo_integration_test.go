package repositories_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/bionicotaku/lingo-services-bonus/internal/models/po"
	"github.com/bionicotaku/lingo-services-bonus/internal/repositories"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestVideoPoolRepositoryClaimExclusive(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dsn, terminate := startPostgres(ctx, t)
	defer terminate()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	applyMigrations(ctx, t, pool)

	repo := repositories.NewVideoPoolRepository(pool, log.NewStdLogger(io.Discard))

	const items = 5
	const claimers = 20

	for i := 0; i < items; i++ {
		videoID := uuid.New()
		require.NoError(t, repo.Add(ctx, nil, videoID, fmt.Sprintf("gs://shared/%s", videoID)))
	}

	count, err := repo.Count(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, int64(items), count)

	var (
		mu      sync.Mutex
		claimed []uuid.UUID
		misses  int
	)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < claimers; i++ {
		g.Go(func() error {
			item, claimErr := repo.Claim(gctx, nil)
			if errors.Is(claimErr, repositories.ErrPoolEmpty) {
				mu.Lock()
				misses++
				mu.Unlock()
				return nil
			}
			if claimErr != nil {
				return claimErr
			}
			mu.Lock()
			claimed = append(claimed, item.VideoID)
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())

	// 每个条目恰好被一个 Run 领取，其余 Run 看到空池。
	require.Len(t, claimed, items)
	require.Equal(t, claimers-items, misses)

	seen := map[uuid.UUID]struct{}{}
	for _, id := range claimed {
		_, dup := seen[id]
		require.Falsef(t, dup, "video %s claimed twice", id)
		seen[id] = struct{}{}
	}

	count, err = repo.Count(ctx, nil)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestVideoPoolRepositoryRestore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dsn, terminate := startPostgres(ctx, t)
	defer terminate()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	applyMigrations(ctx, t, pool)

	repo := repositories.NewVideoPoolRepository(pool, log.NewStdLogger(io.Discard))

	videoID := uuid.New()
	require.NoError(t, repo.Add(ctx, nil, videoID, "gs://shared/"+videoID.String()))

	item, err := repo.Claim(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, videoID, item.VideoID)

	_, err = repo.Claim(ctx, nil)
	require.ErrorIs(t, err, repositories.ErrPoolEmpty)

	// 回补后条目重新可领取；重复回补保持幂等。
	require.NoError(t, repo.Restore(ctx, nil, item))
	require.NoError(t, repo.Restore(ctx, nil, item))

	restored, err := repo.Claim(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, videoID, restored.VideoID)
	require.Equal(t, item.ContentRef, restored.ContentRef)
}

func TestVideoPoolRepositoryClaimOldestFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dsn, terminate := startPostgres(ctx, t)
	defer terminate()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	applyMigrations(ctx, t, pool)

	repo := repositories.NewVideoPoolRepository(pool, log.NewStdLogger(io.Discard))

	first := &po.PoolItem{VideoID: uuid.New(), ContentRef: "gs://shared/first"}
	second := &po.PoolItem{VideoID: uuid.New(), ContentRef: "gs://shared/second"}

	_, err = pool.Exec(ctx,
		`INSERT INTO bonus.pool_items (video_id, content_ref, created_at) VALUES ($1, $2, now() - interval '1 hour')`,
		first.VideoID, first.ContentRef)
	require.NoError(t, err)
	_, err = pool.Exec(ctx,
		`INSERT INTO bonus.pool_items (video_id, content_ref, created_at) VALUES ($1, $2, now())`,
		second.VideoID, second.ContentRef)
	require.NoError(t, err)

	item, err := repo.Claim(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, first.VideoID, item.VideoID)
}
