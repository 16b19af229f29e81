package repositories_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/bionicotaku/lingo-services-media/internal/repositories"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

func TestOutboxRepositoryIntegration(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dsn, terminate := startPostgres(ctx, t)
	defer terminate()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	applyMigrations(ctx, t, pool)

	repo := repositories.NewOutboxRepository(pool, log.NewStdLogger(io.Discard))

	aggregateID := uuid.New()
	msg := repositories.OutboxMessage{
		AggregateID: aggregateID,
		EventType:   "video.processing.requested",
		RoutingKey:  "video-processing",
		Payload:     []byte(`{"videoId":"` + aggregateID.String() + `"}`),
	}

	require.NoError(t, repo.Enqueue(ctx, nil, msg))

	count, err := repo.CountPending(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	claimNow := time.Now().UTC()
	staleBefore := claimNow.Add(-time.Minute)
	lockToken := uuid.NewString()

	pending, err := repo.ClaimPending(ctx, claimNow, staleBefore, 8, lockToken)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	event := pending[0]
	require.Equal(t, aggregateID, event.AggregateID)
	require.Equal(t, "video-processing", event.RoutingKey)
	require.NotNil(t, event.LockedBy)
	require.Equal(t, lockToken, *event.LockedBy)
	require.Nil(t, event.PublishedAt)
	require.Equal(t, int32(0), event.DeliveryAttempts)

	// 租约仍有效，其他实例不应认领到任何事件。
	otherToken := uuid.NewString()
	stolen, err := repo.ClaimPending(ctx, claimNow, staleBefore, 8, otherToken)
	require.NoError(t, err)
	require.Empty(t, stolen)

	nextTime := claimNow.Add(250 * time.Millisecond)
	require.NoError(t, repo.Reschedule(ctx, event.EventID, lockToken, nextTime, "publish timeout"))

	count, err = repo.CountPending(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	lockToken2 := uuid.NewString()
	retried, err := repo.ClaimPending(ctx, nextTime.Add(time.Millisecond), staleBefore, 4, lockToken2)
	require.NoError(t, err)
	require.Len(t, retried, 1)
	require.Equal(t, int32(1), retried[0].DeliveryAttempts)
	require.NotNil(t, retried[0].LastError)
	require.Equal(t, lockToken2, *retried[0].LockedBy)

	// 旧令牌已失效，标记发布应失败。
	require.Error(t, repo.MarkPublished(ctx, event.EventID, lockToken, time.Now().UTC()))

	require.NoError(t, repo.MarkPublished(ctx, event.EventID, lockToken2, time.Now().UTC()))

	count, err = repo.CountPending(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(0), count)
}
