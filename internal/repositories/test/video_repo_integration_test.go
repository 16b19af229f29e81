package repositories_test

import (
	"context"
	"io"
	"testing"

	"github.com/bionicotaku/lingo-services-media/internal/models/po"
	"github.com/bionicotaku/lingo-services-media/internal/repositories"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

func TestVideoRepositoryIntegration(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dsn, terminate := startPostgres(ctx, t)
	defer terminate()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	applyMigrations(ctx, t, pool)

	repo := repositories.NewVideoRepository(pool, log.NewStdLogger(io.Discard))

	owner := uuid.New()
	other := uuid.New()

	uploaded, err := repo.Create(ctx, nil, repositories.CreateVideoInput{
		OwnerID:        owner,
		Title:          "Match Highlights",
		Description:    stringPtr("first half"),
		Source:         po.UploadedSource{StorageKey: "videos/" + owner.String() + "/highlights.mp4"},
		Status:         po.VideoStatusPending,
		FileSize:       int64Ptr(2048),
		IsDownloadable: true,
	})
	require.NoError(t, err)
	require.Equal(t, po.VideoStatusPending, uploaded.Status)
	require.NotNil(t, uploaded.UploadedSource())

	youtube, err := repo.Create(ctx, nil, repositories.CreateVideoInput{
		OwnerID: owner,
		Title:   "Tactics Breakdown",
		Source: po.YouTubeSource{
			URL:     "https://www.youtube.com/watch?v=abc123DEF45",
			VideoID: "abc123DEF45",
		},
		Status:         po.VideoStatusCompleted,
		IsDownloadable: false,
	})
	require.NoError(t, err)
	require.Equal(t, po.VideoStatusCompleted, youtube.Status)
	require.NotNil(t, youtube.YouTubeSource())
	require.Equal(t, "abc123DEF45", youtube.YouTubeSource().VideoID)

	_, err = repo.Create(ctx, nil, repositories.CreateVideoInput{
		OwnerID:        other,
		Title:          "Other Owner",
		Source:         po.UploadedSource{StorageKey: "videos/" + other.String() + "/x.mp4"},
		Status:         po.VideoStatusPending,
		IsDownloadable: true,
	})
	require.NoError(t, err)

	fetched, err := repo.GetByID(ctx, nil, uploaded.VideoID)
	require.NoError(t, err)
	require.Equal(t, uploaded.VideoID, fetched.VideoID)
	require.Equal(t, "Match Highlights", fetched.Title)

	_, err = repo.GetByID(ctx, nil, uuid.New())
	require.ErrorIs(t, err, repositories.ErrVideoNotFound)

	ownerVideos, err := repo.ListByOwner(ctx, repositories.ListByOwnerInput{OwnerID: owner, Limit: 10})
	require.NoError(t, err)
	require.Len(t, ownerVideos, 2)

	typeFilter := po.VideoTypeYouTube
	ytOnly, err := repo.ListByOwner(ctx, repositories.ListByOwnerInput{OwnerID: owner, Limit: 10, TypeFilter: &typeFilter})
	require.NoError(t, err)
	require.Len(t, ytOnly, 1)
	require.Equal(t, youtube.VideoID, ytOnly[0].VideoID)

	firstPage, err := repo.ListByOwner(ctx, repositories.ListByOwnerInput{OwnerID: owner, Limit: 1})
	require.NoError(t, err)
	require.Len(t, firstPage, 1)
	secondPage, err := repo.ListByOwner(ctx, repositories.ListByOwnerInput{
		OwnerID:         owner,
		Limit:           1,
		CursorCreatedAt: &firstPage[0].CreatedAt,
		CursorVideoID:   &firstPage[0].VideoID,
	})
	require.NoError(t, err)
	require.Len(t, secondPage, 1)
	require.NotEqual(t, firstPage[0].VideoID, secondPage[0].VideoID)

	updated, err := repo.Update(ctx, nil, repositories.UpdateVideoInput{
		VideoID:     uploaded.VideoID,
		Title:       stringPtr("Match Highlights (final)"),
		Description: nil,
	})
	require.NoError(t, err)
	require.Equal(t, "Match Highlights (final)", updated.Title)
	require.NotNil(t, updated.Description)
	require.Equal(t, "first half", *updated.Description)

	require.NoError(t, repo.SetStatus(ctx, nil, uploaded.VideoID, po.VideoStatusProcessing))
	require.ErrorIs(t, repo.SetStatus(ctx, nil, uuid.New(), po.VideoStatusError), repositories.ErrVideoNotFound)

	require.NoError(t, repo.ApplyResult(ctx, nil, repositories.ApplyResultInput{
		VideoID:       uploaded.VideoID,
		Status:        po.VideoStatusCompleted,
		ProcessedPath: stringPtr("processed/" + owner.String() + "/" + uploaded.VideoID.String() + ".mp4"),
		FileSize:      int64Ptr(4096),
		Duration:      int32Ptr(95),
	}))

	completed, err := repo.GetByID(ctx, nil, uploaded.VideoID)
	require.NoError(t, err)
	require.Equal(t, po.VideoStatusCompleted, completed.Status)
	require.NotNil(t, completed.ProcessedPath)
	require.Equal(t, int64(4096), *completed.FileSize)
	require.Equal(t, int32(95), *completed.Duration)
	require.Len(t, completed.StorageKeys(), 2)

	require.NoError(t, repo.Delete(ctx, nil, uploaded.VideoID))
	_, err = repo.GetByID(ctx, nil, uploaded.VideoID)
	require.ErrorIs(t, err, repositories.ErrVideoNotFound)
	require.ErrorIs(t, repo.Delete(ctx, nil, uploaded.VideoID), repositories.ErrVideoNotFound)
}
