package services

import (
	"context"

	"github.com/bionicotaku/lingo-services-media/internal/models/po"
	"github.com/bionicotaku/lingo-services-media/internal/models/vo"
	"github.com/bionicotaku/lingo-services-media/internal/repositories"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// StatusQueryService 负责处理状态的读路径。
type StatusQueryService struct {
	videos   VideoRepo
	statuses StatusRepo
	log      *log.Helper
}

// NewStatusQueryService 构造 StatusQueryService。
func NewStatusQueryService(videos VideoRepo, statuses StatusRepo, logger log.Logger) *StatusQueryService {
	return &StatusQueryService{
		videos:   videos,
		statuses: statuses,
		log:      log.NewHelper(logger),
	}
}

// GetLatestStatus 返回视频最新的处理状态。
// 尚无历史记录时按视频当前状态合成，进度恒为 0。
func (s *StatusQueryService) GetLatestStatus(ctx context.Context, videoID uuid.UUID) (*vo.ProcessingStatusView, error) {
	video, err := s.loadAuthorized(ctx, videoID)
	if err != nil {
		return nil, err
	}

	latest, err := s.statuses.Latest(ctx, videoID)
	if err != nil {
		if errors.Is(err, repositories.ErrNoStatusHistory) {
			return synthesizeStatus(video), nil
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errors.GatewayTimeout(ReasonQueryTimeout, "status query timeout")
		}
		s.log.WithContext(ctx).Errorf("latest status failed: video_id=%s err=%v", videoID, err)
		return nil, errors.InternalServer(ReasonQueryVideoFailed, "failed to load status").WithCause(err)
	}

	view := &vo.ProcessingStatusView{
		VideoID:    videoID,
		Status:     latest.Status,
		Progress:   latest.Progress,
		Message:    latest.Status.Message(),
		ReportedAt: latest.CreatedAt,
	}
	if latest.Message != nil && *latest.Message != "" {
		view.Message = *latest.Message
	}
	return view, nil
}

// ListStatusHistory 返回视频的完整处理历史，最新在前。
func (s *StatusQueryService) ListStatusHistory(ctx context.Context, videoID uuid.UUID) ([]*vo.StatusHistoryEntry, error) {
	if _, err := s.loadAuthorized(ctx, videoID); err != nil {
		return nil, err
	}

	entries, err := s.statuses.ListByVideo(ctx, videoID, 500)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errors.GatewayTimeout(ReasonQueryTimeout, "status query timeout")
		}
		s.log.WithContext(ctx).Errorf("list status history failed: video_id=%s err=%v", videoID, err)
		return nil, errors.InternalServer(ReasonQueryVideoFailed, "failed to load status history").WithCause(err)
	}

	views := make([]*vo.StatusHistoryEntry, 0, len(entries))
	for _, entry := range entries {
		views = append(views, &vo.StatusHistoryEntry{
			Status:    entry.Status,
			Progress:  entry.Progress,
			Message:   entry.Message,
			CreatedAt: entry.CreatedAt,
		})
	}
	return views, nil
}

func (s *StatusQueryService) loadAuthorized(ctx context.Context, videoID uuid.UUID) (*po.Video, error) {
	requester, meta, err := requesterFrom(ctx)
	if err != nil {
		return nil, err
	}
	video, err := s.videos.GetByID(ctx, nil, videoID)
	if err != nil {
		if errors.Is(err, repositories.ErrVideoNotFound) {
			return nil, ErrVideoNotFound
		}
		s.log.WithContext(ctx).Errorf("get video failed: video_id=%s err=%v", videoID, err)
		return nil, errors.InternalServer(ReasonQueryVideoFailed, "failed to load video").WithCause(err)
	}
	if err := authorize(video, requester, meta); err != nil {
		return nil, err
	}
	return video, nil
}

func synthesizeStatus(video *po.Video) *vo.ProcessingStatusView {
	return &vo.ProcessingStatusView{
		VideoID:     video.VideoID,
		Status:      video.Status,
		Progress:    0,
		Message:     video.Status.Message(),
		ReportedAt:  video.UpdatedAt,
		Synthesized: true,
	}
}
