package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/bionicotaku/lingo-services-media/internal/models/po"
	"github.com/bionicotaku/lingo-services-media/internal/models/vo"
	"github.com/bionicotaku/lingo-services-media/internal/repositories"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// DownloadLinkTTL 是预签名下载地址的有效期。
const DownloadLinkTTL = 15 * time.Minute

// VideoQueryService 负责视频的读路径：单条查询、列表与下载地址。
type VideoQueryService struct {
	videos  VideoRepo
	storage ObjectStorage
	log     *log.Helper
}

// NewVideoQueryService 构造 VideoQueryService。
func NewVideoQueryService(videos VideoRepo, storage ObjectStorage, logger log.Logger) *VideoQueryService {
	return &VideoQueryService{
		videos:  videos,
		storage: storage,
		log:     log.NewHelper(logger),
	}
}

// ListVideosInput 表示列表查询的输入。
type ListVideosInput struct {
	Limit      int32
	PageToken  string
	TypeFilter *po.VideoType
}

// GetVideo 查询单条视频，owner 或管理员可见。
func (s *VideoQueryService) GetVideo(ctx context.Context, videoID uuid.UUID) (*vo.VideoView, error) {
	requester, meta, err := requesterFrom(ctx)
	if err != nil {
		return nil, err
	}
	video, err := s.loadVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if err := authorize(video, requester, meta); err != nil {
		return nil, err
	}
	return vo.NewVideoView(video), nil
}

// ListMyVideos 游标分页列出请求者自己的视频，可按来源类型过滤。
func (s *VideoQueryService) ListMyVideos(ctx context.Context, input ListVideosInput) (*vo.VideoPage, error) {
	requester, _, err := requesterFrom(ctx)
	if err != nil {
		return nil, err
	}
	limit := input.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	repoInput := repositories.ListByOwnerInput{
		OwnerID:    requester,
		Limit:      limit + 1,
		TypeFilter: input.TypeFilter,
	}
	if input.PageToken != "" {
		createdAt, videoID, decodeErr := decodePageToken(input.PageToken)
		if decodeErr != nil {
			return nil, errors.BadRequest(ReasonVideoInvalid, "invalid page token")
		}
		repoInput.CursorCreatedAt = &createdAt
		repoInput.CursorVideoID = &videoID
	}

	videos, err := s.videos.ListByOwner(ctx, repoInput)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errors.GatewayTimeout(ReasonQueryTimeout, "list timeout")
		}
		s.log.WithContext(ctx).Errorf("list videos failed: owner_id=%s err=%v", requester, err)
		return nil, errors.InternalServer(ReasonQueryVideoFailed, "failed to list videos").WithCause(err)
	}

	page := &vo.VideoPage{}
	if int32(len(videos)) > limit {
		videos = videos[:limit]
		last := videos[len(videos)-1]
		page.NextCursor = encodePageToken(last.CreatedAt, last.VideoID)
	}
	for _, video := range videos {
		page.Items = append(page.Items, vo.NewVideoView(video))
	}
	return page, nil
}

// GetDownloadLink 为已完成的视频签发临时下载地址。
// 视频需允许下载且已有转码产物。
func (s *VideoQueryService) GetDownloadLink(ctx context.Context, videoID uuid.UUID) (*vo.DownloadLink, error) {
	requester, meta, err := requesterFrom(ctx)
	if err != nil {
		return nil, err
	}
	video, err := s.loadVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if err := authorize(video, requester, meta); err != nil {
		return nil, err
	}
	if !video.IsDownloadable {
		return nil, errors.Forbidden(ReasonDownloadForbidden, "download disabled for this video")
	}
	if video.Status != po.VideoStatusCompleted || video.ProcessedPath == nil {
		return nil, errors.Conflict(ReasonDownloadNotReady, "video is not processed yet")
	}

	url, err := s.storage.PresignGet(ctx, *video.ProcessedPath, DownloadLinkTTL)
	if err != nil {
		s.log.WithContext(ctx).Errorf("presign download failed: video_id=%s err=%v", videoID, err)
		return nil, errors.InternalServer(ReasonStorageFailed, "failed to sign download url").WithCause(err)
	}
	return &vo.DownloadLink{URL: url, ExpiresAt: time.Now().Add(DownloadLinkTTL)}, nil
}

func (s *VideoQueryService) loadVideo(ctx context.Context, videoID uuid.UUID) (*po.Video, error) {
	video, err := s.videos.GetByID(ctx, nil, videoID)
	if err != nil {
		if errors.Is(err, repositories.ErrVideoNotFound) {
			return nil, ErrVideoNotFound
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errors.GatewayTimeout(ReasonQueryTimeout, "query timeout")
		}
		s.log.WithContext(ctx).Errorf("get video failed: video_id=%s err=%v", videoID, err)
		return nil, errors.InternalServer(ReasonQueryVideoFailed, "failed to load video").WithCause(err)
	}
	return video, nil
}

func encodePageToken(createdAt time.Time, videoID uuid.UUID) string {
	raw := fmt.Sprintf("%s|%s", createdAt.UTC().Format(time.RFC3339Nano), videoID)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodePageToken(token string) (time.Time, uuid.UUID, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return time.Time{}, uuid.Nil, err
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, uuid.Nil, fmt.Errorf("malformed page token")
	}
	createdAt, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, uuid.Nil, err
	}
	videoID, err := uuid.Parse(parts[1])
	if err != nil {
		return time.Time{}, uuid.Nil, err
	}
	return createdAt, videoID, nil
}
