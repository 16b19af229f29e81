package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/bionicotaku/lingo-services-media/internal/metadata"
	"github.com/bionicotaku/lingo-services-media/internal/models/messages"
	"github.com/bionicotaku/lingo-services-media/internal/models/po"
	"github.com/bionicotaku/lingo-services-media/internal/models/vo"
	"github.com/bionicotaku/lingo-services-media/internal/repositories"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// VideoCommandService 负责视频的写路径：上传、登记、更新、删除与重试。
// 所有业务写入与 Outbox 入箱在同一数据库事务内完成。
type VideoCommandService struct {
	videos    VideoRepo
	statuses  StatusRepo
	outbox    OutboxEnqueuer
	storage   ObjectStorage
	topology  ProcessingTopology
	txManager txmanager.Manager
	log       *log.Helper
}

// NewVideoCommandService 构造 VideoCommandService。
func NewVideoCommandService(
	videos VideoRepo,
	statuses StatusRepo,
	outbox OutboxEnqueuer,
	storage ObjectStorage,
	topology ProcessingTopology,
	tx txmanager.Manager,
	logger log.Logger,
) *VideoCommandService {
	return &VideoCommandService{
		videos:    videos,
		statuses:  statuses,
		outbox:    outbox,
		storage:   storage,
		topology:  topology,
		txManager: tx,
		log:       log.NewHelper(logger),
	}
}

// UploadVideoInput 表示上传视频的输入。
type UploadVideoInput struct {
	Title          string
	Description    *string
	Filename       string
	ContentType    string
	Size           int64
	Content        io.Reader
	IsDownloadable bool
}

// UpdateVideoInput 表示更新视频元数据的可选字段。
type UpdateVideoInput struct {
	VideoID        uuid.UUID
	Title          *string
	Description    *string
	IsDownloadable *bool
}

// AddYouTubeVideoInput 表示登记 YouTube 视频的输入。
type AddYouTubeVideoInput struct {
	Title       string
	Description *string
	URL         string
}

func requesterFrom(ctx context.Context) (uuid.UUID, metadata.HandlerMetadata, error) {
	meta, _ := metadata.FromContext(ctx)
	userID, ok := meta.UserUUID()
	if !ok {
		return uuid.Nil, meta, ErrUnauthenticated
	}
	return userID, meta, nil
}

// authorize 校验请求者可操作该视频：owner 或管理员。
func authorize(video *po.Video, requester uuid.UUID, meta metadata.HandlerMetadata) error {
	if video.OwnerID == requester || meta.IsAdmin() {
		return nil
	}
	return ErrAccessDenied
}

func rawStorageKey(ownerID uuid.UUID, filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		base = "video"
	}
	return fmt.Sprintf("videos/%s/%s_%s", ownerID, uuid.NewString(), base)
}

func processedStorageKey(ownerID, videoID uuid.UUID) string {
	return fmt.Sprintf("processed/%s/%s.mp4", ownerID, videoID)
}

// UploadVideo 上传视频：先写对象存储，再在同一事务内落库、
// 记录初始 PENDING 历史并把处理请求写入 Outbox。
// 事务失败时尽力清理已写入的存储对象。
func (s *VideoCommandService) UploadVideo(ctx context.Context, input UploadVideoInput) (*vo.VideoView, error) {
	ownerID, _, err := requesterFrom(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, errors.BadRequest(ReasonVideoInvalid, "title is required")
	}
	if input.Content == nil || input.Size <= 0 {
		return nil, errors.BadRequest(ReasonVideoInvalid, "video file is required")
	}

	storageKey := rawStorageKey(ownerID, input.Filename)
	if err := s.storage.Put(ctx, storageKey, input.Content, input.Size, input.ContentType); err != nil {
		s.log.WithContext(ctx).Errorf("upload to storage failed: key=%s err=%v", storageKey, err)
		return nil, errors.InternalServer(ReasonStorageFailed, "failed to store video file").WithCause(err)
	}

	var created *po.Video
	err = s.txManager.WithinTx(ctx, txmanager.TxOptions{}, func(txCtx context.Context, sess txmanager.Session) error {
		video, repoErr := s.videos.Create(txCtx, sess, repositories.CreateVideoInput{
			OwnerID:        ownerID,
			Title:          input.Title,
			Description:    input.Description,
			Source:         po.UploadedSource{StorageKey: storageKey},
			Status:         po.VideoStatusPending,
			FileSize:       &input.Size,
			IsDownloadable: input.IsDownloadable,
		})
		if repoErr != nil {
			return repoErr
		}
		if _, histErr := s.statuses.Append(txCtx, sess, repositories.AppendStatusInput{
			VideoID:  video.VideoID,
			Status:   po.VideoStatusPending,
			Progress: 0,
		}); histErr != nil {
			return histErr
		}
		if enqErr := s.enqueueProcessingRequest(txCtx, sess, video, storageKey); enqErr != nil {
			return enqErr
		}
		created = video
		return nil
	})
	if err != nil {
		if removeErr := s.storage.Remove(context.WithoutCancel(ctx), storageKey); removeErr != nil {
			s.log.WithContext(ctx).Warnf("cleanup orphan object failed: key=%s err=%v", storageKey, removeErr)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errors.GatewayTimeout(ReasonQueryTimeout, "upload timeout")
		}
		s.log.WithContext(ctx).Errorf("upload video failed: title=%s err=%v", input.Title, err)
		return nil, errors.InternalServer(ReasonQueryVideoFailed, "failed to create video").WithCause(err)
	}

	s.log.WithContext(ctx).Infof("UploadVideo: video_id=%s owner_id=%s size=%d", created.VideoID, ownerID, input.Size)
	return vo.NewVideoView(created), nil
}

// AddYouTubeVideo 登记一条 YouTube 视频。外部托管内容不经过处理管线，
// 记录直接以 COMPLETED 落库，不写 Outbox。
func (s *VideoCommandService) AddYouTubeVideo(ctx context.Context, input AddYouTubeVideoInput) (*vo.VideoView, error) {
	ownerID, _, err := requesterFrom(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, errors.BadRequest(ReasonVideoInvalid, "title is required")
	}
	if !ValidYouTubeURL(input.URL) {
		return nil, errors.BadRequest(ReasonYouTubeURLInvalid, "invalid youtube url")
	}
	videoID := ExtractYouTubeID(input.URL)
	if videoID == "" {
		return nil, errors.BadRequest(ReasonYouTubeURLInvalid, "cannot extract youtube video id")
	}

	var created *po.Video
	err = s.txManager.WithinTx(ctx, txmanager.TxOptions{}, func(txCtx context.Context, sess txmanager.Session) error {
		video, repoErr := s.videos.Create(txCtx, sess, repositories.CreateVideoInput{
			OwnerID:     ownerID,
			Title:       input.Title,
			Description: input.Description,
			Source:      po.YouTubeSource{URL: strings.TrimSpace(input.URL), VideoID: videoID},
			Status:      po.VideoStatusCompleted,
		})
		if repoErr != nil {
			return repoErr
		}
		if _, histErr := s.statuses.Append(txCtx, sess, repositories.AppendStatusInput{
			VideoID:  video.VideoID,
			Status:   po.VideoStatusCompleted,
			Progress: 100,
		}); histErr != nil {
			return histErr
		}
		created = video
		return nil
	})
	if err != nil {
		s.log.WithContext(ctx).Errorf("add youtube video failed: url=%s err=%v", input.URL, err)
		return nil, errors.InternalServer(ReasonQueryVideoFailed, "failed to create video").WithCause(err)
	}

	s.log.WithContext(ctx).Infof("AddYouTubeVideo: video_id=%s youtube_id=%s", created.VideoID, videoID)
	return vo.NewVideoView(created), nil
}

// UpdateVideo 更新标题、描述或下载开关。仅 owner 或管理员可操作。
func (s *VideoCommandService) UpdateVideo(ctx context.Context, input UpdateVideoInput) (*vo.VideoView, error) {
	requester, meta, err := requesterFrom(ctx)
	if err != nil {
		return nil, err
	}
	if input.Title == nil && input.Description == nil && input.IsDownloadable == nil {
		return nil, errors.BadRequest(ReasonVideoInvalid, "no fields to update")
	}

	var updated *po.Video
	err = s.txManager.WithinTx(ctx, txmanager.TxOptions{}, func(txCtx context.Context, sess txmanager.Session) error {
		video, repoErr := s.videos.GetByID(txCtx, sess, input.VideoID)
		if repoErr != nil {
			return repoErr
		}
		if authErr := authorize(video, requester, meta); authErr != nil {
			return authErr
		}
		updated, repoErr = s.videos.Update(txCtx, sess, repositories.UpdateVideoInput{
			VideoID:        input.VideoID,
			Title:          input.Title,
			Description:    input.Description,
			IsDownloadable: input.IsDownloadable,
		})
		return repoErr
	})
	if err != nil {
		return nil, s.mapWriteError(ctx, err, "update video", input.VideoID)
	}
	return vo.NewVideoView(updated), nil
}

// DeleteVideo 删除视频。先清理对象存储中的全部产物，
// 存储清理成功后再在事务内删除历史与记录，避免产生孤儿对象。
func (s *VideoCommandService) DeleteVideo(ctx context.Context, videoID uuid.UUID) error {
	requester, meta, err := requesterFrom(ctx)
	if err != nil {
		return err
	}

	video, err := s.videos.GetByID(ctx, nil, videoID)
	if err != nil {
		return s.mapWriteError(ctx, err, "delete video", videoID)
	}
	if err := authorize(video, requester, meta); err != nil {
		return err
	}

	for _, key := range video.StorageKeys() {
		if err := s.storage.Remove(ctx, key); err != nil {
			s.log.WithContext(ctx).Errorf("remove object failed: key=%s err=%v", key, err)
			return errors.InternalServer(ReasonStorageFailed, "failed to remove stored files").WithCause(err)
		}
	}

	err = s.txManager.WithinTx(ctx, txmanager.TxOptions{}, func(txCtx context.Context, sess txmanager.Session) error {
		if histErr := s.statuses.DeleteByVideo(txCtx, sess, videoID); histErr != nil {
			return histErr
		}
		return s.videos.Delete(txCtx, sess, videoID)
	})
	if err != nil {
		return s.mapWriteError(ctx, err, "delete video", videoID)
	}
	s.log.WithContext(ctx).Infof("DeleteVideo: video_id=%s", videoID)
	return nil
}

// RetryProcessing 人工重试失败的视频：ERROR 置回 PENDING，
// 追加历史并重新投递处理请求。仅上传视频可重试。
func (s *VideoCommandService) RetryProcessing(ctx context.Context, videoID uuid.UUID) (*vo.VideoView, error) {
	requester, meta, err := requesterFrom(ctx)
	if err != nil {
		return nil, err
	}

	var retried *po.Video
	err = s.txManager.WithinTx(ctx, txmanager.TxOptions{}, func(txCtx context.Context, sess txmanager.Session) error {
		video, repoErr := s.videos.GetByID(txCtx, sess, videoID)
		if repoErr != nil {
			return repoErr
		}
		if authErr := authorize(video, requester, meta); authErr != nil {
			return authErr
		}
		if video.Status != po.VideoStatusError {
			return errors.Conflict(ReasonRetryNotAllowed, fmt.Sprintf("retry requires ERROR status, current is %s", video.Status))
		}
		source := video.UploadedSource()
		if source == nil {
			return errors.Conflict(ReasonRetryNotAllowed, "only uploaded videos can be retried")
		}
		if statusErr := s.videos.SetStatus(txCtx, sess, videoID, po.VideoStatusPending); statusErr != nil {
			return statusErr
		}
		msg := "retry requested"
		if _, histErr := s.statuses.Append(txCtx, sess, repositories.AppendStatusInput{
			VideoID:  videoID,
			Status:   po.VideoStatusPending,
			Progress: 0,
			Message:  &msg,
		}); histErr != nil {
			return histErr
		}
		if enqErr := s.enqueueProcessingRequest(txCtx, sess, video, source.StorageKey); enqErr != nil {
			return enqErr
		}
		video.Status = po.VideoStatusPending
		retried = video
		return nil
	})
	if err != nil {
		return nil, s.mapWriteError(ctx, err, "retry processing", videoID)
	}
	s.log.WithContext(ctx).Infof("RetryProcessing: video_id=%s", videoID)
	return vo.NewVideoView(retried), nil
}

func (s *VideoCommandService) enqueueProcessingRequest(ctx context.Context, sess txmanager.Session, video *po.Video, storageKey string) error {
	request := messages.NewRequest(video.VideoID, video.OwnerID, storageKey,
		processedStorageKey(video.OwnerID, video.VideoID), time.Now())
	payload, err := request.Encode()
	if err != nil {
		return fmt.Errorf("encode processing request: %w", err)
	}
	return s.outbox.Enqueue(ctx, sess, repositories.OutboxMessage{
		AggregateID: video.VideoID,
		EventType:   EventTypeProcessingRequested,
		RoutingKey:  s.topology.WorkRoutingKey,
		Payload:     payload,
	})
}

// mapWriteError 把仓储与事务错误翻译为对外的 kratos 错误。
func (s *VideoCommandService) mapWriteError(ctx context.Context, err error, op string, videoID uuid.UUID) error {
	switch {
	case errors.Is(err, repositories.ErrVideoNotFound):
		return ErrVideoNotFound
	case errors.Is(err, context.DeadlineExceeded):
		s.log.WithContext(ctx).Warnf("%s timeout: video_id=%s", op, videoID)
		return errors.GatewayTimeout(ReasonQueryTimeout, op+" timeout")
	}
	if kerr := new(errors.Error); errors.As(err, &kerr) {
		return err
	}
	s.log.WithContext(ctx).Errorf("%s failed: video_id=%s err=%v", op, videoID, err)
	return errors.InternalServer(ReasonQueryVideoFailed, "failed to "+op).WithCause(err)
}
