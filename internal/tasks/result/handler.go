// Package result 消费处理结果队列：回写视频状态、追加状态历史，
// 并对乱序或重复的回报做幂等防护。
package result

import (
	"context"
	"errors"
	"fmt"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"

	"github.com/bionicotaku/lingo-services-media/internal/models/messages"
	"github.com/bionicotaku/lingo-services-media/internal/models/po"
	"github.com/bionicotaku/lingo-services-media/internal/repositories"
)

// ErrUnknownVideo 表示回报指向的视频不存在，消息应直接丢弃。
var ErrUnknownVideo = errors.New("result: unknown video")

type videoStore interface {
	GetByID(ctx context.Context, sess txmanager.Session, videoID uuid.UUID) (*po.Video, error)
	ApplyResult(ctx context.Context, sess txmanager.Session, input repositories.ApplyResultInput) error
}

type statusStore interface {
	Append(ctx context.Context, sess txmanager.Session, input repositories.AppendStatusInput) (*po.ProcessingStatus, error)
}

// Handler 将单条处理结果落库。
type Handler struct {
	videos   videoStore
	statuses statusStore
	tx       txmanager.Manager
	metrics  *metrics
	log      *log.Helper
}

// NewHandler 构造结果处理器。
func NewHandler(videos videoStore, statuses statusStore, tx txmanager.Manager, logger log.Logger, metrics *metrics) *Handler {
	return &Handler{
		videos:   videos,
		statuses: statuses,
		tx:       tx,
		metrics:  metrics,
		log:      log.NewHelper(logger),
	}
}

// Handle 在单个事务内回写视频状态并追加历史。
// 重复或乱序的回报按幂等处理：跳过并返回 nil，让消费端直接确认。
func (h *Handler) Handle(ctx context.Context, msg *messages.ResultMessage) error {
	if msg == nil {
		return fmt.Errorf("result: nil message")
	}

	err := h.tx.WithinTx(ctx, txmanager.TxOptions{}, func(txCtx context.Context, sess txmanager.Session) error {
		video, err := h.videos.GetByID(txCtx, sess, msg.VideoID)
		if err != nil {
			if errors.Is(err, repositories.ErrVideoNotFound) {
				return ErrUnknownVideo
			}
			return fmt.Errorf("load video %s: %w", msg.VideoID, err)
		}

		if skip, reason := shouldSkip(video.Status, msg.Status); skip {
			h.log.WithContext(txCtx).Warnf("skip result for video %s: %s (current=%s incoming=%s)",
				msg.VideoID, reason, video.Status, msg.Status)
			h.metrics.recordSkip(txCtx)
			return nil
		}

		input := repositories.ApplyResultInput{
			VideoID:  msg.VideoID,
			Status:   msg.Status,
			FileSize: msg.FileSize,
			Duration: msg.Duration,
		}
		if msg.Status == po.VideoStatusCompleted && msg.OutputPath != "" {
			path := msg.OutputPath
			input.ProcessedPath = &path
		}
		if err := h.videos.ApplyResult(txCtx, sess, input); err != nil {
			return fmt.Errorf("apply result for video %s: %w", msg.VideoID, err)
		}

		if _, err := h.statuses.Append(txCtx, sess, repositories.AppendStatusInput{
			VideoID:  msg.VideoID,
			Status:   msg.Status,
			Progress: msg.Progress,
			Message:  msg.Message,
		}); err != nil {
			return fmt.Errorf("append status for video %s: %w", msg.VideoID, err)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrUnknownVideo) {
			h.metrics.recordApply(ctx, false)
		}
		return err
	}
	h.metrics.recordApply(ctx, true)
	return nil
}

// shouldSkip 判定回报是否违反状态机推进方向。
// COMPLETED 是终态；ERROR 只能被人工重试解除，回报不得覆盖。
func shouldSkip(current, incoming po.VideoStatus) (bool, string) {
	switch current {
	case po.VideoStatusCompleted:
		return true, "video already completed"
	case po.VideoStatusError:
		return true, "video in error state, awaiting manual retry"
	}
	if current == po.VideoStatusProcessing && incoming == po.VideoStatusPending {
		return true, "stale pending report"
	}
	if current == incoming && incoming != po.VideoStatusProcessing {
		return true, "duplicate report"
	}
	return false, ""
}
