package services

import (
	"context"
	"io"
	"time"

	"github.com/bionicotaku/lingo-services-media/internal/models/po"
	"github.com/bionicotaku/lingo-services-media/internal/repositories"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/google/uuid"
)

// VideoRepo 定义视频实体的持久化能力。
type VideoRepo interface {
	Create(ctx context.Context, sess txmanager.Session, input repositories.CreateVideoInput) (*po.Video, error)
	GetByID(ctx context.Context, sess txmanager.Session, videoID uuid.UUID) (*po.Video, error)
	ListByOwner(ctx context.Context, input repositories.ListByOwnerInput) ([]*po.Video, error)
	Update(ctx context.Context, sess txmanager.Session, input repositories.UpdateVideoInput) (*po.Video, error)
	SetStatus(ctx context.Context, sess txmanager.Session, videoID uuid.UUID, status po.VideoStatus) error
	Delete(ctx context.Context, sess txmanager.Session, videoID uuid.UUID) error
}

// StatusRepo 定义处理状态历史的持久化能力。
type StatusRepo interface {
	Append(ctx context.Context, sess txmanager.Session, input repositories.AppendStatusInput) (*po.ProcessingStatus, error)
	Latest(ctx context.Context, videoID uuid.UUID) (*po.ProcessingStatus, error)
	ListByVideo(ctx context.Context, videoID uuid.UUID, limit int32) ([]*po.ProcessingStatus, error)
	DeleteByVideo(ctx context.Context, sess txmanager.Session, videoID uuid.UUID) error
}

// OutboxEnqueuer 定义在业务事务内写入 Outbox 的能力。
type OutboxEnqueuer interface {
	Enqueue(ctx context.Context, sess txmanager.Session, msg repositories.OutboxMessage) error
}

// ObjectStorage 定义视频文件的对象存储能力。
type ObjectStorage interface {
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// ProcessingTopology 描述命令侧投递处理请求所需的路由信息。
type ProcessingTopology struct {
	WorkRoutingKey string
}

// EventTypeProcessingRequested 是处理请求事件在 Outbox 中的类型标识。
const EventTypeProcessingRequested = "video.processing.requested"
