// Package vo 定义服务层返回给控制器的视图对象（View Objects）。
// VO 不携带仓储细节，字段已完成可见性裁剪。
package vo

import (
	"time"

	"github.com/google/uuid"

	"github.com/bionicotaku/lingo-services-media/internal/models/po"
)

// VideoView 是单个视频的只读视图。
type VideoView struct {
	VideoID        uuid.UUID
	OwnerID        uuid.UUID
	Title          string
	Description    *string
	Type           po.VideoType
	YouTubeURL     *string // 仅 YOUTUBE 类型非空
	YouTubeVideoID *string // 仅 YOUTUBE 类型非空
	Status         po.VideoStatus
	FileSize       *int64
	Duration       *int32
	IsDownloadable bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewVideoView 由持久化实体构造视图。存储键不对外暴露。
func NewVideoView(v *po.Video) *VideoView {
	view := &VideoView{
		VideoID:        v.VideoID,
		OwnerID:        v.OwnerID,
		Title:          v.Title,
		Description:    v.Description,
		Type:           v.Source.Type(),
		Status:         v.Status,
		FileSize:       v.FileSize,
		Duration:       v.Duration,
		IsDownloadable: v.IsDownloadable,
		CreatedAt:      v.CreatedAt,
		UpdatedAt:      v.UpdatedAt,
	}
	if src := v.YouTubeSource(); src != nil {
		url := src.URL
		id := src.VideoID
		view.YouTubeURL = &url
		view.YouTubeVideoID = &id
	}
	return view
}

// VideoPage 是分页查询结果。NextCursor 为空表示已到末页。
type VideoPage struct {
	Items      []*VideoView
	NextCursor string
}

// ProcessingStatusView 是最新处理状态视图。
// Progress 恒为非空；历史为空时由视频当前状态合成，Synthesized 置 true。
type ProcessingStatusView struct {
	VideoID     uuid.UUID
	Status      po.VideoStatus
	Progress    int32
	Message     string
	ReportedAt  time.Time
	Synthesized bool
}

// StatusHistoryEntry 是历史查询的单条记录。
type StatusHistoryEntry struct {
	Status    po.VideoStatus
	Progress  int32
	Message   *string
	CreatedAt time.Time
}

// DownloadLink 是预签名下载地址视图。
type DownloadLink struct {
	URL       string
	ExpiresAt time.Time
}
