// Package po 定义面向持久化的数据对象（Persistent Objects），由 Repository 层使用。
// PO 对象映射数据库表结构，不直接暴露给上层业务逻辑。
//
// 注意：Video 的来源（上传 / YouTube）建模为 VideoSource 和类型，
// 仓储层负责在可空列与和类型之间做双向映射并校验合法性。
package po

import (
	"time"

	"github.com/google/uuid"
)

// VideoStatus 表示视频处理的总体生命周期状态。
// 对应数据库枚举类型 media.video_status。
type VideoStatus string

// 视频状态常量定义
const (
	VideoStatusPending    VideoStatus = "PENDING"    // 记录已创建，等待 worker 处理
	VideoStatusProcessing VideoStatus = "PROCESSING" // worker 已上报进度，转码进行中
	VideoStatusCompleted  VideoStatus = "COMPLETED"  // 转码完成，processed_path 已写入
	VideoStatusError      VideoStatus = "ERROR"      // 处理失败，需人工重试
)

// Valid 判断状态是否为四个已知取值之一。
func (s VideoStatus) Valid() bool {
	switch s {
	case VideoStatusPending, VideoStatusProcessing, VideoStatusCompleted, VideoStatusError:
		return true
	}
	return false
}

// Terminal 判断状态是否不再接受常规前向迁移。
// ERROR 仅可通过人工重试离开，COMPLETED 为最终态。
func (s VideoStatus) Terminal() bool {
	return s == VideoStatusCompleted || s == VideoStatusError
}

// Message 返回状态对应的固定文案。映射对四个状态变体保持全覆盖，
// 查询层在没有任何历史记录时用它合成响应。
func (s VideoStatus) Message() string {
	switch s {
	case VideoStatusPending:
		return "awaiting processing"
	case VideoStatusProcessing:
		return "processing"
	case VideoStatusCompleted:
		return "completed"
	case VideoStatusError:
		return "processing failed"
	}
	return "unknown"
}

// VideoType 表示视频来源类别。
type VideoType string

const (
	// VideoTypeUploaded 表示用户直接上传到对象存储的视频。
	VideoTypeUploaded VideoType = "UPLOADED"
	// VideoTypeYouTube 表示仅登记 URL 的 YouTube 视频。
	VideoTypeYouTube VideoType = "YOUTUBE"
)

// VideoSource 是视频来源的和类型：上传视频携带存储键，
// YouTube 视频携带 URL 与解析出的视频 ID，二者互斥。
type VideoSource interface {
	Type() VideoType
	isVideoSource()
}

// UploadedSource 描述上传视频的原始对象存储位置。
type UploadedSource struct {
	StorageKey string // 原始文件在对象存储中的键
}

// Type 返回 UPLOADED。
func (UploadedSource) Type() VideoType { return VideoTypeUploaded }

func (UploadedSource) isVideoSource() {}

// YouTubeSource 描述 YouTube 视频的外部引用。
type YouTubeSource struct {
	URL     string // 用户提交的完整 URL
	VideoID string // 从 URL 解析出的 11 位视频 ID
}

// Type 返回 YOUTUBE。
func (YouTubeSource) Type() VideoType { return VideoTypeYouTube }

func (YouTubeSource) isVideoSource() {}

// Video 表示 media.videos 表的数据库实体。
type Video struct {
	VideoID        uuid.UUID   // 主键
	OwnerID        uuid.UUID   // 归属用户，仅 owner 或 admin 可读写
	Title          string      // 标题
	Description    *string     // 描述
	Source         VideoSource // 来源（上传 / YouTube）
	Status         VideoStatus // 当前总体状态
	ProcessedPath  *string     // 转码产物存储键，仅消费者在 COMPLETED 时写入
	ThumbnailPath  *string     // 缩略图存储键，删除视频时随产物一并清理
	FileSize       *int64      // 文件大小（字节），结果消息回填
	Duration       *int32      // 时长（秒），结果消息回填
	IsDownloadable bool        // 是否允许生成下载链接
	CreatedAt      time.Time   // 创建时间
	UpdatedAt      time.Time   // 最近更新时间
}

// UploadedSource 返回上传来源，非上传视频返回 nil。
func (v *Video) UploadedSource() *UploadedSource {
	if src, ok := v.Source.(UploadedSource); ok {
		return &src
	}
	return nil
}

// YouTubeSource 返回 YouTube 来源，非 YouTube 视频返回 nil。
func (v *Video) YouTubeSource() *YouTubeSource {
	if src, ok := v.Source.(YouTubeSource); ok {
		return &src
	}
	return nil
}

// StorageKeys 返回该视频在对象存储中全部非空的键，
// 删除流程按此列表先清理存储再删数据库行。
func (v *Video) StorageKeys() []string {
	var keys []string
	if src := v.UploadedSource(); src != nil && src.StorageKey != "" {
		keys = append(keys, src.StorageKey)
	}
	if v.ProcessedPath != nil && *v.ProcessedPath != "" {
		keys = append(keys, *v.ProcessedPath)
	}
	if v.ThumbnailPath != nil && *v.ThumbnailPath != "" {
		keys = append(keys, *v.ThumbnailPath)
	}
	return keys
}

// ProcessingStatus 表示 media.video_processing_statuses 表的一条追加记录。
// 历史只增不改，按 created_at 排序，seq 作为同一时刻的决胜序。
type ProcessingStatus struct {
	Seq       int64       // 自增序号，兼作排序决胜
	VideoID   uuid.UUID   // 所属视频
	Status    VideoStatus // 上报时的状态
	Progress  int32       // 0–100
	Message   *string     // worker 上报的人类可读信息
	CreatedAt time.Time   // 记录时间
}
