// Package dto 定义传输层的请求/响应结构，并负责与 VO 的互转。
package dto

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bionicotaku/lingo-services-media/internal/models/po"
	"github.com/bionicotaku/lingo-services-media/internal/models/vo"
)

// ParseVideoID 解析路径中的 video_id。
func ParseVideoID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid video_id: %w", err)
	}
	return id, nil
}

// ParseTypeFilter 解析列表查询的 type 过滤参数，空串表示不过滤。
func ParseTypeFilter(raw string) (*po.VideoType, error) {
	if raw == "" {
		return nil, nil
	}
	t := po.VideoType(raw)
	switch t {
	case po.VideoTypeUploaded, po.VideoTypeYouTube:
		return &t, nil
	default:
		return nil, fmt.Errorf("invalid type filter: %q", raw)
	}
}

// AddYouTubeVideoRequest 是登记 YouTube 外链的请求体。
type AddYouTubeVideoRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	URL         string  `json:"url"`
}

// UpdateVideoRequest 是部分更新请求体，缺省字段保持原值。
type UpdateVideoRequest struct {
	Title          *string `json:"title,omitempty"`
	Description    *string `json:"description,omitempty"`
	IsDownloadable *bool   `json:"isDownloadable,omitempty"`
}

// VideoResponse 是单个视频的响应视图。
type VideoResponse struct {
	VideoID        string  `json:"videoId"`
	OwnerID        string  `json:"ownerId"`
	Title          string  `json:"title"`
	Description    *string `json:"description,omitempty"`
	Type           string  `json:"type"`
	YouTubeURL     *string `json:"youtubeUrl,omitempty"`
	YouTubeVideoID *string `json:"youtubeVideoId,omitempty"`
	Status         string  `json:"status"`
	FileSize       *int64  `json:"fileSize,omitempty"`
	Duration       *int32  `json:"durationSeconds,omitempty"`
	IsDownloadable bool    `json:"isDownloadable"`
	CreatedAt      string  `json:"createdAt"`
	UpdatedAt      string  `json:"updatedAt"`
}

// NewVideoResponse 将 VO 转换为响应 DTO。
func NewVideoResponse(view *vo.VideoView) *VideoResponse {
	if view == nil {
		return &VideoResponse{}
	}
	return &VideoResponse{
		VideoID:        view.VideoID.String(),
		OwnerID:        view.OwnerID.String(),
		Title:          view.Title,
		Description:    view.Description,
		Type:           string(view.Type),
		YouTubeURL:     view.YouTubeURL,
		YouTubeVideoID: view.YouTubeVideoID,
		Status:         string(view.Status),
		FileSize:       view.FileSize,
		Duration:       view.Duration,
		IsDownloadable: view.IsDownloadable,
		CreatedAt:      FormatTime(view.CreatedAt),
		UpdatedAt:      FormatTime(view.UpdatedAt),
	}
}

// ListVideosResponse 是分页列表响应。
type ListVideosResponse struct {
	Videos        []*VideoResponse `json:"videos"`
	NextPageToken string           `json:"nextPageToken,omitempty"`
}

// NewListVideosResponse 将分页 VO 转换为响应 DTO。
func NewListVideosResponse(page *vo.VideoPage) *ListVideosResponse {
	if page == nil {
		return &ListVideosResponse{Videos: []*VideoResponse{}}
	}
	items := make([]*VideoResponse, 0, len(page.Items))
	for _, item := range page.Items {
		items = append(items, NewVideoResponse(item))
	}
	return &ListVideosResponse{Videos: items, NextPageToken: page.NextCursor}
}

// StatusResponse 是最新处理状态响应。
type StatusResponse struct {
	VideoID    string `json:"videoId"`
	Status     string `json:"status"`
	Progress   int32  `json:"progress"`
	Message    string `json:"message"`
	ReportedAt string `json:"reportedAt"`
}

// NewStatusResponse 将状态 VO 转换为响应 DTO。
func NewStatusResponse(view *vo.ProcessingStatusView) *StatusResponse {
	if view == nil {
		return &StatusResponse{}
	}
	return &StatusResponse{
		VideoID:    view.VideoID.String(),
		Status:     string(view.Status),
		Progress:   view.Progress,
		Message:    view.Message,
		ReportedAt: FormatTime(view.ReportedAt),
	}
}

// StatusHistoryResponse 是状态历史响应。
type StatusHistoryResponse struct {
	Entries []*StatusHistoryItem `json:"entries"`
}

// StatusHistoryItem 是历史中的单条记录。
type StatusHistoryItem struct {
	Status    string  `json:"status"`
	Progress  int32   `json:"progress"`
	Message   *string `json:"message,omitempty"`
	CreatedAt string  `json:"createdAt"`
}

// NewStatusHistoryResponse 将历史条目列表转换为响应 DTO。
func NewStatusHistoryResponse(entries []*vo.StatusHistoryEntry) *StatusHistoryResponse {
	items := make([]*StatusHistoryItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, &StatusHistoryItem{
			Status:    string(e.Status),
			Progress:  e.Progress,
			Message:   e.Message,
			CreatedAt: FormatTime(e.CreatedAt),
		})
	}
	return &StatusHistoryResponse{Entries: items}
}

// DownloadLinkResponse 是预签名下载地址响应。
type DownloadLinkResponse struct {
	URL       string `json:"url"`
	ExpiresAt string `json:"expiresAt"`
}

// NewDownloadLinkResponse 将下载链接 VO 转换为响应 DTO。
func NewDownloadLinkResponse(link *vo.DownloadLink) *DownloadLinkResponse {
	if link == nil {
		return &DownloadLinkResponse{}
	}
	return &DownloadLinkResponse{
		URL:       link.URL,
		ExpiresAt: FormatTime(link.ExpiresAt),
	}
}

// FormatTime 将时间序列化为 RFC3339（UTC）。零值返回空串。
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
