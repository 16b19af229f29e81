// Package mappers 提供仓储层的模型转换工具，将存储层结果映射为领域实体。
package mappers

import (
	"fmt"
	"strings"

	"github.com/bionicotaku/lingo-services-media/internal/models/po"
)

// SourceColumns 是视频来源在数据库中的列形态。
// UPLOADED 行只有 StorageKey 非空，YOUTUBE 行只有 YouTubeURL / YouTubeVideoID 非空。
type SourceColumns struct {
	VideoType      string
	StorageKey     *string
	YouTubeURL     *string
	YouTubeVideoID *string
}

// SourceFromColumns 将列形态还原为 VideoSource，并校验互斥约束。
func SourceFromColumns(cols SourceColumns) (po.VideoSource, error) {
	switch po.VideoType(cols.VideoType) {
	case po.VideoTypeUploaded:
		if cols.StorageKey == nil || strings.TrimSpace(*cols.StorageKey) == "" {
			return nil, fmt.Errorf("uploaded video missing storage key")
		}
		if cols.YouTubeURL != nil || cols.YouTubeVideoID != nil {
			return nil, fmt.Errorf("uploaded video carries youtube columns")
		}
		return po.UploadedSource{StorageKey: *cols.StorageKey}, nil
	case po.VideoTypeYouTube:
		if cols.YouTubeURL == nil || strings.TrimSpace(*cols.YouTubeURL) == "" {
			return nil, fmt.Errorf("youtube video missing url")
		}
		if cols.YouTubeVideoID == nil || strings.TrimSpace(*cols.YouTubeVideoID) == "" {
			return nil, fmt.Errorf("youtube video missing video id")
		}
		if cols.StorageKey != nil {
			return nil, fmt.Errorf("youtube video carries storage key")
		}
		return po.YouTubeSource{URL: *cols.YouTubeURL, VideoID: *cols.YouTubeVideoID}, nil
	default:
		return nil, fmt.Errorf("unknown video type %q", cols.VideoType)
	}
}

// ColumnsFromSource 将 VideoSource 展开为列形态。
func ColumnsFromSource(src po.VideoSource) SourceColumns {
	switch s := src.(type) {
	case po.UploadedSource:
		key := s.StorageKey
		return SourceColumns{VideoType: string(po.VideoTypeUploaded), StorageKey: &key}
	case po.YouTubeSource:
		url := s.URL
		id := s.VideoID
		return SourceColumns{VideoType: string(po.VideoTypeYouTube), YouTubeURL: &url, YouTubeVideoID: &id}
	default:
		return SourceColumns{}
	}
}

// StatusFromColumn 将状态列转换为 VideoStatus 并校验取值。
func StatusFromColumn(value string) (po.VideoStatus, error) {
	status := po.VideoStatus(value)
	if !status.Valid() {
		return "", fmt.Errorf("unknown video status %q", value)
	}
	return status, nil
}
