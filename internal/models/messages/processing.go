// Package messages 定义服务与转码 worker 之间的消息契约。
// 序列化格式为 JSON，时间戳使用 RFC 3339。
package messages

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bionicotaku/lingo-services-media/internal/models/po"
)

// ProcessingMessage 是处理请求与处理结果共用的消息体。
// 服务端发出的请求只填充标识与路径字段；worker 回报的结果
// 额外携带 status / progress / message。
type ProcessingMessage struct {
	VideoID         string `json:"videoId"`
	UserID          string `json:"userId"`
	VideoPath       string `json:"videoPath,omitempty"`
	CloudStorageKey string `json:"cloudStorageKey,omitempty"`
	OutputPath      string `json:"outputPath,omitempty"`
	Status          string `json:"status,omitempty"`
	Progress        *int32 `json:"progress,omitempty"`
	Message         string `json:"message,omitempty"`
	FileSize        *int64 `json:"fileSize,omitempty"`
	Duration        *int32 `json:"duration,omitempty"`
	Timestamp       string `json:"timestamp"`
}

// NewRequest 构造发往工作队列的处理请求消息。
func NewRequest(videoID, userID uuid.UUID, storageKey, outputPath string, now time.Time) ProcessingMessage {
	return ProcessingMessage{
		VideoID:         videoID.String(),
		UserID:          userID.String(),
		VideoPath:       storageKey,
		CloudStorageKey: storageKey,
		OutputPath:      outputPath,
		Timestamp:       now.UTC().Format(time.RFC3339),
	}
}

// Encode 将消息序列化为 JSON。
func (m ProcessingMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeResult 解析并校验一条处理结果消息。
// 返回的错误均视为永久性错误，调用方不应重试投递。
func DecodeResult(data []byte) (*ResultMessage, error) {
	var raw ProcessingMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode result message: %w", err)
	}
	videoID, err := uuid.Parse(strings.TrimSpace(raw.VideoID))
	if err != nil {
		return nil, fmt.Errorf("result message: invalid videoId %q: %w", raw.VideoID, err)
	}
	status := po.VideoStatus(strings.ToUpper(strings.TrimSpace(raw.Status)))
	if !status.Valid() {
		return nil, fmt.Errorf("result message: unknown status %q", raw.Status)
	}
	// COMPLETED 必须携带产物路径，否则视频会以终态落库却没有可播放产物。
	if status == po.VideoStatusCompleted && strings.TrimSpace(raw.OutputPath) == "" {
		return nil, fmt.Errorf("result message: completed without outputPath")
	}
	progress := int32(0)
	if raw.Progress != nil {
		progress = *raw.Progress
	}
	if progress < 0 || progress > 100 {
		return nil, fmt.Errorf("result message: progress %d out of range", progress)
	}
	var reportedAt time.Time
	if raw.Timestamp != "" {
		reportedAt, err = time.Parse(time.RFC3339, raw.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("result message: invalid timestamp %q: %w", raw.Timestamp, err)
		}
	} else {
		reportedAt = time.Now().UTC()
	}
	res := &ResultMessage{
		VideoID:    videoID,
		Status:     status,
		Progress:   progress,
		OutputPath: strings.TrimSpace(raw.OutputPath),
		FileSize:   raw.FileSize,
		Duration:   raw.Duration,
		ReportedAt: reportedAt,
	}
	if msg := strings.TrimSpace(raw.Message); msg != "" {
		res.Message = &msg
	}
	return res, nil
}

// ResultMessage 是解码并校验后的处理结果。
type ResultMessage struct {
	VideoID    uuid.UUID
	Status     po.VideoStatus
	Progress   int32
	Message    *string
	OutputPath string
	FileSize   *int64
	Duration   *int32
	ReportedAt time.Time
}
