package services

import (
	"regexp"
	"strings"
)

// youtubeURLPattern 匹配常见的 YouTube 链接形态（watch、短链、shorts、embed）。
var youtubeURLPattern = regexp.MustCompile(`^(https?://)?(www\.)?(youtube\.com|youtu\.?be)/.+$`)

// youtubeIDPattern 约束解析出的视频 ID 形态。
var youtubeIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{6,20}$`)

// ValidYouTubeURL 判断给定字符串是否为可接受的 YouTube 链接。
func ValidYouTubeURL(raw string) bool {
	return youtubeURLPattern.MatchString(strings.TrimSpace(raw))
}

// ExtractYouTubeID 从 YouTube 链接中解析视频 ID。
// 支持 watch?v=、youtu.be/、shorts/ 与 embed/ 形态，无法解析时返回空串。
func ExtractYouTubeID(raw string) string {
	url := strings.TrimSpace(raw)
	if url == "" {
		return ""
	}
	var candidate string
	switch {
	case strings.Contains(url, "v="):
		candidate = url[strings.Index(url, "v=")+2:]
	case strings.Contains(url, "youtu.be/"):
		candidate = url[strings.Index(url, "youtu.be/")+len("youtu.be/"):]
	case strings.Contains(url, "shorts/"):
		candidate = url[strings.Index(url, "shorts/")+len("shorts/"):]
	case strings.Contains(url, "embed/"):
		candidate = url[strings.Index(url, "embed/")+len("embed/"):]
	default:
		return ""
	}
	for _, sep := range []string{"&", "?", "#", "/"} {
		if idx := strings.Index(candidate, sep); idx >= 0 {
			candidate = candidate[:idx]
		}
	}
	if !youtubeIDPattern.MatchString(candidate) {
		return ""
	}
	return candidate
}
