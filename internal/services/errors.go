package services

import "github.com/go-kratos/kratos/v2/errors"

// 错误原因码，随 kratos error 返回给网关做机器可读分类。
const (
	ReasonVideoNotFound     = "VIDEO_NOT_FOUND"
	ReasonVideoAccessDenied = "VIDEO_ACCESS_DENIED"
	ReasonVideoInvalid      = "VIDEO_INVALID"
	ReasonYouTubeURLInvalid = "YOUTUBE_URL_INVALID"
	ReasonRetryNotAllowed   = "RETRY_NOT_ALLOWED"
	ReasonDownloadNotReady  = "DOWNLOAD_NOT_READY"
	ReasonDownloadForbidden = "DOWNLOAD_FORBIDDEN"
	ReasonStorageFailed     = "STORAGE_FAILED"
	ReasonQueryVideoFailed  = "QUERY_VIDEO_FAILED"
	ReasonQueryTimeout      = "QUERY_TIMEOUT"
	ReasonUnauthenticated   = "UNAUTHENTICATED"
)

// ErrVideoNotFound 表示视频不存在或请求者无权看到它。
var ErrVideoNotFound = errors.NotFound(ReasonVideoNotFound, "video not found")

// ErrAccessDenied 表示请求者不是视频 owner 且没有管理员角色。
var ErrAccessDenied = errors.Forbidden(ReasonVideoAccessDenied, "access denied")

// ErrUnauthenticated 表示请求缺少可用的用户身份。
var ErrUnauthenticated = errors.Unauthorized(ReasonUnauthenticated, "missing user identity")
