// Package httpserver 负责装配入站 HTTP Server 及其中间件栈。
// 包括追踪、panic 恢复与结构化日志中间件。
package httpserver

import (
	"github.com/bionicotaku/lingo-services-media/internal/controllers"
	configloader "github.com/bionicotaku/lingo-services-media/internal/infrastructure/configloader"

	obsTrace "github.com/bionicotaku/lingo-utils/observability/tracing"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/logging"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// NewHTTPServer 构造配置完整的 Kratos HTTP Server 实例。
//
// 中间件链（按执行顺序）：
// 1. obsTrace.Server() - OpenTelemetry 追踪，自动创建 Span
// 2. recovery.Recovery() - Panic 恢复，防止服务崩溃
// 3. logging.Server() - 结构化日志记录（含 trace_id/span_id）
func NewHTTPServer(cfg configloader.ServerConfig, videos *controllers.VideoHandler, logger log.Logger) *http.Server {
	opts := []http.ServerOption{
		http.Middleware(
			obsTrace.Server(),
			recovery.Recovery(),
			logging.Server(logger),
		),
	}
	if cfg.Network != "" {
		opts = append(opts, http.Network(cfg.Network))
	}
	if cfg.Address != "" {
		opts = append(opts, http.Address(cfg.Address))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, http.Timeout(cfg.Timeout))
	}

	srv := http.NewServer(opts...)
	if videos != nil {
		videos.RegisterRoutes(srv)
	}
	return srv
}
